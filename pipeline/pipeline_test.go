package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/plan"
	"github.com/rivulet-io/rivulet/schema"
	"github.com/rivulet-io/rivulet/sql"
	"github.com/rivulet-io/rivulet/types"
)

func testProvider() *schema.Provider {
	p := schema.NewProvider()

	p.AddConnectorTable(&schema.ConnectorTable{
		Name:      "events",
		Type:      connector.ConnectionSource,
		Connector: "mqtt",
		Operator:  "mqtt_source",
		Config:    `{"connection":{"url":"mqtt://broker"},"table":{"topic":"events"}}`,
		Def: types.NewStructDef("events", []types.StructField{
			types.NewStructField("id", "", types.Data(types.KindInt64, false)),
			types.NewStructField("value", "", types.Data(types.KindFloat64, false)),
			types.NewStructField("ts", "", types.Data(types.KindTimestamp, false)),
		}),
	})

	p.AddConnectorTable(&schema.ConnectorTable{
		Name:      "rollups",
		Type:      connector.ConnectionSink,
		Connector: "mqtt",
		Operator:  "mqtt_sink",
		Config:    `{"connection":{"url":"mqtt://broker"},"table":{"topic":"rollups"}}`,
		Def: types.NewStructDef("rollups", []types.StructField{
			types.NewStructField("id", "", types.Data(types.KindInt64, false)),
			types.NewStructField("total", "", types.Data(types.KindFloat64, false)),
		}),
	})

	return p
}

func build(src string, p *schema.Provider) (*Builder, error) {
	stmts, err := sql.NewParser(src).Parse()
	if err != nil {
		return nil, err
	}
	outputs, err := plan.NewPlanner(p).ProcessStatements(stmts)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(p)
	for _, t := range outputs {
		if err := b.AddTable(t); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func TestLowerInsert(t *testing.T) {
	assert := assert.New(t)

	b, err := build(
		`insert into rollups
		 select id, sum(value) as total from events
		 where value > 0
		 group by id, tumble(interval '60' second)`,
		testProvider())
	assert.NoError(err)

	outputs := b.Outputs()
	assert.Equal(1, len(outputs))

	sink := outputs[0]
	assert.Equal("rollups", sink.Name)
	assert.Equal("mqtt_sink", sink.Operator)
	assert.Contains(sink.Config, `"topic":"rollups"`)

	agg := sink.Input.(*Aggregate)
	assert.NotNil(agg.Window)
	assert.Equal(plan.WindowTumbling, agg.Window.Kind)

	filter := agg.Input.(*Filter)
	source := filter.Input.(*Source)
	assert.Equal("events", source.Name)
	assert.Equal("mqtt_source", source.Operator)
	assert.Equal(3, len(source.Schema().Fields))
}

func TestLowerAnonymous(t *testing.T) {
	assert := assert.New(t)

	b, err := build("select id from events", testProvider())
	assert.NoError(err)

	sink := b.Outputs()[0]
	assert.Equal("preview", sink.Name)
	assert.Equal(OperatorPreviewSink, sink.Operator)
	assert.Equal("", sink.Config)

	proj := sink.Input.(*Projection)
	assert.Equal(1, len(proj.Items))
	assert.Equal("id", proj.Schema().Fields[0].Name)
}

func TestLowerSharedSource(t *testing.T) {
	assert := assert.New(t)

	// both statements read events, the source must be realized once
	b, err := build(
		"select id from events; select value from events",
		testProvider())
	assert.NoError(err)

	outputs := b.Outputs()
	assert.Equal(2, len(outputs))
	assert.Equal("preview", outputs[0].Name)
	assert.Equal("preview_2", outputs[1].Name)

	s1 := outputs[0].Input.(*Projection).Input.(*Source)
	s2 := outputs[1].Input.(*Projection).Input.(*Source)
	assert.True(s1 == s2)
}

func TestLowerSharedView(t *testing.T) {
	assert := assert.New(t)

	// a view joined with itself lowers one shared subgraph
	b, err := build(
		`create view positive as select id, value from events where value > 0;
		 select a.id from positive a join positive b on a.id = b.id`,
		testProvider())
	assert.NoError(err)

	join := b.Outputs()[0].Input.(*Projection).Input.(*Join)
	assert.True(join.L == join.R)

	_, isProj := join.L.(*Projection)
	assert.True(isProj)
}

func TestLowerTypedConditions(t *testing.T) {
	assert := assert.New(t)

	{
		// the filter keeps the typed expression analysis produced
		b, err := build("select id from events where value > 1.0", testProvider())
		assert.NoError(err)

		filter := b.Outputs()[0].Input.(*Projection).Input.(*Filter)
		assert.NotNil(filter.Compiled)
		assert.Equal(types.KindBool, filter.Compiled.ResultType().Kind)
	}

	{
		b, err := build(
			"select a.id from events a join events b on a.id = b.id",
			testProvider())
		assert.NoError(err)

		join := b.Outputs()[0].Input.(*Projection).Input.(*Join)
		assert.NotNil(join.Compiled)
		assert.Equal(types.KindBool, join.Compiled.ResultType().Kind)
	}
}

func TestLowerUnsupported(t *testing.T) {
	assert := assert.New(t)

	one := func(src string) {
		_, err := build(src, testProvider())
		assert.True(cerrors.IsKind(err, cerrors.UnsupportedConstruct), src)
	}

	one("select id from events order by id")
	one("select id from events limit 10")
	one("select a.id from events a cross join events b")
}

func TestPipelineDump(t *testing.T) {
	assert := assert.New(t)

	b, err := build(
		"insert into rollups select id, sum(value) as total from events group by id",
		testProvider())
	assert.NoError(err)

	assert.Equal(
		"sink(rollups, mqtt_sink)\n"+
			"  aggregate(keys=[id=id], aggs=[total=sum(value)])\n"+
			"    source(events, mqtt_source)\n",
		Dump(b.Outputs()[0]))
}
