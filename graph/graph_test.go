package graph

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/pipeline"
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
		Config:    `{"table":{"topic":"events"}}`,
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
		Config:    `{"table":{"topic":"rollups"}}`,
		Def: types.NewStructDef("rollups", []types.StructField{
			types.NewStructField("id", "", types.Data(types.KindInt64, false)),
			types.NewStructField("total", "", types.Data(types.KindFloat64, false)),
		}),
	})

	return p
}

func assemble(src string, p *schema.Provider) (*Program, error) {
	stmts, err := sql.NewParser(src).Parse()
	if err != nil {
		return nil, err
	}
	outputs, err := plan.NewPlanner(p).ProcessStatements(stmts)
	if err != nil {
		return nil, err
	}

	b := pipeline.NewBuilder(p)
	for _, t := range outputs {
		if err := b.AddTable(t); err != nil {
			return nil, err
		}
	}
	return Assemble(b.Outputs(), 4)
}

func TestAssemble(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(
		"insert into rollups select id, sum(value) as total from events group by id",
		testProvider())
	assert.NoError(err)
	assert.NotEmpty(prog.ID)

	// source, aggregate, sink; producers come before consumers
	assert.Equal(3, len(prog.Nodes))
	assert.Equal("source", prog.Nodes[0].Kind)
	assert.Equal("aggregate", prog.Nodes[1].Kind)
	assert.Equal("sink", prog.Nodes[2].Kind)

	assert.Equal([]Edge{{From: 0, To: 1}, {From: 1, To: 2}}, prog.Edges)
	assert.Equal([]string{"rollups"}, prog.Outputs)

	// connector attachment rides only on the endpoints
	assert.Equal("mqtt_source", prog.Nodes[0].Operator)
	assert.Contains(prog.Nodes[0].Config, `"topic":"events"`)
	assert.Equal("", prog.Nodes[1].Operator)
	assert.Equal("mqtt_sink", prog.Nodes[2].Operator)

	assert.Equal(4, prog.Nodes[0].Parallelism)
}

func TestAssembleSharedSubgraph(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(
		`create view positive as select id, value from events where value > 0;
		 select a.id from positive a join positive b on a.id = b.id`,
		testProvider())
	assert.NoError(err)

	// source, filter, projection realized once, then join over the shared
	// node, projection, sink
	assert.Equal(6, len(prog.Nodes))
	assert.Equal("join", prog.Nodes[3].Kind)

	// both join edges come from the one shared projection
	in := []int{}
	for _, e := range prog.Edges {
		if e.To == 3 {
			in = append(in, e.From)
		}
	}
	assert.Equal([]int{2, 2}, in)
}

func TestAssembleNoSink(t *testing.T) {
	assert := assert.New(t)

	_, err := Assemble(nil, 4)
	assert.True(cerrors.IsKind(err, cerrors.NoSinkDefined))
}

func TestProgramDump(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(`
create view positive as select id, value from events where value > 0;
insert into rollups select id, sum(value) as total from positive group by id;
select id from positive;
`, testProvider())
	assert.NoError(err)

	g := goldie.New(t)
	g.Assert(t, "program_dump", []byte(prog.Dump()))
}
