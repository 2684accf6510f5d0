package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/schema"
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

func TestEmptyQuery(t *testing.T) {
	assert := assert.New(t)

	for _, src := range []string{"", "   ", "\n\t\n", ";;"} {
		_, _, err := ParseAndGetProgram(src, testProvider(), DefaultConfig())
		assert.True(cerrors.IsKind(err, cerrors.EmptyQuery), "%q", src)
	}
}

func TestNoSink(t *testing.T) {
	assert := assert.New(t)

	// a batch that only defines names compiles to nothing
	_, _, err := ParseAndGetProgram(
		"create view v as select id from events",
		testProvider(), DefaultConfig())
	assert.True(cerrors.IsKind(err, cerrors.NoSinkDefined))
}

func TestViewRoundTrip(t *testing.T) {
	assert := assert.New(t)

	prog, outputs, err := ParseAndGetProgram(`
create view v as select * from events;
select * from v;
`, testProvider(), DefaultConfig())
	assert.NoError(err)
	assert.Equal(1, len(outputs))

	sink := prog.Nodes[len(prog.Nodes)-1]
	assert.Equal("sink", sink.Kind)
	assert.Equal(3, len(sink.Schema.Fields))
	assert.Equal("id", sink.Schema.Fields[0].Name)
	assert.Equal("ts", sink.Schema.Fields[2].Name)
}

func TestSelfJoinSharedOnce(t *testing.T) {
	assert := assert.New(t)

	prog, _, err := ParseAndGetProgram(
		"select a.id from events a join events b on a.id = b.id",
		testProvider(), DefaultConfig())
	assert.NoError(err)

	sources := 0
	sourceID := -1
	joinID := -1
	for _, n := range prog.Nodes {
		if n.Kind == "source" {
			sources++
			sourceID = n.ID
		}
		if n.Kind == "join" {
			joinID = n.ID
		}
	}
	assert.Equal(1, sources)

	// two distinct consumer edges point at the shared source
	in := 0
	for _, e := range prog.Edges {
		if e.From == sourceID && e.To == joinID {
			in++
		}
	}
	assert.Equal(2, in)
}

func TestWindowedProgram(t *testing.T) {
	assert := assert.New(t)

	prog, outputs, err := ParseAndGetProgram(`
insert into rollups
select id, sum(value) as total from events
group by id, tumble(interval '1' minute);
`, testProvider(), DefaultConfig())
	assert.NoError(err)
	assert.Equal([]string{"rollups"}, outputs)

	found := false
	for _, n := range prog.Nodes {
		if n.Kind == "aggregate" {
			found = true
			assert.Contains(n.Description, "window=tumbling(1m0s)")
			// the window bounds ride at the end of the schema
			last := n.Schema.Fields[len(n.Schema.Fields)-1]
			assert.Equal("window_end", last.Name)
		}
	}
	assert.True(found)
}

func TestStatementErrorContext(t *testing.T) {
	assert := assert.New(t)

	_, _, err := ParseAndGetProgram(`
select id from events;
select id from nope;
`, testProvider(), DefaultConfig())
	assert.Error(err)
	assert.Contains(err.Error(), "statement 2")
	assert.True(cerrors.IsKind(err, cerrors.UnknownTable))
}

func TestDefaultParallelism(t *testing.T) {
	assert := assert.New(t)

	prog, _, err := ParseAndGetProgram(
		"select id from events", testProvider(), Config{})
	assert.NoError(err)
	assert.Equal(4, prog.Nodes[0].Parallelism)
}
