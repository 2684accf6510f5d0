package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/types"
)

func testTable(name string) *ConnectorTable {
	return &ConnectorTable{
		Name:      name,
		Type:      connector.ConnectionSource,
		Connector: "mqtt",
		Def: types.NewStructDef(name, []types.StructField{
			types.NewStructField("id", "", types.Data(types.KindInt64, false)),
			types.NewStructField("value", "", types.Data(types.KindFloat64, true)),
		}),
	}
}

func TestProviderBuiltins(t *testing.T) {
	assert := assert.New(t)
	p := NewProvider()

	tumble := p.Function("tumble")
	assert.NotNil(tumble)
	assert.Equal(1, len(tumble.Args))
	assert.Equal(types.KindInterval, tumble.Args[0].Kind)
	assert.Equal(types.KindStruct, tumble.Ret.Kind)

	hop := p.Function("hop")
	assert.NotNil(hop)
	assert.Equal(2, len(hop.Args))

	for _, name := range []string{
		"get_first_json_object", "get_json_objects", "extract_json_string",
	} {
		fn := p.Function(name)
		assert.NotNil(fn)
		assert.Equal(types.KindString, fn.Ret.Kind)
		assert.True(fn.Ret.Nullable)
	}

	for _, name := range []string{"count", "sum", "min", "max", "avg"} {
		assert.True(p.IsAggregate(name))
	}
	assert.False(p.IsAggregate("tumble"))

	assert.True(p.IsWindowFunction("tumble"))
	assert.True(p.IsWindowFunction("hop"))
	assert.False(p.IsWindowFunction("count"))

	assert.Nil(p.Function("no_such_function"))
}

func TestProviderTables(t *testing.T) {
	assert := assert.New(t)
	p := NewProvider()

	_, err := p.Fields("events")
	assert.True(cerrors.IsKind(err, cerrors.TableNotFound))

	p.AddConnectorTable(testTable("events"))

	fields, err := p.Fields("events")
	assert.NoError(err)
	assert.Equal(2, len(fields))
	assert.Equal("id", fields[0].Name)

	// registering again under the same name replaces the previous entry
	replacement := testTable("events")
	replacement.Def = types.NewStructDef("events", []types.StructField{
		types.NewStructField("other", "", types.Data(types.KindString, false)),
	})
	p.InsertTable(replacement)

	fields, err = p.Fields("events")
	assert.NoError(err)
	assert.Equal(1, len(fields))
	assert.Equal("other", fields[0].Name)

	assert.Equal([]string{"events"}, p.TableNames())
}

func TestProviderConnections(t *testing.T) {
	assert := assert.New(t)
	p := NewProvider()

	_, ok := p.Connection("events")
	assert.False(ok)

	p.AddConnection(&connector.Connection{
		Name:     "events",
		Type:     connector.ConnectionSource,
		Operator: "mqtt_source",
	})

	c, ok := p.Connection("events")
	assert.True(ok)
	assert.Equal("mqtt_source", c.Operator)
}

func TestProviderSourceDefs(t *testing.T) {
	assert := assert.New(t)
	p := NewProvider()

	_, ok := p.SourceDef("helpers")
	assert.False(ok)

	p.AddSourceDef("helpers", "func clamp(v int64) int64 { return v }")
	d, ok := p.SourceDef("helpers")
	assert.True(ok)
	assert.Contains(d, "clamp")
}

func TestLoadCatalog(t *testing.T) {
	assert := assert.New(t)

	catalog := `
tables:
  - name: readings
    connector: mqtt
    eventTime: ts
    options:
      url: mqtt://broker:1883
      type: source
      topic: sensor/readings
    fields:
      - name: sensor
        type: bigint
      - name: value
        type: double
        nullable: true
  - name: alerts
    connector: mqtt
    options:
      url: mqtt://broker:1883
      type: sink
      topic: sensor/alerts
    fields:
      - name: sensor
        type: bigint
`
	p := NewProvider()
	assert.NoError(p.LoadCatalog(strings.NewReader(catalog)))

	fields, err := p.Fields("readings")
	assert.NoError(err)
	assert.Equal(2, len(fields))
	assert.Equal(types.KindInt64, fields[0].Type.Kind)
	assert.True(fields[1].Type.Nullable)

	table, ok := p.Table("readings")
	assert.True(ok)
	ct := table.(*ConnectorTable)
	assert.Equal("mqtt_source", ct.Operator)
	assert.Equal("ts", ct.EventTimeField)

	table, ok = p.Table("alerts")
	assert.True(ok)
	assert.Equal("mqtt_sink", table.(*ConnectorTable).Operator)

	_, ok = p.Connection("readings")
	assert.True(ok)
	_, ok = p.Connection("alerts")
	assert.True(ok)
}

func TestLoadCatalogUdfs(t *testing.T) {
	assert := assert.New(t)

	catalog := `
tables:
  - name: readings
    connector: mqtt
    options:
      url: mqtt://broker:1883
      type: source
      topic: sensor/readings
    fields:
      - name: value
        type: double
udfs:
  - |
    func double_it(v int64) int64 {
      return v * 2
    }
`
	p := NewProvider()
	assert.NoError(p.LoadCatalog(strings.NewReader(catalog)))

	fn := p.Function("double_it")
	assert.NotNil(fn)
	assert.True(fn.Udf)
	assert.Equal(types.KindInt64, fn.Ret.Kind)

	// a broken udf source fails the whole load
	p = NewProvider()
	err := p.LoadCatalog(strings.NewReader(`
udfs:
  - |
    func no_ret(v int64) {}
`))
	assert.True(cerrors.IsKind(err, cerrors.MissingReturnType))
}

func TestLoadCatalogErrors(t *testing.T) {
	assert := assert.New(t)

	{
		// unknown connector
		p := NewProvider()
		err := p.LoadCatalog(strings.NewReader(`
tables:
  - name: t
    connector: carrier-pigeon
    options:
      type: source
`))
		assert.True(cerrors.IsKind(err, cerrors.UnsupportedConstruct))
	}

	{
		// unknown column type
		p := NewProvider()
		err := p.LoadCatalog(strings.NewReader(`
tables:
  - name: t
    connector: mqtt
    options:
      url: mqtt://b
      type: source
      topic: x
    fields:
      - name: c
        type: quaternion
`))
		assert.True(cerrors.IsKind(err, cerrors.UnsupportedType))
	}

	{
		// missing required connector option
		p := NewProvider()
		err := p.LoadCatalog(strings.NewReader(`
tables:
  - name: t
    connector: mqtt
    options:
      type: source
      topic: x
`))
		assert.True(cerrors.IsKind(err, cerrors.PlanError))
	}

	{
		// an option no connector consumed is diagnosed, not dropped
		p := NewProvider()
		err := p.LoadCatalog(strings.NewReader(`
tables:
  - name: t
    connector: mqtt
    options:
      url: mqtt://b
      type: source
      topic: x
      topci: y
`))
		assert.True(cerrors.IsKind(err, cerrors.PlanError))
		assert.Contains(err.Error(), "topci")
	}
}
