package schema

// The catalog. A Provider holds every name the compiler can resolve: tables,
// scalar functions, aggregate functions, connections and user defined
// function sources. Seeding happens once up front; the planner then inserts
// the query derived tables as it walks the statement list.

import (
	"sort"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/types"
)

// FunctionDef describes a callable scalar function: the builtin ones seeded
// at construction plus registered UDFs. Body holds the UDF source, empty for
// builtins.
type FunctionDef struct {
	Name string
	Args []types.TypeDef
	Ret  types.TypeDef
	Udf  bool
	Body string
}

type Provider struct {
	tables      map[string]Table
	functions   map[string]*FunctionDef
	aggregates  map[string]bool
	connections map[string]*connector.Connection
	sourceDefs  map[string]string
}

func interval() types.TypeDef { return types.Data(types.KindInterval, false) }
func str() types.TypeDef      { return types.Data(types.KindString, false) }
func nullStr() types.TypeDef  { return types.Data(types.KindString, true) }
func windowTy() types.TypeDef { return types.Struct(types.WindowStruct(), false) }

func NewProvider() *Provider {
	self := &Provider{
		tables:      make(map[string]Table),
		functions:   make(map[string]*FunctionDef),
		aggregates:  make(map[string]bool),
		connections: make(map[string]*connector.Connection),
		sourceDefs:  make(map[string]string),
	}

	// window constructors, only meaningful inside GROUP BY
	self.functions["tumble"] = &FunctionDef{
		Name: "tumble",
		Args: []types.TypeDef{interval()},
		Ret:  windowTy(),
	}
	self.functions["hop"] = &FunctionDef{
		Name: "hop",
		Args: []types.TypeDef{interval(), interval()},
		Ret:  windowTy(),
	}

	// json helpers
	self.functions["get_first_json_object"] = &FunctionDef{
		Name: "get_first_json_object",
		Args: []types.TypeDef{str(), str()},
		Ret:  nullStr(),
	}
	self.functions["get_json_objects"] = &FunctionDef{
		Name: "get_json_objects",
		Args: []types.TypeDef{str(), str()},
		Ret:  nullStr(),
	}
	self.functions["extract_json_string"] = &FunctionDef{
		Name: "extract_json_string",
		Args: []types.TypeDef{str(), str()},
		Ret:  nullStr(),
	}

	for _, agg := range []string{"count", "sum", "min", "max", "avg"} {
		self.aggregates[agg] = true
	}

	return self
}

// InsertTable registers a table under its name, silently replacing a
// previous one. Nameless tables, ie anonymous query outputs, are skipped.
func (self *Provider) InsertTable(t Table) {
	name := t.TableName()
	if name == "" {
		return
	}
	self.tables[name] = t
}

func (self *Provider) AddConnectorTable(t *ConnectorTable) {
	self.tables[t.Name] = t
}

func (self *Provider) Table(name string) (Table, bool) {
	t, ok := self.tables[name]
	return t, ok
}

// Fields returns the column list of the named table.
func (self *Provider) Fields(name string) ([]types.StructField, error) {
	t, ok := self.tables[name]
	if !ok {
		return nil, cerrors.New(
			cerrors.TableNotFound, name, "table %s not found in the catalog", name,
		)
	}
	return t.Schema().Fields, nil
}

// TableNames returns every registered table name, sorted, for diagnostics.
func (self *Provider) TableNames() []string {
	out := []string{}
	for name := range self.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Function returns the named scalar function, or nil.
func (self *Provider) Function(name string) *FunctionDef {
	return self.functions[name]
}

func (self *Provider) IsAggregate(name string) bool {
	return self.aggregates[name]
}

// IsWindowFunction reports whether the function constructs a time window,
// which only the GROUP BY clause can host.
func (self *Provider) IsWindowFunction(name string) bool {
	return name == "tumble" || name == "hop"
}

func (self *Provider) AddConnection(c *connector.Connection) {
	self.connections[c.Name] = c
}

func (self *Provider) Connection(name string) (*connector.Connection, bool) {
	c, ok := self.connections[name]
	return c, ok
}

// AddSourceDef stores an auxiliary source snippet, ie shared helper code a
// UDF depends on, keyed by name.
func (self *Provider) AddSourceDef(name string, def string) {
	self.sourceDefs[name] = def
}

func (self *Provider) SourceDef(name string) (string, bool) {
	d, ok := self.sourceDefs[name]
	return d, ok
}
