package plan

// Statement classification. Every parsed statement resolves into a table
// variant: named ones enter the catalog immediately so later statements can
// read them, nameless ones are the pipeline's outputs.

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/expr"
	"github.com/rivulet-io/rivulet/schema"
	"github.com/rivulet-io/rivulet/sql"
	"github.com/rivulet-io/rivulet/types"
)

// TableFromQuery is a named derived table, ie a view or a CREATE TABLE AS
// result. Reading it re-enters its plan.
type TableFromQuery struct {
	Name string
	Plan Node
}

func (self *TableFromQuery) TableName() string        { return self.Name }
func (self *TableFromQuery) Schema() *types.StructDef { return self.Plan.Schema() }

// InsertQuery writes a query's rows into an existing sink table.
type InsertQuery struct {
	SinkName string
	Sink     *schema.ConnectorTable
	Plan     Node
}

func (self *InsertQuery) TableName() string        { return "" }
func (self *InsertQuery) Schema() *types.StructDef { return self.Plan.Schema() }

// Anonymous is a bare SELECT, its rows stream to the caller.
type Anonymous struct {
	Plan Node
}

func (self *Anonymous) TableName() string        { return "" }
func (self *Anonymous) Schema() *types.StructDef { return self.Plan.Schema() }

// IsOutput reports whether the table variant produces rows the pipeline
// must deliver somewhere, as opposed to only defining a name.
func IsOutput(t schema.Table) bool {
	switch t.(type) {
	case *InsertQuery, *Anonymous:
		return true
	default:
		return false
	}
}

func optionValue(c *sql.Const) string {
	switch c.Ty {
	case sql.ConstStr:
		return c.String
	case sql.ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case sql.ConstReal:
		return strconv.FormatFloat(c.Real, 'f', -1, 64)
	case sql.ConstBool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

// ProcessStatement classifies one statement, plans any embedded SELECT and
// registers named results into the catalog. The returned table is the
// statement's result; IsOutput tells whether it needs a place to go.
func (self *Planner) ProcessStatement(stmt sql.Statement) (schema.Table, error) {
	switch stmt.StmtType() {
	case sql.StmtSelect:
		node, err := self.PlanSelect(stmt.(*sql.SelectStmt).Body)
		if err != nil {
			return nil, err
		}
		return &Anonymous{Plan: node}, nil

	case sql.StmtCreateView, sql.StmtCreateTableAs:
		name := ""
		var body *sql.Select
		if cv, ok := stmt.(*sql.CreateView); ok {
			name = cv.Name
			body = cv.Body
		} else {
			ct := stmt.(*sql.CreateTableAs)
			name = ct.Name
			body = ct.Body
		}

		node, err := self.PlanSelect(body)
		if err != nil {
			return nil, err
		}

		t := &TableFromQuery{Name: name, Plan: node}
		self.provider.InsertTable(t)
		return t, nil

	case sql.StmtInsert:
		return self.processInsert(stmt.(*sql.InsertStmt))

	case sql.StmtCreateTable:
		return self.processCreateTable(stmt.(*sql.CreateTable))

	default:
		panic("unreachable")
		return nil, nil
	}
}

func (self *Planner) processInsert(stmt *sql.InsertStmt) (schema.Table, error) {
	t, ok := self.provider.Table(stmt.Sink)
	if !ok {
		return nil, cerrors.New(
			cerrors.TableNotFound, stmt.Sink,
			"INSERT INTO %s: table is not defined", stmt.Sink,
		)
	}

	sink, ok := t.(*schema.ConnectorTable)
	if !ok {
		return nil, cerrors.New(
			cerrors.PlanError, stmt.Sink,
			"INSERT INTO %s: only connector tables accept inserts", stmt.Sink,
		)
	}
	if sink.Type != connector.ConnectionSink {
		return nil, cerrors.New(
			cerrors.UnsupportedConstruct, stmt.Sink,
			"table %s is a source, a query cannot write to it", stmt.Sink,
		)
	}

	node, err := self.PlanSelect(stmt.Body)
	if err != nil {
		return nil, err
	}

	if err := checkInsertSchema(sink, node.Schema()); err != nil {
		return nil, err
	}

	return &InsertQuery{
		SinkName: stmt.Sink,
		Sink:     sink,
		Plan:     node,
	}, nil
}

// checkInsertSchema matches the query's output against the sink's declared
// columns by position: kinds must agree up to numeric widening, and a
// nullable value cannot land in a non-nullable column.
func checkInsertSchema(sink *schema.ConnectorTable, got *types.StructDef) error {
	want := sink.Schema()

	if len(want.Fields) != len(got.Fields) {
		return cerrors.New(
			cerrors.PlanError, sink.Name,
			"INSERT INTO %s: sink has %d columns, query produces %d",
			sink.Name, len(want.Fields), len(got.Fields),
		)
	}

	for idx := range want.Fields {
		w := want.Fields[idx].Type
		g := got.Fields[idx].Type

		kindOk := w.Kind == g.Kind
		if !kindOk && w.IsNumeric() && g.IsNumeric() {
			// the sink column must be at least as wide as the value
			kindOk = expr.Promote(g.Kind, w.Kind) == w.Kind
		}
		if !kindOk && !g.IsNull() {
			return cerrors.New(
				cerrors.PlanError, sink.Name,
				"INSERT INTO %s: column %d is %s, query produces %s",
				sink.Name, idx+1, w.Print(), g.Print(),
			)
		}
		if !w.Nullable && (g.Nullable || g.IsNull()) {
			return cerrors.New(
				cerrors.PlanError, sink.Name,
				"INSERT INTO %s: column %d is not nullable but the query may produce null",
				sink.Name, idx+1,
			)
		}
	}

	return nil
}

func (self *Planner) processCreateTable(stmt *sql.CreateTable) (schema.Table, error) {
	opts := connector.Options{}
	for _, o := range stmt.Options {
		opts[o.Key] = optionValue(o.Value)
	}

	connectorName, ok := opts.Pull("connector")
	if !ok {
		return nil, cerrors.New(
			cerrors.UnsupportedConstruct, stmt.Name,
			"CREATE TABLE %s: in-memory tables are not supported, "+
				"declare a connector or use CREATE TABLE ... AS", stmt.Name,
		)
	}

	fields := []types.StructField{}
	for _, c := range stmt.Columns {
		td, ok := types.FromSQLName(c.TypeName)
		if !ok {
			return nil, cerrors.New(
				cerrors.UnsupportedType, c.Name,
				"unknown column type %q for column %s", c.TypeName, c.Name,
			)
		}
		td.Nullable = c.Nullable
		fields = append(fields, types.NewStructField(c.Name, "", td))
	}

	eventTime, _ := opts.Pull("event_time_field")
	watermark, _ := opts.Pull("watermark_field")

	if eventTime != "" {
		found := false
		for _, f := range fields {
			if f.Name == eventTime {
				found = true
				break
			}
		}
		if !found {
			return nil, cerrors.New(
				cerrors.UnknownColumn, eventTime,
				"event_time_field %s is not a column of %s", eventTime, stmt.Name,
			)
		}
	}

	table, err := schema.ResolveConnectorTable(
		stmt.Name, connectorName, fields, opts, eventTime, watermark,
	)
	if err != nil {
		return nil, err
	}

	if leftover := opts.Leftover(); leftover != nil {
		return nil, cerrors.New(
			cerrors.PlanError, stmt.Name,
			"CREATE TABLE %s: unknown options: %s",
			stmt.Name, strings.Join(leftover, ", "),
		)
	}

	self.provider.AddConnectorTable(table)
	self.provider.AddConnection(&connector.Connection{
		Name:        table.Name,
		Type:        table.Type,
		Operator:    table.Operator,
		Config:      table.Config,
		Description: table.Description,
	})

	return table, nil
}

// ProcessStatements runs the whole statement list, in order, and returns
// the output tables. Statement numbering in errors is 1 based.
func (self *Planner) ProcessStatements(stmts []sql.Statement) ([]schema.Table, error) {
	outputs := []schema.Table{}

	for idx, stmt := range stmts {
		t, err := self.ProcessStatement(stmt)
		if err != nil {
			return nil, errors.Wrapf(err, "statement %d", idx+1)
		}
		if IsOutput(t) {
			outputs = append(outputs, t)
		}
	}

	return outputs, nil
}
