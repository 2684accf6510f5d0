package plan

// Name resolution. A scope is the ordered list of tables a SELECT reads
// from; every column reference in the statement is settled into a position
// inside the flattened combined schema, which is what the expression
// compiler and the optimizer operate on.

import (
	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/sql"
	"github.com/rivulet-io/rivulet/types"
)

type scopeTable struct {
	symbol string
	offset int
	def    *types.StructDef
}

type scope struct {
	tables   []scopeTable
	combined *types.StructDef
}

func newScope() *scope {
	return &scope{
		combined: types.NewStructDef("", nil),
	}
}

func (self *scope) add(symbol string, def *types.StructDef) error {
	for _, t := range self.tables {
		if t.symbol == symbol {
			return cerrors.New(
				cerrors.PlanError, symbol,
				"table %s appears more than once, alias one of them", symbol,
			)
		}
	}

	self.tables = append(self.tables, scopeTable{
		symbol: symbol,
		offset: len(self.combined.Fields),
		def:    def,
	})
	self.combined.Fields = append(self.combined.Fields, def.Fields...)
	return nil
}

func (self *scope) resolveQualified(table string, column string) (int, error) {
	for _, t := range self.tables {
		if t.symbol != table {
			continue
		}
		idx := t.def.FieldIndex(column)
		if idx < 0 {
			return -1, cerrors.New(
				cerrors.UnknownColumn, column,
				"table %s has no column %s", table, column,
			)
		}
		return t.offset + idx, nil
	}

	return -1, cerrors.New(
		cerrors.UnknownTable, table,
		"table %s is not part of the FROM clause", table,
	)
}

func (self *scope) resolveBare(column string) (int, error) {
	found := -1
	hits := 0

	for _, t := range self.tables {
		idx := t.def.FieldIndex(column)
		if idx >= 0 {
			found = t.offset + idx
			hits++
		}
	}

	if hits == 0 {
		return -1, cerrors.New(
			cerrors.UnknownColumn, column,
			"column %s is not defined by any input table", column,
		)
	}
	if hits > 1 {
		return -1, cerrors.New(
			cerrors.PlanError, column,
			"column %s is ambiguous, qualify it with a table name", column,
		)
	}
	return found, nil
}

func (self *scope) resolve(table string, column string) (int, error) {
	if table != "" {
		return self.resolveQualified(table, column)
	}
	return self.resolveBare(column)
}

// binder walks an expression and settles every column reference into the
// scope. Already bound references are left alone so that rebinding after a
// tree rewrite stays cheap.
type binder struct {
	scope *scope
}

func (self *binder) AcceptConst(*sql.Const) (bool, error)   { return true, nil }
func (self *binder) AcceptCall(*sql.Call) (bool, error)     { return true, nil }
func (self *binder) AcceptCast(*sql.Cast) (bool, error)     { return true, nil }
func (self *binder) AcceptUnary(*sql.Unary) (bool, error)   { return true, nil }
func (self *binder) AcceptBinary(*sql.Binary) (bool, error) { return true, nil }

func (self *binder) AcceptRef(r *sql.Ref) (bool, error) {
	if r.Binding.IsColumn() {
		return true, nil
	}
	idx, err := self.scope.resolve(r.Table, r.Id)
	if err != nil {
		return false, err
	}
	r.Binding.Set(idx)
	return true, nil
}

func bindExpr(s *scope, e sql.Expr) error {
	return sql.VisitExprPreOrder(&binder{scope: s}, e)
}

// ----------------------------------------------------------------------------
// access range
// ----------------------------------------------------------------------------

// accessRange records which columns of the combined schema an expression
// touches, used by the filter pushdown to decide which join side a conjunct
// belongs to.
type accessRange struct {
	min int
	max int
}

func (self *accessRange) AcceptConst(*sql.Const) (bool, error)   { return true, nil }
func (self *accessRange) AcceptCall(*sql.Call) (bool, error)     { return true, nil }
func (self *accessRange) AcceptCast(*sql.Cast) (bool, error)     { return true, nil }
func (self *accessRange) AcceptUnary(*sql.Unary) (bool, error)   { return true, nil }
func (self *accessRange) AcceptBinary(*sql.Binary) (bool, error) { return true, nil }

func (self *accessRange) AcceptRef(r *sql.Ref) (bool, error) {
	if !r.Binding.IsColumn() {
		return true, nil
	}
	col := r.Binding.Column
	if self.min < 0 || col < self.min {
		self.min = col
	}
	if col > self.max {
		self.max = col
	}
	return true, nil
}

// exprAccessRange returns the lowest and highest column an expression binds
// to, or (-1, -1) when it touches no column at all.
func exprAccessRange(e sql.Expr) (int, int) {
	r := &accessRange{min: -1, max: -1}
	sql.VisitExprPreOrder(r, e)
	return r.min, r.max
}

// shiftBindings moves every column binding by delta, used when a filter
// migrates from a join's coordinate system into the right input's.
type shifter struct {
	delta int
}

func (self *shifter) AcceptConst(*sql.Const) (bool, error)   { return true, nil }
func (self *shifter) AcceptCall(*sql.Call) (bool, error)     { return true, nil }
func (self *shifter) AcceptCast(*sql.Cast) (bool, error)     { return true, nil }
func (self *shifter) AcceptUnary(*sql.Unary) (bool, error)   { return true, nil }
func (self *shifter) AcceptBinary(*sql.Binary) (bool, error) { return true, nil }

func (self *shifter) AcceptRef(r *sql.Ref) (bool, error) {
	r.Binding.Shift(self.delta)
	return true, nil
}

func shiftBindings(e sql.Expr, delta int) {
	sql.VisitExprPreOrder(&shifter{delta: delta}, e)
}

// hasAggregate reports whether the expression contains an aggregate call.
type aggDetector struct {
	isAggregate func(string) bool
	found       bool
}

func (self *aggDetector) AcceptConst(*sql.Const) (bool, error)   { return true, nil }
func (self *aggDetector) AcceptRef(*sql.Ref) (bool, error)       { return true, nil }
func (self *aggDetector) AcceptCast(*sql.Cast) (bool, error)     { return true, nil }
func (self *aggDetector) AcceptUnary(*sql.Unary) (bool, error)   { return true, nil }
func (self *aggDetector) AcceptBinary(*sql.Binary) (bool, error) { return true, nil }

func (self *aggDetector) AcceptCall(c *sql.Call) (bool, error) {
	if self.isAggregate(c.Name) {
		self.found = true
		return false, nil
	}
	return true, nil
}

func hasAggregate(e sql.Expr, isAggregate func(string) bool) bool {
	d := &aggDetector{isAggregate: isAggregate}
	sql.VisitExprPreOrder(d, e)
	return d.found
}
