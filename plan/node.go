package plan

// Logical plan nodes. The planner builds a left deep tree of these out of a
// resolved SELECT; the analyze pass then compiles every held expression and
// settles the output schema of each node bottom up.

import (
	"time"

	"github.com/rivulet-io/rivulet/expr"
	"github.com/rivulet-io/rivulet/schema"
	"github.com/rivulet-io/rivulet/sql"
	"github.com/rivulet-io/rivulet/types"
)

const (
	NodeScan = iota
	NodeProject
	NodeFilter
	NodeJoin
	NodeAggregate
	NodeSort
	NodeLimit
)

type Node interface {
	Type() int

	// Schema is the output column list, valid after the analyze pass
	Schema() *types.StructDef

	Children() []Node
}

// Scan reads one catalog table. Symbol is what the query refers to it by,
// ie the alias when one is given.
type Scan struct {
	Table  schema.Table
	Name   string
	Symbol string
	Def    *types.StructDef
}

func (self *Scan) Type() int                { return NodeScan }
func (self *Scan) Schema() *types.StructDef { return self.Def }
func (self *Scan) Children() []Node         { return nil }

// ProjectItem is one output column: the resolved source expression plus its
// compiled form.
type ProjectItem struct {
	Name     string
	Expr     sql.Expr
	Compiled expr.Expression
}

type Project struct {
	Input Node
	Items []ProjectItem
	Def   *types.StructDef
}

func (self *Project) Type() int                { return NodeProject }
func (self *Project) Schema() *types.StructDef { return self.Def }
func (self *Project) Children() []Node         { return []Node{self.Input} }

// Filter passes rows its condition evaluates to true on. The schema is the
// input schema, untouched.
type Filter struct {
	Input     Node
	Condition sql.Expr
	Compiled  expr.Expression
}

func (self *Filter) Type() int                { return NodeFilter }
func (self *Filter) Schema() *types.StructDef { return self.Input.Schema() }
func (self *Filter) Children() []Node         { return []Node{self.Input} }

// Join combines 2 inputs; the output schema is the left columns followed by
// the right columns, which is also the coordinate system the ON condition's
// bindings use.
type Join struct {
	L        Node
	R        Node
	Kind     int // sql.JoinInner and friends
	On       sql.Expr
	Compiled expr.Expression
	Def      *types.StructDef
}

func (self *Join) Type() int                { return NodeJoin }
func (self *Join) Schema() *types.StructDef { return self.Def }
func (self *Join) Children() []Node         { return []Node{self.L, self.R} }

const (
	WindowTumbling = iota
	WindowHopping
)

// WindowSpec is the time bucketing a grouped query runs under, extracted
// from a tumble/hop call in GROUP BY.
type WindowSpec struct {
	Kind  int
	Size  time.Duration
	Slide time.Duration // hopping only
}

func WindowKindName(kind int) string {
	if kind == WindowTumbling {
		return "tumbling"
	}
	return "hopping"
}

// AggItem is one aggregate output column. Arg is nil for count(*).
type AggItem struct {
	Name     string
	Fn       string
	Arg      sql.Expr
	Compiled expr.Expression
}

// Aggregate groups its input by Keys and folds each group through Aggs. The
// output schema is keys, then aggregates, then the window bounds when a
// window is present.
type Aggregate struct {
	Input  Node
	Keys   []ProjectItem
	Aggs   []AggItem
	Window *WindowSpec
	Def    *types.StructDef
}

func (self *Aggregate) Type() int                { return NodeAggregate }
func (self *Aggregate) Schema() *types.StructDef { return self.Def }
func (self *Aggregate) Children() []Node         { return []Node{self.Input} }

// Sort and Limit are planned for diagnosis purposes but an unbounded stream
// cannot run them, lowering rejects both.
type Sort struct {
	Input Node
	Keys  []sql.Expr
	Desc  bool
}

func (self *Sort) Type() int                { return NodeSort }
func (self *Sort) Schema() *types.StructDef { return self.Input.Schema() }
func (self *Sort) Children() []Node         { return []Node{self.Input} }

type Limit struct {
	Input Node
	Count int64
}

func (self *Limit) Type() int                { return NodeLimit }
func (self *Limit) Schema() *types.StructDef { return self.Input.Schema() }
func (self *Limit) Children() []Node         { return []Node{self.Input} }
