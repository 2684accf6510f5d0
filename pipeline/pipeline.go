package pipeline

// The pipeline builder. Lowers classified tables into streaming operator
// subgraphs. The operator set is deliberately small: everything a plan can
// express either maps onto one of these or fails with a message naming the
// construct, never silently degrades.

import (
	"fmt"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/expr"
	"github.com/rivulet-io/rivulet/plan"
	"github.com/rivulet-io/rivulet/schema"
	"github.com/rivulet-io/rivulet/sql"
	"github.com/rivulet-io/rivulet/types"
)

const (
	OpSource = iota
	OpProjection
	OpFilter
	OpJoin
	OpAggregate
	OpSink
)

func OpName(op int) string {
	switch op {
	case OpSource:
		return "source"
	case OpProjection:
		return "projection"
	case OpFilter:
		return "filter"
	case OpJoin:
		return "join"
	case OpAggregate:
		return "aggregate"
	case OpSink:
		return "sink"
	default:
		return "unknown"
	}
}

// SqlOperator is one node of the streaming dataflow. Operators form a DAG,
// not a tree: a catalog table read twice lowers once and both readers hold
// the same operator, which is why identity matters and operators are always
// handled by pointer.
type SqlOperator interface {
	Type() int
	Inputs() []SqlOperator
	Schema() *types.StructDef
}

// Source reads records out of a connector. Operator and Config come from the
// connection profile verbatim, the compiler never interprets them.
type Source struct {
	Name           string
	Operator       string
	Config         string
	Def            *types.StructDef
	EventTimeField string
	WatermarkField string
}

func (self *Source) Type() int                { return OpSource }
func (self *Source) Inputs() []SqlOperator    { return nil }
func (self *Source) Schema() *types.StructDef { return self.Def }

// Sink delivers its input's records somewhere. A connector sink carries the
// connection profile; the preview sink, used for a bare SELECT, carries none
// and streams back to the caller.
type Sink struct {
	Input    SqlOperator
	Name     string
	Operator string
	Config   string
}

const OperatorPreviewSink = "preview_sink"

func (self *Sink) Type() int                { return OpSink }
func (self *Sink) Inputs() []SqlOperator    { return []SqlOperator{self.Input} }
func (self *Sink) Schema() *types.StructDef { return self.Input.Schema() }

type Projection struct {
	Input SqlOperator
	Items []plan.ProjectItem
	Def   *types.StructDef
}

func (self *Projection) Type() int                { return OpProjection }
func (self *Projection) Inputs() []SqlOperator    { return []SqlOperator{self.Input} }
func (self *Projection) Schema() *types.StructDef { return self.Def }

// Filter carries both forms of its condition: the printable source tree and
// the typed expression code generation evaluates.
type Filter struct {
	Input     SqlOperator
	Condition sql.Expr
	Compiled  expr.Expression
}

func (self *Filter) Type() int                { return OpFilter }
func (self *Filter) Inputs() []SqlOperator    { return []SqlOperator{self.Input} }
func (self *Filter) Schema() *types.StructDef { return self.Input.Schema() }

type Join struct {
	L        SqlOperator
	R        SqlOperator
	Kind     int // sql.JoinInner and friends
	On       sql.Expr
	Compiled expr.Expression
	Def      *types.StructDef
}

func (self *Join) Type() int                { return OpJoin }
func (self *Join) Inputs() []SqlOperator    { return []SqlOperator{self.L, self.R} }
func (self *Join) Schema() *types.StructDef { return self.Def }

type Aggregate struct {
	Input  SqlOperator
	Keys   []plan.ProjectItem
	Aggs   []plan.AggItem
	Window *plan.WindowSpec
	Def    *types.StructDef
}

func (self *Aggregate) Type() int                { return OpAggregate }
func (self *Aggregate) Inputs() []SqlOperator    { return []SqlOperator{self.Input} }
func (self *Aggregate) Schema() *types.StructDef { return self.Def }

// ----------------------------------------------------------------------------
// builder
// ----------------------------------------------------------------------------

// Builder lowers output tables, in order, into operator subgraphs. Catalog
// tables lower once and are cached by name, so a source or view referenced
// twice is realized as one shared operator.
type Builder struct {
	provider *schema.Provider
	byName   map[string]SqlOperator
	outputs  []*Sink
	anon     int
}

func NewBuilder(provider *schema.Provider) *Builder {
	return &Builder{
		provider: provider,
		byName:   make(map[string]SqlOperator),
	}
}

// Outputs are the sink roots, in the order the statements produced them.
func (self *Builder) Outputs() []*Sink {
	return self.outputs
}

// AddTable lowers one output table. Only outputs enter here; named tables
// lower lazily when a scan reads them.
func (self *Builder) AddTable(t schema.Table) error {
	switch v := t.(type) {
	case *plan.Anonymous:
		op, err := self.lowerNode(v.Plan)
		if err != nil {
			return err
		}
		self.anon++
		self.outputs = append(self.outputs, &Sink{
			Input:    op,
			Name:     anonName(self.anon),
			Operator: OperatorPreviewSink,
		})
		return nil

	case *plan.InsertQuery:
		op, err := self.lowerNode(v.Plan)
		if err != nil {
			return err
		}
		self.outputs = append(self.outputs, &Sink{
			Input:    op,
			Name:     v.SinkName,
			Operator: v.Sink.Operator,
			Config:   v.Sink.Config,
		})
		return nil

	default:
		return cerrors.New(
			cerrors.PlanError, t.TableName(),
			"table %s does not produce output", t.TableName(),
		)
	}
}

func anonName(n int) string {
	if n == 1 {
		return "preview"
	}
	return fmt.Sprintf("preview_%d", n)
}

func (self *Builder) lowerTable(name string, t schema.Table) (SqlOperator, error) {
	if op, ok := self.byName[name]; ok {
		return op, nil
	}

	var op SqlOperator
	switch v := t.(type) {
	case *schema.ConnectorTable:
		op = &Source{
			Name:           v.Name,
			Operator:       v.Operator,
			Config:         v.Config,
			Def:            v.Def,
			EventTimeField: v.EventTimeField,
			WatermarkField: v.WatermarkField,
		}

	case *plan.TableFromQuery:
		inner, err := self.lowerNode(v.Plan)
		if err != nil {
			return nil, err
		}
		op = inner

	default:
		return nil, cerrors.New(
			cerrors.PlanError, name, "table %s cannot be scanned", name,
		)
	}

	self.byName[name] = op
	return op, nil
}

func (self *Builder) lowerNode(n plan.Node) (SqlOperator, error) {
	switch v := n.(type) {
	case *plan.Scan:
		return self.lowerTable(v.Name, v.Table)

	case *plan.Filter:
		input, err := self.lowerNode(v.Input)
		if err != nil {
			return nil, err
		}
		return &Filter{
			Input:     input,
			Condition: v.Condition,
			Compiled:  v.Compiled,
		}, nil

	case *plan.Project:
		input, err := self.lowerNode(v.Input)
		if err != nil {
			return nil, err
		}
		return &Projection{
			Input: input,
			Items: v.Items,
			Def:   v.Schema(),
		}, nil

	case *plan.Join:
		if v.Kind == sql.JoinCross {
			return nil, cerrors.New(
				cerrors.UnsupportedConstruct, "",
				"CROSS JOIN cannot run on unbounded streams, join on a condition",
			)
		}
		l, err := self.lowerNode(v.L)
		if err != nil {
			return nil, err
		}
		r, err := self.lowerNode(v.R)
		if err != nil {
			return nil, err
		}
		return &Join{
			L:        l,
			R:        r,
			Kind:     v.Kind,
			On:       v.On,
			Compiled: v.Compiled,
			Def:      v.Schema(),
		}, nil

	case *plan.Aggregate:
		input, err := self.lowerNode(v.Input)
		if err != nil {
			return nil, err
		}
		return &Aggregate{
			Input:  input,
			Keys:   v.Keys,
			Aggs:   v.Aggs,
			Window: v.Window,
			Def:    v.Schema(),
		}, nil

	case *plan.Sort:
		return nil, cerrors.New(
			cerrors.UnsupportedConstruct, "",
			"ORDER BY cannot run on an unbounded stream",
		)

	case *plan.Limit:
		return nil, cerrors.New(
			cerrors.UnsupportedConstruct, "",
			"LIMIT cannot run on an unbounded stream",
		)

	default:
		panic("unreachable")
		return nil, nil
	}
}
