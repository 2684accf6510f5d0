package sql

import (
	"bytes"
	"fmt"
	"time"
)

const (
	ConstNull = iota
	ConstBool
	ConstStr
	ConstInt
	ConstReal
	ConstInterval
)

const (
	ExprConst = iota
	ExprRef
	ExprCall
	ExprCast
	ExprUnary
	ExprBinary
)

const (
	StmtSelect = iota
	StmtCreateView
	StmtCreateTableAs
	StmtCreateTable
	StmtInsert
)

const (
	SelectVarCol = iota
	SelectVarStar
)

const (
	JoinInner = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

const (
	OrderAsc = iota
	OrderDesc
)

type CodeInfo struct {
	Start   int
	End     int
	Snippet string
}

// ----------------------------------------------------------------------------
// Statement
// ----------------------------------------------------------------------------

type Statement interface {
	StmtType() int
	CInfo() CodeInfo
}

type SelectStmt struct {
	CodeInfo CodeInfo
	Body     *Select
}

type CreateView struct {
	CodeInfo CodeInfo
	Name     string
	Body     *Select
}

type CreateTableAs struct {
	CodeInfo CodeInfo
	Name     string
	Body     *Select
}

// Naked CREATE TABLE, ie one that carries a column list and WITH options
// instead of a backing query. Parsed so the error surfaced to the user talks
// about the construct instead of the grammar.
type CreateTable struct {
	CodeInfo CodeInfo
	Name     string
	Columns  []ColumnDef
	Options  []TableOption
}

type ColumnDef struct {
	Name     string
	TypeName string
	Nullable bool
}

type TableOption struct {
	Key   string
	Value *Const
}

type InsertStmt struct {
	CodeInfo CodeInfo
	Sink     string
	Body     *Select
}

func (self *SelectStmt) StmtType() int      { return StmtSelect }
func (self *SelectStmt) CInfo() CodeInfo    { return self.CodeInfo }
func (self *CreateView) StmtType() int      { return StmtCreateView }
func (self *CreateView) CInfo() CodeInfo    { return self.CodeInfo }
func (self *CreateTableAs) StmtType() int   { return StmtCreateTableAs }
func (self *CreateTableAs) CInfo() CodeInfo { return self.CodeInfo }
func (self *CreateTable) StmtType() int     { return StmtCreateTable }
func (self *CreateTable) CInfo() CodeInfo   { return self.CodeInfo }
func (self *InsertStmt) StmtType() int      { return StmtInsert }
func (self *InsertStmt) CInfo() CodeInfo    { return self.CodeInfo }

// ----------------------------------------------------------------------------
// Select
// ----------------------------------------------------------------------------

type SelectVar interface {
	Type() int
	CInfo() CodeInfo

	// Index is unique within the SQL, used to synthesize the default column
	// name when no alias is given
	Index() int

	// Alias returns the *as* name if one is present, otherwise empty
	Alias() string
}

type Col struct {
	CodeInfo CodeInfo
	ColIndex int
	As       string
	Value    Expr
}

type Star struct {
	CodeInfo CodeInfo
}

func (self *Col) Type() int       { return SelectVarCol }
func (self *Col) CInfo() CodeInfo { return self.CodeInfo }
func (self *Col) Index() int      { return self.ColIndex }
func (self *Col) Alias() string   { return self.As }

func (self *Star) Type() int       { return SelectVarStar }
func (self *Star) CInfo() CodeInfo { return self.CodeInfo }
func (self *Star) Index() int      { return 0 }
func (self *Star) Alias() string   { return "" }

type SelectVarList []SelectVar

func (self *SelectVarList) HasStar() bool {
	for _, y := range *self {
		if y.Type() == SelectVarStar {
			return true
		}
	}
	return false
}

type Projection struct {
	CodeInfo  CodeInfo
	ValueList SelectVarList
}

func (self *Projection) HasStar() bool {
	return self.ValueList.HasStar()
}

// TableRef is a reference into the catalog, optionally aliased
type TableRef struct {
	CodeInfo CodeInfo
	Name     string
	Alias    string
}

func (self *TableRef) Symbol() string {
	if self.Alias != "" {
		return self.Alias
	}
	return self.Name
}

type JoinClause struct {
	CodeInfo CodeInfo
	Kind     int
	Table    *TableRef
	On       Expr // nil for cross join
}

func JoinKindName(kind int) string {
	switch kind {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinFull:
		return "full"
	case JoinCross:
		return "cross"
	default:
		return "unknown"
	}
}

type From struct {
	CodeInfo CodeInfo
	Table    *TableRef
	Joins    []*JoinClause
}

func (self *From) Tables() []*TableRef {
	out := []*TableRef{self.Table}
	for _, j := range self.Joins {
		out = append(out, j.Table)
	}
	return out
}

type Where struct {
	CodeInfo  CodeInfo
	Condition Expr
}

type GroupBy struct {
	CodeInfo CodeInfo
	Name     []Expr
}

type OrderBy struct {
	CodeInfo CodeInfo
	Order    int
	Name     []Expr
}

type Limit struct {
	CodeInfo CodeInfo
	Limit    int64
}

type Select struct {
	CodeInfo CodeInfo

	Projection *Projection
	From       *From
	Where      *Where
	GroupBy    *GroupBy
	OrderBy    *OrderBy
	Limit      *Limit
}

/** -------------------------------------------------------------------------
 ** Expression
 ** -----------------------------------------------------------------------*/

type Const struct {
	Ty       int
	Bool     bool
	String   string
	Real     float64
	Int      int64
	Dur      time.Duration // interval literal
	CodeInfo CodeInfo
}

// Binding records the resolution result of a column reference: the column
// position inside the flattened input schema of the node the expression is
// evaluated against. Settled during symbol resolution, consumed by the
// expression compiler.
const (
	BindFree = iota
	BindColumn
)

type Binding struct {
	Type   int
	Column int
}

func (self *Binding) Set(cidx int) {
	self.Type = BindColumn
	self.Column = cidx
}

func (self *Binding) Shift(delta int) {
	if self.IsColumn() {
		self.Column += delta
	}
}

func (self *Binding) IsColumn() bool { return self.Type == BindColumn }
func (self *Binding) IsFree() bool   { return self.Type == BindFree }
func (self *Binding) Reset() {
	self.Type = BindFree
	self.Column = 0
}

func (self *Binding) Print() string {
	if self.IsFree() {
		return "N/A"
	}
	return fmt.Sprintf("#%d", self.Column)
}

// Ref is a column reference, optionally table qualified
type Ref struct {
	Table    string // qualifier, empty when the reference is bare
	Id       string
	Binding  Binding
	CodeInfo CodeInfo
}

type Call struct {
	Name       string
	Parameters []Expr
	CodeInfo   CodeInfo
}

type Cast struct {
	Operand  Expr
	TypeName string
	CodeInfo CodeInfo
}

type Unary struct {
	Op       []int
	Operand  Expr
	CodeInfo CodeInfo
}

type Binary struct {
	Op       int
	L        Expr
	R        Expr
	CodeInfo CodeInfo
}

type Expr interface {
	Type() int
	CInfo() CodeInfo
}

func (self *Const) Type() int       { return ExprConst }
func (self *Const) CInfo() CodeInfo { return self.CodeInfo }

func (self *Ref) Type() int       { return ExprRef }
func (self *Ref) CInfo() CodeInfo { return self.CodeInfo }

func (self *Call) Type() int       { return ExprCall }
func (self *Call) CInfo() CodeInfo { return self.CodeInfo }

func (self *Cast) Type() int       { return ExprCast }
func (self *Cast) CInfo() CodeInfo { return self.CodeInfo }

func (self *Unary) Type() int       { return ExprUnary }
func (self *Unary) CInfo() CodeInfo { return self.CodeInfo }

func (self *Binary) Type() int       { return ExprBinary }
func (self *Binary) CInfo() CodeInfo { return self.CodeInfo }

/* ----------------------------------------------------------------------------
 * Visitor
 * ---------------------------------------------------------------------------*/

type ExprVisitor interface {
	AcceptConst(*Const) (bool, error)
	AcceptRef(*Ref) (bool, error)
	AcceptCall(*Call) (bool, error)
	AcceptCast(*Cast) (bool, error)
	AcceptUnary(*Unary) (bool, error)
	AcceptBinary(*Binary) (bool, error)
}

func visitExprPreOrder(
	visitor ExprVisitor,
	expr Expr,
) error {
	switch expr.Type() {
	case ExprConst:
		if _, err := visitor.AcceptConst(expr.(*Const)); err != nil {
			return err
		}
		return nil

	case ExprRef:
		if _, err := visitor.AcceptRef(expr.(*Ref)); err != nil {
			return err
		}
		return nil

	case ExprCall:
		call := expr.(*Call)
		if goon, err := visitor.AcceptCall(call); err != nil {
			return err
		} else if goon {
			for _, x := range call.Parameters {
				if err := visitExprPreOrder(visitor, x); err != nil {
					return err
				}
			}
		}
		return nil

	case ExprCast:
		cast := expr.(*Cast)
		if goon, err := visitor.AcceptCast(cast); err != nil {
			return err
		} else if goon {
			return visitExprPreOrder(visitor, cast.Operand)
		}
		return nil

	case ExprUnary:
		unary := expr.(*Unary)
		if goon, err := visitor.AcceptUnary(unary); err != nil {
			return err
		} else if goon {
			return visitExprPreOrder(visitor, unary.Operand)
		}
		return nil

	case ExprBinary:
		binary := expr.(*Binary)
		if goon, err := visitor.AcceptBinary(binary); err != nil {
			return err
		} else if goon {
			if err := visitExprPreOrder(visitor, binary.L); err != nil {
				return err
			}
			if err := visitExprPreOrder(visitor, binary.R); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

func VisitExprPreOrder(
	visitor ExprVisitor,
	expr Expr,
) error {
	return visitExprPreOrder(visitor, expr)
}

/* ----------------------------------------------------------------------------
 * Clone
 * ---------------------------------------------------------------------------*/

func cloneExprConst(
	in *Const,
) *Const {
	value := *in
	return &value
}

func cloneExprRef(
	in *Ref,
) *Ref {
	value := *in
	return &value
}

func cloneExprCall(
	in *Call,
) *Call {
	c := &Call{
		Name:     in.Name,
		CodeInfo: in.CodeInfo,
	}
	for _, x := range in.Parameters {
		c.Parameters = append(c.Parameters, cloneExpr(x))
	}
	return c
}

func cloneExprCast(
	in *Cast,
) *Cast {
	return &Cast{
		Operand:  cloneExpr(in.Operand),
		TypeName: in.TypeName,
		CodeInfo: in.CodeInfo,
	}
}

func cloneExprUnary(
	in *Unary,
) *Unary {
	return &Unary{
		Op:       in.Op,
		Operand:  cloneExpr(in.Operand),
		CodeInfo: in.CodeInfo,
	}
}

func cloneExprBinary(
	in *Binary,
) *Binary {
	return &Binary{
		Op:       in.Op,
		L:        cloneExpr(in.L),
		R:        cloneExpr(in.R),
		CodeInfo: in.CodeInfo,
	}
}

func cloneExpr(
	in Expr,
) Expr {
	if in == nil {
		return nil
	}
	switch in.Type() {
	case ExprConst:
		return cloneExprConst(in.(*Const))
	case ExprRef:
		return cloneExprRef(in.(*Ref))
	case ExprCall:
		return cloneExprCall(in.(*Call))
	case ExprCast:
		return cloneExprCast(in.(*Cast))
	case ExprUnary:
		return cloneExprUnary(in.(*Unary))
	case ExprBinary:
		return cloneExprBinary(in.(*Binary))
	default:
		return nil
	}
}

func CloneExpr(in Expr) Expr {
	return cloneExpr(in)
}

/* ----------------------------------------------------------------------------
 * Printing
 * ---------------------------------------------------------------------------*/

func doPrintExprConst(c *Const, buf *bytes.Buffer) {
	switch c.Ty {
	case ConstBool:
		buf.WriteString(fmt.Sprintf("%t", c.Bool))
		break
	case ConstStr:
		buf.WriteString(fmt.Sprintf("%q", c.String))
		break
	case ConstInt:
		buf.WriteString(fmt.Sprintf("%d", c.Int))
		break
	case ConstReal:
		buf.WriteString(fmt.Sprintf("%f", c.Real))
		break
	case ConstInterval:
		buf.WriteString(fmt.Sprintf("interval(%s)", c.Dur))
		break
	case ConstNull:
		buf.WriteString("null")
		break
	default:
		panic("unreachable")
		break
	}
}

func doPrintExprRef(r *Ref, buf *bytes.Buffer) {
	if r.Table != "" {
		buf.WriteString(r.Table)
		buf.WriteString(".")
	}
	buf.WriteString(r.Id)
}

func doPrintExprCall(c *Call, buf *bytes.Buffer) {
	buf.WriteString(c.Name)
	buf.WriteString("(")
	for idx, entry := range c.Parameters {
		if idx > 0 {
			buf.WriteString(",")
		}
		doPrintExpr(entry, buf)
	}
	buf.WriteString(")")
}

func doPrintExprCast(c *Cast, buf *bytes.Buffer) {
	buf.WriteString("cast(")
	doPrintExpr(c.Operand, buf)
	buf.WriteString(" as ")
	buf.WriteString(c.TypeName)
	buf.WriteString(")")
}

func doPrintExprUnary(u *Unary, buf *bytes.Buffer) {
	for _, o := range u.Op {
		switch o {
		case TkAdd:
			buf.WriteString("+")
			break
		case TkSub:
			buf.WriteString("-")
			break
		case TkNot:
			buf.WriteString("not ")
			break
		default:
			panic("unreachable")
			break
		}
	}
	doPrintExpr(u.Operand, buf)
}

func binOpName(op int) string {
	switch op {
	case TkAdd:
		return "+"
	case TkSub:
		return "-"
	case TkMul:
		return "*"
	case TkDiv:
		return "/"
	case TkMod:
		return "%"
	case TkLt:
		return "<"
	case TkLe:
		return "<="
	case TkGt:
		return ">"
	case TkGe:
		return ">="
	case TkEq:
		return "="
	case TkNe:
		return "!="
	case TkAnd:
		return " and "
	case TkOr:
		return " or "
	default:
		panic("unreachable")
	}
}

func doPrintExprBinary(b *Binary, buf *bytes.Buffer) {
	buf.WriteString("(")
	doPrintExpr(b.L, buf)
	buf.WriteString(binOpName(b.Op))
	doPrintExpr(b.R, buf)
	buf.WriteString(")")
}

func doPrintExpr(expr Expr, buf *bytes.Buffer) {
	switch expr.Type() {
	case ExprConst:
		doPrintExprConst(expr.(*Const), buf)
		break

	case ExprRef:
		doPrintExprRef(expr.(*Ref), buf)
		break

	case ExprCall:
		doPrintExprCall(expr.(*Call), buf)
		break

	case ExprCast:
		doPrintExprCast(expr.(*Cast), buf)
		break

	case ExprUnary:
		doPrintExprUnary(expr.(*Unary), buf)
		break

	case ExprBinary:
		doPrintExprBinary(expr.(*Binary), buf)
		break

	default:
		panic("unreachable")
		break
	}
}

func PrintExpr(expr Expr) string {
	if expr == nil {
		return ""
	}
	b := &bytes.Buffer{}
	doPrintExpr(expr, b)
	return b.String()
}

// ----------------------------------------------------------------------------
// Statement printing
// ----------------------------------------------------------------------------

func doPrintStmtProjection(projection *Projection, buf *bytes.Buffer) {
	l := len(projection.ValueList)

	for idx, x := range projection.ValueList {
		switch x.Type() {
		case SelectVarCol:
			col := x.(*Col)

			doPrintExpr(col.Value, buf)

			if col.As != "" {
				buf.WriteString(" as ")
				buf.WriteString(col.As)
			}
			break

		default:
			buf.WriteString("*")
			break
		}

		if idx < l-1 {
			buf.WriteString(", ")
		}
	}
}

func doPrintTableRef(tr *TableRef, buf *bytes.Buffer) {
	buf.WriteString(tr.Name)
	if tr.Alias != "" {
		buf.WriteString(" as ")
		buf.WriteString(tr.Alias)
	}
}

func doPrintStmtFrom(from *From, buf *bytes.Buffer) {
	buf.WriteString("\nfrom ")
	doPrintTableRef(from.Table, buf)

	for _, j := range from.Joins {
		buf.WriteString("\n")
		buf.WriteString(JoinKindName(j.Kind))
		buf.WriteString(" join ")
		doPrintTableRef(j.Table, buf)
		if j.On != nil {
			buf.WriteString(" on ")
			doPrintExpr(j.On, buf)
		}
	}
}

func doPrintStmtWhere(where *Where, buf *bytes.Buffer) {
	buf.WriteString("\nwhere ")
	doPrintExpr(where.Condition, buf)
}

func doPrintStmtGroupBy(gb *GroupBy, buf *bytes.Buffer) {
	buf.WriteString("\ngroup by ")
	l := len(gb.Name)
	for idx, x := range gb.Name {
		doPrintExpr(x, buf)
		if idx < l-1 {
			buf.WriteString(", ")
		}
	}
}

func doPrintStmtOrderBy(orderBy *OrderBy, buf *bytes.Buffer) {
	buf.WriteString("\norder by ")

	l := len(orderBy.Name)

	for idx, x := range orderBy.Name {
		doPrintExpr(x, buf)
		if idx < l-1 {
			buf.WriteString(", ")
		}
	}

	if orderBy.Order == OrderAsc {
		buf.WriteString(" asc")
	} else {
		buf.WriteString(" desc")
	}
}

func doPrintStmtLimit(limit *Limit, buf *bytes.Buffer) {
	buf.WriteString("\nlimit ")
	buf.WriteString(fmt.Sprintf("%d", limit.Limit))
}

func doPrintSelect(s *Select, buf *bytes.Buffer) {
	buf.WriteString("select\n")

	doPrintStmtProjection(s.Projection, buf)
	doPrintStmtFrom(s.From, buf)

	if s.Where != nil {
		doPrintStmtWhere(s.Where, buf)
	}
	if s.GroupBy != nil {
		doPrintStmtGroupBy(s.GroupBy, buf)
	}
	if s.OrderBy != nil {
		doPrintStmtOrderBy(s.OrderBy, buf)
	}
	if s.Limit != nil {
		doPrintStmtLimit(s.Limit, buf)
	}
}

func PrintSelect(s *Select) string {
	b := &bytes.Buffer{}
	doPrintSelect(s, b)
	return b.String()
}

func PrintStatement(stmt Statement) string {
	b := &bytes.Buffer{}
	switch stmt.StmtType() {
	case StmtSelect:
		doPrintSelect(stmt.(*SelectStmt).Body, b)
		break

	case StmtCreateView:
		cv := stmt.(*CreateView)
		b.WriteString(fmt.Sprintf("create view %s as\n", cv.Name))
		doPrintSelect(cv.Body, b)
		break

	case StmtCreateTableAs:
		ct := stmt.(*CreateTableAs)
		b.WriteString(fmt.Sprintf("create table %s as\n", ct.Name))
		doPrintSelect(ct.Body, b)
		break

	case StmtCreateTable:
		ct := stmt.(*CreateTable)
		b.WriteString(fmt.Sprintf("create table %s (", ct.Name))
		for idx, c := range ct.Columns {
			if idx > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s %s", c.Name, c.TypeName))
		}
		b.WriteString(")")
		break

	case StmtInsert:
		is := stmt.(*InsertStmt)
		b.WriteString(fmt.Sprintf("insert into %s\n", is.Sink))
		doPrintSelect(is.Body, b)
		break

	default:
		panic("unreachable")
		break
	}
	return b.String()
}

// exprEqual reports structural equality of 2 bound expressions, used by the
// planner to match projection items against group by keys. Printed form is
// used as the structural fingerprint.
func ExprEqual(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return PrintExpr(a) == PrintExpr(b)
}
