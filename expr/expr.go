package expr

// The expression compiler. Takes a resolved sql.Expr, ie one whose column
// references carry bindings into the input schema, and produces a typed
// expression tree. Typing is where nullability is decided: a result is
// non-nullable only when every operand is statically non-nullable.

import (
	"fmt"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/schema"
	"github.com/rivulet-io/rivulet/sql"
	"github.com/rivulet-io/rivulet/types"
)

const (
	ExpColumnRef = iota
	ExpLiteral
	ExpUnary
	ExpBinary
	ExpCast
	ExpCall
)

type Expression interface {
	Type() int
	ResultType() types.TypeDef
	Print() string
}

type ColumnRef struct {
	Column int
	Field  types.StructField
}

type Literal struct {
	Const *sql.Const
	Ty    types.TypeDef
}

type UnaryExpr struct {
	Op      []int
	Operand Expression
	Ty      types.TypeDef
}

type BinaryExpr struct {
	Op int
	L  Expression
	R  Expression
	Ty types.TypeDef
}

type CastExpr struct {
	Operand Expression
	Ty      types.TypeDef
}

type CallExpr struct {
	Name string
	Fn   *schema.FunctionDef
	Args []Expression
	Ty   types.TypeDef
}

func (self *ColumnRef) Type() int                  { return ExpColumnRef }
func (self *ColumnRef) ResultType() types.TypeDef  { return self.Field.Type }
func (self *Literal) Type() int                    { return ExpLiteral }
func (self *Literal) ResultType() types.TypeDef    { return self.Ty }
func (self *UnaryExpr) Type() int                  { return ExpUnary }
func (self *UnaryExpr) ResultType() types.TypeDef  { return self.Ty }
func (self *BinaryExpr) Type() int                 { return ExpBinary }
func (self *BinaryExpr) ResultType() types.TypeDef { return self.Ty }
func (self *CastExpr) Type() int                   { return ExpCast }
func (self *CastExpr) ResultType() types.TypeDef   { return self.Ty }
func (self *CallExpr) Type() int                   { return ExpCall }
func (self *CallExpr) ResultType() types.TypeDef   { return self.Ty }

func (self *ColumnRef) Print() string {
	return fmt.Sprintf("$%d:%s", self.Column, self.Field.Name)
}

func (self *Literal) Print() string {
	return sql.PrintExpr(self.Const)
}

func (self *UnaryExpr) Print() string {
	out := ""
	for _, op := range self.Op {
		switch op {
		case sql.TkSub:
			out += "-"
			break
		case sql.TkNot:
			out += "not "
			break
		default:
			break
		}
	}
	return out + self.Operand.Print()
}

func (self *BinaryExpr) Print() string {
	op := map[int]string{
		sql.TkAdd: "+", sql.TkSub: "-", sql.TkMul: "*", sql.TkDiv: "/",
		sql.TkMod: "%", sql.TkLt: "<", sql.TkLe: "<=", sql.TkGt: ">",
		sql.TkGe: ">=", sql.TkEq: "=", sql.TkNe: "!=",
		sql.TkAnd: " and ", sql.TkOr: " or ",
	}[self.Op]
	return fmt.Sprintf("(%s%s%s)", self.L.Print(), op, self.R.Print())
}

func (self *CastExpr) Print() string {
	return fmt.Sprintf("cast(%s as %s)", self.Operand.Print(), self.Ty.Print())
}

func (self *CallExpr) Print() string {
	out := self.Name + "("
	for idx, a := range self.Args {
		if idx > 0 {
			out += ","
		}
		out += a.Print()
	}
	return out + ")"
}

// ----------------------------------------------------------------------------
// Compilation
// ----------------------------------------------------------------------------

// Context carries what compilation resolves against: the catalog for
// function lookup and the flattened input schema column references index
// into.
type Context struct {
	Provider *schema.Provider
	Input    *types.StructDef
}

func errAt(kind int, name string, where sql.CodeInfo, f string, args ...interface{}) error {
	e := cerrors.New(kind, name, f, args...)
	if where.Snippet != "" {
		e.Msg = fmt.Sprintf("%s, near %q", e.Msg, where.Snippet)
	}
	return e
}

func literalType(c *sql.Const) types.TypeDef {
	switch c.Ty {
	case sql.ConstInt:
		return types.Data(types.KindInt64, false)
	case sql.ConstReal:
		return types.Data(types.KindFloat64, false)
	case sql.ConstStr:
		return types.Data(types.KindString, false)
	case sql.ConstBool:
		return types.Data(types.KindBool, false)
	case sql.ConstInterval:
		return types.Data(types.KindInterval, false)
	default:
		return types.Data(types.KindNull, true)
	}
}

func numericRank(kind int) int {
	switch kind {
	case types.KindInt32:
		return 1
	case types.KindInt64:
		return 2
	case types.KindFloat32:
		return 3
	case types.KindFloat64:
		return 4
	default:
		return 0
	}
}

// Promote picks the wider of 2 numeric kinds.
func Promote(a, b int) int {
	if numericRank(a) >= numericRank(b) {
		return a
	}
	return b
}

func comparable2(a, b types.TypeDef) bool {
	if a.IsNull() || b.IsNull() {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return a.Kind == b.Kind && a.Kind != types.KindStruct
}

func Compile(ctx *Context, e sql.Expr) (Expression, error) {
	switch e.Type() {
	case sql.ExprConst:
		c := e.(*sql.Const)
		return &Literal{
			Const: c,
			Ty:    literalType(c),
		}, nil

	case sql.ExprRef:
		return compileRef(ctx, e.(*sql.Ref))

	case sql.ExprUnary:
		return compileUnary(ctx, e.(*sql.Unary))

	case sql.ExprBinary:
		return compileBinary(ctx, e.(*sql.Binary))

	case sql.ExprCast:
		return compileCast(ctx, e.(*sql.Cast))

	case sql.ExprCall:
		return compileCall(ctx, e.(*sql.Call))

	default:
		panic("unreachable")
		return nil, nil
	}
}

func compileRef(ctx *Context, r *sql.Ref) (Expression, error) {
	if !r.Binding.IsColumn() {
		return nil, errAt(
			cerrors.PlanError, r.Id, r.CodeInfo,
			"column %s has not been resolved", r.Id,
		)
	}

	col := r.Binding.Column
	if col < 0 || col >= len(ctx.Input.Fields) {
		return nil, errAt(
			cerrors.PlanError, r.Id, r.CodeInfo,
			"column %s binds outside of the input schema", r.Id,
		)
	}

	return &ColumnRef{
		Column: col,
		Field:  ctx.Input.Fields[col],
	}, nil
}

func compileUnary(ctx *Context, u *sql.Unary) (Expression, error) {
	operand, err := Compile(ctx, u.Operand)
	if err != nil {
		return nil, err
	}

	ty := operand.ResultType()

	for i := len(u.Op) - 1; i >= 0; i-- {
		switch u.Op[i] {
		case sql.TkAdd, sql.TkSub:
			if !ty.IsNumeric() && !ty.IsNull() {
				return nil, errAt(
					cerrors.PlanError, "", u.CodeInfo,
					"unary +/- applies to a numeric operand, got %s", ty.Print(),
				)
			}
			break

		case sql.TkNot:
			if ty.Kind != types.KindBool && !ty.IsNull() {
				return nil, errAt(
					cerrors.PlanError, "", u.CodeInfo,
					"NOT applies to a boolean operand, got %s", ty.Print(),
				)
			}
			ty = types.Data(types.KindBool, ty.Nullable || ty.IsNull())
			break

		default:
			panic("unreachable")
			break
		}
	}

	return &UnaryExpr{
		Op:      u.Op,
		Operand: operand,
		Ty:      ty,
	}, nil
}

func compileBinary(ctx *Context, b *sql.Binary) (Expression, error) {
	l, err := Compile(ctx, b.L)
	if err != nil {
		return nil, err
	}
	r, err := Compile(ctx, b.R)
	if err != nil {
		return nil, err
	}

	lt := l.ResultType()
	rt := r.ResultType()

	nullable := lt.Nullable || rt.Nullable || lt.IsNull() || rt.IsNull()

	var ty types.TypeDef

	switch b.Op {
	case sql.TkAdd, sql.TkSub, sql.TkMul, sql.TkDiv, sql.TkMod:
		// event time arithmetic, ie shifting a timestamp by an interval
		if b.Op == sql.TkAdd || b.Op == sql.TkSub {
			if lt.Kind == types.KindTimestamp && rt.Kind == types.KindInterval {
				ty = types.Data(types.KindTimestamp, nullable)
				break
			}
			if b.Op == sql.TkAdd &&
				lt.Kind == types.KindInterval && rt.Kind == types.KindTimestamp {
				ty = types.Data(types.KindTimestamp, nullable)
				break
			}
			if lt.Kind == types.KindInterval && rt.Kind == types.KindInterval {
				ty = types.Data(types.KindInterval, nullable)
				break
			}
		}
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return nil, errAt(
				cerrors.PlanError, "", b.CodeInfo,
				"arithmetic needs numeric operands, got %s and %s",
				lt.Print(), rt.Print(),
			)
		}
		if b.Op == sql.TkMod && (!lt.IsIntegral() || !rt.IsIntegral()) {
			return nil, errAt(
				cerrors.PlanError, "", b.CodeInfo,
				"modulo needs integral operands, got %s and %s",
				lt.Print(), rt.Print(),
			)
		}
		ty = types.Data(Promote(lt.Kind, rt.Kind), nullable)
		break

	case sql.TkLt, sql.TkLe, sql.TkGt, sql.TkGe, sql.TkEq, sql.TkNe:
		if !comparable2(lt, rt) {
			return nil, errAt(
				cerrors.PlanError, "", b.CodeInfo,
				"cannot compare %s against %s", lt.Print(), rt.Print(),
			)
		}
		// a comparison against null is null, hence nullable
		ty = types.Data(types.KindBool, nullable)
		break

	case sql.TkAnd, sql.TkOr:
		if (lt.Kind != types.KindBool && !lt.IsNull()) ||
			(rt.Kind != types.KindBool && !rt.IsNull()) {
			return nil, errAt(
				cerrors.PlanError, "", b.CodeInfo,
				"AND/OR need boolean operands, got %s and %s",
				lt.Print(), rt.Print(),
			)
		}
		ty = types.Data(types.KindBool, nullable)
		break

	default:
		panic("unreachable")
		break
	}

	return &BinaryExpr{
		Op: b.Op,
		L:  l,
		R:  r,
		Ty: ty,
	}, nil
}

// The cast compatibility table. Anything casts to itself and to string;
// numerics cast between each other; string casts to every primitive it can
// be parsed into.
func castable(from types.TypeDef, to types.TypeDef) bool {
	if from.IsNull() {
		return true
	}
	if from.Kind == to.Kind {
		return true
	}
	if to.Kind == types.KindString && from.Kind != types.KindStruct {
		return true
	}
	if from.IsNumeric() && to.IsNumeric() {
		return true
	}
	if from.Kind == types.KindString {
		switch to.Kind {
		case types.KindInt32, types.KindInt64, types.KindFloat32,
			types.KindFloat64, types.KindBool, types.KindTimestamp:
			return true
		default:
			return false
		}
	}
	return false
}

func compileCast(ctx *Context, c *sql.Cast) (Expression, error) {
	operand, err := Compile(ctx, c.Operand)
	if err != nil {
		return nil, err
	}

	target, ok := types.FromSQLName(c.TypeName)
	if !ok {
		return nil, errAt(
			cerrors.UnsupportedType, c.TypeName, c.CodeInfo,
			"unknown type %s in CAST", c.TypeName,
		)
	}

	from := operand.ResultType()
	if !castable(from, target) {
		return nil, errAt(
			cerrors.UnsupportedCast, c.TypeName, c.CodeInfo,
			"cannot cast %s to %s", from.Print(), target.Print(),
		)
	}

	// casting a string to a narrower type can fail at runtime, the result
	// is nullable even for a non-nullable operand
	target.Nullable = from.Nullable || from.IsNull() ||
		(from.Kind == types.KindString && target.Kind != types.KindString)

	return &CastExpr{
		Operand: operand,
		Ty:      target,
	}, nil
}

func argCompatible(arg types.TypeDef, want types.TypeDef) bool {
	if arg.IsNull() {
		return true
	}
	if arg.Kind == want.Kind {
		return true
	}
	return arg.IsNumeric() && want.IsNumeric()
}

func compileCall(ctx *Context, c *sql.Call) (Expression, error) {
	if ctx.Provider.IsAggregate(c.Name) {
		return nil, errAt(
			cerrors.PlanError, c.Name, c.CodeInfo,
			"aggregate function %s is not allowed here", c.Name,
		)
	}
	if ctx.Provider.IsWindowFunction(c.Name) {
		return nil, errAt(
			cerrors.UnsupportedConstruct, c.Name, c.CodeInfo,
			"window function %s can only appear in GROUP BY", c.Name,
		)
	}

	fn := ctx.Provider.Function(c.Name)
	if fn == nil {
		return nil, errAt(
			cerrors.UnknownFunction, c.Name, c.CodeInfo,
			"function %s is not defined", c.Name,
		)
	}

	if len(c.Parameters) != len(fn.Args) {
		return nil, errAt(
			cerrors.PlanError, c.Name, c.CodeInfo,
			"function %s expects %d arguments, got %d",
			c.Name, len(fn.Args), len(c.Parameters),
		)
	}

	args := []Expression{}
	nullable := fn.Ret.Nullable

	for idx, p := range c.Parameters {
		a, err := Compile(ctx, p)
		if err != nil {
			return nil, err
		}

		at := a.ResultType()
		if !argCompatible(at, fn.Args[idx]) {
			return nil, errAt(
				cerrors.PlanError, c.Name, c.CodeInfo,
				"argument %d of %s expects %s, got %s",
				idx+1, c.Name, fn.Args[idx].Print(), at.Print(),
			)
		}
		if at.Nullable || at.IsNull() {
			nullable = true
		}

		args = append(args, a)
	}

	ty := fn.Ret
	ty.Nullable = nullable

	return &CallExpr{
		Name: c.Name,
		Fn:   fn,
		Args: args,
		Ty:   ty,
	}, nil
}
