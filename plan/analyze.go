package plan

// The analyze pass. Walks the optimized tree bottom up, compiles every held
// expression against its node's input schema and settles the output schema
// of each node. All type errors surface here.

import (
	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/expr"
	"github.com/rivulet-io/rivulet/sql"
	"github.com/rivulet-io/rivulet/types"
)

func (self *Planner) exprContext(input *types.StructDef) *expr.Context {
	return &expr.Context{
		Provider: self.provider,
		Input:    input,
	}
}

func (self *Planner) compileBool(
	input *types.StructDef,
	e sql.Expr,
	what string,
) (expr.Expression, error) {
	compiled, err := expr.Compile(self.exprContext(input), e)
	if err != nil {
		return nil, err
	}
	ty := compiled.ResultType()
	if ty.Kind != types.KindBool && !ty.IsNull() {
		return nil, cerrors.New(
			cerrors.PlanError, "",
			"%s must be boolean, got %s near %q",
			what, ty.Print(), sql.PrintExpr(e),
		)
	}
	return compiled, nil
}

func (self *Planner) analyze(n Node) error {
	switch v := n.(type) {
	case *Scan:
		return nil

	case *Filter:
		if err := self.analyze(v.Input); err != nil {
			return err
		}
		compiled, err := self.compileBool(
			v.Input.Schema(), v.Condition, "WHERE condition",
		)
		if err != nil {
			return err
		}
		v.Compiled = compiled
		return nil

	case *Join:
		return self.analyzeJoin(v)

	case *Project:
		return self.analyzeProject(v)

	case *Aggregate:
		return self.analyzeAggregate(v)

	case *Sort:
		if err := self.analyze(v.Input); err != nil {
			return err
		}
		for _, k := range v.Keys {
			if _, err := expr.Compile(self.exprContext(v.Input.Schema()), k); err != nil {
				return err
			}
		}
		return nil

	case *Limit:
		return self.analyze(v.Input)

	default:
		panic("unreachable")
		return nil
	}
}

func (self *Planner) analyzeJoin(v *Join) error {
	if err := self.analyze(v.L); err != nil {
		return err
	}
	if err := self.analyze(v.R); err != nil {
		return err
	}

	lFields := v.L.Schema().Fields
	rFields := v.R.Schema().Fields

	// the ON condition sees the plain concatenation, null extension only
	// applies to the join's output
	combined := types.NewStructDef("", nil)
	combined.Fields = append(combined.Fields, lFields...)
	combined.Fields = append(combined.Fields, rFields...)

	if v.On != nil {
		compiled, err := self.compileBool(combined, v.On, "join condition")
		if err != nil {
			return err
		}
		v.Compiled = compiled
	}

	// outer joins null extend the unmatched side
	out := types.NewStructDef("", nil)
	for _, f := range lFields {
		if v.Kind == sql.JoinRight || v.Kind == sql.JoinFull {
			f.Type = f.Type.AsNullable()
		}
		out.Fields = append(out.Fields, f)
	}
	for _, f := range rFields {
		if v.Kind == sql.JoinLeft || v.Kind == sql.JoinFull {
			f.Type = f.Type.AsNullable()
		}
		out.Fields = append(out.Fields, f)
	}

	v.Def = out
	return nil
}

func (self *Planner) analyzeProject(v *Project) error {
	if err := self.analyze(v.Input); err != nil {
		return err
	}

	ctx := self.exprContext(v.Input.Schema())
	out := types.NewStructDef("", nil)

	for idx := range v.Items {
		compiled, err := expr.Compile(ctx, v.Items[idx].Expr)
		if err != nil {
			return err
		}
		v.Items[idx].Compiled = compiled

		alias := ""
		if ref, ok := v.Items[idx].Expr.(*sql.Ref); ok && ref.Id != v.Items[idx].Name {
			alias = ref.Id
		}
		out.Fields = append(out.Fields, types.NewStructField(
			v.Items[idx].Name, alias, compiled.ResultType(),
		))
	}

	v.Def = out
	return nil
}

func aggResultType(fn string, arg types.TypeDef) (types.TypeDef, error) {
	switch fn {
	case "count":
		return types.Data(types.KindInt64, false), nil

	case "sum":
		if !arg.IsNumeric() {
			return types.TypeDef{}, cerrors.New(
				cerrors.PlanError, fn, "sum needs a numeric argument, got %s",
				arg.Print(),
			)
		}
		// sums accumulate in the wide type
		kind := types.KindInt64
		if arg.IsFloat() {
			kind = types.KindFloat64
		}
		return types.Data(kind, arg.Nullable), nil

	case "avg":
		if !arg.IsNumeric() {
			return types.TypeDef{}, cerrors.New(
				cerrors.PlanError, fn, "avg needs a numeric argument, got %s",
				arg.Print(),
			)
		}
		return types.Data(types.KindFloat64, arg.Nullable), nil

	case "min", "max":
		switch arg.Kind {
		case types.KindInt32, types.KindInt64, types.KindFloat32,
			types.KindFloat64, types.KindString, types.KindTimestamp:
			return arg, nil
		default:
			return types.TypeDef{}, cerrors.New(
				cerrors.PlanError, fn,
				"%s needs an orderable argument, got %s", fn, arg.Print(),
			)
		}

	default:
		return types.TypeDef{}, cerrors.New(
			cerrors.UnknownFunction, fn, "aggregate %s is not defined", fn,
		)
	}
}

func (self *Planner) analyzeAggregate(v *Aggregate) error {
	if err := self.analyze(v.Input); err != nil {
		return err
	}

	ctx := self.exprContext(v.Input.Schema())
	out := types.NewStructDef("", nil)

	for idx := range v.Keys {
		compiled, err := expr.Compile(ctx, v.Keys[idx].Expr)
		if err != nil {
			return err
		}
		v.Keys[idx].Compiled = compiled
		out.Fields = append(out.Fields, types.NewStructField(
			v.Keys[idx].Name, "", compiled.ResultType(),
		))
	}

	for idx := range v.Aggs {
		arg := types.Data(types.KindNull, true)

		if v.Aggs[idx].Arg != nil {
			compiled, err := expr.Compile(ctx, v.Aggs[idx].Arg)
			if err != nil {
				return err
			}
			v.Aggs[idx].Compiled = compiled
			arg = compiled.ResultType()
		} else if v.Aggs[idx].Fn != "count" {
			return cerrors.New(
				cerrors.PlanError, v.Aggs[idx].Fn,
				"aggregate %s needs an argument", v.Aggs[idx].Fn,
			)
		}

		ty, err := aggResultType(v.Aggs[idx].Fn, arg)
		if err != nil {
			return err
		}
		out.Fields = append(out.Fields, types.NewStructField(
			v.Aggs[idx].Name, "", ty,
		))
	}

	if v.Window != nil {
		out.Fields = append(out.Fields, types.WindowStruct().Fields...)
	}

	v.Def = out
	return nil
}
