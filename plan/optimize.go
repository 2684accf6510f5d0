package plan

// Plan rewrites. Two passes run between building and type checking: constant
// folding over every held expression, then filter pushdown, which splits a
// WHERE conjunction and sinks each conjunct below the joins it does not
// depend on. Pushing below an outer join would change its null extension, so
// only inner and cross joins are crossed.

import (
	"github.com/rivulet-io/rivulet/sql"
)

func (self *Planner) optimize(n Node) Node {
	n = foldNode(n)
	n = self.pushdown(n)
	return n
}

// ----------------------------------------------------------------------------
// constant folding
// ----------------------------------------------------------------------------

func foldNode(n Node) Node {
	switch v := n.(type) {
	case *Scan:
		break

	case *Filter:
		v.Input = foldNode(v.Input)
		v.Condition = FoldConstants(v.Condition)
		break

	case *Join:
		v.L = foldNode(v.L)
		v.R = foldNode(v.R)
		if v.On != nil {
			v.On = FoldConstants(v.On)
		}
		break

	case *Project:
		v.Input = foldNode(v.Input)
		for idx := range v.Items {
			v.Items[idx].Expr = FoldConstants(v.Items[idx].Expr)
		}
		break

	case *Aggregate:
		v.Input = foldNode(v.Input)
		for idx := range v.Keys {
			v.Keys[idx].Expr = FoldConstants(v.Keys[idx].Expr)
		}
		for idx := range v.Aggs {
			if v.Aggs[idx].Arg != nil {
				v.Aggs[idx].Arg = FoldConstants(v.Aggs[idx].Arg)
			}
		}
		break

	case *Sort:
		v.Input = foldNode(v.Input)
		for idx := range v.Keys {
			v.Keys[idx] = FoldConstants(v.Keys[idx])
		}
		break

	case *Limit:
		v.Input = foldNode(v.Input)
		break

	default:
		break
	}
	return n
}

func isBoolConst(e sql.Expr, value bool) bool {
	c, ok := e.(*sql.Const)
	return ok && c.Ty == sql.ConstBool && c.Bool == value
}

func foldArith(op int, l, r *sql.Const, ci sql.CodeInfo) sql.Expr {
	bothInt := l.Ty == sql.ConstInt && r.Ty == sql.ConstInt

	if bothInt {
		a, b := l.Int, r.Int
		out := &sql.Const{Ty: sql.ConstInt, CodeInfo: ci}
		switch op {
		case sql.TkAdd:
			out.Int = a + b
		case sql.TkSub:
			out.Int = a - b
		case sql.TkMul:
			out.Int = a * b
		case sql.TkDiv, sql.TkMod:
			if b == 0 {
				return nil // leave the runtime error to the runtime
			}
			if op == sql.TkDiv {
				out.Int = a / b
			} else {
				out.Int = a % b
			}
		default:
			return nil
		}
		return out
	}

	// mixed or real operands fold in float
	toReal := func(c *sql.Const) (float64, bool) {
		if c.Ty == sql.ConstReal {
			return c.Real, true
		}
		if c.Ty == sql.ConstInt {
			return float64(c.Int), true
		}
		return 0, false
	}

	a, ok1 := toReal(l)
	b, ok2 := toReal(r)
	if !ok1 || !ok2 {
		return nil
	}

	out := &sql.Const{Ty: sql.ConstReal, CodeInfo: ci}
	switch op {
	case sql.TkAdd:
		out.Real = a + b
	case sql.TkSub:
		out.Real = a - b
	case sql.TkMul:
		out.Real = a * b
	case sql.TkDiv:
		if b == 0 {
			return nil
		}
		out.Real = a / b
	default:
		return nil
	}
	return out
}

func foldCompare(op int, l, r *sql.Const, ci sql.CodeInfo) sql.Expr {
	cmp := 0
	switch {
	case l.Ty == sql.ConstInt && r.Ty == sql.ConstInt:
		switch {
		case l.Int < r.Int:
			cmp = -1
		case l.Int > r.Int:
			cmp = 1
		}
	case l.Ty == sql.ConstStr && r.Ty == sql.ConstStr:
		switch {
		case l.String < r.String:
			cmp = -1
		case l.String > r.String:
			cmp = 1
		}
	case l.Ty == sql.ConstBool && r.Ty == sql.ConstBool:
		if op != sql.TkEq && op != sql.TkNe {
			return nil
		}
		if l.Bool != r.Bool {
			cmp = 1
		}
	case (l.Ty == sql.ConstInt || l.Ty == sql.ConstReal) &&
		(r.Ty == sql.ConstInt || r.Ty == sql.ConstReal):
		a, b := l.Real, r.Real
		if l.Ty == sql.ConstInt {
			a = float64(l.Int)
		}
		if r.Ty == sql.ConstInt {
			b = float64(r.Int)
		}
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	default:
		return nil
	}

	out := &sql.Const{Ty: sql.ConstBool, CodeInfo: ci}
	switch op {
	case sql.TkLt:
		out.Bool = cmp < 0
	case sql.TkLe:
		out.Bool = cmp <= 0
	case sql.TkGt:
		out.Bool = cmp > 0
	case sql.TkGe:
		out.Bool = cmp >= 0
	case sql.TkEq:
		out.Bool = cmp == 0
	case sql.TkNe:
		out.Bool = cmp != 0
	}
	return out
}

// FoldConstants rewrites constant subtrees into their value. Folding is
// conservative: anything that could fail, ie dividing by zero, is left in
// place for the type checker and the runtime to complain about.
func FoldConstants(e sql.Expr) sql.Expr {
	switch e.Type() {
	case sql.ExprConst, sql.ExprRef:
		return e

	case sql.ExprUnary:
		u := e.(*sql.Unary)
		u.Operand = FoldConstants(u.Operand)
		c, ok := u.Operand.(*sql.Const)
		if !ok {
			return u
		}
		for i := len(u.Op) - 1; i >= 0; i-- {
			switch u.Op[i] {
			case sql.TkNot:
				if c.Ty != sql.ConstBool {
					return u
				}
				c = &sql.Const{
					Ty: sql.ConstBool, Bool: !c.Bool, CodeInfo: u.CodeInfo,
				}
				break
			case sql.TkSub:
				switch c.Ty {
				case sql.ConstInt:
					c = &sql.Const{
						Ty: sql.ConstInt, Int: -c.Int, CodeInfo: u.CodeInfo,
					}
					break
				case sql.ConstReal:
					c = &sql.Const{
						Ty: sql.ConstReal, Real: -c.Real, CodeInfo: u.CodeInfo,
					}
					break
				default:
					return u
				}
				break
			case sql.TkAdd:
				if c.Ty != sql.ConstInt && c.Ty != sql.ConstReal {
					return u
				}
				break
			default:
				return u
			}
		}
		return c

	case sql.ExprBinary:
		b := e.(*sql.Binary)
		b.L = FoldConstants(b.L)
		b.R = FoldConstants(b.R)

		// boolean short circuits apply even with one non-constant side
		if b.Op == sql.TkAnd {
			if isBoolConst(b.L, true) {
				return b.R
			}
			if isBoolConst(b.R, true) {
				return b.L
			}
			if isBoolConst(b.L, false) || isBoolConst(b.R, false) {
				return &sql.Const{
					Ty: sql.ConstBool, Bool: false, CodeInfo: b.CodeInfo,
				}
			}
		}
		if b.Op == sql.TkOr {
			if isBoolConst(b.L, false) {
				return b.R
			}
			if isBoolConst(b.R, false) {
				return b.L
			}
			if isBoolConst(b.L, true) || isBoolConst(b.R, true) {
				return &sql.Const{
					Ty: sql.ConstBool, Bool: true, CodeInfo: b.CodeInfo,
				}
			}
		}

		l, okL := b.L.(*sql.Const)
		r, okR := b.R.(*sql.Const)
		if !okL || !okR {
			return b
		}

		var folded sql.Expr
		switch b.Op {
		case sql.TkAdd, sql.TkSub, sql.TkMul, sql.TkDiv, sql.TkMod:
			if l.Ty == sql.ConstInterval && r.Ty == sql.ConstInterval &&
				(b.Op == sql.TkAdd || b.Op == sql.TkSub) {
				d := l.Dur + r.Dur
				if b.Op == sql.TkSub {
					d = l.Dur - r.Dur
				}
				folded = &sql.Const{
					Ty: sql.ConstInterval, Dur: d, CodeInfo: b.CodeInfo,
				}
			} else {
				folded = foldArith(b.Op, l, r, b.CodeInfo)
			}
			break
		case sql.TkLt, sql.TkLe, sql.TkGt, sql.TkGe, sql.TkEq, sql.TkNe:
			folded = foldCompare(b.Op, l, r, b.CodeInfo)
			break
		default:
			break
		}
		if folded == nil {
			return b
		}
		return folded

	case sql.ExprCast:
		c := e.(*sql.Cast)
		c.Operand = FoldConstants(c.Operand)
		return c

	case sql.ExprCall:
		c := e.(*sql.Call)
		for idx := range c.Parameters {
			c.Parameters[idx] = FoldConstants(c.Parameters[idx])
		}
		return c

	default:
		return e
	}
}

// ----------------------------------------------------------------------------
// projection pruning
// ----------------------------------------------------------------------------

// isIdentityProject reports whether the projection passes every input column
// through unchanged, ie a SELECT * over a single table.
func isIdentityProject(p *Project) bool {
	in := p.Input.Schema().Fields
	if len(p.Items) != len(in) {
		return false
	}
	for idx := range p.Items {
		ref, ok := p.Items[idx].Expr.(*sql.Ref)
		if !ok || !ref.Binding.IsColumn() || ref.Binding.Column != idx {
			return false
		}
		if p.Items[idx].Name != in[idx].Name {
			return false
		}
	}
	return true
}

// pruneProjections removes identity projections. Runs after the analyze pass
// because the check compares settled schemas.
func pruneProjections(n Node) Node {
	switch v := n.(type) {
	case *Scan:
		return v

	case *Filter:
		v.Input = pruneProjections(v.Input)
		return v

	case *Join:
		v.L = pruneProjections(v.L)
		v.R = pruneProjections(v.R)
		return v

	case *Project:
		v.Input = pruneProjections(v.Input)
		if isIdentityProject(v) {
			return v.Input
		}
		return v

	case *Aggregate:
		v.Input = pruneProjections(v.Input)
		return v

	case *Sort:
		v.Input = pruneProjections(v.Input)
		return v

	case *Limit:
		v.Input = pruneProjections(v.Input)
		return v

	default:
		return n
	}
}

// ----------------------------------------------------------------------------
// filter pushdown
// ----------------------------------------------------------------------------

// width is the column count of a node's eventual output, computable before
// the analyze pass settles the actual schemas.
func width(n Node) int {
	switch v := n.(type) {
	case *Scan:
		return len(v.Def.Fields)
	case *Filter:
		return width(v.Input)
	case *Join:
		return width(v.L) + width(v.R)
	case *Project:
		return len(v.Items)
	case *Aggregate:
		out := len(v.Keys) + len(v.Aggs)
		if v.Window != nil {
			out += 2
		}
		return out
	case *Sort:
		return width(v.Input)
	case *Limit:
		return width(v.Input)
	default:
		return 0
	}
}

func splitConjunction(e sql.Expr, out []sql.Expr) []sql.Expr {
	if b, ok := e.(*sql.Binary); ok && b.Op == sql.TkAnd {
		out = splitConjunction(b.L, out)
		out = splitConjunction(b.R, out)
		return out
	}
	return append(out, e)
}

func joinConjuncts(list []sql.Expr) sql.Expr {
	var out sql.Expr
	for _, e := range list {
		if out == nil {
			out = e
		} else {
			out = &sql.Binary{
				Op:       sql.TkAnd,
				L:        out,
				R:        e,
				CodeInfo: e.CInfo(),
			}
		}
	}
	return out
}

func (self *Planner) pushdown(n Node) Node {
	switch v := n.(type) {
	case *Scan:
		return v

	case *Filter:
		v.Input = self.pushdown(v.Input)

		// merge a filter chain into one conjunction first
		for {
			child, ok := v.Input.(*Filter)
			if !ok {
				break
			}
			v.Condition = &sql.Binary{
				Op:       sql.TkAnd,
				L:        v.Condition,
				R:        child.Condition,
				CodeInfo: v.Condition.CInfo(),
			}
			v.Input = child.Input
		}

		v.Condition = FoldConstants(v.Condition)
		if isBoolConst(v.Condition, true) {
			return v.Input
		}

		join, ok := v.Input.(*Join)
		if !ok {
			return v
		}
		if join.Kind != sql.JoinInner && join.Kind != sql.JoinCross {
			return v
		}

		leftWidth := width(join.L)
		keep := []sql.Expr{}

		for _, c := range splitConjunction(v.Condition, nil) {
			min, max := exprAccessRange(c)

			switch {
			case min >= 0 && max < leftWidth:
				join.L = self.pushdown(&Filter{
					Input:     join.L,
					Condition: c,
				})
				break

			case min >= leftWidth:
				shiftBindings(c, -leftWidth)
				join.R = self.pushdown(&Filter{
					Input:     join.R,
					Condition: c,
				})
				break

			default:
				keep = append(keep, c)
				break
			}
		}

		if len(keep) == 0 {
			return join
		}
		v.Condition = joinConjuncts(keep)
		return v

	case *Join:
		v.L = self.pushdown(v.L)
		v.R = self.pushdown(v.R)
		return v

	case *Project:
		v.Input = self.pushdown(v.Input)
		return v

	case *Aggregate:
		v.Input = self.pushdown(v.Input)
		return v

	case *Sort:
		v.Input = self.pushdown(v.Input)
		return v

	case *Limit:
		v.Input = self.pushdown(v.Input)
		return v

	default:
		return n
	}
}
