package pipeline

import (
	"fmt"
	"strings"

	"github.com/rivulet-io/rivulet/plan"
	"github.com/rivulet-io/rivulet/sql"
)

// Dump renders an operator subtree one node per line. Shared operators print
// once per reachable path; use the graph dump when identity matters.
func Dump(op SqlOperator) string {
	b := &strings.Builder{}
	dumpOp(op, 0, b)
	return b.String()
}

func indent(level int, b *strings.Builder) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}

// Describe is the one line form of an operator, shared by Dump and the graph
// assembler.
func Describe(op SqlOperator) string {
	switch v := op.(type) {
	case *Source:
		return fmt.Sprintf("source(%s, %s)", v.Name, v.Operator)

	case *Sink:
		return fmt.Sprintf("sink(%s, %s)", v.Name, v.Operator)

	case *Filter:
		return fmt.Sprintf("filter(%s)", sql.PrintExpr(v.Condition))

	case *Projection:
		items := []string{}
		for _, it := range v.Items {
			items = append(items, fmt.Sprintf("%s=%s", it.Name, sql.PrintExpr(it.Expr)))
		}
		return fmt.Sprintf("projection(%s)", strings.Join(items, ", "))

	case *Join:
		on := ""
		if v.On != nil {
			on = fmt.Sprintf(", on=%s", sql.PrintExpr(v.On))
		}
		return fmt.Sprintf("join(%s%s)", sql.JoinKindName(v.Kind), on)

	case *Aggregate:
		keys := []string{}
		for _, k := range v.Keys {
			keys = append(keys, fmt.Sprintf("%s=%s", k.Name, sql.PrintExpr(k.Expr)))
		}
		aggs := []string{}
		for _, a := range v.Aggs {
			arg := "*"
			if a.Arg != nil {
				arg = sql.PrintExpr(a.Arg)
			}
			aggs = append(aggs, fmt.Sprintf("%s=%s(%s)", a.Name, a.Fn, arg))
		}
		window := ""
		if v.Window != nil {
			if v.Window.Kind == plan.WindowTumbling {
				window = fmt.Sprintf(", window=tumbling(%s)", v.Window.Size)
			} else {
				window = fmt.Sprintf(
					", window=hopping(%s/%s)", v.Window.Slide, v.Window.Size,
				)
			}
		}
		return fmt.Sprintf(
			"aggregate(keys=[%s], aggs=[%s]%s)",
			strings.Join(keys, ", "), strings.Join(aggs, ", "), window,
		)

	default:
		return "unknown"
	}
}

func dumpOp(op SqlOperator, level int, b *strings.Builder) {
	indent(level, b)
	b.WriteString(Describe(op))
	b.WriteString("\n")
	for _, in := range op.Inputs() {
		dumpOp(in, level+1, b)
	}
}
