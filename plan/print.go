package plan

import (
	"fmt"
	"strings"

	"github.com/rivulet-io/rivulet/sql"
)

// Dump renders the tree one node per line, children indented under their
// parent. The output is deterministic so tests can pin it.
func Dump(n Node) string {
	b := &strings.Builder{}
	dumpNode(n, 0, b)
	return b.String()
}

func indent(level int, b *strings.Builder) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}

func dumpNode(n Node, level int, b *strings.Builder) {
	indent(level, b)

	switch v := n.(type) {
	case *Scan:
		name := v.Name
		if v.Symbol != "" && v.Symbol != v.Name {
			name = fmt.Sprintf("%s as %s", v.Name, v.Symbol)
		}
		b.WriteString(fmt.Sprintf("scan(%s) %s\n", name, v.Def.Print()))
		break

	case *Filter:
		b.WriteString(fmt.Sprintf("filter(%s)\n", sql.PrintExpr(v.Condition)))
		dumpNode(v.Input, level+1, b)
		break

	case *Project:
		items := []string{}
		for _, it := range v.Items {
			items = append(items, fmt.Sprintf("%s=%s", it.Name, sql.PrintExpr(it.Expr)))
		}
		b.WriteString(fmt.Sprintf("project(%s)\n", strings.Join(items, ", ")))
		dumpNode(v.Input, level+1, b)
		break

	case *Join:
		on := ""
		if v.On != nil {
			on = fmt.Sprintf(", on=%s", sql.PrintExpr(v.On))
		}
		b.WriteString(fmt.Sprintf("join(%s%s)\n", sql.JoinKindName(v.Kind), on))
		dumpNode(v.L, level+1, b)
		dumpNode(v.R, level+1, b)
		break

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
			if v.Window.Kind == WindowTumbling {
				window = fmt.Sprintf(", window=tumbling(%s)", v.Window.Size)
			} else {
				window = fmt.Sprintf(
					", window=hopping(%s/%s)", v.Window.Slide, v.Window.Size,
				)
			}
		}
		b.WriteString(fmt.Sprintf(
			"aggregate(keys=[%s], aggs=[%s]%s)\n",
			strings.Join(keys, ", "), strings.Join(aggs, ", "), window,
		))
		dumpNode(v.Input, level+1, b)
		break

	case *Sort:
		keys := []string{}
		for _, k := range v.Keys {
			keys = append(keys, sql.PrintExpr(k))
		}
		dir := "asc"
		if v.Desc {
			dir = "desc"
		}
		b.WriteString(fmt.Sprintf("sort(%s, %s)\n", strings.Join(keys, ", "), dir))
		dumpNode(v.Input, level+1, b)
		break

	case *Limit:
		b.WriteString(fmt.Sprintf("limit(%d)\n", v.Count))
		dumpNode(v.Input, level+1, b)
		break

	default:
		b.WriteString("unknown\n")
		break
	}
}
