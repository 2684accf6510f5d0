package plan

// The planner. Turns a parsed SELECT into a logical node tree: scans and
// joins from the FROM clause, a filter from WHERE, then either a projection
// or an aggregation depending on GROUP BY and the projection's content.
// ORDER BY and LIMIT plan into their own nodes so that lowering can reject
// them with a message about streams rather than about grammar.

import (
	"fmt"
	"time"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/schema"
	"github.com/rivulet-io/rivulet/sql"
)

type Planner struct {
	provider *schema.Provider
}

func NewPlanner(provider *schema.Provider) *Planner {
	return &Planner{
		provider: provider,
	}
}

func (self *Planner) Provider() *schema.Provider {
	return self.provider
}

// PlanSelect builds, optimizes and type checks the plan of one SELECT.
func (self *Planner) PlanSelect(sel *sql.Select) (Node, error) {
	root, err := self.buildTree(sel)
	if err != nil {
		return nil, err
	}

	root = self.optimize(root)

	if err := self.analyze(root); err != nil {
		return nil, err
	}

	root = pruneProjections(root)

	return root, nil
}

func (self *Planner) buildTree(sel *sql.Select) (Node, error) {
	s := newScope()

	var root Node

	scan, err := self.buildScan(sel.From.Table, s)
	if err != nil {
		return nil, err
	}
	root = scan

	for _, j := range sel.From.Joins {
		rscan, err := self.buildScan(j.Table, s)
		if err != nil {
			return nil, err
		}
		if j.On != nil {
			if err := bindExpr(s, j.On); err != nil {
				return nil, err
			}
		}
		root = &Join{
			L:    root,
			R:    rscan,
			Kind: j.Kind,
			On:   j.On,
		}
	}

	if sel.Where != nil {
		if err := bindExpr(s, sel.Where.Condition); err != nil {
			return nil, err
		}
		root = &Filter{
			Input:     root,
			Condition: sel.Where.Condition,
		}
	}

	keys, window, err := self.splitGroupBy(sel.GroupBy, s)
	if err != nil {
		return nil, err
	}

	aggregated := sel.GroupBy != nil
	for _, v := range sel.Projection.ValueList {
		if col, ok := v.(*sql.Col); ok {
			if hasAggregate(col.Value, self.provider.IsAggregate) {
				aggregated = true
			}
		}
	}

	if aggregated {
		root, err = self.buildAggregate(root, sel.Projection, keys, window, s)
	} else {
		root, err = self.buildProject(root, sel.Projection, s)
	}
	if err != nil {
		return nil, err
	}

	if sel.OrderBy != nil {
		for _, k := range sel.OrderBy.Name {
			if err := bindExpr(s, k); err != nil {
				return nil, err
			}
		}
		root = &Sort{
			Input: root,
			Keys:  sel.OrderBy.Name,
			Desc:  sel.OrderBy.Order == sql.OrderDesc,
		}
	}

	if sel.Limit != nil {
		root = &Limit{
			Input: root,
			Count: sel.Limit.Limit,
		}
	}

	return root, nil
}

func (self *Planner) buildScan(tr *sql.TableRef, s *scope) (*Scan, error) {
	t, ok := self.provider.Table(tr.Name)
	if !ok {
		return nil, cerrors.New(
			cerrors.UnknownTable, tr.Name,
			"table %s is not defined, known tables: %v",
			tr.Name, self.provider.TableNames(),
		)
	}

	if ct, isConnector := t.(*schema.ConnectorTable); isConnector {
		if ct.Type == connector.ConnectionSink {
			return nil, cerrors.New(
				cerrors.UnsupportedConstruct, tr.Name,
				"table %s is a sink, a query cannot read from it", tr.Name,
			)
		}
	}

	if err := s.add(tr.Symbol(), t.Schema()); err != nil {
		return nil, err
	}

	return &Scan{
		Table:  t,
		Name:   tr.Name,
		Symbol: tr.Symbol(),
		Def:    t.Schema(),
	}, nil
}

func intervalArg(e sql.Expr) (time.Duration, bool) {
	c, ok := e.(*sql.Const)
	if !ok || c.Ty != sql.ConstInterval {
		return 0, false
	}
	return c.Dur, true
}

// splitGroupBy separates the window constructor, at most one, from the
// plain grouping keys.
func (self *Planner) splitGroupBy(
	gb *sql.GroupBy,
	s *scope,
) ([]ProjectItem, *WindowSpec, error) {
	if gb == nil {
		return nil, nil, nil
	}

	keys := []ProjectItem{}
	var window *WindowSpec

	for idx, e := range gb.Name {
		if call, ok := e.(*sql.Call); ok && self.provider.IsWindowFunction(call.Name) {
			if window != nil {
				return nil, nil, cerrors.New(
					cerrors.UnsupportedConstruct, call.Name,
					"a query can only group by a single window",
				)
			}
			w, err := self.windowSpec(call)
			if err != nil {
				return nil, nil, err
			}
			window = w
			continue
		}

		if err := bindExpr(s, e); err != nil {
			return nil, nil, err
		}

		name := fmt.Sprintf("_key_%d", idx)
		if ref, ok := e.(*sql.Ref); ok {
			name = ref.Id
		}
		keys = append(keys, ProjectItem{
			Name: name,
			Expr: e,
		})
	}

	return keys, window, nil
}

func (self *Planner) windowSpec(call *sql.Call) (*WindowSpec, error) {
	switch call.Name {
	case "tumble":
		if len(call.Parameters) != 1 {
			return nil, cerrors.New(
				cerrors.PlanError, call.Name, "tumble expects a single interval",
			)
		}
		size, ok := intervalArg(call.Parameters[0])
		if !ok {
			return nil, cerrors.New(
				cerrors.PlanError, call.Name,
				"tumble expects an interval literal, ie tumble(interval '60' second)",
			)
		}
		return &WindowSpec{
			Kind: WindowTumbling,
			Size: size,
		}, nil

	case "hop":
		if len(call.Parameters) != 2 {
			return nil, cerrors.New(
				cerrors.PlanError, call.Name,
				"hop expects a slide and a size interval",
			)
		}
		slide, ok1 := intervalArg(call.Parameters[0])
		size, ok2 := intervalArg(call.Parameters[1])
		if !ok1 || !ok2 {
			return nil, cerrors.New(
				cerrors.PlanError, call.Name,
				"hop expects interval literals, ie hop(interval '10' second, interval '60' second)",
			)
		}
		if size%slide != 0 {
			return nil, cerrors.New(
				cerrors.PlanError, call.Name,
				"hop size must be a multiple of the slide",
			)
		}
		return &WindowSpec{
			Kind:  WindowHopping,
			Size:  size,
			Slide: slide,
		}, nil

	default:
		panic("unreachable")
		return nil, nil
	}
}

// uniquifier hands out output column names, suffixing duplicates.
type uniquifier struct {
	seen map[string]int
}

func newUniquifier() *uniquifier {
	return &uniquifier{seen: make(map[string]int)}
}

func (self *uniquifier) name(want string) string {
	n, dup := self.seen[want]
	if !dup {
		self.seen[want] = 1
		return want
	}
	self.seen[want] = n + 1
	return fmt.Sprintf("%s_%d", want, n)
}

func (self *Planner) buildProject(
	input Node,
	projection *sql.Projection,
	s *scope,
) (Node, error) {
	items := []ProjectItem{}
	names := newUniquifier()

	for idx, v := range projection.ValueList {
		switch v.Type() {
		case sql.SelectVarStar:
			// expand to every input column, in schema order
			for col, f := range s.combined.Fields {
				ref := &sql.Ref{Id: f.Name}
				ref.Binding.Set(col)
				items = append(items, ProjectItem{
					Name: names.name(f.Name),
					Expr: ref,
				})
			}
			break

		case sql.SelectVarCol:
			col := v.(*sql.Col)
			if err := bindExpr(s, col.Value); err != nil {
				return nil, err
			}

			name := col.As
			if name == "" {
				if ref, ok := col.Value.(*sql.Ref); ok {
					name = ref.Id
				} else {
					name = fmt.Sprintf("_col_%d", idx)
				}
			}
			items = append(items, ProjectItem{
				Name: names.name(name),
				Expr: col.Value,
			})
			break

		default:
			panic("unreachable")
			break
		}
	}

	return &Project{
		Input: input,
		Items: items,
	}, nil
}

func (self *Planner) buildAggregate(
	input Node,
	projection *sql.Projection,
	keys []ProjectItem,
	window *WindowSpec,
	s *scope,
) (Node, error) {
	if projection.HasStar() {
		return nil, cerrors.New(
			cerrors.PlanError, "*",
			"SELECT * cannot be combined with aggregation",
		)
	}

	aggs := []AggItem{}
	names := newUniquifier()

	for _, v := range projection.ValueList {
		col := v.(*sql.Col)
		value := col.Value

		if hasAggregate(value, self.provider.IsAggregate) {
			call, ok := value.(*sql.Call)
			if !ok || !self.provider.IsAggregate(call.Name) {
				return nil, cerrors.New(
					cerrors.PlanError, "",
					"an aggregate must be the projection itself, "+
						"expressions over aggregates are not supported",
				)
			}

			item, err := self.buildAggItem(call, col.As, s)
			if err != nil {
				return nil, err
			}
			item.Name = names.name(item.Name)
			aggs = append(aggs, *item)
			continue
		}

		// window bound columns materialize out of the window itself
		if window != nil {
			if ref, ok := value.(*sql.Ref); ok && ref.Table == "" &&
				(ref.Id == "window_start" || ref.Id == "window_end") {
				continue
			}
		}

		// everything else must be one of the grouping keys
		if err := bindExpr(s, value); err != nil {
			return nil, err
		}

		matched := false
		for idx := range keys {
			if sql.ExprEqual(keys[idx].Expr, value) {
				if col.As != "" {
					keys[idx].Name = col.As
				}
				matched = true
				break
			}
		}
		if !matched {
			return nil, cerrors.New(
				cerrors.PlanError, "",
				"projection %q is neither an aggregate nor a grouping key",
				sql.PrintExpr(value),
			)
		}
	}

	for idx := range keys {
		keys[idx].Name = names.name(keys[idx].Name)
	}

	return &Aggregate{
		Input:  input,
		Keys:   keys,
		Aggs:   aggs,
		Window: window,
	}, nil
}

func (self *Planner) buildAggItem(
	call *sql.Call,
	alias string,
	s *scope,
) (*AggItem, error) {
	var arg sql.Expr

	switch len(call.Parameters) {
	case 0:
		if call.Name != "count" {
			return nil, cerrors.New(
				cerrors.PlanError, call.Name,
				"%s(*) is not defined, only count(*) is", call.Name,
			)
		}
		break

	case 1:
		arg = call.Parameters[0]
		if hasAggregate(arg, self.provider.IsAggregate) {
			return nil, cerrors.New(
				cerrors.PlanError, call.Name,
				"aggregates cannot nest",
			)
		}
		if err := bindExpr(s, arg); err != nil {
			return nil, err
		}
		break

	default:
		return nil, cerrors.New(
			cerrors.PlanError, call.Name,
			"aggregate %s expects a single argument", call.Name,
		)
	}

	name := alias
	if name == "" {
		name = call.Name
	}

	return &AggItem{
		Name: name,
		Fn:   call.Name,
		Arg:  arg,
	}, nil
}
