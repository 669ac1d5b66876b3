package pd

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/rcliao/ds-tutor/internal/value"
)

// GroupBy partitions a table's rows by the distinct values of one column.
// Groups are ordered by key, as pandas does by default.
type GroupBy struct {
	df     *DataFrame
	by     string
	keys   []starlark.Value
	groups [][]int
}

var (
	_ starlark.Mapping  = (*GroupBy)(nil)
	_ starlark.HasAttrs = (*GroupBy)(nil)
)

func frameGroupBy(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var by string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "by", &by); err != nil {
		return nil, err
	}
	return newGroupBy(b.Receiver().(*DataFrame), by)
}

func newGroupBy(df *DataFrame, by string) (*GroupBy, error) {
	col, ok := df.cols[by]
	if !ok {
		return nil, fmt.Errorf("groupby: column %q not in table", by)
	}
	g := &GroupBy{df: df, by: by}
	for r, v := range col.values {
		if value.IsNull(v) {
			continue
		}
		found := false
		for i, k := range g.keys {
			if value.Equal(k, v) {
				g.groups[i] = append(g.groups[i], r)
				found = true
				break
			}
		}
		if !found {
			g.keys = append(g.keys, v)
			g.groups = append(g.groups, []int{r})
		}
	}
	order := make([]int, len(g.keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		less, err := starlark.Compare(syntax.LT, g.keys[order[a]], g.keys[order[b]])
		return err == nil && less
	})
	keys := make([]starlark.Value, len(order))
	groups := make([][]int, len(order))
	for i, o := range order {
		keys[i], groups[i] = g.keys[o], g.groups[o]
	}
	g.keys, g.groups = keys, groups
	return g, nil
}

func (g *GroupBy) String() string { return fmt.Sprintf("<GroupBy by=%q groups=%d>", g.by, len(g.keys)) }
func (g *GroupBy) Type() string   { return "GroupBy" }
func (g *GroupBy) Freeze()        { g.df.Freeze() }
func (g *GroupBy) Truth() starlark.Bool {
	return len(g.keys) > 0
}
func (g *GroupBy) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: GroupBy") }

// Get selects one column for aggregation: df.groupby("k")["v"].
func (g *GroupBy) Get(k starlark.Value) (starlark.Value, bool, error) {
	name, ok := starlark.AsString(k)
	if !ok {
		return nil, false, fmt.Errorf("groupby column must be a string, got %s", k.Type())
	}
	if _, ok := g.df.cols[name]; !ok {
		return nil, false, nil
	}
	return &columnGroup{g: g, col: name}, true, nil
}

func (g *GroupBy) Attr(name string) (starlark.Value, error) {
	if name == "size" {
		return starlark.NewBuiltin("size", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			vals := make([]starlark.Value, len(g.groups))
			for i, rows := range g.groups {
				vals[i] = starlark.MakeInt(len(rows))
			}
			return NewSeries("", vals, g.keys), nil
		}), nil
	}
	agg, ok := aggregates[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		var names []string
		var cols [][]starlark.Value
		for _, n := range g.df.columns {
			if n == g.by || !g.df.cols[n].numeric() {
				continue
			}
			vals, err := g.aggregate(n, agg)
			if err != nil {
				return nil, err
			}
			names = append(names, n)
			cols = append(cols, vals)
		}
		return NewDataFrame(names, cols, g.keys)
	}), nil
}

func (g *GroupBy) AttrNames() []string {
	names := []string{"size"}
	for k := range aggregates {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (g *GroupBy) aggregate(col string, agg aggregate) ([]starlark.Value, error) {
	s := g.df.cols[col]
	out := make([]starlark.Value, len(g.groups))
	for i, rows := range g.groups {
		v, err := agg(s.take(rows))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// columnGroup is one column of a GroupBy, reducing to a series keyed by group.
type columnGroup struct {
	g   *GroupBy
	col string
}

var _ starlark.HasAttrs = (*columnGroup)(nil)

func (c *columnGroup) String() string        { return fmt.Sprintf("<SeriesGroupBy %s by=%q>", c.col, c.g.by) }
func (c *columnGroup) Type() string          { return "SeriesGroupBy" }
func (c *columnGroup) Freeze()               { c.g.Freeze() }
func (c *columnGroup) Truth() starlark.Bool  { return c.g.Truth() }
func (c *columnGroup) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: SeriesGroupBy") }

func (c *columnGroup) Attr(name string) (starlark.Value, error) {
	agg, ok := aggregates[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		vals, err := c.g.aggregate(c.col, agg)
		if err != nil {
			return nil, err
		}
		return NewSeries(c.col, vals, c.g.keys), nil
	}), nil
}

func (c *columnGroup) AttrNames() []string {
	names := make([]string, 0, len(aggregates))
	for k := range aggregates {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
