package pd

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/rcliao/ds-tutor/internal/value"
)

type builtinFunc = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

var seriesMethods = map[string]*starlark.Builtin{
	"sum":          seriesAggregate("sum"),
	"mean":         seriesAggregate("mean"),
	"min":          seriesAggregate("min"),
	"max":          seriesAggregate("max"),
	"count":        seriesAggregate("count"),
	"std":          seriesAggregate("std"),
	"tolist":       starlark.NewBuiltin("tolist", seriesToList),
	"unique":       starlark.NewBuiltin("unique", seriesUnique),
	"isnull":       starlark.NewBuiltin("isnull", seriesNullMask(true)),
	"isna":         starlark.NewBuiltin("isna", seriesNullMask(true)),
	"notnull":      starlark.NewBuiltin("notnull", seriesNullMask(false)),
	"notna":        starlark.NewBuiltin("notna", seriesNullMask(false)),
	"head":         starlark.NewBuiltin("head", seriesSlice(true)),
	"tail":         starlark.NewBuiltin("tail", seriesSlice(false)),
	"gt":           starlark.NewBuiltin("gt", seriesCompare(syntax.GT)),
	"ge":           starlark.NewBuiltin("ge", seriesCompare(syntax.GE)),
	"lt":           starlark.NewBuiltin("lt", seriesCompare(syntax.LT)),
	"le":           starlark.NewBuiltin("le", seriesCompare(syntax.LE)),
	"eq":           starlark.NewBuiltin("eq", seriesCompare(syntax.EQL)),
	"ne":           starlark.NewBuiltin("ne", seriesCompare(syntax.NEQ)),
	"fillna":       starlark.NewBuiltin("fillna", seriesFillNA),
	"dropna":       starlark.NewBuiltin("dropna", seriesDropNA),
	"value_counts": starlark.NewBuiltin("value_counts", seriesValueCounts),
	"astype":       starlark.NewBuiltin("astype", seriesAsType),
	"apply":        starlark.NewBuiltin("apply", seriesApply),
	"copy":         starlark.NewBuiltin("copy", seriesCopy),
	"sort_values":  starlark.NewBuiltin("sort_values", seriesSortValues),
}

func seriesAggregate(name string) *starlark.Builtin {
	agg := aggregates[name]
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return agg(b.Receiver().(*Series))
	})
}

func seriesToList(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	return starlark.NewList(append([]starlark.Value(nil), s.values...)), nil
}

func seriesUnique(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	return starlark.NewList(distinct(s.values)), nil
}

// distinct keeps the first occurrence of each value, in order.
func distinct(values []starlark.Value) []starlark.Value {
	var out []starlark.Value
	for _, v := range values {
		seen := false
		for _, u := range out {
			if value.Equal(u, v) || (value.IsNull(u) && value.IsNull(v)) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}

func seriesNullMask(null bool) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return b.Receiver().(*Series).nullMask(null), nil
	}
}

func (s *Series) nullMask(null bool) *Series {
	out := make([]starlark.Value, len(s.values))
	for i, v := range s.values {
		out[i] = starlark.Bool(value.IsNull(v) == null)
	}
	return s.withValues(out)
}

func seriesSlice(head bool) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		n := 5
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
			return nil, err
		}
		s := b.Receiver().(*Series)
		return s.take(window(len(s.values), n, head)), nil
	}
}

// window returns the first (head) or last n row positions of a table of
// length total. A negative n drops that many rows from the other end.
func window(total, n int, head bool) []int {
	if n < 0 {
		n = max(total+n, 0)
	}
	n = min(n, total)
	start := 0
	if !head {
		start = total - n
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = start + i
	}
	return rows
}

func seriesCompare(op syntax.Token) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var other starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &other); err != nil {
			return nil, err
		}
		return b.Receiver().(*Series).compare(op, other)
	}
}

func seriesFillNA(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fill starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &fill); err != nil {
		return nil, err
	}
	return b.Receiver().(*Series).fillna(fill), nil
}

func (s *Series) fillna(fill starlark.Value) *Series {
	out := make([]starlark.Value, len(s.values))
	for i, v := range s.values {
		if value.IsNull(v) {
			v = fill
		}
		out[i] = v
	}
	return s.withValues(out)
}

func seriesDropNA(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	var rows []int
	for i, v := range s.values {
		if !value.IsNull(v) {
			rows = append(rows, i)
		}
	}
	return s.take(rows), nil
}

func seriesValueCounts(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	keys := distinct(s.values)
	counts := make([]int, len(keys))
	for _, v := range s.values {
		for i, k := range keys {
			if value.Equal(k, v) {
				counts[i]++
				break
			}
		}
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })
	idx := make([]starlark.Value, 0, len(keys))
	vals := make([]starlark.Value, 0, len(keys))
	for _, i := range order {
		if value.IsNull(keys[i]) {
			continue
		}
		idx = append(idx, keys[i])
		vals = append(vals, starlark.MakeInt(counts[i]))
	}
	return NewSeries("count", vals, idx), nil
}

func seriesAsType(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var dtype string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &dtype); err != nil {
		return nil, err
	}
	return b.Receiver().(*Series).astype(dtype)
}

func (s *Series) astype(dtype string) (*Series, error) {
	out := make([]starlark.Value, len(s.values))
	for i, v := range s.values {
		c, err := convert(v, dtype)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return s.withValues(out), nil
}

func convert(v starlark.Value, dtype string) (starlark.Value, error) {
	switch dtype {
	case "int", Int64, "int32":
		if value.IsNull(v) {
			return nil, fmt.Errorf("cannot convert non-finite values (NA or inf) to integer")
		}
		switch x := v.(type) {
		case starlark.Int:
			return x, nil
		case starlark.Float:
			return starlark.MakeInt64(int64(math.Trunc(float64(x)))), nil
		case starlark.Bool:
			if x {
				return starlark.MakeInt(1), nil
			}
			return starlark.MakeInt(0), nil
		case starlark.String:
			n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid literal for int(): %s", x)
			}
			return starlark.MakeInt64(n), nil
		}
	case "float", Float64, "float32":
		if value.IsNull(v) {
			return starlark.Float(math.NaN()), nil
		}
		switch x := v.(type) {
		case starlark.Int, starlark.Float:
			f, _ := starlark.AsFloat(x)
			return starlark.Float(f), nil
		case starlark.Bool:
			if x {
				return starlark.Float(1), nil
			}
			return starlark.Float(0), nil
		}
	case "str", Object:
		if value.IsNull(v) && dtype == Object {
			return v, nil
		}
		return starlark.String(cell(v)), nil
	case Bool:
		return v.Truth(), nil
	default:
		return nil, fmt.Errorf("data type %q not understood", dtype)
	}
	return nil, fmt.Errorf("cannot convert %s to %s", v.Type(), dtype)
}

func seriesApply(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &fn); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	out := make([]starlark.Value, len(s.values))
	for i, v := range s.values {
		r, err := starlark.Call(thread, fn, starlark.Tuple{v}, nil)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return s.withValues(out), nil
}

func seriesCopy(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	return s.take(window(len(s.values), len(s.values), true)), nil
}

func seriesSortValues(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ascending := true
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ascending?", &ascending); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	rows, err := sortedRows([]*Series{s}, ascending)
	if err != nil {
		return nil, err
	}
	return s.take(rows), nil
}

// sortedRows orders row positions by the given keys. Nulls sort last.
func sortedRows(keys []*Series, ascending bool) ([]int, error) {
	n := 0
	if len(keys) > 0 {
		n = len(keys[0].values)
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	var sortErr error
	sort.SliceStable(rows, func(a, b int) bool {
		for _, k := range keys {
			x, y := k.values[rows[a]], k.values[rows[b]]
			xn, yn := value.IsNull(x), value.IsNull(y)
			switch {
			case xn && yn:
				continue
			case xn:
				return false
			case yn:
				return true
			}
			if value.Equal(x, y) {
				continue
			}
			op := syntax.LT
			if !ascending {
				op = syntax.GT
			}
			less, err := starlark.Compare(op, x, y)
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return less
		}
		return false
	})
	return rows, sortErr
}
