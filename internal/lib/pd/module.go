package pd

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/rcliao/ds-tutor/internal/lib/np"
	"github.com/rcliao/ds-tutor/internal/value"
)

// NewModule returns a fresh "pandas" module value.
func NewModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "pandas",
		Members: starlark.StringDict{
			"DataFrame": starlark.NewBuiltin("DataFrame", newFrame),
			"Series":    starlark.NewBuiltin("Series", newSeries),
			"isna":      starlark.NewBuiltin("isna", isNA(true)),
			"isnull":    starlark.NewBuiltin("isnull", isNA(true)),
			"notna":     starlark.NewBuiltin("notna", isNA(false)),
			"notnull":   starlark.NewBuiltin("notnull", isNA(false)),
			"concat":    starlark.NewBuiltin("concat", concat),
			"NA":        starlark.None,
			"nan":       starlark.Float(math.NaN()),
		},
	}
}

func newFrame(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data starlark.Value = starlark.None
	var columns *starlark.List
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data?", &data, "columns?", &columns); err != nil {
		return nil, err
	}
	var names []string
	if columns != nil {
		for i := 0; i < columns.Len(); i++ {
			s, ok := starlark.AsString(columns.Index(i))
			if !ok {
				return nil, fmt.Errorf("DataFrame: column names must be strings, got %s", columns.Index(i).Type())
			}
			names = append(names, s)
		}
	}
	return FrameFrom(data, names)
}

// FrameFrom builds a table from a dict of columns, a list of row dicts, a
// list of row sequences, or a 2-D array. names, when given, selects and
// orders dict columns or labels positional columns.
func FrameFrom(data starlark.Value, names []string) (*DataFrame, error) {
	switch x := data.(type) {
	case starlark.NoneType:
		cols := make([][]starlark.Value, len(names))
		return NewDataFrame(names, cols, nil)
	case *DataFrame:
		return x.take(x.allRows()), nil
	case *starlark.Dict:
		return frameFromDict(x, names)
	case *np.Array:
		if len(x.Shape()) != 2 {
			return nil, fmt.Errorf("DataFrame: array must be 2-D, got shape %s", value.FormatShape(x.Shape()))
		}
		return frameFromRows(iterValues(x), names)
	case *starlark.List, starlark.Tuple:
		rows := iterValues(x.(starlark.Iterable))
		if len(rows) > 0 {
			if _, ok := rows[0].(*starlark.Dict); ok {
				return frameFromRecords(rows, names)
			}
		}
		return frameFromRows(rows, names)
	}
	return nil, fmt.Errorf("DataFrame constructor not properly called with %s", data.Type())
}

func iterValues(it starlark.Iterable) []starlark.Value {
	iter := it.Iterate()
	defer iter.Done()
	var out []starlark.Value
	var v starlark.Value
	for iter.Next(&v) {
		out = append(out, v)
	}
	return out
}

func frameFromDict(d *starlark.Dict, names []string) (*DataFrame, error) {
	var keys []string
	byName := map[string]starlark.Value{}
	for _, kv := range d.Items() {
		k, ok := starlark.AsString(kv[0])
		if !ok {
			return nil, fmt.Errorf("DataFrame: column names must be strings, got %s", kv[0].Type())
		}
		keys = append(keys, k)
		byName[k] = kv[1]
	}
	if names == nil {
		names = keys
	}
	rows := 0
	scalarOnly := true
	for _, n := range names {
		if it, ok := byName[n].(starlark.Iterable); ok {
			rows = max(rows, len(iterValues(it)))
			scalarOnly = false
		}
	}
	if scalarOnly && len(byName) > 0 {
		rows = 1
	}
	cols := make([][]starlark.Value, len(names))
	for i, n := range names {
		c, ok := byName[n]
		if !ok {
			cols[i] = repeat(starlark.Float(math.NaN()), rows)
			continue
		}
		if it, isSeq := c.(starlark.Iterable); isSeq {
			cols[i] = iterValues(it)
		} else {
			cols[i] = repeat(c, rows)
		}
	}
	return NewDataFrame(names, cols, nil)
}

func repeat(v starlark.Value, n int) []starlark.Value {
	out := make([]starlark.Value, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func frameFromRecords(rows []starlark.Value, names []string) (*DataFrame, error) {
	var order []string
	seen := map[string]bool{}
	for _, r := range rows {
		d, ok := r.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("DataFrame: mixed row types, expected dict got %s", r.Type())
		}
		for _, k := range d.Keys() {
			s, ok := starlark.AsString(k)
			if !ok {
				return nil, fmt.Errorf("DataFrame: column names must be strings, got %s", k.Type())
			}
			if !seen[s] {
				seen[s] = true
				order = append(order, s)
			}
		}
	}
	if names == nil {
		names = order
	}
	cols := make([][]starlark.Value, len(names))
	for i, n := range names {
		cols[i] = make([]starlark.Value, len(rows))
		for r, row := range rows {
			v, found, err := row.(*starlark.Dict).Get(starlark.String(n))
			if err != nil {
				return nil, err
			}
			if !found {
				v = starlark.Float(math.NaN())
			}
			cols[i][r] = v
		}
	}
	return NewDataFrame(names, cols, nil)
}

func frameFromRows(rows []starlark.Value, names []string) (*DataFrame, error) {
	width := 0
	cells := make([][]starlark.Value, len(rows))
	for r, row := range rows {
		it, ok := row.(starlark.Iterable)
		if !ok {
			cells[r] = []starlark.Value{row}
		} else {
			cells[r] = iterValues(it)
		}
		if r == 0 {
			width = len(cells[r])
		} else if len(cells[r]) != width {
			return nil, fmt.Errorf("DataFrame: row %d has %d values, expected %d", r, len(cells[r]), width)
		}
	}
	if names == nil {
		for i := 0; i < width; i++ {
			names = append(names, fmt.Sprint(i))
		}
	}
	if len(rows) > 0 && len(names) != width {
		return nil, fmt.Errorf("DataFrame: %d columns passed, passed data had %d columns", len(names), width)
	}
	cols := make([][]starlark.Value, len(names))
	for c := range cols {
		cols[c] = make([]starlark.Value, len(rows))
		for r := range rows {
			cols[c][r] = cells[r][c]
		}
	}
	return NewDataFrame(names, cols, nil)
}

func newSeries(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data starlark.Value = starlark.NewList(nil)
	var name string
	var index *starlark.List
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data?", &data, "index?", &index, "name?", &name); err != nil {
		return nil, err
	}
	var vals, idx []starlark.Value
	switch x := data.(type) {
	case *Series:
		vals, idx = append(vals, x.values...), append(idx, x.index...)
		if name == "" {
			name = x.name
		}
	case *starlark.Dict:
		for _, kv := range x.Items() {
			idx = append(idx, kv[0])
			vals = append(vals, kv[1])
		}
	case starlark.Iterable:
		vals = iterValues(x)
	default:
		vals = []starlark.Value{data}
	}
	if index != nil {
		idx = iterValues(index)
		if len(idx) != len(vals) {
			return nil, fmt.Errorf("Series: length of index (%d) does not match length of values (%d)", len(idx), len(vals))
		}
	}
	return NewSeries(name, vals, idx), nil
}

func isNA(null bool) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
			return nil, err
		}
		if s, ok := v.(*Series); ok {
			return s.nullMask(null), nil
		}
		return starlark.Bool(value.IsNull(v) == null), nil
	}
}

func concat(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var objs *starlark.List
	ignoreIndex := false
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "objs", &objs, "ignore_index?", &ignoreIndex); err != nil {
		return nil, err
	}
	var names []string
	seen := map[string]bool{}
	var frames []*DataFrame
	for _, v := range iterValues(objs) {
		df, ok := v.(*DataFrame)
		if !ok {
			return nil, fmt.Errorf("concat: cannot concatenate object of type %s", v.Type())
		}
		frames = append(frames, df)
		for _, n := range df.columns {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	cols := make([][]starlark.Value, len(names))
	var index []starlark.Value
	for _, df := range frames {
		index = append(index, df.index...)
		for i, n := range names {
			if s, ok := df.cols[n]; ok {
				cols[i] = append(cols[i], s.values...)
			} else {
				cols[i] = append(cols[i], repeat(starlark.Float(math.NaN()), len(df.index))...)
			}
		}
	}
	if ignoreIndex || index == nil {
		index = rangeIndex(len(index))
	}
	return NewDataFrame(names, cols, index)
}
