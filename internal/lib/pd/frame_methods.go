package pd

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/value"
)

var frameMethods = map[string]*starlark.Builtin{
	"head":        starlark.NewBuiltin("head", frameSlice(true)),
	"tail":        starlark.NewBuiltin("tail", frameSlice(false)),
	"dropna":      starlark.NewBuiltin("dropna", frameDropNA),
	"fillna":      starlark.NewBuiltin("fillna", frameFillNA),
	"isnull":      starlark.NewBuiltin("isnull", frameNullMask(true)),
	"isna":        starlark.NewBuiltin("isna", frameNullMask(true)),
	"notnull":     starlark.NewBuiltin("notnull", frameNullMask(false)),
	"notna":       starlark.NewBuiltin("notna", frameNullMask(false)),
	"sort_values": starlark.NewBuiltin("sort_values", frameSortValues),
	"sum":         frameAggregate("sum"),
	"mean":        frameAggregate("mean"),
	"min":         frameAggregate("min"),
	"max":         frameAggregate("max"),
	"count":       frameAggregate("count"),
	"std":         frameAggregate("std"),
	"to_dict":     starlark.NewBuiltin("to_dict", frameToDict),
	"copy":        starlark.NewBuiltin("copy", frameCopy),
	"drop":        starlark.NewBuiltin("drop", frameDrop),
	"rename":      starlark.NewBuiltin("rename", frameRename),
	"reset_index": starlark.NewBuiltin("reset_index", frameResetIndex),
	"groupby":     starlark.NewBuiltin("groupby", frameGroupBy),
}

func frameSlice(head bool) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		n := 5
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
			return nil, err
		}
		df := b.Receiver().(*DataFrame)
		return df.take(window(len(df.index), n, head)), nil
	}
}

func frameDropNA(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var subset *starlark.List
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "subset?", &subset); err != nil {
		return nil, err
	}
	df := b.Receiver().(*DataFrame)
	names := df.columns
	if subset != nil {
		var err error
		if names, err = columnNames(df, subset); err != nil {
			return nil, err
		}
	}
	var rows []int
	for r := range df.index {
		keep := true
		for _, n := range names {
			if value.IsNull(df.cols[n].values[r]) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, r)
		}
	}
	return df.take(rows), nil
}

func columnNames(df *DataFrame, list *starlark.List) ([]string, error) {
	names := make([]string, list.Len())
	for i := range names {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("column names must be strings, got %s", list.Index(i).Type())
		}
		if _, ok := df.cols[s]; !ok {
			return nil, fmt.Errorf("column %q not in table", s)
		}
		names[i] = s
	}
	return names, nil
}

func frameFillNA(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fill starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &fill); err != nil {
		return nil, err
	}
	df := b.Receiver().(*DataFrame)
	out := df.take(df.allRows())
	for _, n := range out.columns {
		f := fill
		if d, ok := fill.(*starlark.Dict); ok {
			v, found, err := d.Get(starlark.String(n))
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			f = v
		}
		out.cols[n] = out.cols[n].fillna(f)
	}
	return out, nil
}

func frameNullMask(null bool) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		df := b.Receiver().(*DataFrame)
		out := df.take(df.allRows())
		for _, n := range out.columns {
			out.cols[n] = out.cols[n].nullMask(null)
		}
		return out, nil
	}
}

func frameSortValues(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var by starlark.Value
	ascending := true
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "by", &by, "ascending?", &ascending); err != nil {
		return nil, err
	}
	df := b.Receiver().(*DataFrame)
	var names []string
	switch x := by.(type) {
	case starlark.String:
		names = []string{string(x)}
	case *starlark.List:
		var err error
		if names, err = columnNames(df, x); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("sort_values: by must be a column name or a list of names")
	}
	keys := make([]*Series, len(names))
	for i, n := range names {
		s, ok := df.cols[n]
		if !ok {
			return nil, fmt.Errorf("sort_values: column %q not in table", n)
		}
		keys[i] = s
	}
	rows, err := sortedRows(keys, ascending)
	if err != nil {
		return nil, err
	}
	return df.take(rows), nil
}

// frameAggregate reduces every column to one value and returns the results
// as a series indexed by column name. Non-numeric columns are skipped except
// by count, min and max.
func frameAggregate(name string) *starlark.Builtin {
	agg := aggregates[name]
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		df := b.Receiver().(*DataFrame)
		var idx, vals []starlark.Value
		for _, n := range df.columns {
			s := df.cols[n]
			if !s.numeric() && name != "count" && name != "min" && name != "max" {
				continue
			}
			v, err := agg(s)
			if err != nil {
				return nil, err
			}
			idx = append(idx, starlark.String(n))
			vals = append(vals, v)
		}
		return NewSeries("", vals, idx), nil
	})
}

func frameToDict(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	orient := "dict"
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "orient?", &orient); err != nil {
		return nil, err
	}
	df := b.Receiver().(*DataFrame)
	switch orient {
	case "records":
		rows := make([]starlark.Value, len(df.index))
		for r := range rows {
			d := starlark.NewDict(len(df.columns))
			for _, n := range df.columns {
				if err := d.SetKey(starlark.String(n), df.cols[n].values[r]); err != nil {
					return nil, err
				}
			}
			rows[r] = d
		}
		return starlark.NewList(rows), nil
	case "list", "dict":
		out := starlark.NewDict(len(df.columns))
		for _, n := range df.columns {
			s := df.cols[n]
			var col starlark.Value
			if orient == "list" {
				col = starlark.NewList(append([]starlark.Value(nil), s.values...))
			} else {
				d := starlark.NewDict(len(s.values))
				for i, v := range s.values {
					if err := d.SetKey(s.index[i], v); err != nil {
						return nil, err
					}
				}
				col = d
			}
			if err := out.SetKey(starlark.String(n), col); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("to_dict: orient %q not understood", orient)
}

func frameCopy(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	df := b.Receiver().(*DataFrame)
	return df.take(df.allRows()), nil
}

func frameDrop(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var columns starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "columns", &columns); err != nil {
		return nil, err
	}
	df := b.Receiver().(*DataFrame)
	drop := map[string]bool{}
	switch x := columns.(type) {
	case starlark.String:
		drop[string(x)] = true
	case *starlark.List:
		names, err := columnNames(df, x)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			drop[n] = true
		}
	default:
		return nil, fmt.Errorf("drop: columns must be a name or a list of names")
	}
	var keep []string
	for _, n := range df.columns {
		if !drop[n] {
			keep = append(keep, n)
		}
	}
	if len(keep)+len(drop) != len(df.columns) {
		return nil, fmt.Errorf("drop: some columns not found in table")
	}
	return df.selectColumns(keep), nil
}

func frameRename(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var mapping *starlark.Dict
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "columns", &mapping); err != nil {
		return nil, err
	}
	df := b.Receiver().(*DataFrame)
	out := &DataFrame{cols: make(map[string]*Series, len(df.columns)), index: df.index}
	for _, n := range df.columns {
		newName := n
		if v, found, err := mapping.Get(starlark.String(n)); err != nil {
			return nil, err
		} else if found {
			s, ok := starlark.AsString(v)
			if !ok {
				return nil, fmt.Errorf("rename: new name for %q must be a string", n)
			}
			newName = s
		}
		if _, dup := out.cols[newName]; dup {
			return nil, fmt.Errorf("rename: duplicate column name %q", newName)
		}
		s := df.cols[n].take(df.allRows())
		s.name = newName
		out.columns = append(out.columns, newName)
		out.cols[newName] = s
	}
	return out, nil
}

func frameResetIndex(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	drop := false
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "drop?", &drop); err != nil {
		return nil, err
	}
	df := b.Receiver().(*DataFrame)
	names := df.Columns()
	cols := make([][]starlark.Value, 0, len(names)+1)
	if !drop {
		names = append([]string{"index"}, names...)
		cols = append(cols, append([]starlark.Value(nil), df.index...))
	}
	for _, n := range df.columns {
		cols = append(cols, append([]starlark.Value(nil), df.cols[n].values...))
	}
	return NewDataFrame(names, cols, nil)
}
