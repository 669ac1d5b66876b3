package pd

import (
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/lib/np"
	"github.com/rcliao/ds-tutor/internal/value"
)

// DataFrame is a table of equal-length named columns sharing one row index.
type DataFrame struct {
	columns []string
	cols    map[string]*Series
	index   []starlark.Value
	frozen  bool
}

var (
	_ starlark.HasSetKey = (*DataFrame)(nil)
	_ starlark.Sequence  = (*DataFrame)(nil)
	_ starlark.HasAttrs  = (*DataFrame)(nil)
)

// NewDataFrame builds a table from named columns of equal length.
// A nil index means 0..n-1.
func NewDataFrame(names []string, columns [][]starlark.Value, index []starlark.Value) (*DataFrame, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("%d column names for %d columns", len(names), len(columns))
	}
	rows := len(index)
	if len(columns) > 0 {
		rows = len(columns[0])
	}
	if index == nil {
		index = rangeIndex(rows)
	}
	df := &DataFrame{cols: make(map[string]*Series, len(names)), index: index}
	for i, name := range names {
		if len(columns[i]) != rows {
			return nil, fmt.Errorf("all arrays must be of the same length: column %q has %d values, expected %d", name, len(columns[i]), rows)
		}
		if _, dup := df.cols[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		df.columns = append(df.columns, name)
		df.cols[name] = NewSeries(name, columns[i], index)
	}
	if len(index) != rows {
		return nil, fmt.Errorf("index has %d labels for %d rows", len(index), rows)
	}
	return df, nil
}

// Rows is the number of rows.
func (df *DataFrame) Rows() int { return len(df.index) }

// Shape returns (rows, columns).
func (df *DataFrame) Shape() []int { return []int{len(df.index), len(df.columns)} }

// Columns returns the column names in order.
func (df *DataFrame) Columns() []string { return append([]string(nil), df.columns...) }

// Column returns a column by name.
func (df *DataFrame) Column(name string) (*Series, bool) {
	s, ok := df.cols[name]
	return s, ok
}

// Empty reports whether the table has no cells.
func (df *DataFrame) Empty() bool { return len(df.index) == 0 || len(df.columns) == 0 }

// HasNulls reports whether any cell is None or NaN.
func (df *DataFrame) HasNulls() bool {
	for _, name := range df.columns {
		if df.cols[name].nulls() > 0 {
			return true
		}
	}
	return false
}

// Records returns the cells row by row.
func (df *DataFrame) Records() [][]starlark.Value {
	out := make([][]starlark.Value, len(df.index))
	for r := range out {
		row := make([]starlark.Value, len(df.columns))
		for c, name := range df.columns {
			row[c] = df.cols[name].values[r]
		}
		out[r] = row
	}
	return out
}

func (df *DataFrame) take(rows []int) *DataFrame {
	out := &DataFrame{columns: df.Columns(), cols: make(map[string]*Series, len(df.columns))}
	out.index = make([]starlark.Value, len(rows))
	for i, r := range rows {
		out.index[i] = df.index[r]
	}
	for _, name := range df.columns {
		out.cols[name] = df.cols[name].take(rows)
	}
	return out
}

func (df *DataFrame) allRows() []int {
	return window(len(df.index), len(df.index), true)
}

func (df *DataFrame) String() string {
	header := append([]string{""}, df.columns...)
	table := [][]string{header}
	for r, label := range df.index {
		line := []string{cell(label)}
		for _, name := range df.columns {
			line = append(line, cell(df.cols[name].values[r]))
		}
		table = append(table, line)
	}
	widths := make([]int, len(header))
	for _, line := range table {
		for i, c := range line {
			widths[i] = max(widths[i], len(c))
		}
	}
	var b strings.Builder
	for n, line := range table {
		if n > 0 {
			b.WriteByte('\n')
		}
		for i, c := range line {
			if i > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%*s", widths[i], c)
		}
	}
	if len(df.index) == 0 {
		fmt.Fprintf(&b, "\nEmpty DataFrame\nColumns: [%s]", strings.Join(df.columns, ", "))
	}
	return b.String()
}

func (df *DataFrame) Type() string { return "DataFrame" }

func (df *DataFrame) Freeze() {
	if !df.frozen {
		df.frozen = true
		for _, s := range df.cols {
			s.Freeze()
		}
	}
}

func (df *DataFrame) Truth() starlark.Bool { return starlark.Bool(!df.Empty()) }

func (df *DataFrame) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: DataFrame")
}

// Len is the row count; iteration yields column names.
func (df *DataFrame) Len() int { return len(df.index) }

func (df *DataFrame) Iterate() starlark.Iterator {
	names := make([]starlark.Value, len(df.columns))
	for i, n := range df.columns {
		names[i] = starlark.String(n)
	}
	return &sliceIterator{elems: names}
}

// Get selects a column by name, a sub-table by a list of names, or rows by a
// boolean mask.
func (df *DataFrame) Get(k starlark.Value) (starlark.Value, bool, error) {
	switch key := k.(type) {
	case starlark.String:
		s, ok := df.cols[string(key)]
		if !ok {
			return nil, false, nil
		}
		return s, true, nil
	case *Series:
		rows, err := maskRows(key, len(df.index))
		if err != nil {
			return nil, false, err
		}
		return df.take(rows), true, nil
	case *starlark.List:
		names := make([]string, key.Len())
		for i := range names {
			s, ok := key.Index(i).(starlark.String)
			if !ok {
				return nil, false, fmt.Errorf("column names must be strings, got %s", key.Index(i).Type())
			}
			if _, ok := df.cols[string(s)]; !ok {
				return nil, false, fmt.Errorf("column %q not in table", string(s))
			}
			names[i] = string(s)
		}
		return df.selectColumns(names), true, nil
	}
	return nil, false, fmt.Errorf("invalid table key of type %s", k.Type())
}

func (df *DataFrame) selectColumns(names []string) *DataFrame {
	out := &DataFrame{cols: make(map[string]*Series, len(names)), index: df.index}
	for _, n := range names {
		out.columns = append(out.columns, n)
		out.cols[n] = df.cols[n].take(df.allRows())
	}
	return out
}

// SetKey assigns a column from a series, a list or a broadcast scalar.
func (df *DataFrame) SetKey(k, v starlark.Value) error {
	if df.frozen {
		return fmt.Errorf("cannot assign to a column of a frozen DataFrame")
	}
	name, ok := k.(starlark.String)
	if !ok {
		return fmt.Errorf("column name must be a string, got %s", k.Type())
	}
	var vals []starlark.Value
	switch x := v.(type) {
	case *Series:
		vals = append(vals, x.values...)
	case *np.Array:
		iter := x.Iterate()
		defer iter.Done()
		var el starlark.Value
		for iter.Next(&el) {
			vals = append(vals, el)
		}
	case *starlark.List, starlark.Tuple:
		iter := x.(starlark.Iterable).Iterate()
		defer iter.Done()
		var el starlark.Value
		for iter.Next(&el) {
			vals = append(vals, el)
		}
	default:
		vals = make([]starlark.Value, len(df.index))
		for i := range vals {
			vals[i] = v
		}
	}
	if len(vals) != len(df.index) {
		return fmt.Errorf("length of values (%d) does not match length of index (%d)", len(vals), len(df.index))
	}
	if _, exists := df.cols[string(name)]; !exists {
		df.columns = append(df.columns, string(name))
	}
	df.cols[string(name)] = NewSeries(string(name), vals, df.index)
	return nil
}

func (df *DataFrame) Attr(name string) (starlark.Value, error) {
	switch name {
	case "shape":
		return value.ShapeTuple(df.Shape()), nil
	case "columns":
		names := make([]starlark.Value, len(df.columns))
		for i, n := range df.columns {
			names[i] = starlark.String(n)
		}
		return starlark.NewList(names), nil
	case "dtypes":
		d := starlark.NewDict(len(df.columns))
		for _, n := range df.columns {
			if err := d.SetKey(starlark.String(n), starlark.String(df.cols[n].dtype)); err != nil {
				return nil, err
			}
		}
		return d, nil
	case "empty":
		return starlark.Bool(df.Empty()), nil
	case "size":
		return starlark.MakeInt(len(df.index) * len(df.columns)), nil
	case "ndim":
		return starlark.MakeInt(2), nil
	case "index":
		return starlark.NewList(append([]starlark.Value(nil), df.index...)), nil
	case "values":
		return df.values(), nil
	}
	if m, ok := frameMethods[name]; ok {
		return m.BindReceiver(df), nil
	}
	if s, ok := df.cols[name]; ok {
		return s, nil
	}
	return nil, nil
}

func (df *DataFrame) AttrNames() []string {
	names := []string{"columns", "dtypes", "empty", "index", "ndim", "shape", "size", "values"}
	for k := range frameMethods {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// values returns a numeric array when every column is numeric, otherwise a
// list of row lists.
func (df *DataFrame) values() starlark.Value {
	rows := df.Records()
	outer := make([]starlark.Value, len(rows))
	for i, r := range rows {
		outer[i] = starlark.NewList(r)
	}
	numeric := len(df.columns) > 0 && len(rows) > 0
	for _, n := range df.columns {
		if !df.cols[n].numeric() {
			numeric = false
		}
	}
	if numeric {
		if a, err := np.FromValue(starlark.NewList(outer), ""); err == nil {
			return a
		}
	}
	return starlark.NewList(outer)
}

// ToGo renders the table as a column-name to values mapping.
func (df *DataFrame) ToGo() any {
	out := make(map[string]any, len(df.columns))
	for _, n := range df.columns {
		out[n] = df.cols[n].ToGo()
	}
	return out
}
