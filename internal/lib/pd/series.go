// Package pd implements a small labeled-table library for submitted code,
// exposed to learners as the "pd" module. It covers the subset of table and
// series operations the curriculum exercises: construction, column access,
// boolean filtering, null handling, sorting, grouping and aggregates.
package pd

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/rcliao/ds-tutor/internal/value"
)

// Column dtypes.
const (
	Int64   = "int64"
	Float64 = "float64"
	Bool    = "bool"
	Object  = "object"
)

// Series is a one-dimensional labeled column.
type Series struct {
	name   string
	dtype  string
	values []starlark.Value
	index  []starlark.Value
	frozen bool
}

var (
	_ starlark.Mapping   = (*Series)(nil)
	_ starlark.Sequence  = (*Series)(nil)
	_ starlark.HasAttrs  = (*Series)(nil)
	_ starlark.HasBinary = (*Series)(nil)
)

// NewSeries builds a series, inferring its dtype. A nil index means 0..n-1.
func NewSeries(name string, values []starlark.Value, index []starlark.Value) *Series {
	dtype, vals := infer(values)
	if index == nil {
		index = rangeIndex(len(vals))
	}
	return &Series{name: name, dtype: dtype, values: vals, index: index}
}

func rangeIndex(n int) []starlark.Value {
	idx := make([]starlark.Value, n)
	for i := range idx {
		idx[i] = starlark.MakeInt(i)
	}
	return idx
}

// infer picks the narrowest dtype holding every value and normalizes the
// values to it: nulls in a numeric column become NaN, ints in a float column
// become floats.
func infer(values []starlark.Value) (string, []starlark.Value) {
	if len(values) == 0 {
		return Object, nil
	}
	var ints, floats, bools, nulls, other int
	for _, v := range values {
		switch x := v.(type) {
		case starlark.Bool:
			bools++
		case starlark.Int:
			ints++
		case starlark.Float:
			if math.IsNaN(float64(x)) {
				nulls++
			} else {
				floats++
			}
		case starlark.NoneType:
			nulls++
		default:
			other++
		}
	}
	out := make([]starlark.Value, len(values))
	switch {
	case other == 0 && bools == 0 && nulls == 0 && floats == 0:
		copy(out, values)
		return Int64, out
	case other == 0 && bools == 0:
		for i, v := range values {
			if value.IsNull(v) {
				out[i] = starlark.Float(math.NaN())
				continue
			}
			f, _ := starlark.AsFloat(v)
			out[i] = starlark.Float(f)
		}
		return Float64, out
	case other == 0 && ints == 0 && floats == 0 && nulls == 0:
		copy(out, values)
		return Bool, out
	}
	for i, v := range values {
		if v == nil {
			v = starlark.None
		}
		out[i] = v
	}
	return Object, out
}

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// DType returns the column dtype name.
func (s *Series) DType() string { return s.dtype }

// Values returns the cells. Callers must not modify the slice.
func (s *Series) Values() []starlark.Value { return s.values }

func (s *Series) withValues(values []starlark.Value) *Series {
	return NewSeries(s.name, values, append([]starlark.Value(nil), s.index...))
}

func (s *Series) take(rows []int) *Series {
	vals := make([]starlark.Value, len(rows))
	idx := make([]starlark.Value, len(rows))
	for i, r := range rows {
		vals[i] = s.values[r]
		idx[i] = s.index[r]
	}
	return &Series{name: s.name, dtype: s.dtype, values: vals, index: idx}
}

func (s *Series) String() string {
	var b strings.Builder
	labels := make([]string, len(s.index))
	width := 0
	for i, l := range s.index {
		labels[i] = cell(l)
		width = max(width, len(labels[i]))
	}
	for i, v := range s.values {
		fmt.Fprintf(&b, "%-*s    %s\n", width, labels[i], cell(v))
	}
	if s.name != "" {
		fmt.Fprintf(&b, "Name: %s, ", s.name)
	}
	fmt.Fprintf(&b, "dtype: %s", s.dtype)
	return b.String()
}

func cell(v starlark.Value) string {
	switch x := v.(type) {
	case starlark.String:
		return string(x)
	case starlark.Float:
		if math.IsNaN(float64(x)) {
			return "NaN"
		}
	case starlark.NoneType:
		return "None"
	}
	return v.String()
}

func (s *Series) Type() string { return "Series" }

func (s *Series) Freeze() {
	if !s.frozen {
		s.frozen = true
		for _, v := range s.values {
			v.Freeze()
		}
	}
}

func (s *Series) Truth() starlark.Bool { return len(s.values) > 0 }

func (s *Series) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: Series")
}

func (s *Series) Len() int { return len(s.values) }

func (s *Series) Iterate() starlark.Iterator {
	return &sliceIterator{elems: s.values}
}

type sliceIterator struct {
	elems []starlark.Value
	i     int
}

func (it *sliceIterator) Next(p *starlark.Value) bool {
	if it.i >= len(it.elems) {
		return false
	}
	*p = it.elems[it.i]
	it.i++
	return true
}

func (it *sliceIterator) Done() {}

// Get looks a key up by index label, or filters by a boolean mask.
func (s *Series) Get(k starlark.Value) (starlark.Value, bool, error) {
	if mask, ok := k.(*Series); ok {
		rows, err := maskRows(mask, len(s.values))
		if err != nil {
			return nil, false, err
		}
		return s.take(rows), true, nil
	}
	for i, l := range s.index {
		if value.Equal(l, k) {
			return s.values[i], true, nil
		}
	}
	return nil, false, nil
}

func maskRows(mask *Series, n int) ([]int, error) {
	if mask.dtype != Bool {
		return nil, fmt.Errorf("boolean index must be a bool Series, got dtype %s", mask.dtype)
	}
	if len(mask.values) != n {
		return nil, fmt.Errorf("boolean index has wrong length: %d instead of %d", len(mask.values), n)
	}
	var rows []int
	for i, v := range mask.values {
		if v.Truth() {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

func (s *Series) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		if s.name == "" {
			return starlark.None, nil
		}
		return starlark.String(s.name), nil
	case "dtype":
		return starlark.String(s.dtype), nil
	case "shape":
		return value.ShapeTuple([]int{len(s.values)}), nil
	case "size":
		return starlark.MakeInt(len(s.values)), nil
	case "empty":
		return starlark.Bool(len(s.values) == 0), nil
	case "values":
		return starlark.NewList(append([]starlark.Value(nil), s.values...)), nil
	case "index":
		return starlark.NewList(append([]starlark.Value(nil), s.index...)), nil
	}
	if m, ok := seriesMethods[name]; ok {
		return m.BindReceiver(s), nil
	}
	return nil, nil
}

func (s *Series) AttrNames() []string {
	names := []string{"dtype", "empty", "index", "name", "shape", "size", "values"}
	for k := range seriesMethods {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ToGo renders the series as a list of plain values.
func (s *Series) ToGo() any {
	out := make([]any, len(s.values))
	for i, v := range s.values {
		out[i] = value.ToGo(v)
	}
	return out
}

// Binary implements elementwise arithmetic and the & | mask operators.
func (s *Series) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	switch op {
	case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASH, syntax.SLASHSLASH, syntax.PERCENT,
		syntax.AMP, syntax.PIPE:
	default:
		return nil, nil
	}
	other, err := s.aligned(y)
	if err != nil {
		return nil, err
	}
	out := make([]starlark.Value, len(s.values))
	for i, v := range s.values {
		l, r := v, other[i]
		if side == starlark.Right {
			l, r = r, l
		}
		if op == syntax.AMP || op == syntax.PIPE {
			if op == syntax.AMP {
				out[i] = starlark.Bool(l.Truth() && r.Truth())
			} else {
				out[i] = starlark.Bool(l.Truth() || r.Truth())
			}
			continue
		}
		if value.IsNull(l) || value.IsNull(r) {
			out[i] = starlark.Float(math.NaN())
			continue
		}
		z, err := starlark.Binary(op, l, r)
		if err != nil {
			return nil, err
		}
		out[i] = z
	}
	return s.withValues(out), nil
}

// aligned returns the right-hand operand as one value per row.
func (s *Series) aligned(y starlark.Value) ([]starlark.Value, error) {
	if o, ok := y.(*Series); ok {
		if len(o.values) != len(s.values) {
			return nil, fmt.Errorf("operands have different lengths: %d and %d", len(s.values), len(o.values))
		}
		return o.values, nil
	}
	out := make([]starlark.Value, len(s.values))
	for i := range out {
		out[i] = y
	}
	return out, nil
}

func (s *Series) compare(op syntax.Token, y starlark.Value) (*Series, error) {
	other, err := s.aligned(y)
	if err != nil {
		return nil, err
	}
	out := make([]starlark.Value, len(s.values))
	for i, v := range s.values {
		if value.IsNull(v) || value.IsNull(other[i]) {
			out[i] = starlark.Bool(op == syntax.NEQ)
			continue
		}
		ok, err := starlark.Compare(op, v, other[i])
		if err != nil {
			return nil, err
		}
		out[i] = starlark.Bool(ok)
	}
	return s.withValues(out), nil
}

// numbers returns the non-null numeric cells.
func (s *Series) numbers() ([]float64, error) {
	var out []float64
	for _, v := range s.values {
		if value.IsNull(v) {
			continue
		}
		switch x := v.(type) {
		case starlark.Bool:
			if x {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		case starlark.Int, starlark.Float:
			f, _ := starlark.AsFloat(x)
			out = append(out, f)
		default:
			return nil, fmt.Errorf("cannot aggregate non-numeric %s values in column %q", v.Type(), s.name)
		}
	}
	return out, nil
}

func (s *Series) numeric() bool {
	return s.dtype == Int64 || s.dtype == Float64 || s.dtype == Bool
}

func (s *Series) nulls() int {
	n := 0
	for _, v := range s.values {
		if value.IsNull(v) {
			n++
		}
	}
	return n
}
