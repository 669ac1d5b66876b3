// Package value bridges decoded lesson data (YAML/JSON) and Starlark values,
// and holds the comparison helpers shared by the rule checkers.
package value

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
)

// Exporter is implemented by library values (arrays, tables) that know how
// to render themselves as plain Go data.
type Exporter interface {
	ToGo() any
}

// FromGo converts decoded YAML/JSON data into a Starlark value.
func FromGo(v any) (starlark.Value, error) {
	switch x := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return x, nil
	case bool:
		return starlark.Bool(x), nil
	case int:
		return starlark.MakeInt(x), nil
	case int64:
		return starlark.MakeInt64(x), nil
	case uint64:
		return starlark.MakeUint64(x), nil
	case float64:
		return starlark.Float(x), nil
	case float32:
		return starlark.Float(x), nil
	case string:
		return starlark.String(x), nil
	case []int:
		elems := make([]starlark.Value, len(x))
		for i, n := range x {
			elems[i] = starlark.MakeInt(n)
		}
		return starlark.NewList(elems), nil
	case []float64:
		elems := make([]starlark.Value, len(x))
		for i, f := range x {
			elems[i] = starlark.Float(f)
		}
		return starlark.NewList(elems), nil
	case []string:
		elems := make([]starlark.Value, len(x))
		for i, s := range x {
			elems[i] = starlark.String(s)
		}
		return starlark.NewList(elems), nil
	case []any:
		elems := make([]starlark.Value, len(x))
		for i, e := range x {
			sv, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := starlark.NewDict(len(x))
		for _, k := range keys {
			sv, err := FromGo(x[k])
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	case map[any]any:
		d := starlark.NewDict(len(x))
		for k, e := range x {
			sk, err := FromGo(k)
			if err != nil {
				return nil, err
			}
			sv, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(sk, sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	}
	if m, ok := StringMap(v); ok {
		return FromGo(m)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice {
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return FromGo(elems)
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
}

// StringMap returns v as a map[string]any when v is any map keyed by
// strings. YAML decodes nested mappings into the named map type of the
// enclosing field, so descriptors hold those rather than plain maps.
func StringMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// ToGo converts a Starlark value into plain Go data.
func ToGo(v starlark.Value) any {
	switch x := v.(type) {
	case nil, starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(x)
	case starlark.Int:
		if n, ok := x.Int64(); ok {
			return n
		}
		return x.String()
	case starlark.Float:
		return float64(x)
	case starlark.String:
		return string(x)
	case starlark.Tuple:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToGo(e)
		}
		return out
	case *starlark.List:
		out := make([]any, x.Len())
		for i := 0; i < x.Len(); i++ {
			out[i] = ToGo(x.Index(i))
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, x.Len())
		for _, kv := range x.Items() {
			k := kv[0].String()
			if s, ok := kv[0].(starlark.String); ok {
				k = string(s)
			}
			out[k] = ToGo(kv[1])
		}
		return out
	case Exporter:
		return x.ToGo()
	}
	return v.String()
}

// Number returns the numeric value of an int or float. Booleans are not numbers.
func Number(v starlark.Value) (float64, bool) {
	switch v.(type) {
	case starlark.Int, starlark.Float:
		return starlark.AsFloat(v)
	}
	return 0, false
}

// IsNull reports whether v is None or a NaN float.
func IsNull(v starlark.Value) bool {
	switch x := v.(type) {
	case nil, starlark.NoneType:
		return true
	case starlark.Float:
		return math.IsNaN(float64(x))
	}
	return false
}

// Equal is exact equality with two relaxations: ints and floats compare by
// value, and lists compare equal to tuples with equal elements (declared
// expectations cannot spell a tuple). Library values compare by content.
func Equal(x, y starlark.Value) bool {
	xs, xok := sequence(x)
	ys, yok := sequence(y)
	if xok && yok {
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !Equal(xs[i], ys[i]) {
				return false
			}
		}
		return true
	}
	if xok != yok {
		return false
	}
	if xe, ok := x.(Exporter); ok {
		ye, ok := y.(Exporter)
		if !ok || x.Type() != y.Type() {
			return false
		}
		xv, xerr := FromGo(xe.ToGo())
		yv, yerr := FromGo(ye.ToGo())
		return xerr == nil && yerr == nil && Equal(xv, yv)
	}
	eq, err := starlark.Equal(x, y)
	return err == nil && eq
}

func sequence(v starlark.Value) ([]starlark.Value, bool) {
	switch s := v.(type) {
	case starlark.Tuple:
		return s, true
	case *starlark.List:
		out := make([]starlark.Value, s.Len())
		for i := range out {
			out[i] = s.Index(i)
		}
		return out, true
	}
	return nil, false
}

// TypeName returns the user-facing name of a value's type.
func TypeName(v starlark.Value) string {
	if v == nil {
		return "NoneType"
	}
	switch v.(type) {
	case starlark.String:
		return "str"
	case *starlark.Function, *starlark.Builtin:
		return "function"
	}
	return v.Type()
}

// Shape returns the value of a "shape" attribute, if the value exposes one.
func Shape(v starlark.Value) ([]int, bool) {
	ha, ok := v.(starlark.HasAttrs)
	if !ok {
		return nil, false
	}
	attr, err := ha.Attr("shape")
	if err != nil || attr == nil {
		return nil, false
	}
	t, ok := attr.(starlark.Tuple)
	if !ok {
		return nil, false
	}
	dims := make([]int, len(t))
	for i, d := range t {
		n, err := starlark.AsInt32(d)
		if err != nil {
			return nil, false
		}
		dims[i] = n
	}
	return dims, true
}

// FormatShape renders a shape the way learners see it printed: (3,), (2, 4), ().
func FormatShape(dims []int) string {
	if len(dims) == 1 {
		return "(" + strconv.Itoa(dims[0]) + ",)"
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ShapeEqual reports whether two shapes are identical.
func ShapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ShapeTuple builds the Starlark tuple for a shape.
func ShapeTuple(dims []int) starlark.Tuple {
	t := make(starlark.Tuple, len(dims))
	for i, d := range dims {
		t[i] = starlark.MakeInt(d)
	}
	return t
}

// Format renders an expected or actual value for a feedback message.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case starlark.String:
		return strconv.Quote(string(x))
	case starlark.Value:
		return x.String()
	case string:
		return strconv.Quote(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	}
	sv, err := FromGo(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return Format(sv)
}
