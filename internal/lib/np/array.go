// Package np implements a small n-dimensional numeric array library for
// submitted code. It is exposed to learners as the "np" module.
package np

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

// DType is an array element type.
type DType string

const (
	Int64   DType = "int64"
	Float64 DType = "float64"
	Bool    DType = "bool"
)

// ParseDType accepts the usual spellings of the supported element types.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "int64", "int32", "i8":
		return Int64, nil
	case "float", "float64", "float32", "f8", "double":
		return Float64, nil
	case "bool", "bool_":
		return Bool, nil
	}
	return "", fmt.Errorf("data type %q not understood", s)
}

// Array is a homogeneous n-dimensional array stored row-major.
// Elements of every dtype are held as float64.
type Array struct {
	shape []int
	dtype DType
	data  []float64
}

var (
	_ starlark.Value     = (*Array)(nil)
	_ starlark.HasAttrs  = (*Array)(nil)
	_ starlark.Indexable = (*Array)(nil)
	_ starlark.Sequence  = (*Array)(nil)
	_ starlark.HasBinary = (*Array)(nil)
	_ starlark.HasUnary  = (*Array)(nil)
)

// New builds an array. It panics if data does not fill shape, which is a
// programming error in the caller.
func New(shape []int, dtype DType, data []float64) *Array {
	if product(shape) != len(data) {
		panic(fmt.Sprintf("np.New: shape %v needs %d elements, got %d", shape, product(shape), len(data)))
	}
	return &Array{shape: append([]int(nil), shape...), dtype: dtype, data: data}
}

// Shape returns a copy of the array's dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Data returns the flattened elements. Callers must not modify it.
func (a *Array) Data() []float64 { return a.data }

// Size is the number of elements.
func (a *Array) Size() int { return len(a.data) }

func (a *Array) String() string {
	if len(a.shape) == 0 {
		return "array(" + a.format(0) + ")"
	}
	var b strings.Builder
	b.WriteString("array(")
	a.writeNested(&b, 0, 0)
	b.WriteString(")")
	return b.String()
}

func (a *Array) writeNested(b *strings.Builder, dim, offset int) {
	b.WriteByte('[')
	stride := product(a.shape[dim+1:])
	for i := 0; i < a.shape[dim]; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		if dim == len(a.shape)-1 {
			b.WriteString(a.format(offset + i))
		} else {
			a.writeNested(b, dim+1, offset+i*stride)
		}
	}
	b.WriteByte(']')
}

func (a *Array) format(i int) string {
	v := a.data[i]
	switch a.dtype {
	case Bool:
		if v != 0 {
			return "True"
		}
		return "False"
	case Int64:
		return strconv.FormatInt(int64(v), 10)
	}
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == math.Trunc(v) && math.Abs(v) < 1e16:
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (a *Array) Type() string { return "ndarray" }
func (a *Array) Freeze()      {}

func (a *Array) Truth() starlark.Bool {
	if len(a.data) == 1 {
		return a.data[0] != 0
	}
	return len(a.data) > 0
}

func (a *Array) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: ndarray")
}

func (a *Array) Len() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

func (a *Array) Index(i int) starlark.Value {
	if len(a.shape) == 1 {
		return a.item(i)
	}
	sub := a.shape[1:]
	n := product(sub)
	data := make([]float64, n)
	copy(data, a.data[i*n:(i+1)*n])
	return New(sub, a.dtype, data)
}

func (a *Array) Iterate() starlark.Iterator { return &arrayIterator{a: a} }

type arrayIterator struct {
	a *Array
	i int
}

func (it *arrayIterator) Next(p *starlark.Value) bool {
	if it.i >= it.a.Len() {
		return false
	}
	*p = it.a.Index(it.i)
	it.i++
	return true
}

func (it *arrayIterator) Done() {}

func (a *Array) item(i int) starlark.Value {
	return scalar(a.dtype, a.data[i])
}

func scalar(dt DType, v float64) starlark.Value {
	switch dt {
	case Int64:
		return starlark.MakeInt64(int64(v))
	case Bool:
		return starlark.Bool(v != 0)
	}
	return starlark.Float(v)
}

func (a *Array) Attr(name string) (starlark.Value, error) {
	switch name {
	case "shape":
		return value.ShapeTuple(a.shape), nil
	case "ndim":
		return starlark.MakeInt(len(a.shape)), nil
	case "size":
		return starlark.MakeInt(len(a.data)), nil
	case "dtype":
		return starlark.String(a.dtype), nil
	case "T":
		return a.transpose(), nil
	}
	if m, ok := arrayMethods[name]; ok {
		return m.BindReceiver(a), nil
	}
	return nil, nil
}

func (a *Array) AttrNames() []string {
	names := []string{"T", "dtype", "ndim", "shape", "size"}
	for k := range arrayMethods {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ToGo renders the array as nested []any, like tolist().
func (a *Array) ToGo() any {
	return value.ToGo(a.tolist())
}

func (a *Array) tolist() starlark.Value {
	if len(a.shape) == 0 {
		return a.item(0)
	}
	elems := make([]starlark.Value, a.Len())
	for i := range elems {
		el := a.Index(i)
		if sub, ok := el.(*Array); ok {
			el = sub.tolist()
		}
		elems[i] = el
	}
	return starlark.NewList(elems)
}

func (a *Array) transpose() *Array {
	if len(a.shape) != 2 {
		return New(a.shape, a.dtype, append([]float64(nil), a.data...))
	}
	rows, cols := a.shape[0], a.shape[1]
	out := make([]float64, len(a.data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c*rows+r] = a.data[r*cols+c]
		}
	}
	return New([]int{cols, rows}, a.dtype, out)
}

func (a *Array) astype(dt DType) *Array {
	out := make([]float64, len(a.data))
	for i, v := range a.data {
		switch dt {
		case Int64:
			out[i] = math.Trunc(v)
		case Bool:
			if v != 0 {
				out[i] = 1
			}
		default:
			out[i] = v
		}
	}
	return New(a.shape, dt, out)
}

// Binary implements elementwise arithmetic with scalars and equal-shape arrays.
func (a *Array) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	other, ok := operand(y)
	if !ok {
		return nil, nil
	}
	x, z := a, other
	if side == starlark.Right {
		x, z = other, a
	}
	return elementwise(op, x, z)
}

func (a *Array) Unary(op syntax.Token) (starlark.Value, error) {
	switch op {
	case syntax.MINUS:
		out := make([]float64, len(a.data))
		for i, v := range a.data {
			out[i] = -v
		}
		dt := a.dtype
		if dt == Bool {
			dt = Int64
		}
		return New(a.shape, dt, out), nil
	case syntax.PLUS:
		return New(a.shape, a.dtype, append([]float64(nil), a.data...)), nil
	}
	return nil, nil
}

func operand(v starlark.Value) (*Array, bool) {
	switch x := v.(type) {
	case *Array:
		return x, true
	case starlark.Int:
		f, _ := starlark.AsFloat(x)
		return New(nil, Int64, []float64{f}), true
	case starlark.Float:
		return New(nil, Float64, []float64{float64(x)}), true
	case starlark.Bool:
		if x {
			return New(nil, Bool, []float64{1}), true
		}
		return New(nil, Bool, []float64{0}), true
	}
	return nil, false
}

func elementwise(op syntax.Token, x, y *Array) (starlark.Value, error) {
	shape := x.shape
	switch {
	case value.ShapeEqual(x.shape, y.shape):
	case len(y.data) == 1:
	case len(x.data) == 1:
		shape = y.shape
	default:
		return nil, fmt.Errorf("operands could not be broadcast together with shapes %s %s",
			value.FormatShape(x.shape), value.FormatShape(y.shape))
	}

	dt := Int64
	if x.dtype == Float64 || y.dtype == Float64 || op == syntax.SLASH {
		dt = Float64
	}

	n := product(shape)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		l := x.data[i%len(x.data)]
		r := y.data[i%len(y.data)]
		switch op {
		case syntax.PLUS:
			out[i] = l + r
		case syntax.MINUS:
			out[i] = l - r
		case syntax.STAR:
			out[i] = l * r
		case syntax.SLASH:
			out[i] = l / r
		case syntax.SLASHSLASH:
			if r == 0 && dt == Int64 {
				return nil, fmt.Errorf("integer division by zero")
			}
			out[i] = math.Floor(l / r)
		case syntax.PERCENT:
			if r == 0 && dt == Int64 {
				return nil, fmt.Errorf("integer modulo by zero")
			}
			m := math.Mod(l, r)
			if m != 0 && (m < 0) != (r < 0) {
				m += r
			}
			out[i] = m
		default:
			return nil, nil
		}
	}
	return New(shape, dt, out), nil
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
