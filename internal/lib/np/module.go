package np

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// NewModule returns a fresh "numpy" module value.
func NewModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "numpy",
		Members: starlark.StringDict{
			"array":    starlark.NewBuiltin("array", npArray),
			"zeros":    starlark.NewBuiltin("zeros", filled(0)),
			"ones":     starlark.NewBuiltin("ones", filled(1)),
			"full":     starlark.NewBuiltin("full", npFull),
			"arange":   starlark.NewBuiltin("arange", npArange),
			"linspace": starlark.NewBuiltin("linspace", npLinspace),
			"eye":      starlark.NewBuiltin("eye", npEye),
			"reshape":  starlark.NewBuiltin("reshape", npReshape),
			"sum":      reduction("sum", sumOf),
			"mean":     reduction("mean", meanOf),
			"min":      reduction("min", minOf),
			"max":      reduction("max", maxOf),
			"std":      reduction("std", stdOf),
			"sqrt":     elementFunc("sqrt", math.Sqrt),
			"abs":      elementFunc("abs", math.Abs),
			"exp":      elementFunc("exp", math.Exp),
			"log":      elementFunc("log", math.Log),
			"nan":      starlark.Float(math.NaN()),
			"inf":      starlark.Float(math.Inf(1)),
			"pi":       starlark.Float(math.Pi),
			"e":        starlark.Float(math.E),
		},
	}
}

// FromValue builds an array from nested lists/tuples of numbers or booleans.
func FromValue(v starlark.Value, dtype string) (*Array, error) {
	var shape []int
	var data []float64
	kind := Bool
	if err := flatten(v, 0, &shape, &data, &kind); err != nil {
		return nil, err
	}
	if len(shape) == 0 && len(data) == 0 {
		return nil, fmt.Errorf("cannot build an array from %s", v.Type())
	}
	a := New(shape, kind, data)
	if dtype != "" {
		dt, err := ParseDType(dtype)
		if err != nil {
			return nil, err
		}
		a = a.astype(dt)
	}
	return a, nil
}

func flatten(v starlark.Value, depth int, shape *[]int, data *[]float64, kind *DType) error {
	switch x := v.(type) {
	case *Array:
		if depth == len(*shape) {
			*shape = append(*shape, x.shape...)
		} else if !sameTail((*shape)[depth:], x.shape) {
			return errInhomogeneous
		}
		*data = append(*data, x.data...)
		*kind = promote(*kind, x.dtype)
		return nil
	case starlark.Bool:
		if depth != len(*shape) {
			return errInhomogeneous
		}
		if x {
			*data = append(*data, 1)
		} else {
			*data = append(*data, 0)
		}
		return nil
	case starlark.Int, starlark.Float:
		if depth != len(*shape) {
			return errInhomogeneous
		}
		f, _ := starlark.AsFloat(x)
		*data = append(*data, f)
		if _, isFloat := x.(starlark.Float); isFloat {
			*kind = promote(*kind, Float64)
		} else {
			*kind = promote(*kind, Int64)
		}
		return nil
	case starlark.String, starlark.Bytes:
		return fmt.Errorf("unsupported array element of type %s", v.Type())
	}

	seq, ok := v.(starlark.Indexable)
	if !ok {
		return fmt.Errorf("unsupported array element of type %s", v.Type())
	}
	n := seq.Len()
	switch {
	case depth == len(*shape):
		if depth > 0 && len(*data) > 0 {
			return errInhomogeneous
		}
		*shape = append(*shape, n)
	case (*shape)[depth] != n:
		return errInhomogeneous
	}
	for i := 0; i < n; i++ {
		if err := flatten(seq.Index(i), depth+1, shape, data, kind); err != nil {
			return err
		}
	}
	return nil
}

var errInhomogeneous = fmt.Errorf("setting an array element with a sequence: the requested array has an inhomogeneous shape")

func sameTail(want, got []int) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

func promote(a, b DType) DType {
	if a == Float64 || b == Float64 {
		return Float64
	}
	if a == Int64 || b == Int64 {
		return Int64
	}
	return Bool
}

func npArray(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var obj starlark.Value
	var dtype string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "object", &obj, "dtype?", &dtype); err != nil {
		return nil, err
	}
	return FromValue(obj, dtype)
}

func shapeArg(v starlark.Value) ([]int, error) {
	if n, err := starlark.AsInt32(v); err == nil {
		return []int{n}, nil
	}
	seq, ok := v.(starlark.Indexable)
	if !ok {
		return nil, fmt.Errorf("shape must be an int or a tuple of ints, got %s", v.Type())
	}
	dims := make([]int, seq.Len())
	for i := range dims {
		n, err := starlark.AsInt32(seq.Index(i))
		if err != nil {
			return nil, fmt.Errorf("shape: %w", err)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative dimensions are not allowed")
		}
		dims[i] = n
	}
	return dims, nil
}

func filled(fill float64) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var shapeV starlark.Value
		dtype := string(Float64)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "shape", &shapeV, "dtype?", &dtype); err != nil {
			return nil, err
		}
		shape, err := shapeArg(shapeV)
		if err != nil {
			return nil, err
		}
		dt, err := ParseDType(dtype)
		if err != nil {
			return nil, err
		}
		data := make([]float64, product(shape))
		for i := range data {
			data[i] = fill
		}
		return New(shape, dt, data), nil
	}
}

func npFull(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var shapeV, fillV starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "shape", &shapeV, "fill_value", &fillV); err != nil {
		return nil, err
	}
	shape, err := shapeArg(shapeV)
	if err != nil {
		return nil, err
	}
	fill, err := FromValue(fillV, "")
	if err != nil {
		return nil, err
	}
	if fill.Size() != 1 {
		return nil, fmt.Errorf("full: fill_value must be a scalar")
	}
	data := make([]float64, product(shape))
	for i := range data {
		data[i] = fill.data[0]
	}
	return New(shape, fill.dtype, data), nil
}

func npArange(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var startV, stopV, stepV starlark.Value = starlark.MakeInt(0), starlark.None, starlark.MakeInt(1)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "start", &startV, "stop?", &stopV, "step?", &stepV); err != nil {
		return nil, err
	}
	if stopV == starlark.None {
		startV, stopV = starlark.MakeInt(0), startV
	}
	start, ok1 := starlark.AsFloat(startV)
	stop, ok2 := starlark.AsFloat(stopV)
	step, ok3 := starlark.AsFloat(stepV)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("arange: arguments must be numbers")
	}
	if step == 0 {
		return nil, fmt.Errorf("arange: step must not be zero")
	}
	dt := Int64
	for _, v := range []starlark.Value{startV, stopV, stepV} {
		if _, isFloat := v.(starlark.Float); isFloat {
			dt = Float64
		}
	}
	n := int(math.Ceil((stop - start) / step))
	if n < 0 {
		n = 0
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = start + float64(i)*step
	}
	return New([]int{n}, dt, data), nil
}

func npLinspace(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, stop starlark.Value
	num := 50
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "start", &start, "stop", &stop, "num?", &num); err != nil {
		return nil, err
	}
	lo, ok1 := starlark.AsFloat(start)
	hi, ok2 := starlark.AsFloat(stop)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("linspace: start and stop must be numbers")
	}
	if num < 0 {
		return nil, fmt.Errorf("linspace: number of samples, %d, must be non-negative", num)
	}
	data := make([]float64, num)
	for i := range data {
		if num == 1 {
			data[i] = lo
			break
		}
		data[i] = lo + (hi-lo)*float64(i)/float64(num-1)
	}
	return New([]int{num}, Float64, data), nil
}

func npEye(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "N", &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("eye: negative dimensions are not allowed")
	}
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return New([]int{n, n}, Float64, data), nil
}

func npReshape(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var obj, shapeV starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "a", &obj, "newshape", &shapeV); err != nil {
		return nil, err
	}
	a, err := asArray(obj)
	if err != nil {
		return nil, err
	}
	shape, err := shapeArgSigned(shapeV)
	if err != nil {
		return nil, err
	}
	return a.reshape(shape)
}

func asArray(v starlark.Value) (*Array, error) {
	if a, ok := v.(*Array); ok {
		return a, nil
	}
	return FromValue(v, "")
}

func reduction(name string, fn func(*Array) (starlark.Value, error)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var obj starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &obj); err != nil {
			return nil, err
		}
		a, err := asArray(obj)
		if err != nil {
			return nil, err
		}
		return fn(a)
	})
}

func elementFunc(name string, fn func(float64) float64) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var obj starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &obj); err != nil {
			return nil, err
		}
		a, err := asArray(obj)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(a.data))
		for i, v := range a.data {
			out[i] = fn(v)
		}
		dt := Float64
		if name == "abs" && a.dtype == Int64 {
			dt = Int64
		}
		res := New(a.shape, dt, out)
		if len(a.shape) == 0 {
			return res.item(0), nil
		}
		return res, nil
	})
}
