package np

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
)

var arrayMethods = map[string]*starlark.Builtin{
	"sum":     method("sum", sumOf),
	"mean":    method("mean", meanOf),
	"min":     method("min", minOf),
	"max":     method("max", maxOf),
	"std":     method("std", stdOf),
	"tolist":  method("tolist", func(a *Array) (starlark.Value, error) { return a.tolist(), nil }),
	"flatten": method("flatten", flattenArray),
	"copy":    method("copy", copyArray),
	"reshape": starlark.NewBuiltin("reshape", arrayReshape),
	"astype":  starlark.NewBuiltin("astype", arrayAsType),
}

func method(name string, fn func(*Array) (starlark.Value, error)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return fn(b.Receiver().(*Array))
	})
}

func flattenArray(a *Array) (starlark.Value, error) {
	return New([]int{len(a.data)}, a.dtype, append([]float64(nil), a.data...)), nil
}

func copyArray(a *Array) (starlark.Value, error) {
	return New(a.shape, a.dtype, append([]float64(nil), a.data...)), nil
}

func arrayReshape(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	a := b.Receiver().(*Array)
	var shapeV starlark.Value = args
	if len(args) == 1 {
		shapeV = args[0]
	}
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	shape, err := shapeArgSigned(shapeV)
	if err != nil {
		return nil, err
	}
	return a.reshape(shape)
}

func arrayAsType(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var dtype string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &dtype); err != nil {
		return nil, err
	}
	dt, err := ParseDType(dtype)
	if err != nil {
		return nil, err
	}
	return b.Receiver().(*Array).astype(dt), nil
}

// shapeArgSigned is like shapeArg but allows a single -1 placeholder.
func shapeArgSigned(v starlark.Value) ([]int, error) {
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
		dims[i] = n
	}
	return dims, nil
}

func (a *Array) reshape(shape []int) (*Array, error) {
	shape = append([]int(nil), shape...)
	unknown := -1
	known := 1
	for i, d := range shape {
		switch {
		case d == -1 && unknown >= 0:
			return nil, fmt.Errorf("can only specify one unknown dimension")
		case d == -1:
			unknown = i
		case d < 0:
			return nil, fmt.Errorf("negative dimensions are not allowed")
		default:
			known *= d
		}
	}
	if unknown >= 0 {
		if known == 0 || len(a.data)%known != 0 {
			return nil, fmt.Errorf("cannot reshape array of size %d into shape %v", len(a.data), shape)
		}
		shape[unknown] = len(a.data) / known
	}
	if product(shape) != len(a.data) {
		return nil, fmt.Errorf("cannot reshape array of size %d into shape %v", len(a.data), shape)
	}
	return New(shape, a.dtype, append([]float64(nil), a.data...)), nil
}

func sumOf(a *Array) (starlark.Value, error) {
	var s float64
	for _, v := range a.data {
		s += v
	}
	if a.dtype == Float64 {
		return starlark.Float(s), nil
	}
	return starlark.MakeInt64(int64(s)), nil
}

func meanOf(a *Array) (starlark.Value, error) {
	if len(a.data) == 0 {
		return starlark.Float(math.NaN()), nil
	}
	var s float64
	for _, v := range a.data {
		s += v
	}
	return starlark.Float(s / float64(len(a.data))), nil
}

func minOf(a *Array) (starlark.Value, error) {
	return extreme(a, "min", func(x, y float64) bool { return x < y })
}

func maxOf(a *Array) (starlark.Value, error) {
	return extreme(a, "max", func(x, y float64) bool { return x > y })
}

func extreme(a *Array, name string, better func(x, y float64) bool) (starlark.Value, error) {
	if len(a.data) == 0 {
		return nil, fmt.Errorf("zero-size array to reduction operation %s which has no identity", name)
	}
	best := a.data[0]
	for _, v := range a.data[1:] {
		if math.IsNaN(v) {
			best = v
			break
		}
		if better(v, best) {
			best = v
		}
	}
	return scalar(a.dtype, best), nil
}

func stdOf(a *Array) (starlark.Value, error) {
	if len(a.data) == 0 {
		return starlark.Float(math.NaN()), nil
	}
	m, _ := meanOf(a)
	mean := float64(m.(starlark.Float))
	var ss float64
	for _, v := range a.data {
		ss += (v - mean) * (v - mean)
	}
	return starlark.Float(math.Sqrt(ss / float64(len(a.data)))), nil
}
