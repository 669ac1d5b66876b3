package runner

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// builtinSum is Python's sum(iterable, start=0).
func builtinSum(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var iterable starlark.Iterable
	var acc starlark.Value = starlark.MakeInt(0)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "iterable", &iterable, "start?", &acc); err != nil {
		return nil, err
	}
	if _, ok := acc.(starlark.String); ok {
		return nil, fmt.Errorf("sum: unsupported start value of type string (use ''.join(seq) instead)")
	}
	iter := iterable.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		next, err := starlark.Binary(syntax.PLUS, acc, x)
		if err != nil {
			return nil, fmt.Errorf("sum: %v", err)
		}
		acc = next
	}
	return acc, nil
}

// builtinRound is Python's round(number, ndigits=None), rounding halves to
// even. Without ndigits the result is an int.
func builtinRound(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var number, ndigits starlark.Value = nil, starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "number", &number, "ndigits?", &ndigits); err != nil {
		return nil, err
	}
	var f float64
	switch x := number.(type) {
	case starlark.Int:
		if ndigits == starlark.None {
			return x, nil
		}
		f, _ = starlark.AsFloat(x)
	case starlark.Float:
		f = float64(x)
	default:
		return nil, fmt.Errorf("round: type %s doesn't define __round__ method", number.Type())
	}

	if ndigits == starlark.None {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("round: cannot convert float %v to integer", f)
		}
		return starlark.NumberToInt(starlark.Float(math.RoundToEven(f)))
	}
	var n int
	if err := starlark.AsInt(ndigits, &n); err != nil {
		return nil, fmt.Errorf("round: ndigits: %v", err)
	}
	var r float64
	if n >= 0 {
		scale := math.Pow(10, float64(n))
		r = math.RoundToEven(f*scale) / scale
	} else {
		scale := math.Pow(10, float64(-n))
		r = math.RoundToEven(f/scale) * scale
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = f
	}
	if _, isInt := number.(starlark.Int); isInt {
		return starlark.NumberToInt(starlark.Float(r))
	}
	return starlark.Float(r), nil
}
