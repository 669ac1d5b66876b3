package check

import (
	"context"
	"math"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/value"
)

// ValueChecker compares a scalar or plain value against spec.Expected.
type ValueChecker struct{}

func (ValueChecker) Check(_ context.Context, v starlark.Value, spec model.ValidationSpec) Result {
	if spec.Expected == nil {
		return ConfigFault("value check has no expected value")
	}
	want, err := value.FromGo(spec.Expected)
	if err != nil {
		return ConfigFault("value check: %v", err)
	}
	return compareValue(v, want, spec.Tol())
}

func compareValue(got, want starlark.Value, tol float64) Result {
	if structural(got) != structural(want) {
		return Fail("Type mismatch: got %s, expected %s", value.TypeName(got), value.TypeName(want))
	}
	if !matches(got, want, tol) {
		return Fail("Value mismatch: got %s, expected %s", value.Format(got), value.Format(want))
	}
	return Pass(Success)
}

// matches is numeric closeness for numbers and exact equality otherwise.
func matches(got, want starlark.Value, tol float64) bool {
	if w, ok := value.Number(want); ok {
		g, ok := value.Number(got)
		return ok && math.Abs(g-w) <= tol
	}
	return value.Equal(got, want)
}

// structural groups concrete types that compare against each other: ints
// and floats are both numbers, lists and tuples are both sequences.
func structural(v starlark.Value) string {
	switch v.(type) {
	case starlark.Int, starlark.Float:
		return "number"
	case starlark.Tuple, *starlark.List:
		return "list"
	}
	return value.TypeName(v)
}
