package check

import (
	"context"
	"math"
	"strconv"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/lib/np"
	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/value"
)

// Closeness bounds for array values: |a-b| <= atol + rtol*|b|.
const (
	arrayRTol = 1e-5
	arrayATol = 1e-8
)

// ArrayChecker checks an ndarray against shape, dtype, values and min_max
// descriptors.
type ArrayChecker struct{}

var arrayDescriptors = map[string]descriptorFunc[*np.Array]{
	"shape":   arrayShape,
	"dtype":   arrayDType,
	"values":  arrayValues,
	"min_max": arrayMinMax,
}

func (ArrayChecker) Check(_ context.Context, v starlark.Value, spec model.ValidationSpec) Result {
	a, ok := v.(*np.Array)
	if !ok {
		return Fail("Expected numpy array, got %s", value.TypeName(v))
	}
	return runDescriptors(a, spec.Checks, arrayDescriptors, "array")
}

func arrayShape(a *np.Array, c model.Check) (Result, bool) {
	want, err := c.Ints("expected")
	if err != nil {
		return ConfigFault("array shape check: %v", err), false
	}
	if got := a.Shape(); !value.ShapeEqual(got, want) {
		return Fail("Shape mismatch: got %s, expected %s", value.FormatShape(got), value.FormatShape(want)), false
	}
	return Result{}, true
}

func arrayDType(a *np.Array, c model.Check) (Result, bool) {
	raw, ok := c.Expected()
	name, isString := raw.(string)
	if !ok || !isString {
		return ConfigFault("array dtype check needs an expected dtype name"), false
	}
	want, err := np.ParseDType(name)
	if err != nil {
		return ConfigFault("array dtype check: %v", err), false
	}
	if a.DType() != want {
		return Fail("Dtype mismatch: got %s, expected %s", a.DType(), want), false
	}
	return Result{}, true
}

func arrayValues(a *np.Array, c model.Check) (Result, bool) {
	raw, ok := c.Expected()
	if !ok {
		return ConfigFault("array values check has no expected values"), false
	}
	sv, err := value.FromGo(raw)
	if err != nil {
		return ConfigFault("array values check: %v", err), false
	}
	want, err := np.FromValue(sv, "")
	if err != nil {
		return ConfigFault("array values check: %v", err), false
	}
	if !allClose(a, want) {
		return Fail("Values don't match expected result"), false
	}
	return Result{}, true
}

// allClose compares element-wise; a single expected value broadcasts.
func allClose(got, want *np.Array) bool {
	g, w := got.Data(), want.Data()
	if want.Size() == 1 && len(want.Shape()) == 0 {
		for _, x := range g {
			if !isClose(x, w[0]) {
				return false
			}
		}
		return true
	}
	if !value.ShapeEqual(got.Shape(), want.Shape()) {
		return false
	}
	for i := range g {
		if !isClose(g[i], w[i]) {
			return false
		}
	}
	return true
}

func isClose(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= arrayATol+arrayRTol*math.Abs(b)
}

func arrayMinMax(a *np.Array, c model.Check) (Result, bool) {
	lo, hasMin := c.Number("min")
	hi, hasMax := c.Number("max")
	if !hasMin && !hasMax {
		return ConfigFault("array min_max check needs min or max"), false
	}
	if a.Size() == 0 {
		return Fail("Array is empty"), false
	}
	mn, mx := math.Inf(1), math.Inf(-1)
	for _, x := range a.Data() {
		if math.IsNaN(x) {
			return Fail("Array contains NaN values"), false
		}
		mn = math.Min(mn, x)
		mx = math.Max(mx, x)
	}
	if hasMin && mn < lo {
		return Fail("Minimum value %s is below expected %s", formatNumber(mn), formatNumber(lo)), false
	}
	if hasMax && mx > hi {
		return Fail("Maximum value %s is above expected %s", formatNumber(mx), formatNumber(hi)), false
	}
	return Result{}, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
