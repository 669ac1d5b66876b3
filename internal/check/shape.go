package check

import (
	"context"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/value"
)

// ShapeChecker compares the shape attribute of any shape-bearing value.
type ShapeChecker struct{}

func (ShapeChecker) Check(_ context.Context, v starlark.Value, spec model.ValidationSpec) Result {
	want := spec.ExpectedShape
	if want == nil && spec.Expected != nil {
		dims, err := model.ToInts(spec.Expected)
		if err != nil {
			return ConfigFault("shape check: %v", err)
		}
		want = dims
	}
	if want == nil {
		return ConfigFault("shape check has no expected shape")
	}
	got, ok := value.Shape(v)
	if !ok {
		return Fail("Result has no shape attribute (type: %s)", value.TypeName(v))
	}
	if !value.ShapeEqual(got, want) {
		return Fail("Shape mismatch: got %s, expected %s", value.FormatShape(got), value.FormatShape(want))
	}
	return Pass(Success)
}
