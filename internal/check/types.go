package check

import (
	"context"
	"strings"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/lib/np"
	"github.com/rcliao/ds-tutor/internal/lib/pd"
	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/value"
)

// TypeChecker checks that a value is an instance of a declared type.
type TypeChecker struct{}

// typeTests is the closed set of declarable types.
var typeTests = map[string]func(starlark.Value) bool{
	"DataFrame": func(v starlark.Value) bool { _, ok := v.(*pd.DataFrame); return ok },
	"Series":    func(v starlark.Value) bool { _, ok := v.(*pd.Series); return ok },
	"ndarray":   func(v starlark.Value) bool { _, ok := v.(*np.Array); return ok },
	"list": func(v starlark.Value) bool {
		switch v.(type) {
		case *starlark.List, starlark.Tuple:
			return true
		}
		return false
	},
	"dict":  func(v starlark.Value) bool { _, ok := v.(*starlark.Dict); return ok },
	"int":   func(v starlark.Value) bool { _, ok := v.(starlark.Int); return ok },
	"float": func(v starlark.Value) bool { _, ok := v.(starlark.Float); return ok },
	"str":   func(v starlark.Value) bool { _, ok := v.(starlark.String); return ok },
}

var typeAliases = map[string]string{
	"dataframe":      "DataFrame",
	"table":          "DataFrame",
	"series":         "Series",
	"labeled-series": "Series",
	"labeled_series": "Series",
	"array":          "ndarray",
	"tuple":          "list",
	"mapping":        "dict",
	"integer":        "int",
	"string":         "str",
}

// canonicalType resolves a declared type name, ok=false if it is outside
// the closed set.
func canonicalType(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if _, ok := typeTests[name]; ok {
		return name, true
	}
	if alias, ok := typeAliases[strings.ToLower(name)]; ok {
		return alias, true
	}
	return name, false
}

func (TypeChecker) Check(_ context.Context, v starlark.Value, spec model.ValidationSpec) Result {
	declared := spec.ExpectedType
	if declared == "" {
		if s, ok := spec.Expected.(string); ok {
			declared = s
		}
	}
	if declared == "" {
		return ConfigFault("type check has no expected type")
	}
	name, ok := canonicalType(declared)
	if !ok {
		return ConfigFault("Unknown expected type: %s", declared)
	}
	if !typeTests[name](v) {
		return Fail("Type mismatch: got %s, expected %s", value.TypeName(v), name)
	}
	return Pass(Success)
}
