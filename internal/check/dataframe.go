package check

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/lib/pd"
	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/value"
)

// DataFrameChecker checks a table against shape, columns, dtypes, values,
// not_empty and no_nulls descriptors.
type DataFrameChecker struct{}

var frameDescriptors = map[string]descriptorFunc[*pd.DataFrame]{
	"shape":     frameShape,
	"columns":   frameColumns,
	"dtypes":    frameDTypes,
	"values":    frameValues,
	"not_empty": frameNotEmpty,
	"no_nulls":  frameNoNulls,
}

func (DataFrameChecker) Check(_ context.Context, v starlark.Value, spec model.ValidationSpec) Result {
	df, ok := v.(*pd.DataFrame)
	if !ok {
		return Fail("Expected pandas DataFrame, got %s", value.TypeName(v))
	}
	return runDescriptors(df, spec.Checks, frameDescriptors, "dataframe")
}

func frameShape(df *pd.DataFrame, c model.Check) (Result, bool) {
	want, err := c.Ints("expected")
	if err != nil {
		return ConfigFault("dataframe shape check: %v", err), false
	}
	if got := df.Shape(); !value.ShapeEqual(got, want) {
		return Fail("Shape mismatch: got %s, expected %s", value.FormatShape(got), value.FormatShape(want)), false
	}
	return Result{}, true
}

func frameColumns(df *pd.DataFrame, c model.Check) (Result, bool) {
	raw, ok := c.Expected()
	if !ok {
		return ConfigFault("dataframe columns check has no expected columns"), false
	}
	want, err := stringList(raw)
	if err != nil {
		return ConfigFault("dataframe columns check: %v", err), false
	}
	got := df.Columns()
	if !slices.Equal(got, want) {
		return Fail("Column mismatch: got %s, expected %s", quoteList(got), quoteList(want)), false
	}
	return Result{}, true
}

func frameDTypes(df *pd.DataFrame, c model.Check) (Result, bool) {
	raw, ok := c.Expected()
	if !ok {
		return ConfigFault("dataframe dtypes check has no expected dtypes"), false
	}
	want, ok := value.StringMap(raw)
	if !ok {
		return ConfigFault("dataframe dtypes check: expected a mapping of column to dtype, got %T", raw), false
	}
	for _, name := range slices.Sorted(maps.Keys(want)) {
		if _, ok := df.Column(name); !ok {
			return Fail("Column '%s' not found", name), false
		}
	}
	for _, name := range df.Columns() {
		declared, ok := want[name]
		if !ok {
			continue
		}
		s, _ := df.Column(name)
		dt := fmt.Sprint(declared)
		if canonicalDType(dt) != s.DType() {
			return Fail("Column '%s' has wrong dtype: got %s, expected %s", name, s.DType(), dt), false
		}
	}
	return Result{}, true
}

// canonicalDType maps the short type names authors write onto column dtypes.
func canonicalDType(dt string) string {
	switch strings.ToLower(strings.TrimSpace(dt)) {
	case "int", "int64", "int32":
		return pd.Int64
	case "float", "float64", "float32":
		return pd.Float64
	case "bool", "boolean":
		return pd.Bool
	case "str", "string", "object":
		return pd.Object
	}
	return dt
}

func frameValues(df *pd.DataFrame, c model.Check) (Result, bool) {
	raw, ok := c.Expected()
	if !ok {
		return ConfigFault("dataframe values check has no expected values"), false
	}
	want, err := value.FromGo(raw)
	if err != nil {
		return ConfigFault("dataframe values check: %v", err), false
	}
	rows := df.Records()
	got := make([]starlark.Value, len(rows))
	for i, r := range rows {
		got[i] = starlark.NewList(r)
	}
	if !value.Equal(starlark.NewList(got), want) {
		return Fail("Values don't match expected result"), false
	}
	return Result{}, true
}

func frameNotEmpty(df *pd.DataFrame, _ model.Check) (Result, bool) {
	if df.Empty() {
		return Fail("DataFrame is empty"), false
	}
	return Result{}, true
}

func frameNoNulls(df *pd.DataFrame, _ model.Check) (Result, bool) {
	if df.HasNulls() {
		return Fail("DataFrame contains null values"), false
	}
	return Result{}, true
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("column name %v is not a string", e)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of column names, got %T", raw)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
