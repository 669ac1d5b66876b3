package model

import (
	"fmt"
	"strings"
)

// DefaultTolerance is the absolute tolerance for numeric value comparisons.
const DefaultTolerance = 0.001

// Validation types. Lesson files may also use the "<type>_check" spelling.
const (
	TypeValue         = "value"
	TypeDataFrame     = "dataframe"
	TypeArray         = "array"
	TypeType          = "type"
	TypeFunction      = "function"
	TypeShape         = "shape"
	TypeMultiVariable = "multi_variable"
)

// ValidationSpec declares how a submitted result is checked.
type ValidationSpec struct {
	Type      string   `json:"type,omitempty" yaml:"type"`
	Checks    []Check  `json:"checks,omitempty" yaml:"checks"`
	Tolerance *float64 `json:"tolerance,omitempty" yaml:"tolerance"`

	Expected      any        `json:"expected,omitempty" yaml:"expected"`
	ExpectedType  string     `json:"expected_type,omitempty" yaml:"expected_type"`
	ExpectedShape []int      `json:"expected_shape,omitempty" yaml:"expected_shape"`
	TestCases     []TestCase `json:"test_cases,omitempty" yaml:"test_cases"`
}

// TestCase is one input/output pair for a function exercise.
type TestCase struct {
	Input  any `json:"input" yaml:"input"`
	Output any `json:"output" yaml:"output"`
}

// Kind returns the canonical validation type. Empty means value.
func (s ValidationSpec) Kind() string {
	return NormalizeType(s.Type)
}

// Tol returns the numeric tolerance, defaulting to DefaultTolerance.
func (s ValidationSpec) Tol() float64 {
	if s.Tolerance == nil || *s.Tolerance < 0 {
		return DefaultTolerance
	}
	return *s.Tolerance
}

// IsMultiVariable reports whether the checks are keyed by variable name
// rather than by structural check type. The first descriptor decides.
func (s ValidationSpec) IsMultiVariable() bool {
	if s.Kind() == TypeMultiVariable {
		return true
	}
	if len(s.Checks) == 0 {
		return false
	}
	_, ok := s.Checks[0].Variable()
	return ok
}

// NormalizeType maps the accepted spellings of a validation type onto its
// canonical name: "array_check", "Array" and "array" are the same type.
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.ReplaceAll(t, "-", "_")
	t = strings.TrimSuffix(t, "_check")
	switch t {
	case "":
		return TypeValue
	case "multi_variable", "multivariable", "variables":
		return TypeMultiVariable
	}
	return t
}

// Check is one declarative check descriptor, e.g. {type: shape, expected: [5]}
// or {variable: total, type: int, expected: 10}.
type Check map[string]any

// Kind returns the descriptor's "type" field.
func (c Check) Kind() string {
	s, _ := c["type"].(string)
	return strings.ToLower(strings.TrimSpace(s))
}

// Variable returns the variable name for variable-keyed descriptors.
func (c Check) Variable() (string, bool) {
	v, ok := c["variable"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Expected returns the expected value, accepting "expected_values" as an alias.
func (c Check) Expected() (any, bool) {
	if v, ok := c["expected"]; ok {
		return v, true
	}
	v, ok := c["expected_values"]
	return v, ok
}

// Number returns a numeric parameter.
func (c Check) Number(key string) (float64, bool) {
	switch n := c[key].(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Ints returns an integer list parameter such as a shape.
func (c Check) Ints(key string) ([]int, error) {
	raw, ok := c[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	return ToInts(raw)
}

// ToInts converts a decoded list (from YAML or JSON) into []int.
func ToInts(raw any) ([]int, error) {
	switch v := raw.(type) {
	case []int:
		return v, nil
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case int64:
				out = append(out, int(n))
			case float64:
				if n != float64(int(n)) {
					return nil, fmt.Errorf("non-integer dimension %v", n)
				}
				out = append(out, int(n))
			default:
				return nil, fmt.Errorf("invalid dimension %v (%T)", e, e)
			}
		}
		return out, nil
	case int:
		return []int{v}, nil
	}
	return nil, fmt.Errorf("expected a list of integers, got %T", raw)
}
