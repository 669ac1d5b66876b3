package check

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/value"
)

// VariablesSuccess is the affirmative message of the multi-variable checker.
const VariablesSuccess = "Correct! ✅ All variables match the expected values and types."

// variableTypes are the scalar types a variable descriptor may declare.
// Any other declared type is not checked; the expected value still is.
var variableTypes = map[string]func(starlark.Value) bool{
	"int":   func(v starlark.Value) bool { _, ok := v.(starlark.Int); return ok },
	"float": func(v starlark.Value) bool { _, ok := v.(starlark.Float); return ok },
	"str":   func(v starlark.Value) bool { _, ok := v.(starlark.String); return ok },
	"bool":  func(v starlark.Value) bool { _, ok := v.(starlark.Bool); return ok },
}

// CheckVariables checks every variable-keyed descriptor against ns. Unlike
// the structural checkers it reports every failing variable, one per line.
func CheckVariables(ns starlark.StringDict, spec model.ValidationSpec) Result {
	var failures []string
	for i, c := range spec.Checks {
		name, ok := c.Variable()
		if !ok || name == "" {
			return ConfigFault("check %d has no variable name", i+1)
		}
		got, ok := ns[name]
		if !ok {
			failures = append(failures, fmt.Sprintf("Variable '%s' not found", name))
			continue
		}
		declared := c.Kind()
		if test, known := variableTypes[declared]; known {
			if !test(got) {
				failures = append(failures, fmt.Sprintf("Variable '%s' has wrong type: expected %s, got %s",
					name, declared, value.TypeName(got)))
				continue
			}
		}
		raw, ok := c.Expected()
		if !ok {
			continue
		}
		want, err := value.FromGo(raw)
		if err != nil {
			return ConfigFault("variable '%s': %v", name, err)
		}
		if !matches(got, want, spec.Tol()) {
			failures = append(failures, fmt.Sprintf("Variable '%s' has wrong value: expected %s, got %s",
				name, value.Format(want), value.Format(got)))
		}
	}
	if len(failures) > 0 {
		return Fail("%s", strings.Join(failures, "\n"))
	}
	return Pass(VariablesSuccess)
}
