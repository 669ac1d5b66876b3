// Package check implements the rule checkers that decide whether a value
// produced by submitted code satisfies an exercise's validation spec.
package check

import (
	"context"
	"errors"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/runner"
)

// Success is the default affirmative message.
const Success = "Correct! ✅"

// ErrConfig marks a broken validation spec: an unknown type or descriptor,
// or a missing parameter. It is an authoring bug, not a learner mistake.
var ErrConfig = errors.New("invalid validation spec")

// Result is a verdict with its learner-facing message.
type Result struct {
	Correct bool   `json:"is_correct"`
	Message string `json:"message"`
	Fault   error  `json:"-"`
}

// Pass returns a correct result.
func Pass(msg string) Result { return Result{Correct: true, Message: msg} }

// Fail returns an incorrect result.
func Fail(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// ConfigFault returns an incorrect result flagged as a configuration fault.
func ConfigFault(format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	return Result{Message: msg, Fault: fmt.Errorf("%w: %s", ErrConfig, msg)}
}

// Checker checks one value against a validation spec.
type Checker interface {
	Check(ctx context.Context, v starlark.Value, spec model.ValidationSpec) Result
}

// Set maps canonical validation types to checkers.
type Set map[string]Checker

// Default returns the checker for every structural type. The runner is used
// to call learner-defined functions.
func Default(r *runner.Runner) Set {
	return Set{
		model.TypeValue:     ValueChecker{},
		model.TypeDataFrame: DataFrameChecker{},
		model.TypeArray:     ArrayChecker{},
		model.TypeType:      TypeChecker{},
		model.TypeFunction:  FunctionChecker{Runner: r},
		model.TypeShape:     ShapeChecker{},
	}
}

// Lookup finds the checker for a validation type, accepting its aliases.
func (s Set) Lookup(kind string) (Checker, bool) {
	c, ok := s[model.NormalizeType(kind)]
	return c, ok
}

// descriptorFunc checks one descriptor. ok=false stops the run with res.
type descriptorFunc[T any] func(v T, c model.Check) (res Result, ok bool)

// runDescriptors applies descriptors in declaration order; the first failure
// wins.
func runDescriptors[T any](v T, checks []model.Check, table map[string]descriptorFunc[T], kind string) Result {
	for _, c := range checks {
		fn, ok := table[c.Kind()]
		if !ok {
			return ConfigFault("Unknown %s check: %q", kind, c.Kind())
		}
		if res, ok := fn(v, c); !ok {
			return res
		}
	}
	return Pass(Success)
}
