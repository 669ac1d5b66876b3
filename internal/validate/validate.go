// Package validate runs submitted code and checks what it produced.
package validate

import (
	"context"
	"fmt"

	"github.com/rcliao/ds-tutor/internal/check"
	"github.com/rcliao/ds-tutor/internal/logger"
	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/runner"
)

// ResultName is the binding single-value exercises must assign.
const ResultName = "result"

// MissingResult is reported when code ran but bound no result.
const MissingResult = "Please store your answer in a variable called 'result'"

// Validator executes code in a fresh namespace per call and dispatches the
// produced value to the checker selected by the validation spec. It keeps
// no state between calls.
type Validator struct {
	runner   *runner.Runner
	checkers check.Set
	log      *logger.Logger
}

// New creates a validator. A nil logger discards output.
func New(r *runner.Runner, log *logger.Logger) *Validator {
	if r == nil {
		r = runner.New(runner.Options{})
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Validator{runner: r, checkers: check.Default(r), log: log}
}

// Validate checks code against spec. reference is the reference solution;
// when spec is a value check without a declared expected value, the
// reference's result becomes the expected value.
func (v *Validator) Validate(ctx context.Context, code, reference string, spec model.ValidationSpec) check.Result {
	return v.validate(ctx, "", code, reference, spec)
}

// ValidateExercise checks code against an exercise, running its setup code
// into the namespace first.
func (v *Validator) ValidateExercise(ctx context.Context, ex *model.Exercise, code string) check.Result {
	return v.validate(ctx, ex.SetupCode, code, ex.Solution, ex.Validation)
}

func (v *Validator) validate(ctx context.Context, setup, code, reference string, spec model.ValidationSpec) check.Result {
	ns := v.runner.Namespace()
	if setup != "" {
		if out := v.runner.Execute(ctx, setup, ns); !out.OK() {
			return check.ConfigFault("setup code failed: %v", out.Fault)
		}
	}
	out := v.runner.Execute(ctx, code, ns)
	if !out.OK() {
		v.log.Debug("submission faulted", "kind", out.Fault.Kind.String(), "error", out.Fault.Name)
		return FaultResult(out.Fault)
	}

	if spec.IsMultiVariable() {
		return check.CheckVariables(ns, spec)
	}
	got, ok := ns[ResultName]
	if !ok {
		return check.Fail(MissingResult)
	}
	checker, ok := v.checkers.Lookup(spec.Type)
	if !ok {
		return check.ConfigFault("Unknown validation type: %s", spec.Type)
	}
	if spec.Kind() == model.TypeValue && spec.Expected == nil && reference != "" {
		want, err := v.referenceResult(ctx, setup, reference)
		if err != nil {
			return check.ConfigFault("reference solution: %v", err)
		}
		spec.Expected = want
	}
	res := checker.Check(ctx, got, spec)
	if res.Fault != nil {
		v.log.Warn("validation spec fault", "type", spec.Kind(), "error", res.Fault)
	}
	return res
}

// referenceResult runs the reference solution in its own namespace.
func (v *Validator) referenceResult(ctx context.Context, setup, reference string) (any, error) {
	ns := v.runner.Namespace()
	if setup != "" {
		if out := v.runner.Execute(ctx, setup, ns); !out.OK() {
			return nil, out.Fault
		}
	}
	if out := v.runner.Execute(ctx, reference, ns); !out.OK() {
		return nil, out.Fault
	}
	want, ok := ns[ResultName]
	if !ok {
		return nil, fmt.Errorf("reference solution does not bind %s", ResultName)
	}
	return want, nil
}

// FaultResult turns an execution fault into a failing verdict.
func FaultResult(f *runner.Fault) check.Result {
	switch f.Kind {
	case runner.SyntaxFault:
		return check.Fail("Syntax Error: %s\nCheck your code for typos.", f.Message)
	case runner.NameFault:
		return check.Fail("Name Error: %s\nMake sure all variables are defined.", f.Message)
	}
	return check.Fail("%s: %s", f.Name, f.Message)
}
