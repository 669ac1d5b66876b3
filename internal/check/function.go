package check

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/runner"
	"github.com/rcliao/ds-tutor/internal/value"
)

// FunctionChecker calls a learner-defined function with each test case.
type FunctionChecker struct {
	Runner *runner.Runner
}

func (f FunctionChecker) Check(ctx context.Context, v starlark.Value, spec model.ValidationSpec) Result {
	fn, ok := v.(starlark.Callable)
	if !ok {
		return Fail("Result is not a callable function")
	}
	if len(spec.TestCases) == 0 {
		return ConfigFault("function check has no test cases")
	}
	r := f.Runner
	if r == nil {
		r = runner.New(runner.Options{})
	}
	thread, release := r.NewThread(ctx, "check", nil)
	defer release()

	for i, tc := range spec.TestCases {
		args, kwargs, err := callArgs(tc.Input)
		if err != nil {
			return ConfigFault("test case %d: %v", i+1, err)
		}
		want, err := value.FromGo(tc.Output)
		if err != nil {
			return ConfigFault("test case %d: %v", i+1, err)
		}
		got, err := call(thread, fn, args, kwargs)
		if err != nil {
			return Fail("Test case %d raised error: %v", i+1, err)
		}
		if !value.Equal(got, want) {
			return Fail("Test case %d failed: expected %s, got %s", i+1, value.Format(want), value.Format(got))
		}
	}
	return Pass("All test cases passed! ✅")
}

// call invokes fn, turning a panic in a builtin into an error.
func call(thread *starlark.Thread, fn starlark.Callable, args starlark.Tuple, kwargs []starlark.Tuple) (v starlark.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	v, err = starlark.Call(thread, fn, args, kwargs)
	if ee, ok := err.(*starlark.EvalError); ok {
		err = fmt.Errorf("%s", ee.Msg)
	}
	return v, err
}

// callArgs spreads a mapping as keyword arguments and a list as positional
// arguments; anything else is a single argument.
func callArgs(input any) (starlark.Tuple, []starlark.Tuple, error) {
	if in, ok := value.StringMap(input); ok {
		d, err := value.FromGo(in)
		if err != nil {
			return nil, nil, err
		}
		var kwargs []starlark.Tuple
		for _, kv := range d.(*starlark.Dict).Items() {
			kwargs = append(kwargs, starlark.Tuple{kv[0], kv[1]})
		}
		return nil, kwargs, nil
	}
	if in, ok := input.([]any); ok {
		args := make(starlark.Tuple, len(in))
		for i, e := range in {
			sv, err := value.FromGo(e)
			if err != nil {
				return nil, nil, err
			}
			args[i] = sv
		}
		return args, nil, nil
	}
	sv, err := value.FromGo(input)
	if err != nil {
		return nil, nil, err
	}
	return starlark.Tuple{sv}, nil, nil
}
