package check

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/runner"
)

func eval(t *testing.T, code string) starlark.StringDict {
	t.Helper()
	r := runner.New(runner.Options{})
	ns := r.Namespace()
	if out := r.Execute(context.Background(), code, ns); !out.OK() {
		t.Fatalf("execute %q: %v", code, out.Fault)
	}
	return ns
}

func result(t *testing.T, code string) starlark.Value {
	t.Helper()
	v, ok := eval(t, code)["result"]
	if !ok {
		t.Fatalf("%q did not bind result", code)
	}
	return v
}

func tol(f float64) *float64 { return &f }

type checkCase struct {
	name    string
	code    string
	spec    model.ValidationSpec
	correct bool
	message string
}

func runCases(t *testing.T, tests []checkCase) {
	t.Helper()
	set := Default(runner.New(runner.Options{}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := set.Lookup(tt.spec.Type)
			if !ok {
				t.Fatalf("no checker for %q", tt.spec.Type)
			}
			res := c.Check(context.Background(), result(t, tt.code), tt.spec)
			if res.Correct != tt.correct {
				t.Errorf("correct = %v, want %v (message %q)", res.Correct, tt.correct, res.Message)
			}
			if !strings.Contains(res.Message, tt.message) {
				t.Errorf("message %q does not contain %q", res.Message, tt.message)
			}
			if res.Message == "" {
				t.Error("message must never be empty")
			}
		})
	}
}

func TestValueChecker(t *testing.T) {
	runCases(t, []checkCase{
		{"exact int", "result = 42", model.ValidationSpec{Expected: 42}, true, "Correct"},
		{"within tolerance", "result = 3.1416", model.ValidationSpec{Expected: 3.14159}, true, "Correct"},
		{"boundary inclusive", "result = 1.5", model.ValidationSpec{Expected: 1.0, Tolerance: tol(0.5)}, true, "Correct"},
		{"outside tolerance", "result = 1.01", model.ValidationSpec{Expected: 1.0}, false, "Value mismatch: got 1.01, expected 1.0"},
		{"int against float", "result = 10", model.ValidationSpec{Expected: 10.0}, true, "Correct"},
		{"type mismatch", "result = '42'", model.ValidationSpec{Expected: 42}, false, "Type mismatch: got str, expected int"},
		{"string", "result = 'abc'", model.ValidationSpec{Expected: "abc"}, true, "Correct"},
		{"string mismatch", "result = 'abd'", model.ValidationSpec{Expected: "abc"}, false, `got "abd", expected "abc"`},
		{"list", "result = [1, 2, 3]", model.ValidationSpec{Expected: []any{1, 2, 3}}, true, "Correct"},
		{"tuple against list", "result = (1, 2)", model.ValidationSpec{Expected: []any{1, 2}}, true, "Correct"},
		{"dict", "result = {'a': 1}", model.ValidationSpec{Expected: map[string]any{"a": 1}}, true, "Correct"},
		{"bool is not a number", "result = True", model.ValidationSpec{Expected: 1}, false, "Type mismatch"},
		{"missing expected", "result = 1", model.ValidationSpec{}, false, "no expected value"},
	})
}

func TestValueCheckerAcceptsStarlarkExpected(t *testing.T) {
	want := result(t, "result = np.array([1, 2, 3])")
	got := result(t, "result = np.arange(1, 4)")
	res := ValueChecker{}.Check(context.Background(), got, model.ValidationSpec{Expected: want})
	if !res.Correct {
		t.Errorf("equal arrays rejected: %s", res.Message)
	}
}

func TestArrayChecker(t *testing.T) {
	shapeAndValues := model.ValidationSpec{Type: "array_check", Checks: []model.Check{
		{"type": "shape", "expected": []any{5}},
		{"type": "values", "expected": []any{10, 20, 30, 40, 50}},
	}}
	values := func(expected any) model.ValidationSpec {
		return model.ValidationSpec{Type: "array", Checks: []model.Check{{"type": "values", "expected": expected}}}
	}
	runCases(t, []checkCase{
		{"shape and values", "result = np.array([10, 20, 30, 40, 50])", shapeAndValues, true, "Correct"},
		{"shape mismatch", "result = np.array([10, 20, 30])", shapeAndValues, false, "Shape mismatch: got (3,), expected (5,)"},
		{"close enough", "result = np.array([1.0000001])", values([]any{1.0}), true, "Correct"},
		{"not close", "result = np.array([1.001])", values([]any{1.0}), false, "Values don't match"},
		{"scalar broadcast", "result = np.zeros(4)", values(0), true, "Correct"},
		{"values shape differs", "result = np.array([1, 2])", values([]any{1, 2, 3}), false, "Values don't match"},
		{"dtype", "result = np.array([1.5])", model.ValidationSpec{Type: "array", Checks: []model.Check{{"type": "dtype", "expected": "float64"}}}, true, "Correct"},
		{"dtype mismatch", "result = np.array([1])", model.ValidationSpec{Type: "array", Checks: []model.Check{{"type": "dtype", "expected": "float"}}}, false, "Dtype mismatch: got int64, expected float64"},
		{"min", "result = np.array([3, -1])", model.ValidationSpec{Type: "array", Checks: []model.Check{{"type": "min_max", "min": 0}}}, false, "Minimum value -1 is below expected 0"},
		{"max", "result = np.array([3, 12])", model.ValidationSpec{Type: "array", Checks: []model.Check{{"type": "min_max", "min": 0, "max": 10}}}, false, "Maximum value 12 is above expected 10"},
		{"nan in bounds", "result = np.array([1.0, np.nan])", model.ValidationSpec{Type: "array", Checks: []model.Check{{"type": "min_max", "min": 0, "max": 10}}}, false, "Array contains NaN values"},
		{"not an array", "result = [10, 20, 30, 40, 50]", shapeAndValues, false, "Expected numpy array, got list"},
	})
}

func TestDataFrameChecker(t *testing.T) {
	const frame = `result = pd.DataFrame({"name": ["a", "b"], "score": [1.5, 2.0]})`
	spec := func(checks ...model.Check) model.ValidationSpec {
		return model.ValidationSpec{Type: "dataframe_check", Checks: checks}
	}
	runCases(t, []checkCase{
		{"all pass", frame, spec(
			model.Check{"type": "shape", "expected": []any{2, 2}},
			model.Check{"type": "columns", "expected": []any{"name", "score"}},
			model.Check{"type": "dtypes", "expected": map[string]any{"score": "float64", "name": "object"}},
			model.Check{"type": "values", "expected_values": []any{[]any{"a", 1.5}, []any{"b", 2}}},
			model.Check{"type": "not_empty"},
			model.Check{"type": "no_nulls"},
		), true, "Correct"},
		{"shape", frame, spec(model.Check{"type": "shape", "expected": []any{3, 2}}), false, "Shape mismatch: got (2, 2), expected (3, 2)"},
		{"column order", frame, spec(model.Check{"type": "columns", "expected": []any{"score", "name"}}), false, "Column mismatch: got ['name', 'score'], expected ['score', 'name']"},
		{"missing column", frame, spec(model.Check{"type": "dtypes", "expected": map[string]any{"age": "int"}}), false, "Column 'age' not found"},
		{"wrong dtype", frame, spec(model.Check{"type": "dtypes", "expected": map[string]any{"score": "int"}}), false, "Column 'score' has wrong dtype"},
		{"values", frame, spec(model.Check{"type": "values", "expected": []any{[]any{"a", 1.5}}}), false, "Values don't match"},
		{"empty", `result = pd.DataFrame(columns=["a"])`, spec(model.Check{"type": "not_empty"}), false, "DataFrame is empty"},
		{"nulls", `result = pd.DataFrame({"a": [1, None]})`, spec(model.Check{"type": "no_nulls"}), false, "DataFrame contains null values"},
		{"first failure wins", frame, spec(
			model.Check{"type": "not_empty"},
			model.Check{"type": "shape", "expected": []any{1, 1}},
			model.Check{"type": "columns", "expected": []any{"x"}},
		), false, "Shape mismatch"},
		{"not a frame", "result = {'a': [1]}", spec(model.Check{"type": "not_empty"}), false, "Expected pandas DataFrame, got dict"},
	})
}

func TestTypeAndShapeCheckers(t *testing.T) {
	runCases(t, []checkCase{
		{"frame", `result = pd.DataFrame({"a": [1]})`, model.ValidationSpec{Type: "type", ExpectedType: "DataFrame"}, true, "Correct"},
		{"series alias", `result = pd.Series([1, 2])`, model.ValidationSpec{Type: "type", ExpectedType: "labeled-series"}, true, "Correct"},
		{"mapping", "result = {}", model.ValidationSpec{Type: "type_check", ExpectedType: "mapping"}, true, "Correct"},
		{"int is not float", "result = 1", model.ValidationSpec{Type: "type", ExpectedType: "float"}, false, "Type mismatch: got int, expected float"},
		{"unknown type", "result = 1", model.ValidationSpec{Type: "type", ExpectedType: "complex"}, false, "Unknown expected type: complex"},
		{"array shape", "result = np.zeros((2, 3))", model.ValidationSpec{Type: "shape", ExpectedShape: []int{2, 3}}, true, "Correct"},
		{"frame shape", `result = pd.DataFrame({"a": [1, 2]})`, model.ValidationSpec{Type: "shape", ExpectedShape: []int{2, 1}}, true, "Correct"},
		{"shape mismatch", "result = np.zeros(3)", model.ValidationSpec{Type: "shape", ExpectedShape: []int{5}}, false, "got (3,), expected (5,)"},
		{"no shape", "result = 3", model.ValidationSpec{Type: "shape", ExpectedShape: []int{1}}, false, "Result has no shape attribute (type: int)"},
	})
}

func TestFunctionChecker(t *testing.T) {
	const add = "def add(a, b):\n    return a + b\nresult = add"
	cases := []model.TestCase{
		{Input: []any{1, 2}, Output: 3},
		{Input: map[string]any{"a": 2, "b": 5}, Output: 7},
	}
	runCases(t, []checkCase{
		{"all pass", add, model.ValidationSpec{Type: "function", TestCases: cases}, true, "All test cases passed!"},
		{"single argument", "result = lambda x: x * x", model.ValidationSpec{Type: "function", TestCases: []model.TestCase{{Input: 4, Output: 16}}}, true, "All test cases passed!"},
		{"second case fails", "def add(a, b):\n    return a + b if a < 2 else 0\nresult = add", model.ValidationSpec{Type: "function", TestCases: cases}, false, "Test case 2 failed: expected 7, got 0"},
		{"raises", "def div(a, b):\n    return a // b\nresult = div", model.ValidationSpec{Type: "function", TestCases: []model.TestCase{{Input: []any{1, 0}, Output: 0}}}, false, "Test case 1 raised error"},
		{"not callable", "result = 5", model.ValidationSpec{Type: "function", TestCases: cases}, false, "Result is not a callable function"},
	})
}

func TestUnknownDescriptorIsConfigFault(t *testing.T) {
	v := result(t, "result = np.zeros(2)")
	spec := model.ValidationSpec{Type: "array", Checks: []model.Check{{"type": "sorted"}}}
	res := ArrayChecker{}.Check(context.Background(), v, spec)
	if res.Correct {
		t.Fatal("unknown descriptor must not pass")
	}
	if !errors.Is(res.Fault, ErrConfig) {
		t.Errorf("fault = %v, want ErrConfig", res.Fault)
	}
	if !strings.Contains(res.Message, "sorted") {
		t.Errorf("message %q should name the descriptor", res.Message)
	}
}

func TestSetLookupAliases(t *testing.T) {
	set := Default(nil)
	for _, kind := range []string{"", "value", "array_check", "DataFrame", "dataframe_check", "type", "function_check", "shape"} {
		if _, ok := set.Lookup(kind); !ok {
			t.Errorf("Lookup(%q) found nothing", kind)
		}
	}
	if _, ok := set.Lookup("regex"); ok {
		t.Error("Lookup(regex) should fail")
	}
}

func TestCheckVariables(t *testing.T) {
	ns := eval(t, "total = 10\nmean = 2.5\nlabel = 'x'\nflag = True")
	tests := []struct {
		name    string
		checks  []model.Check
		correct bool
		lines   []string
	}{
		{"all match", []model.Check{
			{"variable": "total", "type": "int", "expected": 10},
			{"variable": "mean", "type": "float", "expected": 2.5004},
			{"variable": "label", "type": "str", "expected": "x"},
			{"variable": "flag", "type": "bool", "expected": true},
		}, true, []string{VariablesSuccess}},
		{"accumulates", []model.Check{
			{"variable": "total", "type": "str"},
			{"variable": "mean", "expected": 3.0},
			{"variable": "missing"},
		}, false, []string{
			"Variable 'total' has wrong type: expected str, got int",
			"Variable 'mean' has wrong value: expected 3.0, got 2.5",
			"Variable 'missing' not found",
		}},
		{"value only", []model.Check{{"variable": "total", "expected": 10.0}}, true, []string{VariablesSuccess}},
		{"undeclared type skips the type test", []model.Check{
			{"variable": "total", "type": "list", "expected": 10},
			{"variable": "label", "type": "tuple", "expected": "y"},
		}, false, []string{"Variable 'label' has wrong value: expected \"y\", got \"x\""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckVariables(ns, model.ValidationSpec{Checks: tt.checks})
			if res.Correct != tt.correct {
				t.Errorf("correct = %v, want %v (%q)", res.Correct, tt.correct, res.Message)
			}
			got := strings.Split(res.Message, "\n")
			if len(got) != len(tt.lines) {
				t.Fatalf("message lines = %q, want %q", got, tt.lines)
			}
			for i := range got {
				if got[i] != tt.lines[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.lines[i])
				}
			}
		})
	}
}

func yamlSpec(src string) model.ValidationSpec {
	var spec model.ValidationSpec
	if err := yaml.Unmarshal([]byte(src), &spec); err != nil {
		panic(err)
	}
	return spec
}

func TestDecodedSpecs(t *testing.T) {
	const frame = `result = pd.DataFrame({"product": ["pen", "ink"], "price": [1.5, 7.25]})`
	dtypes := yamlSpec(`
type: dataframe_check
checks:
  - type: dtypes
    expected:
      product: object
      price: float64
`)
	wrongDType := yamlSpec(`
type: dataframe_check
checks:
  - type: dtypes
    expected: {price: int}
`)
	dict := yamlSpec(`
expected:
  a: 1
  b: [1, 2]
  nested: {c: x}
`)
	arrayValues := yamlSpec(`
type: array
checks:
  - type: shape
    expected: [2, 2]
  - type: values
    expected: [[1, 2], [3, 4]]
`)
	function := yamlSpec(`
type: function_check
test_cases:
  - input: [1, 2]
    output: 3
  - input: {a: 2, b: 5}
    output: 7
  - input: {b: 1, a: 10}
    output: 11
`)
	runCases(t, []checkCase{
		{"dtypes mapping", frame, dtypes, true, "Correct"},
		{"dtypes mismatch", frame, wrongDType, false, "Column 'price' has wrong dtype"},
		{"dict expected", "result = {'a': 1, 'b': [1, 2], 'nested': {'c': 'x'}}", dict, true, "Correct"},
		{"dict mismatch", "result = {'a': 1, 'b': [1, 2], 'nested': {'c': 'y'}}", dict, false, "Value mismatch"},
		{"nested array values", "result = np.arange(1, 5).reshape(2, 2)", arrayValues, true, "Correct"},
		{"function input mappings", "def add(a, b):\n    return a + b\nresult = add", function, true, "All test cases passed!"},
	})
}

func TestDecodedVariableSpecs(t *testing.T) {
	spec := yamlSpec(`
checks:
  - variable: cfg
    expected: {a: 1, b: [x, y]}
  - variable: total
    type: int
    expected: 6
`)
	ns := eval(t, "cfg = {'a': 1, 'b': ['x', 'y']}\ntotal = sum([1, 2, 3])")
	if res := CheckVariables(ns, spec); !res.Correct {
		t.Errorf("decoded variable checks rejected: %s (fault %v)", res.Message, res.Fault)
	}
	ns["cfg"] = starlark.NewDict(0)
	if res := CheckVariables(ns, spec); res.Correct || res.Fault != nil {
		t.Errorf("empty dict: correct=%v fault=%v", res.Correct, res.Fault)
	}
}
