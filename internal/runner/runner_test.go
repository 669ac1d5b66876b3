package runner

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.starlark.net/starlark"
)

func TestNamespaceIsFresh(t *testing.T) {
	r := New(Options{})
	a, b := r.Namespace(), r.Namespace()
	for _, name := range []string{"np", "numpy", "pd", "pandas", "math", "json"} {
		if !a.Has(name) {
			t.Errorf("namespace missing %q", name)
		}
	}
	a["result"] = starlark.MakeInt(1)
	if b.Has("result") {
		t.Error("namespaces share state")
	}
	if a["np"] == b["np"] {
		t.Error("library modules should not be shared between namespaces")
	}
}

func TestExecuteBindsGlobals(t *testing.T) {
	r := New(Options{})
	ns := r.Namespace()
	out := r.Execute(context.Background(), "x = 2\nresult = np.array([1, 2, 3]).sum() * x\nprint('done')", ns)
	if !out.OK() {
		t.Fatalf("unexpected fault: %v", out.Fault)
	}
	if got := ns["result"].String(); got != "12" {
		t.Errorf("result = %s, want 12", got)
	}
	if out.Stdout != "done\n" {
		t.Errorf("stdout = %q", out.Stdout)
	}
}

func TestExecuteSeesPriorBindings(t *testing.T) {
	r := New(Options{})
	ns := r.Namespace()
	if out := r.Execute(context.Background(), "data = [1, 2, 3]", ns); !out.OK() {
		t.Fatalf("setup fault: %v", out.Fault)
	}
	out := r.Execute(context.Background(), "data.append(4)\nresult = len(data)", ns)
	if !out.OK() {
		t.Fatalf("fault: %v", out.Fault)
	}
	if got := ns["result"].String(); got != "4" {
		t.Errorf("result = %s, want 4", got)
	}
}

func TestExecuteFaults(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		kind     FaultKind
		errName  string
		contains string
	}{
		{"syntax", "result = (1 +", SyntaxFault, "SyntaxError", "line"},
		{"undefined name", "result = undefined_var + 1", NameFault, "NameError", "undefined_var"},
		{"zero division", "result = 1 // 0", RuntimeFault, "ZeroDivisionError", "division by zero"},
		{"index", "result = [1, 2][5]", RuntimeFault, "IndexError", "out of range"},
		{"key", "result = {'a': 1}['b']", RuntimeFault, "KeyError", "not in dict"},
		{"attribute", "result = np.array([1]).nope", RuntimeFault, "AttributeError", "nope"},
		{"type", "result = 'a' + 1", RuntimeFault, "TypeError", "unknown binary op"},
		{"fail", "fail('boom')", RuntimeFault, "RuntimeError", "boom"},
		{"runaway recursion", "def f(n):\n    return f(n + 1)\nresult = f(0)", RuntimeFault, "RecursionError", "maximum recursion depth"},
		{"array comparison", "result = np.array([1, 2]) >= 1", RuntimeFault, "TypeError", "not implemented"},
		{"unknown module", "import os\nresult = 1", RuntimeFault, "ModuleNotFoundError", "'os'"},
		{"unknown member", "from math import nope\nresult = 1", RuntimeFault, "ImportError", "nope"},
		{"sum of strings", "result = sum(['a', 'b'])", RuntimeFault, "TypeError", "sum"},
		{"local before assignment", "def f():\n    y = x\n    x = 1\n    return y\nresult = f()", NameFault, "NameError", "referenced before assignment"},
	}
	r := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := r.Namespace()
			out := r.Execute(context.Background(), tt.code, ns)
			if out.OK() {
				t.Fatal("expected a fault")
			}
			if out.Fault.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", out.Fault.Kind, tt.kind)
			}
			if out.Fault.Name != tt.errName {
				t.Errorf("name = %q, want %q", out.Fault.Name, tt.errName)
			}
			if !strings.Contains(out.Fault.Message, tt.contains) {
				t.Errorf("message %q does not contain %q", out.Fault.Message, tt.contains)
			}
			if ns.Has("result") {
				t.Error("faulted execution must not bind result")
			}
		})
	}
}

func TestExecuteCancelled(t *testing.T) {
	r := New(Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := r.Execute(ctx, "x = 0\nwhile True:\n    x += 1", r.Namespace())
	if out.OK() {
		t.Fatal("expected the loop to be cancelled")
	}
	if out.Fault.Name != "CancelledError" {
		t.Errorf("name = %q, want CancelledError", out.Fault.Name)
	}
}

func TestExecuteStepBudget(t *testing.T) {
	r := New(Options{MaxSteps: 1000})
	out := r.Execute(context.Background(), "x = 0\nwhile True:\n    x += 1", r.Namespace())
	if out.OK() {
		t.Fatal("expected the step budget to stop the loop")
	}
	if !strings.Contains(out.Fault.Message, "too many steps") {
		t.Errorf("message = %q", out.Fault.Message)
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	r := New(Options{})
	ns := r.Namespace()
	ns["explode"] = starlark.NewBuiltin("explode", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		panic("kaboom")
	})
	out := r.Execute(context.Background(), "explode()", ns)
	if out.OK() || out.Fault.Kind != RuntimeFault || !strings.Contains(out.Fault.Message, "kaboom") {
		t.Errorf("outcome = %+v", out.Fault)
	}
}

func TestDefaultLimits(t *testing.T) {
	r := New(Options{})
	if r.opts.MaxSteps != DefaultMaxSteps || r.opts.MaxDepth != DefaultMaxDepth {
		t.Fatalf("limits = %+v", r.opts)
	}
	out := r.Execute(context.Background(), "x = 0\nwhile True:\n    x += 1", r.Namespace())
	if out.OK() || out.Fault.Name != "CancelledError" || !strings.Contains(out.Fault.Message, "too many steps") {
		t.Errorf("unbounded loop outcome = %+v", out.Fault)
	}
}

func TestRecursionWithinDepth(t *testing.T) {
	r := New(Options{})
	ns := r.Namespace()
	out := r.Execute(context.Background(), "def fact(n):\n    if n <= 1:\n        return 1\n    return n * fact(n - 1)\nresult = fact(200)", ns)
	if !out.OK() {
		t.Fatalf("fault: %v", out.Fault)
	}
	if got := ns["result"].(starlark.Int).BigInt().BitLen(); got < 1000 {
		t.Errorf("fact(200) has %d bits", got)
	}
}

func TestPythonBuiltins(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"scores = [85, 92, 78]\nresult = sum(scores) / len(scores)", "85.0"},
		{"result = sum([1, 2, 3])", "6"},
		{"result = sum([0.5, 0.25], 1)", "1.75"},
		{"result = sum(np.array([1, 2, 3]))", "6"},
		{"result = sum([])", "0"},
		{"result = round(2.5)", "2"},
		{"result = round(3.5)", "4"},
		{"result = round(-1.7)", "-2"},
		{"result = round(3.14159, 2)", "3.14"},
		{"result = round(7)", "7"},
		{"result = round(1234, -2)", "1200"},
	}
	r := New(Options{})
	for _, tt := range tests {
		ns := r.Namespace()
		out := r.Execute(context.Background(), tt.code, ns)
		if !out.OK() {
			t.Errorf("%q: fault %v", tt.code, out.Fault)
			continue
		}
		if got := ns["result"].String(); got != tt.want {
			t.Errorf("%q: result = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestImportsOfKnownModules(t *testing.T) {
	code := `import numpy as np
import pandas as pd, math
from math import sqrt, pi as PI  # constants
import json as j

result = np.array([1, 2]).sum() + sqrt(4) + int(PI) + len(j.encode([1]))
oops = undefined_name`
	r := New(Options{})
	ns := r.Namespace()
	out := r.Execute(context.Background(), code, ns)
	if out.OK() {
		t.Fatal("expected the undefined name to fault")
	}
	if out.Fault.Kind != NameFault || !strings.Contains(out.Fault.Message, "undefined_name") {
		t.Errorf("fault = %+v", out.Fault)
	}

	ns = r.Namespace()
	out = r.Execute(context.Background(), strings.TrimSuffix(code, "\noops = undefined_name"), ns)
	if !out.OK() {
		t.Fatalf("fault: %v", out.Fault)
	}
	if got := ns["result"].String(); got != "11.0" {
		t.Errorf("result = %s, want 11.0", got)
	}
}

func TestImportLinePositions(t *testing.T) {
	r := New(Options{})
	out := r.Execute(context.Background(), "import numpy as np\n\nresult = 1 + * 2", r.Namespace())
	if out.OK() || out.Fault.Kind != SyntaxFault {
		t.Fatalf("outcome = %+v", out.Fault)
	}
	if !strings.Contains(out.Fault.Message, "line 3") {
		t.Errorf("message %q should point at line 3", out.Fault.Message)
	}
}
