package np

import (
	"math"
	"strings"
	"testing"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

func run(t *testing.T, src string) starlark.StringDict {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, "test.star", src,
		starlark.StringDict{"np": NewModule()})
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	return globals
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	_, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, "test.star", src,
		starlark.StringDict{"np": NewModule()})
	if err == nil {
		t.Fatalf("expected error for %q", src)
	}
	return err
}

func TestArrayBasics(t *testing.T) {
	g := run(t, `
a = np.array([10, 20, 30, 40, 50])
shape = a.shape
size = a.size
dtype = a.dtype
total = a.sum()
avg = a.mean()
first = a[0]
`)
	a := g["a"].(*Array)
	if got := a.Shape(); len(got) != 1 || got[0] != 5 {
		t.Errorf("shape = %v, want [5]", got)
	}
	if a.DType() != Int64 {
		t.Errorf("dtype = %s, want int64", a.DType())
	}
	if g["shape"].String() != "(5,)" {
		t.Errorf("shape attr = %s", g["shape"])
	}
	if g["total"].String() != "150" {
		t.Errorf("sum = %s, want 150", g["total"])
	}
	if g["avg"].String() != "30.0" {
		t.Errorf("mean = %s, want 30.0", g["avg"])
	}
	if g["first"].String() != "10" {
		t.Errorf("a[0] = %s, want 10", g["first"])
	}
	if a.String() != "array([10, 20, 30, 40, 50])" {
		t.Errorf("String() = %s", a.String())
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		shape []int
		dtype DType
		data  []float64
	}{
		{"zeros", "x = np.zeros((3, 5))", []int{3, 5}, Float64, make([]float64, 15)},
		{"ones int", "x = np.ones(3, dtype='int')", []int{3}, Int64, []float64{1, 1, 1}},
		{"full", "x = np.full((2,), 7)", []int{2}, Int64, []float64{7, 7}},
		{"arange", "x = np.arange(5)", []int{5}, Int64, []float64{0, 1, 2, 3, 4}},
		{"arange step", "x = np.arange(1, 10, 3)", []int{3}, Int64, []float64{1, 4, 7}},
		{"linspace", "x = np.linspace(0, 1, 5)", []int{5}, Float64, []float64{0, 0.25, 0.5, 0.75, 1}},
		{"eye", "x = np.eye(2)", []int{2, 2}, Float64, []float64{1, 0, 0, 1}},
		{"nested", "x = np.array([[1, 2], [3, 4.5]])", []int{2, 2}, Float64, []float64{1, 2, 3, 4.5}},
		{"reshape", "x = np.arange(6).reshape(2, -1)", []int{2, 3}, Int64, []float64{0, 1, 2, 3, 4, 5}},
		{"module reshape", "x = np.reshape(np.arange(4), (2, 2))", []int{2, 2}, Int64, []float64{0, 1, 2, 3}},
		{"transpose", "x = np.array([[1, 2, 3], [4, 5, 6]]).T", []int{3, 2}, Int64, []float64{1, 4, 2, 5, 3, 6}},
		{"astype", "x = np.array([1.7, 2.2]).astype('int')", []int{2}, Int64, []float64{1, 2}},
		{"bools", "x = np.array([True, False])", []int{2}, Bool, []float64{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := run(t, tt.src)["x"].(*Array)
			if got := x.Shape(); len(got) != len(tt.shape) {
				t.Fatalf("shape = %v, want %v", got, tt.shape)
			} else {
				for i := range got {
					if got[i] != tt.shape[i] {
						t.Fatalf("shape = %v, want %v", got, tt.shape)
					}
				}
			}
			if x.DType() != tt.dtype {
				t.Errorf("dtype = %s, want %s", x.DType(), tt.dtype)
			}
			for i, v := range x.Data() {
				if math.Abs(v-tt.data[i]) > 1e-12 {
					t.Errorf("data[%d] = %v, want %v", i, v, tt.data[i])
				}
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	g := run(t, `
a = np.array([1, 2, 3])
doubled = (a * 2).tolist()
shifted = (10 - a).tolist()
ratio = (a / 2).tolist()
summed = (a + a).tolist()
neg = (-a).tolist()
roots = np.sqrt(np.array([4, 9])).tolist()
`)
	want := map[string]string{
		"doubled": "[2, 4, 6]",
		"shifted": "[9, 8, 7]",
		"ratio":   "[0.5, 1.0, 1.5]",
		"summed":  "[2, 4, 6]",
		"neg":     "[-1, -2, -3]",
		"roots":   "[2.0, 3.0]",
	}
	for name, w := range want {
		if got := g[name].String(); got != w {
			t.Errorf("%s = %s, want %s", name, got, w)
		}
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x = np.array([[1, 2], [3]])", "inhomogeneous"},
		{"x = np.array([1, 2]) + np.array([1, 2, 3])", "could not be broadcast"},
		{"x = np.arange(5).reshape(2, 2)", "cannot reshape"},
		{"x = np.array([1]) // 0", "division by zero"},
		{"x = np.zeros(2, dtype='complex')", "not understood"},
		{"x = np.min(np.array([]))", "zero-size"},
		{`x = np.array(["a", "b"])`, "unsupported array element of type string"},
		{`x = np.array("abc")`, "unsupported array element"},
		{`x = np.sum(["x"])`, "unsupported array element"},
		{`x = np.array([b"ab"])`, "unsupported array element of type bytes"},
	}
	for _, tt := range tests {
		err := runErr(t, tt.src)
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: error %q does not mention %q", tt.src, err, tt.want)
		}
	}
}

func TestToGo(t *testing.T) {
	a := New([]int{2, 2}, Int64, []float64{1, 2, 3, 4})
	rows, ok := a.ToGo().([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("ToGo() = %#v", a.ToGo())
	}
	if r0 := rows[0].([]any); r0[1] != int64(2) {
		t.Errorf("rows[0][1] = %#v, want int64(2)", r0[1])
	}
}
