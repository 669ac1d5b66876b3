package pd

import (
	"math"
	"strings"
	"testing"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/rcliao/ds-tutor/internal/lib/np"
)

func exec(t *testing.T, src string) (starlark.StringDict, error) {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	opts := &syntax.FileOptions{TopLevelControl: true, GlobalReassign: true}
	return starlark.ExecFileOptions(opts, thread, "test.star", src,
		starlark.StringDict{"pd": NewModule(), "np": np.NewModule()})
}

func run(t *testing.T, src string) starlark.StringDict {
	t.Helper()
	g, err := exec(t, src)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	return g
}

const people = `
df = pd.DataFrame({
    "name": ["ann", "bob", "cy", "dee"],
    "age": [31, 25, 42, 25],
    "score": [88.5, None, 75.0, 91.0],
})
`

func TestDataFrameFromDict(t *testing.T) {
	g := run(t, people)
	df := g["df"].(*DataFrame)
	if got := df.Shape(); got[0] != 4 || got[1] != 3 {
		t.Errorf("shape = %v, want [4 3]", got)
	}
	if got := strings.Join(df.Columns(), ","); got != "name,age,score" {
		t.Errorf("columns = %s", got)
	}
	tests := map[string]string{"name": Object, "age": Int64, "score": Float64}
	for col, want := range tests {
		s, ok := df.Column(col)
		if !ok {
			t.Fatalf("column %q missing", col)
		}
		if s.DType() != want {
			t.Errorf("%s dtype = %s, want %s", col, s.DType(), want)
		}
	}
	if !df.HasNulls() {
		t.Error("expected HasNulls for a None score")
	}
	score, _ := df.Column("score")
	if f := float64(score.Values()[1].(starlark.Float)); !math.IsNaN(f) {
		t.Errorf("None in float column should become NaN, got %v", f)
	}
}

func TestDataFrameConstructors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		rows    int
		columns string
	}{
		{"records", `df = pd.DataFrame([{"a": 1, "b": 2}, {"a": 3}])`, 2, "a,b"},
		{"rows with names", `df = pd.DataFrame([[1, 2], [3, 4], [5, 6]], columns=["x", "y"])`, 3, "x,y"},
		{"array", `df = pd.DataFrame(np.zeros((2, 3)))`, 2, "0,1,2"},
		{"empty", `df = pd.DataFrame(columns=["a"])`, 0, "a"},
		{"scalar broadcast", `df = pd.DataFrame({"a": [1, 2], "b": "x"})`, 2, "a,b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df := run(t, tt.src)["df"].(*DataFrame)
			if df.Rows() != tt.rows {
				t.Errorf("rows = %d, want %d", df.Rows(), tt.rows)
			}
			if got := strings.Join(df.Columns(), ","); got != tt.columns {
				t.Errorf("columns = %s, want %s", got, tt.columns)
			}
		})
	}
}

func TestDataFrameOperations(t *testing.T) {
	g := run(t, people+`
adults = df[df["age"].gt(30)]
clean = df.dropna()
filled = df.fillna(0)
by_age = df.sort_values("age")
top = df.head(2)
ages = df["age"].tolist()
mean_age = df["age"].mean()
total_score = df["score"].sum()
counts = df.count()
df["senior"] = df["age"].ge(40)
names = df[["name"]]
grouped = df.groupby("age")["score"].mean()
renamed = df.rename(columns={"age": "years"})
`)
	check := func(name string, rows int) {
		t.Helper()
		if got := g[name].(*DataFrame).Rows(); got != rows {
			t.Errorf("%s rows = %d, want %d", name, got, rows)
		}
	}
	check("adults", 2)
	check("clean", 3)
	check("filled", 4)
	check("top", 2)

	if g["filled"].(*DataFrame).HasNulls() {
		t.Error("fillna left nulls behind")
	}
	sorted := g["by_age"].(*DataFrame)
	age, _ := sorted.Column("age")
	if got := age.Values()[0].String(); got != "25" {
		t.Errorf("first sorted age = %s, want 25", got)
	}
	if got := g["ages"].String(); got != "[31, 25, 42, 25]" {
		t.Errorf("ages = %s", got)
	}
	if got := g["mean_age"].String(); got != "30.75" {
		t.Errorf("mean age = %s, want 30.75", got)
	}
	if got := g["total_score"].String(); got != "254.5" {
		t.Errorf("score sum = %s, want 254.5 (nulls skipped)", got)
	}
	if got := g["df"].(*DataFrame).Columns(); len(got) != 4 || got[3] != "senior" {
		t.Errorf("columns after assignment = %v", got)
	}
	if got := g["names"].(*DataFrame).Columns(); len(got) != 1 {
		t.Errorf("column selection = %v", got)
	}
	grouped := g["grouped"].(*Series)
	if len(grouped.Values()) != 3 {
		t.Fatalf("groups = %d, want 3", len(grouped.Values()))
	}
	if got := grouped.Values()[0].String(); got != "91.0" {
		t.Errorf("mean score for age 25 = %s, want 91.0", got)
	}
	if _, ok := g["renamed"].(*DataFrame).Column("years"); !ok {
		t.Error("rename did not apply")
	}
}

func TestDataFrameErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`df = pd.DataFrame({"a": [1, 2], "b": [1]})`, "same length"},
		{people + `x = df["missing"]`, "missing"},
		{people + `x = df.sort_values("nope")`, "nope"},
		{people + `df["x"] = [1, 2]`, "does not match"},
		{`df = pd.DataFrame([[1, 2], [3]])`, "row 1"},
	}
	for _, tt := range tests {
		_, err := exec(t, tt.src)
		if err == nil {
			t.Errorf("expected error for %q", tt.src)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("error %q does not mention %q", err, tt.want)
		}
	}
}

func TestValuesAttr(t *testing.T) {
	g := run(t, `
nums = pd.DataFrame({"a": [1, 2], "b": [3, 4]}).values
mixed = pd.DataFrame({"a": [1, 2], "b": ["x", "y"]}).values
`)
	arr, ok := g["nums"].(*np.Array)
	if !ok {
		t.Fatalf("numeric values = %s, want ndarray", g["nums"].Type())
	}
	if got := arr.String(); got != "array([[1, 3], [2, 4]])" {
		t.Errorf("values = %s", got)
	}
	if got := g["mixed"].String(); got != `[[1, "x"], [2, "y"]]` {
		t.Errorf("mixed values = %s", got)
	}
}

func TestSeriesArithmetic(t *testing.T) {
	g := run(t, `
s = pd.Series([1, 2, None])
doubled = (s * 2).tolist()
mask = s.notnull() & s.gt(1)
picked = s[mask].tolist()
counts = pd.Series(["a", "b", "a"]).value_counts()
`)
	doubled := g["doubled"].(*starlark.List)
	if doubled.Index(0).String() != "2.0" || !math.IsNaN(float64(doubled.Index(2).(starlark.Float))) {
		t.Errorf("doubled = %s", doubled)
	}
	if got := g["picked"].String(); got != "[2.0]" {
		t.Errorf("picked = %s, want [2.0]", got)
	}
	counts := g["counts"].(*Series)
	if got := counts.Values()[0].String(); got != "2" {
		t.Errorf("count of a = %s, want 2", got)
	}
}

func TestTruthiness(t *testing.T) {
	g := run(t, people+`
full = bool(df)
empty = bool(pd.DataFrame({}))
no_rows = bool(df[df["age"].gt(100)])
series = bool(df["age"])
`)
	for name, want := range map[string]bool{"full": true, "empty": false, "no_rows": false, "series": true} {
		if got := bool(g[name].(starlark.Bool)); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}
