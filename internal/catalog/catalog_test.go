package catalog

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/runner"
	"github.com/rcliao/ds-tutor/internal/validate"
)

func TestEmbeddedCurriculum(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	topics := c.Topics()
	if len(topics) == 0 || topics[0].ID != "python" {
		t.Fatalf("topics = %+v", topics)
	}
	for _, topic := range []string{"python", "numpy", "pandas"} {
		if len(c.AllLessons(topic)) < 3 {
			t.Errorf("%s has %d lessons, want at least 3", topic, len(c.AllLessons(topic)))
		}
	}
	first, ok := c.FirstLesson("numpy")
	if !ok || first.ID != "numpy_01" {
		t.Fatalf("first numpy lesson = %+v", first)
	}
	if first.Exercise.ID != "numpy_01" {
		t.Errorf("exercise id should default to the lesson id, got %q", first.Exercise.ID)
	}
	if _, ok := c.FirstLesson("eda"); ok {
		t.Error("locked topic without lessons should have no first lesson")
	}
}

func TestEmbeddedSolutionsPass(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v := validate.New(runner.New(runner.Options{MaxSteps: 1_000_000}), nil)
	for _, topic := range c.Topics() {
		for _, l := range c.AllLessons(topic.ID) {
			if l.Exercise == nil {
				continue
			}
			t.Run(l.ID, func(t *testing.T) {
				res := v.ValidateExercise(context.Background(), l.Exercise, l.Exercise.Solution)
				if !res.Correct {
					t.Errorf("reference solution rejected: %s", res.Message)
				}
				if res := v.ValidateExercise(context.Background(), l.Exercise, "pass"); res.Correct {
					t.Error("an empty submission passed")
				}
			})
		}
	}
}

func TestNavigation(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tests := []struct {
		name   string
		fn     func(string, string) (string, bool)
		from   string
		want   string
		wantOK bool
	}{
		{"next", wrap(c.Next), "numpy_01", "numpy_02", true},
		{"previous", wrap(c.Previous), "numpy_02", "numpy_01", true},
		{"before first", wrap(c.Previous), "numpy_01", "", false},
		{"unknown", wrap(c.Next), "numpy_99", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fn("numpy", tt.from)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
	last := c.AllLessons("numpy")
	if _, ok := c.Next("numpy", last[len(last)-1].ID); ok {
		t.Error("next after the last lesson should fail")
	}
	if l, ok := c.ByID("pandas_02"); !ok || l.Topic != "pandas" {
		t.Errorf("ByID = %+v, %v", l, ok)
	}
}

func wrap(fn func(string, string) (*model.Lesson, bool)) func(string, string) (string, bool) {
	return func(topic, id string) (string, bool) {
		l, ok := fn(topic, id)
		if !ok {
			return "", false
		}
		return l.ID, true
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"stats/b.yaml": {Data: []byte("lesson:\n  id: s2\n  order: 1\n")},
		"stats/a.yaml": {Data: []byte("lesson:\n  id: s1\n  order: 1\n  exercise:\n    solution: result = 1\n    validation:\n      expected: 1\n")},
		"stats/c.yaml": {Data: []byte("lesson:\n  order: 0\n")},
	}
	c, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	var ids []string
	for _, l := range c.AllLessons("stats") {
		ids = append(ids, l.ID)
	}
	if got := strings.Join(ids, ","); got != "c,s1,s2" {
		t.Errorf("order = %s, want c,s1,s2 (by order, then file name)", got)
	}
	if topics := c.Topics(); len(topics) != 1 || topics[0].ID != "stats" || topics[0].Status != "available" {
		t.Errorf("derived topics = %+v", topics)
	}
	l, _ := c.ByID("s1")
	if l.Topic != "stats" || l.Exercise.ID != "s1" || l.Exercise.Validation.Expected != 1 {
		t.Errorf("lesson = %+v", l)
	}
}

func TestLoadFSErrors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{"no lesson key", fstest.MapFS{"t/a.yaml": {Data: []byte("id: x\n")}}, "missing top-level lesson"},
		{"bad yaml", fstest.MapFS{"t/a.yaml": {Data: []byte("lesson: [\n")}}, "parse"},
		{"duplicate id", fstest.MapFS{
			"t/a.yaml": {Data: []byte("lesson:\n  id: x\n")},
			"u/a.yaml": {Data: []byte("lesson:\n  id: x\n")},
		}, "duplicates"},
		{"hint order", fstest.MapFS{"t/a.yaml": {Data: []byte("lesson:\n  id: x\n  exercise:\n    hints:\n      - level: 2\n      - level: 1\n")}}, "ascending"},
		{"topic status", fstest.MapFS{
			"t/a.yaml":    {Data: []byte("lesson:\n  id: x\n")},
			"topics.yaml": {Data: []byte("topics:\n  - id: t\n    status: hidden\n")},
		}, "invalid status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(tt.fsys)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
