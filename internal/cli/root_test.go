package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rcliao/ds-tutor/internal/config"
	"github.com/rcliao/ds-tutor/internal/store"
	"github.com/rcliao/ds-tutor/internal/tutor"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBPath:   filepath.Join(t.TempDir(), "progress.db"),
		UserID:   "ada",
		LogMode:  "nop",
		MaxSteps: config.DefaultMaxSteps,
	}
}

func TestRunEngineSavesSessionOnFailure(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	code, err := runEngine(ctx, cfg, func(ctx context.Context, e *tutor.Engine) tutor.Response {
		return e.Start(ctx, "numpy")
	})
	if err != nil || code != 0 {
		t.Fatalf("start: code=%d err=%v", code, err)
	}

	code, err = runEngine(ctx, cfg, func(ctx context.Context, e *tutor.Engine) tutor.Response {
		e.Hint(ctx, 1, "")
		e.Check(ctx, "result = 1")
		return e.Goto(ctx, "numpy_99")
	})
	if err != nil {
		t.Fatalf("goto: %v", err)
	}
	if code != 1 {
		t.Errorf("failed goto exit code = %d, want 1", code)
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s.Close()
	sess, err := s.LoadSession(ctx, cfg.UserID)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if sess.LessonID != "numpy_01" || sess.Hints.Level() != 1 {
		t.Errorf("session after failed goto = %+v", sess)
	}
	stats, err := s.Stats(ctx, cfg.UserID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalAttempts != 1 {
		t.Errorf("attempts = %d, want 1", stats.TotalAttempts)
	}
}

func TestRunEngineBadLessonsDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.LessonsDir = filepath.Join(t.TempDir(), "missing")
	code, err := runEngine(context.Background(), cfg, func(ctx context.Context, e *tutor.Engine) tutor.Response {
		t.Fatal("op must not run")
		return tutor.Response{}
	})
	if err == nil || code != 1 {
		t.Errorf("code=%d err=%v, want a load error", code, err)
	}
}
