// Package cli implements the ds-tutor CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/ds-tutor/internal/catalog"
	"github.com/rcliao/ds-tutor/internal/config"
	"github.com/rcliao/ds-tutor/internal/feedback"
	"github.com/rcliao/ds-tutor/internal/logger"
	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/runner"
	"github.com/rcliao/ds-tutor/internal/store"
	"github.com/rcliao/ds-tutor/internal/tutor"
	"github.com/rcliao/ds-tutor/internal/validate"
)

var (
	dbPath     string
	userFlag   string
	lessonsDir string
	logMode    string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "ds-tutor",
	Short: "Interactive data science exercises in your terminal",
	Long:  "Work through python, numpy and pandas lessons, check your answers, and track progress. SQLite-backed, single binary.",

	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $DSTUTOR_DB or ~/.ds-tutor/progress.db)")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Learner id (default: $DSTUTOR_USER or \"default\")")
	RootCmd.PersistentFlags().StringVar(&lessonsDir, "lessons", "", "Lesson directory (default: $DSTUTOR_LESSONS or the built-in curriculum)")
	RootCmd.PersistentFlags().StringVar(&logMode, "log", "", "Log mode: dev, prod or nop (default: $DSTUTOR_LOG or dev)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if userFlag != "" {
		cfg.UserID = userFlag
	}
	if lessonsDir != "" {
		cfg.LessonsDir = lessonsDir
	}
	if logMode != "" {
		cfg.LogMode = logMode
	}
	return cfg
}

func getDBPath() string {
	return loadConfig().DBPath
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// withEngine restores the learner's session, runs op and saves the session
// again before printing the response. A failed response exits non-zero.
func withEngine(cmd *cobra.Command, op func(ctx context.Context, e *tutor.Engine) tutor.Response) {
	code, err := runEngine(cmd.Context(), loadConfig(), op)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		code = 1
	}
	if code != 0 {
		os.Exit(code)
	}
}

// runEngine does the work of withEngine and returns the exit code. It
// returns only after the store is closed and the logger flushed.
func runEngine(ctx context.Context, cfg config.Config, op func(ctx context.Context, e *tutor.Engine) tutor.Response) (int, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return 1, fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	cat, err := catalog.Load(cfg.LessonsDir)
	if err != nil {
		return 1, fmt.Errorf("load lessons: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return 1, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	e := tutor.New(tutor.Options{
		UserID:    cfg.UserID,
		Catalog:   cat,
		Ledger:    s,
		Validator: validate.New(runner.New(runner.Options{MaxSteps: cfg.MaxSteps}), log),
		Feedback:  feedback.NewFromConfig(cfg, log),
		Logger:    log,
	})

	sess, err := s.LoadSession(ctx, cfg.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.Restore(model.Session{UserID: cfg.UserID})
	case err != nil:
		return 1, fmt.Errorf("load session: %w", err)
	default:
		if err := e.Restore(*sess); err != nil {
			log.Warn("saved lesson is gone, session reset", "lesson", sess.LessonID, "error", err)
		}
	}

	resp := op(ctx, e)

	if err := s.SaveSession(ctx, e.Snapshot()); err != nil {
		return 1, fmt.Errorf("save session: %w", err)
	}
	printResponse(resp)
	if !resp.Success {
		return 1, nil
	}
	return 0, nil
}

func printResponse(r tutor.Response) {
	if formatFlag == "text" {
		printText(r)
		return
	}
	printJSON(r)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func printText(r tutor.Response) {
	fmt.Println(r.Message)
	if l := r.Lesson; l != nil {
		fmt.Printf("\n[%s] lesson %d of %d: %s\n", l.Topic, l.Position, l.Total, l.ID)
		if l.Content.Introduction != "" {
			fmt.Printf("\n%s\n", strings.TrimSpace(l.Content.Introduction))
		}
		if l.Exercise != nil {
			fmt.Printf("\nExercise: %s\n", strings.TrimSpace(l.Exercise.Instruction))
			if l.Exercise.StarterCode != "" {
				fmt.Printf("\n%s\n", strings.TrimRight(l.Exercise.StarterCode, "\n"))
			}
		}
	}
	for _, extra := range []string{r.Hint, r.Solution, r.Explanation, r.Suggestion} {
		if extra != "" {
			fmt.Printf("\n%s\n", strings.TrimRight(extra, "\n"))
		}
	}
	for _, detail := range []any{r.Stats, r.Progress, r.Recent, r.Topics, r.Config} {
		switch d := detail.(type) {
		case *model.Stats:
			if d != nil {
				printJSON(d)
			}
		case *model.TopicProgress:
			if d != nil {
				printJSON(d)
			}
		case []model.Activity:
			for _, a := range d {
				fmt.Printf("%s  %-24s %v\n", a.SubmittedAt.Local().Format("2006-01-02 15:04"), a.ExerciseID, a.Correct)
			}
		case []model.Topic:
			for _, t := range d {
				fmt.Printf("%-16s %-10s %s\n", t.ID, t.Status, t.Name)
			}
		case map[string]any:
			keys := slices.Sorted(maps.Keys(d))
			for _, k := range keys {
				fmt.Printf("%s = %v\n", k, d[k])
			}
		}
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
