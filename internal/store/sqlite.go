package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/ds-tutor/internal/model"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Ledger using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var _ Ledger = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		exercise_id       TEXT NOT NULL,
		code              TEXT NOT NULL,
		is_correct        INTEGER NOT NULL,
		hint_level        INTEGER NOT NULL DEFAULT 0,
		solution_revealed INTEGER NOT NULL DEFAULT 0,
		submitted_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_user_exercise ON attempts(user_id, exercise_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_submitted ON attempts(user_id, submitted_at DESC);

	CREATE TABLE IF NOT EXISTS lesson_progress (
		user_id      TEXT NOT NULL,
		lesson_id    TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'not_started',
		attempts     INTEGER NOT NULL DEFAULT 0,
		completed_at TEXT,
		PRIMARY KEY (user_id, lesson_id)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		user_id           TEXT PRIMARY KEY,
		topic             TEXT,
		lesson_id         TEXT,
		hint_level        INTEGER NOT NULL DEFAULT 0,
		solution_revealed INTEGER NOT NULL DEFAULT 0,
		settings          TEXT NOT NULL DEFAULT '{}',
		updated_at        TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) RecordAttempt(ctx context.Context, p RecordParams) (*model.AttemptRecord, error) {
	if p.ExerciseID == "" {
		return nil, fmt.Errorf("record attempt: exercise id is required")
	}
	lessonID := p.LessonID
	if lessonID == "" {
		lessonID = p.ExerciseID
	}
	now := s.now().UTC()
	rec := &model.AttemptRecord{
		ID:          s.newID(now),
		UserID:      p.UserID,
		ExerciseID:  p.ExerciseID,
		Code:        p.Code,
		Correct:     p.Correct,
		Hints:       p.Hints,
		SubmittedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := insertAttempt(ctx, tx, rec); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO lesson_progress (user_id, lesson_id, status, attempts)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT(user_id, lesson_id) DO UPDATE SET
		   attempts = lesson_progress.attempts + 1,
		   status = CASE WHEN lesson_progress.status = ? THEN lesson_progress.status ELSE ? END`,
		p.UserID, lessonID, StatusInProgress, StatusCompleted, StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("update lesson progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAttempt(ctx context.Context, db execer, rec *model.AttemptRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO attempts (id, user_id, exercise_id, code, is_correct, hint_level, solution_revealed, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.ExerciseID, rec.Code, rec.Correct,
		rec.Hints.Level(), rec.Hints.Revealed(), rec.SubmittedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkLessonComplete(ctx context.Context, userID, lessonID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM lesson_progress WHERE user_id = ? AND lesson_id = ?`,
		userID, lessonID).Scan(&status)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("read lesson status: %w", err)
	}
	if status == StatusCompleted {
		return false, nil
	}

	now := s.now().UTC().Format(timeFormat)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO lesson_progress (user_id, lesson_id, status, completed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, lesson_id) DO UPDATE SET
		   status = excluded.status,
		   completed_at = COALESCE(lesson_progress.completed_at, excluded.completed_at)`,
		userID, lessonID, StatusCompleted, now)
	if err != nil {
		return false, fmt.Errorf("mark lesson complete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) LessonStatus(ctx context.Context, userID, lessonID string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM lesson_progress WHERE user_id = ? AND lesson_id = ?`,
		userID, lessonID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return StatusNotStarted, nil
	}
	if err != nil {
		return "", fmt.Errorf("read lesson status: %w", err)
	}
	return status, nil
}

func (s *SQLiteStore) Stats(ctx context.Context, userID string) (*model.Stats, error) {
	st := &model.Stats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lesson_progress WHERE user_id = ? AND status = ?`,
		userID, StatusCompleted).Scan(&st.CompletedLessons)
	if err != nil {
		return nil, fmt.Errorf("count completed lessons: %w", err)
	}

	// Repeated correct attempts on one exercise count once.
	var last sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT exercise_id),
		       COUNT(DISTINCT CASE WHEN is_correct = 1 THEN exercise_id END),
		       COUNT(DISTINCT CASE WHEN is_correct = 1 AND solution_revealed = 0 THEN exercise_id END),
		       MAX(submitted_at)
		FROM attempts WHERE user_id = ?`, userID).
		Scan(&st.TotalAttempts, &st.AttemptedExercises, &st.CorrectExercises, &st.SolvedUnaided, &last)
	if err != nil {
		return nil, fmt.Errorf("aggregate attempts: %w", err)
	}
	if st.AttemptedExercises > 0 {
		st.Accuracy = float64(st.CorrectExercises) / float64(st.AttemptedExercises)
	}
	if last.Valid {
		t, err := time.Parse(timeFormat, last.String)
		if err != nil {
			return nil, fmt.Errorf("parse last active: %w", err)
		}
		st.LastActive = &t
	}

	st.CurrentStreak, err = s.streak(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// streak counts consecutive UTC days with at least one attempt, ending
// today or yesterday. A gap of a full day resets it to zero.
func (s *SQLiteStore) streak(ctx context.Context, userID string) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT substr(submitted_at, 1, 10) AS day FROM attempts
		 WHERE user_id = ? ORDER BY day DESC`, userID)
	if err != nil {
		return 0, fmt.Errorf("query active days: %w", err)
	}
	defer rows.Close()

	const dayFormat = "2006-01-02"
	want := s.now().UTC().Truncate(24 * time.Hour)
	n := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return 0, fmt.Errorf("scan active day: %w", err)
		}
		day, err := time.Parse(dayFormat, raw)
		if err != nil {
			return 0, fmt.Errorf("parse active day: %w", err)
		}
		if n == 0 && day.Equal(want.AddDate(0, 0, -1)) {
			want = day
		}
		if !day.Equal(want) {
			break
		}
		n++
		want = want.AddDate(0, 0, -1)
	}
	return n, rows.Err()
}

func (s *SQLiteStore) ResetLesson(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM attempts WHERE user_id = ? AND exercise_id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete attempts: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lesson_progress WHERE user_id = ? AND lesson_id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete lesson progress: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecentActivity(ctx context.Context, userID string, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_id, is_correct, submitted_at FROM attempts
		 WHERE user_id = ?
		 ORDER BY submitted_at DESC, id DESC
		 LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		var submitted string
		if err := rows.Scan(&a.ExerciseID, &a.Correct, &submitted); err != nil {
			return nil, err
		}
		a.SubmittedAt, _ = time.Parse(timeFormat, submitted)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) TopicProgress(ctx context.Context, userID, topic string, lessonIDs []string) (*model.TopicProgress, error) {
	tp := &model.TopicProgress{Topic: topic, Total: len(lessonIDs)}
	if len(lessonIDs) == 0 {
		return tp, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(lessonIDs)), ",")
	args := []any{userID, StatusCompleted}
	for _, id := range lessonIDs {
		args = append(args, id)
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lesson_progress
		 WHERE user_id = ? AND status = ? AND lesson_id IN (`+placeholders+`)`, args...).Scan(&tp.Completed)
	if err != nil {
		return nil, fmt.Errorf("count topic progress: %w", err)
	}
	tp.ProgressPct = float64(tp.Completed) / float64(tp.Total) * 100
	return tp, nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, sess model.Session) error {
	settings := "{}"
	if len(sess.Settings) > 0 {
		b, err := json.Marshal(sess.Settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		settings = string(b)
	}
	now := s.now().UTC().Format(timeFormat)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, topic, lesson_id, hint_level, solution_revealed, settings, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   topic = excluded.topic,
		   lesson_id = excluded.lesson_id,
		   hint_level = excluded.hint_level,
		   solution_revealed = excluded.solution_revealed,
		   settings = excluded.settings,
		   updated_at = excluded.updated_at`,
		sess.UserID, sess.Topic, sess.LessonID, sess.Hints.Level(), sess.Hints.Revealed(), settings, now)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadSession(ctx context.Context, userID string) (*model.Session, error) {
	sess := &model.Session{UserID: userID}
	var topic, lessonID sql.NullString
	var level int
	var revealed bool
	var settings, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT topic, lesson_id, hint_level, solution_revealed, settings, updated_at FROM sessions WHERE user_id = ?`,
		userID).Scan(&topic, &lessonID, &level, &revealed, &settings, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.Topic = topic.String
	sess.LessonID = lessonID.String
	sess.Hints = model.RestoreHintState(level, revealed)
	if settings != "" && settings != "{}" {
		if err := json.Unmarshal([]byte(settings), &sess.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	sess.UpdatedAt, _ = time.Parse(timeFormat, updated)
	return sess, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (model.AttemptRecord, error) {
	var a model.AttemptRecord
	var level int
	var revealed bool
	var submitted string
	err := row.Scan(&a.ID, &a.UserID, &a.ExerciseID, &a.Code, &a.Correct, &level, &revealed, &submitted)
	if err != nil {
		return a, err
	}
	a.Hints = model.RestoreHintState(level, revealed)
	a.SubmittedAt, _ = time.Parse(timeFormat, submitted)
	return a, nil
}
