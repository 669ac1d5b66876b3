// Package store provides the progress ledger interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/ds-tutor/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Lesson statuses.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// RecordParams holds parameters for recording an attempt.
type RecordParams struct {
	UserID     string
	ExerciseID string
	LessonID   string // defaults to ExerciseID
	Code       string
	Correct    bool
	Hints      model.HintState
}

// Ledger is the durable record of a learner's progress. Attempts are
// append-only; aggregates are derived from them on read.
type Ledger interface {
	// RecordAttempt appends an attempt and marks its lesson in progress.
	RecordAttempt(ctx context.Context, p RecordParams) (*model.AttemptRecord, error)

	// MarkLessonComplete is idempotent. It reports whether the lesson was
	// newly completed by this call.
	MarkLessonComplete(ctx context.Context, userID, lessonID string) (bool, error)

	// LessonStatus returns not_started, in_progress or completed.
	LessonStatus(ctx context.Context, userID, lessonID string) (string, error)

	// Stats derives aggregate figures from the full ledger.
	Stats(ctx context.Context, userID string) (*model.Stats, error)

	// ResetLesson deletes the attempts and completion marker for one id.
	ResetLesson(ctx context.Context, userID, id string) error

	// RecentActivity lists the latest attempts, newest first.
	RecentActivity(ctx context.Context, userID string, limit int) ([]model.Activity, error)

	// TopicProgress counts completed lessons among a topic's lesson ids.
	TopicProgress(ctx context.Context, userID, topic string, lessonIDs []string) (*model.TopicProgress, error)

	// SaveSession and LoadSession persist the learner's position.
	SaveSession(ctx context.Context, s model.Session) error
	LoadSession(ctx context.Context, userID string) (*model.Session, error)

	// Close closes the ledger.
	Close() error
}
