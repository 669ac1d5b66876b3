package store

import (
	"context"
	"strings"

	"github.com/rcliao/ds-tutor/internal/model"
)

// ExportAttempts returns a user's attempts in submission order, optionally
// filtered to one exercise.
func (s *SQLiteStore) ExportAttempts(ctx context.Context, userID, exerciseID string) ([]model.AttemptRecord, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if exerciseID != "" {
		where = append(where, "exercise_id = ?")
		args = append(args, exerciseID)
	}

	query := `SELECT id, user_id, exercise_id, code, is_correct, hint_level, solution_revealed, submitted_at
	          FROM attempts WHERE ` + strings.Join(where, " AND ") + ` ORDER BY submitted_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AttemptRecord
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ImportAttempts stores attempts from an export. Records whose id already
// exists are skipped. Lesson completion is not inferred from imports.
func (s *SQLiteStore) ImportAttempts(ctx context.Context, records []model.AttemptRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	for _, r := range records {
		if r.SubmittedAt.IsZero() {
			r.SubmittedAt = s.now().UTC()
		}
		if r.ID == "" {
			r.ID = s.newID(r.SubmittedAt)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO attempts (id, user_id, exercise_id, code, is_correct, hint_level, solution_revealed, submitted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.UserID, r.ExerciseID, r.Code, r.Correct,
			r.Hints.Level(), r.Hints.Revealed(), r.SubmittedAt.UTC().Format(timeFormat))
		if err != nil {
			return imported, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}
	return imported, tx.Commit()
}
