package store

import (
	"context"
	"os"
)

// DBInfo holds database statistics.
type DBInfo struct {
	DBPath        string      `json:"db_path"`
	DBSizeBytes   int64       `json:"db_size_bytes"`
	TotalAttempts int         `json:"total_attempts"`
	Sessions      int         `json:"sessions"`
	Users         []UserStats `json:"users"`
}

// UserStats holds per-user counts.
type UserStats struct {
	UserID    string `json:"user_id"`
	Attempts  int    `json:"attempts"`
	Exercises int    `json:"exercises"`
}

// DBStats returns database statistics across all users.
func (s *SQLiteStore) DBStats(ctx context.Context, dbPath string) (*DBInfo, error) {
	st := &DBInfo{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&st.TotalAttempts)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&st.Sessions)

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*) as cnt, COUNT(DISTINCT exercise_id) as exercises
		FROM attempts
		GROUP BY user_id ORDER BY cnt DESC, user_id`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserStats
		if err := rows.Scan(&u.UserID, &u.Attempts, &u.Exercises); err != nil {
			return st, err
		}
		st.Users = append(st.Users, u)
	}

	return st, rows.Err()
}
