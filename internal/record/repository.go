package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository persists sessions.
type Repository interface {
	Create(ctx context.Context, s Session) error
	Finish(ctx context.Context, id string, stoppedAt time.Time, reason string) error
	List(ctx context.Context, limit int) ([]Session, error)
}

// SQLiteRepository stores sessions in the record_sessions table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a started session.
func (r *SQLiteRepository) Create(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO record_sessions (id, path, fps, sample_rate, width, height, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Path, s.AV.Timing.FPS, s.AV.Timing.SampleRate,
		s.AV.Geometry.BaseWidth, s.AV.Geometry.BaseHeight,
		s.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting record session: %w", err)
	}
	return nil
}

// Finish stamps the stop time and reason of a session.
func (r *SQLiteRepository) Finish(ctx context.Context, id string, stoppedAt time.Time, reason string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE record_sessions SET stopped_at = ?, reason = ? WHERE id = ?",
		stoppedAt.UTC().Format(time.RFC3339Nano), reason, id,
	)
	if err != nil {
		return fmt.Errorf("finishing record session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing record session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// List returns the most recent sessions, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, path, fps, sample_rate, width, height, started_at, stopped_at, reason
		 FROM record_sessions ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying record sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			s                 Session
			startedAt         string
			stoppedAt, reason sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Path, &s.AV.Timing.FPS, &s.AV.Timing.SampleRate,
			&s.AV.Geometry.BaseWidth, &s.AV.Geometry.BaseHeight,
			&startedAt, &stoppedAt, &reason); err != nil {
			return nil, fmt.Errorf("scanning record session: %w", err)
		}
		if s.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", startedAt, err)
		}
		if stoppedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, stoppedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing timestamp %q: %w", stoppedAt.String, err)
			}
			s.StoppedAt = &t
		}
		s.Reason = reason.String
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record sessions: %w", err)
	}
	return out, nil
}
