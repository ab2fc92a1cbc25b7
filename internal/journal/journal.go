// Package journal records every lifecycle command in the lifecycle_events
// table and lists them back, newest first.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// FailureEntry is a per-backend failure as stored.
type FailureEntry struct {
	Category string `json:"category"`
	Error    string `json:"error"`
}

// Entry is one journalled command.
type Entry struct {
	ID          string            `json:"id"`
	Command     string            `json:"command"`
	Drivers     []string          `json:"drivers,omitempty"`
	RefreshRate *float64          `json:"refresh_rate,omitempty"`
	AVInfo      *lifecycle.AVInfo `json:"av_info,omitempty"`
	Failures    []FailureEntry    `json:"failures,omitempty"`
	Error       string            `json:"error,omitempty"`
	Source      string            `json:"source"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration_ns"`
}

// Rejected reports whether the command failed its preconditions.
func (e Entry) Rejected() bool {
	return e.Error != ""
}

// FromEvent converts a lifecycle event to an entry with a fresh ID.
func FromEvent(ev lifecycle.Event) Entry {
	e := Entry{
		ID:          uuid.NewString(),
		Command:     ev.Command.String(),
		RefreshRate: ev.RefreshRate,
		AVInfo:      ev.AVInfo,
		Source:      ev.Source,
		StartedAt:   ev.StartedAt.UTC(),
		Duration:    ev.Duration,
	}
	if ev.Drivers != nil {
		e.Drivers = ev.Drivers.Labels()
		if e.Drivers == nil {
			e.Drivers = []string{}
		}
	}
	for _, f := range ev.Failures {
		fe := FailureEntry{Category: f.Category.String()}
		if f.Err != nil {
			fe.Error = f.Err.Error()
		}
		e.Failures = append(e.Failures, fe)
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	if e.Source == "" {
		e.Source = "loop"
	}
	return e
}

// Filter selects entries for List.
type Filter struct {
	Command  string // optional: exact command name
	Source   string // optional: issuing surface
	Rejected *bool  // optional: only rejected (true) or accepted (false)
	Since    time.Time
	Limit    int // default 50, max 200
	Offset   int
}

// ListResult is a page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores journal entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) (*ListResult, error)
}

// SQLiteRepository is the SQLite Repository.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. ID and StartedAt are filled in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now().UTC()
	}
	if e.Source == "" {
		e.Source = "loop"
	}

	drivers, err := nullableJSON(e.Drivers, e.Drivers != nil)
	if err != nil {
		return fmt.Errorf("encoding drivers: %w", err)
	}
	av, err := nullableJSON(e.AVInfo, e.AVInfo != nil)
	if err != nil {
		return fmt.Errorf("encoding av info: %w", err)
	}
	failures, err := nullableJSON(e.Failures, len(e.Failures) > 0)
	if err != nil {
		return fmt.Errorf("encoding failures: %w", err)
	}

	var rate any
	if e.RefreshRate != nil {
		rate = *e.RefreshRate
	}
	var rejection any
	if e.Error != "" {
		rejection = e.Error
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO lifecycle_events
		 (id, command, drivers, refresh_rate, av_info, failures, error, source, started_at, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Command, drivers, rate, av, failures, rejection, e.Source,
		e.StartedAt.UTC().Format(time.RFC3339Nano), e.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting lifecycle event: %w", err)
	}
	return nil
}

func nullableJSON(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// List returns entries matching f, newest first.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) (*ListResult, error) {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var conditions []string
	var args []any
	if f.Command != "" {
		conditions = append(conditions, "command = ?")
		args = append(args, f.Command)
	}
	if f.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, f.Source)
	}
	if f.Rejected != nil {
		if *f.Rejected {
			conditions = append(conditions, "error IS NOT NULL")
		} else {
			conditions = append(conditions, "error IS NULL")
		}
	}
	if !f.Since.IsZero() {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM lifecycle_events " + where //nolint:gosec // parameterised conditions only
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting lifecycle events: %w", err)
	}

	query := `SELECT id, command, drivers, refresh_rate, av_info, failures, error, source, started_at, duration_ns
		FROM lifecycle_events ` + where + ` ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?` //nolint:gosec // parameterised conditions only
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lifecycle events: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lifecycle events: %w", err)
	}

	return &ListResult{Entries: entries, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                          Entry
		drivers, av, failures, rej sql.NullString
		rate                       sql.NullFloat64
		startedAt                  string
		durationNS                 int64
	)
	if err := rows.Scan(&e.ID, &e.Command, &drivers, &rate, &av, &failures, &rej,
		&e.Source, &startedAt, &durationNS); err != nil {
		return Entry{}, fmt.Errorf("scanning lifecycle event: %w", err)
	}

	if drivers.Valid {
		if err := json.Unmarshal([]byte(drivers.String), &e.Drivers); err != nil {
			return Entry{}, fmt.Errorf("decoding drivers of %s: %w", e.ID, err)
		}
	}
	if rate.Valid {
		v := rate.Float64
		e.RefreshRate = &v
	}
	if av.Valid {
		e.AVInfo = &lifecycle.AVInfo{}
		if err := json.Unmarshal([]byte(av.String), e.AVInfo); err != nil {
			return Entry{}, fmt.Errorf("decoding av info of %s: %w", e.ID, err)
		}
	}
	if failures.Valid {
		if err := json.Unmarshal([]byte(failures.String), &e.Failures); err != nil {
			return Entry{}, fmt.Errorf("decoding failures of %s: %w", e.ID, err)
		}
	}
	if rej.Valid {
		e.Error = rej.String
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", startedAt, err)
	}
	e.StartedAt = t
	e.Duration = time.Duration(durationNS)
	return e, nil
}
