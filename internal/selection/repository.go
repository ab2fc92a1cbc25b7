package selection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/playback-core/internal/driver"
)

// Repository persists selections.
type Repository interface {
	List(ctx context.Context) (map[driver.Category]string, error)
	Save(ctx context.Context, c driver.Category, backend string) error
	Delete(ctx context.Context, c driver.Category) error
}

// SQLiteRepository stores selections in the driver_selections table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns every persisted selection. Rows with an unknown category
// label are skipped.
func (r *SQLiteRepository) List(ctx context.Context) (map[driver.Category]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT category, backend FROM driver_selections")
	if err != nil {
		return nil, fmt.Errorf("querying selections: %w", err)
	}
	defer rows.Close()

	out := make(map[driver.Category]string)
	for rows.Next() {
		var label, backend string
		if err := rows.Scan(&label, &backend); err != nil {
			return nil, fmt.Errorf("scanning selection: %w", err)
		}
		c, err := driver.ParseCategory(label)
		if err != nil {
			continue
		}
		out[c] = backend
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating selections: %w", err)
	}
	return out, nil
}

// Save upserts the selection of one category.
func (r *SQLiteRepository) Save(ctx context.Context, c driver.Category, backend string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO driver_selections (category, backend, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(category) DO UPDATE SET backend = excluded.backend, updated_at = excluded.updated_at`,
		c.String(), backend, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving %s selection: %w", c, err)
	}
	return nil
}

// Delete removes the persisted selection of one category.
func (r *SQLiteRepository) Delete(ctx context.Context, c driver.Category) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM driver_selections WHERE category = ?", c.String()); err != nil {
		return fmt.Errorf("deleting %s selection: %w", c, err)
	}
	return nil
}
