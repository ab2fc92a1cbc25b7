package selection

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/playback-core/internal/driver"
	"github.com/nerrad567/playback-core/internal/infrastructure/database"
	_ "github.com/nerrad567/playback-core/migrations"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "playback.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestSQLiteRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	if err := repo.Save(ctx, driver.CategoryVideo, "gl"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, driver.CategoryVideo, "vulkan"); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}
	if err := repo.Save(ctx, driver.CategoryMenu, "ozone"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rows, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 2 || rows[driver.CategoryVideo] != "vulkan" || rows[driver.CategoryMenu] != "ozone" {
		t.Errorf("List() = %v", rows)
	}

	if err := repo.Delete(ctx, driver.CategoryMenu); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	rows, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if _, ok := rows[driver.CategoryMenu]; ok {
		t.Error("menu selection survived Delete()")
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	defaults := map[string]string{"video": "gl"}

	first := newTestStore(t, NewSQLiteRepository(db.DB), defaults)
	if _, err := first.Next(ctx, driver.CategoryVideo); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	second := newTestStore(t, NewSQLiteRepository(db.DB), defaults)
	if got := second.Selected(driver.CategoryVideo); got != "vulkan" {
		t.Errorf("Selected() after reload = %q, want vulkan", got)
	}
}
