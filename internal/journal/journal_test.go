package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/playback-core/internal/driver"
	"github.com/nerrad567/playback-core/internal/infrastructure/database"
	"github.com/nerrad567/playback-core/internal/lifecycle"
	_ "github.com/nerrad567/playback-core/migrations"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
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
	return NewSQLiteRepository(db.DB)
}

func TestFromEvent(t *testing.T) {
	set := driver.SetVideo | driver.SetMenu
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	e := FromEvent(lifecycle.Event{
		Command: lifecycle.CommandInit,
		Drivers: &set,
		Failures: []lifecycle.Failure{
			{Category: driver.CategoryMenu, Err: errors.New("no context")},
		},
		Source:    "api",
		StartedAt: started,
		Duration:  3 * time.Millisecond,
	})

	if e.ID == "" {
		t.Error("ID not generated")
	}
	if e.Command != "init" || e.Source != "api" {
		t.Errorf("Command/Source = %q/%q", e.Command, e.Source)
	}
	if len(e.Drivers) != 2 || e.Drivers[0] != "video" || e.Drivers[1] != "menu" {
		t.Errorf("Drivers = %v, want [video menu]", e.Drivers)
	}
	if len(e.Failures) != 1 || e.Failures[0].Category != "menu" || e.Failures[0].Error != "no context" {
		t.Errorf("Failures = %+v", e.Failures)
	}
	if e.Rejected() {
		t.Error("accepted event reported as rejected")
	}

	rejected := FromEvent(lifecycle.Event{Command: lifecycle.CommandUninit, Err: lifecycle.ErrMissingPayload})
	if !rejected.Rejected() || rejected.Source != "loop" {
		t.Errorf("rejected entry = %+v", rejected)
	}
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	hz := 59.94
	av := lifecycle.AVInfo{Timing: lifecycle.Timing{FPS: 60, SampleRate: 48000}}
	in := Entry{
		Command:     "update_system_av_info",
		RefreshRate: &hz,
		AVInfo:      &av,
		Failures:    []FailureEntry{{Category: "record", Error: "start recording: busy"}},
		Source:      "mqtt",
		StartedAt:   time.Date(2026, 3, 1, 9, 0, 0, 123, time.UTC),
		Duration:    42 * time.Microsecond,
	}
	if err := repo.Create(ctx, &in); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if in.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("List() = %+v", res)
	}
	out := res.Entries[0]

	if out.ID != in.ID || out.Command != in.Command || out.Source != "mqtt" {
		t.Errorf("entry = %+v", out)
	}
	if out.RefreshRate == nil || *out.RefreshRate != hz {
		t.Errorf("RefreshRate = %v, want %v", out.RefreshRate, hz)
	}
	if out.AVInfo == nil || *out.AVInfo != av {
		t.Errorf("AVInfo = %+v, want %+v", out.AVInfo, av)
	}
	if len(out.Failures) != 1 || out.Failures[0] != in.Failures[0] {
		t.Errorf("Failures = %+v", out.Failures)
	}
	if !out.StartedAt.Equal(in.StartedAt) || out.Duration != in.Duration {
		t.Errorf("timing = %v/%v, want %v/%v", out.StartedAt, out.Duration, in.StartedAt, in.Duration)
	}
	if out.Drivers != nil {
		t.Errorf("Drivers = %v, want nil", out.Drivers)
	}
}

func TestSQLiteRepository_ListFilters(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	seed := []Entry{
		{Command: "init_pre", Source: "loop"},
		{Command: "init", Source: "loop", Drivers: []string{"video"}},
		{Command: "init", Source: "api", Error: "lifecycle: missing command payload"},
		{Command: "set_refresh_rate", Source: "mqtt"},
		{Command: "deinit", Source: "api"},
	}
	for i := range seed {
		seed[i].StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	yes, no := true, false
	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
	}{
		{"all newest first", Filter{}, 5, "deinit"},
		{"by command", Filter{Command: "init"}, 2, "init"},
		{"by source", Filter{Source: "api"}, 2, "deinit"},
		{"rejected only", Filter{Rejected: &yes}, 1, "init"},
		{"accepted only", Filter{Rejected: &no}, 4, "deinit"},
		{"since", Filter{Since: base.Add(3 * time.Minute)}, 2, "deinit"},
		{"paged", Filter{Limit: 2, Offset: 4}, 5, "init_pre"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if len(res.Entries) == 0 || res.Entries[0].Command != tt.wantFirst {
				t.Errorf("first entry = %+v, want %s", res.Entries, tt.wantFirst)
			}
		})
	}
}

func TestSQLiteRepository_ClampsLimit(t *testing.T) {
	repo := openTestRepo(t)

	res, err := repo.List(context.Background(), Filter{Limit: 10_000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != maxLimit || res.Offset != 0 {
		t.Errorf("Limit/Offset = %d/%d, want %d/0", res.Limit, res.Offset, maxLimit)
	}
	if res.Entries == nil {
		t.Error("Entries = nil, want empty slice")
	}
}

// failingRepository always fails Create.
type failingRepository struct{ calls int }

func (f *failingRepository) Create(context.Context, *Entry) error {
	f.calls++
	return fmt.Errorf("disk full")
}

func (f *failingRepository) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{}, nil
}

type countingLogger struct{ errors int }

func (countingLogger) Debug(string, ...any)    {}
func (countingLogger) Info(string, ...any)     {}
func (countingLogger) Warn(string, ...any)     {}
func (l *countingLogger) Error(string, ...any) { l.errors++ }

func TestRecorder(t *testing.T) {
	t.Run("writes events", func(t *testing.T) {
		repo := openTestRepo(t)
		rec := NewRecorder(repo)

		rec.OnLifecycleEvent(lifecycle.Event{Command: lifecycle.CommandDeinit, StartedAt: time.Now()})
		rec.OnLifecycleEvent(lifecycle.Event{Command: lifecycle.CommandInitPre, StartedAt: time.Now()})

		res, err := repo.List(context.Background(), Filter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if res.Total != 2 {
			t.Errorf("Total = %d, want 2", res.Total)
		}
	})

	t.Run("logs write failures", func(t *testing.T) {
		repo := &failingRepository{}
		logger := &countingLogger{}
		rec := NewRecorder(repo)
		rec.SetLogger(logger)

		rec.OnLifecycleEvent(lifecycle.Event{Command: lifecycle.CommandDeinit})

		if repo.calls != 1 || logger.errors != 1 {
			t.Errorf("calls=%d errors=%d, want 1 and 1", repo.calls, logger.errors)
		}
	})
}
