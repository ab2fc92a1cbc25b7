package journal

import (
	"context"
	"time"

	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// writeTimeout bounds one journal insert.
const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder is a lifecycle.Observer that journals every event. Write
// failures are logged and never reach the coordinator.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// OnLifecycleEvent implements lifecycle.Observer.
func (r *Recorder) OnLifecycleEvent(ev lifecycle.Event) {
	entry := FromEvent(ev)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, &entry); err != nil {
		r.logger.Error("journalling lifecycle event failed",
			"command", entry.Command,
			"error", err,
		)
	}
}
