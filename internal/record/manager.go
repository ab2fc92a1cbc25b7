package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/playback-core/internal/lifecycle"
)

const (
	dirPermissions = 0750
	writeTimeout   = 5 * time.Second
)

// Stop reasons stored with a session.
const (
	ReasonStopped  = "stopped"
	ReasonShutdown = "shutdown"
)

var (
	// ErrDisabled is returned by Start when recording is turned off.
	ErrDisabled = errors.New("record: recording disabled")

	// ErrAlreadyActive is returned by Start while a session is running.
	ErrAlreadyActive = errors.New("record: session already active")

	// ErrNotActive is returned by Stop when nothing is recording.
	ErrNotActive = errors.New("record: no active session")

	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("record: session not found")
)

// Session is one recording run at fixed A/V parameters.
type Session struct {
	ID        string           `json:"id"`
	Path      string           `json:"path"`
	AV        lifecycle.AVInfo `json:"av_info"`
	StartedAt time.Time        `json:"started_at"`
	StoppedAt *time.Time       `json:"stopped_at,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// Logger defines the logging interface used by the Manager.
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

// Options configures a Manager.
type Options struct {
	Enabled   bool
	OutputDir string
	Repo      Repository
}

// Manager owns the single recording session. It implements
// lifecycle.Recorder and is safe for concurrent use.
type Manager struct {
	enabled   bool
	outputDir string
	repo      Repository
	logger    Logger
	now       func() time.Time

	mu      sync.Mutex
	current *Session
}

// NewManager creates a manager. Repo may be nil, in which case sessions are
// not persisted.
func NewManager(opts Options) *Manager {
	return &Manager{
		enabled:   opts.Enabled,
		outputDir: opts.OutputDir,
		repo:      opts.Repo,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Active reports whether a session is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Current returns a copy of the running session.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Start begins a new session with the given A/V parameters.
func (m *Manager) Start(av lifecycle.AVInfo) error {
	if !m.enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyActive, m.current.ID)
	}
	if av.Timing.FPS <= 0 || av.Timing.SampleRate <= 0 {
		return fmt.Errorf("starting recording: invalid timing %.3f fps / %.0f Hz",
			av.Timing.FPS, av.Timing.SampleRate)
	}
	if err := os.MkdirAll(m.outputDir, dirPermissions); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	now := m.now().UTC()
	id := uuid.NewString()
	s := &Session{
		ID:        id,
		Path:      filepath.Join(m.outputDir, fmt.Sprintf("%s-%s.mkv", now.Format("20060102-150405"), id[:8])),
		AV:        av,
		StartedAt: now,
	}

	if m.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := m.repo.Create(ctx, *s); err != nil {
			return fmt.Errorf("starting recording: %w", err)
		}
	}

	m.current = s
	m.logger.Info("recording started",
		"session_id", s.ID,
		"path", s.Path,
		"fps", av.Timing.FPS,
		"sample_rate", av.Timing.SampleRate,
	)
	return nil
}

// Stop ends the running session.
func (m *Manager) Stop() error {
	return m.StopWithReason(ReasonStopped)
}

// StopWithReason ends the running session and stores the reason.
// The session is ended even when persisting the stop fails.
func (m *Manager) StopWithReason(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ErrNotActive
	}
	s := m.current
	m.current = nil

	stoppedAt := m.now().UTC()
	m.logger.Info("recording stopped",
		"session_id", s.ID,
		"reason", reason,
		"duration", stoppedAt.Sub(s.StartedAt),
	)

	if m.repo == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := m.repo.Finish(ctx, s.ID, stoppedAt, reason); err != nil {
		return fmt.Errorf("stopping recording: %w", err)
	}
	return nil
}

// Sessions lists recent sessions from the repository.
func (m *Manager) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if m.repo == nil {
		return nil, nil
	}
	return m.repo.List(ctx, limit)
}
