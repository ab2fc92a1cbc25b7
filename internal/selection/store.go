package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/playback-core/internal/driver"
)

// ErrEmptyName is returned when selecting an empty backend name.
var ErrEmptyName = errors.New("selection: empty backend name")

// Logger defines the logging interface used by the Store.
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

// Store resolves the selected backend of each category.
//
// All methods are safe for concurrent use.
type Store struct {
	repo     Repository
	resolver *driver.Resolver
	defaults map[driver.Category]string

	mu     sync.RWMutex
	cache  map[driver.Category]string
	logger Logger
}

// NewStore creates a store. defaults maps category labels, as written in
// config.yaml, to backend names.
func NewStore(repo Repository, resolver *driver.Resolver, defaults map[string]string) (*Store, error) {
	parsed := make(map[driver.Category]string, len(defaults))
	for label, name := range defaults {
		c, err := driver.ParseCategory(label)
		if err != nil {
			return nil, fmt.Errorf("default selection %q: %w", label, err)
		}
		if name != "" {
			parsed[c] = name
		}
	}

	return &Store{
		repo:     repo,
		resolver: resolver,
		defaults: parsed,
		cache:    make(map[driver.Category]string),
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Refresh reloads persisted selections into the cache.
func (s *Store) Refresh(ctx context.Context) error {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading selections: %w", err)
	}

	s.mu.Lock()
	s.cache = rows
	s.mu.Unlock()

	s.logger.Info("driver selections loaded", "persisted", len(rows))
	return nil
}

// Selected returns the backend name for c: persisted, else configured,
// else "null".
func (s *Store) Selected(c driver.Category) string {
	s.mu.RLock()
	name, ok := s.cache[c]
	s.mu.RUnlock()
	if ok {
		return name
	}
	if name, ok := s.defaults[c]; ok {
		return name
	}
	return driver.NullBackend
}

// Persisted reports whether c has a persisted selection.
func (s *Store) Persisted(c driver.Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[c]
	return ok
}

// Set persists name as the selection of c. The name must be registered.
func (s *Store) Set(ctx context.Context, c driver.Category, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, err := s.resolver.IndexOf(c, name); err != nil {
		return err
	}
	return s.save(ctx, c, name)
}

// Reset drops the persisted selection of c so the configured default
// applies again.
func (s *Store) Reset(ctx context.Context, c driver.Category) error {
	if err := s.repo.Delete(ctx, c); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, c)
	s.mu.Unlock()
	return nil
}

// Next moves the selection of c one backend forward and persists it.
// It stops at "null" and never wraps; on failure the selection is
// unchanged and the current name is returned with the error.
func (s *Store) Next(ctx context.Context, c driver.Category) (string, error) {
	return s.cycle(ctx, c, s.resolver.Next)
}

// Previous moves the selection of c one backend back and persists it.
func (s *Store) Previous(ctx context.Context, c driver.Category) (string, error) {
	return s.cycle(ctx, c, s.resolver.Previous)
}

func (s *Store) cycle(ctx context.Context, c driver.Category, step func(driver.Category, string) (string, error)) (string, error) {
	current := s.Selected(c)
	next, err := step(c, current)
	if err != nil {
		return current, err
	}
	if err := s.save(ctx, c, next); err != nil {
		return current, err
	}
	s.logger.Info("driver selection changed",
		"category", c.String(),
		"from", current,
		"to", next,
	)
	return next, nil
}

func (s *Store) save(ctx context.Context, c driver.Category, name string) error {
	if err := s.repo.Save(ctx, c, name); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[c] = name
	s.mu.Unlock()
	return nil
}
