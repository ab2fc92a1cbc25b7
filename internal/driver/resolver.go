package driver

import (
	"fmt"
	"strings"
)

// NullBackend is the sentinel name of the no-op backend. It is the last
// selectable entry when cycling forward.
const NullBackend = "null"

// maxEnumeration bounds every enumeration loop so a misbehaving registry
// cannot spin forever.
const maxEnumeration = 1024

// Source is the enumeration the resolver works over. *Enumerator implements it.
type Source interface {
	Enumerate(c Category, index int) (Backend, bool)
}

// Logger defines the logging interface used by the Resolver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Resolver maps backend names to positions within a category's enumeration
// and computes the neighbouring selection for UI cycling.
//
// Resolver holds no state besides its source; it is safe for concurrent use
// whenever the source is.
type Resolver struct {
	src    Source
	logger Logger
}

// NewResolver creates a resolver over src.
func NewResolver(src Source) *Resolver {
	return &Resolver{
		src:    src,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// IndexOf returns the position of name within the category, compared
// case-insensitively. Enumeration stops at the end of the list or at the
// first placeholder; either way the result is ErrBackendNotFound.
func (r *Resolver) IndexOf(c Category, name string) (int, error) {
	for i := 0; i < maxEnumeration; i++ {
		b, ok := r.src.Enumerate(c, i)
		if !ok || b.Name == "" {
			break
		}
		if strings.EqualFold(b.Name, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s %q", ErrBackendNotFound, c, name)
}

// First returns the name of the first backend of the category.
func (r *Resolver) First(c Category) (string, error) {
	b, ok := r.src.Enumerate(c, 0)
	if !ok || b.Name == "" {
		return "", fmt.Errorf("%w: %s", ErrNoBackends, c)
	}
	return b.Name, nil
}

// Previous returns the name of the backend before current.
//
// It fails with ErrNoPrevious when current is first or unknown. On failure
// the returned name is current, unchanged, and a warning is logged; callers
// keep the existing selection.
func (r *Resolver) Previous(c Category, current string) (string, error) {
	i, err := r.IndexOf(c, current)
	if err == nil && i > 0 {
		if b, ok := r.src.Enumerate(c, i-1); ok && b.Name != "" {
			return b.Name, nil
		}
	}

	r.logger.Warn("couldn't find any previous driver",
		"category", c.String(),
		"current", current,
	)
	return current, fmt.Errorf("%w: %s %q", ErrNoPrevious, c, current)
}

// Next returns the name of the backend after current.
//
// It fails with ErrNoNext when current is unknown, when current is the
// "null" sentinel, or when nothing selectable follows it. On failure the
// returned name is current, unchanged, and a warning is logged.
func (r *Resolver) Next(c Category, current string) (string, error) {
	i, err := r.IndexOf(c, current)
	if err == nil && !IsNull(current) {
		if b, ok := r.src.Enumerate(c, i+1); ok && b.Name != "" {
			return b.Name, nil
		}
	}

	r.logger.Warn("couldn't find any next driver",
		"category", c.String(),
		"current", current,
	)
	return current, fmt.Errorf("%w: %s %q", ErrNoNext, c, current)
}

// IsNull reports whether name is the "null" sentinel backend.
func IsNull(name string) bool {
	return strings.EqualFold(name, NullBackend)
}

// foldName normalises a backend name for case-insensitive comparison.
func foldName(name string) string {
	return strings.ToLower(name)
}
