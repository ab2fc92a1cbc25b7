package driver

import "errors"

// Domain errors for the driver package.
//
// Check with errors.Is():
//
//	if errors.Is(err, driver.ErrNoNext) {
//	    // keep the current selection
//	}
var (
	// ErrUnknownCategory is returned when a category label or value is not recognised.
	ErrUnknownCategory = errors.New("driver: unknown category")

	// ErrBackendNotFound is returned when a backend name is not present in a
	// category's enumeration.
	ErrBackendNotFound = errors.New("driver: backend not found")

	// ErrNoBackends is returned when a category has no registered backend.
	ErrNoBackends = errors.New("driver: no backends registered")

	// ErrNoPrevious is returned when there is no backend before the current one.
	ErrNoPrevious = errors.New("driver: no previous backend")

	// ErrNoNext is returned when there is no backend after the current one,
	// including when the current one is the "null" sentinel.
	ErrNoNext = errors.New("driver: no next backend")

	// ErrDuplicateBackend is returned when a registry is built with two
	// backends sharing a name.
	ErrDuplicateBackend = errors.New("driver: duplicate backend name")

	// ErrNonMonotonicRegistry is returned when a registry lists a named
	// backend after an empty placeholder.
	ErrNonMonotonicRegistry = errors.New("driver: named backend after placeholder")
)
