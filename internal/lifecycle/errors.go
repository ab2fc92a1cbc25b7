package lifecycle

import "errors"

// Domain errors for the lifecycle package.
var (
	// ErrMissingPayload is returned when a command that needs a payload
	// (a driver set, a refresh rate or A/V info) is issued without one.
	ErrMissingPayload = errors.New("lifecycle: missing command payload")

	// ErrInvalidPayload is returned when a payload is present but unusable,
	// such as a non-positive refresh rate.
	ErrInvalidPayload = errors.New("lifecycle: invalid command payload")

	// ErrUnknownCommand is returned for a command value outside the known set.
	ErrUnknownCommand = errors.New("lifecycle: unknown command")

	// ErrNotResolved is returned when INIT is issued before INIT_PRE, and is
	// reported per category when a category has no bound backend.
	ErrNotResolved = errors.New("lifecycle: drivers not resolved")

	// ErrMissingDriver is returned by New when a required subsystem is nil.
	ErrMissingDriver = errors.New("lifecycle: required driver missing")

	// ErrLoopStopped is returned when submitting to a Loop that is not running.
	ErrLoopStopped = errors.New("lifecycle: loop stopped")
)
