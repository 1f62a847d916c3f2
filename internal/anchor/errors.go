package anchor

import "errors"

// Engine error kinds. Validation and expiry never surface as errors —
// they are turned into ordinary screens and notices — so these cover the
// paths that do reach callers.
var (
	// ErrTransport marks a transient transport failure. The failing call
	// made no state mutation, so a retry of the same event is safe.
	ErrTransport = errors.New("transport error")

	// ErrNoTransport means the session's channel is not registered.
	ErrNoTransport = errors.New("no transport for channel")

	// ErrDuplicateAction is returned when an action ID is registered twice.
	ErrDuplicateAction = errors.New("action already registered")

	// ErrDuplicateResolver is returned when an input resolver name is
	// registered twice.
	ErrDuplicateResolver = errors.New("resolver already registered")
)
