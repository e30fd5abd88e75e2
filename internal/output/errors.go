package output

import "errors"

// Domain-specific errors for output sinks.
var (
	// ErrInvalidLevel is returned when a trigger level string is not recognised.
	ErrInvalidLevel = errors.New("output: invalid level (must be high or low)")

	// ErrChannelRange is returned when a write targets a channel the sink does not have.
	ErrChannelRange = errors.New("output: channel out of range")

	// ErrClosed is returned by writes after the sink has been closed.
	ErrClosed = errors.New("output: sink closed")

	// ErrUnknownDriver is returned when the configured output driver is not supported.
	ErrUnknownDriver = errors.New("output: unknown driver")
)
