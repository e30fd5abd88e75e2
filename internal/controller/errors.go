package controller

import (
	"errors"
	"fmt"
)

// Domain errors for the controller package.
var (
	// ErrStopped is returned by requests made after the control loop exited.
	ErrStopped = errors.New("controller: control loop stopped")

	// ErrAlreadyRunning is returned by a second concurrent call to Run.
	ErrAlreadyRunning = errors.New("controller: already running")

	// ErrMalformedCommand is returned when a command body is not a JSON object.
	ErrMalformedCommand = errors.New("controller: malformed command")
)

// RejectError is returned for a well-formed command the sequencer cannot act
// on: no command name, an unknown command or a missing required field.
// Reason is suitable for showing to the caller as-is.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return e.Reason
}

// FieldError reports a command field that is present but cannot be read as the
// expected type. It matches ErrMalformedCommand with errors.Is.
type FieldError struct {
	Field string
	Want  string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s must be %s, got %s", e.Field, e.Want, e.Value)
}

func (e *FieldError) Unwrap() error {
	return ErrMalformedCommand
}
