package preferences

import "errors"

// Domain errors for the preferences package.
var (
	// ErrNotFound is returned when a key has never been written.
	ErrNotFound = errors.New("preference: not found")

	// ErrInvalidKey is returned for an empty namespace or key.
	ErrInvalidKey = errors.New("preference: invalid key")
)
