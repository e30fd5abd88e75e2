package speed

import "errors"

// ErrInvalidSpeed is returned by Parse when the input is neither a speed name
// nor an integer.
var ErrInvalidSpeed = errors.New("speed: invalid value")
