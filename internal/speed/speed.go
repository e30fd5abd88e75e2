package speed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a playback tick interval in milliseconds.
//
// Only Slow, Normal and Fast are valid intervals. The integer millisecond value
// is the persisted and transmitted representation.
type Value int

// Supported tick intervals.
const (
	Slow   Value = 2000
	Normal Value = 1000
	Fast   Value = 500
)

// values lists the supported intervals in declaration order.
var values = [...]Value{Slow, Normal, Fast}

// Values returns the supported intervals in declaration order.
func Values() []Value {
	out := make([]Value, len(values))
	copy(out, values[:])
	return out
}

// Constrain returns the supported interval closest to ms.
//
// The supported values are checked in declaration order (Slow, Normal, Fast)
// and a later value wins only when strictly closer, so an exact tie goes to
// the value checked first: 1500 ms resolves to Slow and 750 ms to Normal.
//
// Parameters:
//   - ms: Requested interval in milliseconds (any integer)
//
// Returns:
//   - Value: One of Slow, Normal or Fast
func Constrain(ms int) Value {
	closest := Normal
	delta := uint(math.MaxUint)

	for _, v := range values {
		if d := distance(ms, int(v)); d < delta {
			delta = d
			closest = v
		}
	}
	return closest
}

// distance returns |a-b| as an unsigned value so extreme inputs cannot overflow.
func distance(a, b int) uint {
	if a > b {
		return uint(a) - uint(b)
	}
	return uint(b) - uint(a)
}

// Parse accepts a speed name ("slow", "normal", "fast") or an integer number of
// milliseconds and returns the constrained Value.
func Parse(s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "slow":
		return Slow, nil
	case "normal":
		return Normal, nil
	case "fast":
		return Fast, nil
	}

	ms, err := strconv.Atoi(s)
	if err != nil {
		return Normal, fmt.Errorf("%w: %q", ErrInvalidSpeed, s)
	}
	return Constrain(ms), nil
}

// Milliseconds returns the interval as a plain integer.
func (v Value) Milliseconds() int {
	return int(v)
}

// Duration returns the interval as a time.Duration.
func (v Value) Duration() time.Duration {
	return time.Duration(v) * time.Millisecond
}

// String returns the display name of the value.
func (v Value) String() string {
	switch v {
	case Slow:
		return "Slow"
	case Normal:
		return "Normal"
	case Fast:
		return "Fast"
	default:
		return fmt.Sprintf("Value(%d)", int(v))
	}
}
