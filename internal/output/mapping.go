package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/relay-sequencer/internal/sequence"
)

// Level is the logic level written to a physical output.
type Level uint8

// Logic levels.
const (
	Low  Level = 0
	High Level = 1
)

// Invert returns the opposite level.
func (l Level) Invert() Level {
	return l ^ 1
}

// String returns "high" or "low".
func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// ParseLevel converts "high"/"low" (or "1"/"0") into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "1":
		return High, nil
	case "low", "0":
		return Low, nil
	default:
		return Low, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

// Sink writes a level to one output channel.
//
// Implementations must return quickly: Write is called from the control loop
// once per channel per tick.
type Sink interface {
	Write(channel int, level Level) error
}

// Flusher is implemented by sinks that want to know when a whole frame has
// been written. Mapping calls Flush once after every Apply.
type Flusher interface {
	Flush() error
}

// Mapping translates sequence flags into per-channel writes for a relay bank
// with a fixed trigger polarity.
type Mapping struct {
	trigger  Level
	channels int
	sink     Sink
}

// NewMapping creates a mapping for channels outputs driven through sink.
//
// Parameters:
//   - trigger: The level that switches a relay on
//   - channels: Number of outputs (clamped to [0, sequence.MaxChannels])
//   - sink: Destination for the writes
//
// Returns:
//   - *Mapping: Mapping ready for Apply
func NewMapping(trigger Level, channels int, sink Sink) *Mapping {
	return &Mapping{
		trigger:  trigger,
		channels: min(max(channels, 0), sequence.MaxChannels),
		sink:     sink,
	}
}

// Channels returns the number of outputs written by Apply.
func (m *Mapping) Channels() int {
	return m.channels
}

// Trigger returns the active level.
func (m *Mapping) Trigger() Level {
	return m.trigger
}

// LevelFor returns the level for a channel whose flag bit is on.
// An active channel is driven to the trigger level and an idle one to the
// opposite level: trigger XOR (bit == 0).
func (m *Mapping) LevelFor(on bool) Level {
	if on {
		return m.trigger
	}
	return m.trigger.Invert()
}

// Apply writes every channel from flag. All channels are written even if some
// writes fail; the failures are joined into the returned error.
func (m *Mapping) Apply(flag sequence.Flag) error {
	var errs []error
	for i := range m.channels {
		level := m.LevelFor(flag&(1<<i) != 0)
		if err := m.sink.Write(i, level); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", i, err))
		}
	}

	if f, ok := m.sink.(Flusher); ok {
		if err := f.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
	}

	return errors.Join(errs...)
}
