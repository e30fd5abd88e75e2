package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// gpioConsumer is the consumer label shown by gpioinfo for requested lines.
const gpioConsumer = "relayseq"

// GPIOSink drives relays through the Linux GPIO character device.
//
// Channel i maps to lines[i]. Lines are requested as outputs at the idle
// level so relays stay off until the first frame is applied.
//
// Thread Safety: All methods are safe for concurrent use.
type GPIOSink struct {
	chip   string
	lines  []*gpiocdev.Line
	closed bool
	mu     sync.Mutex
}

// OpenGPIO requests the given line offsets on chip as outputs.
//
// Parameters:
//   - chip: GPIO chip name or path (e.g., "gpiochip0")
//   - offsets: Line offset for each channel, in channel order
//   - idle: Initial level (the relay "off" level)
//
// Returns:
//   - *GPIOSink: Sink owning the requested lines
//   - error: If any line cannot be requested (already requested lines are released)
func OpenGPIO(chip string, offsets []int, idle Level) (*GPIOSink, error) {
	s := &GPIOSink{
		chip:  chip,
		lines: make([]*gpiocdev.Line, 0, len(offsets)),
	}

	for _, offset := range offsets {
		line, err := gpiocdev.RequestLine(chip, offset,
			gpiocdev.AsOutput(int(idle)),
			gpiocdev.WithConsumer(gpioConsumer),
		)
		if err != nil {
			s.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("requesting %s line %d: %w", chip, offset, err)
		}
		s.lines = append(s.lines, line)
	}

	return s, nil
}

// Write implements Sink.
func (s *GPIOSink) Write(channel int, level Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if channel < 0 || channel >= len(s.lines) {
		return ErrChannelRange
	}
	return s.lines[channel].SetValue(int(level))
}

// Channels returns the number of requested lines.
func (s *GPIOSink) Channels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Close releases every requested line.
func (s *GPIOSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, l := range s.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.lines = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("releasing %s lines: %w", s.chip, err)
	}
	return nil
}
