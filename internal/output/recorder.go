package output

import (
	"strings"
	"sync"
)

// Logger is the logging interface used by sinks.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Recorder is an in-memory Sink. It keeps the current level of every channel
// and counts frames, and can log each completed frame.
//
// It backs the "log" output driver (no hardware attached) and the tests.
//
// Thread Safety: All methods are safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	levels []Level
	writes int
	frames int
	logger Logger
}

// NewRecorder creates a recorder for channels outputs, all starting Low.
func NewRecorder(channels int) *Recorder {
	return &Recorder{
		levels: make([]Level, max(channels, 0)),
	}
}

// SetLogger enables per-frame debug logging.
func (r *Recorder) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Write implements Sink.
func (r *Recorder) Write(channel int, level Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if channel < 0 || channel >= len(r.levels) {
		return ErrChannelRange
	}
	r.levels[channel] = level
	r.writes++
	return nil
}

// Flush implements Flusher. It marks the end of a frame.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	r.frames++
	logger := r.logger
	frame := renderLevels(r.levels)
	r.mu.Unlock()

	if logger != nil {
		logger.Debug("output frame", "levels", frame)
	}
	return nil
}

// Levels returns a copy of the current channel levels.
func (r *Recorder) Levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Level, len(r.levels))
	copy(out, r.levels)
	return out
}

// Writes returns the number of channel writes so far.
func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Frames returns the number of completed frames so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// renderLevels draws levels as '1'/'0', channel 0 first.
func renderLevels(levels []Level) string {
	var sb strings.Builder
	sb.Grow(len(levels))
	for _, l := range levels {
		if l == High {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
