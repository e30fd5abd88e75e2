package player

import (
	"context"
	"time"

	"github.com/nerrad567/relay-sequencer/internal/sequence"
	"github.com/nerrad567/relay-sequencer/internal/speed"
)

// Compiled-in defaults used when no persisted default can be read.
const (
	DefaultSequenceID = 1
	DefaultSpeed      = speed.Normal
)

// State is a step of the playback state machine.
type State uint8

// Playback states.
const (
	// Restart discards any pending delay; the same tick executes a step.
	Restart State = iota
	// Delay waits for the next execution deadline.
	Delay
	// Execute emits the next flag of the current sequence.
	Execute
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case Restart:
		return "restart"
	case Delay:
		return "delay"
	case Execute:
		return "execute"
	default:
		return "unknown"
	}
}

// Status is a snapshot of what the player is doing.
type Status struct {
	SequenceID int         `json:"sequenceID"`
	Speed      speed.Value `json:"speed"`
}

// Defaults is the persisted start-up selection, in its stored (unclamped) form.
type Defaults struct {
	SequenceID int
	Speed      int
}

// DefaultsLoader reads the persisted start-up selection.
type DefaultsLoader interface {
	LoadDefaults(ctx context.Context) (Defaults, error)
}

// Applier writes a flag to the outputs. Satisfied by *output.Mapping.
type Applier interface {
	Apply(flag sequence.Flag) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Player selects a sequence from the catalog and plays it onto the outputs,
// one step per interval.
//
// Playback is cooperative: Tick must be called frequently from the host's
// control loop and never blocks. The player holds no locks; it must only be
// used from that one loop.
type Player struct {
	catalog *sequence.Catalog
	out     Applier
	logger  Logger
	now     func() time.Time

	current   *sequence.Generator
	currentID int
	speed     speed.Value

	state         State
	nextExecution time.Time
	steps         uint64
}

// Option configures a Player.
type Option func(*Player)

// WithClock replaces time.Now as the player's clock.
func WithClock(now func() time.Time) Option {
	return func(p *Player) {
		p.now = now
	}
}

// WithLogger sets the logger for sequence changes and output failures.
func WithLogger(logger Logger) Option {
	return func(p *Player) {
		p.logger = logger
	}
}

// New creates a player and starts the persisted default sequence.
//
// The defaults are read through loader. A nil loader, a read error or an
// out-of-range value never fails construction: the compiled-in default
// (sequence 1 at Normal speed) or the nearest valid value is used instead.
//
// Parameters:
//   - ctx: Context for reading the defaults
//   - catalog: Sequence catalog
//   - out: Output mapping
//   - loader: Persisted defaults (may be nil)
//   - opts: Optional clock and logger
//
// Returns:
//   - *Player: Player with the default sequence selected, ready to Tick
func New(ctx context.Context, catalog *sequence.Catalog, out Applier, loader DefaultsLoader, opts ...Option) *Player {
	p := &Player{
		catalog: catalog,
		out:     out,
		now:     time.Now,
		speed:   DefaultSpeed,
		state:   Delay,
	}
	for _, opt := range opts {
		opt(p)
	}

	d := p.readDefaults(ctx, loader)
	p.SetNewSequence(d.SequenceID, d.Speed)
	return p
}

// readDefaults loads and clamps the persisted defaults, falling back to the
// compiled-in values when they cannot be read.
func (p *Player) readDefaults(ctx context.Context, loader DefaultsLoader) Status {
	d := Defaults{SequenceID: DefaultSequenceID, Speed: DefaultSpeed.Milliseconds()}

	if loader != nil {
		loaded, err := loader.LoadDefaults(ctx)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("reading playback defaults failed, using built-in defaults", "error", err)
			}
		} else {
			d = loaded
		}
	}

	st := Status{
		SequenceID: p.catalog.Constrain(d.SequenceID),
		Speed:      speed.Constrain(d.Speed),
	}
	if p.logger != nil {
		p.logger.Info("playback defaults loaded", "sequence_id", st.SequenceID, "speed_ms", st.Speed.Milliseconds())
	}
	return st
}

// SetNewSequence switches playback to sequence id at speed s.
//
// The id is clamped to the catalog and s is snapped to a supported interval;
// nothing is rejected. The sequence restarts from its first step and any
// pending delay is discarded, so the next Tick plays the new sequence.
func (p *Player) SetNewSequence(id int, s speed.Value) {
	p.currentID, p.current = p.catalog.Lookup(id)
	p.speed = speed.Constrain(s.Milliseconds())
	p.state = Restart

	if p.logger != nil {
		p.logger.Info("starting sequence",
			"sequence_id", p.currentID,
			"sequence", p.current.Name(),
			"speed", p.speed.String(),
		)
	}
}

// Status returns the current sequence ID and speed.
func (p *Player) Status() Status {
	return Status{
		SequenceID: p.currentID,
		Speed:      p.speed,
	}
}

// SequenceName returns the display name of the current sequence.
func (p *Player) SequenceName() string {
	return p.current.Name()
}

// State returns the current state machine state.
func (p *Player) State() State {
	return p.state
}

// Steps returns how many flags have been applied since construction.
func (p *Player) Steps() uint64 {
	return p.steps
}

// Tick advances the state machine. It applies at most one flag and returns
// immediately; it never sleeps.
func (p *Player) Tick() {
	now := p.now()

	switch p.state {
	case Restart:
		// Executes in this same tick so a new selection shows without waiting.
		p.nextExecution = time.Time{}
		p.state = Execute
		p.execute(now)
	case Delay:
		if !now.Before(p.nextExecution) {
			p.state = Execute
		}
	case Execute:
		p.execute(now)
	default:
		p.state = Restart
	}
}

// execute applies the next flag and schedules the following step.
func (p *Player) execute(now time.Time) {
	flag := p.current.Next()
	if err := p.out.Apply(flag); err != nil && p.logger != nil {
		p.logger.Warn("applying output flag failed",
			"sequence", p.current.Name(),
			"flag", sequence.Render(flag, p.catalog.Channels()),
			"error", err,
		)
	}
	p.steps++
	p.state = Delay
	p.nextExecution = now.Add(p.speed.Duration())
}
