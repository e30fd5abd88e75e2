package controller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/relay-sequencer/internal/player"
	"github.com/nerrad567/relay-sequencer/internal/sequence"
	"github.com/nerrad567/relay-sequencer/internal/speed"
)

const (
	// DefaultPollInterval is how often the control loop ticks the player.
	DefaultPollInterval = 10 * time.Millisecond

	// eventBuffer bounds how many status changes may queue for slow observers.
	eventBuffer = 64
)

// Source says what caused a status change.
type Source string

// Change sources.
const (
	SourceStartup Source = "startup"
	SourceHTTP    Source = "http"
	SourceMQTT    Source = "mqtt"
)

// Event is delivered to observers after every status change.
type Event struct {
	Status player.Status `json:"status"`
	Name   string        `json:"sequence"`
	Source Source        `json:"source"`
	At     time.Time     `json:"at"`
}

// Snapshot is a diagnostic view of the player.
type Snapshot struct {
	Status player.Status `json:"status"`
	Name   string        `json:"sequence"`
	State  string        `json:"state"`
	Steps  uint64        `json:"steps"`
}

// DefaultsStore persists the start-up selection.
// Satisfied by *preferences.PlayerDefaults.
type DefaultsStore interface {
	player.DefaultsLoader
	SaveDefaults(ctx context.Context, d player.Defaults) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Options configures a Controller.
type Options struct {
	Catalog *sequence.Catalog
	Output  player.Applier

	// Store holds the start-up defaults. May be nil, in which case the
	// compiled-in defaults are used and setDefault cannot persist.
	Store DefaultsStore

	Logger       Logger
	PollInterval time.Duration

	// Clock replaces time.Now for the player. Tests only.
	Clock func() time.Time
}

// Controller owns the Player and runs its control loop.
//
// The Player is not safe for concurrent use, so every command and status
// query is handed to the loop goroutine as a request. Observers are called
// on a separate goroutine and may block without stalling playback.
type Controller struct {
	player  *player.Player
	catalog *sequence.Catalog
	store   DefaultsStore
	logger  Logger
	poll    time.Duration

	requests chan func(*player.Player)
	events   chan Event
	stopped  chan struct{}
	running  atomic.Bool

	observers  []func(Event)
	observerMu sync.RWMutex
}

// New creates the player (reading the start-up defaults from the store) and
// returns a controller ready to Run.
//
// Parameters:
//   - ctx: Context for reading the defaults
//   - opts: Catalog and Output are required
//
// Returns:
//   - *Controller: Controller with the default sequence selected
//   - error: If a required option is missing
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("controller: catalog is required")
	}
	if opts.Output == nil {
		return nil, fmt.Errorf("controller: output is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	var playerOpts []player.Option
	if opts.Logger != nil {
		playerOpts = append(playerOpts, player.WithLogger(opts.Logger))
	}
	if opts.Clock != nil {
		playerOpts = append(playerOpts, player.WithClock(opts.Clock))
	}

	// A nil interface must not wrap a nil pointer.
	var loader player.DefaultsLoader
	if opts.Store != nil {
		loader = opts.Store
	}

	return &Controller{
		player:   player.New(ctx, opts.Catalog, opts.Output, loader, playerOpts...),
		catalog:  opts.Catalog,
		store:    opts.Store,
		logger:   opts.Logger,
		poll:     opts.PollInterval,
		requests: make(chan func(*player.Player)),
		events:   make(chan Event, eventBuffer),
		stopped:  make(chan struct{}),
	}, nil
}

// Observe registers fn to receive every status change, starting with the
// start-up selection. Register observers before calling Run.
func (c *Controller) Observe(fn func(Event)) {
	c.observerMu.Lock()
	c.observers = append(c.observers, fn)
	c.observerMu.Unlock()
}

// Run drives the player until ctx is cancelled. It always returns nil after
// cancellation; playback errors are logged, never fatal.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.dispatchEvents()
	}()
	defer func() {
		close(c.events)
		wg.Wait()
		close(c.stopped)
	}()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	c.emit(SourceStartup)
	c.player.Tick()

	for {
		select {
		case <-ctx.Done():
			if c.logger != nil {
				c.logger.Info("control loop stopped", "steps", c.player.Steps())
			}
			return nil
		case fn := <-c.requests:
			fn(c.player)
		case <-ticker.C:
			c.player.Tick()
		}
	}
}

// do runs fn on the control loop and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func(*player.Player)) error {
	done := make(chan struct{})
	req := func(p *player.Player) {
		fn(p)
		close(done)
	}

	select {
	case c.requests <- req:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the request always completes; the loop never drops one.
	<-done
	return nil
}

// SequenceRequest selects a sequence. Nil fields keep the current value.
type SequenceRequest struct {
	SequenceID *int
	Speed      *int
}

// SetSequence switches playback. The sequence restarts from its first step
// and plays on the next tick. Out-of-range values are clamped.
//
// Returns the resulting status.
func (c *Controller) SetSequence(ctx context.Context, req SequenceRequest, source Source) (player.Status, error) {
	var st player.Status
	err := c.do(ctx, func(p *player.Player) {
		cur := p.Status()

		id := cur.SequenceID
		if req.SequenceID != nil {
			id = *req.SequenceID
		}
		sp := cur.Speed
		if req.Speed != nil {
			sp = speed.Constrain(*req.Speed)
		}

		p.SetNewSequence(id, sp)
		// The player reports the new step on the next tick; run it now so
		// the change is immediate even with a slow poll interval.
		p.Tick()
		st = p.Status()
		c.emit(source)
	})
	return st, err
}

// SetDefault clamps and persists the start-up selection. Current playback is
// unchanged. Returns the values as stored.
func (c *Controller) SetDefault(ctx context.Context, sequenceID, speedMS int) (player.Status, error) {
	st := player.Status{
		SequenceID: c.catalog.Constrain(sequenceID),
		Speed:      speed.Constrain(speedMS),
	}
	if c.store == nil {
		return player.Status{}, fmt.Errorf("controller: no defaults store configured")
	}

	err := c.store.SaveDefaults(ctx, player.Defaults{
		SequenceID: st.SequenceID,
		Speed:      st.Speed.Milliseconds(),
	})
	if err != nil {
		return player.Status{}, err
	}

	if c.logger != nil {
		c.logger.Info("saved default sequence",
			"sequence_id", st.SequenceID,
			"sequence", c.catalog.Name(st.SequenceID),
			"speed_ms", st.Speed.Milliseconds(),
		)
	}
	return st, nil
}

// Status returns the current sequence ID and speed.
func (c *Controller) Status(ctx context.Context) (player.Status, error) {
	var st player.Status
	err := c.do(ctx, func(p *player.Player) {
		st = p.Status()
	})
	return st, err
}

// Snapshot returns status plus state machine diagnostics.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := c.do(ctx, func(p *player.Player) {
		s = Snapshot{
			Status: p.Status(),
			Name:   p.SequenceName(),
			State:  p.State().String(),
			Steps:  p.Steps(),
		}
	})
	return s, err
}

// Names returns the catalog's display names in ID order.
func (c *Controller) Names() []string {
	return c.catalog.Names()
}

// NamesJSON returns the catalog names as a JSON array.
func (c *Controller) NamesJSON() string {
	return c.catalog.NamesJSON()
}

// emit queues an event for observers. Called on the loop goroutine only.
func (c *Controller) emit(source Source) {
	ev := Event{
		Status: c.player.Status(),
		Name:   c.player.SequenceName(),
		Source: source,
		At:     time.Now().UTC(),
	}
	select {
	case c.events <- ev:
	default:
		if c.logger != nil {
			c.logger.Warn("dropping status event, observers too slow", "source", source)
		}
	}
}

func (c *Controller) dispatchEvents() {
	for ev := range c.events {
		c.observerMu.RLock()
		observers := c.observers
		c.observerMu.RUnlock()

		for _, fn := range observers {
			fn(ev)
		}
	}
}
