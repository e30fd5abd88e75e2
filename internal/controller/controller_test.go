package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/relay-sequencer/internal/output"
	"github.com/nerrad567/relay-sequencer/internal/player"
	"github.com/nerrad567/relay-sequencer/internal/sequence"
	"github.com/nerrad567/relay-sequencer/internal/speed"
)

// memoryStore is an in-memory DefaultsStore.
type memoryStore struct {
	mu      sync.Mutex
	d       *player.Defaults
	saveErr error
}

func (s *memoryStore) LoadDefaults(context.Context) (player.Defaults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.d == nil {
		return player.Defaults{SequenceID: player.DefaultSequenceID, Speed: 1000}, nil
	}
	return *s.d, nil
}

func (s *memoryStore) SaveDefaults(_ context.Context, d player.Defaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.d = &d
	return nil
}

// eventLog collects observed events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) waitFor(t *testing.T, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		if len(l.events) >= n {
			out := append([]Event(nil), l.events...)
			l.mu.Unlock()
			return out
		}
		l.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events", n)
	return nil
}

type harness struct {
	ctrl   *Controller
	rec    *output.Recorder
	store  *memoryStore
	events *eventLog
}

// startController runs a controller over 8 recorded channels until the test ends.
func startController(t *testing.T, store *memoryStore) *harness {
	t.Helper()

	rec := output.NewRecorder(8)
	opts := Options{
		Catalog: sequence.NewCatalog(8),
		Output:  output.NewMapping(output.High, 8, rec),
	}
	if store != nil {
		opts.Store = store
	}

	ctrl, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	events := &eventLog{}
	ctrl.Observe(events.observe)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run() did not return after cancel")
		}
	})

	return &harness{ctrl: ctrl, rec: rec, store: store, events: events}
}

func intPtr(v int) *int { return &v }

func TestNew_RequiresCatalogAndOutput(t *testing.T) {
	if _, err := New(context.Background(), Options{Output: output.NewMapping(output.High, 1, output.NewRecorder(1))}); err == nil {
		t.Error("New() without catalog should fail")
	}
	if _, err := New(context.Background(), Options{Catalog: sequence.NewCatalog(1)}); err == nil {
		t.Error("New() without output should fail")
	}
}

func TestRun_StartsWithStoredDefault(t *testing.T) {
	store := &memoryStore{d: &player.Defaults{SequenceID: 3, Speed: 1500}}
	h := startController(t, store)

	st, err := h.ctrl.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st != (player.Status{SequenceID: 3, Speed: speed.Slow}) {
		t.Errorf("Status() = %+v, want {3 Slow}", st)
	}

	events := h.events.waitFor(t, 1)
	if events[0].Source != SourceStartup || events[0].Name != "Wave Double" {
		t.Errorf("first event = %+v", events[0])
	}
}

func TestSetSequence_AppliesImmediately(t *testing.T) {
	h := startController(t, nil)

	st, err := h.ctrl.SetSequence(context.Background(), SequenceRequest{
		SequenceID: intPtr(0),
		Speed:      intPtr(2000),
	}, SourceHTTP)
	if err != nil {
		t.Fatalf("SetSequence() error = %v", err)
	}
	if st != (player.Status{SequenceID: 0, Speed: speed.Slow}) {
		t.Errorf("SetSequence() = %+v", st)
	}

	levels := h.rec.Levels()
	if levels[0] != output.High {
		t.Errorf("channel 0 = %v, want high (Chase Single first step)", levels[0])
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] != output.Low {
			t.Errorf("channel %d = %v, want low", i, levels[i])
		}
	}

	events := h.events.waitFor(t, 2)
	if events[1].Source != SourceHTTP || events[1].Name != "Chase Single" {
		t.Errorf("change event = %+v", events[1])
	}
}

func TestSetSequence_OptionalFieldsKeepCurrent(t *testing.T) {
	h := startController(t, nil)
	ctx := context.Background()

	if _, err := h.ctrl.SetSequence(ctx, SequenceRequest{SequenceID: intPtr(5), Speed: intPtr(500)}, SourceHTTP); err != nil {
		t.Fatalf("SetSequence() error = %v", err)
	}

	st, err := h.ctrl.SetSequence(ctx, SequenceRequest{Speed: intPtr(1900)}, SourceHTTP)
	if err != nil {
		t.Fatalf("SetSequence() error = %v", err)
	}
	if st != (player.Status{SequenceID: 5, Speed: speed.Slow}) {
		t.Errorf("speed only = %+v, want {5 Slow}", st)
	}

	st, err = h.ctrl.SetSequence(ctx, SequenceRequest{SequenceID: intPtr(99)}, SourceHTTP)
	if err != nil {
		t.Fatalf("SetSequence() error = %v", err)
	}
	if st != (player.Status{SequenceID: 7, Speed: speed.Slow}) {
		t.Errorf("id only = %+v, want {7 Slow}", st)
	}
}

func TestSetDefault_ClampsAndPersists(t *testing.T) {
	store := &memoryStore{}
	h := startController(t, store)
	ctx := context.Background()

	before, err := h.ctrl.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	st, err := h.ctrl.SetDefault(ctx, 42, 600)
	if err != nil {
		t.Fatalf("SetDefault() error = %v", err)
	}
	if st != (player.Status{SequenceID: 7, Speed: speed.Fast}) {
		t.Errorf("SetDefault() = %+v, want {7 Fast}", st)
	}

	saved, _ := store.LoadDefaults(ctx) //nolint:errcheck // Memory store never fails
	if saved != (player.Defaults{SequenceID: 7, Speed: 500}) {
		t.Errorf("stored = %+v, want {7 500}", saved)
	}

	after, err := h.ctrl.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if after != before {
		t.Errorf("SetDefault changed playback: %+v -> %+v", before, after)
	}
}

func TestSetDefault_StoreErrors(t *testing.T) {
	h := startController(t, &memoryStore{saveErr: errors.New("disk full")})
	if _, err := h.ctrl.SetDefault(context.Background(), 1, 1000); err == nil {
		t.Error("SetDefault() expected store error")
	}

	noStore := startController(t, nil)
	if _, err := noStore.ctrl.SetDefault(context.Background(), 1, 1000); err == nil {
		t.Error("SetDefault() without store expected error")
	}
}

func TestRequests_AfterStop(t *testing.T) {
	ctrl, err := New(context.Background(), Options{
		Catalog: sequence.NewCatalog(4),
		Output:  output.NewMapping(output.High, 4, output.NewRecorder(4)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	if _, err := ctrl.Status(context.Background()); err != nil {
		t.Fatalf("Status() while running error = %v", err)
	}
	if err := ctrl.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	<-done

	if _, err := ctrl.Status(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Status() after stop error = %v, want ErrStopped", err)
	}
}

func TestRequests_ContextCancelledBeforeRun(t *testing.T) {
	ctrl, err := New(context.Background(), Options{
		Catalog: sequence.NewCatalog(4),
		Output:  output.NewMapping(output.High, 4, output.NewRecorder(4)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := ctrl.Status(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Status() error = %v, want DeadlineExceeded", err)
	}
}

func TestSnapshot(t *testing.T) {
	h := startController(t, nil)

	snap, err := h.ctrl.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Name != "Chase Double" {
		t.Errorf("Name = %q, want Chase Double", snap.Name)
	}
	if snap.Steps < 1 {
		t.Errorf("Steps = %d, want at least the first step", snap.Steps)
	}
	if snap.State != player.Delay.String() {
		t.Errorf("State = %q, want delay", snap.State)
	}
}

func TestNames(t *testing.T) {
	h := startController(t, nil)

	names := h.ctrl.Names()
	if len(names) != 8 || names[6] != "OFF" || names[7] != "ON" {
		t.Errorf("Names() = %v", names)
	}
	if h.ctrl.NamesJSON() == "" {
		t.Error("NamesJSON() empty")
	}
}
