package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

// fakeClock is a settable clock shared between test and message.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1700000000000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSaver struct {
	mu    sync.Mutex
	calls int
	last  *protocol.LogicalPayload
	err   error
}

func (s *recordingSaver) SavePayload(p *protocol.LogicalPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = p
	return s.err
}

func countdownPayload(seconds uint32) *protocol.LogicalPayload {
	return &protocol.LogicalPayload{
		Text:      "self destructing",
		CreatedAt: 1700000000000,
		Expiry:    protocol.CountdownSeconds(seconds),
	}
}

func TestCountdownTimeline(t *testing.T) {
	clock := newFakeClock()
	m, err := NewMessage(countdownPayload(5), nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	if got := m.State(); got != StateAwaitingOpen {
		t.Fatalf("State() = %v, want awaiting_open", got)
	}

	state, err := m.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if state != StateCountingDown {
		t.Fatalf("Open() state = %v, want counting_down", state)
	}

	// T0+4.9s: still counting, about 0.1s left
	clock.Advance(4900 * time.Millisecond)
	if got := m.State(); got != StateCountingDown {
		t.Errorf("State() at T0+4.9s = %v, want counting_down", got)
	}
	rem := m.Remaining()
	if rem <= 0 || rem > 150*time.Millisecond {
		t.Errorf("Remaining() at T0+4.9s = %v, want ~100ms", rem)
	}

	// T0+5.2s: inside the vanish grace window
	clock.Advance(300 * time.Millisecond)
	if got := m.State(); got != StateVanishing {
		t.Errorf("State() at T0+5.2s = %v, want vanishing", got)
	}
	if got := m.Remaining(); got != 0 {
		t.Errorf("Remaining() after expiry = %v, want 0", got)
	}

	// Past the grace window: destroyed
	clock.Advance(VanishGrace)
	if got := m.State(); got != StateDestroyed {
		t.Errorf("State() past grace = %v, want destroyed", got)
	}
	if _, err := m.Payload(); !errors.Is(err, ErrTerminal) {
		t.Errorf("Payload() error = %v, want ErrTerminal", err)
	}
	if _, err := m.Open(); !errors.Is(err, ErrTerminal) {
		t.Errorf("Open() after destruction error = %v, want ErrTerminal", err)
	}
}

func TestCountdownSurvivesSuspension(t *testing.T) {
	clock := newFakeClock()
	m, err := NewMessage(countdownPayload(10), nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// No intermediate State() queries: one big jump must still land
	// on destroyed, as if the app was suspended the whole time.
	clock.Advance(time.Hour)
	if got := m.State(); got != StateDestroyed {
		t.Errorf("State() after suspension = %v, want destroyed", got)
	}
}

func TestCountdownDismissKeepsTimer(t *testing.T) {
	clock := newFakeClock()
	m, err := NewMessage(countdownPayload(5), nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	state, err := m.Dismiss()
	if err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	if state != StateCountingDown {
		t.Errorf("Dismiss() state = %v, want counting_down", state)
	}

	// Content is still reachable until the timer fires
	if _, err := m.Payload(); err != nil {
		t.Errorf("Payload() after dismissal error = %v", err)
	}
	clock.Advance(6 * time.Second)
	if got := m.State(); got != StateDestroyed {
		t.Errorf("State() after timer = %v, want destroyed", got)
	}
}

func TestReadOnceNeverTimesOut(t *testing.T) {
	clock := newFakeClock()
	p := &protocol.LogicalPayload{Text: "burn after reading", CreatedAt: 1, Expiry: protocol.ReadOnce()}
	m, err := NewMessage(p, nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	state, err := m.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if state != StateOpenReadOnce {
		t.Fatalf("Open() state = %v, want open_read_once", state)
	}

	clock.Advance(72 * time.Hour)
	if got := m.State(); got != StateOpenReadOnce {
		t.Errorf("State() after 72h = %v, want open_read_once", got)
	}
	if got := m.Remaining(); got != 0 {
		t.Errorf("Remaining() = %v, want 0 for read-once", got)
	}

	// Only dismissal starts the vanish transition
	state, err = m.Dismiss()
	if err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	if state != StateVanishing {
		t.Errorf("Dismiss() state = %v, want vanishing", state)
	}
	clock.Advance(VanishGrace)
	if got := m.State(); got != StateDestroyed {
		t.Errorf("State() past grace = %v, want destroyed", got)
	}
	if _, err := m.Dismiss(); !errors.Is(err, ErrTerminal) {
		t.Errorf("Dismiss() after destruction error = %v, want ErrTerminal", err)
	}
}

func TestPermanentSavesExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	saver := &recordingSaver{}
	p := &protocol.LogicalPayload{Text: "keeper", CreatedAt: 1, Expiry: protocol.Permanent()}
	m, err := NewMessage(p, saver, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		state, err := m.Open()
		if err != nil {
			t.Fatalf("Open() #%d error = %v", i, err)
		}
		if state != StateOpenPermanent {
			t.Fatalf("Open() #%d state = %v, want open_permanent", i, state)
		}
	}

	if saver.calls != 1 {
		t.Errorf("SavePayload called %d times, want 1", saver.calls)
	}
	if saver.last == nil || saver.last.Text != "keeper" {
		t.Error("SavePayload did not receive the payload")
	}

	// Permanent never destroys; dismissal is a no-op
	clock.Advance(240 * time.Hour)
	if _, err := m.Dismiss(); err != nil {
		t.Errorf("Dismiss() error = %v", err)
	}
	if got := m.State(); got != StateOpenPermanent {
		t.Errorf("State() = %v, want open_permanent", got)
	}
}

func TestPermanentSaveFailureSurfaces(t *testing.T) {
	saver := &recordingSaver{err: errors.New("disk full")}
	p := &protocol.LogicalPayload{Text: "keeper", CreatedAt: 1, Expiry: protocol.Permanent()}
	m, err := NewMessage(p, saver, WithClock(newFakeClock().Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	if _, err := m.Open(); err == nil {
		t.Error("Open() expected save error, got nil")
	}
	// The open itself still happened; no retry storm on re-open
	if _, err := m.Open(); err != nil {
		t.Errorf("second Open() error = %v", err)
	}
	if saver.calls != 1 {
		t.Errorf("SavePayload called %d times, want 1", saver.calls)
	}
}

func TestPastWindowLocksBeforeOpen(t *testing.T) {
	clock := newFakeClock()
	p := countdownPayload(30)
	p.Window = clock.Now().Add(-time.Minute).UnixMilli()

	m, err := NewMessage(p, nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	if got := m.State(); got != StateWindowLocked {
		t.Fatalf("State() = %v, want window_locked", got)
	}
	state, err := m.Open()
	if !errors.Is(err, ErrTerminal) {
		t.Errorf("Open() error = %v, want ErrTerminal", err)
	}
	if state != StateWindowLocked {
		t.Errorf("Open() state = %v, want window_locked, never awaiting_open", state)
	}
	if _, err := m.Payload(); !errors.Is(err, ErrTerminal) {
		t.Errorf("Payload() error = %v, want ErrTerminal", err)
	}
}

func TestWindowExpiresWhileAwaitingOpen(t *testing.T) {
	clock := newFakeClock()
	p := countdownPayload(30)
	p.Window = clock.Now().Add(time.Minute).UnixMilli()

	m, err := NewMessage(p, nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if got := m.State(); got != StateAwaitingOpen {
		t.Fatalf("State() = %v, want awaiting_open", got)
	}

	clock.Advance(2 * time.Minute)
	if got := m.State(); got != StateWindowLocked {
		t.Errorf("State() after deadline = %v, want window_locked", got)
	}
	if _, err := m.Open(); !errors.Is(err, ErrTerminal) {
		t.Errorf("Open() error = %v, want ErrTerminal", err)
	}
}

func TestWindowDoesNotInterruptOpenMessage(t *testing.T) {
	clock := newFakeClock()
	p := countdownPayload(600)
	p.Window = clock.Now().Add(time.Minute).UnixMilli()

	m, err := NewMessage(p, nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// Window passing after a timely open does not lock the message
	clock.Advance(5 * time.Minute)
	if got := m.State(); got != StateCountingDown {
		t.Errorf("State() = %v, want counting_down", got)
	}
}

func TestDestructionZeroesBuffers(t *testing.T) {
	clock := newFakeClock()
	image := []byte{1, 2, 3, 4, 5}
	audio := []byte{9, 8, 7}
	p := &protocol.LogicalPayload{
		Text:      "gone soon",
		Image:     image,
		Audio:     audio,
		CreatedAt: 1,
		Expiry:    protocol.CountdownSeconds(1),
	}
	m, err := NewMessage(p, nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	clock.Advance(2 * time.Second)
	if got := m.State(); got != StateDestroyed {
		t.Fatalf("State() = %v, want destroyed", got)
	}

	if !bytes.Equal(image, make([]byte, len(image))) {
		t.Error("image buffer not zeroed on destruction")
	}
	if !bytes.Equal(audio, make([]byte, len(audio))) {
		t.Error("audio buffer not zeroed on destruction")
	}
}

func TestNewMessageRejectsInvalid(t *testing.T) {
	if _, err := NewMessage(nil, nil); err == nil {
		t.Error("NewMessage(nil) expected error")
	}
	bad := &protocol.LogicalPayload{Text: "x", CreatedAt: 1} // zero-value directive
	if _, err := NewMessage(bad, nil); !errors.Is(err, protocol.ErrInvalidExpiry) {
		t.Errorf("NewMessage(invalid expiry) error = %v, want ErrInvalidExpiry", err)
	}
}

func TestWatchEmitsTransitions(t *testing.T) {
	p := &protocol.LogicalPayload{Text: "watched", CreatedAt: 1, Expiry: protocol.ReadOnce()}
	m, err := NewMessage(p, nil)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := m.Watch(ctx)
	if _, err := m.Dismiss(); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}

	var seen []State
	for s := range ch {
		seen = append(seen, s)
	}

	if len(seen) == 0 {
		t.Fatal("Watch emitted no transitions")
	}
	if last := seen[len(seen)-1]; last != StateDestroyed {
		t.Errorf("last emitted state = %v, want destroyed", last)
	}
}

func TestWatchCancellationIsNotDestruction(t *testing.T) {
	p := countdownPayload(3600)
	m, err := NewMessage(p, nil)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := m.Watch(ctx)
	cancel()

	// Channel closes without a destroyed emission
	for range ch {
	}

	if got := m.State(); got != StateCountingDown {
		t.Errorf("State() after watcher cancel = %v, want counting_down", got)
	}
	if _, err := m.Payload(); err != nil {
		t.Errorf("Payload() after watcher cancel error = %v", err)
	}
}
