// Package lifecycle implements the ephemeral message state machine
// that governs a reconstructed payload after it reaches the viewer:
// pre-scan expiry window, post-open countdown, read-once dismissal,
// or permanent retention with auto-persist.
//
// All timing is computed against the wall clock rather than a tick
// counter, so a message that was suspended mid-countdown reports the
// correct state on resume.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

// VanishGrace is the fixed interval a message spends in StateVanishing
// before it is considered destroyed. It exists so a viewer has time to
// play a removal animation.
const VanishGrace = 600 * time.Millisecond

var ErrTerminal = errors.New("message is terminal")

// State is the lifecycle position of a message.
type State uint8

const (
	// StateWindowLocked means the transfer window deadline passed
	// before the message was opened. Terminal.
	StateWindowLocked State = iota + 1
	// StateAwaitingOpen means the payload is assembled but not yet
	// viewed.
	StateAwaitingOpen
	// StateCountingDown means the message is open and its countdown
	// is running.
	StateCountingDown
	// StateOpenReadOnce means the message is open and waits for an
	// explicit dismissal. No timer runs.
	StateOpenReadOnce
	// StateOpenPermanent means the message is open and never
	// destroyed.
	StateOpenPermanent
	// StateVanishing is the transient pre-destruction period.
	StateVanishing
	// StateDestroyed means the content has been discarded. Terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateWindowLocked:
		return "window_locked"
	case StateAwaitingOpen:
		return "awaiting_open"
	case StateCountingDown:
		return "counting_down"
	case StateOpenReadOnce:
		return "open_read_once"
	case StateOpenPermanent:
		return "open_permanent"
	case StateVanishing:
		return "vanishing"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leads out of s.
func (s State) Terminal() bool {
	return s == StateWindowLocked || s == StateDestroyed
}

// Saver receives the payload of a permanent message on first open.
// The sqlite store implements it; tests inject fakes.
type Saver interface {
	SavePayload(p *protocol.LogicalPayload) error
}

// Message is the lifecycle wrapper around one reconstructed payload.
// All methods are safe for concurrent use.
type Message struct {
	mu sync.Mutex

	payload   *protocol.LogicalPayload
	directive protocol.ExpiryDirective
	window    time.Time // zero means no transfer window

	openedAt    time.Time
	dismissedAt time.Time

	saver Saver
	saved bool
	wiped bool

	now func() time.Time
}

// Option configures a Message at construction.
type Option func(*Message)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Message) { m.now = now }
}

// NewMessage wraps an assembled payload. The transfer window deadline
// and expiry directive are taken from the payload itself. A window
// that already passed yields a message that is WindowLocked from the
// start.
func NewMessage(payload *protocol.LogicalPayload, saver Saver, opts ...Option) (*Message, error) {
	if payload == nil {
		return nil, errors.New("nil payload")
	}
	if err := payload.Expiry.Validate(); err != nil {
		return nil, err
	}

	m := &Message{
		payload:   payload,
		directive: payload.Expiry,
		saver:     saver,
		now:       time.Now,
	}
	if payload.Window > 0 {
		m.window = time.UnixMilli(payload.Window)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State reports the current lifecycle state, computed against the
// wall clock.
func (m *Message) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Message) stateLocked() State {
	s := m.computeLocked()
	if s == StateDestroyed && !m.wiped {
		m.wipeLocked()
	}
	return s
}

func (m *Message) computeLocked() State {
	now := m.now()

	if m.openedAt.IsZero() {
		if !m.window.IsZero() && now.After(m.window) {
			return StateWindowLocked
		}
		return StateAwaitingOpen
	}

	switch m.directive.Mode {
	case protocol.ExpiryCountdown:
		d := time.Duration(m.directive.Seconds) * time.Second
		elapsed := now.Sub(m.openedAt)
		switch {
		case elapsed < d:
			return StateCountingDown
		case elapsed < d+VanishGrace:
			return StateVanishing
		default:
			return StateDestroyed
		}
	case protocol.ExpiryReadOnce:
		if m.dismissedAt.IsZero() {
			return StateOpenReadOnce
		}
		if now.Sub(m.dismissedAt) < VanishGrace {
			return StateVanishing
		}
		return StateDestroyed
	default:
		return StateOpenPermanent
	}
}

// Open records the first explicit open and branches by directive. A
// permanent message is handed to the Saver exactly once. Reopening an
// already-open message is idempotent. Opening a WindowLocked or
// Destroyed message returns ErrTerminal.
func (m *Message) Open() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stateLocked()
	if s.Terminal() {
		return s, ErrTerminal
	}
	if !m.openedAt.IsZero() {
		return s, nil
	}

	m.openedAt = m.now()

	if m.directive.Mode == protocol.ExpiryPermanent && m.saver != nil && !m.saved {
		m.saved = true
		if err := m.saver.SavePayload(m.payload); err != nil {
			return m.stateLocked(), fmt.Errorf("persist payload: %w", err)
		}
	}
	return m.stateLocked(), nil
}

// Remaining reports the countdown time left, zero for every other
// directive or once the timer has fired.
func (m *Message) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openedAt.IsZero() || m.directive.Mode != protocol.ExpiryCountdown {
		return 0
	}
	d := time.Duration(m.directive.Seconds) * time.Second
	rem := d - m.now().Sub(m.openedAt)
	if rem < 0 {
		return 0
	}
	return rem
}

// Dismiss ends the viewing session. A read-once message starts its
// vanish transition; a countdown message keeps its timer running and
// a permanent message is unaffected.
func (m *Message) Dismiss() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stateLocked()
	if s.Terminal() {
		return s, ErrTerminal
	}
	if m.openedAt.IsZero() {
		return s, nil
	}

	if m.dismissedAt.IsZero() {
		m.dismissedAt = m.now()
	}
	return m.stateLocked(), nil
}

// Payload returns the reconstructed content, or ErrTerminal once the
// message is WindowLocked or Destroyed.
func (m *Message) Payload() (*protocol.LogicalPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.stateLocked(); s.Terminal() {
		return nil, ErrTerminal
	}
	return m.payload, nil
}

// wipeLocked discards the content buffers. Strings cannot be zeroed
// in place, so the payload reference is dropped as well.
func (m *Message) wipeLocked() {
	if m.payload != nil {
		for i := range m.payload.Image {
			m.payload.Image[i] = 0
		}
		for i := range m.payload.Audio {
			m.payload.Audio[i] = 0
		}
		m.payload = nil
	}
	m.wiped = true
}
