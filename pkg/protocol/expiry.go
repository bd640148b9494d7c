package protocol

import "errors"

var ErrInvalidExpiry = errors.New("invalid expiry directive")

// ExpiryMode selects what happens to a message after the receiver opens it.
// The zero value is deliberately not a valid mode so an unset directive
// cannot masquerade as one of the three real policies.
type ExpiryMode uint8

const (
	ExpiryCountdown ExpiryMode = 0x01 // Self-destruct n seconds after open
	ExpiryReadOnce  ExpiryMode = 0x02 // Destroyed on explicit dismissal
	ExpiryPermanent ExpiryMode = 0x03 // Never destroyed, persisted on open
)

// ExpiryDirective is the sender-chosen self-destruct policy.
// Exactly one mode is active; Seconds is meaningful only for countdown.
type ExpiryDirective struct {
	Mode    ExpiryMode
	Seconds uint32
}

// CountdownSeconds builds a countdown directive. Seconds must be > 0.
func CountdownSeconds(seconds uint32) ExpiryDirective {
	return ExpiryDirective{Mode: ExpiryCountdown, Seconds: seconds}
}

// ReadOnce builds a read-once directive: no timer, destroyed on dismissal.
func ReadOnce() ExpiryDirective {
	return ExpiryDirective{Mode: ExpiryReadOnce}
}

// Permanent builds a permanent directive: auto-persisted on open.
func Permanent() ExpiryDirective {
	return ExpiryDirective{Mode: ExpiryPermanent}
}

// Validate checks the directive is one of the three modes
// with a consistent seconds field.
func (e ExpiryDirective) Validate() error {
	switch e.Mode {
	case ExpiryCountdown:
		if e.Seconds == 0 {
			return ErrInvalidExpiry
		}
		return nil
	case ExpiryReadOnce, ExpiryPermanent:
		if e.Seconds != 0 {
			return ErrInvalidExpiry
		}
		return nil
	}
	return ErrInvalidExpiry
}
