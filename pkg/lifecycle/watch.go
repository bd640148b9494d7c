package lifecycle

import (
	"context"
	"time"
)

// watchInterval is how often Watch re-reads the clock. Small enough
// that the Vanishing window is always observed.
const watchInterval = 50 * time.Millisecond

// Watch emits each state transition on the returned channel until the
// message reaches a terminal state or ctx is canceled. Cancellation
// only stops the watcher; it never destroys the message.
func (m *Message) Watch(ctx context.Context) <-chan State {
	out := make(chan State, 4)

	go func() {
		defer close(out)

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		last := m.State()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			s := m.State()
			if s == last {
				continue
			}
			last = s

			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
			if s.Terminal() {
				return
			}
		}
	}()

	return out
}
