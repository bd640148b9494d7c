package session

import (
	"context"
	"time"

	"github.com/glyphapp/glyph-node/pkg/protocol"
	"github.com/glyphapp/glyph-node/pkg/transfer"
)

// Presenter cycles a split payload's frame strings for a renderer.
// The cadence belongs to the caller; the protocol only requires that
// frames repeat in index order until the sender stops.
type Presenter struct {
	frames []string
	id     protocol.TransferID
}

// NewPresenter splits an encoded payload and prepares its frames.
// erasure selects the redundancy-coded mode for lossy capture paths.
func NewPresenter(data []byte, capacity int, kind uint8, window int64, erasure bool) (*Presenter, error) {
	id := protocol.GenerateTransferID()

	var (
		fragments []*protocol.Fragment
		err       error
	)
	if erasure {
		fragments, err = transfer.SplitErasure(data, capacity, kind, id, window)
	} else {
		fragments, err = transfer.Split(data, capacity, kind, id, window)
	}
	if err != nil {
		return nil, err
	}

	return &Presenter{frames: transfer.FrameStrings(fragments), id: id}, nil
}

// Frames returns the ordered frame strings for one full cycle.
func (p *Presenter) Frames() []string {
	out := make([]string, len(p.frames))
	copy(out, p.frames)
	return out
}

// FrameCount returns how many frames one cycle shows.
func (p *Presenter) FrameCount() int { return len(p.frames) }

// TransferID identifies this presentation's transfer.
func (p *Presenter) TransferID() protocol.TransferID { return p.id }

// Frame returns the frame for an absolute tick, wrapping around.
func (p *Presenter) Frame(tick int) string {
	if len(p.frames) == 0 {
		return ""
	}
	return p.frames[tick%len(p.frames)]
}

// Run emits frames at the given cadence, cycling 0..N-1 repeatedly
// until ctx is done.
func (p *Presenter) Run(ctx context.Context, cadence time.Duration, emit func(string)) {
	if len(p.frames) == 0 {
		return
	}

	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	i := 0
	emit(p.frames[i])
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i = (i + 1) % len(p.frames)
			emit(p.frames[i])
		}
	}
}
