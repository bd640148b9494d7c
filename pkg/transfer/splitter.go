package transfer

import (
	"errors"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

var (
	ErrInvalidCapacity  = errors.New("fragment capacity must be positive")
	ErrTooManyFragments = errors.New("payload exceeds maximum fragment count")
)

// DefaultCapacity is the default per-fragment payload size in bytes,
// sized so one fragment fits a single optical code at low error
// correction.
const DefaultCapacity = 800

// MaxFragments is the largest fragment count one transfer can carry
const MaxFragments = 0xFFFF

// Split slices a serialized payload into exactly ceil(len/capacity)
// fragments, where fragment i carries data[i*capacity : (i+1)*capacity]
// (the final fragment carries the remainder). An empty payload yields
// exactly one empty fragment so the transfer is still representable.
//
// Split is a pure one-shot computation: the repeating cycle and its
// cadence belong to the rendering layer, not here.
func Split(data []byte, capacity int, kind uint8, id protocol.TransferID, window int64) ([]*protocol.Fragment, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	total := (len(data) + capacity - 1) / capacity
	if total == 0 {
		total = 1
	}
	if total > MaxFragments {
		return nil, ErrTooManyFragments
	}

	fragments := make([]*protocol.Fragment, 0, total)

	for i := 0; i < total; i++ {
		start := i * capacity
		end := start + capacity
		if end > len(data) {
			end = len(data)
		}

		slice := make([]byte, end-start)
		copy(slice, data[start:end])

		fragments = append(fragments, &protocol.Fragment{
			Kind:   kind,
			ID:     id,
			Index:  uint16(i),
			Total:  uint16(total),
			Expiry: uint64(window),
			Data:   slice,
		})
	}

	return fragments, nil
}

// FrameStrings renders fragments as the GLYC: strings the optical
// layer encodes, in index order.
func FrameStrings(fragments []*protocol.Fragment) []string {
	frames := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		frames = append(frames, frag.EncodeToString())
	}
	return frames
}
