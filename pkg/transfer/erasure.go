package transfer

import (
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

var (
	ErrEmptyErasureData = errors.New("cannot erasure encode empty data")
	ErrTooManyShards    = errors.New("payload exceeds maximum shard count")
)

// maxShards is the Reed-Solomon field limit (GF(2^8))
const maxShards = 256

// parityShardsFor returns the parity shard count for a data shard
// count: one parity shard per four data shards, minimum one. A camera
// stream routinely misses a few frames per cycle; this buys recovery
// of those misses without another full cycle.
func parityShardsFor(dataShards int) int {
	parity := (dataShards + 3) / 4
	if parity < 1 {
		parity = 1
	}
	return parity
}

// SplitErasure slices a serialized payload into Reed-Solomon shards and
// wraps each shard as one fragment, data shards first, parity shards
// after. The receiver completes the transfer from any subset of
// data-shard-count fragments; which ones does not matter.
func SplitErasure(data []byte, capacity int, kind uint8, id protocol.TransferID, window int64) ([]*protocol.Fragment, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if len(data) == 0 {
		return nil, ErrEmptyErasureData
	}

	dataShards := (len(data) + capacity - 1) / capacity
	parityShards := parityShardsFor(dataShards)

	if dataShards+parityShards > maxShards {
		return nil, ErrTooManyShards
	}

	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("failed to create Reed-Solomon encoder: %w", err)
	}

	shards, err := enc.Split(data)
	if err != nil {
		return nil, fmt.Errorf("failed to split data: %w", err)
	}

	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("failed to encode parity: %w", err)
	}

	total := dataShards + parityShards
	fragments := make([]*protocol.Fragment, 0, total)

	for i, shard := range shards {
		fragments = append(fragments, &protocol.Fragment{
			Kind:         kind,
			Flags:        protocol.FragFlagErasure,
			ID:           id,
			Index:        uint16(i),
			Total:        uint16(total),
			Expiry:       uint64(window),
			OriginalSize: uint32(len(data)),
			Data:         shard,
		})
	}

	return fragments, nil
}

// reconstructErasureLocked rebuilds the original payload bytes from the
// received shard subset. Caller holds the lock and has checked
// completeness.
func (a *Assembler) reconstructErasureLocked() ([]byte, error) {
	dataShards := a.dataShardsLocked()
	parityShards := int(a.total) - dataShards
	if parityShards < 1 {
		return nil, fmt.Errorf("inconsistent shard geometry: %d data of %d total", dataShards, a.total)
	}

	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("failed to create Reed-Solomon encoder: %w", err)
	}

	// Missing shards stay nil for Reconstruct to fill in
	shards := make([][]byte, a.total)
	for i := uint16(0); i < a.total; i++ {
		if slice, ok := a.slices[i]; ok {
			shard := make([]byte, len(slice))
			copy(shard, slice)
			shards[i] = shard
		}
	}

	if err := enc.Reconstruct(shards); err != nil {
		return nil, fmt.Errorf("failed to reconstruct shards: %w", err)
	}

	ok, err := enc.Verify(shards)
	if err != nil {
		return nil, fmt.Errorf("failed to verify shards: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("shard verification failed")
	}

	buf := make([]byte, 0, a.originalSize)
	for i := 0; i < dataShards; i++ {
		buf = append(buf, shards[i]...)
	}

	if len(buf) > int(a.originalSize) {
		buf = buf[:a.originalSize]
	}

	return buf, nil
}
