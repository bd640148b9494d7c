package transfer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

var (
	ErrFragmentRejected = errors.New("fragment rejected: not part of this transfer")
	ErrWindowExpired    = errors.New("transfer window expired")
	ErrIncomplete       = errors.New("transfer incomplete")
)

// Assembler accumulates the fragments of one transfer as the camera
// captures them: out of order, duplicated, or not at all. One instance
// owns exactly one transfer; all mutation happens under its lock, so an
// ingest is atomic with respect to progress and reconstruction reads.
type Assembler struct {
	mu  sync.Mutex
	now func() time.Time

	started      bool
	kind         uint8
	flags        uint8
	id           protocol.TransferID
	total        uint16
	expiry       uint64
	originalSize uint32
	shardSize    int

	slices   map[uint16][]byte
	received int
}

// NewAssembler creates an assembler for a fresh transfer
func NewAssembler() *Assembler {
	return &Assembler{
		now:    time.Now,
		slices: make(map[uint16][]byte),
	}
}

// Ingest feeds one captured fragment into the assembly.
//
// The first fragment fixes the transfer's identity: kind, transfer ID,
// total count, and flags. Any later fragment disagreeing on those is a
// stray from an unrelated or restarted transfer and is rejected with
// ErrFragmentRejected, leaving state untouched. Re-capturing an
// already-stored index is a silent no-op. A fragment whose transfer
// window has passed is refused with ErrWindowExpired.
func (a *Assembler) Ingest(frag *protocol.Fragment) error {
	if frag == nil || frag.Validate() != nil {
		return ErrFragmentRejected
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if frag.Expiry != 0 && uint64(a.now().UnixMilli()) > frag.Expiry {
		return ErrWindowExpired
	}

	if !a.started {
		if frag.Flags&protocol.FragFlagErasure != 0 && frag.OriginalSize == 0 {
			return ErrFragmentRejected
		}

		a.started = true
		a.kind = frag.Kind
		a.flags = frag.Flags
		a.id = frag.ID
		a.total = frag.Total
		a.expiry = frag.Expiry
		a.originalSize = frag.OriginalSize
		a.shardSize = len(frag.Data)
	} else {
		if frag.Kind != a.kind || frag.ID != a.id || frag.Total != a.total || frag.Flags != a.flags {
			return ErrFragmentRejected
		}
		if a.erasure() && (frag.OriginalSize != a.originalSize || len(frag.Data) != a.shardSize) {
			return ErrFragmentRejected
		}
	}

	if _, exists := a.slices[frag.Index]; exists {
		// Camera re-capture of the same code
		return nil
	}

	slice := make([]byte, len(frag.Data))
	copy(slice, frag.Data)

	a.slices[frag.Index] = slice
	a.received++

	return nil
}

// Progress reports the exact fraction of distinct fragments received,
// in [0, 1]. It is monotonically non-decreasing for one transfer.
func (a *Assembler) Progress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return 0
	}
	return float64(a.received) / float64(a.total)
}

// Received reports distinct fragments received and the total expected
func (a *Assembler) Received() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.received, int(a.total)
}

// TransferID returns the transfer identity adopted from the first
// fragment, or the zero ID before any fragment arrived.
func (a *Assembler) TransferID() protocol.TransferID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

// Kind returns the payload kind of the transfer in progress
func (a *Assembler) Kind() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.kind
}

// Window returns the transfer window deadline in unix ms, 0 if none
func (a *Assembler) Window() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(a.expiry)
}

// IsComplete reports whether the payload can be fully reconstructed:
// every index received, or, for erasure-coded transfers, any
// data-shard-count-sized subset.
func (a *Assembler) IsComplete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completeLocked()
}

func (a *Assembler) completeLocked() bool {
	if !a.started {
		return false
	}
	if a.received == int(a.total) {
		return true
	}
	if a.erasure() {
		return a.received >= a.dataShardsLocked()
	}
	return false
}

func (a *Assembler) erasure() bool {
	return a.flags&protocol.FragFlagErasure != 0
}

// dataShardsLocked derives the data shard count of an erasure transfer
// from the original size and the uniform shard size.
func (a *Assembler) dataShardsLocked() int {
	if a.shardSize == 0 {
		return int(a.total)
	}
	n := (int(a.originalSize) + a.shardSize - 1) / a.shardSize
	if n < 1 {
		n = 1
	}
	return n
}

// Bytes returns the reassembled payload byte sequence.
// Fails with ErrIncomplete until IsComplete.
func (a *Assembler) Bytes() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.assembleLocked()
}

func (a *Assembler) assembleLocked() ([]byte, error) {
	if !a.completeLocked() {
		return nil, ErrIncomplete
	}

	if a.erasure() {
		return a.reconstructErasureLocked()
	}

	var out []byte
	for i := uint16(0); i < a.total; i++ {
		out = append(out, a.slices[i]...)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Finalize reassembles the payload and runs it through the payload
// codec. Idempotent and repeatable once complete. A decode failure
// after full coverage means systematic corruption and is surfaced,
// never swallowed; the caller restarts the transfer with Reset.
func (a *Assembler) Finalize() (*protocol.LogicalPayload, error) {
	raw, err := a.Bytes()
	if err != nil {
		return nil, err
	}

	payload, err := protocol.DecodePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("transfer corrupted: %w", err)
	}

	return payload, nil
}

// PartialReconstruct decodes whatever the longest contiguous run of
// fragments starting at index 0 contains. A single gap halts the run;
// fragments beyond the gap are never used, no matter how many arrived.
// Callable at any time; gaps are a routine condition, not an error, so
// the only failure is protocol.ErrPartialUnavailable when even the
// leading descriptor is missing.
func (a *Assembler) PartialReconstruct() (*protocol.PartialPayload, error) {
	a.mu.Lock()

	if a.started && a.completeLocked() && a.erasure() {
		// Erasure transfers reconstruct fully as soon as enough shards
		// arrived; prefer that over a prefix walk.
		raw, err := a.reconstructErasureLocked()
		a.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return protocol.DecodePayloadPrefix(raw)
	}

	limit := int(a.total)
	if a.started && a.erasure() {
		limit = a.dataShardsLocked()
	}

	var prefix []byte
	for i := 0; i < limit; i++ {
		slice, ok := a.slices[uint16(i)]
		if !ok {
			break
		}
		prefix = append(prefix, slice...)
	}

	if a.started && a.erasure() && len(prefix) > int(a.originalSize) {
		prefix = prefix[:a.originalSize]
	}

	a.mu.Unlock()

	if len(prefix) == 0 {
		return nil, protocol.ErrPartialUnavailable
	}

	return protocol.DecodePayloadPrefix(prefix)
}

// Reset discards all state and begins a fresh transfer
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.started = false
	a.kind = 0
	a.flags = 0
	a.id = protocol.TransferID{}
	a.total = 0
	a.expiry = 0
	a.originalSize = 0
	a.shardSize = 0
	a.slices = make(map[uint16][]byte)
	a.received = 0
}
