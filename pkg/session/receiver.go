// Package session wires the transfer machinery to the scanning and
// presenting sides of an optical exchange: the Receiver turns a stream
// of decoded frame strings into a lifecycle.Message, the Presenter
// cycles a split payload's frames for the renderer.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/glyphapp/glyph-node/pkg/lifecycle"
	"github.com/glyphapp/glyph-node/pkg/protocol"
	"github.com/glyphapp/glyph-node/pkg/transfer"
)

// ContactRegistry tracks senders seen in attributed payloads. The
// sqlite store implements it.
type ContactRegistry interface {
	LookupContact(handle string) (*Contact, error)
	UpsertContact(c *Contact) error
}

// Contact is one known sender.
type Contact struct {
	Handle    string
	Name      string
	FirstSeen int64
	LastSeen  int64
	Blocked   bool
}

// Receiver consumes scanned frame strings for one camera session. It
// owns a single Assembler: frames from a new transfer replace any
// in-progress one, on the theory that the camera is now pointed at a
// different screen.
type Receiver struct {
	mu        sync.Mutex
	assembler *transfer.Assembler
	saver     lifecycle.Saver
	contacts  ContactRegistry

	message *lifecycle.Message
	dropped int

	// OnComplete fires once per transfer, with the assembled message.
	OnComplete func(*lifecycle.Message)
}

// NewReceiver builds a receiver. saver and contacts may be nil when
// persistence is not wired up.
func NewReceiver(saver lifecycle.Saver, contacts ContactRegistry) *Receiver {
	return &Receiver{
		assembler: transfer.NewAssembler(),
		saver:     saver,
		contacts:  contacts,
	}
}

// HandleScan feeds one decoded frame string into the session. Strings
// that are not valid frames are dropped silently; so are fragments the
// assembler rejects. A fragment carrying a new transfer ID resets the
// session to follow it.
func (r *Receiver) HandleScan(raw string) {
	frag, err := protocol.ParseFragmentString(raw)
	if err != nil {
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id := r.assembler.TransferID(); !protocol.IsZeroTransferID(id) && id != frag.ID {
		log.Printf("📡 New transfer %x replaces %x", frag.ID, id)
		r.assembler.Reset()
		r.message = nil
	}

	if err := r.assembler.Ingest(frag); err != nil {
		r.dropped++
		return
	}

	if r.message == nil && r.assembler.IsComplete() {
		r.completeLocked()
	}
}

// completeLocked finalizes the transfer into a lifecycle message.
// Decode failures leave the assembler intact so the sender can restart
// with a fresh transfer ID.
func (r *Receiver) completeLocked() {
	if r.assembler.Kind() != protocol.KindDirect {
		return
	}

	payload, err := r.assembler.Finalize()
	if err != nil {
		log.Printf("⚠️  Transfer %x corrupted: %v", r.assembler.TransferID(), err)
		return
	}

	msg, err := lifecycle.NewMessage(payload, r.saver)
	if err != nil {
		log.Printf("⚠️  Transfer %x unusable: %v", r.assembler.TransferID(), err)
		return
	}
	r.message = msg
	r.recordSenderLocked(payload.Sender, payload.CreatedAt)

	if r.OnComplete != nil {
		r.OnComplete(msg)
	}
}

func (r *Receiver) recordSenderLocked(sender *protocol.Attribution, seenAt int64) {
	if sender == nil || sender.Handle == "" || r.contacts == nil {
		return
	}

	c, err := r.contacts.LookupContact(sender.Handle)
	if err != nil {
		c = &Contact{Handle: sender.Handle, FirstSeen: seenAt}
	}
	c.Name = sender.Name
	c.LastSeen = seenAt
	if err := r.contacts.UpsertContact(c); err != nil {
		log.Printf("⚠️  Failed to record contact %s: %v", sender.Handle, err)
	}
}

// Run consumes frames until the channel closes or ctx is done.
func (r *Receiver) Run(ctx context.Context, frames <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-frames:
			if !ok {
				return
			}
			r.HandleScan(raw)
		}
	}
}

// Message returns the assembled lifecycle message, nil while the
// transfer is still in flight.
func (r *Receiver) Message() *lifecycle.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message
}

// Progress reports the current transfer's fill fraction.
func (r *Receiver) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assembler.Progress()
}

// Partial attempts a degraded decode of whatever contiguous prefix has
// arrived so far.
func (r *Receiver) Partial() (*protocol.PartialPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assembler.PartialReconstruct()
}

// Dropped reports how many scans were discarded as garbage or strays.
func (r *Receiver) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// RawBytes exposes the reassembled bytes for non-direct kinds, such
// as web bundles and survey responses.
func (r *Receiver) RawBytes() (uint8, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.assembler.Bytes()
	return r.assembler.Kind(), data, err
}
