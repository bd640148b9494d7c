package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

func TestPresenterCyclesInOrder(t *testing.T) {
	p := &protocol.LogicalPayload{Text: "presented", CreatedAt: 1, Expiry: protocol.ReadOnce()}
	pres, err := NewPresenter(p.Encode(), 30, protocol.KindDirect, 0, false)
	if err != nil {
		t.Fatalf("NewPresenter() error = %v", err)
	}

	n := pres.FrameCount()
	if n < 2 {
		t.Fatalf("FrameCount() = %d, want several frames", n)
	}

	frames := pres.Frames()
	for i, raw := range frames {
		if !strings.HasPrefix(raw, protocol.FramePrefix) {
			t.Fatalf("frame %d missing %q prefix", i, protocol.FramePrefix)
		}
		frag, err := protocol.ParseFragmentString(raw)
		if err != nil {
			t.Fatalf("frame %d unparseable: %v", i, err)
		}
		if int(frag.Index) != i {
			t.Errorf("frame %d carries index %d", i, frag.Index)
		}
		if frag.ID != pres.TransferID() {
			t.Errorf("frame %d carries a foreign transfer ID", i)
		}
	}

	// Wrap-around
	if pres.Frame(n) != frames[0] || pres.Frame(2*n+1) != frames[1] {
		t.Error("Frame() does not wrap modulo the cycle length")
	}
}

func TestPresenterRunRepeats(t *testing.T) {
	p := &protocol.LogicalPayload{Text: "looping", CreatedAt: 1, Expiry: protocol.ReadOnce()}
	pres, err := NewPresenter(p.Encode(), 20, protocol.KindDirect, 0, false)
	if err != nil {
		t.Fatalf("NewPresenter() error = %v", err)
	}

	n := pres.FrameCount()
	want := 2*n + 1 // a bit over two full cycles

	ctx, cancel := context.WithCancel(context.Background())
	var emitted []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		pres.Run(ctx, time.Millisecond, func(s string) {
			emitted = append(emitted, s)
			if len(emitted) == want {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not emit enough frames")
	}

	frames := pres.Frames()
	for i, raw := range emitted {
		if raw != frames[i%n] {
			t.Fatalf("emission %d = frame %q, out of cycle order", i, raw[:20])
		}
	}
}

func TestPresenterErasureMode(t *testing.T) {
	p := &protocol.LogicalPayload{
		Text:      "redundant",
		Image:     make([]byte, 2000),
		CreatedAt: 1,
		Expiry:    protocol.Permanent(),
	}
	encoded := p.Encode()

	plain, err := NewPresenter(encoded, 200, protocol.KindDirect, 0, false)
	if err != nil {
		t.Fatalf("NewPresenter(plain) error = %v", err)
	}
	coded, err := NewPresenter(encoded, 200, protocol.KindDirect, 0, true)
	if err != nil {
		t.Fatalf("NewPresenter(erasure) error = %v", err)
	}

	if coded.FrameCount() <= plain.FrameCount() {
		t.Errorf("erasure cycle %d frames, plain %d: expected parity overhead",
			coded.FrameCount(), plain.FrameCount())
	}

	frag, err := protocol.ParseFragmentString(coded.Frames()[0])
	if err != nil {
		t.Fatalf("ParseFragmentString() error = %v", err)
	}
	if frag.Flags&protocol.FragFlagErasure == 0 {
		t.Error("erasure presenter frames missing the erasure flag")
	}
}
