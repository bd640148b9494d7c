package transfer

import (
	"bytes"
	"testing"

	"github.com/glyphapp/glyph-node/pkg/protocol"
)

func TestSplitReproducesInput(t *testing.T) {
	id := protocol.GenerateTransferID()

	tests := []struct {
		name      string
		dataLen   int
		capacity  int
		wantTotal int
	}{
		{"exact multiple", 2400, 800, 3},
		{"with remainder", 2401, 800, 4},
		{"single fragment", 10, 800, 1},
		{"capacity one", 5, 1, 5},
		{"ten bytes capacity three", 10, 3, 4},
		{"empty payload", 0, 800, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.dataLen)
			for i := range data {
				data[i] = byte(i)
			}

			fragments, err := Split(data, tt.capacity, protocol.KindDirect, id, 0)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}

			if len(fragments) != tt.wantTotal {
				t.Fatalf("Split() produced %d fragments, want %d", len(fragments), tt.wantTotal)
			}

			var joined []byte
			for i, frag := range fragments {
				if frag.Index != uint16(i) {
					t.Errorf("fragment %d has Index %d", i, frag.Index)
				}
				if frag.Total != uint16(tt.wantTotal) {
					t.Errorf("fragment %d has Total %d, want %d", i, frag.Total, tt.wantTotal)
				}
				if frag.ID != id {
					t.Errorf("fragment %d has wrong transfer ID", i)
				}
				if len(frag.Data) > tt.capacity {
					t.Errorf("fragment %d data length %d exceeds capacity %d", i, len(frag.Data), tt.capacity)
				}
				joined = append(joined, frag.Data...)
			}

			if !bytes.Equal(joined, data) {
				t.Error("concatenated fragments do not reproduce input")
			}
		})
	}
}

func TestSplitSliceLengths(t *testing.T) {
	data := make([]byte, 10)
	fragments, err := Split(data, 3, protocol.KindDirect, protocol.GenerateTransferID(), 0)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	wantLens := []int{3, 3, 3, 1}
	for i, frag := range fragments {
		if len(frag.Data) != wantLens[i] {
			t.Errorf("fragment %d length = %d, want %d", i, len(frag.Data), wantLens[i])
		}
	}
}

func TestSplitInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := Split([]byte("data"), capacity, protocol.KindDirect, protocol.GenerateTransferID(), 0); err != ErrInvalidCapacity {
			t.Errorf("Split() with capacity %d error = %v, want ErrInvalidCapacity", capacity, err)
		}
	}
}

func TestSplitCarriesWindow(t *testing.T) {
	window := int64(1700000000000)
	fragments, err := Split([]byte("windowed"), 4, protocol.KindDirect, protocol.GenerateTransferID(), window)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	for i, frag := range fragments {
		if frag.Expiry != uint64(window) {
			t.Errorf("fragment %d Expiry = %d, want %d", i, frag.Expiry, window)
		}
	}
}

func TestSplitDoesNotAliasInput(t *testing.T) {
	data := []byte("mutate me after split")
	fragments, err := Split(data, 8, protocol.KindDirect, protocol.GenerateTransferID(), 0)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	data[0] = 'X'

	if fragments[0].Data[0] == 'X' {
		t.Error("fragment data aliases the caller's buffer")
	}
}

func TestFrameStrings(t *testing.T) {
	fragments, err := Split([]byte("frame me"), 3, protocol.KindDirect, protocol.GenerateTransferID(), 0)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	frames := FrameStrings(fragments)
	if len(frames) != len(fragments) {
		t.Fatalf("FrameStrings() produced %d frames, want %d", len(frames), len(fragments))
	}

	for i, frame := range frames {
		parsed, err := protocol.ParseFragmentString(frame)
		if err != nil {
			t.Fatalf("frame %d does not parse: %v", i, err)
		}
		if parsed.Index != uint16(i) {
			t.Errorf("frame %d parses to Index %d", i, parsed.Index)
		}
	}
}
