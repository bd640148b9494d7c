package protocol

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
)

var (
	ErrInvalidFragment = errors.New("invalid fragment")
	ErrInvalidPrefix   = errors.New("invalid frame prefix")
)

// Fragment is one indexed slice of a serialized payload, carried by a
// single optical code. Concatenating Data for indices 0..Total-1 in
// index order reproduces the serialized payload exactly.
type Fragment struct {
	Kind         uint8      // Payload kind
	Flags        uint8      // Feature flags
	ID           TransferID // Transfer this fragment belongs to
	Index        uint16     // Fragment index in [0, Total)
	Total        uint16     // Fragment count, fixed for the transfer
	Expiry       uint64     // Transfer window deadline, unix ms (0 = none)
	OriginalSize uint32     // Pre-encoding payload size (erasure transfers only)
	Data         []byte     // Payload slice
}

// Encode encodes the fragment to bytes
func (f *Fragment) Encode() []byte {
	buf := make([]byte, FragmentHeaderSize+len(f.Data))
	offset := 0

	binary.BigEndian.PutUint16(buf[offset:], FragmentMagic)
	offset += 2

	buf[offset] = Version
	offset++

	buf[offset] = f.Kind
	offset++

	buf[offset] = f.Flags
	offset++

	copy(buf[offset:], f.ID[:])
	offset += 8

	binary.BigEndian.PutUint16(buf[offset:], f.Index)
	offset += 2

	binary.BigEndian.PutUint16(buf[offset:], f.Total)
	offset += 2

	binary.BigEndian.PutUint64(buf[offset:], f.Expiry)
	offset += 8

	binary.BigEndian.PutUint32(buf[offset:], f.OriginalSize)
	offset += 4

	binary.BigEndian.PutUint32(buf[offset:], uint32(len(f.Data)))
	offset += 4

	copy(buf[offset:], f.Data)

	return buf
}

// Decode decodes the fragment from bytes
func (f *Fragment) Decode(buf []byte) error {
	if len(buf) < FragmentHeaderSize {
		return ErrInvalidFragment
	}

	offset := 0

	if binary.BigEndian.Uint16(buf[offset:]) != FragmentMagic {
		return ErrInvalidFragment
	}
	offset += 2

	if buf[offset] != Version {
		return ErrInvalidFragment
	}
	offset++

	f.Kind = buf[offset]
	offset++

	f.Flags = buf[offset]
	offset++

	copy(f.ID[:], buf[offset:offset+8])
	offset += 8

	f.Index = binary.BigEndian.Uint16(buf[offset:])
	offset += 2

	f.Total = binary.BigEndian.Uint16(buf[offset:])
	offset += 2

	f.Expiry = binary.BigEndian.Uint64(buf[offset:])
	offset += 8

	f.OriginalSize = binary.BigEndian.Uint32(buf[offset:])
	offset += 4

	dataLen := binary.BigEndian.Uint32(buf[offset:])
	offset += 4

	if len(buf) != offset+int(dataLen) {
		return ErrInvalidFragment
	}

	f.Data = make([]byte, dataLen)
	copy(f.Data, buf[offset:])

	return f.Validate()
}

// Validate validates the fragment header fields
func (f *Fragment) Validate() error {
	if !ValidKind(f.Kind) {
		return ErrInvalidFragment
	}
	if f.Total == 0 || f.Index >= f.Total {
		return ErrInvalidFragment
	}
	return nil
}

// EncodeToString encodes the fragment as the GLYC: frame string the
// optical rendering layer turns into a scannable code.
func (f *Fragment) EncodeToString() string {
	return FramePrefix + base64.StdEncoding.EncodeToString(f.Encode())
}

// ParseFragmentString parses a scanned GLYC: frame string
func ParseFragmentString(s string) (*Fragment, error) {
	if !strings.HasPrefix(s, FramePrefix) {
		return nil, ErrInvalidPrefix
	}

	raw, err := base64.StdEncoding.DecodeString(s[len(FramePrefix):])
	if err != nil {
		return nil, ErrInvalidFragment
	}

	frag := &Fragment{}
	if err := frag.Decode(raw); err != nil {
		return nil, err
	}

	return frag, nil
}
