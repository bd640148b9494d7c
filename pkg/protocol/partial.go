package protocol

import "encoding/binary"

// PartialPayload is a best-effort view of a payload recovered from a
// contiguous byte prefix. Has* flags report which fields were fully
// contained in the prefix; everything after the first cut-off field is
// discarded rather than guessed at.
type PartialPayload struct {
	CreatedAt int64
	Expiry    ExpiryDirective
	Window    int64
	Text      string
	HasText   bool
	Image     []byte
	HasImage  bool
	Audio     []byte
	HasAudio  bool
	Sender    *Attribution
	Complete  bool // Full decode succeeded, checksum included
}

// DecodePayloadPrefix decodes whatever leading structure is fully
// present in a truncated payload prefix. Unlike DecodePayload it never
// requires the checksum trailer and treats a cut-off field as the end
// of recoverable data, not an error. It fails only when the leading
// descriptor itself cannot be parsed: ErrUnsupportedVersion for a
// foreign magic/version, ErrPartialUnavailable when the prefix is too
// short to say anything.
func DecodePayloadPrefix(buf []byte) (*PartialPayload, error) {
	// Prefer the strict path when the whole payload is here
	if full, err := DecodePayload(buf); err == nil {
		return &PartialPayload{
			CreatedAt: full.CreatedAt,
			Expiry:    full.Expiry,
			Window:    full.Window,
			Text:      full.Text,
			HasText:   true,
			Image:     full.Image,
			HasImage:  full.Image != nil,
			Audio:     full.Audio,
			HasAudio:  full.Audio != nil,
			Sender:    full.Sender,
			Complete:  true,
		}, nil
	}

	if len(buf) < 6 {
		return nil, ErrPartialUnavailable
	}
	if binary.BigEndian.Uint32(buf[0:4]) != PayloadMagic {
		return nil, ErrUnsupportedVersion
	}
	if binary.BigEndian.Uint16(buf[4:6]) != PayloadVersion {
		return nil, ErrUnsupportedVersion
	}

	if len(buf) < payloadHeaderSize {
		return nil, ErrPartialUnavailable
	}

	p := &PartialPayload{}
	offset := 6

	p.CreatedAt = int64(binary.BigEndian.Uint64(buf[offset:]))
	offset += 8

	p.Expiry.Mode = ExpiryMode(buf[offset])
	offset++

	p.Expiry.Seconds = binary.BigEndian.Uint32(buf[offset:])
	offset += 4

	p.Window = int64(binary.BigEndian.Uint64(buf[offset:]))
	offset += 8

	if p.Expiry.Validate() != nil {
		return nil, ErrPartialUnavailable
	}

	// Text
	if offset+4 > len(buf) {
		return p, nil
	}
	textLen := int(binary.BigEndian.Uint32(buf[offset:]))
	if offset+4+textLen > len(buf) {
		return p, nil
	}
	offset += 4
	p.Text = string(buf[offset : offset+textLen])
	p.HasText = true
	offset += textLen

	// Image
	field, present, next, ok := readOptionalPrefix(buf, offset)
	if !ok {
		return p, nil
	}
	if present {
		p.Image = field
		p.HasImage = true
	}
	offset = next

	// Audio
	field, present, next, ok = readOptionalPrefix(buf, offset)
	if !ok {
		return p, nil
	}
	if present {
		p.Audio = field
		p.HasAudio = true
	}
	offset = next

	// Attribution
	if offset >= len(buf) || buf[offset] != 1 {
		return p, nil
	}
	offset++

	if offset+2 > len(buf) {
		return p, nil
	}
	nameLen := int(binary.BigEndian.Uint16(buf[offset:]))
	if offset+2+nameLen+2 > len(buf) {
		return p, nil
	}
	name := string(buf[offset+2 : offset+2+nameLen])
	offset += 2 + nameLen

	handleLen := int(binary.BigEndian.Uint16(buf[offset:]))
	if offset+2+handleLen > len(buf) {
		return p, nil
	}
	handle := string(buf[offset+2 : offset+2+handleLen])

	p.Sender = &Attribution{Name: name, Handle: handle}
	return p, nil
}

// readOptionalPrefix reads a presence-prefixed field if it is fully
// contained in buf. ok is false when the field is cut off.
func readOptionalPrefix(buf []byte, offset int) (field []byte, present bool, next int, ok bool) {
	if offset >= len(buf) {
		return nil, false, offset, false
	}

	switch buf[offset] {
	case 0:
		return nil, false, offset + 1, true
	case 1:
	default:
		return nil, false, offset, false
	}
	offset++

	if offset+4 > len(buf) {
		return nil, false, offset, false
	}
	fieldLen := int(binary.BigEndian.Uint32(buf[offset:]))
	if offset+4+fieldLen > len(buf) {
		return nil, false, offset, false
	}
	offset += 4

	field = make([]byte, fieldLen)
	copy(field, buf[offset:offset+fieldLen])

	return field, true, offset + fieldLen, true
}
