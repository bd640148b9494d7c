package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/glyphapp/glyph-node/pkg/crypto"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported payload version")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrChecksumMismatch   = errors.New("payload checksum mismatch")
	ErrPartialUnavailable = errors.New("not enough data for partial decode")
)

// payloadHeaderSize is the fixed-field prefix before variable fields:
// magic(4) + version(2) + createdAt(8) + expiry mode(1) +
// expiry seconds(4) + window(8)
const payloadHeaderSize = 27

// Attribution identifies the sender of a drop. Optional and
// self-asserted: the protocol carries no authentication.
type Attribution struct {
	Name   string
	Handle string
}

// LogicalPayload is the thing one transfer moves: the message text plus
// optional media, the sender's attribution, and the self-destruct policy.
type LogicalPayload struct {
	Text      string          // Message text (required, may be empty)
	Image     []byte          // Optional image bytes (nil = absent)
	Audio     []byte          // Optional audio bytes (nil = absent)
	Sender    *Attribution    // Optional attribution
	CreatedAt int64           // Unix timestamp (ms)
	Expiry    ExpiryDirective // Self-destruct policy
	Window    int64           // Optional scan deadline, unix ms (0 = none)
}

// Encode encodes the payload to its self-describing byte form.
// Every variable field is length-prefixed and a BLAKE2b-256 checksum
// trails the encoding, so decode detects truncation deterministically.
func (p *LogicalPayload) Encode() []byte {
	size := payloadHeaderSize + 4 + len(p.Text) + 1 + 1 + 1
	if p.Image != nil {
		size += 4 + len(p.Image)
	}
	if p.Audio != nil {
		size += 4 + len(p.Audio)
	}
	if p.Sender != nil {
		size += 2 + len(p.Sender.Name) + 2 + len(p.Sender.Handle)
	}
	size += ChecksumSize

	buf := make([]byte, size)
	offset := 0

	binary.BigEndian.PutUint32(buf[offset:], PayloadMagic)
	offset += 4

	binary.BigEndian.PutUint16(buf[offset:], PayloadVersion)
	offset += 2

	binary.BigEndian.PutUint64(buf[offset:], uint64(p.CreatedAt))
	offset += 8

	buf[offset] = uint8(p.Expiry.Mode)
	offset++

	binary.BigEndian.PutUint32(buf[offset:], p.Expiry.Seconds)
	offset += 4

	binary.BigEndian.PutUint64(buf[offset:], uint64(p.Window))
	offset += 8

	binary.BigEndian.PutUint32(buf[offset:], uint32(len(p.Text)))
	offset += 4

	copy(buf[offset:], p.Text)
	offset += len(p.Text)

	offset = putOptionalBytes(buf, offset, p.Image)
	offset = putOptionalBytes(buf, offset, p.Audio)

	if p.Sender != nil {
		buf[offset] = 1
		offset++

		binary.BigEndian.PutUint16(buf[offset:], uint16(len(p.Sender.Name)))
		offset += 2

		copy(buf[offset:], p.Sender.Name)
		offset += len(p.Sender.Name)

		binary.BigEndian.PutUint16(buf[offset:], uint16(len(p.Sender.Handle)))
		offset += 2

		copy(buf[offset:], p.Sender.Handle)
		offset += len(p.Sender.Handle)
	} else {
		buf[offset] = 0
		offset++
	}

	sum := crypto.Checksum(buf[:offset])
	copy(buf[offset:], sum[:])

	return buf
}

func putOptionalBytes(buf []byte, offset int, field []byte) int {
	if field == nil {
		buf[offset] = 0
		return offset + 1
	}

	buf[offset] = 1
	offset++

	binary.BigEndian.PutUint32(buf[offset:], uint32(len(field)))
	offset += 4

	copy(buf[offset:], field)
	return offset + len(field)
}

// DecodePayload decodes a complete payload.
// Fails with ErrUnsupportedVersion on a foreign magic or version,
// ErrMalformedPayload on inconsistent field boundaries, and
// ErrChecksumMismatch when the trailer does not match.
func DecodePayload(buf []byte) (*LogicalPayload, error) {
	if len(buf) < payloadHeaderSize+4+1+1+1+ChecksumSize {
		return nil, ErrMalformedPayload
	}

	if binary.BigEndian.Uint32(buf[0:4]) != PayloadMagic {
		return nil, ErrUnsupportedVersion
	}
	if binary.BigEndian.Uint16(buf[4:6]) != PayloadVersion {
		return nil, ErrUnsupportedVersion
	}

	body := buf[:len(buf)-ChecksumSize]
	trailer := buf[len(buf)-ChecksumSize:]
	if !crypto.VerifyChecksum(body, trailer) {
		return nil, ErrChecksumMismatch
	}

	p := &LogicalPayload{}
	offset := 6

	p.CreatedAt = int64(binary.BigEndian.Uint64(body[offset:]))
	offset += 8

	p.Expiry.Mode = ExpiryMode(body[offset])
	offset++

	p.Expiry.Seconds = binary.BigEndian.Uint32(body[offset:])
	offset += 4

	p.Window = int64(binary.BigEndian.Uint64(body[offset:]))
	offset += 8

	textLen := int(binary.BigEndian.Uint32(body[offset:]))
	offset += 4

	if offset+textLen > len(body) {
		return nil, ErrMalformedPayload
	}
	p.Text = string(body[offset : offset+textLen])
	offset += textLen

	var err error
	if p.Image, offset, err = readOptionalBytes(body, offset); err != nil {
		return nil, err
	}
	if p.Audio, offset, err = readOptionalBytes(body, offset); err != nil {
		return nil, err
	}

	if offset >= len(body) {
		return nil, ErrMalformedPayload
	}
	hasSender := body[offset]
	offset++

	if hasSender == 1 {
		sender := &Attribution{}

		if offset+2 > len(body) {
			return nil, ErrMalformedPayload
		}
		nameLen := int(binary.BigEndian.Uint16(body[offset:]))
		offset += 2

		if offset+nameLen > len(body) {
			return nil, ErrMalformedPayload
		}
		sender.Name = string(body[offset : offset+nameLen])
		offset += nameLen

		if offset+2 > len(body) {
			return nil, ErrMalformedPayload
		}
		handleLen := int(binary.BigEndian.Uint16(body[offset:]))
		offset += 2

		if offset+handleLen > len(body) {
			return nil, ErrMalformedPayload
		}
		sender.Handle = string(body[offset : offset+handleLen])
		offset += handleLen

		p.Sender = sender
	} else if hasSender != 0 {
		return nil, ErrMalformedPayload
	}

	if offset != len(body) {
		return nil, ErrMalformedPayload
	}

	if err := p.Expiry.Validate(); err != nil {
		return nil, ErrMalformedPayload
	}

	return p, nil
}

func readOptionalBytes(body []byte, offset int) ([]byte, int, error) {
	if offset >= len(body) {
		return nil, offset, ErrMalformedPayload
	}

	present := body[offset]
	offset++

	switch present {
	case 0:
		return nil, offset, nil
	case 1:
	default:
		return nil, offset, ErrMalformedPayload
	}

	if offset+4 > len(body) {
		return nil, offset, ErrMalformedPayload
	}
	fieldLen := int(binary.BigEndian.Uint32(body[offset:]))
	offset += 4

	if fieldLen < 0 || offset+fieldLen > len(body) {
		return nil, offset, ErrMalformedPayload
	}

	field := make([]byte, fieldLen)
	copy(field, body[offset:offset+fieldLen])

	return field, offset + fieldLen, nil
}
