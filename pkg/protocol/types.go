package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Protocol constants
const (
	// Magic number for the payload codec ('GLYF')
	PayloadMagic = 0x474C5946

	// Magic number for the fragment header ('GL')
	FragmentMagic = 0x474C

	// Format version
	Version = 0x01

	// Payload codec version
	PayloadVersion = 0x0100

	// Fragment header size
	FragmentHeaderSize = 33

	// Checksum trailer size (BLAKE2b-256)
	ChecksumSize = 32
)

// Payload kinds
const (
	KindDirect         uint8 = 0x01 // Direct message payload
	KindBundle         uint8 = 0x02 // Web experience bundle (GLYW string)
	KindSurveyResponse uint8 = 0x03 // Survey response payload
)

// Fragment flags
const (
	FragFlagErasure uint8 = 0x01 // Transfer is erasure coded (parity fragments present)
)

// String prefixes used on the optical wire
const (
	FramePrefix  = "GLYC:"
	BundlePrefix = "GLYW:"
)

// TransferID identifies a single logical transfer (8 bytes)
type TransferID [8]byte

// GenerateTransferID generates a random transfer ID
func GenerateTransferID() TransferID {
	var id TransferID
	// Timestamp in the first 4 bytes keeps IDs ordered across transfers
	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()))

	if _, err := rand.Read(id[4:]); err != nil {
		// Fallback: derive the tail from the nanosecond clock
		binary.BigEndian.PutUint32(id[4:], uint32(time.Now().UnixNano()))
	}

	return id
}

// IsZeroTransferID checks if a transfer ID is unset
func IsZeroTransferID(id TransferID) bool {
	zero := TransferID{}
	return id == zero
}

// ValidKind checks if a payload kind is known
func ValidKind(kind uint8) bool {
	switch kind {
	case KindDirect, KindBundle, KindSurveyResponse:
		return true
	}
	return false
}

// NowUnixMilli returns current time in Unix milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
