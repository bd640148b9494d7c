// Package crypto provides the hashing and at-rest encryption primitives
// used by the Glyph payload codec and the local store.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Checksum generates a BLAKE2b-256 digest
func Checksum(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// ChecksumString generates a BLAKE2b-256 digest and returns hex string
func ChecksumString(data []byte) string {
	sum := Checksum(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum verifies a digest matches the data
func VerifyChecksum(data []byte, expected []byte) bool {
	actual := Checksum(data)
	if len(expected) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare(actual[:], expected) == 1
}

// GenerateNonce generates a random nonce
func GenerateNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	_, err := rand.Read(nonce)
	if err != nil {
		return nil, err
	}
	return nonce, nil
}
