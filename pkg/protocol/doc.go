// Package protocol implements the Glyph optical transfer wire format.
//
// Glyph moves a payload between two phones through nothing but light:
// the sender serializes a payload, splits it into fragments, and shows
// each fragment as one optical code in a repeating cycle. The receiver
// scans codes with its camera in whatever order they happen to be
// captured and reassembles the payload incrementally.
//
// This package defines the two wire layers:
//
//   - The payload codec: a self-describing binary encoding of a
//     LogicalPayload (text, optional image/audio, attribution, expiry
//     directive) with a BLAKE2b checksum trailer so truncation or
//     corruption is detected deterministically.
//
//   - The fragment format: the envelope one optical code carries.
//     Each fragment names its transfer, index, and total count, so the
//     receiver can tolerate duplicates, drops, and arbitrary ordering.
//
// # Fragment Format
//
// Every fragment starts with a fixed header:
//   - Magic (2 bytes): 0x474C ("GL")
//   - Version (1 byte): format version
//   - Kind (1 byte): payload kind (direct, bundle, survey response)
//   - Flags (1 byte): feature flags (erasure coding)
//   - TransferID (8 bytes): identifies one transfer
//   - Index (2 bytes): fragment index in [0, Total)
//   - Total (2 bytes): fragment count, fixed for the transfer
//   - Expiry (8 bytes): optional transfer window deadline, unix ms
//   - OriginalSize (4 bytes): pre-encoding size for erasure transfers
//   - DataLen (4 bytes): payload slice length
//
// On the wire a fragment travels as a "GLYC:" prefixed base64 string,
// which is what the optical rendering layer turns into a scannable
// code and what the camera decoder hands back.
//
// The protocol is deliberately unauthenticated and unencrypted; the
// checksum guards against accidental corruption only.
package protocol
