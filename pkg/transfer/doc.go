// Package transfer implements the sender-side fragment splitter and the
// receiver-side assembler for Glyph optical transfers.
//
// The splitter is a pure computation: it slices a serialized payload
// into fixed-capacity fragments that the rendering layer shows as a
// repeating cycle of optical codes. The assembler is the stateful other
// half: it ingests fragments in whatever order the camera happens to
// capture them, tolerates duplicates and drops, tracks progress, and
// exposes both full reconstruction on completion and best-effort
// partial reconstruction at any time.
//
// Transfers can optionally be erasure coded (Reed-Solomon, in the
// spirit of fountain streams): the sender emits parity fragments
// alongside the data fragments and the receiver completes the transfer
// from any sufficiently large subset, so a few never-captured frames
// do not stall the scan.
package transfer
