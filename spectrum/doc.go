// Package spectrum defines the canonical spectrum data model.
//
// A [Spectrum] is an immutable, validated record: a nanometre axis, an
// index-aligned intensity sequence in one canonical basis, optional
// per-sample standard deviations, the source units it was imported from,
// the ordered calibration references applied to it and the checksum of
// its canonical payload. Calibration and replay work on the mutable
// [Series] instead and hand the result back to the ingest coordinator,
// which is the only producer of Spectrum values.
//
// The canonical payload ([EncodePayload]) is deterministic CBOR of the
// axis, intensity, uncertainty and basis. Source units are deliberately
// outside the payload so identical content from different importers
// hashes to the same checksum.
package spectrum
