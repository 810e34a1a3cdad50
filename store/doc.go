// Package store is a content-addressed cache for canonical spectrum
// payloads and calibration artifacts.
//
// Every payload is addressed by the hex BLAKE3 keyed hash of its
// uncompressed bytes. Putting bytes that are already cached leaves the
// payload untouched and merges the new metadata into the existing entry.
// A metadata key that arrives with a different value keeps its original
// value; each new distinct value is stored under a disambiguated sub-key
// "key#N" and recorded in [Entry.Conflicts].
//
// On-disk layout:
//
//	<root>/index.cbor                 deterministic CBOR index
//	<root>/objects/<prefix>/<sum>     payloads, optionally compressed
//	<root>/tmp/                       staging area for atomic writes
//
// One lock serializes every index mutation. Readers load an immutable
// snapshot of the index and never observe a partially written entry. The
// index file is replaced atomically, so a failed write ([*WriteError])
// leaves both the in-memory and the on-disk index unchanged.
//
// [Store.Read] verifies the checksum of every payload it returns. A
// mismatch flags the entry, persists the flag and returns an
// [*IntegrityError]; flagged entries are never served until the same
// payload is put again.
package store
