// Package provenance records how every cached spectrum was produced and
// packages that record into an exportable bundle.
//
// A [ManifestEntry] references the raw canonical payload and the
// calibration artifacts by cache checksum instead of embedding them, and
// lists the applied [Transform]s in the exact order they ran. Transforms
// in the canonicalize phase document how the raw payload was produced;
// transforms in the derive phase are replayable: given the raw payload
// and the cache, [Replay] reapplies them through a [Registry] and
// reproduces the exported view within 1e-9.
//
// Transform parameters are normalized through JSON when a transform is
// created, so the values recorded in memory are exactly the values a
// third party reads back from the exported manifest.
package provenance
