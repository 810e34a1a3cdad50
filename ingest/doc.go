// Package ingest orchestrates the spectral pipeline: it validates importer
// output, canonicalizes units, applies optional calibration steps, caches
// every payload and artifact in the content-addressed store and records
// the lineage with a provenance builder.
//
// The Coordinator is the only place that constructs spectrum.Spectrum
// values. The store, builder and calibration engine are injected so their
// lifetimes stay with the caller.
//
// Calibration failures are local: the raw canonical spectrum is cached
// regardless, and each failed step is reported in Result.CalibrationErrors.
// Every applied step is recorded as a transform that Transforms can replay
// against the cache.
package ingest
