// Package calib fits and applies spectral calibrations.
//
// The [Engine] derives calibration artifacts from reference data:
//
//   - wavelength solutions: a polynomial pixel→nm map fitted by least
//     squares with iterative sigma clipping ([Engine.FitWavelengthSolution])
//   - line-spread kernels: Gaussian, Lorentzian or pseudo-Voigt fits of
//     isolated reference lines ([Engine.FitLine], [Engine.EstimateLSF]) and
//     resolution-matching kernels ([Engine.ResolutionKernel])
//   - instrument response functions: a smoothed measured/truth ratio
//     ([Engine.ComputeResponse])
//
// Artifacts are immutable and identified by a UUIDv7. Applying one to a
// [spectrum.Series] returns a [Result] with the corrected samples and the
// propagated uncertainty.
//
// Uncertainty rules, with σ a standard deviation:
//
//	additive       σ_out² = σ_in² + σ_c²
//	multiplicative (σ_out/S_out)² = (σ_in/S_in)² + (σ_c/c)²
//	convolution    σ_out² = kernel² ∗ σ_in²
//
// Absent input uncertainty is never invented: the result reports
// [UncertaintyAbsent] and carries a nil Sigma.
//
// Resolution matching only ever degrades resolution. A target FWHM finer
// than the source beyond the configured tolerance is a
// [*ResolutionDirectionError].
package calib
