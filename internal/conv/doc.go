// Package conv provides the discrete convolution used to apply line-spread
// kernels to spectra and to propagate their variances.
//
// Two strategies are available:
//
//   - Direct: O(N*M) time-domain convolution, used for short kernels
//   - Overlap-add: FFT-based block convolution for long kernels
//
// [Convolve] picks between them by kernel length. [Same] returns an output
// of the input's length, padding both edges by replicating the first and
// last samples so a normalized kernel never pulls the edges toward zero:
//
//	smoothed, err := conv.Same(intensity, kernel)
//	variance, err := conv.Same(varianceIn, conv.Squared(kernel))
//
// The FFT path rounds differently from the direct path; callers that need
// bit-identical replays must convolve with the same kernel length, which
// selects the same strategy.
package conv
