// Package profile generates the peak shapes used to model an instrument's
// line-spread function.
//
// Shapes are parameterised by their full width at half maximum (FWHM) in
// axis units. [Evaluate] returns a unit-peak profile value and [Kernel]
// samples a shape on a uniform grid, truncates it and normalises the taps
// to sum to one:
//
//	k, err := profile.Kernel(profile.Gaussian, 0.8, 0.02)
//
// Voigt profiles use the pseudo-Voigt approximation: a mix of a Gaussian
// and a Lorentzian of equal FWHM with mixing factor eta (0 = Gaussian,
// 1 = Lorentzian).
package profile
