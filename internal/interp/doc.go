// Package interp resamples tabulated curves defined on a monotonic,
// possibly non-uniform axis, such as a response function evaluated at the
// wavelengths of another spectrum.
package interp
