// Package units converts spectral axis and intensity values between the
// canonical representation and the units importers and displays declare.
//
// The canonical axis unit is the nanometre. Supported axis units are
// nanometres, ångström, micrometres and wavenumbers (cm⁻¹). Axis maps are
// purely multiplicative or reciprocal. A zero wavenumber has no finite
// wavelength and maps to +Inf, which maps back to zero; the affected
// indices, and any +Inf given in a wavelength unit, are reported in
// [Conversion.Sentinels].
//
// Intensities belong to one of two canonical bases:
//
//   - absorbance (base-10), reached from transmittance (fraction) and %T
//     via A = -log10(T)
//   - counts, an identity basis for linear signal units (counts, flux,
//     relative)
//
// Transmittance is clamped to [MinTransmittance] before the logarithm, so
// zero or negative transmittance yields the finite absorbance ceiling
// [MaxAbsorbance] instead of +Inf or NaN. Clamped indices are reported in
// [Conversion.Clamped].
//
// Every conversion is idempotent: converting to canonical and back
// reproduces the input within 1e-9 (absolute or relative), and so does
// converting canonical values to a display unit and back.
//
// Unknown unit tokens are never defaulted; they produce an
// [*UnsupportedUnitError]. NaN input, infinities other than the axis
// sentinel and a saturated absorbance, and finite values whose conversion
// overflows are rejected with a [*NonFiniteError].
package units
