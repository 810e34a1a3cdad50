package units

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-spectra/internal/numeric"
	"github.com/cwbudde/algo-spectra/internal/testutil"
)

func TestAxisRoundTrip(t *testing.T) {
	inputs := []float64{1e-6, 0.5, 1, 42.123456789, 656.2793, 1e4, 3.3e8}

	for _, unit := range []string{"nm", "angstrom", "A", "Å", "um", "µm", "micron", "cm-1", "cm^-1", "wavenumber"} {
		t.Run(unit, func(t *testing.T) {
			canon, err := AxisToCanonical(inputs, unit)
			if err != nil {
				t.Fatalf("AxisToCanonical: %v", err)
			}
			back, err := AxisFromCanonical(canon.Values, unit)
			if err != nil {
				t.Fatalf("AxisFromCanonical: %v", err)
			}
			testutil.RequireSliceRelEqual(t, back.Values, inputs, numeric.DefaultTolerance)

			display, err := AxisFromCanonical(inputs, unit)
			if err != nil {
				t.Fatalf("AxisFromCanonical: %v", err)
			}
			again, err := AxisToCanonical(display.Values, unit)
			if err != nil {
				t.Fatalf("AxisToCanonical: %v", err)
			}
			testutil.RequireSliceRelEqual(t, again.Values, inputs, numeric.DefaultTolerance)
		})
	}
}

func TestAxisScaleFactors(t *testing.T) {
	tests := []struct {
		unit string
		in   float64
		want float64
	}{
		{"nm", 500, 500},
		{"angstrom", 5000, 500},
		{"um", 0.5, 500},
		{"cm-1", 20000, 500},
		{"NM", 1, 1},
	}

	for _, tt := range tests {
		got, err := AxisToCanonical([]float64{tt.in}, tt.unit)
		if err != nil {
			t.Fatalf("%s: %v", tt.unit, err)
		}
		if !numeric.NearlyEqual(got.Values[0], tt.want, 1e-12) {
			t.Fatalf("%s: got %v, want %v", tt.unit, got.Values[0], tt.want)
		}
		if got.Unit != CanonicalAxis {
			t.Fatalf("%s: unit = %q", tt.unit, got.Unit)
		}
	}
}

func TestWavenumberZeroSentinel(t *testing.T) {
	in := []float64{0, 10000, 0}

	canon, err := AxisToCanonical(in, "cm-1")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(canon.Values[0], 1) || !math.IsInf(canon.Values[2], 1) {
		t.Fatalf("zero wavenumber should map to +Inf, got %v", canon.Values)
	}
	if canon.Values[1] != 1000 {
		t.Fatalf("got %v, want 1000", canon.Values[1])
	}
	if !canon.SentinelApplied() || len(canon.Sentinels) != 2 || canon.Sentinels[0] != 0 || canon.Sentinels[1] != 2 {
		t.Fatalf("sentinels = %v", canon.Sentinels)
	}

	back, err := AxisFromCanonical(canon.Values, "cm-1")
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceRelEqual(t, back.Values, in, numeric.DefaultTolerance)
	if math.Signbit(back.Values[0]) {
		t.Fatal("sentinel should map back to +0")
	}
}

func TestAxisRejectsNaN(t *testing.T) {
	_, err := AxisToCanonical([]float64{1, math.NaN()}, "nm")
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	var nf *NonFiniteError
	if !errors.As(err, &nf) || nf.Index != 1 || nf.Domain != DomainAxis {
		t.Fatalf("unexpected error detail: %#v", err)
	}
}

func TestAxisRejectsOverflow(t *testing.T) {
	tests := []struct {
		name  string
		call  func() (Conversion, error)
		index int
		value float64
	}{
		{"micrometre overflow", func() (Conversion, error) { return AxisToCanonical([]float64{1, 1e306}, "um") }, 1, 1e306},
		{"angstrom -Inf", func() (Conversion, error) { return AxisToCanonical([]float64{math.Inf(-1)}, "angstrom") }, 0, math.Inf(-1)},
		{"subnormal wavenumber", func() (Conversion, error) { return AxisToCanonical([]float64{1e-320}, "cm-1") }, 0, 1e-320},
		{"negative infinite wavenumber", func() (Conversion, error) { return AxisToCanonical([]float64{math.Inf(-1)}, "cm-1") }, 0, math.Inf(-1)},
		{"angstrom from canonical", func() (Conversion, error) { return AxisFromCanonical([]float64{math.MaxFloat64}, "angstrom") }, 0, math.MaxFloat64},
		{"subnormal canonical", func() (Conversion, error) { return AxisFromCanonical([]float64{5e-324}, "cm-1") }, 0, 5e-324},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call()
			if !errors.Is(err, ErrNonFinite) {
				t.Fatalf("expected ErrNonFinite, got %v", err)
			}
			var nf *NonFiniteError
			if !errors.As(err, &nf) || nf.Index != tt.index || nf.Value != tt.value || nf.Domain != DomainAxis {
				t.Fatalf("unexpected error detail: %#v", err)
			}
		})
	}
}

func TestWavelengthInfinityIsSentinel(t *testing.T) {
	for _, unit := range []string{"nm", "angstrom", "um"} {
		canon, err := AxisToCanonical([]float64{500, math.Inf(1)}, unit)
		if err != nil {
			t.Fatalf("%s: %v", unit, err)
		}
		if !math.IsInf(canon.Values[1], 1) || len(canon.Sentinels) != 1 || canon.Sentinels[0] != 1 {
			t.Fatalf("%s: got %v sentinels %v", unit, canon.Values, canon.Sentinels)
		}
	}

	back, err := AxisFromCanonical([]float64{math.Inf(1)}, "angstrom")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(back.Values[0], 1) || !back.SentinelApplied() {
		t.Fatalf("got %v sentinels %v", back.Values, back.Sentinels)
	}
}

func TestIntensityRejectsInfinity(t *testing.T) {
	for _, unit := range []string{"transmittance", "%T", "counts"} {
		for _, v := range []float64{math.Inf(1), math.Inf(-1)} {
			_, err := IntensityToCanonical([]float64{0.5, v}, unit)
			var nf *NonFiniteError
			if !errors.As(err, &nf) || nf.Index != 1 || nf.Value != v || nf.Domain != DomainIntensity {
				t.Fatalf("%s %v: expected NonFiniteError, got %v", unit, v, err)
			}
		}
	}

	if _, err := IntensityToCanonical([]float64{math.Inf(-1)}, "absorbance"); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("negative infinite absorbance: got %v", err)
	}

	// A saturated absorbance clamps to the ceiling.
	canon, err := IntensityToCanonical([]float64{math.Inf(1)}, "absorbance")
	if err != nil {
		t.Fatal(err)
	}
	if canon.Values[0] != MaxAbsorbance || !canon.ClampApplied() {
		t.Fatalf("got %v clamped %v", canon.Values, canon.Clamped)
	}
}

func TestUnsupportedUnits(t *testing.T) {
	tests := []struct {
		name string
		call func() error
		dom  Domain
	}{
		{"axis", func() error { _, err := AxisToCanonical([]float64{1}, "furlong"); return err }, DomainAxis},
		{"axis empty", func() error { _, err := AxisFromCanonical([]float64{1}, ""); return err }, DomainAxis},
		{"intensity", func() error { _, err := IntensityToCanonical([]float64{1}, "jansky"); return err }, DomainIntensity},
		{"basis mismatch", func() error {
			_, err := IntensityFromCanonical([]float64{1}, BasisAbsorbance, "counts")
			return err
		}, DomainIntensity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrUnsupportedUnit) {
				t.Fatalf("expected ErrUnsupportedUnit, got %v", err)
			}
			var ue *UnsupportedUnitError
			if !errors.As(err, &ue) || ue.Domain != tt.dom {
				t.Fatalf("unexpected error detail: %#v", err)
			}
		})
	}
}

func TestPercentTransmittanceScenario(t *testing.T) {
	canon, err := IntensityToCanonical([]float64{0, 50, 100}, "%T")
	if err != nil {
		t.Fatal(err)
	}

	if canon.Unit != BasisAbsorbance {
		t.Fatalf("unit = %q", canon.Unit)
	}
	testutil.RequireFinite(t, canon.Values)
	if canon.Values[0] != MaxAbsorbance || canon.Values[0] <= 0.301 {
		t.Fatalf("clamped value = %v", canon.Values[0])
	}
	if math.Abs(canon.Values[1]-0.30103) > 1e-5 {
		t.Fatalf("50%%T = %v, want 0.30103", canon.Values[1])
	}
	if canon.Values[2] != 0 || math.Signbit(canon.Values[2]) {
		t.Fatalf("100%%T = %v, want +0", canon.Values[2])
	}
	if !canon.ClampApplied() || len(canon.Clamped) != 1 || canon.Clamped[0] != 0 {
		t.Fatalf("clamped = %v", canon.Clamped)
	}
}

func TestIntensityRoundTrip(t *testing.T) {
	tests := []struct {
		unit   string
		inputs []float64
	}{
		{"absorbance", []float64{-0.5, 0, 0.30103, 1, 3.5, 11.99}},
		{"transmittance", []float64{1e-9, 0.001, 0.5, 1, 1.2}},
		{"%T", []float64{1e-7, 0.1, 50, 99.999, 100}},
		{"counts", []float64{-3, 0, 1e-12, 12345.678, 1e12}},
		{"flux", []float64{1e-17, 2.5e-15}},
		{"relative", []float64{0, 0.25, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			canon, err := IntensityToCanonical(tt.inputs, tt.unit)
			if err != nil {
				t.Fatal(err)
			}
			if canon.ClampApplied() {
				t.Fatalf("unexpected clamp at %v", canon.Clamped)
			}
			back, err := IntensityFromCanonical(canon.Values, canon.Unit, tt.unit)
			if err != nil {
				t.Fatal(err)
			}
			testutil.RequireSliceRelEqual(t, back.Values, tt.inputs, numeric.DefaultTolerance)

			// canonical -> display -> canonical
			again, err := IntensityToCanonical(back.Values, tt.unit)
			if err != nil {
				t.Fatal(err)
			}
			testutil.RequireSliceRelEqual(t, again.Values, canon.Values, numeric.DefaultTolerance)
		})
	}
}

func TestClampedTransmittanceRoundTrip(t *testing.T) {
	canon, err := IntensityToCanonical([]float64{0, -0.1}, "transmittance")
	if err != nil {
		t.Fatal(err)
	}
	if len(canon.Clamped) != 2 {
		t.Fatalf("clamped = %v", canon.Clamped)
	}

	back, err := IntensityFromCanonical(canon.Values, BasisAbsorbance, "transmittance")
	if err != nil {
		t.Fatal(err)
	}
	// The floor is indistinguishable from zero at the round-trip tolerance.
	if !numeric.NearlyEqual(back.Values[0], 0, numeric.DefaultTolerance) {
		t.Fatalf("got %v", back.Values[0])
	}
}

func TestAbsorbanceCeiling(t *testing.T) {
	canon, err := IntensityToCanonical([]float64{1, 40}, "absorbance")
	if err != nil {
		t.Fatal(err)
	}
	if canon.Values[1] != MaxAbsorbance || len(canon.Clamped) != 1 || canon.Clamped[0] != 1 {
		t.Fatalf("got %v clamped %v", canon.Values, canon.Clamped)
	}
}

func TestIntensitySigmaToCanonical(t *testing.T) {
	values := []float64{50, 10}
	sigma := []float64{1, 0.5}

	got, err := IntensitySigmaToCanonical(values, sigma, "%T")
	if err != nil {
		t.Fatal(err)
	}

	// Compare with a central difference of the forward map.
	for i := range values {
		h := 1e-6
		hi, _ := IntensityToCanonical([]float64{values[i] + h}, "%T")
		lo, _ := IntensityToCanonical([]float64{values[i] - h}, "%T")
		slope := math.Abs(hi.Values[0]-lo.Values[0]) / (2 * h)
		if want := slope * sigma[i]; math.Abs(got[i]-want) > 1e-6*want {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want)
		}
	}

	same, err := IntensitySigmaToCanonical([]float64{3}, []float64{-0.2}, "counts")
	if err != nil {
		t.Fatal(err)
	}
	if same[0] != 0.2 {
		t.Fatalf("counts sigma = %v", same[0])
	}
}

func TestIntensityBasis(t *testing.T) {
	tests := map[string]string{
		"absorbance":    BasisAbsorbance,
		"%T":            BasisAbsorbance,
		"Transmittance": BasisAbsorbance,
		"counts":        BasisCounts,
		"flux":          BasisCounts,
		"relative":      BasisCounts,
	}
	for unit, want := range tests {
		got, err := IntensityBasis(unit)
		if err != nil || got != want {
			t.Fatalf("%s: got %q, %v", unit, got, err)
		}
	}
}

func TestIntensitySigmaFromCanonicalInvertsToCanonical(t *testing.T) {
	raw := []float64{80, 25, 3}
	sigma := []float64{0.4, 0.1, 0.05}

	canon, err := IntensityToCanonical(raw, "%T")
	if err != nil {
		t.Fatal(err)
	}
	canonSigma, err := IntensitySigmaToCanonical(raw, sigma, "%T")
	if err != nil {
		t.Fatal(err)
	}
	back, err := IntensitySigmaFromCanonical(canon.Values, canonSigma, BasisAbsorbance, "%T")
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceRelEqual(t, back, sigma, 1e-9)

	if _, err := IntensitySigmaFromCanonical([]float64{1}, []float64{1}, BasisCounts, "%T"); !errors.Is(err, ErrUnsupportedUnit) {
		t.Fatalf("basis mismatch: got %v", err)
	}
}
