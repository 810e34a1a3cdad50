package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-spectra/spectrum"
)

func TestXYImporter(t *testing.T) {
	doc := `# neon lamp, slit 2
# axis_unit: nm
# intensity_unit: counts
# uncertainty: variance
# Observer: ana

400.0, 10, 4
400.5	12	4
401.0;11;9
`
	raw, err := XYImporter{}.Import(context.Background(), strings.NewReader(doc), spectrum.Source{})
	require.NoError(t, err)

	assert.Equal(t, []float64{400, 400.5, 401}, raw.Axis)
	assert.Equal(t, []float64{10, 12, 11}, raw.Intensity)
	assert.Equal(t, []float64{4, 4, 9}, raw.Uncertainty)
	assert.Equal(t, "nm", raw.AxisUnit)
	assert.Equal(t, "counts", raw.IntensityUnit)
	assert.Equal(t, UncertaintyVariance, raw.UncertaintyKind)
	assert.Equal(t, map[string]string{"observer": "ana"}, raw.SourceMetadata)
	assert.NoError(t, checkRaw("xy", raw))
}

func TestXYImporterErrors(t *testing.T) {
	tests := map[string]string{
		"one column":     "400\n",
		"four columns":   "400 1 2 3\n",
		"ragged":         "400 1\n401 1 0.1\n",
		"not a number":   "400 abc\n",
		"unit-less file": "",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			raw, err := XYImporter{}.Import(context.Background(), strings.NewReader(doc), spectrum.Source{})
			if err == nil {
				err = checkRaw("xy", raw)
			}
			assert.ErrorIs(t, err, ErrContract)
		})
	}
}

func TestXYUncertaintyNeedsKind(t *testing.T) {
	doc := "# axis_unit: nm\n# intensity_unit: counts\n400 1 0.1\n"
	raw, err := XYImporter{}.Import(context.Background(), strings.NewReader(doc), spectrum.Source{})
	require.NoError(t, err)

	var ce *ContractError
	require.ErrorAs(t, checkRaw("xy", raw), &ce)
	assert.Equal(t, "uncertainty_kind", ce.Field)
}

func TestJSONImporterRejectsUnknownFields(t *testing.T) {
	_, err := JSONImporter{}.Import(context.Background(), strings.NewReader(`{"axis":[1],"wavelength_unit":"nm"}`), spectrum.Source{})
	assert.ErrorIs(t, err, ErrContract)
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"json", "xy"}, reg.Formats())

	imp, err := reg.Lookup("xy")
	require.NoError(t, err)
	assert.Equal(t, "xy", imp.Format())

	_, err = reg.Lookup("fits")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Error(t, reg.Register(XYImporter{}))
}
