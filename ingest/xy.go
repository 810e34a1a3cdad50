package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-spectra/spectrum"
)

// XYImporter reads whitespace or comma separated columns: axis, intensity
// and an optional uncertainty. Units are declared in header comments:
//
//	# axis_unit: nm
//	# intensity_unit: %T
//	# uncertainty: stddev
//
// Any other "# key: value" header becomes source metadata. Nothing is
// defaulted: a file without unit directives is a contract violation.
type XYImporter struct{}

func (XYImporter) Format() string { return "xy" }

func (x XYImporter) Import(ctx context.Context, r io.Reader, _ spectrum.Source) (*RawResult, error) {
	raw := &RawResult{SourceMetadata: map[string]string{}}
	columns := 0

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			key, value, ok := strings.Cut(strings.TrimSpace(text[1:]), ":")
			if !ok {
				continue
			}
			key, value = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)
			switch key {
			case "axis_unit":
				raw.AxisUnit = value
			case "intensity_unit":
				raw.IntensityUnit = value
			case "uncertainty":
				raw.UncertaintyKind = value
			default:
				raw.SourceMetadata[key] = value
			}
			continue
		}

		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == ';'
		})
		if len(fields) < 2 || len(fields) > 3 {
			return nil, &ContractError{Format: x.Format(), Field: fmt.Sprintf("line %d", line), Reason: fmt.Sprintf("%d columns", len(fields))}
		}
		if columns == 0 {
			columns = len(fields)
		} else if len(fields) != columns {
			return nil, &ContractError{Format: x.Format(), Field: fmt.Sprintf("line %d", line), Reason: fmt.Sprintf("%d columns, earlier rows have %d", len(fields), columns)}
		}

		vals := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, &ContractError{Format: x.Format(), Field: fmt.Sprintf("line %d", line), Reason: err.Error()}
			}
			vals[i] = v
		}
		raw.Axis = append(raw.Axis, vals[0])
		raw.Intensity = append(raw.Intensity, vals[1])
		if columns == 3 {
			raw.Uncertainty = append(raw.Uncertainty, vals[2])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ingest: read xy: %w", err)
	}

	return raw, nil
}

// JSONImporter reads the importer contract as a JSON object.
type JSONImporter struct{}

type jsonDocument struct {
	Axis            []float64         `json:"axis"`
	Intensity       []float64         `json:"intensity"`
	Uncertainty     []float64         `json:"uncertainty"`
	AxisUnit        string            `json:"axis_unit"`
	IntensityUnit   string            `json:"intensity_unit"`
	UncertaintyKind string            `json:"uncertainty_kind"`
	Metadata        map[string]string `json:"metadata"`
}

func (JSONImporter) Format() string { return "json" }

func (j JSONImporter) Import(_ context.Context, r io.Reader, _ spectrum.Source) (*RawResult, error) {
	var doc jsonDocument
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, &ContractError{Format: j.Format(), Field: "document", Reason: err.Error()}
	}
	return &RawResult{
		Axis:            doc.Axis,
		Intensity:       doc.Intensity,
		Uncertainty:     doc.Uncertainty,
		AxisUnit:        doc.AxisUnit,
		IntensityUnit:   doc.IntensityUnit,
		UncertaintyKind: doc.UncertaintyKind,
		SourceMetadata:  doc.Metadata,
	}, nil
}
