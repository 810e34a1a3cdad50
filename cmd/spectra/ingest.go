package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cwbudde/algo-spectra/ingest"
	"github.com/cwbudde/algo-spectra/spectrum"
)

type ingestFlags struct {
	format           string
	displayAxis      string
	displayIntensity string
	background       float64
	backgroundSigma  float64
	sourceFWHM       float64
	targetFWHM       float64
	normalize        float64
	bundle           string
}

func (f *ingestFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.format, "format", "f", "", "importer name (default: file extension)")
	fs.StringVar(&f.displayAxis, "display-axis", "", "axis unit of the exported view")
	fs.StringVar(&f.displayIntensity, "display-intensity", "", "intensity unit of the exported view")
	fs.Float64Var(&f.background, "background", 0, "constant background to subtract")
	fs.Float64Var(&f.backgroundSigma, "background-sigma", 0, "uncertainty of the background")
	fs.Float64Var(&f.sourceFWHM, "source-fwhm", 0, "instrument FWHM in nm")
	fs.Float64Var(&f.targetFWHM, "target-fwhm", 0, "degrade to this FWHM in nm")
	fs.Float64Var(&f.normalize, "normalize", 0, "multiply the intensity by this scale")
}

// template builds the request every file is ingested with.
func (f *ingestFlags) template(fs *pflag.FlagSet) (ingest.Request, error) {
	var req ingest.Request
	if f.displayAxis != "" || f.displayIntensity != "" {
		req.Display = &ingest.Display{AxisUnit: f.displayAxis, IntensityUnit: f.displayIntensity}
	}

	cal := &ingest.CalibrationRequest{}
	if fs.Changed("background") {
		cal.Background = &ingest.BackgroundStep{Value: f.background, Sigma: f.backgroundSigma}
	}
	if fs.Changed("target-fwhm") {
		if f.sourceFWHM <= 0 {
			return req, fmt.Errorf("--target-fwhm needs --source-fwhm")
		}
		cal.Resolution = &ingest.ResolutionStep{SourceFWHM: f.sourceFWHM, TargetFWHM: f.targetFWHM}
	}
	if fs.Changed("normalize") {
		cal.Normalize = &ingest.NormalizeStep{Scale: f.normalize}
	}
	if *cal != (ingest.CalibrationRequest{}) {
		req.Calibration = cal
	}
	return req, nil
}

func formatOf(path, override string) string {
	if override != "" {
		return override
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func newIngestCmd(a *app) *cobra.Command {
	f := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Canonicalize and cache spectra",
		Long: `Imports each file, converts it to canonical units, stores the payload in
the cache and applies the requested calibration steps. With --bundle the
manifest and exported views are written to a directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := f.template(cmd.Flags())
			if err != nil {
				return err
			}
			coord, err := a.coordinator()
			if err != nil {
				return err
			}

			reqs := make([]ingest.Request, len(args))
			for i, path := range args {
				req := tmpl
				req.Format = formatOf(path, f.format)
				req.Source = spectrum.Source{Format: req.Format, Location: path}
				reqs[i] = req
			}

			items, err := coord.IngestBatch(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tCHECKSUM\tSAMPLES\tSTATUS")
			failed := 0
			for i, item := range items {
				if item.Err != nil {
					failed++
					fmt.Fprintf(w, "%s\t-\t-\terror: %v\n", args[i], item.Err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", args[i], shortSum(item.Result.Final().Checksum()),
					item.Result.Final().Len(), status(item.Result))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if f.bundle != "" {
				b := coord.Builder()
				bundle, err := b.BuildBundle(cmd.Context(), b.Entries(), coord)
				if err != nil {
					return err
				}
				if err := bundle.WriteTo(f.bundle); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "bundle written to %s\n", f.bundle)
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errFailures, failed, len(items))
			}
			return nil
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().StringVar(&f.bundle, "bundle", "", "write a manifest and exports to this directory")
	return cmd
}

func status(res *ingest.Result) string {
	var parts []string
	if res.Deduplicated {
		parts = append(parts, "cached")
	} else {
		parts = append(parts, "stored")
	}
	if res.Derived != nil {
		parts = append(parts, "calibrated")
	}
	if n := len(res.CalibrationErrors); n > 0 {
		parts = append(parts, fmt.Sprintf("%d step(s) skipped", n))
	}
	if n := len(res.Clamped); n > 0 {
		parts = append(parts, fmt.Sprintf("%d clamped", n))
	}
	return strings.Join(parts, ", ")
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
