package calib

import (
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/internal/numeric"
	"github.com/cwbudde/algo-spectra/internal/poly"
	"github.com/cwbudde/algo-spectra/internal/stats"
	"github.com/cwbudde/algo-spectra/spectrum"
	"github.com/cwbudde/algo-spectra/units"
)

const (
	// madScale converts a median absolute deviation to a Gaussian σ.
	madScale = 1.4826
	// minClipSigma keeps exact fits from clipping on rounding noise (nm).
	minClipSigma = 1e-9
)

// FitWavelengthSolution fits λ(pixel) to matched reference lines. reference
// positions are declared in unit and normalized to nm first. Lines whose
// residual deviates by more than the clip threshold are excluded and the
// fit repeated until no line is removed or the iteration cap is reached.
func (e *Engine) FitWavelengthSolution(ctx context.Context, pixels, reference []float64, unit string) (*Artifact, error) {
	if len(pixels) != len(reference) {
		return nil, fmt.Errorf("%w: %d pixels, %d reference positions", ErrInvalidInput, len(pixels), len(reference))
	}
	if i := numeric.FirstNonFinite(pixels); i >= 0 {
		return nil, fmt.Errorf("%w: pixel %d is %v", ErrInvalidInput, i, pixels[i])
	}
	ref, err := units.AxisToCanonical(reference, unit)
	if err != nil {
		return nil, err
	}
	if ref.SentinelApplied() {
		return nil, fmt.Errorf("%w: reference line %d has no finite wavelength", ErrInvalidInput, ref.Sentinels[0])
	}

	degree := e.cfg.degree
	required := max(e.cfg.minLines, degree+1)
	if !e.cfg.degreeFixed {
		required = max(e.cfg.minLines, 2)
	}

	kept := make([]int, len(pixels))
	for i := range kept {
		kept[i] = i
	}

	var (
		fit        poly.Normalized
		used       []int
		summary    stats.Summary
		iterations int
		converged  bool
	)
	for iterations < e.cfg.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iterations++

		n := distinct(pixels, kept)
		if n < required {
			return nil, &UnderdeterminedError{Kind: KindWavelengthSolution, Points: n, Required: required, Degree: degree}
		}
		if !e.cfg.degreeFixed {
			degree = min(e.cfg.degree, n-1)
		}

		xs, ys := gather(pixels, kept), gather(ref.Values, kept)
		fit, err = poly.Fit(xs, ys, degree)
		if err != nil {
			return nil, &DivergenceError{Kind: KindWavelengthSolution, Iterations: iterations, Reason: err.Error()}
		}
		used = kept

		resid := residuals(fit, xs, ys)
		summary = stats.Calculate(resid)
		if !numeric.IsFinite(summary.RMS) {
			return nil, &DivergenceError{Kind: KindWavelengthSolution, Iterations: iterations, Reason: "non-finite residuals"}
		}

		next := clip(kept, resid, e.cfg.sigmaClip)
		if len(next) == len(kept) {
			converged = true
			break
		}
		kept = next
	}
	if !converged {
		e.cfg.logger.Warn("wavelength solution did not converge",
			zap.Int("iterations", iterations), zap.Int("lines", len(used)))
	}

	quality := FitQuality{
		RMS:         summary.RMS,
		WithheldRMS: withheldRMS(pixels, ref.Values, used, degree),
		MaxResidual: math.Max(-summary.Min, summary.Max),
		Used:        slices.Clone(used),
		Excluded:    excluded(len(pixels), used),
		Iterations:  iterations,
		Converged:   converged,
	}
	if e.cfg.acceptance != nil {
		if err := e.cfg.acceptance.Check(quality, degree); err != nil {
			return nil, err
		}
	}

	art, err := e.newArtifact(KindWavelengthSolution)
	if err != nil {
		return nil, err
	}
	art.Solution = &WavelengthSolution{
		Degree:       degree,
		Center:       fit.Center,
		Scale:        fit.Scale,
		Coefficients: slices.Clone(fit.Coefficients),
		AxisUnit:     units.CanonicalAxis,
	}
	usedNM := gather(ref.Values, used)
	art.Validity = Validity{MinNM: slices.Min(usedNM), MaxNM: slices.Max(usedNM)}
	art.Quality = &quality

	e.cfg.logger.Debug("wavelength solution fitted",
		zap.String("artifact", art.ID),
		zap.Int("degree", degree),
		zap.Float64("rms", summary.RMS),
		zap.Float64("residual_mean", summary.Mean),
		zap.Float64("residual_stddev", summary.StdDev),
		zap.Float64("max_residual", quality.MaxResidual),
		zap.Int("excluded", len(quality.Excluded)),
		zap.Int("iterations", iterations))

	return art, nil
}

// ApplyWavelengthSolution replaces the axis with λ(i) for sample index i.
// A solution whose dispersion vanishes or changes sign over the pixels
// would fold the axis and is rejected. Pixels mapped outside the range of
// the lines the solution was fitted to are reported in Result.Extrapolated.
func ApplyWavelengthSolution(series spectrum.Series, art *Artifact) (Result, error) {
	if err := art.check(KindWavelengthSolution); err != nil {
		return Result{}, err
	}

	out := series.Clone()
	var (
		sign         float64
		extrapolated []int
	)
	for i := range out.Axis {
		p := float64(i)
		out.Axis[i] = art.Solution.Eval(p)
		if !numeric.IsFinite(out.Axis[i]) {
			return Result{}, fmt.Errorf("%w: solution is %v at pixel %d", ErrInvalidInput, out.Axis[i], i)
		}
		d := art.Solution.Dispersion(p)
		if d == 0 || (sign != 0 && math.Signbit(d) != math.Signbit(sign)) {
			return Result{}, fmt.Errorf("%w: solution is not monotonic at pixel %d (dispersion %v nm/px)", ErrInvalidInput, i, d)
		}
		sign = d
		if !art.Validity.Contains(out.Axis[i]) {
			extrapolated = append(extrapolated, i)
		}
	}

	res := newResult(out)
	res.Extrapolated = extrapolated
	return res, nil
}

func gather(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func distinct(values []float64, idx []int) int {
	seen := make(map[float64]struct{}, len(idx))
	for _, j := range idx {
		seen[values[j]] = struct{}{}
	}
	return len(seen)
}

func residuals(fit poly.Normalized, xs, ys []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = ys[i] - fit.Eval(xs[i])
	}
	return out
}

// clip returns the subset of kept whose residual lies within k robust
// standard deviations of the median residual.
func clip(kept []int, resid []float64, k float64) []int {
	med := stats.Median(resid)
	dev := make([]float64, len(resid))
	for i, r := range resid {
		dev[i] = math.Abs(r - med)
	}
	sigma := math.Max(madScale*stats.Median(dev), minClipSigma)

	next := make([]int, 0, len(kept))
	for i, j := range kept {
		if dev[i] <= k*sigma {
			next = append(next, j)
		}
	}
	return next
}

// withheldRMS is the leave-one-out prediction RMS over the used lines. It
// is zero when removing a line would leave the fit underdetermined.
func withheldRMS(pixels, nm []float64, used []int, degree int) float64 {
	if len(used) < degree+2 {
		return 0
	}

	var errs []float64
	others := make([]int, 0, len(used)-1)
	for _, out := range used {
		others = others[:0]
		for _, j := range used {
			if j != out {
				others = append(others, j)
			}
		}
		if distinct(pixels, others) < degree+1 {
			continue
		}
		fit, err := poly.Fit(gather(pixels, others), gather(nm, others), degree)
		if err != nil {
			continue
		}
		errs = append(errs, nm[out]-fit.Eval(pixels[out]))
	}

	return stats.RMS(errs)
}

func excluded(n int, used []int) []int {
	in := make([]bool, n)
	for _, j := range used {
		in[j] = true
	}
	var out []int
	for i, ok := range in {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}
