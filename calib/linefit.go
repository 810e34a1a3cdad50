package calib

import (
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/internal/linalg"
	"github.com/cwbudde/algo-spectra/internal/numeric"
	"github.com/cwbudde/algo-spectra/internal/profile"
	"github.com/cwbudde/algo-spectra/internal/stats"
)

// LineFit is the fitted profile of one reference line.
type LineFit struct {
	Shape      string  `json:"shape"`
	Center     float64 `json:"center"`
	FWHM       float64 `json:"fwhm"`
	Amplitude  float64 `json:"amplitude"`
	Baseline   float64 `json:"baseline"`
	Eta        float64 `json:"eta,omitempty"`
	RMS        float64 `json:"rms"`
	Iterations int     `json:"iterations"`
}

// LineWindow is a window of samples around one isolated line.
type LineWindow struct {
	Axis   []float64
	Values []float64
}

// parameter indices
const (
	pCenter = iota
	pFWHM
	pAmp
	pBase
	pEta
)

// FitLine fits baseline + amplitude·profile(x - center) to one line with
// Levenberg–Marquardt. For Voigt the pseudo-Voigt mixing factor is fitted
// too and kept in [0, 1].
func (e *Engine) FitLine(ctx context.Context, axis, values []float64, shape Shape) (LineFit, error) {
	nParams := 4
	if shape == Voigt {
		nParams = 5
	}
	if len(axis) != len(values) {
		return LineFit{}, fmt.Errorf("%w: %d axis samples, %d values", ErrInvalidInput, len(axis), len(values))
	}
	if len(axis) < nParams+1 {
		return LineFit{}, &UnderdeterminedError{Kind: KindLSFKernel, Points: len(axis), Required: nParams + 1}
	}
	if i := numeric.FirstNonFinite(axis); i >= 0 {
		return LineFit{}, fmt.Errorf("%w: axis[%d] = %v", ErrInvalidInput, i, axis[i])
	}
	if i := numeric.FirstNonFinite(values); i >= 0 {
		return LineFit{}, fmt.Errorf("%w: values[%d] = %v", ErrInvalidInput, i, values[i])
	}

	p := initialGuess(axis, values, nParams)
	model := func(p []float64, x float64) float64 {
		eta := 0.0
		if len(p) > pEta {
			eta = p[pEta]
		}
		return p[pBase] + p[pAmp]*profile.Evaluate(shape, x-p[pCenter], p[pFWHM], eta)
	}
	sse := func(p []float64) float64 {
		var s float64
		for i, x := range axis {
			r := values[i] - model(p, x)
			s += r * r
		}
		return s
	}

	n := len(axis)
	jac := make([][]float64, n)
	for i := range jac {
		jac[i] = make([]float64, nParams)
	}
	resid := make([]float64, n)

	lambda := 1e-3
	cur := sse(p)
	iterations := 0
	for iterations < maxLineIterations {
		if err := ctx.Err(); err != nil {
			return LineFit{}, err
		}
		iterations++

		for i, x := range axis {
			resid[i] = values[i] - model(p, x)
		}
		jacobian(jac, p, axis, model)

		jtj := make([][]float64, nParams)
		jtr := make([]float64, nParams)
		for a := range nParams {
			jtj[a] = make([]float64, nParams)
			for i := range n {
				jtr[a] += jac[i][a] * resid[i]
				for b := range nParams {
					jtj[a][b] += jac[i][a] * jac[i][b]
				}
			}
		}

		improved := false
		for lambda <= 1e12 {
			damped := make([][]float64, nParams)
			for a := range nParams {
				damped[a] = slices.Clone(jtj[a])
				d := jtj[a][a]
				if d == 0 {
					d = 1
				}
				damped[a][a] += lambda * d
			}

			dp, err := linalg.Solve(damped, jtr)
			if err != nil {
				lambda *= 10
				continue
			}
			next := make([]float64, nParams)
			for a := range nParams {
				next[a] = p[a] + dp[a]
			}
			if !(next[pFWHM] > 0) {
				lambda *= 10
				continue
			}
			if nParams > pEta {
				next[pEta] = numeric.Clamp(next[pEta], 0, 1)
			}

			trial := sse(next)
			if trial < cur {
				gain := cur - trial
				p, cur = next, trial
				lambda = math.Max(lambda/10, 1e-12)
				// A negligible gain counts as converged.
				improved = gain > 1e-14*cur
				break
			}
			lambda *= 10
		}
		if !improved {
			break
		}
	}

	for _, v := range p {
		if !numeric.IsFinite(v) {
			return LineFit{}, &DivergenceError{Kind: KindLSFKernel, Iterations: iterations, Reason: "non-finite parameters"}
		}
	}

	fit := LineFit{
		Shape:      shape.String(),
		Center:     p[pCenter],
		FWHM:       p[pFWHM],
		Amplitude:  p[pAmp],
		Baseline:   p[pBase],
		RMS:        math.Sqrt(cur / float64(n)),
		Iterations: iterations,
	}
	if nParams > pEta {
		fit.Eta = p[pEta]
	}

	return fit, nil
}

// EstimateLSF fits every line window with shape and returns an lsf_kernel
// artifact whose FWHM is the median of the successful fits. Lines that
// fail to fit are excluded.
func (e *Engine) EstimateLSF(ctx context.Context, lines []LineWindow, shape Shape) (*Artifact, []LineFit, error) {
	var (
		fits     []LineFit
		used     []int
		excluded []int
	)
	for i, w := range lines {
		fit, err := e.FitLine(ctx, w.Axis, w.Values, shape)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			e.cfg.logger.Debug("line excluded from lsf estimate", zap.Int("line", i), zap.Error(err))
			excluded = append(excluded, i)
			continue
		}
		fits = append(fits, fit)
		used = append(used, i)
	}
	if len(fits) == 0 {
		return nil, nil, &UnderdeterminedError{Kind: KindLSFKernel, Points: 0, Required: 1}
	}

	widths := make([]float64, len(fits))
	etas := make([]float64, len(fits))
	rms := make([]float64, len(fits))
	centers := make([]float64, len(fits))
	for i, f := range fits {
		widths[i], etas[i], rms[i], centers[i] = f.FWHM, f.Eta, f.RMS, f.Center
	}

	art, err := e.newArtifact(KindLSFKernel)
	if err != nil {
		return nil, nil, err
	}
	art.Kernel = &Kernel{Shape: shape.String(), FWHM: stats.Median(widths)}
	if shape == Voigt {
		art.Kernel.Eta = stats.Median(etas)
	}
	art.Validity = Validity{MinNM: slices.Min(centers), MaxNM: slices.Max(centers)}
	art.Quality = &FitQuality{
		RMS:        stats.RMS(rms),
		Used:       used,
		Excluded:   excluded,
		Iterations: 1,
		Converged:  true,
	}

	return art, fits, nil
}

func initialGuess(axis, values []float64, nParams int) []float64 {
	lo, hi := values[0], values[0]
	peak := 0
	for i, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi, peak = v, i
		}
	}

	step := math.Abs(axis[len(axis)-1]-axis[0]) / float64(len(axis)-1)
	above := 0
	for _, v := range values {
		if v-lo >= (hi-lo)/2 {
			above++
		}
	}
	fwhm := math.Max(float64(above)*step, 2*step)

	p := make([]float64, nParams)
	p[pCenter] = axis[peak]
	p[pFWHM] = fwhm
	p[pAmp] = hi - lo
	p[pBase] = lo
	if nParams > pEta {
		p[pEta] = 0.5
	}
	return p
}

// jacobian fills jac with central-difference derivatives of model.
func jacobian(jac [][]float64, p, axis []float64, model func([]float64, float64) float64) {
	scale := []float64{
		p[pFWHM],
		p[pFWHM],
		math.Abs(p[pAmp]),
		math.Max(math.Abs(p[pAmp]), math.Abs(p[pBase])),
		1,
	}
	hi := slices.Clone(p)
	lo := slices.Clone(p)
	for a := range p {
		h := 1e-6 * math.Max(scale[a], 1e-12)
		hi[a], lo[a] = p[a]+h, p[a]-h
		for i, x := range axis {
			jac[i][a] = (model(hi, x) - model(lo, x)) / (2 * h)
		}
		hi[a], lo[a] = p[a], p[a]
	}
}
