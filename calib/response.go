package calib

import (
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/internal/interp"
	"github.com/cwbudde/algo-spectra/internal/linalg"
	"github.com/cwbudde/algo-spectra/internal/numeric"
	"github.com/cwbudde/algo-spectra/internal/stats"
	"github.com/cwbudde/algo-spectra/spectrum"
)

// ComputeResponse derives an instrument response from a measured standard
// and its known true spectrum on the same axis. The raw ratio
// measured/truth is smoothed with a least-squares cubic B-spline; the
// response sigma is the RMS of the raw ratio about the smooth curve.
func (e *Engine) ComputeResponse(axis, measured, truth []float64) (*Artifact, error) {
	n := len(axis)
	if len(measured) != n || len(truth) != n {
		return nil, fmt.Errorf("%w: axis %d, measured %d, truth %d", ErrInvalidInput, n, len(measured), len(truth))
	}
	segments := e.cfg.responseSegments
	if required := segments + 3; n < required {
		return nil, &UnderdeterminedError{Kind: KindResponseFunction, Points: n, Required: required, Degree: 3}
	}
	for _, vs := range [][]float64{axis, measured, truth} {
		if i := numeric.FirstNonFinite(vs); i >= 0 {
			return nil, fmt.Errorf("%w: non-finite sample %d", ErrInvalidInput, i)
		}
	}

	if _, err := interp.NewTable(axis, measured); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ratio := make([]float64, n)
	for i := range ratio {
		if truth[i] == 0 {
			return nil, fmt.Errorf("%w: true flux is zero at %v nm", ErrInvalidInput, axis[i])
		}
		ratio[i] = measured[i] / truth[i]
	}

	spline, err := fitSpline(axis, ratio, segments)
	if err != nil {
		return nil, err
	}

	smooth := make([]float64, n)
	resid := make([]float64, n)
	for i, x := range axis {
		smooth[i] = spline.eval(x)
		resid[i] = ratio[i] - smooth[i]
	}
	rms := stats.RMS(resid)
	sigma := make([]float64, n)
	for i := range sigma {
		sigma[i] = rms
	}

	art, err := e.newArtifact(KindResponseFunction)
	if err != nil {
		return nil, err
	}
	art.Response = &Response{
		Axis:     slices.Clone(axis),
		Values:   smooth,
		Sigma:    sigma,
		Segments: segments,
	}
	art.Validity = Validity{MinNM: spline.lo, MaxNM: spline.hi}
	used := make([]int, n)
	for i := range used {
		used[i] = i
	}
	art.Quality = &FitQuality{RMS: rms, Used: used, Iterations: 1, Converged: true}

	e.cfg.logger.Debug("response function computed",
		zap.String("artifact", art.ID), zap.Int("segments", segments), zap.Float64("rms", rms))

	return art, nil
}

// ApplyResponse divides series by the response, linearly interpolated onto
// the series axis:
//
//	σ_out² = (σ_in/r)² + (m·σ_r/r²)²
//
// which is the relative-error sum for a quotient without dividing by m.
func ApplyResponse(series spectrum.Series, art *Artifact) (Result, error) {
	if err := art.check(KindResponseFunction); err != nil {
		return Result{}, err
	}

	values, err := interp.NewTable(art.Response.Axis, art.Response.Values)
	if err != nil {
		return Result{}, fmt.Errorf("%w: response table: %v", ErrInvalidInput, err)
	}
	sigmas, err := interp.NewTable(art.Response.Axis, art.Response.Sigma)
	if err != nil {
		return Result{}, fmt.Errorf("%w: response table: %v", ErrInvalidInput, err)
	}

	rs, err := values.Resample(series.Axis)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	srs, err := sigmas.Resample(series.Axis)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	out := series.Clone()
	for i, x := range series.Axis {
		r, sr := rs[i], srs[i]
		if r == 0 {
			return Result{}, fmt.Errorf("%w: response is zero at %v nm", ErrInvalidInput, x)
		}

		m := series.Values[i]
		out.Values[i] = m / r
		if out.Sigma != nil {
			out.Sigma[i] = math.Hypot(series.Sigma[i]/r, m*sr/(r*r))
		}
	}

	return newResult(out), nil
}

// bspline is a uniform cubic B-spline on [lo, hi].
type bspline struct {
	lo, hi   float64
	segments int
	coef     []float64
}

func fitSpline(x, y []float64, segments int) (*bspline, error) {
	s := &bspline{lo: slices.Min(x), hi: slices.Max(x), segments: segments}
	if !(s.hi > s.lo) {
		return nil, fmt.Errorf("%w: response axis has zero extent", ErrInvalidInput)
	}

	a := make([][]float64, len(x))
	for i, xi := range x {
		row := make([]float64, segments+3)
		j, b := s.basis(xi)
		copy(row[j:j+4], b[:])
		a[i] = row
	}

	coef, err := linalg.LeastSquares(a, y)
	if err != nil {
		return nil, &UnderdeterminedError{Kind: KindResponseFunction, Points: len(x), Required: segments + 3, Degree: 3}
	}
	s.coef = coef

	return s, nil
}

// basis returns the first non-zero coefficient index and the four cubic
// basis values at x.
func (s *bspline) basis(x float64) (int, [4]float64) {
	t := (x - s.lo) / (s.hi - s.lo) * float64(s.segments)
	j := int(math.Floor(t))
	j = max(0, min(j, s.segments-1))
	u := t - float64(j)

	u2, u3 := u*u, u*u*u
	v := 1 - u
	return j, [4]float64{
		v * v * v / 6,
		(3*u3 - 6*u2 + 4) / 6,
		(-3*u3 + 3*u2 + 3*u + 1) / 6,
		u3 / 6,
	}
}

func (s *bspline) eval(x float64) float64 {
	j, b := s.basis(x)
	var y float64
	for k := range b {
		y += s.coef[j+k] * b[k]
	}
	return y
}
