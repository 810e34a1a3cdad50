package conv

import (
	"errors"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by convolution functions.
var (
	ErrEmptyInput     = errors.New("conv: empty input")
	ErrEmptyKernel    = errors.New("conv: empty kernel")
	ErrLengthMismatch = errors.New("conv: buffer length mismatch")
	ErrEvenKernel     = errors.New("conv: same-length convolution needs an odd kernel")
)

// directThreshold is the kernel length above which Convolve switches to
// overlap-add.
const directThreshold = 64

// Direct performs direct linear convolution of a and b.
// Returns a new slice of length len(a) + len(b) - 1.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	result := make([]float64, len(a)+len(b)-1)
	DirectTo(result, a, b)

	return result, nil
}

// DirectTo performs direct convolution into dst, which must have length
// len(a) + len(b) - 1.
func DirectTo(dst, a, b []float64) {
	for i := range dst {
		dst[i] = 0
	}

	m := len(b)

	// Kernels shorter than a SIMD lane gain nothing from the block path.
	const simdThreshold = 4
	if m < simdThreshold {
		for i, x := range a {
			for j, k := range b {
				dst[i+j] += x * k
			}
		}

		return
	}

	temp := make([]float64, m)
	for i, x := range a {
		vecmath.ScaleBlock(temp, b, x)
		vecmath.AddBlockInPlace(dst[i:i+m], temp)
	}
}

// Convolve performs linear convolution, selecting direct convolution for
// short kernels and overlap-add for long ones.
func Convolve(signal, kernel []float64) ([]float64, error) {
	if len(signal) == 0 {
		return nil, ErrEmptyInput
	}
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}

	if len(kernel) <= directThreshold {
		return Direct(signal, kernel)
	}

	return OverlapAddConvolve(signal, kernel)
}

// Same convolves signal with an odd-length, centred kernel and returns
// len(signal) samples. Both edges are padded by replicating the boundary
// samples.
func Same(signal, kernel []float64) ([]float64, error) {
	if len(signal) == 0 {
		return nil, ErrEmptyInput
	}
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if len(kernel)%2 == 0 {
		return nil, ErrEvenKernel
	}

	half := len(kernel) / 2
	padded := make([]float64, len(signal)+2*half)
	for i := range padded {
		src := i - half
		switch {
		case src < 0:
			src = 0
		case src >= len(signal):
			src = len(signal) - 1
		}
		padded[i] = signal[src]
	}

	full, err := Convolve(padded, kernel)
	if err != nil {
		return nil, err
	}

	// full has len(padded)+2*half samples; the fully overlapped part
	// starts at 2*half.
	out := make([]float64, len(signal))
	copy(out, full[2*half:2*half+len(signal)])

	return out, nil
}

// Squared returns a new kernel holding k[i]^2.
func Squared(kernel []float64) []float64 {
	out := make([]float64, len(kernel))
	vecmath.MulBlock(out, kernel, kernel)

	return out
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}

	return p
}
