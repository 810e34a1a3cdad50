package profile

import (
	"errors"
	"fmt"
)

var (
	errKernelTooWide = errors.New("profile: kernel exceeds maximum tap count")
	errZeroSum       = errors.New("profile: kernel taps sum to zero")
)

func validateKernel(fwhm, step float64) error {
	if !(fwhm > 0) {
		return fmt.Errorf("profile: fwhm must be > 0: %v", fwhm)
	}
	if !(step > 0) {
		return fmt.Errorf("profile: step must be > 0: %v", step)
	}
	return nil
}

func validateEta(eta float64) error {
	if eta < 0 || eta > 1 {
		return fmt.Errorf("profile: voigt eta must be in [0,1]: %v", eta)
	}
	return nil
}
