package units_test

import (
	"fmt"

	"github.com/cwbudde/algo-spectra/units"
)

func ExampleIntensityToCanonical() {
	conv, err := units.IntensityToCanonical([]float64{0, 50, 100}, "%T")
	if err != nil {
		panic(err)
	}

	fmt.Printf("%.5f %.5f %.5f clamped=%v\n", conv.Values[0], conv.Values[1], conv.Values[2], conv.Clamped)
	// Output: 12.00000 0.30103 0.00000 clamped=[0]
}

func ExampleAxisToCanonical() {
	conv, err := units.AxisToCanonical([]float64{20000, 0}, "cm-1")
	if err != nil {
		panic(err)
	}

	fmt.Println(conv.Values, conv.Sentinels)
	// Output: [500 +Inf] [1]
}
