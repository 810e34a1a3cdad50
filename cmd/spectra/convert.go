package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-spectra/units"
)

// convertValues converts through the canonical unit of the domain.
func convertValues(domain, from, to string, values []float64) (units.Conversion, error) {
	switch domain {
	case "axis":
		c, err := units.AxisToCanonical(values, from)
		if err != nil {
			return units.Conversion{}, err
		}
		return units.AxisFromCanonical(c.Values, to)
	case "intensity":
		c, err := units.IntensityToCanonical(values, from)
		if err != nil {
			return units.Conversion{}, err
		}
		out, err := units.IntensityFromCanonical(c.Values, c.Unit, to)
		if err != nil {
			return units.Conversion{}, err
		}
		out.Clamped = append(c.Clamped, out.Clamped...)
		return out, nil
	}
	return units.Conversion{}, fmt.Errorf("unknown domain %q (want axis or intensity)", domain)
}

func newConvertCmd(a *app) *cobra.Command {
	var domain, from, to string
	cmd := &cobra.Command{
		Use:   "convert value...",
		Short: "Convert values between axis or intensity units",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]float64, len(args))
			for i, s := range args {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return fmt.Errorf("value %d: %w", i, err)
				}
				values[i] = v
			}

			c, err := convertValues(domain, from, to, values)
			if err != nil {
				return err
			}
			out := make([]string, len(c.Values))
			for i, v := range c.Values {
				out[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, " "))
			if c.ClampApplied() {
				a.logger.Warn("values clamped during conversion")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&domain, "domain", "d", "axis", "axis or intensity")
	cmd.Flags().StringVar(&from, "from", "", "unit of the input values")
	cmd.Flags().StringVar(&to, "to", "", "unit of the output values")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
