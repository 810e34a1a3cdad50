package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-spectra/provenance"
)

func newExportCmd(a *app) *cobra.Command {
	var manifestPath, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Replay a manifest against the cache and write a fresh bundle",
		Long: `Reads an exported manifest, replays every entry from its cached raw
payload and writes the manifest and views to --out. Replay fails when a
payload is missing or a recorded checksum does not match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(manifestPath)
			if err != nil {
				return err
			}
			m, err := provenance.ParseManifest(data)
			if err != nil {
				return err
			}
			coord, err := a.coordinator()
			if err != nil {
				return err
			}
			bundle, err := coord.Builder().BuildBundle(cmd.Context(), m.Entries, coord)
			if err != nil {
				return err
			}
			if err := bundle.WriteTo(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entr(ies) replayed into %s\n", len(m.Entries), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest.json to replay")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
