package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-spectra/ingest"
)

func newListCmd(a *app) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached payloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHECKSUM\tROLE\tSIZE\tSTORED\tINGESTS\tFLAGGED")
			for _, e := range st.List() {
				if role != "" && e.Metadata[ingest.MetaRole] != role {
					continue
				}
				flagged := ""
				if e.Flagged {
					flagged = e.FlagReason
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", e.Checksum, e.Metadata[ingest.MetaRole],
					e.Size, e.StoredSize, e.IngestCount, flagged)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only list entries with this role (raw, derived, calibration_artifact)")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash every cached payload and flag corrupt ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			bad, err := st.Verify(cmd.Context())
			if err != nil {
				return err
			}
			for _, sum := range bad {
				fmt.Fprintf(cmd.OutOrStdout(), "flagged %s\n", sum)
			}
			if len(bad) > 0 {
				return fmt.Errorf("%w: %d corrupt payload(s)", errFailures, len(bad))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d payload(s) ok\n", st.Len())
			return nil
		},
	}
}
