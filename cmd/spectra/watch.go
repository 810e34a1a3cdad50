package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-spectra/ingest"
)

func newWatchCmd(a *app) *cobra.Command {
	f := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Ingest files dropped into a directory",
		Long: `Watches a directory (default ingest.watch_dir) and ingests every file
whose extension names a registered importer once it has been quiet for
the configured debounce period. Stops on SIGINT or SIGTERM.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Ingest.WatchDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no directory given and ingest.watch_dir is empty")
			}
			tmpl, err := f.template(cmd.Flags())
			if err != nil {
				return err
			}
			coord, err := a.coordinator()
			if err != nil {
				return err
			}

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			report := func(path string, res *ingest.Result, err error) {
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					fmt.Fprintf(out, "%s: error: %v\n", path, err)
					return
				}
				fmt.Fprintf(out, "%s: %s %s\n", path, shortSum(res.Final().Checksum()), status(res))
			}

			w, err := ingest.NewWatcher(coord, dir, report,
				ingest.WithDebounce(a.cfg.Debounce()), ingest.WithTemplate(tmpl))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := w.Start(ctx); err != nil {
				_ = w.Stop()
				return err
			}
			<-ctx.Done()
			return w.Stop()
		},
	}
	f.register(cmd.Flags())
	return cmd
}
