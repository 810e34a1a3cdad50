// Command spectra ingests spectra into the content-addressed cache and
// exports reproducible bundles from it.
//
// Usage:
//
//	spectra [--config file] <command> [flags]
//
// Examples:
//
//	spectra ingest --display-intensity %T sample.xy
//	spectra ingest --target-fwhm 2 --bundle out/ a.xy b.json
//	spectra export --manifest out/manifest.json --out replay/
//	spectra convert --from angstrom --to cm-1 5000 6000
//	spectra list
//	spectra verify
//	spectra watch ~/drop
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-spectra/calib"
	"github.com/cwbudde/algo-spectra/config"
	"github.com/cwbudde/algo-spectra/ingest"
	"github.com/cwbudde/algo-spectra/provenance"
	"github.com/cwbudde/algo-spectra/store"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	storeRoot  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "spectra",
		Short: "Spectral ingest, calibration and provenance",
		Long: `spectra canonicalizes spectra into a content-addressed cache, applies
optional calibration steps and records every transform in a manifest that
can be replayed to reproduce the exported views.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.storeRoot != "" {
				cfg.Store.Root = a.storeRoot
			}
			if a.verbose {
				cfg.Log.Level = "debug"
			}
			logger, err := cfg.Logger()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default $"+config.EnvVar+")")
	flags.StringVar(&a.storeRoot, "store", "", "cache root, overrides store.root")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIngestCmd(a),
		newListCmd(a),
		newVerifyCmd(a),
		newExportCmd(a),
		newConvertCmd(a),
		newWatchCmd(a),
	)
	return root
}

// coordinator opens the cache and wires a fresh coordinator to it.
func (a *app) coordinator() (*ingest.Coordinator, error) {
	st, err := store.Open(a.cfg.Store.Root, a.cfg.StoreOptions(a.logger)...)
	if err != nil {
		return nil, err
	}
	engineOpts, err := a.cfg.EngineOptions(a.logger)
	if err != nil {
		return nil, err
	}
	engine, err := calib.New(engineOpts...)
	if err != nil {
		return nil, err
	}
	builder := provenance.NewBuilder(provenance.WithLogger(a.logger))
	return ingest.New(st, builder, engine, a.cfg.CoordinatorOptions(a.logger)...)
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.Store.Root, a.cfg.StoreOptions(a.logger)...)
}

// errFailures is returned when a command finished but some inputs failed.
var errFailures = errors.New("one or more inputs failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
