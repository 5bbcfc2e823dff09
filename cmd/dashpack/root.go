package main

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/backmassage/dashpack/internal/check"
	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/display"
	"github.com/backmassage/dashpack/internal/ffmpeg"
	"github.com/backmassage/dashpack/internal/logging"
)

// errReported marks a failure that has already been logged.
var errReported = errors.New("reported")

// Seams for tests.
var (
	newRunner = func(cfg *config.Config, workers int) ffmpeg.Runner {
		return ffmpeg.ExecRunner{Timeout: cfg.ProcessTimeout, Tee: cfg.Verbose && workers == 1}
	}
	checkDeps = check.CheckDeps
)

// commandContext carries the bound flags to every subcommand.
type commandContext struct {
	flags *config.Flags
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "dashpack -i <dir> [flags]",
		Short:         "Batch-convert a video tree into DASH packages",
		Version:       display.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, cc)
		},
	}
	rootCmd.SetVersionTemplate("dashpack {{.Version}}\n")
	cc.flags = config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newCheckCommand(cc))
	rootCmd.AddCommand(newPlanCommand(cc))
	return rootCmd
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then explicitly set flags. A malformed --serve list is returned as
// a warning rather than an error.
func (cc *commandContext) loadConfig(requireInput bool) (cfg config.Config, warning, err error) {
	cfg = config.DefaultConfig()
	if path := cc.flags.ConfigFile(); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return cfg, nil, err
		}
	}
	warning = cc.flags.Apply(&cfg)

	if !requireInput && cfg.InputDir == "" {
		cfg.InputDir = "."
	}
	if err := cfg.Validate(); err != nil {
		return cfg, warning, err
	}
	return cfg, warning, nil
}

// openLogger loads the configuration and opens the logger for it. Errors
// here happen before a logger exists, so they are returned for main to
// print.
func (cc *commandContext) openLogger(requireInput bool) (*config.Config, *logging.Logger, error) {
	cfg, warning, err := cc.loadConfig(requireInput)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		return nil, nil, err
	}
	if warning != nil {
		log.Warn("Ignoring --serve: %v; no catalogs will be written", warning)
	}
	return &cfg, log, nil
}

// absPath returns the absolute, symlink-resolved path so input and publish
// hierarchies compare reliably.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

