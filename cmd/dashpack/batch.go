package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/dashpack/internal/catalog"
	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/display"
	"github.com/backmassage/dashpack/internal/logging"
	"github.com/backmassage/dashpack/internal/naming"
	"github.com/backmassage/dashpack/internal/pipeline"
)

// runBatch is the default command: discover, convert, publish, list.
func runBatch(cmd *cobra.Command, cc *commandContext) error {
	cfg, log, err := cc.openLogger(true)
	if err != nil {
		return err
	}
	defer log.Close()

	out := cmd.OutOrStdout()
	display.PrintBanner(out)

	inputAbs, err := absPath(cfg.InputDir)
	if err != nil {
		log.Error("Input not found: %s", cfg.InputDir)
		return errReported
	}
	if cfg.PublishDir != "" {
		if err := os.MkdirAll(cfg.PublishDir, 0o755); err != nil {
			log.Error("Cannot create output directory: %s", cfg.PublishDir)
			return errReported
		}
		publishAbs, err := absPath(cfg.PublishDir)
		if err != nil {
			log.Error("Cannot resolve output path: %s", cfg.PublishDir)
			return errReported
		}
		if err := cfg.ValidatePaths(inputAbs, publishAbs); err != nil {
			log.Error("%v", err)
			log.Error("Choose an output path outside: %s", cfg.InputDir)
			return errReported
		}
		cfg.PublishDir = publishAbs
	}

	workers := config.ResolveWorkers(cfg.Workers)
	echoConfig(log, cfg, workers)

	warnings, err := checkDeps(cfg)
	for _, w := range warnings {
		log.Warn("%s", w)
	}
	if err != nil {
		log.Error("%v", err)
		return errReported
	}

	lock, err := pipeline.AcquireLock(inputAbs)
	if err != nil {
		log.Error("%v", err)
		return errReported
	}
	defer lock.Release()

	ctx, stop := interruptContext(cmd.Context(), log)
	defer stop()

	files, err := pipeline.Discover(inputAbs)
	if err != nil {
		log.Error("Scan %s: %v", cfg.InputDir, err)
		return errReported
	}
	if len(files) == 0 {
		log.Error("No video files found in %s", cfg.InputDir)
		return errReported
	}
	log.Info("Found %d video file(s)", len(files))
	log.Blank()

	report, err := pipeline.Run(ctx, cfg, log, newRunner(cfg, workers), files)
	if err != nil {
		log.Error("%v", err)
		return errReported
	}

	written, err := catalog.Emit(cfg.CatalogDir, cfg.Destinations, report.Titles(), naming.ManifestName, cfg.CatalogFormat)
	for _, path := range written {
		log.Info("Wrote catalog %s", path)
	}
	catalogFailed := err != nil
	if catalogFailed {
		log.Error("%v", err)
	}

	log.Blank()
	fmt.Fprintln(out, display.ReportTable(report))
	summarize(log, report)

	if catalogFailed || len(report.Failed()) > 0 {
		return errReported
	}
	return nil
}

// echoConfig prints the effective run settings, numbering destinations from 1
// to match the catalog file names.
func echoConfig(log *logging.Logger, cfg *config.Config, workers int) {
	log.Info("Input:    %s", cfg.InputDir)
	log.Info("Segments: %ds", cfg.SegmentDuration)
	log.Info("Codec:    %s", cfg.TargetCodec)
	log.Info("Workers:  %d", workers)
	if cfg.PublishDir != "" {
		mode := "move"
		if cfg.CopyOnPublish {
			mode = "copy"
		}
		log.Info("Output:   %s (%s)", cfg.PublishDir, mode)
	}
	if len(cfg.Destinations) == 0 {
		log.Info("Destinations: none")
	}
	for i, d := range cfg.Destinations {
		if d == "" {
			log.Warn("Destination %d: blank, no catalog will be written", i+1)
			continue
		}
		log.Info("Destination %d: %s", i+1, d)
	}
	log.Blank()
}

func summarize(log *logging.Logger, report *pipeline.Report) {
	s := report.Stats
	log.Info("Run %s finished in %s", report.RunID, display.FormatDuration(report.Elapsed))
	log.Info("Succeeded: %d  Failed: %d  Copied: %d  Fallbacks: %d", s.Succeeded, s.Failed, s.Copied, s.Fallbacks)
	if s.Succeeded > 0 {
		log.Info("Input %s, output %s (%s)",
			display.FormatBytes(s.TotalInputBytes),
			display.FormatBytes(s.TotalOutputBytes),
			display.FormatBytesWithSign(-s.SpaceSaved()))
	}
	if s.Failed > 0 {
		log.Error("%d of %d job(s) failed", s.Failed, s.Total)
		return
	}
	log.Success("All %d job(s) packaged", s.Total)
}

// interruptContext cancels on SIGINT or SIGTERM. Running processes are
// killed through the context and queued jobs end as interrupted.
func interruptContext(parent context.Context, log *logging.Logger) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, stopping running jobs")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
