package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backmassage/dashpack/internal/check"
	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/display"
	"github.com/backmassage/dashpack/internal/pipeline"
)

func newCheckCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report tool availability, a software test encode and host resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cc.openLogger(false)
			if err != nil {
				return err
			}
			defer log.Close()

			display.PrintBanner(cmd.OutOrStdout())
			check.RunCheck(cmd.Context(), cfg, newRunner(cfg, 1), log)
			return nil
		},
	}
}

func newPlanCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Probe every video under --input and show what a run would do",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := cc.openLogger(true)
			if err != nil {
				return err
			}
			defer log.Close()

			inputAbs, err := absPath(cfg.InputDir)
			if err != nil {
				log.Error("Input not found: %s", cfg.InputDir)
				return errReported
			}
			if _, err := checkDeps(cfg); err != nil {
				log.Error("%v", err)
				return errReported
			}
			files, err := pipeline.Discover(inputAbs)
			if err != nil {
				log.Error("Scan %s: %v", cfg.InputDir, err)
				return errReported
			}
			if len(files) == 0 {
				log.Error("No video files found in %s", cfg.InputDir)
				return errReported
			}

			ctx, stop := interruptContext(cmd.Context(), log)
			defer stop()

			rows, err := pipeline.Plan(ctx, cfg, log, newRunner(cfg, config.ResolveWorkers(cfg.Workers)), files)
			if err != nil {
				return errReported
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.PlanTable(rows))
			return nil
		},
	}
}
