// Package check provides system diagnostics (dashpack check) and the
// pre-run dependency validation (CheckDeps) for ffmpeg, ffprobe and the
// hardware encoder.
package check

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/ffmpeg"
	"github.com/backmassage/dashpack/internal/planner"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg not found")
	ErrFFprobeNotFound = errors.New("ffprobe not found")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// Requirement is an external binary the pipeline calls.
type Requirement struct {
	Name     string
	Command  string
	Optional bool
}

// Status reports the availability of a Requirement.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

var lookPath = exec.LookPath

// Requirements lists the tools configured in cfg. The hardware encoder is
// optional because the software tier covers it.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "ffmpeg", Command: cfg.Tools.FFmpeg},
		{Name: "ffprobe", Command: cfg.Tools.FFprobe},
		{Name: "hardware encoder", Command: cfg.Tools.HWEncoder, Optional: true},
	}
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(reqs []Requirement) []Status {
	results := make([]Status, 0, len(reqs))
	for _, req := range reqs {
		req.Command = strings.TrimSpace(req.Command)
		st := Status{Requirement: req}
		switch {
		case req.Command == "":
			st.Detail = "not configured"
		default:
			if _, err := lookPath(req.Command); err != nil {
				st.Detail = fmt.Sprintf("binary %q not found", req.Command)
			} else {
				st.Available = true
			}
		}
		results = append(results, st)
	}
	return results
}

// CheckDeps is the pre-run validation. It fails with a sentinel error when
// ffmpeg or ffprobe is missing and returns warnings for optional tools.
func CheckDeps(cfg *config.Config) (warnings []string, err error) {
	for _, st := range CheckBinaries(Requirements(cfg)) {
		if st.Available {
			continue
		}
		switch {
		case st.Optional:
			warnings = append(warnings, fmt.Sprintf("%s unavailable (%s), every transcode will use the software encoder", st.Name, st.Detail))
		case st.Name == "ffmpeg":
			return warnings, fmt.Errorf("%w: %s", ErrFFmpegNotFound, st.Detail)
		default:
			return warnings, fmt.Errorf("%w: %s", ErrFFprobeNotFound, st.Detail)
		}
	}
	return warnings, nil
}

// RunCheck runs the interactive check flow: tool availability and versions,
// a short software encode test for the target codec, and host resources.
// This is informational only; it does not stop on failure.
func RunCheck(ctx context.Context, cfg *config.Config, runner ffmpeg.Runner, log Logger) {
	log.Info("=== System Check ===")

	for _, st := range CheckBinaries(Requirements(cfg)) {
		switch {
		case st.Available:
			log.Success("%s: %s", st.Name, version(ctx, runner, st.Command))
		case st.Optional:
			log.Warn("%s: %s (software fallback only)", st.Name, st.Detail)
		default:
			log.Error("%s: %s", st.Name, st.Detail)
		}
	}

	checkSoftwareEncoder(ctx, cfg, runner, log)
	checkHost(log)
}

// version returns the first line of "<bin> -version", or a short note.
func version(ctx context.Context, runner ffmpeg.Runner, bin string) string {
	out, err := runner.Run(ctx, ffmpeg.Version(bin))
	if err != nil {
		return "found, but -version failed"
	}
	first := strings.TrimSpace(string(out.Stdout))
	if idx := strings.Index(first, "\n"); idx > 0 {
		first = first[:idx]
	}
	if first == "" {
		return "found"
	}
	return first
}

func checkSoftwareEncoder(ctx context.Context, cfg *config.Config, runner ffmpeg.Runner, log Logger) {
	prof, err := planner.ProfileFor(cfg.TargetCodec)
	if err != nil {
		log.Error("%v", err)
		return
	}
	log.Info("Testing %s...", prof.SWEncoder)
	if _, err := runner.Run(ctx, ffmpeg.TestEncode(cfg, prof)); err != nil {
		log.Error("%s test encode failed: %v", prof.SWEncoder, err)
		return
	}
	log.Success("%s works", prof.SWEncoder)
}

func checkHost(log Logger) {
	if info, err := host.Info(); err == nil {
		log.Info("Host: %s %s (%s)", info.Platform, info.PlatformVersion, info.KernelArch)
	}
	physical, _ := cpu.Counts(false)
	logical, _ := cpu.Counts(true)
	model := "unknown CPU"
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		model = strings.TrimSpace(infos[0].ModelName)
	}
	log.Info("CPU: %s, %d cores / %d threads (default --parallel 0 uses %d)",
		model, physical, logical, config.ResolveWorkers(0))
	if vm, err := mem.VirtualMemory(); err == nil {
		log.Info("Memory: %s total, %s available", humanize.IBytes(vm.Total), humanize.IBytes(vm.Available))
	}
}
