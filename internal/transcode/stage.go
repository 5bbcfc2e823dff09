// Package transcode brings a source file to the target codec.
//
// The stage is a small state machine:
//
//	Detect ─┬─ already target ──────────────▶ Copy ──▶ done
//	        └─ anything else ─▶ Primary ─┬─ ok ─▶ Validate ──▶ done | no-video
//	                                     └─ err ─▶ Fallback ─┬─ ok ─▶ Validate
//	                                                         └─ err ─▶ encode failed
//
// A failed codec probe counts as "needs transcode". Only one fallback tier
// exists and partial outputs are left in place for inspection.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/failure"
	"github.com/backmassage/dashpack/internal/ffmpeg"
	"github.com/backmassage/dashpack/internal/fsutil"
	"github.com/backmassage/dashpack/internal/logging"
	"github.com/backmassage/dashpack/internal/naming"
	"github.com/backmassage/dashpack/internal/planner"
	"github.com/backmassage/dashpack/internal/probe"
)

// Decision is the outcome of codec detection.
type Decision int

const (
	NeedsTranscode Decision = iota
	AlreadyTarget
)

func (d Decision) String() string {
	if d == AlreadyTarget {
		return "already-target"
	}
	return "needs-transcode"
}

// Tier identifies which encoder an Attempt used.
type Tier int

const (
	Primary Tier = iota + 1
	Fallback
)

func (t Tier) String() string {
	switch t {
	case Primary:
		return "primary"
	case Fallback:
		return "fallback"
	}
	return "unknown"
}

// Attempt records one encoder invocation. Valid is only meaningful when Err
// is nil and reports whether the output passed stream validation.
type Attempt struct {
	Tier    Tier
	Encoder string
	Err     error
	Valid   bool
}

// Result is what Process hands to the packaging stage.
type Result struct {
	Output   string
	Codec    string // detected source codec, "" when the probe failed
	Decision Decision
	Attempts []Attempt
}

type state int

const (
	stateDetect state = iota
	stateCopy
	statePrimary
	stateFallback
	stateValidate
	stateDone
)

// Stage runs the transcode state machine for one job at a time. A Stage is
// stateless between calls and may be shared by all workers.
type Stage struct {
	cfg     *config.Config
	runner  ffmpeg.Runner
	profile planner.Profile
}

// New returns a Stage for cfg.TargetCodec.
func New(cfg *config.Config, runner ffmpeg.Runner) (*Stage, error) {
	prof, err := planner.ProfileFor(cfg.TargetCodec)
	if err != nil {
		return nil, err
	}
	return &Stage{cfg: cfg, runner: runner, profile: prof}, nil
}

// Process brings source to the target codec inside dirs.Encode and returns
// the produced file. Every error is a *failure.Error.
func (s *Stage) Process(ctx context.Context, log *logging.Logger, source string, dirs naming.JobDirs) (Result, error) {
	res := Result{Output: dirs.EncodedFile(source)}
	if err := os.MkdirAll(dirs.Encode, 0o755); err != nil {
		return res, failure.New(failure.IOFailure, "create encode directory", dirs.Encode, err)
	}

	var lastErr error
	st := stateDetect
	for st != stateDone {
		if err := ctx.Err(); err != nil {
			return res, failure.New(failure.Interrupted, "transcode", source, err)
		}

		switch st {
		case stateDetect:
			res.Decision, res.Codec = s.detect(ctx, log, source)
			if res.Decision == AlreadyTarget {
				st = stateCopy
			} else {
				st = statePrimary
			}

		case stateCopy:
			log.Info("Already %s, copying: %s", s.profile.Codec, source)
			if err := fsutil.CopyFile(source, res.Output); err != nil {
				return res, failure.New(failure.IOFailure, "copy source", res.Output, err)
			}
			st = stateDone

		case statePrimary:
			if s.cfg.Tools.HWEncoder == "" {
				log.Debug("No hardware encoder configured, using %s", s.profile.SWEncoder)
				st = stateFallback
				continue
			}
			cmd := ffmpeg.HardwareEncode(s.cfg, s.profile, source, res.Output)
			lastErr = s.encode(ctx, log, &res, Primary, cmd)
			switch {
			case lastErr == nil:
				st = stateValidate
			case ffmpeg.KindOf(lastErr) == failure.Interrupted:
				return res, failure.New(failure.Interrupted, "primary encode", source, lastErr)
			default:
				log.Warn("%s failed (%v), falling back to %s", cmd.Name, lastErr, s.profile.SWEncoder)
				st = stateFallback
			}

		case stateFallback:
			cmd := ffmpeg.SoftwareEncode(s.cfg, s.profile, source, res.Output)
			lastErr = s.encode(ctx, log, &res, Fallback, cmd)
			switch {
			case lastErr == nil:
				st = stateValidate
			case ffmpeg.KindOf(lastErr) == failure.Interrupted:
				return res, failure.New(failure.Interrupted, "fallback encode", source, lastErr)
			default:
				fe := failure.New(failure.EncodeFailed, "encode", source, wrapProcess(lastErr))
				fe.Detail = stderrOf(lastErr)
				return res, fe
			}

		case stateValidate:
			err := s.validate(ctx, log, res.Output)
			res.Attempts[len(res.Attempts)-1].Valid = err == nil
			if err != nil {
				return res, err
			}
			st = stateDone
		}
	}
	return res, nil
}

func (s *Stage) detect(ctx context.Context, log *logging.Logger, source string) (Decision, string) {
	codec, err := probe.Codec(ctx, s.runner, s.cfg, source)
	if err != nil {
		log.Warn("Codec probe failed for %s (%v), transcoding anyway", source, err)
		return NeedsTranscode, ""
	}
	log.Debug("Detected codec %q: %s", codec, source)
	if s.profile.Matches(codec) {
		return AlreadyTarget, codec
	}
	return NeedsTranscode, codec
}

func (s *Stage) encode(ctx context.Context, log *logging.Logger, res *Result, tier Tier, cmd ffmpeg.Command) error {
	log.Info("Encoding (%s, %s): %s", tier, cmd.Name, res.Output)
	log.Debug("%s", cmd)
	_, err := s.runner.Run(ctx, cmd)
	res.Attempts = append(res.Attempts, Attempt{Tier: tier, Encoder: cmd.Name, Err: err})
	if err != nil {
		for _, line := range ffmpeg.TailLines(stderrOf(err), 20) {
			log.Debug("  %s", line)
		}
	}
	return err
}

// validate requires at least one readable video packet. Audio is probed for
// the log only; a missing or unreadable audio stream is acceptable.
func (s *Stage) validate(ctx context.Context, log *logging.Logger, output string) error {
	video, err := probe.PacketCount(ctx, s.runner, s.cfg, output, ffmpeg.SelectVideo)
	if err != nil {
		if ffmpeg.KindOf(err) == failure.Interrupted {
			return failure.New(failure.Interrupted, "validate", output, err)
		}
		return failure.New(failure.NoVideoStream, "validate video stream", output, err)
	}
	if video == 0 {
		return failure.New(failure.NoVideoStream, "validate video stream", output, errors.New("zero video packets"))
	}

	audio, err := probe.PacketCount(ctx, s.runner, s.cfg, output, ffmpeg.SelectAudio)
	switch {
	case err != nil:
		log.Warn("Audio probe failed for %s: %v", output, err)
	case audio == 0:
		log.Warn("No audio packets in %s", output)
	default:
		log.Debug("Validated %s: %d video, %d audio packets", output, video, audio)
	}
	return nil
}

// wrapProcess tags a runner error with its failure kind so callers can test
// for ProcessSpawnFailure or ProcessExitFailure under EncodeFailed.
func wrapProcess(err error) error {
	return &failure.Error{Kind: ffmpeg.KindOf(err), Op: "run encoder", Err: err}
}

func stderrOf(err error) string {
	var exit *ffmpeg.ExitError
	if errors.As(err, &exit) {
		return exit.Stderr
	}
	return ""
}

// Summary renders the attempts for logs, e.g. "primary failed, fallback ok".
func (r Result) Summary() string {
	if r.Decision == AlreadyTarget {
		return "copied"
	}
	out := ""
	for i, a := range r.Attempts {
		if i > 0 {
			out += ", "
		}
		switch {
		case a.Err != nil:
			out += fmt.Sprintf("%s failed", a.Tier)
		case a.Valid:
			out += fmt.Sprintf("%s ok", a.Tier)
		default:
			out += fmt.Sprintf("%s invalid", a.Tier)
		}
	}
	return out
}
