package dash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/failure"
	"github.com/backmassage/dashpack/internal/ffmpeg"
	"github.com/backmassage/dashpack/internal/logging"
	"github.com/backmassage/dashpack/internal/naming"
)

// Packager segments files with ffmpeg. It holds no per-job state.
type Packager struct {
	cfg    *config.Config
	runner ffmpeg.Runner
}

// NewPackager returns a Packager using cfg's segment duration and tools.
func NewPackager(cfg *config.Config, runner ffmpeg.Runner) *Packager {
	return &Packager{cfg: cfg, runner: runner}
}

// Package stream-copies input into dirs.Segments and writes the manifest at
// the job root. It returns the manifest's absolute path.
func (p *Packager) Package(ctx context.Context, log *logging.Logger, input string, dirs naming.JobDirs) (string, error) {
	if err := os.MkdirAll(dirs.Segments, 0o755); err != nil {
		return "", failure.New(failure.IOFailure, "create segment directory", dirs.Segments, err)
	}
	manifest, err := filepath.Abs(dirs.Manifest())
	if err != nil {
		return "", failure.New(failure.IOFailure, "resolve manifest path", dirs.Manifest(), err)
	}

	cmd := ffmpeg.Package(p.cfg, input, naming.SegmentRoot, manifest)
	log.Info("Packaging (%ds segments): %s", p.cfg.SegmentDuration, manifest)
	log.Debug("%s", cmd)

	out, err := p.runner.Run(ctx, cmd)
	if err != nil {
		if ffmpeg.KindOf(err) == failure.Interrupted {
			return "", failure.New(failure.Interrupted, "package", input, err)
		}
		fe := failure.New(failure.PackagingFailed, "package", input,
			&failure.Error{Kind: ffmpeg.KindOf(err), Op: "run segmenter", Err: err})
		fe.Detail = out.Stderr
		for _, line := range ffmpeg.TailLines(out.Stderr, 20) {
			log.Error("  %s", line)
		}
		return "", fe
	}

	if _, err := os.Stat(manifest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("segmenter exited cleanly but wrote no manifest")
		}
		fe := failure.New(failure.PackagingFailed, "package", input, err)
		fe.Detail = out.Stderr
		return "", fe
	}
	return manifest, nil
}
