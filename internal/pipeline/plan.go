package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/ffmpeg"
	"github.com/backmassage/dashpack/internal/logging"
	"github.com/backmassage/dashpack/internal/naming"
	"github.com/backmassage/dashpack/internal/planner"
	"github.com/backmassage/dashpack/internal/probe"
	"github.com/backmassage/dashpack/internal/term"
)

// PlanRow describes what a run would do with one source file.
type PlanRow struct {
	Source string
	Title  string
	Codec  string // "" when the probe failed or found no video
	Action string // "copy" or "transcode"
	Bytes  int64
}

// Plan probes every file's codec and reports the action a run would take,
// without writing anything. The probe failure rule matches the transcode
// stage: an unknown codec means transcode.
func Plan(ctx context.Context, cfg *config.Config, log *logging.Logger, runner ffmpeg.Runner, files []string) ([]PlanRow, error) {
	prof, err := planner.ProfileFor(cfg.TargetCodec)
	if err != nil {
		return nil, err
	}
	layout := naming.NewLayout(cfg.TargetCodec)
	isTTY := term.IsTerminal(os.Stdout)

	rows := make([]PlanRow, 0, len(files))
	for i, path := range files {
		if ctx.Err() != nil {
			clearProgress(isTTY, os.Stdout)
			log.Warn("Interrupted")
			return rows, ctx.Err()
		}
		printProgress(isTTY, os.Stdout, i+1, len(files), filepath.Base(path))

		row := PlanRow{Source: path, Title: layout.For(path).Title(), Action: "transcode"}
		if info, err := os.Stat(path); err == nil {
			row.Bytes = info.Size()
		}
		codec, err := probe.Codec(ctx, runner, cfg, path)
		if err != nil {
			clearProgress(isTTY, os.Stdout)
			log.Warn("Codec probe failed: %s", filepath.Base(path))
		}
		row.Codec = codec
		if prof.Matches(codec) {
			row.Action = "copy"
		}
		rows = append(rows, row)
	}
	clearProgress(isTTY, os.Stdout)
	return rows, nil
}

// printProgress shows a live probe counter. On a TTY it writes an
// inline \r-overwritten line; otherwise it is a no-op.
func printProgress(isTTY bool, w io.Writer, current, total int, name string) {
	if !isTTY {
		return
	}
	status := fmt.Sprintf("  Probing [%d/%d] %d%% ", current, total, current*100/total)

	maxName := 40
	if len(name) > maxName {
		name = name[:maxName-1] + "…"
	}
	status += name

	// Pad to 80 chars to overwrite previous longer lines, then \r.
	if len(status) < 80 {
		status += strings.Repeat(" ", 80-len(status))
	}
	fmt.Fprintf(w, "\r%s", status)
}

// clearProgress erases the inline progress line on a TTY.
func clearProgress(isTTY bool, w io.Writer) {
	if isTTY {
		fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", 80))
	}
}
