package ffmpeg

import (
	"context"
	"errors"
	"strings"

	"github.com/backmassage/dashpack/internal/failure"
)

// KindOf maps a Runner error onto the failure taxonomy. Cancellation of the
// run context wins over the process error it caused.
func KindOf(err error) failure.Kind {
	var spawn *SpawnError
	var exit *ExitError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return failure.Interrupted
	case errors.As(err, &spawn):
		return failure.ProcessSpawnFailure
	case errors.As(err, &exit):
		return failure.ProcessExitFailure
	default:
		return failure.ProcessExitFailure
	}
}

// TailLines returns at most the last n non-empty lines of stderr.
func TailLines(stderr string, n int) []string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" || n <= 0 {
		return nil
	}
	lines := strings.Split(stderr, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimRight(l, "\r "); l != "" {
			out = append(out, l)
		}
	}
	return out
}
