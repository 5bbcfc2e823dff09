// Package ffmpeg builds and executes the external tool commands the pipeline
// depends on: ffprobe queries, hardware and software encodes, and the DASH
// segmenter.
//
// All process execution goes through the [Runner] interface so stages can be
// exercised with a scripted runner instead of real binaries.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Output holds what a process wrote. It is populated even when Run returns an
// error, so callers can log the captured stderr.
type Output struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// Runner executes a command to completion.
//
// Run returns a *SpawnError when the binary could not be started and an
// *ExitError when it ran but did not exit cleanly.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// SpawnError reports a binary that could not be launched (missing, not
// executable, ...).
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports a process that ran and exited non-zero (or was killed).
type ExitError struct {
	Command string
	Code    int
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("%s terminated: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// waitDelay bounds how long Run waits for output pipes after the process
// has been killed, in case a grandchild still holds them open.
const waitDelay = 5 * time.Second

// ExecRunner runs commands with os/exec. A zero Timeout means no limit, in
// which case a hung process blocks its caller until ctx is cancelled.
type ExecRunner struct {
	Timeout time.Duration

	// Tee mirrors stderr to os.Stderr in real time (verbose mode).
	Tee bool
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.WaitDelay = waitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	c.Stdout = &stdoutBuf
	if r.Tee {
		c.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		c.Stderr = &stderrBuf
	}

	err := c.Run()
	out := Output{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.String(),
	}
	if err == nil {
		return out, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		out.ExitCode = ee.ExitCode()
		cause := error(ee)
		if ctx.Err() != nil {
			cause = ctx.Err()
		}
		return out, &ExitError{Command: cmd.Name, Code: out.ExitCode, Stderr: out.Stderr, Err: cause}
	}

	out.ExitCode = -1
	return out, &SpawnError{Command: cmd.Name, Err: err}
}
