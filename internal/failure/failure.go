// Package failure defines the error taxonomy shared by every pipeline stage.
//
// Stages return plain Go errors; when a stage fails the error is always a
// *Error carrying a Kind, so callers can branch with errors.Is against the
// Kind constants or extract the structured value with errors.As.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a job (or a configuration step) failed.
type Kind string

const (
	IOFailure           Kind = "io"            // Directory creation, copy, move, file read/write.
	ProcessSpawnFailure Kind = "process-spawn" // Binary not found or failed to launch.
	ProcessExitFailure  Kind = "process-exit"  // Binary ran and returned non-zero.
	NoVideoStream       Kind = "no-video"      // Produced file has no readable video packets.
	EncodeFailed        Kind = "encode"        // Primary and fallback encoders both failed.
	PackagingFailed     Kind = "packaging"     // Segmenter failed.
	ConfigParseFailure  Kind = "config"        // Destination list literal malformed.
	Interrupted         Kind = "interrupted"   // Run cancelled before the job finished.
)

// Error implements error so a bare Kind can be used as an errors.Is target.
func (k Kind) Error() string { return string(k) }

// Error is the structured failure returned by stages.
type Error struct {
	Kind   Kind
	Op     string // Short description of the step, e.g. "create encode dir".
	Path   string // File or directory involved, when there is one.
	Detail string // Captured diagnostic text (e.g. stderr tail).
	Err    error  // Underlying cause.
}

// New builds an *Error. err may be nil.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind target, so errors.Is(err, failure.NoVideoStream) works.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Reason renders a short human-readable reason for summaries: the kind plus
// the operation, without the wrapped cause.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if !errors.As(err, &fe) {
		return err.Error()
	}
	if fe.Op == "" {
		return string(fe.Kind)
	}
	return string(fe.Kind) + ": " + fe.Op
}
