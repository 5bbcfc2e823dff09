// Package publish moves finished job trees out of the input tree into a
// separate publish root.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/backmassage/dashpack/internal/failure"
	"github.com/backmassage/dashpack/internal/fsutil"
)

// Mode selects how a job tree reaches the publish root.
type Mode int

const (
	Copy Mode = iota
	Move
)

func (m Mode) String() string {
	if m == Move {
		return "move"
	}
	return "copy"
}

// ModeFor maps the --copy flag onto a Mode.
func ModeFor(copyOnPublish bool) Mode {
	if copyOnPublish {
		return Copy
	}
	return Move
}

// Relocate places jobRoot under destRoot, keeping its directory name, and
// returns the new path. Copy leaves the original in place; Move removes it.
//
// Move renames when it can. Across filesystems, or when the target already
// exists from an earlier run, it copies and then removes the original. An
// interrupted copy leaves a partial tree at the destination.
func Relocate(jobRoot, destRoot string, mode Mode) (string, error) {
	target := filepath.Join(destRoot, filepath.Base(jobRoot))
	if filepath.Clean(target) == filepath.Clean(jobRoot) {
		return target, nil
	}
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return "", failure.New(failure.IOFailure, "create publish directory", destRoot, err)
	}

	if mode == Copy {
		if err := fsutil.CopyTree(jobRoot, target); err != nil {
			return "", failure.New(failure.IOFailure, "copy job tree", target, err)
		}
		return target, nil
	}

	if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
		err := os.Rename(jobRoot, target)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, syscall.EXDEV) {
			return "", failure.New(failure.IOFailure, "move job tree", target, err)
		}
	}

	if err := fsutil.CopyTree(jobRoot, target); err != nil {
		return "", failure.New(failure.IOFailure, "move job tree", target, err)
	}
	if err := os.RemoveAll(jobRoot); err != nil {
		return "", failure.New(failure.IOFailure, "remove moved job tree", jobRoot, err)
	}
	return target, nil
}
