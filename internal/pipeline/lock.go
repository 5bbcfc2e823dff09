package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created in the input root for the duration of a run.
const LockFileName = ".dashpack.lock"

// ErrLocked is returned when another run holds the input directory.
var ErrLocked = errors.New("another dashpack run is using this input directory")

// Lock is an exclusive advisory lock on an input directory.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the run lock for inputDir without blocking.
func AcquireLock(inputDir string) (*Lock, error) {
	fl := flock.New(filepath.Join(inputDir, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.fl.Path() }

// Release drops the lock. The lock file itself is left behind.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
