package pipeline

import (
	"time"

	"github.com/backmassage/dashpack/internal/failure"
	"github.com/backmassage/dashpack/internal/naming"
	"github.com/backmassage/dashpack/internal/transcode"
)

// Stage is the step a job is in, or the step at which it stopped.
type Stage int

const (
	StageQueued Stage = iota
	StageTranscode
	StagePackage
	StageNormalize
	StageRelocate
	StageDone
)

var stageNames = [...]string{"queued", "transcode", "package", "normalize", "relocate", "done"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Job is one source file under conversion. A job is owned by a single
// worker from the moment it is picked up until it reaches its outcome.
type Job struct {
	Label  int64 // diagnostic counter value, assigned when a worker starts it
	Source string
	Dirs   naming.JobDirs
	Stage  Stage

	Outcome Outcome
}

// Title is the job's output folder name.
func (j *Job) Title() string { return j.Dirs.Title() }

// Outcome is a job's terminal result. Exactly one of Manifest or Err is set.
type Outcome struct {
	Manifest  string // absolute manifest path on success
	Published string // relocated job root, empty when not relocated
	Err       error  // *failure.Error on failure

	Transcode transcode.Result
	Elapsed   time.Duration

	InputBytes  int64
	OutputBytes int64
}

// Succeeded reports whether the job finished with a manifest.
func (o Outcome) Succeeded() bool { return o.Err == nil && o.Manifest != "" }

// Reason is the short failure description, "" on success.
func (o Outcome) Reason() string { return failure.Reason(o.Err) }
