package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/dashpack/internal/config"
	"github.com/backmassage/dashpack/internal/dash"
	"github.com/backmassage/dashpack/internal/failure"
	"github.com/backmassage/dashpack/internal/ffmpeg"
	"github.com/backmassage/dashpack/internal/fsutil"
	"github.com/backmassage/dashpack/internal/logging"
	"github.com/backmassage/dashpack/internal/naming"
	"github.com/backmassage/dashpack/internal/publish"
	"github.com/backmassage/dashpack/internal/transcode"
)

// RunContext is the state shared by the workers of one run: a job label
// counter and the outcome collection. Nothing in it affects scheduling.
type RunContext struct {
	ID      string
	Started time.Time

	counter atomic.Int64

	mu   sync.Mutex
	jobs []*Job
	seen map[*Job]struct{}
}

// NewRunContext returns an empty RunContext with a fresh run ID.
func NewRunContext() *RunContext {
	return &RunContext{
		ID:      uuid.NewString(),
		Started: time.Now(),
		seen:    make(map[*Job]struct{}),
	}
}

// nextLabel returns the next diagnostic job label, starting at 1.
func (rc *RunContext) nextLabel() int64 { return rc.counter.Add(1) }

// record appends a finished job. A job is recorded at most once.
func (rc *RunContext) record(j *Job) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, dup := rc.seen[j]; dup {
		return
	}
	rc.seen[j] = struct{}{}
	rc.jobs = append(rc.jobs, j)
}

// Jobs returns the recorded jobs in completion order.
func (rc *RunContext) Jobs() []*Job {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]*Job(nil), rc.jobs...)
}

// Report is the result of a run.
type Report struct {
	RunID   string
	Workers int
	Jobs    []*Job // completion order
	Stats   RunStats
	Elapsed time.Duration
}

// Succeeded returns the jobs that produced a manifest.
func (r *Report) Succeeded() []*Job {
	var out []*Job
	for _, j := range r.Jobs {
		if j.Outcome.Succeeded() {
			out = append(out, j)
		}
	}
	return out
}

// Failed returns the jobs that did not.
func (r *Report) Failed() []*Job {
	var out []*Job
	for _, j := range r.Jobs {
		if !j.Outcome.Succeeded() {
			out = append(out, j)
		}
	}
	return out
}

// Titles returns the titles of the successful jobs.
func (r *Report) Titles() []string {
	var out []string
	for _, j := range r.Succeeded() {
		out = append(out, j.Title())
	}
	return out
}

// worker carries jobs through the stages. Stages hold no per-job state, so
// one worker value is shared by all pool goroutines.
type worker struct {
	cfg       *config.Config
	log       *logging.Logger
	rc        *RunContext
	transcode *transcode.Stage
	packager  *dash.Packager
}

// Run processes files with up to cfg.Workers jobs in flight and returns once
// every job has reached its outcome. Cancelling ctx kills running processes
// and fails the remaining jobs as interrupted. The error is non-nil only when
// the stages cannot be built from cfg.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, runner ffmpeg.Runner, files []string) (*Report, error) {
	ts, err := transcode.New(cfg, runner)
	if err != nil {
		return nil, err
	}
	rc := NewRunContext()
	w := &worker{
		cfg:       cfg,
		log:       log,
		rc:        rc,
		transcode: ts,
		packager:  dash.NewPackager(cfg, runner),
	}

	layout := naming.NewLayout(cfg.TargetCodec)
	jobs := make([]*Job, 0, len(files))
	for _, f := range files {
		jobs = append(jobs, &Job{Source: f, Dirs: layout.For(f)})
	}

	workers := config.ResolveWorkers(cfg.Workers)
	log.Debug("Run %s: %d jobs, %d workers", rc.ID, len(jobs), workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			w.process(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		RunID:   rc.ID,
		Workers: workers,
		Jobs:    rc.Jobs(),
		Elapsed: time.Since(rc.Started),
	}
	for _, j := range report.Jobs {
		report.Stats.add(j)
	}
	return report, nil
}

// process drives one job to its outcome and records it.
func (w *worker) process(ctx context.Context, job *Job) {
	start := time.Now()
	job.Label = w.rc.nextLabel()
	log := w.log.With(fmt.Sprintf("[job %d] ", job.Label))
	defer func() {
		job.Outcome.Elapsed = time.Since(start)
		w.rc.record(job)
	}()

	if info, err := os.Stat(job.Source); err == nil {
		job.Outcome.InputBytes = info.Size()
	}

	if err := w.run(ctx, log, job); err != nil {
		job.Outcome.Err = err
		job.Outcome.Manifest = ""
		if failure.KindOf(err) == failure.Interrupted {
			log.Warn("Interrupted during %s: %s", job.Stage, filepath.Base(job.Source))
			return
		}
		log.Error("Failed during %s: %v", job.Stage, err)
		return
	}
	job.Stage = StageDone
	log.Success("Done in %s: %s (%s)", time.Since(start).Round(time.Second), job.Title(), job.Outcome.Transcode.Summary())
}

func (w *worker) run(ctx context.Context, log *logging.Logger, job *Job) error {
	if err := ctx.Err(); err != nil {
		return failure.New(failure.Interrupted, "start job", job.Source, err)
	}
	log.Info("Processing %s", job.Source)

	job.Stage = StageTranscode
	if err := job.Dirs.Ensure(); err != nil {
		return err
	}
	tr, err := w.transcode.Process(ctx, log, job.Source, job.Dirs)
	job.Outcome.Transcode = tr
	if err != nil {
		return err
	}

	job.Stage = StagePackage
	manifest, err := w.packager.Package(ctx, log, tr.Output, job.Dirs)
	if err != nil {
		return err
	}

	job.Stage = StageNormalize
	changed, err := dash.NormalizeFile(manifest, naming.SegmentRoot)
	if err != nil {
		return err
	}
	if changed {
		log.Debug("Normalized segment paths in %s", manifest)
	}
	job.Outcome.Manifest = manifest
	job.Outcome.OutputBytes = outputSize(job.Dirs)

	if w.cfg.PublishDir == "" {
		return nil
	}
	job.Stage = StageRelocate
	mode := publish.ModeFor(w.cfg.CopyOnPublish)
	dest, err := publish.Relocate(job.Dirs.Root, w.cfg.PublishDir, mode)
	if err != nil {
		log.Warn("Relocation (%s) failed, output stays at %s: %v", mode, job.Dirs.Root, err)
		return nil
	}
	job.Outcome.Published = dest
	log.Info("Published (%s) to %s", mode, dest)
	return nil
}

// outputSize is the size of what gets served: the manifest plus segments.
func outputSize(dirs naming.JobDirs) int64 {
	total, _ := fsutil.DirSize(dirs.Segments)
	if info, err := os.Stat(dirs.Manifest()); err == nil {
		total += info.Size()
	}
	return total
}
