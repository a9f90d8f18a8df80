// Package batch drives the pipeline over every source folder of a run.
package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/five82/ladder/internal/config"
	"github.com/five82/ladder/internal/discovery"
	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/logging"
	"github.com/five82/ladder/internal/metrics"
	"github.com/five82/ladder/internal/pipeline"
	"github.com/five82/ladder/internal/reporter"
	"github.com/five82/ladder/internal/util"
)

// JobRunner converts one folder. *pipeline.Pipeline implements it.
type JobRunner interface {
	Run(ctx context.Context, folder discovery.Folder) pipeline.JobResult
}

// Runner processes folders strictly one at a time.
type Runner struct {
	cfg     *config.Config
	jobs    JobRunner
	rep     reporter.Reporter
	log     *logging.Logger
	metrics *metrics.Recorder
	runID   string
}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter sets the progress reporter.
func WithReporter(rep reporter.Reporter) Option {
	return func(r *Runner) {
		if rep != nil {
			r.rep = rep
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics records job counters and writes cfg.MetricsFile at the end.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithRunID tags the run in events and statistics.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, jobs JobRunner, opts ...Option) *Runner {
	r := &Runner{
		cfg:  cfg,
		jobs: jobs,
		rep:  reporter.NullReporter{},
		log:  logging.Global(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run converts every eligible folder in discovery order. stop is checked
// before each job and never interrupts one. The returned statistics are
// always populated and a BatchComplete event is always emitted. The error
// is non-nil only when the batch could not start.
func (r *Runner) Run(ctx context.Context, stop *StopSignal) (stats *RunStatistics, err error) {
	if stop == nil {
		stop = NewStopSignal()
	}
	stats = NewRunStatistics(r.runID)
	defer r.finish(stats)

	if err := util.EnsureDirectory(r.cfg.OutputDir); err != nil {
		r.rep.Error(reporter.ReporterError{
			Title:      "Output Error",
			Message:    err.Error(),
			Context:    r.cfg.OutputDir,
			Suggestion: "Check that the output directory is writable",
		})
		return stats, lerrors.NewIOError("cannot create output directory "+r.cfg.OutputDir, err)
	}

	r.reportHardware(ctx)

	paths, err := discovery.FindSourceFolders(r.cfg.InputDir)
	if err != nil {
		if lerrors.IsNoFolders(err) {
			r.rep.Warning(fmt.Sprintf("no source folders in %s", r.cfg.InputDir))
		} else {
			r.rep.Error(reporter.ReporterError{
				Title:   "Input Error",
				Message: err.Error(),
				Context: r.cfg.InputDir,
			})
		}
		return stats, err
	}

	folders := discovery.InspectAll(paths)
	var eligible []discovery.Folder
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.Name)
		if f.Status == discovery.Eligible {
			eligible = append(eligible, f)
		}
	}

	r.rep.BatchStarted(reporter.BatchStartInfo{
		RunID:        r.runID,
		TotalFolders: len(folders),
		Eligible:     len(eligible),
		FolderList:   names,
		InputDir:     r.cfg.InputDir,
		OutputDir:    r.cfg.OutputDir,
	})

	for _, f := range folders {
		if f.Status != discovery.Eligible {
			r.skip(stats, f)
		}
	}

	for i, f := range eligible {
		if stop.Requested() || ctx.Err() != nil {
			stats.Stopped = true
			stats.NotStarted = len(eligible) - i
			r.rep.Warning(fmt.Sprintf("stop requested, %d folders not started", stats.NotStarted))
			r.log.Warn("batch stopped early", "not_started", stats.NotStarted)
			break
		}

		r.rep.JobStarted(reporter.JobStartInfo{
			Index:  i + 1,
			Total:  len(eligible),
			Folder: f.Name,
			Source: f.Source,
		})

		res := r.runJob(ctx, f)
		stats.RecordJob(res)
		if r.metrics != nil {
			r.metrics.JobFinished(res.Outcome.Kind.String(), res.Elapsed, res.SourceBytes, res.OutputBytes)
		}
		r.rep.JobComplete(jobSummary(res))
	}

	return stats, nil
}

// runJob runs one job, turning a panic into a recorded failure.
func (r *Runner) runJob(ctx context.Context, f discovery.Folder) (res pipeline.JobResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("job panicked", "folder", f.Name, "panic", p, "stack", string(debug.Stack()))
			res = pipeline.JobResult{
				Folder:  f.Name,
				Outcome: pipeline.Failure("internal error", fmt.Errorf("panic: %v", p)),
				Elapsed: time.Since(start),
			}
		}
	}()
	return r.jobs.Run(ctx, f)
}

func (r *Runner) skip(stats *RunStatistics, f discovery.Folder) {
	stats.RecordSkip(f.Status)
	r.rep.FolderSkipped(reporter.SkipInfo{Folder: f.Name, Reason: f.Status.String()})
	if r.metrics == nil {
		return
	}
	switch f.Status {
	case discovery.SkipNoneFound:
		r.metrics.FolderSkipped(metrics.SkipNoneFound)
	case discovery.SkipAmbiguous:
		r.metrics.FolderSkipped(metrics.SkipAmbiguous)
	}
}

func (r *Runner) reportHardware(ctx context.Context) {
	info := util.GetSystemInfo(ctx, r.cfg.OutputDir)
	r.rep.Hardware(reporter.HardwareSummary{
		Hostname:        info.Hostname,
		OS:              info.OS,
		CPUModel:        info.CPUModel,
		LogicalCores:    info.LogicalCores,
		TotalMemory:     info.TotalMemory,
		AvailableMemory: info.AvailableMemory,
		OutputDiskFree:  info.DiskFree,
	})
}

// finish emits the summary and exports metrics.
func (r *Runner) finish(stats *RunStatistics) {
	stats.Finished = time.Now()
	r.rep.BatchComplete(stats.Summary())

	if r.metrics != nil && r.cfg.MetricsFile != "" {
		if err := r.metrics.WriteTextfile(r.cfg.MetricsFile, stats.Finished); err != nil {
			r.log.Warn("metrics export failed", "path", r.cfg.MetricsFile, "error", err)
		}
	}
}

func jobSummary(res pipeline.JobResult) reporter.JobSummary {
	return reporter.JobSummary{
		Folder:      res.Folder,
		Status:      statusOf(res.Outcome),
		Reason:      failureReason(res.Outcome),
		Warnings:    res.Outcome.Warnings,
		SourceBytes: res.SourceBytes,
		OutputBytes: res.OutputBytes,
		Elapsed:     res.Elapsed,
		OutputPath:  res.OutputPath,
	}
}

func failureReason(o pipeline.JobOutcome) string {
	if o.Kind != pipeline.KindFailure {
		return ""
	}
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Reason, o.Err)
	}
	return o.Reason
}
