package batch

import (
	"time"

	"github.com/five82/ladder/internal/discovery"
	"github.com/five82/ladder/internal/pipeline"
	"github.com/five82/ladder/internal/reporter"
	"github.com/five82/ladder/internal/util"
)

// JobRecord is one finished job.
type JobRecord struct {
	Folder      string
	Outcome     pipeline.JobOutcome
	SourceBytes uint64
	OutputBytes uint64
	Elapsed     time.Duration
}

// RunStatistics accumulates one batch run. Only the runner goroutine
// mutates it.
type RunStatistics struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	// SourceBytes counts every attempted job's source folder.
	SourceBytes uint64
	// OutputBytes counts successful jobs only.
	OutputBytes uint64

	Successes        int
	Failures         int
	SkippedNoneFound int
	SkippedAmbiguous int
	// NotStarted counts eligible folders left untouched by a stop request.
	NotStarted int
	Stopped    bool

	Jobs []JobRecord
}

// NewRunStatistics starts an empty run.
func NewRunStatistics(runID string) *RunStatistics {
	return &RunStatistics{RunID: runID, Started: time.Now()}
}

// RecordSkip counts a folder that will not be converted.
func (s *RunStatistics) RecordSkip(status discovery.Status) {
	switch status {
	case discovery.SkipNoneFound:
		s.SkippedNoneFound++
	case discovery.SkipAmbiguous:
		s.SkippedAmbiguous++
	}
}

// RecordJob counts a finished job.
func (s *RunStatistics) RecordJob(res pipeline.JobResult) {
	s.SourceBytes += res.SourceBytes
	if res.Outcome.Succeeded() {
		s.Successes++
		s.OutputBytes += res.OutputBytes
	} else {
		s.Failures++
	}
	s.Jobs = append(s.Jobs, JobRecord{
		Folder:      res.Folder,
		Outcome:     res.Outcome,
		SourceBytes: res.SourceBytes,
		OutputBytes: res.OutputBytes,
		Elapsed:     res.Elapsed,
	})
}

// Skipped returns folders skipped for any reason.
func (s *RunStatistics) Skipped() int {
	return s.SkippedNoneFound + s.SkippedAmbiguous
}

// Processed returns every folder accounted for. On a completed run it
// equals the number of discovered folders.
func (s *RunStatistics) Processed() int {
	return s.Successes + s.Failures + s.Skipped()
}

// CompressionRatio returns output bytes over source bytes.
func (s *RunStatistics) CompressionRatio() float64 {
	return util.CompressionRatio(s.SourceBytes, s.OutputBytes)
}

// Duration returns the run's wall time so far.
func (s *RunStatistics) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}

// Summary converts the statistics for the reporter.
func (s *RunStatistics) Summary() reporter.BatchSummary {
	summary := reporter.BatchSummary{
		RunID:            s.RunID,
		Successes:        s.Successes,
		Failures:         s.Failures,
		SkippedNoneFound: s.SkippedNoneFound,
		SkippedAmbiguous: s.SkippedAmbiguous,
		TotalSourceBytes: s.SourceBytes,
		TotalOutputBytes: s.OutputBytes,
		CompressionRatio: s.CompressionRatio(),
		TotalDuration:    s.Duration(),
		Stopped:          s.Stopped,
	}
	for _, j := range s.Jobs {
		summary.JobResults = append(summary.JobResults, reporter.JobResult{
			Folder:  j.Folder,
			Status:  statusOf(j.Outcome),
			Elapsed: j.Elapsed,
		})
	}
	return summary
}

func statusOf(o pipeline.JobOutcome) string {
	switch o.Kind {
	case pipeline.KindSuccess:
		return reporter.StatusSuccess
	case pipeline.KindSuccessWithWarnings:
		return reporter.StatusSuccessWithWarnings
	default:
		return reporter.StatusFailure
	}
}
