// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains host information shown once per run.
type HardwareSummary struct {
	Hostname        string
	OS              string
	CPUModel        string
	LogicalCores    int
	TotalMemory     uint64
	AvailableMemory uint64
	// OutputDiskFree is the free space where packages are written.
	OutputDiskFree uint64
}

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	RunID        string
	TotalFolders int
	Eligible     int
	FolderList   []string
	InputDir     string
	OutputDir    string
}

// SkipInfo describes a source folder that will not be converted.
type SkipInfo struct {
	Folder string
	Reason string
}

// JobStartInfo describes the job about to run.
type JobStartInfo struct {
	Index  int
	Total  int
	Folder string
	Source string
}

// PhaseProgress announces a pipeline phase within the current job.
type PhaseProgress struct {
	Phase   string
	Message string
}

// ProgressSnapshot contains engine progress for the running encode.
type ProgressSnapshot struct {
	Name    string
	Percent float32
	Speed   float32
	FPS     float32
	ETA     time.Duration
	Bitrate string
}

// RenditionSummary is the result of one rendition or the audio track.
type RenditionSummary struct {
	Name         string
	Succeeded    bool
	Segments     int
	FallbackUsed bool
	Elapsed      time.Duration
	Error        string
}

// ValidationSummary contains validation results.
type ValidationSummary struct {
	Passed bool
	Steps  []ValidationStep
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// Job status values used in JobSummary.Status.
const (
	StatusSuccess             = "success"
	StatusSuccessWithWarnings = "success_with_warnings"
	StatusFailure             = "failure"
)

// JobSummary contains the result of one job.
type JobSummary struct {
	Folder      string
	Status      string
	Reason      string
	Warnings    []string
	SourceBytes uint64
	OutputBytes uint64
	Elapsed     time.Duration
	OutputPath  string
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// JobResult is one row of the batch summary.
type JobResult struct {
	Folder  string
	Status  string
	Elapsed time.Duration
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	RunID            string
	Successes        int
	Failures         int
	SkippedNoneFound int
	SkippedAmbiguous int
	TotalSourceBytes uint64
	TotalOutputBytes uint64
	CompressionRatio float64
	TotalDuration    time.Duration
	// Stopped is set when a stop request ended the batch early.
	Stopped    bool
	JobResults []JobResult
}

// Skipped returns the number of folders skipped for any reason.
func (s BatchSummary) Skipped() int {
	return s.SkippedNoneFound + s.SkippedAmbiguous
}

// Processed returns every folder accounted for.
func (s BatchSummary) Processed() int {
	return s.Successes + s.Failures + s.Skipped()
}
