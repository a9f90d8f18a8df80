package reporter

import (
	"github.com/five82/ladder/internal/logging"
)

// LogReporter mirrors reporter events into the run log so the log file
// tells the same story as the terminal.
type LogReporter struct {
	NullReporter
	log *logging.Logger
}

// NewLogReporter creates a LogReporter. A nil logger uses the global one.
func NewLogReporter(log *logging.Logger) *LogReporter {
	if log == nil {
		log = logging.Global()
	}
	return &LogReporter{log: log}
}

func (r *LogReporter) Hardware(s HardwareSummary) {
	r.log.Info("host", "hostname", s.Hostname, "os", s.OS, "cpu", s.CPUModel, "cores", s.LogicalCores,
		"memory_total", s.TotalMemory, "memory_available", s.AvailableMemory, "disk_free", s.OutputDiskFree)
}

func (r *LogReporter) BatchStarted(info BatchStartInfo) {
	r.log.Info("batch started", "folders", info.TotalFolders, "eligible", info.Eligible,
		"input", info.InputDir, "output", info.OutputDir)
}

func (r *LogReporter) FolderSkipped(info SkipInfo) {
	r.log.Warn("folder skipped", "folder", info.Folder, "reason", info.Reason)
}

func (r *LogReporter) JobStarted(info JobStartInfo) {
	r.log.Info("job started", "index", info.Index, "total", info.Total, "folder", info.Folder, "source", info.Source)
}

func (r *LogReporter) PhaseProgress(update PhaseProgress) {
	r.log.Debug("phase", "phase", update.Phase, "message", update.Message)
}

func (r *LogReporter) RenditionComplete(s RenditionSummary) {
	if s.Succeeded {
		r.log.Info("rendition complete", "name", s.Name, "segments", s.Segments,
			"fallback", s.FallbackUsed, "elapsed", s.Elapsed)
		return
	}
	r.log.Warn("rendition failed", "name", s.Name, "error", s.Error, "elapsed", s.Elapsed)
}

func (r *LogReporter) ValidationComplete(s ValidationSummary) {
	for _, step := range s.Steps {
		r.log.Debug("validation step", "step", step.Name, "passed", step.Passed, "details", step.Details)
	}
	r.log.Info("validation complete", "passed", s.Passed)
}

func (r *LogReporter) JobComplete(s JobSummary) {
	args := []any{"folder", s.Folder, "status", s.Status, "source_bytes", s.SourceBytes,
		"output_bytes", s.OutputBytes, "elapsed", s.Elapsed}
	switch s.Status {
	case StatusFailure:
		r.log.Error("job failed", append(args, "reason", s.Reason)...)
	case StatusSuccessWithWarnings:
		r.log.Warn("job complete with warnings", append(args, "warnings", s.Warnings)...)
	default:
		r.log.Info("job complete", args...)
	}
}

func (r *LogReporter) Warning(message string) {
	r.log.Warn(message)
}

func (r *LogReporter) Error(err ReporterError) {
	r.log.Error(err.Title, "message", err.Message, "context", err.Context)
}

func (r *LogReporter) BatchComplete(s BatchSummary) {
	r.log.Info("batch complete",
		"successes", s.Successes,
		"failures", s.Failures,
		"skipped_no_mp4", s.SkippedNoneFound,
		"skipped_multiple_mp4", s.SkippedAmbiguous,
		"source_bytes", s.TotalSourceBytes,
		"output_bytes", s.TotalOutputBytes,
		"compression_ratio", s.CompressionRatio,
		"elapsed", s.TotalDuration,
		"stopped", s.Stopped,
	)
}

func (r *LogReporter) Verbose(message string) {
	r.log.Debug(message)
}
