package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/five82/ladder/internal/util"
)

// JSONReporter outputs one NDJSON event per line. Every event carries the
// run ID once BatchStarted has been seen.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	runID              string
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
	}
}

func (r *JSONReporter) write(event map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event["timestamp"] = time.Now().Unix()
	if r.runID != "" {
		event["run_id"] = r.runID
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write(map[string]interface{}{
		"type":             "hardware",
		"hostname":         summary.Hostname,
		"os":               summary.OS,
		"cpu_model":        summary.CPUModel,
		"logical_cores":    summary.LogicalCores,
		"total_memory":     summary.TotalMemory,
		"available_memory": summary.AvailableMemory,
		"output_disk_free": summary.OutputDiskFree,
	})
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.mu.Lock()
	r.runID = info.RunID
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":          "batch_started",
		"total_folders": info.TotalFolders,
		"eligible":      info.Eligible,
		"folder_list":   info.FolderList,
		"input_dir":     info.InputDir,
		"output_dir":    info.OutputDir,
	})
}

func (r *JSONReporter) FolderSkipped(info SkipInfo) {
	r.write(map[string]interface{}{
		"type":   "folder_skipped",
		"folder": info.Folder,
		"reason": info.Reason,
	})
}

func (r *JSONReporter) JobStarted(info JobStartInfo) {
	r.write(map[string]interface{}{
		"type":   "job_started",
		"index":  info.Index,
		"total":  info.Total,
		"folder": info.Folder,
		"source": info.Source,
	})
}

func (r *JSONReporter) PhaseProgress(update PhaseProgress) {
	r.write(map[string]interface{}{
		"type":    "phase",
		"phase":   update.Phase,
		"message": update.Message,
	})
}

func (r *JSONReporter) EncodingStarted(name string) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type": "encoding_started",
		"name": name,
	})
}

// EncodingProgress emits at most one event per percent, or every five
// seconds when progress stalls.
func (r *JSONReporter) EncodingProgress(progress ProgressSnapshot) {
	const progressBucketSize = 1
	const minInterval = 5 * time.Second

	bucket := int(progress.Percent) / progressBucketSize
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || progress.Percent >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}

	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":        "encoding_progress",
		"name":        progress.Name,
		"percent":     progress.Percent,
		"speed":       progress.Speed,
		"fps":         progress.FPS,
		"eta_seconds": int64(progress.ETA.Seconds()),
		"bitrate":     progress.Bitrate,
	})
}

func (r *JSONReporter) RenditionComplete(summary RenditionSummary) {
	r.write(map[string]interface{}{
		"type":            "rendition_complete",
		"name":            summary.Name,
		"succeeded":       summary.Succeeded,
		"segments":        summary.Segments,
		"fallback_used":   summary.FallbackUsed,
		"elapsed_seconds": summary.Elapsed.Seconds(),
		"error":           summary.Error,
	})
}

func (r *JSONReporter) ValidationComplete(summary ValidationSummary) {
	steps := make([]map[string]interface{}, len(summary.Steps))
	for i, step := range summary.Steps {
		steps[i] = map[string]interface{}{
			"step":    step.Name,
			"passed":  step.Passed,
			"details": step.Details,
		}
	}

	r.write(map[string]interface{}{
		"type":              "validation_complete",
		"validation_passed": summary.Passed,
		"validation_steps":  steps,
	})
}

func (r *JSONReporter) JobComplete(summary JobSummary) {
	warnings := summary.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	r.write(map[string]interface{}{
		"type":              "job_complete",
		"folder":            summary.Folder,
		"status":            summary.Status,
		"reason":            summary.Reason,
		"warnings":          warnings,
		"source_bytes":      summary.SourceBytes,
		"output_bytes":      summary.OutputBytes,
		"elapsed_seconds":   summary.Elapsed.Seconds(),
		"output_path":       summary.OutputPath,
		"compression_ratio": util.CompressionRatio(summary.SourceBytes, summary.OutputBytes),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":    "warning",
		"message": message,
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
	})
}

func (r *JSONReporter) BatchComplete(summary BatchSummary) {
	jobs := make([]map[string]interface{}, len(summary.JobResults))
	for i, job := range summary.JobResults {
		jobs[i] = map[string]interface{}{
			"folder":          job.Folder,
			"status":          job.Status,
			"elapsed_seconds": job.Elapsed.Seconds(),
		}
	}

	r.write(map[string]interface{}{
		"type":                   "batch_complete",
		"successes":              summary.Successes,
		"failures":               summary.Failures,
		"skipped_no_mp4":         summary.SkippedNoneFound,
		"skipped_multiple_mp4":   summary.SkippedAmbiguous,
		"total_processed":        summary.Processed(),
		"total_source_bytes":     summary.TotalSourceBytes,
		"total_output_bytes":     summary.TotalOutputBytes,
		"total_source_gb":        util.BytesToGiB(summary.TotalSourceBytes),
		"total_output_gb":        util.BytesToGiB(summary.TotalOutputBytes),
		"compression_ratio":      summary.CompressionRatio,
		"total_duration_seconds": int64(summary.TotalDuration.Seconds()),
		"stopped":                summary.Stopped,
		"jobs":                   jobs,
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]interface{}{
		"type":    "verbose",
		"message": message,
	})
}
