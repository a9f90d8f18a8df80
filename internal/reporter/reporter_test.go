package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/five82/ladder/internal/logging"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestJSONReporterEvents(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.Hardware(HardwareSummary{Hostname: "encoder01"})
	r.BatchStarted(BatchStartInfo{RunID: "run-1", TotalFolders: 3, Eligible: 2})
	r.FolderSkipped(SkipInfo{Folder: "empty", Reason: "no mp4 found"})
	r.JobComplete(JobSummary{Folder: "movie", Status: StatusSuccess, SourceBytes: 200, OutputBytes: 50})
	r.BatchComplete(BatchSummary{Successes: 1, SkippedNoneFound: 1, CompressionRatio: 0.25})

	events := decodeEvents(t, &buf)
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}

	wantTypes := []string{"hardware", "batch_started", "folder_skipped", "job_complete", "batch_complete"}
	for i, want := range wantTypes {
		if events[i]["type"] != want {
			t.Errorf("event %d type = %v, want %s", i, events[i]["type"], want)
		}
		if _, ok := events[i]["timestamp"]; !ok {
			t.Errorf("event %d has no timestamp", i)
		}
	}

	if _, ok := events[0]["run_id"]; ok {
		t.Error("run_id must not appear before batch start")
	}
	for _, ev := range events[1:] {
		if ev["run_id"] != "run-1" {
			t.Errorf("run_id = %v", ev["run_id"])
		}
	}

	if events[3]["compression_ratio"] != 0.25 {
		t.Errorf("job compression_ratio = %v", events[3]["compression_ratio"])
	}
	if warnings, ok := events[3]["warnings"].([]interface{}); !ok || len(warnings) != 0 {
		t.Errorf("warnings = %v, want empty list", events[3]["warnings"])
	}
	if events[4]["total_processed"] != float64(2) {
		t.Errorf("total_processed = %v", events[4]["total_processed"])
	}
}

func TestJSONReporterThrottlesProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.EncodingStarted("h264_720p")
	for _, p := range []float32{0.1, 0.2, 0.3, 1.5, 1.7, 2.2} {
		r.EncodingProgress(ProgressSnapshot{Name: "h264_720p", Percent: p, ETA: time.Minute})
	}

	events := decodeEvents(t, &buf)
	// encoding_started, then buckets 0, 1 and 2.
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0]["type"] != "encoding_started" || events[0]["name"] != "h264_720p" {
		t.Errorf("first event = %v", events[0])
	}
}

type countingReporter struct {
	NullReporter
	warnings int
	jobs     int
}

func (c *countingReporter) Warning(string)         { c.warnings++ }
func (c *countingReporter) JobComplete(JobSummary) { c.jobs++ }

func TestCompositeReporterFansOut(t *testing.T) {
	a, b := &countingReporter{}, &countingReporter{}
	c := NewCompositeReporter(a, b, NullReporter{})

	c.Warning("disk nearly full")
	c.JobComplete(JobSummary{})
	c.JobComplete(JobSummary{})

	for i, r := range []*countingReporter{a, b} {
		if r.warnings != 1 || r.jobs != 2 {
			t.Errorf("reporter %d got warnings=%d jobs=%d", i, r.warnings, r.jobs)
		}
	}
}

func TestTerminalReporterSummary(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewTerminalReporterWithWriters(&out, &errOut, true)

	r.JobStarted(JobStartInfo{Index: 1, Total: 2, Folder: "movie", Source: "/in/movie/video/movie.mp4"})
	r.PhaseProgress(PhaseProgress{Phase: "encode", Message: "h264_720p"})
	r.RenditionComplete(RenditionSummary{Name: "h264_720p", Succeeded: true, Segments: 12})
	r.RenditionComplete(RenditionSummary{Name: "vp9_720p", Error: "exit status 1"})
	r.JobComplete(JobSummary{Folder: "movie", Status: StatusSuccessWithWarnings, Warnings: []string{"vp9_720p failed"}})
	r.Error(ReporterError{Title: "Job failed", Message: "validation"})
	r.BatchComplete(BatchSummary{
		Successes:        1,
		Failures:         1,
		SkippedAmbiguous: 1,
		TotalSourceBytes: 2 << 30,
		TotalOutputBytes: 1 << 30,
		CompressionRatio: 0.5,
		Stopped:          true,
		JobResults:       []JobResult{{Folder: "movie", Status: StatusSuccess}},
	})

	text := out.String()
	for _, want := range []string{
		"JOB 1/2", "movie.mp4", "ENCODE", "h264_720p", "12 segments", "exit status 1",
		"vp9_720p failed", "CONVERSION STATISTICS SUMMARY", "2.00 GB", "1.00 GB", "50.00%",
		"Multiple MP4 files: 1", "Stopped early",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("terminal output missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(errOut.String(), "Job failed") {
		t.Errorf("errors should go to errOut: %q", errOut.String())
	}
}

func TestBatchSummaryCounts(t *testing.T) {
	s := BatchSummary{Successes: 2, Failures: 1, SkippedNoneFound: 3, SkippedAmbiguous: 1}
	if s.Skipped() != 4 || s.Processed() != 7 {
		t.Errorf("Skipped() = %d, Processed() = %d", s.Skipped(), s.Processed())
	}
}

func TestLogReporterDoesNotPanic(t *testing.T) {
	r := NewLogReporter(logging.Discard())
	var _ Reporter = r
	r.Hardware(HardwareSummary{})
	r.JobComplete(JobSummary{Status: StatusFailure, Reason: "validation"})
	r.JobComplete(JobSummary{Status: StatusSuccessWithWarnings, Warnings: []string{"x"}})
	r.BatchComplete(BatchSummary{})
}
