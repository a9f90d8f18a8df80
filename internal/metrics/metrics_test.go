package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.JobFinished(OutcomeSuccess, 2*time.Minute, 1000, 400)
	r.JobFinished(OutcomeFailure, time.Second, 500, 0)
	r.JobFinished(OutcomeSuccess, time.Minute, 100, 50)
	r.FolderSkipped(SkipAmbiguous)
	r.Rendition("h264_720p", true)
	r.Rendition("vp9_720p", false)

	if got := testutil.ToFloat64(r.JobsTotal.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("success jobs = %v", got)
	}
	if got := testutil.ToFloat64(r.JobsTotal.WithLabelValues(OutcomeFailure)); got != 1 {
		t.Errorf("failed jobs = %v", got)
	}
	if got := testutil.ToFloat64(r.SourceBytesTotal); got != 1600 {
		t.Errorf("source bytes = %v", got)
	}
	if got := testutil.ToFloat64(r.OutputBytesTotal); got != 450 {
		t.Errorf("output bytes = %v", got)
	}
	if got := testutil.ToFloat64(r.FoldersSkippedTotal.WithLabelValues(SkipAmbiguous)); got != 1 {
		t.Errorf("skipped = %v", got)
	}
	if got := testutil.ToFloat64(r.RenditionsTotal.WithLabelValues("vp9_720p", "failed")); got != 1 {
		t.Errorf("failed renditions = %v", got)
	}
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	a.FolderSkipped(SkipNoneFound)
	if got := testutil.ToFloat64(b.FoldersSkippedTotal.WithLabelValues(SkipNoneFound)); got != 0 {
		t.Errorf("second recorder saw %v skips", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.JobFinished(OutcomeSuccessWithWarnings, time.Minute, 10, 5)

	path := filepath.Join(t.TempDir(), "ladder.prom")
	finished := time.Unix(1700000000, 0)
	if err := r.WriteTextfile(path, finished); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`ladder_jobs_total{outcome="success_with_warnings"} 1`,
		"ladder_last_run_timestamp_seconds 1.7e+09",
		"ladder_job_duration_seconds_count 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}

	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"), finished); err == nil {
		t.Error("expected error for unwritable path")
	}
}
