package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/five82/ladder/internal/config"
	"github.com/five82/ladder/internal/discovery"
	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/logging"
	"github.com/five82/ladder/internal/metrics"
	"github.com/five82/ladder/internal/pipeline"
	"github.com/five82/ladder/internal/reporter"
)

// fakeJobs answers each folder with a scripted result.
type fakeJobs struct {
	results map[string]pipeline.JobOutcome
	panics  map[string]bool
	// onRun is called after a job has been recorded.
	onRun func(folder string)
	ran   []string
}

func (f *fakeJobs) Run(_ context.Context, folder discovery.Folder) pipeline.JobResult {
	f.ran = append(f.ran, folder.Name)
	if f.onRun != nil {
		f.onRun(folder.Name)
	}
	if f.panics[folder.Name] {
		panic("boom")
	}
	outcome, ok := f.results[folder.Name]
	if !ok {
		outcome = pipeline.Success()
	}
	return pipeline.JobResult{
		Folder:      folder.Name,
		Outcome:     outcome,
		SourceBytes: 1000,
		OutputBytes: 400,
		Elapsed:     time.Millisecond,
	}
}

// recorder keeps batch-level events.
type recorder struct {
	reporter.NullReporter
	started  *reporter.BatchStartInfo
	skipped  []reporter.SkipInfo
	jobs     []reporter.JobSummary
	summary  *reporter.BatchSummary
	complete int
}

func (r *recorder) BatchStarted(info reporter.BatchStartInfo) { r.started = &info }
func (r *recorder) FolderSkipped(info reporter.SkipInfo)      { r.skipped = append(r.skipped, info) }
func (r *recorder) JobComplete(s reporter.JobSummary)         { r.jobs = append(r.jobs, s) }
func (r *recorder) BatchComplete(s reporter.BatchSummary) {
	r.summary = &s
	r.complete++
}

// makeInput lays out folders: a positive count creates that many .mp4
// files in video/, zero leaves video/ empty.
func makeInput(t *testing.T, folders map[string]int) string {
	t.Helper()
	dir := t.TempDir()
	for name, n := range folders {
		videoDir := filepath.Join(dir, name, discovery.VideoDirName)
		if err := os.MkdirAll(videoDir, 0o755); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < n; i++ {
			path := filepath.Join(videoDir, strings.Repeat("v", i+1)+".mp4")
			if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return dir
}

func newTestRunner(t *testing.T, input string, jobs JobRunner, opts ...Option) (*Runner, *config.Config) {
	t.Helper()
	cfg := config.NewConfig(input, filepath.Join(t.TempDir(), "out"), "")
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return NewRunner(cfg, jobs, opts...), cfg
}

func TestRunCountsEveryFolder(t *testing.T) {
	input := makeInput(t, map[string]int{"a": 1, "b": 1, "c": 0, "d": 2, "e": 1})
	jobs := &fakeJobs{results: map[string]pipeline.JobOutcome{
		"b": pipeline.Failure("validation failed", nil),
		"e": pipeline.SuccessWithWarnings([]string{"trailer failed"}),
	}}
	rep := &recorder{}
	runner, cfg := newTestRunner(t, input, jobs, WithReporter(rep), WithRunID("run-1"))

	stats, err := runner.Run(context.Background(), NewStopSignal())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(cfg.OutputDir); err != nil {
		t.Errorf("output root not created: %v", err)
	}
	if !reflect.DeepEqual(jobs.ran, []string{"a", "b", "e"}) {
		t.Errorf("ran = %v, want eligible folders in order", jobs.ran)
	}
	if stats.Successes != 2 || stats.Failures != 1 {
		t.Errorf("successes=%d failures=%d", stats.Successes, stats.Failures)
	}
	if stats.SkippedNoneFound != 1 || stats.SkippedAmbiguous != 1 {
		t.Errorf("skipped none=%d ambiguous=%d", stats.SkippedNoneFound, stats.SkippedAmbiguous)
	}
	if stats.Processed() != 5 {
		t.Errorf("Processed() = %d, want 5", stats.Processed())
	}
	if stats.SourceBytes != 3000 || stats.OutputBytes != 800 {
		t.Errorf("bytes = %d source, %d output", stats.SourceBytes, stats.OutputBytes)
	}
	if got := stats.CompressionRatio(); got < 0.266 || got > 0.267 {
		t.Errorf("CompressionRatio() = %v", got)
	}
	if len(stats.Jobs) != 3 || stats.Stopped {
		t.Errorf("jobs=%d stopped=%v", len(stats.Jobs), stats.Stopped)
	}

	if rep.started == nil || rep.started.Eligible != 3 || rep.started.TotalFolders != 5 || rep.started.RunID != "run-1" {
		t.Errorf("BatchStarted = %+v", rep.started)
	}
	wantSkips := []reporter.SkipInfo{
		{Folder: "c", Reason: "no mp4 found"},
		{Folder: "d", Reason: "multiple mp4 files"},
	}
	if !reflect.DeepEqual(rep.skipped, wantSkips) {
		t.Errorf("skipped = %+v", rep.skipped)
	}
	if len(rep.jobs) != 3 || rep.jobs[1].Status != reporter.StatusFailure || rep.jobs[1].Reason != "validation failed" {
		t.Errorf("job summaries = %+v", rep.jobs)
	}
	if rep.jobs[2].Status != reporter.StatusSuccessWithWarnings || len(rep.jobs[2].Warnings) != 1 {
		t.Errorf("warned job = %+v", rep.jobs[2])
	}
	if rep.complete != 1 || rep.summary.RunID != "run-1" || len(rep.summary.JobResults) != 3 {
		t.Errorf("BatchComplete = %+v (calls %d)", rep.summary, rep.complete)
	}
}

func TestRunStopsBetweenJobs(t *testing.T) {
	input := makeInput(t, map[string]int{"1": 1, "2": 1, "3": 1, "4": 1, "5": 1})
	stop := NewStopSignal()
	jobs := &fakeJobs{onRun: func(folder string) {
		if folder == "3" {
			stop.Request()
		}
	}}
	rep := &recorder{}
	runner, _ := newTestRunner(t, input, jobs, WithReporter(rep))

	stats, err := runner.Run(context.Background(), stop)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(jobs.ran, []string{"1", "2", "3"}) {
		t.Errorf("ran = %v, job 3 should finish and job 4 never start", jobs.ran)
	}
	if stats.Successes != 3 || !stats.Stopped || stats.NotStarted != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if rep.complete != 1 || !rep.summary.Stopped {
		t.Errorf("summary must be emitted once on early stop: %+v", rep.summary)
	}
}

func TestRunStopRequestedBeforeStart(t *testing.T) {
	input := makeInput(t, map[string]int{"a": 1, "b": 0})
	stop := NewStopSignal()
	stop.Request()
	jobs := &fakeJobs{}
	runner, _ := newTestRunner(t, input, jobs)

	stats, err := runner.Run(context.Background(), stop)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs.ran) != 0 {
		t.Errorf("no job should run, ran %v", jobs.ran)
	}
	if stats.SkippedNoneFound != 1 || stats.NotStarted != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	input := makeInput(t, map[string]int{"a": 1, "b": 1})
	jobs := &fakeJobs{panics: map[string]bool{"a": true}}
	rep := &recorder{}
	runner, _ := newTestRunner(t, input, jobs, WithReporter(rep))

	stats, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failures != 1 || stats.Successes != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if rep.jobs[0].Status != reporter.StatusFailure || !strings.Contains(rep.jobs[0].Reason, "panic: boom") {
		t.Errorf("panicked job summary = %+v", rep.jobs[0])
	}
}

func TestRunNoFolders(t *testing.T) {
	rep := &recorder{}
	runner, _ := newTestRunner(t, t.TempDir(), &fakeJobs{}, WithReporter(rep))

	_, err := runner.Run(context.Background(), nil)
	if !lerrors.IsNoFolders(err) {
		t.Errorf("Run() error = %v, want no folders", err)
	}
	if rep.complete != 1 {
		t.Error("summary must be emitted even when nothing runs")
	}
}

func TestRunOutputRootFailure(t *testing.T) {
	input := makeInput(t, map[string]int{"a": 1})
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	jobs := &fakeJobs{}
	rep := &recorder{}
	runner := NewRunner(config.NewConfig(input, filepath.Join(blocker, "out"), ""), jobs,
		WithLogger(logging.Discard()), WithReporter(rep))

	_, err := runner.Run(context.Background(), nil)
	if !lerrors.IsKind(err, lerrors.KindIO) {
		t.Errorf("Run() error = %v, want IO error", err)
	}
	if len(jobs.ran) != 0 {
		t.Error("no job may run when the output root cannot be created")
	}
	if rep.complete != 1 {
		t.Error("summary must be emitted after a fatal batch error")
	}
}

func TestRunWritesMetrics(t *testing.T) {
	input := makeInput(t, map[string]int{"a": 1, "b": 1, "c": 2})
	jobs := &fakeJobs{results: map[string]pipeline.JobOutcome{"b": pipeline.Failure("x", errors.New("y"))}}
	m := metrics.NewRecorder()
	runner, cfg := newTestRunner(t, input, jobs, WithMetrics(m))
	cfg.MetricsFile = filepath.Join(t.TempDir(), "ladder.prom")

	if _, err := runner.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues(metrics.OutcomeSuccess)); got != 1 {
		t.Errorf("success jobs = %v", got)
	}
	if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues(metrics.OutcomeFailure)); got != 1 {
		t.Errorf("failed jobs = %v", got)
	}
	if got := testutil.ToFloat64(m.FoldersSkippedTotal.WithLabelValues(metrics.SkipAmbiguous)); got != 1 {
		t.Errorf("ambiguous skips = %v", got)
	}
	data, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), "ladder_jobs_total") {
		t.Errorf("metrics file missing job counter:\n%s", data)
	}
}

func TestStopSignal(t *testing.T) {
	s := NewStopSignal()
	if s.Requested() {
		t.Fatal("new signal must be unset")
	}
	s.Request()
	s.Request()
	if !s.Requested() {
		t.Fatal("Requested() = false after Request")
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed")
	}
}

func TestWatchStopFileExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "STOP")
	if err := RequestStop(path); err != nil {
		t.Fatal(err)
	}
	s := NewStopSignal()
	if err := WatchStopFile(context.Background(), path, s, logging.Discard()); err != nil {
		t.Fatal(err)
	}
	if !s.Requested() {
		t.Error("existing stop file should set the signal immediately")
	}
}

func TestWatchStopFileCreated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "STOP")
	s := NewStopSignal()
	if err := WatchStopFile(ctx, path, s, logging.Discard()); err != nil {
		t.Fatal(err)
	}
	if s.Requested() {
		t.Fatal("signal set before the stop file exists")
	}

	if err := RequestStop(path); err != nil {
		t.Fatal(err)
	}
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stop file creation was not noticed")
	}
}

func TestWatchStopFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "STOP")
	if err := WatchStopFile(context.Background(), path, NewStopSignal(), logging.Discard()); err == nil {
		t.Error("expected an error watching a missing directory")
	}
}

func TestClearStopFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "STOP")
	if err := RequestStop(path); err != nil {
		t.Fatal(err)
	}
	if err := ClearStopFile(path); err != nil {
		t.Fatalf("ClearStopFile() error = %v", err)
	}
	if fileExists(path) {
		t.Error("stop file still present")
	}
	if err := ClearStopFile(path); err != nil {
		t.Errorf("ClearStopFile() on a missing file error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewStopSignal()
	if err := WatchStopFile(ctx, path, s, logging.Discard()); err != nil {
		t.Fatal(err)
	}
	if s.Requested() {
		t.Error("a cleared stop file must not set the signal")
	}
}
