// Package ladder converts folders of source videos into adaptive HLS
// packages.
//
// Every eligible folder under the input directory becomes one package with
// H.264 renditions, VP9 renditions when the source allows, a shared AAC
// audio track, per-codec master playlists and a unified master playlist.
// Packages are validated before thumbnails, a trailer, archiving or
// publishing run.
//
// Basic usage:
//
//	conv, err := ladder.New(
//	    ladder.WithInputDir("/media/incoming"),
//	    ladder.WithOutputDir("/media/hls"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := conv.Run(ctx, nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Converted %d of %d folders\n",
//	    result.Successes, result.Processed)
package ladder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/five82/ladder/internal/batch"
	"github.com/five82/ladder/internal/config"
	"github.com/five82/ladder/internal/ffmpeg"
	"github.com/five82/ladder/internal/logging"
	"github.com/five82/ladder/internal/metrics"
	"github.com/five82/ladder/internal/pipeline"
	"github.com/five82/ladder/internal/publish"
	"github.com/five82/ladder/internal/reporter"
)

// Reporter receives progress events during a run.
type Reporter = reporter.Reporter

// StopSignal asks a running batch to stop after the current job.
type StopSignal = batch.StopSignal

// NewStopSignal creates an unset StopSignal.
func NewStopSignal() *StopSignal {
	return batch.NewStopSignal()
}

// Tier profiles accepted by WithTierProfile.
const (
	TierProfileStandard = config.TierProfileStandard
	TierProfileFullHD   = config.TierProfileFullHD
)

// Converter is the main entry point for batch conversion.
type Converter struct {
	config *config.Config
	engine ffmpeg.Engine
	log    *logging.Logger
	runID  string
}

// Result is the outcome of one folder.
type Result struct {
	Folder      string
	Status      string
	Reason      string
	Warnings    []string
	SourceBytes uint64
	OutputBytes uint64
	Elapsed     time.Duration
}

// BatchResult summarizes a run.
type BatchResult struct {
	RunID            string
	Results          []Result
	Successes        int
	Failures         int
	SkippedNoneFound int
	SkippedAmbiguous int
	NotStarted       int
	Processed        int
	SourceBytes      uint64
	OutputBytes      uint64
	CompressionRatio float64
	Stopped          bool
	Duration         time.Duration
}

// Option configures the converter.
type Option func(*Converter) error

// New creates a Converter. Options apply in order, so a later option
// overrides an earlier one.
func New(opts ...Option) (*Converter, error) {
	c := &Converter{config: config.NewConfig("", "", "")}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithConfigFile replaces the configuration with a JSON or YAML job file.
// Use it before any option that overrides single values.
func WithConfigFile(path string) Option {
	return func(c *Converter) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		c.config = cfg
		return nil
	}
}

// WithEnv applies LADDER_* environment overrides.
func WithEnv() Option {
	return func(c *Converter) error {
		return config.ApplyEnv(c.config)
	}
}

// WithInputDir sets the directory holding one subfolder per source.
func WithInputDir(dir string) Option {
	return func(c *Converter) error {
		c.config.InputDir = dir
		return nil
	}
}

// WithOutputDir sets the directory packages are written to.
func WithOutputDir(dir string) Option {
	return func(c *Converter) error {
		c.config.OutputDir = dir
		return nil
	}
}

// WithLogDir sets the run log directory.
func WithLogDir(dir string) Option {
	return func(c *Converter) error {
		c.config.LogDir = dir
		return nil
	}
}

// WithCompress zips each package and removes the folder.
func WithCompress(enable bool) Option {
	return func(c *Converter) error {
		c.config.Compress = enable
		return nil
	}
}

// WithDeleteOriginals removes each source folder after a successful job.
func WithDeleteOriginals(enable bool) Option {
	return func(c *Converter) error {
		c.config.DeleteOriginals = enable
		return nil
	}
}

// WithThumbnails sets the positions, in percent of duration, thumbnails
// are taken at. An empty list disables thumbnails.
func WithThumbnails(percentages []int) Option {
	return func(c *Converter) error {
		c.config.ThumbnailPercentages = append([]int{}, percentages...)
		return nil
	}
}

// WithTierProfile selects the rendition ladder ("standard" or "full_hd").
func WithTierProfile(profile string) Option {
	return func(c *Converter) error {
		p, err := config.ParseTierProfile(profile)
		if err != nil {
			return err
		}
		c.config.TierProfile = p
		return nil
	}
}

// WithSegmentDuration sets the HLS segment length in seconds.
func WithSegmentDuration(seconds int) Option {
	return func(c *Converter) error {
		c.config.SegmentDuration = seconds
		return nil
	}
}

// WithFFmpeg sets the ffmpeg binary.
func WithFFmpeg(path string) Option {
	return func(c *Converter) error {
		c.config.FFmpegPath = path
		return nil
	}
}

// WithFFprobe sets the ffprobe binary.
func WithFFprobe(path string) Option {
	return func(c *Converter) error {
		c.config.FFprobePath = path
		return nil
	}
}

// WithLowPriority runs encoders at reduced scheduling priority.
func WithLowPriority(enable bool) Option {
	return func(c *Converter) error {
		c.config.LowPriority = enable
		return nil
	}
}

// WithStopFile stops the batch between jobs once path is created. A file
// left over from an earlier run is removed when Run starts.
func WithStopFile(path string) Option {
	return func(c *Converter) error {
		c.config.StopFile = path
		return nil
	}
}

// WithMetricsFile writes Prometheus text metrics to path when the run ends.
func WithMetricsFile(path string) Option {
	return func(c *Converter) error {
		c.config.MetricsFile = path
		return nil
	}
}

// WithLogger sets the structured logger. Without it Run uses the global
// logger at the time it is called.
func WithLogger(l *logging.Logger) Option {
	return func(c *Converter) error {
		if l != nil {
			c.log = l
		}
		return nil
	}
}

// WithRunID tags events, statistics and metrics with id.
func WithRunID(id string) Option {
	return func(c *Converter) error {
		c.runID = id
		return nil
	}
}

func withEngine(e ffmpeg.Engine) Option {
	return func(c *Converter) error {
		c.engine = e
		return nil
	}
}

// LogDir returns the directory run logs are written to.
func (c *Converter) LogDir() string {
	return c.config.GetLogDir()
}

// ParseThumbnails parses a comma separated list of percentages such as
// "30,50,70". Each value must be within 0-100.
func ParseThumbnails(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("thumbnail list cannot be empty")
	}

	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid thumbnail percentage %q: %w", strings.TrimSpace(part), err)
		}
		if v < 0 || v > 100 {
			return nil, fmt.Errorf("%w: %d is outside 0-100", config.ErrInvalidThumbnail, v)
		}
		out = append(out, v)
	}
	return out, nil
}

// Run converts every eligible folder under the input directory. stop may be
// nil; when set it is honored between jobs, never during one. A non-nil
// result is returned whenever the batch started, even alongside an error.
func (c *Converter) Run(ctx context.Context, rep Reporter, stop *StopSignal) (*BatchResult, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	if stop == nil {
		stop = batch.NewStopSignal()
	}
	cfg := *c.config
	log := c.log
	if log == nil {
		log = logging.Global()
	}

	engine := c.engine
	if engine == nil {
		engine = ffmpeg.NewExecutor(
			ffmpeg.WithLowPriority(cfg.LowPriority),
			ffmpeg.WithLogger(log),
		)
	}

	var rec *metrics.Recorder
	if cfg.MetricsFile != "" {
		rec = metrics.NewRecorder()
	}

	popts := []pipeline.Option{
		pipeline.WithReporter(rep),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(rec),
	}
	if cfg.Publish.Enabled() {
		pub, err := publish.New(ctx, cfg.Publish, log)
		if err != nil {
			rep.Error(reporter.ReporterError{
				Title:      "Publish Error",
				Message:    err.Error(),
				Context:    cfg.Publish.Endpoint,
				Suggestion: "Check the endpoint, credentials and bucket",
			})
			return nil, err
		}
		popts = append(popts, pipeline.WithPublisher(pub))
	}

	p, err := pipeline.New(&cfg, engine, popts...)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.StopFile != "" {
		if err := batch.ClearStopFile(cfg.StopFile); err != nil {
			rep.Warning(fmt.Sprintf("cannot remove stale stop file %s: %v", cfg.StopFile, err))
		}
		if err := batch.WatchStopFile(runCtx, cfg.StopFile, stop, log); err != nil {
			rep.Warning(fmt.Sprintf("cannot watch stop file %s: %v", cfg.StopFile, err))
		}
	}

	runner := batch.NewRunner(&cfg, p,
		batch.WithReporter(rep),
		batch.WithLogger(log),
		batch.WithMetrics(rec),
		batch.WithRunID(c.runID),
	)
	stats, runErr := runner.Run(runCtx, stop)
	return newBatchResult(stats), runErr
}

func newBatchResult(stats *batch.RunStatistics) *BatchResult {
	summary := stats.Summary()
	res := &BatchResult{
		RunID:            stats.RunID,
		Successes:        stats.Successes,
		Failures:         stats.Failures,
		SkippedNoneFound: stats.SkippedNoneFound,
		SkippedAmbiguous: stats.SkippedAmbiguous,
		NotStarted:       stats.NotStarted,
		Processed:        stats.Processed(),
		SourceBytes:      stats.SourceBytes,
		OutputBytes:      stats.OutputBytes,
		CompressionRatio: stats.CompressionRatio(),
		Stopped:          stats.Stopped,
		Duration:         stats.Duration(),
	}
	for i, j := range stats.Jobs {
		r := Result{
			Folder:      j.Folder,
			Status:      summary.JobResults[i].Status,
			Warnings:    j.Outcome.Warnings,
			SourceBytes: j.SourceBytes,
			OutputBytes: j.OutputBytes,
			Elapsed:     j.Elapsed,
		}
		if !j.Outcome.Succeeded() {
			r.Reason = j.Outcome.Reason
			if j.Outcome.Err != nil {
				r.Reason = fmt.Sprintf("%s: %v", j.Outcome.Reason, j.Outcome.Err)
			}
		}
		res.Results = append(res.Results, r)
	}
	return res
}
