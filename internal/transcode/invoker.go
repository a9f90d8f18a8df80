// Package transcode drives the engine for one rendition or the audio track
// and verifies what it wrote.
package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/ffmpeg"
	"github.com/five82/ladder/internal/logging"
	"github.com/five82/ladder/internal/manifest"
	"github.com/five82/ladder/internal/quality"
)

// AudioDirName is the audio track folder under the job directory.
const AudioDirName = "audio"

// Source is the input of every encode in a job.
type Source struct {
	Path string
	// Duration in seconds, zero when unknown. Only used for progress.
	Duration float64
}

// RenditionResult is the outcome of one encode. Paths are absolute.
type RenditionResult struct {
	// Target is the zero value for the audio track.
	Target       quality.EncodeTarget
	Audio        bool
	Dir          string
	ManifestPath string
	InitPath     string
	SegmentPaths []string
	Succeeded    bool
	State        State
	History      []State
	FallbackUsed bool
	Err          error
	Elapsed      time.Duration
}

// Name returns the rendition folder, or "audio".
func (r RenditionResult) Name() string {
	if r.Audio {
		return AudioDirName
	}
	return r.Target.Folder
}

// Invoker runs encodes through an Engine.
type Invoker struct {
	engine          ffmpeg.Engine
	binary          string
	segmentDuration int
	log             *logging.Logger
	progress        ffmpeg.ProgressCallback
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithBinary sets the ffmpeg binary.
func WithBinary(path string) Option {
	return func(i *Invoker) {
		if path != "" {
			i.binary = path
		}
	}
}

// WithSegmentDuration sets the HLS segment length in seconds.
func WithSegmentDuration(seconds int) Option {
	return func(i *Invoker) {
		if seconds > 0 {
			i.segmentDuration = seconds
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.log = l
		}
	}
}

// WithProgress receives engine progress for the main encode calls.
func WithProgress(cb ffmpeg.ProgressCallback) Option {
	return func(i *Invoker) { i.progress = cb }
}

// NewInvoker creates an Invoker.
func NewInvoker(engine ffmpeg.Engine, opts ...Option) *Invoker {
	i := &Invoker{
		engine:          engine,
		binary:          "ffmpeg",
		segmentDuration: 5,
		log:             logging.Global(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// encodePlan is what differs between a video rendition and the audio track.
type encodePlan struct {
	name         string
	dir          string
	manifest     string
	mainArgs     []string
	fallbackArgs []string
}

// RunRendition encodes target into videoDir/<folder>. The engine is called
// once, plus at most one init-only call when the init segment is missing.
// Nothing is cleaned up on failure.
func (i *Invoker) RunRendition(ctx context.Context, src Source, target quality.EncodeTarget, videoDir string) RenditionResult {
	dir := filepath.Join(videoDir, target.Folder)
	initPath := filepath.Join(dir, ffmpeg.InitFilename)
	params := ffmpeg.VideoParams{
		Encoder:  target.Codec.Encoder(),
		Height:   target.Height,
		BitrateK: target.VideoBitrateK,
	}

	res := i.run(ctx, src, encodePlan{
		name:         target.Folder,
		dir:          dir,
		manifest:     ffmpeg.VideoManifestName,
		mainArgs:     ffmpeg.RenditionArgs(src.Path, params, i.segmentDuration),
		fallbackArgs: ffmpeg.VideoInitFallbackArgs(src.Path, params, initPath),
	})
	res.Target = target
	return res
}

// RunAudio encodes the stereo AAC track into jobDir/audio.
func (i *Invoker) RunAudio(ctx context.Context, src Source, jobDir string) RenditionResult {
	dir := filepath.Join(jobDir, AudioDirName)
	initPath := filepath.Join(dir, ffmpeg.InitFilename)
	kbps := quality.DefaultAudioBitrateK

	res := i.run(ctx, src, encodePlan{
		name:         AudioDirName,
		dir:          dir,
		manifest:     ffmpeg.AudioManifestName,
		mainArgs:     ffmpeg.AudioArgs(src.Path, kbps, i.segmentDuration),
		fallbackArgs: ffmpeg.AudioInitFallbackArgs(src.Path, kbps, initPath),
	})
	res.Audio = true
	return res
}

func (i *Invoker) run(ctx context.Context, src Source, plan encodePlan) (res RenditionResult) {
	start := time.Now()
	st := newTracker()
	res = RenditionResult{
		Dir:          plan.dir,
		ManifestPath: filepath.Join(plan.dir, plan.manifest),
		InitPath:     filepath.Join(plan.dir, ffmpeg.InitFilename),
	}
	log := i.log.With("rendition", plan.name)

	defer func() {
		res.State = st.state
		res.History = st.history
		res.Succeeded = st.state == StateVerified
		res.Elapsed = time.Since(start)
	}()

	fail := func(err error) RenditionResult {
		st.to(StateFailed)
		res.Err = err
		log.Warn("encode failed", "error", err)
		return res
	}

	st.to(StateRunning)
	if err := os.MkdirAll(plan.dir, 0o755); err != nil {
		return fail(lerrors.NewEncodeError("failed to create "+plan.dir, err))
	}

	log.Info("encoding", "dir", plan.dir)
	out := i.engine.Run(ctx, ffmpeg.Command{
		Name:     i.binary,
		Args:     plan.mainArgs,
		Dir:      plan.dir,
		Timeout:  ffmpeg.RenditionTimeout,
		Duration: src.Duration,
		Progress: i.progress,
	})
	if !out.Success() {
		return fail(engineError(plan.name, out))
	}

	if !isFile(res.ManifestPath) {
		return fail(lerrors.NewEncodeError(
			fmt.Sprintf("%s: engine exited cleanly but wrote no %s", plan.name, plan.manifest), nil))
	}

	if !hasContent(res.InitPath) {
		st.to(StateNeedsInitFallback)
		log.Warn("init segment missing after encode, running init-only pass")

		st.to(StateRunningFallback)
		res.FallbackUsed = true
		out = i.engine.Run(ctx, ffmpeg.Command{
			Name:    i.binary,
			Args:    plan.fallbackArgs,
			Dir:     plan.dir,
			Timeout: ffmpeg.InitFallbackTimeout,
		})
		if !out.Success() {
			return fail(engineError(plan.name+" init fallback", out))
		}
		if !hasContent(res.InitPath) {
			return fail(lerrors.NewEncodeError(plan.name+": init fallback produced no init segment", nil))
		}
	}

	pl, err := manifest.ParseSegments(res.ManifestPath)
	if err != nil {
		return fail(lerrors.NewEncodeError(plan.name+": unreadable media playlist", err))
	}
	for _, seg := range pl.Segments {
		res.SegmentPaths = append(res.SegmentPaths, filepath.Join(plan.dir, filepath.FromSlash(seg)))
	}

	st.to(StateVerified)
	log.Info("encode verified", "segments", len(res.SegmentPaths), "fallback", res.FallbackUsed)
	return res
}

func engineError(name string, out ffmpeg.Result) error {
	if out.Err != nil {
		return lerrors.NewEncodeError(name, out.Err)
	}
	return lerrors.NewEncodeError(name, lerrors.NewCommandFailedError(name, out.ExitCode, out.Stderr))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func hasContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
