// Package pipeline converts one source folder into a validated HLS package
// and runs the side effects that follow a successful validation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/ladder/internal/archive"
	"github.com/five82/ladder/internal/config"
	"github.com/five82/ladder/internal/discovery"
	"github.com/five82/ladder/internal/ffmpeg"
	"github.com/five82/ladder/internal/ffprobe"
	"github.com/five82/ladder/internal/logging"
	"github.com/five82/ladder/internal/manifest"
	"github.com/five82/ladder/internal/metrics"
	"github.com/five82/ladder/internal/publish"
	"github.com/five82/ladder/internal/quality"
	"github.com/five82/ladder/internal/reporter"
	"github.com/five82/ladder/internal/transcode"
	"github.com/five82/ladder/internal/util"
	"github.com/five82/ladder/internal/validation"
)

// Phase names announced through the reporter, in execution order.
const (
	PhaseLocate     = "locate"
	PhaseSize       = "size"
	PhaseSkeleton   = "skeleton"
	PhaseClassify   = "classify"
	PhaseAudio      = "audio"
	PhasePrimary    = "h264"
	PhaseSecondary  = "vp9"
	PhaseManifests  = "manifests"
	PhaseValidate   = "validate"
	PhaseSidecars   = "sidecars"
	PhaseThumbnails = "thumbnails"
	PhaseTrailer    = "trailer"
	PhaseArchive    = "archive"
	PhasePublish    = "publish"
	PhaseCleanup    = "cleanup"
)

// Publisher uploads a finished package or archive.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (*publish.Result, error)
}

// Pipeline runs jobs one at a time. It is not safe for concurrent use.
type Pipeline struct {
	cfg        *config.Config
	engine     ffmpeg.Engine
	prober     *ffprobe.Prober
	classifier *quality.Classifier
	invoker    *transcode.Invoker
	validator  *validation.Validator
	publisher  Publisher
	metrics    *metrics.Recorder
	rep        reporter.Reporter
	log        *logging.Logger

	// encoding names the encode whose progress is being forwarded.
	encoding string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReporter sets the progress reporter.
func WithReporter(rep reporter.Reporter) Option {
	return func(p *Pipeline) {
		if rep != nil {
			p.rep = rep
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithPublisher uploads every successful package.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithMetrics records rendition counters.
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClassifier replaces the classifier built from cfg.TierProfile.
func WithClassifier(c *quality.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// New builds a Pipeline around engine.
func New(cfg *config.Config, engine ffmpeg.Engine, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		engine: engine,
		rep:    reporter.NullReporter{},
		log:    logging.Global(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.classifier == nil {
		c, err := quality.NewClassifierForProfile(cfg.TierProfile)
		if err != nil {
			return nil, err
		}
		p.classifier = c
	}

	p.prober = ffprobe.NewProber(engine, cfg.FFprobePath, p.log)
	p.validator = validation.NewValidator(engine, cfg.FFmpegPath, p.log)
	p.invoker = transcode.NewInvoker(engine,
		transcode.WithBinary(cfg.FFmpegPath),
		transcode.WithSegmentDuration(cfg.SegmentDuration),
		transcode.WithLogger(p.log),
		transcode.WithProgress(p.forwardProgress),
	)
	return p, nil
}

func (p *Pipeline) forwardProgress(pr ffmpeg.Progress) {
	p.rep.EncodingProgress(reporter.ProgressSnapshot{
		Name:    p.encoding,
		Percent: pr.Percent,
		Speed:   pr.Speed,
		FPS:     pr.FPS,
		ETA:     pr.ETA,
		Bitrate: pr.Bitrate,
	})
}

// job carries the state of one Run.
type job struct {
	folder   discovery.Folder
	jobDir   string
	videoDir string
	src      transcode.Source
	probe    *ffprobe.SourceProbe
	pkg      *PackageResult
	warnings []string
	log      *logging.Logger
}

// Run converts folder. Hard failures stop the job at the failing phase and
// leave partial output in place for inspection. Best-effort failures are
// collected as warnings.
func (p *Pipeline) Run(ctx context.Context, folder discovery.Folder) (res JobResult) {
	start := time.Now()
	res = JobResult{Folder: folder.Name}
	defer func() { res.Elapsed = time.Since(start) }()

	j := &job{
		folder: folder,
		jobDir: filepath.Join(p.cfg.OutputDir, folder.Name),
		pkg:    &PackageResult{},
		log:    p.log.With("job", folder.Name),
	}
	j.videoDir = filepath.Join(j.jobDir, discovery.VideoDirName)
	res.Package = j.pkg
	res.OutputPath = j.jobDir

	p.phase(PhaseLocate, "")
	if folder.Status != discovery.Eligible || !util.FileExists(folder.Source) {
		res.Outcome = Failure("source video not found", nil)
		return res
	}
	j.src = transcode.Source{Path: folder.Source}

	p.phase(PhaseSize, "")
	size, err := util.DirSize(folder.Path)
	if err != nil {
		p.warn(j, "source size unavailable: %v", err)
	}
	res.SourceBytes = size

	p.phase(PhaseSkeleton, j.videoDir)
	if err := util.EnsureDirectory(j.videoDir); err != nil {
		res.Outcome = Failure("cannot create output folder", err)
		return res
	}

	p.phase(PhaseClassify, "")
	primary, secondary, outcome := p.classify(ctx, j, &res)
	if outcome != nil {
		res.Outcome = *outcome
		return res
	}

	p.phase(PhaseAudio, "")
	audio := p.encode(ctx, j, nil)
	j.pkg.Audio = &audio
	if !audio.Succeeded {
		p.warn(j, "audio track failed: %v", audio.Err)
	}

	p.phase(PhasePrimary, fmt.Sprintf("%d renditions", len(primary)))
	var failed []transcode.RenditionResult
	for i := range primary {
		r := p.encode(ctx, j, &primary[i])
		j.pkg.Renditions = append(j.pkg.Renditions, r)
		if !r.Succeeded {
			failed = append(failed, r)
		}
	}
	if len(j.pkg.Verified(quality.CodecH264)) == 0 {
		err := failed[len(failed)-1].Err
		res.Outcome = Failure("no H.264 rendition succeeded", err)
		j.pkg.Err = err
		return res
	}
	for _, r := range failed {
		p.warn(j, "%s failed: %v", r.Name(), r.Err)
	}

	p.phase(PhaseSecondary, fmt.Sprintf("%d renditions", len(secondary)))
	for i := range secondary {
		r := p.encode(ctx, j, &secondary[i])
		j.pkg.Renditions = append(j.pkg.Renditions, r)
		if !r.Succeeded {
			p.warn(j, "%s failed: %v", r.Name(), r.Err)
		}
	}

	p.phase(PhaseManifests, "")
	if err := p.writeManifests(j); err != nil {
		res.Outcome = Failure("cannot write H.264 master playlist", err)
		j.pkg.Err = err
		return res
	}
	p.collectPackage(j)

	p.phase(PhaseValidate, filepath.Base(j.pkg.MasterManifestPath))
	outcome = p.validate(ctx, j)
	if outcome != nil {
		res.Outcome = *outcome
		return res
	}

	p.phase(PhaseSidecars, "")
	p.copySidecars(j)

	p.phase(PhaseThumbnails, "")
	p.thumbnails(ctx, j)

	if j.probe.Duration > p.cfg.TrailerMinDuration {
		p.phase(PhaseTrailer, "")
		p.trailer(ctx, j)
	} else {
		j.log.Debug("source too short for a trailer", "duration", j.probe.Duration)
	}

	out, err := util.DirSize(j.jobDir)
	if err != nil {
		p.warn(j, "output size unavailable: %v", err)
	}
	res.OutputBytes = out

	if p.cfg.Compress {
		p.phase(PhaseArchive, "")
		if path, size, ok := p.compress(ctx, j); ok {
			res.OutputPath = path
			res.OutputBytes = size
		}
	}

	if p.publisher != nil {
		p.phase(PhasePublish, "")
		if pub, err := p.publisher.Publish(ctx, res.OutputPath); err != nil {
			p.warn(j, "publish failed: %v", err)
		} else {
			j.log.Info("package published", "objects", pub.Objects, "bytes", pub.Bytes)
		}
	}

	if p.cfg.DeleteOriginals {
		p.phase(PhaseCleanup, folder.Path)
		if err := os.RemoveAll(folder.Path); err != nil {
			p.warn(j, "cannot delete source folder: %v", err)
		} else {
			j.log.Info("source folder deleted", "path", folder.Path)
		}
	}

	res.Outcome = SuccessWithWarnings(j.warnings)
	return res
}

// classify probes the source and selects targets for both codecs.
func (p *Pipeline) classify(ctx context.Context, j *job, res *JobResult) (primary, secondary []quality.EncodeTarget, fail *JobOutcome) {
	probe, err := p.prober.Probe(ctx, j.src.Path)
	if err != nil {
		o := Failure("cannot probe source", err)
		return nil, nil, &o
	}
	j.probe = probe
	j.src.Duration = probe.Duration

	tier := p.classifier.Classify(*probe)
	res.Tier = tier

	primary, err = p.classifier.TargetsFor(tier, quality.CodecH264)
	if err != nil {
		o := Failure("no H.264 targets", err)
		return nil, nil, &o
	}
	secondary, err = p.classifier.TargetsFor(tier, quality.CodecVP9)
	if err != nil {
		p.warn(j, "no VP9 targets: %v", err)
		secondary = nil
	}

	j.log.Info("source classified", "probe", probe.String(), "tier", tier,
		"h264", len(primary), "vp9", len(secondary))
	p.rep.Verbose(fmt.Sprintf("%s classified as %s", probe, tier))
	return primary, secondary, nil
}

// encode runs one rendition, or the audio track when target is nil.
func (p *Pipeline) encode(ctx context.Context, j *job, target *quality.EncodeTarget) transcode.RenditionResult {
	name := transcode.AudioDirName
	if target != nil {
		name = target.Folder
	}
	p.encoding = name
	p.rep.EncodingStarted(name)

	var r transcode.RenditionResult
	if target == nil {
		r = p.invoker.RunAudio(ctx, j.src, j.jobDir)
	} else {
		r = p.invoker.RunRendition(ctx, j.src, *target, j.videoDir)
	}

	summary := reporter.RenditionSummary{
		Name:         r.Name(),
		Succeeded:    r.Succeeded,
		Segments:     len(r.SegmentPaths),
		FallbackUsed: r.FallbackUsed,
		Elapsed:      r.Elapsed,
	}
	if r.Err != nil {
		summary.Error = r.Err.Error()
	}
	p.rep.RenditionComplete(summary)
	if p.metrics != nil {
		p.metrics.Rendition(r.Name(), r.Succeeded)
	}
	return r
}

// writeManifests writes the masters and the unified playlist. Only the
// H.264 master is required.
func (p *Pipeline) writeManifests(j *job) error {
	hasAudio := j.pkg.Audio != nil && j.pkg.Audio.Succeeded
	h264 := manifest.Group{
		Codec:      quality.CodecH264,
		Renditions: j.pkg.Verified(quality.CodecH264),
		PeakHeight: p.classifier.PeakHeight(quality.CodecH264),
	}
	vp9 := manifest.Group{Codec: quality.CodecVP9, Renditions: j.pkg.Verified(quality.CodecVP9)}

	master, err := manifest.WriteMaster(j.videoDir, h264, hasAudio)
	if err != nil {
		return err
	}
	j.pkg.MasterManifestPath = master

	if len(vp9.Renditions) > 0 {
		if _, err := manifest.WriteMaster(j.videoDir, vp9, hasAudio); err != nil {
			p.warn(j, "VP9 master playlist: %v", err)
		}
	}

	unified, err := manifest.WriteUnified(j.videoDir, h264, vp9, hasAudio)
	if err != nil {
		p.warn(j, "unified playlist: %v", err)
		return nil
	}
	j.pkg.MasterManifestPath = unified
	return nil
}

// collectPackage fills the init and segment lists from verified encodes.
func (p *Pipeline) collectPackage(j *job) {
	for _, r := range j.pkg.Renditions {
		if !r.Succeeded {
			continue
		}
		if j.pkg.InitPath == "" && r.Target.Codec == quality.CodecH264 {
			j.pkg.InitPath = r.InitPath
		}
		j.pkg.SegmentPaths = append(j.pkg.SegmentPaths, r.SegmentPaths...)
	}
	if a := j.pkg.Audio; a != nil && a.Succeeded {
		j.pkg.SegmentPaths = append(j.pkg.SegmentPaths, a.SegmentPaths...)
	}
}

func (p *Pipeline) validate(ctx context.Context, j *job) *JobOutcome {
	v := p.validator.Validate(ctx, j.pkg.Package())
	j.pkg.Validation = v

	var steps []reporter.ValidationStep
	for _, s := range v.Steps() {
		steps = append(steps, reporter.ValidationStep{
			Name:    s.Name,
			Passed:  s.Passed,
			Details: s.Details,
		})
	}
	p.rep.ValidationComplete(reporter.ValidationSummary{
		Passed: v.Valid,
		Steps:  steps,
	})

	if !v.Valid {
		j.pkg.Err = v.Err
		reason := "validation failed"
		if failed := v.GetFailures(); len(failed) > 0 {
			reason = fmt.Sprintf("validation failed (%s)", strings.Join(failed, "; "))
		}
		o := Failure(reason, v.Err)
		return &o
	}
	j.pkg.Success = true
	return nil
}

// compress zips the job folder and removes it. It returns the archive
// path and size when the folder was replaced.
func (p *Pipeline) compress(ctx context.Context, j *job) (string, uint64, bool) {
	dest := filepath.Join(p.cfg.OutputDir, j.folder.Name+archive.Extension)
	zr, err := archive.ZipFolder(ctx, j.jobDir, dest)
	if err != nil {
		p.warn(j, "compression failed: %v", err)
		return "", 0, false
	}
	if err := os.RemoveAll(j.jobDir); err != nil {
		p.warn(j, "cannot remove uncompressed folder: %v", err)
	}
	j.log.Info("package compressed", "archive", zr.Path, "files", zr.Files, "bytes", zr.Size)
	return zr.Path, zr.Size, true
}

func (p *Pipeline) phase(name, message string) {
	p.rep.PhaseProgress(reporter.PhaseProgress{Phase: name, Message: message})
}

// warn records a best-effort failure on the job.
func (p *Pipeline) warn(j *job, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.warnings = append(j.warnings, msg)
	j.log.Warn(msg)
	p.rep.Warning(msg)
}
