package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/five82/ladder/internal/discovery"
	"github.com/five82/ladder/internal/ffmpeg"
	"github.com/five82/ladder/internal/util"
)

// TrailerName is the trailer file written at the job root.
const TrailerName = "trailer.mp4"

// ThumbnailName returns the file name of the i-th thumbnail, counting from 1.
func ThumbnailName(i int) string {
	return fmt.Sprintf("thumbnail%d.jpg", i)
}

// copySidecars copies the regular files at the source folder root into
// the job folder. The video/ subfolder and other directories are left out.
func (p *Pipeline) copySidecars(j *job) {
	entries, err := os.ReadDir(j.folder.Path)
	if err != nil {
		p.warn(j, "cannot list sidecar files: %v", err)
		return
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.EqualFold(entry.Name(), discovery.VideoDirName) {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		src := filepath.Join(j.folder.Path, entry.Name())
		if err := util.CopyFile(src, filepath.Join(j.jobDir, entry.Name())); err != nil {
			p.warn(j, "cannot copy %s: %v", entry.Name(), err)
			continue
		}
		copied++
	}
	j.log.Debug("sidecar files copied", "count", copied)
}

// thumbnails grabs one frame per configured percentage of the duration.
func (p *Pipeline) thumbnails(ctx context.Context, j *job) {
	percentages := p.cfg.SortedThumbnails()
	if len(percentages) == 0 {
		return
	}
	if j.probe.Duration <= 0 {
		p.warn(j, "thumbnails skipped: source duration unknown")
		return
	}

	for i, pct := range percentages {
		name := ThumbnailName(i + 1)
		out := filepath.Join(j.jobDir, name)
		at := float64(pct) / 100 * j.probe.Duration

		res := p.engine.Run(ctx, ffmpeg.Command{
			Name:    p.cfg.FFmpegPath,
			Args:    ffmpeg.ThumbnailArgs(j.src.Path, at, out),
			Dir:     j.jobDir,
			Timeout: ffmpeg.ThumbnailTimeout,
		})
		if !res.Success() {
			p.warn(j, "%s at %d%% failed: %v", name, pct, res.Err)
			continue
		}
		if !util.FileExists(out) {
			p.warn(j, "%s was not written", name)
		}
	}
}

// trailer writes a short muted preview clip.
func (p *Pipeline) trailer(ctx context.Context, j *job) {
	out := filepath.Join(j.jobDir, TrailerName)
	start := ffmpeg.TrailerStart(j.probe.Duration)
	j.log.Info("generating trailer", "start", start, "length", ffmpeg.TrailerLength)

	res := p.engine.Run(ctx, ffmpeg.Command{
		Name:    p.cfg.FFmpegPath,
		Args:    ffmpeg.TrailerArgs(j.src.Path, start, out),
		Dir:     j.jobDir,
		Timeout: ffmpeg.TrailerTimeout,
	})
	if !res.Success() {
		p.warn(j, "trailer failed: %v", res.Err)
		return
	}
	if size, err := util.GetFileSize(out); err != nil || size == 0 {
		p.warn(j, "trailer was not written")
	}
}
