// Package ffprobe extracts source geometry and duration using ffprobe.
package ffprobe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/ffmpeg"
	"github.com/five82/ladder/internal/logging"
)

// SourceProbe is the metadata a source is classified from. Bitrate is in
// bits per second and zero when the container does not report one.
type SourceProbe struct {
	Width    int64
	Height   int64
	Bitrate  int64
	Duration float64
}

func (p SourceProbe) String() string {
	return fmt.Sprintf("%dx%d, bitrate=%d, duration=%.2fs", p.Width, p.Height, p.Bitrate, p.Duration)
}

// Prober runs the two metadata queries against an Engine.
type Prober struct {
	engine ffmpeg.Engine
	binary string
	log    *logging.Logger
}

// NewProber creates a Prober. binary defaults to "ffprobe".
func NewProber(engine ffmpeg.Engine, binary string, log *logging.Logger) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	if log == nil {
		log = logging.Global()
	}
	return &Prober{engine: engine, binary: binary, log: log}
}

// Probe reads stream geometry and container duration. A failed geometry
// query is a classification failure. A failed duration query is tolerated
// and yields a zero duration.
func (p *Prober) Probe(ctx context.Context, path string) (*SourceProbe, error) {
	res := p.engine.Run(ctx, ffmpeg.Command{
		Name:    p.binary,
		Args:    ffmpeg.ProbeStreamArgs(path),
		Timeout: ffmpeg.ProbeTimeout,
	})
	if !res.Success() {
		return nil, lerrors.NewClassificationError("stream probe failed for "+path, res.Err)
	}

	probe, err := ParseStreamCSV(res.Stdout)
	if err != nil {
		return nil, lerrors.NewClassificationError("unreadable stream probe for "+path, err)
	}

	res = p.engine.Run(ctx, ffmpeg.Command{
		Name:    p.binary,
		Args:    ffmpeg.ProbeDurationArgs(path),
		Timeout: ffmpeg.ProbeTimeout,
	})
	if res.Success() {
		if d, err := ParseDuration(res.Stdout); err == nil {
			probe.Duration = d
		} else {
			p.log.Warn("could not parse duration", "path", path, "output", strings.TrimSpace(res.Stdout))
		}
	} else {
		p.log.Warn("duration probe failed", "path", path, "error", res.Err)
	}

	p.log.Info("probed source", "path", path, "width", probe.Width, "height", probe.Height,
		"bitrate", probe.Bitrate, "duration", probe.Duration)
	return probe, nil
}

// ParseStreamCSV parses "width,height,bit_rate" as printed with csv=p=0.
// A missing or N/A bitrate becomes zero.
func ParseStreamCSV(out string) (*SourceProbe, error) {
	line := firstLine(out)
	if line == "" {
		return nil, fmt.Errorf("no video stream reported")
	}

	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return nil, fmt.Errorf("unexpected stream probe output %q", line)
	}

	width, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid width %q: %w", fields[0], err)
	}
	height, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid height %q: %w", fields[1], err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}

	var bitrate int64
	if len(fields) > 2 {
		if b, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64); err == nil {
			bitrate = b
		}
	}

	return &SourceProbe{Width: width, Height: height, Bitrate: bitrate}, nil
}

// ParseDuration parses the container duration in seconds.
func ParseDuration(out string) (float64, error) {
	line := strings.TrimSuffix(firstLine(out), ",")
	if line == "" {
		return 0, fmt.Errorf("empty duration")
	}
	d, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", line, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %v", d)
	}
	return d, nil
}

func firstLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
