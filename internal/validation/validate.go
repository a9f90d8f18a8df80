package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/ffmpeg"
	"github.com/five82/ladder/internal/logging"
	"github.com/five82/ladder/internal/manifest"
)

// Package is the set of files a validation run inspects.
type Package struct {
	ManifestPath string
	InitPath     string
	SegmentPaths []string
}

// Validator checks packages, using the engine for the playability probe.
type Validator struct {
	engine ffmpeg.Engine
	binary string
	log    *logging.Logger
}

// NewValidator creates a Validator. binary defaults to "ffmpeg".
func NewValidator(engine ffmpeg.Engine, binary string, log *logging.Logger) *Validator {
	if binary == "" {
		binary = "ffmpeg"
	}
	if log == nil {
		log = logging.Global()
	}
	return &Validator{engine: engine, binary: binary, log: log}
}

// Validate runs the checks in order: manifest readable, init segment
// non-empty, every segment present, then a full decode of the manifest.
func (v *Validator) Validate(ctx context.Context, pkg Package) *Outcome {
	o := &Outcome{Segments: len(pkg.SegmentPaths)}

	if err := checkReadable(pkg.ManifestPath); err != nil {
		return v.fail(o, fmt.Sprintf("manifest %s is not readable: %v", pkg.ManifestPath, err))
	}
	o.ManifestOK = true

	if info, err := os.Stat(pkg.InitPath); err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return v.fail(o, "init segment missing or empty: "+pkg.InitPath)
	}
	o.InitOK = true

	if len(pkg.SegmentPaths) == 0 {
		return v.fail(o, "package has no media segments")
	}
	for _, seg := range pkg.SegmentPaths {
		if _, err := os.Stat(seg); err != nil {
			o.Missing = append(o.Missing, seg)
		}
	}
	if len(o.Missing) > 0 {
		return v.fail(o, fmt.Sprintf("%d of %d segments missing", len(o.Missing), len(pkg.SegmentPaths)))
	}
	o.SegmentsOK = true

	if skipPlayability(pkg.ManifestPath) {
		v.log.Debug("skipping playability probe for master with separate audio", "manifest", pkg.ManifestPath)
		o.PlayabilitySkipped = true
		o.Playable = true
	} else {
		res := v.engine.Run(ctx, ffmpeg.Command{
			Name:    v.binary,
			Args:    ffmpeg.PlayabilityArgs(filepath.Base(pkg.ManifestPath)),
			Dir:     filepath.Dir(pkg.ManifestPath),
			Timeout: ffmpeg.PlayabilityTimeout,
		})
		if !res.Success() {
			o.Err = lerrors.NewValidationError(fmt.Sprintf("playability probe failed: %v", res.Err))
			v.log.Warn("validation failed", "manifest", pkg.ManifestPath, "error", o.Err, "stderr", res.Stderr)
			return o
		}
		o.Playable = true
	}

	o.Valid = true
	v.log.Info("package validated", "manifest", pkg.ManifestPath, "segments", len(pkg.SegmentPaths),
		"playability_skipped", o.PlayabilitySkipped)
	return o
}

func (v *Validator) fail(o *Outcome, msg string) *Outcome {
	o.Err = lerrors.NewValidationError(msg)
	v.log.Warn("validation failed", "error", o.Err)
	return o
}

// checkReadable requires a regular file with at least one readable byte.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	var buf [1]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return fmt.Errorf("empty or unreadable: %w", err)
	}
	return nil
}

// skipPlayability reports whether the manifest is a master playlist whose
// audio lives in a separate group.
func skipPlayability(path string) bool {
	if !manifest.IsMasterName(filepath.Base(path)) {
		return false
	}
	ok, err := manifest.ReferencesAudioGroup(path)
	return err == nil && ok
}
