package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/ladder/internal/quality"
	"github.com/five82/ladder/internal/transcode"
	"github.com/five82/ladder/internal/validation"
)

// OutcomeKind tags a JobOutcome variant.
type OutcomeKind int

const (
	KindSuccess OutcomeKind = iota
	KindSuccessWithWarnings
	KindFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindSuccessWithWarnings:
		return "success_with_warnings"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// JobOutcome is the verdict for one job. Warnings is set only for
// KindSuccessWithWarnings, Reason and Err only for KindFailure.
type JobOutcome struct {
	Kind     OutcomeKind
	Warnings []string
	Reason   string
	Err      error
}

// Success is a job that finished with nothing to report.
func Success() JobOutcome {
	return JobOutcome{Kind: KindSuccess}
}

// SuccessWithWarnings is a job that passed validation while one or more
// best-effort steps failed. An empty list collapses to Success.
func SuccessWithWarnings(warnings []string) JobOutcome {
	if len(warnings) == 0 {
		return Success()
	}
	return JobOutcome{Kind: KindSuccessWithWarnings, Warnings: append([]string(nil), warnings...)}
}

// Failure is a job stopped at a hard checkpoint.
func Failure(reason string, err error) JobOutcome {
	return JobOutcome{Kind: KindFailure, Reason: reason, Err: err}
}

// Succeeded reports whether the job produced a validated package.
func (o JobOutcome) Succeeded() bool {
	return o.Kind != KindFailure
}

func (o JobOutcome) String() string {
	switch o.Kind {
	case KindSuccessWithWarnings:
		return fmt.Sprintf("%s: %s", o.Kind, strings.Join(o.Warnings, "; "))
	case KindFailure:
		if o.Err != nil {
			return fmt.Sprintf("%s: %s: %v", o.Kind, o.Reason, o.Err)
		}
		return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
	default:
		return o.Kind.String()
	}
}

// PackageResult is the package a job assembled. Success implies at least
// one segment and a non-empty init segment.
type PackageResult struct {
	Success bool
	// MasterManifestPath is video/playlist.m3u8, or video/master_h264.m3u8
	// when the unified playlist could not be written.
	MasterManifestPath string
	// InitPath is the first verified primary rendition's init segment.
	InitPath     string
	SegmentPaths []string
	Renditions   []transcode.RenditionResult
	Audio        *transcode.RenditionResult
	Validation   *validation.Outcome
	Err          error
}

// Package returns the files validation inspects.
func (p *PackageResult) Package() validation.Package {
	return validation.Package{
		ManifestPath: p.MasterManifestPath,
		InitPath:     p.InitPath,
		SegmentPaths: p.SegmentPaths,
	}
}

// Verified returns the renditions that succeeded for codec.
func (p *PackageResult) Verified(codec quality.Codec) []quality.EncodeTarget {
	var out []quality.EncodeTarget
	for _, r := range p.Renditions {
		if r.Succeeded && r.Target.Codec == codec {
			out = append(out, r.Target)
		}
	}
	return out
}

// JobResult is everything the batch needs from one job.
type JobResult struct {
	Folder  string
	Outcome JobOutcome
	Package *PackageResult
	Tier    quality.Tier
	// SourceBytes is the size of the whole source folder.
	SourceBytes uint64
	// OutputBytes is the package size, or the archive size when compressed.
	OutputBytes uint64
	// OutputPath is the package folder or archive.
	OutputPath string
	Elapsed    time.Duration
}
