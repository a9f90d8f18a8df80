// Package validation checks a finished package before any side effect runs.
package validation

import (
	"fmt"
	"strings"
)

// Outcome records each check. Checks run in order and stop at the first
// failure, so later flags stay false after a failure.
type Outcome struct {
	Valid      bool
	ManifestOK bool
	InitOK     bool
	SegmentsOK bool
	Playable   bool
	// PlayabilitySkipped is set for master playlists that reference a
	// separate audio track. Playable is then true without a probe.
	PlayabilitySkipped bool
	// Missing lists segment paths that do not exist.
	Missing  []string
	Segments int
	Err      error
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// Steps returns one entry per check, for reporting.
func (o *Outcome) Steps() []ValidationStep {
	steps := []ValidationStep{
		{Name: "Manifest", Passed: o.ManifestOK, Details: passFail(o.ManifestOK, "readable", "missing or empty")},
		{Name: "Init segment", Passed: o.InitOK, Details: passFail(o.InitOK, "present", "missing or empty")},
		{Name: "Media segments", Passed: o.SegmentsOK, Details: o.segmentDetails()},
	}

	play := ValidationStep{Name: "Playability", Passed: o.Playable}
	switch {
	case o.PlayabilitySkipped:
		play.Details = "skipped (separate audio track)"
	case o.Playable:
		play.Details = "decoded without errors"
	default:
		play.Details = "not verified"
	}
	return append(steps, play)
}

// GetFailures returns descriptions of failed checks.
func (o *Outcome) GetFailures() []string {
	var failures []string
	for _, step := range o.Steps() {
		if !step.Passed {
			failures = append(failures, step.Name+": "+step.Details)
		}
	}
	return failures
}

func (o *Outcome) segmentDetails() string {
	switch {
	case o.SegmentsOK:
		return fmt.Sprintf("%d present", o.Segments)
	case len(o.Missing) > 0:
		return fmt.Sprintf("%d missing: %s", len(o.Missing), strings.Join(o.Missing, ", "))
	case o.InitOK && o.Segments == 0:
		return "no segments"
	default:
		return "not checked"
	}
}

func passFail(ok bool, pass, fail string) string {
	if ok {
		return pass
	}
	return fail
}
