package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/ladder/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	progress   *progressbar.ProgressBar
	maxPercent float32
	lastPhase  string
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	greenBold  *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	faint      *color.Color
	bold       *color.Color
}

// NewTerminalReporter creates a terminal reporter on stdout and stderr.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr, verbose)
}

// NewTerminalReporterWithWriters creates a terminal reporter with custom
// writers. The progress bar draws on errOut.
func NewTerminalReporterWithWriters(out, errOut io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:       out,
		errOut:    errOut,
		verbose:   verbose,
		cyan:      color.New(color.FgCyan, color.Bold),
		green:     color.New(color.FgGreen),
		greenBold: color.New(color.FgGreen, color.Bold),
		yellow:    color.New(color.FgYellow, color.Bold),
		red:       color.New(color.FgRed, color.Bold),
		magenta:   color.New(color.FgMagenta),
		faint:     color.New(color.Faint),
		bold:      color.New(color.Bold),
	}
}

func (r *TerminalReporter) println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

func (r *TerminalReporter) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

func (r *TerminalReporter) heading(title string) {
	r.println()
	_, _ = r.cyan.Fprintln(r.out, title)
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	r.printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	r.heading("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
	r.printLabel(10, "OS:", summary.OS)
	if summary.CPUModel != "" {
		r.printLabel(10, "CPU:", fmt.Sprintf("%s (%d threads)", summary.CPUModel, summary.LogicalCores))
	} else {
		r.printLabel(10, "CPU:", fmt.Sprintf("%d threads", summary.LogicalCores))
	}
	if summary.TotalMemory > 0 {
		r.printLabel(10, "Memory:", fmt.Sprintf("%s available of %s",
			util.FormatBytes(summary.AvailableMemory), util.FormatBytes(summary.TotalMemory)))
	}
	if summary.OutputDiskFree > 0 {
		r.printLabel(10, "Disk free:", util.FormatBytes(summary.OutputDiskFree))
	}
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	r.heading("BATCH")
	r.printf("  %d folders, %d eligible: %s -> %s\n",
		info.TotalFolders, info.Eligible, info.InputDir, r.bold.Sprint(info.OutputDir))
	if r.verbose {
		for i, name := range info.FolderList {
			r.printf("  %d. %s\n", i+1, name)
		}
	}
}

func (r *TerminalReporter) FolderSkipped(info SkipInfo) {
	r.printf("  %s %s (%s)\n", r.yellow.Sprint("skip"), info.Folder, r.faint.Sprint(info.Reason))
}

func (r *TerminalReporter) JobStarted(info JobStartInfo) {
	r.mu.Lock()
	r.lastPhase = ""
	r.mu.Unlock()

	r.heading(fmt.Sprintf("JOB %d/%d", info.Index, info.Total))
	r.printLabel(8, "Folder:", info.Folder)
	r.printLabel(8, "Source:", util.GetFilename(info.Source))
}

func (r *TerminalReporter) PhaseProgress(update PhaseProgress) {
	r.finishProgress()

	r.mu.Lock()
	newPhase := r.lastPhase != update.Phase
	r.lastPhase = update.Phase
	r.mu.Unlock()

	if newPhase {
		r.printf("  %s\n", r.bold.Sprint(strings.ToUpper(update.Phase)))
	}
	if update.Message != "" {
		r.printf("    %s %s\n", r.magenta.Sprint("›"), update.Message)
	}
}

func (r *TerminalReporter) EncodingStarted(name string) {
	r.finishProgress()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      fmt.Sprintf("%-10s [", name),
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) EncodingProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := progress.Percent
	if clamped > 100 {
		clamped = 100
	}
	if clamped < 0 {
		clamped = 0
	}

	if clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set64(int64(clamped))
	}

	desc := fmt.Sprintf("speed %.1fx, fps %.1f, eta %s",
		progress.Speed, progress.FPS, util.FormatDuration(progress.ETA.Seconds()))
	r.progress.Describe(desc)
}

func (r *TerminalReporter) RenditionComplete(summary RenditionSummary) {
	r.finishProgress()

	if summary.Succeeded {
		note := ""
		if summary.FallbackUsed {
			note = r.faint.Sprint(" (init fallback)")
		}
		r.printf("    %s %-10s %d segments in %s%s\n", r.green.Sprint("✓"), summary.Name, summary.Segments,
			util.FormatDuration(summary.Elapsed.Seconds()), note)
		return
	}
	r.printf("    %s %-10s %s\n", r.red.Sprint("✗"), summary.Name, summary.Error)
}

func (r *TerminalReporter) ValidationComplete(summary ValidationSummary) {
	r.finishProgress()

	if summary.Passed {
		r.printf("    %s\n", r.greenBold.Sprint("All checks passed"))
	} else {
		r.printf("    %s\n", r.red.Sprint("Validation failed"))
	}

	// Find the longest step name for alignment
	maxLen := 0
	for _, step := range summary.Steps {
		if len(step.Name) > maxLen {
			maxLen = len(step.Name)
		}
	}

	for _, step := range summary.Steps {
		var status string
		if step.Passed {
			status = r.green.Sprint("✓")
		} else {
			status = r.red.Sprint("✗")
		}
		paddedName := fmt.Sprintf("%-*s", maxLen, step.Name)
		r.printf("    - %s: %s (%s)\n", paddedName, status, step.Details)
	}
}

func (r *TerminalReporter) JobComplete(summary JobSummary) {
	r.finishProgress()

	r.println()
	switch summary.Status {
	case StatusSuccess:
		r.printf("  %s %s\n", r.greenBold.Sprint("✓"), r.bold.Sprint(summary.Folder))
	case StatusSuccessWithWarnings:
		r.printf("  %s %s (%d warnings)\n", r.yellow.Sprint("✓"), r.bold.Sprint(summary.Folder), len(summary.Warnings))
		for _, w := range summary.Warnings {
			r.printf("    - %s\n", w)
		}
	default:
		r.printf("  %s %s: %s\n", r.red.Sprint("✗"), r.bold.Sprint(summary.Folder), summary.Reason)
		return
	}

	r.printLabel(8, "Size:", fmt.Sprintf("%s -> %s (%.1f%% reduction)",
		util.FormatBytesReadable(summary.SourceBytes), util.FormatBytesReadable(summary.OutputBytes),
		util.CalculateSizeReduction(summary.SourceBytes, summary.OutputBytes)))
	r.printLabel(8, "Time:", util.FormatDuration(summary.Elapsed.Seconds()))
	if summary.OutputPath != "" {
		r.printf("  %s %s\n", r.bold.Sprint("Saved to"), r.green.Sprint(summary.OutputPath))
	}
}

func (r *TerminalReporter) Warning(message string) {
	_, _ = r.yellow.Fprintf(r.out, "  WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.finishProgress()

	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	r.finishProgress()

	r.heading("CONVERSION STATISTICS SUMMARY")
	const w = 24
	r.printLabel(w, "Total Source Size:", fmt.Sprintf("%.2f GB", util.BytesToGiB(summary.TotalSourceBytes)))
	r.printLabel(w, "Total Output Size:", fmt.Sprintf("%.2f GB", util.BytesToGiB(summary.TotalOutputBytes)))
	r.printLabel(w, "Compression Ratio:", fmt.Sprintf("%.2f%%", summary.CompressionRatio*100))
	r.printLabel(w, "Successful Conversions:", r.green.Sprint(summary.Successes))
	r.printLabel(w, "Failed Conversions:", r.red.Sprint(summary.Failures))
	r.printLabel(w, "Skipped Folders:", fmt.Sprint(summary.Skipped()))
	if summary.SkippedNoneFound > 0 {
		r.printf("    - No MP4 files:       %d\n", summary.SkippedNoneFound)
	}
	if summary.SkippedAmbiguous > 0 {
		r.printf("    - Multiple MP4 files: %d\n", summary.SkippedAmbiguous)
	}
	r.printLabel(w, "Total Processed:", fmt.Sprint(summary.Processed()))
	r.printLabel(w, "Elapsed:", util.FormatDuration(summary.TotalDuration.Seconds()))
	if summary.Stopped {
		_, _ = r.yellow.Fprintln(r.out, "  Stopped early on request")
	}

	if r.verbose {
		for _, job := range summary.JobResults {
			r.printf("  - %s: %s (%s)\n", job.Folder, job.Status, util.FormatDuration(job.Elapsed.Seconds()))
		}
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if r.verbose {
		r.printf("  %s\n", r.faint.Sprint(message))
	}
}
