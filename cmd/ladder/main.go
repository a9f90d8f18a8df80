// Package main provides the CLI entry point for ladder.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/five82/ladder"
	"github.com/five82/ladder/internal/batch"
	"github.com/five82/ladder/internal/logging"
	"github.com/five82/ladder/internal/reporter"
)

const (
	appName    = "ladder"
	appVersion = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Convert source folders into adaptive HLS packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newStopCmd(), newVersionCmd())
	return root
}

// runArgs holds the parsed flags for the run command.
type runArgs struct {
	configFile      string
	inputDir        string
	outputDir       string
	logDir          string
	compress        bool
	deleteOriginals bool
	thumbnails      string
	tierProfile     string
	segmentDuration int
	stopFile        string
	metricsFile     string
	json            bool
	verbose         bool
	noLog           bool
	lowPriority     bool
}

func newRunCmd() *cobra.Command {
	var ra runArgs
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert every eligible folder under the input directory",
		Long: `Convert every eligible folder under the input directory.

Settings are read from the job file (--config), then LADDER_* environment
variables, then flags given on the command line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeRun(cmd, ra)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&ra.configFile, "config", "c", "", "JSON or YAML job file")
	fs.StringVarP(&ra.inputDir, "input", "i", "", "Directory with one subfolder per source")
	fs.StringVarP(&ra.outputDir, "output", "o", "", "Directory packages are written to")
	fs.StringVarP(&ra.logDir, "log-dir", "l", "", "Log directory (defaults to OUTPUT/logs)")
	fs.BoolVar(&ra.compress, "compress", false, "Zip each package and remove the folder")
	fs.BoolVar(&ra.deleteOriginals, "delete-originals", false, "Remove source folders after a successful job")
	fs.StringVar(&ra.thumbnails, "thumbnails", "30,50,70", "Thumbnail positions in percent of duration")
	fs.StringVar(&ra.tierProfile, "tier-profile", "standard", "Rendition ladder (standard, full_hd)")
	fs.IntVar(&ra.segmentDuration, "segment-duration", 5, "HLS segment length in seconds")
	fs.StringVar(&ra.stopFile, "stop-file", "", "Stop between jobs once this file exists")
	fs.StringVar(&ra.metricsFile, "metrics-file", "", "Write Prometheus text metrics here at the end of the run")
	fs.BoolVar(&ra.json, "json", false, "Emit NDJSON progress events on stdout")
	fs.BoolVarP(&ra.verbose, "verbose", "v", false, "Enable verbose output")
	fs.BoolVar(&ra.noLog, "no-log", false, "Disable log file creation")
	fs.BoolVar(&ra.lowPriority, "low-priority", false, "Run encoders at reduced scheduling priority")
	return cmd
}

func executeRun(cmd *cobra.Command, ra runArgs) error {
	opts, err := buildOptions(cmd, ra)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	opts = append(opts, ladder.WithRunID(runID))

	conv, err := ladder.New(opts...)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.Setup(conv.LogDir(), ra.verbose, ra.noLog, runID)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = logger.Close() }()
	logging.SetGlobal(logger)

	var ui reporter.Reporter
	if ra.json {
		ui = reporter.NewJSONReporter()
	} else {
		ui = reporter.NewTerminalReporter(ra.verbose)
	}
	rep := reporter.NewCompositeReporter(ui, reporter.NewLogReporter(logger))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stop := ladder.NewStopSignal()
	batch.NotifyOnInterrupt(ctx, stop, logger)

	res, err := conv.Run(ctx, rep, stop)
	if err != nil {
		return err
	}
	if res.Failures > 0 {
		return fmt.Errorf("%d of %d jobs failed", res.Failures, res.Successes+res.Failures)
	}
	return nil
}

// buildOptions orders the job file first, then the environment, then the
// flags the user actually set.
func buildOptions(cmd *cobra.Command, ra runArgs) ([]ladder.Option, error) {
	var opts []ladder.Option
	if ra.configFile != "" {
		opts = append(opts, ladder.WithConfigFile(ra.configFile))
	}
	opts = append(opts, ladder.WithEnv())

	fs := cmd.Flags()
	if fs.Changed("input") {
		opts = append(opts, ladder.WithInputDir(ra.inputDir))
	}
	if fs.Changed("output") {
		opts = append(opts, ladder.WithOutputDir(ra.outputDir))
	}
	if fs.Changed("log-dir") {
		opts = append(opts, ladder.WithLogDir(ra.logDir))
	}
	if fs.Changed("compress") {
		opts = append(opts, ladder.WithCompress(ra.compress))
	}
	if fs.Changed("delete-originals") {
		opts = append(opts, ladder.WithDeleteOriginals(ra.deleteOriginals))
	}
	if fs.Changed("thumbnails") {
		percentages, err := ladder.ParseThumbnails(ra.thumbnails)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ladder.WithThumbnails(percentages))
	}
	if fs.Changed("tier-profile") {
		opts = append(opts, ladder.WithTierProfile(ra.tierProfile))
	}
	if fs.Changed("segment-duration") {
		opts = append(opts, ladder.WithSegmentDuration(ra.segmentDuration))
	}
	if fs.Changed("stop-file") {
		opts = append(opts, ladder.WithStopFile(ra.stopFile))
	}
	if fs.Changed("metrics-file") {
		opts = append(opts, ladder.WithMetricsFile(ra.metricsFile))
	}
	if fs.Changed("low-priority") {
		opts = append(opts, ladder.WithLowPriority(ra.lowPriority))
	}
	return opts, nil
}

func newStopCmd() *cobra.Command {
	var stopFile string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask a running batch to stop after its current job",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if stopFile == "" {
				return fmt.Errorf("stop file is required (--stop-file)")
			}
			if err := batch.RequestStop(stopFile); err != nil {
				return fmt.Errorf("failed to create stop file: %w", err)
			}
			fmt.Printf("Stop requested: %s\n", stopFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&stopFile, "stop-file", "", "Stop file watched by the running batch")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("%s version %s\n", appName, appVersion)
		},
	}
}
