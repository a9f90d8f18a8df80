package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Setup creates a logger that writes to a timestamped run log in logDir.
// With noLog set the returned logger discards everything.
func Setup(logDir string, verbose, noLog bool, runID string) (*Logger, error) {
	if noLog {
		return Discard(), nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filePath := filepath.Join(logDir, fmt.Sprintf("ladder_run_%s.log", timestamp))

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	level := LevelInfo
	if verbose {
		level = LevelDebug
	}

	l := New(Config{Level: level, Output: file, Enabled: true})
	l.file = file
	l.filePath = filePath
	if runID != "" {
		l.Logger = l.Logger.With("run_id", runID)
	}

	l.Info("ladder starting", "log_file", filePath, "debug", verbose)
	return l, nil
}

// Writer returns an io.Writer that writes to the log file.
func (l *Logger) Writer() io.Writer {
	if l == nil || l.file == nil {
		return io.Discard
	}
	return l.file
}
