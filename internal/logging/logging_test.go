package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesRunLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, err := Setup(dir, true, false, "run-123")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	l.Debug("probe done", "height", 720)
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !strings.HasPrefix(filepath.Base(l.FilePath()), "ladder_run_") {
		t.Errorf("FilePath() = %q, want ladder_run_ prefix", l.FilePath())
	}
	data, err := os.ReadFile(l.FilePath())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	for _, want := range []string{"ladder starting", "run_id=run-123", "probe done", "height=720"} {
		if !strings.Contains(content, want) {
			t.Errorf("log missing %q:\n%s", want, content)
		}
	}
}

func TestSetupNoLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := Setup(dir, false, true, "")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if l.FilePath() != "" {
		t.Errorf("FilePath() = %q, want empty", l.FilePath())
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("log directory should not be created when logging is disabled")
	}
}

func TestNewLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, Enabled: true})
	l.Debug("hidden")
	l.Info("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("info message should be written")
	}
}

func TestGlobalSwap(t *testing.T) {
	var buf bytes.Buffer
	prev := Global()
	defer SetGlobal(prev)

	SetGlobal(New(Config{Level: LevelDebug, Output: &buf, Enabled: true}))
	Warn("disk low", "free", "1GB")

	if !strings.Contains(buf.String(), "disk low") {
		t.Errorf("global logger output = %q", buf.String())
	}
}
