package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/logging"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func newTestExecutor() *Executor {
	return NewExecutor(WithLogger(logging.Discard()))
}

func TestExecutorRunSuccess(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	res := newTestExecutor().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo diag >&2; touch created"},
		Dir:  dir,
	})

	if !res.Success() {
		t.Fatalf("Run() = %+v, want success", res)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "diag") {
		t.Errorf("Stderr = %q", res.Stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "created")); err != nil {
		t.Errorf("command should run in Dir: %v", err)
	}
}

func TestExecutorRunNonZeroExit(t *testing.T) {
	requireShell(t)

	res := newTestExecutor().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo 'Invalid data found' >&2; exit 3"},
	})

	if res.Success() {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !lerrors.IsKind(res.Err, lerrors.KindCommand) {
		t.Errorf("Err = %v, want a command error", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "Invalid data found") {
		t.Errorf("error should carry the last stderr line: %v", res.Err)
	}
}

func TestExecutorRunTimeout(t *testing.T) {
	requireShell(t)

	res := newTestExecutor().Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "exec sleep 5"},
		Timeout: 100 * time.Millisecond,
	})

	if res.Success() {
		t.Fatal("expected timeout failure")
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "timed out") {
		t.Errorf("Err = %v, want timeout", res.Err)
	}
	if res.Elapsed > 4*time.Second {
		t.Errorf("timeout did not stop the process, elapsed %v", res.Elapsed)
	}
}

func TestExecutorRunMissingBinary(t *testing.T) {
	res := newTestExecutor().Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	if res.Success() {
		t.Fatal("expected start failure")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestExecutorProgress(t *testing.T) {
	requireShell(t)

	var got []Progress
	res := newTestExecutor().Run(context.Background(), Command{
		Name:     "sh",
		Args:     []string{"-c", `printf 'frame=10 fps=25 time=00:00:05.00 bitrate=800kbits/s speed=2.0x\r' >&2`},
		Duration: 10,
		Progress: func(p Progress) { got = append(got, p) },
	})
	if !res.Success() {
		t.Fatalf("Run() = %+v", res)
	}
	if len(got) != 1 {
		t.Fatalf("progress callbacks = %d, want 1", len(got))
	}
	if got[0].Percent != 50 {
		t.Errorf("Percent = %v, want 50", got[0].Percent)
	}
}

func TestParseProgressLine(t *testing.T) {
	p := parseProgressLine("frame= 300 fps= 30 q=28.0 size=1024kB time=00:01:00.00 bitrate= 139.8kbits/s speed=1.5x", 120)
	if p == nil {
		t.Fatal("expected progress")
	}
	if p.ElapsedSecs != 60 {
		t.Errorf("ElapsedSecs = %v", p.ElapsedSecs)
	}
	if p.Percent != 50 {
		t.Errorf("Percent = %v", p.Percent)
	}
	if p.FPS != 30 {
		t.Errorf("FPS = %v", p.FPS)
	}
	if p.Speed != 1.5 {
		t.Errorf("Speed = %v", p.Speed)
	}
	if p.Bitrate != "139.8kbits/s" {
		t.Errorf("Bitrate = %q", p.Bitrate)
	}
	if p.ETA != 40*time.Second {
		t.Errorf("ETA = %v, want 40s", p.ETA)
	}

	if parseProgressLine("Stream mapping:", 10) != nil {
		t.Error("lines without time= should not parse")
	}
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(4)
	for _, b := range []byte("abcdefghij") {
		tb.add(b)
	}
	if got := tb.String(); got != "ghij" {
		t.Errorf("tail = %q, want ghij", got)
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("first\nsecond\n"); got != "second" {
		t.Errorf("lastLine = %q", got)
	}
	if got := lastLine("only"); got != "only" {
		t.Errorf("lastLine = %q", got)
	}
}
