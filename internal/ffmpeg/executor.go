package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/logging"
	"github.com/five82/ladder/internal/util"
)

// Timeouts applied to each kind of engine call.
const (
	RenditionTimeout    = time.Hour
	InitFallbackTimeout = time.Minute
	ProbeTimeout        = 30 * time.Second
	PlayabilityTimeout  = 30 * time.Second
	ThumbnailTimeout    = 30 * time.Second
	TrailerTimeout      = 5 * time.Minute
)

// stderrTailBytes bounds how much diagnostic text a Result keeps.
const stderrTailBytes = 8 * 1024

// Progress represents encoding progress information.
type Progress struct {
	Percent     float32
	Speed       float32
	FPS         float32
	ETA         time.Duration
	Bitrate     string
	ElapsedSecs float64
}

// ProgressCallback is called with progress updates during encoding.
type ProgressCallback func(Progress)

// Command describes one engine invocation.
type Command struct {
	// Name is the binary, e.g. "ffmpeg" or a configured absolute path.
	Name string
	Args []string
	// Dir is the working directory; relative output names resolve against it.
	Dir     string
	Timeout time.Duration

	// Duration of the source in seconds, used to turn time= into a percentage.
	Duration float64
	Progress ProgressCallback
}

func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result contains the outcome of one engine invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	Err      error
}

// Success reports whether the process ran and exited with status 0.
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Engine runs external transcoding commands. Run blocks until the process
// exits or its timeout elapses.
type Engine interface {
	Run(ctx context.Context, cmd Command) Result
}

// Executor is the os/exec backed Engine.
type Executor struct {
	lowPriority bool
	log         *logging.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLowPriority lowers the scheduling priority of every child process.
func WithLowPriority(enabled bool) ExecutorOption {
	return func(e *Executor) { e.lowPriority = enabled }
}

// WithLogger sets the logger used for command tracing.
func WithLogger(l *logging.Logger) ExecutorOption {
	return func(e *Executor) { e.log = l }
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{log: logging.Global()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var timeRegex = regexp.MustCompile(`time=(\d{2}:\d{2}:\d{2}\.?\d*)`)

// Run executes cmd and waits for it. stdout and stderr are drained
// concurrently so a chatty child can never block on a full pipe.
func (e *Executor) Run(ctx context.Context, cmd Command) Result {
	start := time.Now()
	name := cmd.Name
	if name == "" {
		name = "ffmpeg"
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, name, cmd.Args...)
	c.Dir = cmd.Dir

	stdout, err := c.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1, Err: fmt.Errorf("failed to get stdout pipe: %w", err)}
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1, Err: fmt.Errorf("failed to get stderr pipe: %w", err)}
	}

	e.log.Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir, "timeout", cmd.Timeout)

	if err := c.Start(); err != nil {
		return Result{ExitCode: -1, Elapsed: time.Since(start), Err: lerrors.NewCommandStartError(name, err)}
	}

	if e.lowPriority {
		if err := lowerPriority(c.Process.Pid); err != nil {
			e.log.Debug("could not lower process priority", "pid", c.Process.Pid, "error", err)
		}
	}

	var outBuf bytes.Buffer
	tail := newTailBuffer(stderrTailBytes)

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&outBuf, stdout)
		return err
	})
	g.Go(func() error {
		return drainStderr(stderr, tail, cmd.Duration, cmd.Progress)
	})
	drainErr := g.Wait()
	waitErr := c.Wait()

	res := Result{
		Stdout:  outBuf.String(),
		Stderr:  tail.String(),
		Elapsed: time.Since(start),
	}

	switch {
	case waitErr == nil:
		res.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.ExitCode = -1
		res.Err = lerrors.NewCommandTimeoutError(name, runCtx.Err())
	case ctx.Err() != nil:
		res.ExitCode = -1
		res.Err = fmt.Errorf("%s cancelled: %w", name, ctx.Err())
	default:
		res.ExitCode = c.ProcessState.ExitCode()
		res.Err = lerrors.WrapExecError(name, waitErr, lastLine(res.Stderr))
	}

	if res.Err == nil && drainErr != nil {
		e.log.Debug("output drain ended early", "cmd", name, "error", drainErr)
	}
	return res
}

// drainStderr copies stderr into tail and reports progress lines.
func drainStderr(r io.Reader, tail *tailBuffer, duration float64, callback ProgressCallback) error {
	reader := bufio.NewReader(r)
	var lineBuf strings.Builder

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		tail.add(b)

		// Progress lines end with \r, everything else with \n.
		if b == '\r' || b == '\n' {
			line := lineBuf.String()
			lineBuf.Reset()

			if callback != nil && strings.Contains(line, "time=") {
				if p := parseProgressLine(line, duration); p != nil {
					callback(*p)
				}
			}
		} else {
			lineBuf.WriteByte(b)
		}
	}
}

// parseProgressLine extracts progress information from an FFmpeg progress line.
func parseProgressLine(line string, duration float64) *Progress {
	matches := timeRegex.FindStringSubmatch(line)
	if len(matches) < 2 {
		return nil
	}
	elapsedSecs, ok := util.ParseFFmpegTime(matches[1])
	if !ok {
		return nil
	}

	var fps, speed float32
	if v, ok := fieldValue(line, "fps="); ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			fps = float32(f)
		}
	}
	if v, ok := fieldValue(line, "speed="); ok {
		if s, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 32); err == nil {
			speed = float32(s)
		}
	}
	bitrate, _ := fieldValue(line, "bitrate=")

	var percent float32
	if duration > 0 {
		percent = float32((elapsedSecs / duration) * 100)
		if percent > 100 {
			percent = 100
		}
	}

	var eta time.Duration
	if speed > 0 && duration > 0 {
		eta = time.Duration((duration-elapsedSecs)/float64(speed)) * time.Second
	}

	return &Progress{
		Percent:     percent,
		Speed:       speed,
		FPS:         fps,
		ETA:         eta,
		Bitrate:     bitrate,
		ElapsedSecs: elapsedSecs,
	}
}

// fieldValue returns the token following key, e.g. "1.5x" for "speed=".
func fieldValue(line, key string) (string, bool) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(line[idx+len(key):], " ")
	if end := strings.IndexAny(rest, " \t\r\n"); end >= 0 {
		rest = rest[:end]
	}
	return rest, rest != ""
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n ")
	if idx := strings.LastIndexAny(s, "\r\n"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// tailBuffer keeps the last limit bytes added to it.
type tailBuffer struct {
	buf   []byte
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(b byte) {
	t.buf = append(t.buf, b)
	if len(t.buf) > 2*t.limit {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.limit:]...)
	}
}

func (t *tailBuffer) String() string {
	if len(t.buf) > t.limit {
		return string(t.buf[len(t.buf)-t.limit:])
	}
	return string(t.buf)
}
