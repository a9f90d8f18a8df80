// Package ffmpegtest provides a scripted ffmpeg.Engine for tests.
package ffmpegtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/five82/ladder/internal/ffmpeg"
)

// Handler decides what a fake invocation does. It may write files to
// simulate engine output.
type Handler func(cmd ffmpeg.Command) ffmpeg.Result

// Engine records every command and answers with Handler. A nil Handler
// succeeds without side effects.
type Engine struct {
	Handler Handler

	mu    sync.Mutex
	calls []ffmpeg.Command
}

// Run implements ffmpeg.Engine.
func (e *Engine) Run(_ context.Context, cmd ffmpeg.Command) ffmpeg.Result {
	e.mu.Lock()
	e.calls = append(e.calls, cmd)
	e.mu.Unlock()

	if e.Handler == nil {
		return ffmpeg.Result{}
	}
	return e.Handler(cmd)
}

// Calls returns a copy of the recorded commands.
func (e *Engine) Calls() []ffmpeg.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ffmpeg.Command(nil), e.calls...)
}

// CallsMatching returns the recorded commands whose arguments contain all
// of the given tokens.
func (e *Engine) CallsMatching(tokens ...string) []ffmpeg.Command {
	var out []ffmpeg.Command
	for _, c := range e.Calls() {
		if HasArgs(c, tokens...) {
			out = append(out, c)
		}
	}
	return out
}

// HasArgs reports whether every token appears in cmd.Args.
func HasArgs(cmd ffmpeg.Command, tokens ...string) bool {
	for _, tok := range tokens {
		found := false
		for _, a := range cmd.Args {
			if a == tok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Fail returns a non-zero exit result.
func Fail(code int, stderr string) ffmpeg.Result {
	return ffmpeg.Result{ExitCode: code, Stderr: stderr, Err: fmt.Errorf("exit status %d", code)}
}

// OK returns a successful result with the given stdout.
func OK(stdout string) ffmpeg.Result {
	return ffmpeg.Result{Stdout: stdout}
}

// IsHLS reports whether cmd is an HLS rendition or audio encode.
func IsHLS(cmd ffmpeg.Command) bool {
	return HasArgs(cmd, "-f", "hls")
}

// IsInitFallback reports whether cmd is an init-only fallback call.
func IsInitFallback(cmd ffmpeg.Command) bool {
	return HasArgs(cmd, "-movflags", "frag_keyframe+empty_moov+default_base_moof")
}

// WriteHLS simulates a successful HLS encode in cmd.Dir: an init segment
// (unless skipInit), segments named after the command's pattern, and a
// manifest referencing them.
func WriteHLS(cmd ffmpeg.Command, segments int, skipInit bool) error {
	manifest := cmd.Args[len(cmd.Args)-1]
	pattern := argValue(cmd, "-hls_segment_filename")
	if pattern == "" {
		return fmt.Errorf("not an HLS command: %v", cmd.Args)
	}

	if !skipInit {
		if err := os.WriteFile(filepath.Join(cmd.Dir, ffmpeg.InitFilename), []byte("ftypinit"), 0o644); err != nil {
			return err
		}
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:7\n#EXT-X-TARGETDURATION:5\n#EXT-X-PLAYLIST-TYPE:VOD\n")
	b.WriteString("#EXT-X-INDEPENDENT-SEGMENTS\n")
	fmt.Fprintf(&b, "#EXT-X-MAP:URI=\"%s\"\n", ffmpeg.InitFilename)
	for i := 1; i <= segments; i++ {
		name := fmt.Sprintf(pattern, i)
		if err := os.WriteFile(filepath.Join(cmd.Dir, name), []byte("moof"), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(&b, "#EXTINF:5.000000,\n%s\n", name)
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	return os.WriteFile(filepath.Join(cmd.Dir, manifest), []byte(b.String()), 0o644)
}

// WriteInit simulates a successful init fallback call.
func WriteInit(cmd ffmpeg.Command) error {
	return os.WriteFile(cmd.Args[len(cmd.Args)-1], []byte("ftypinit"), 0o644)
}

// WriteLastArg creates the output file named by the final argument, as
// thumbnail and trailer calls do.
func WriteLastArg(cmd ffmpeg.Command) error {
	return os.WriteFile(cmd.Args[len(cmd.Args)-1], []byte("data"), 0o644)
}

func argValue(cmd ffmpeg.Command, flag string) string {
	for i, a := range cmd.Args {
		if a == flag && i+1 < len(cmd.Args) {
			return cmd.Args[i+1]
		}
	}
	return ""
}
