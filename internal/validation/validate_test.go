package validation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/ffmpeg"
	"github.com/five82/ladder/internal/ffmpeg/ffmpegtest"
	"github.com/five82/ladder/internal/logging"
)

const masterWithAudio = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="audio",NAME="English",DEFAULT=YES,AUTOSELECT=YES,LANGUAGE="en",URI="../audio/aac.m3u8"
#EXT-X-STREAM-INF:BANDWIDTH=900000,RESOLUTION=640x360,CODECS="avc1.4d401e,mp4a.40.2",AUDIO="audio"
h264_360p/video.m3u8
`

const masterWithoutAudio = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=900000,RESOLUTION=640x360,CODECS="avc1.4d401e"
h264_360p/video.m3u8
`

// fixture writes a package under a temp dir and returns it.
func fixture(t *testing.T, manifestName, manifestBody string, initBody string, segments int) Package {
	t.Helper()
	videoDir := filepath.Join(t.TempDir(), "video")
	rendDir := filepath.Join(videoDir, "h264_360p")
	if err := os.MkdirAll(rendDir, 0o755); err != nil {
		t.Fatal(err)
	}

	pkg := Package{
		ManifestPath: filepath.Join(videoDir, manifestName),
		InitPath:     filepath.Join(rendDir, "init.mp4"),
	}
	write := func(path, body string) {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(pkg.ManifestPath, manifestBody)
	write(pkg.InitPath, initBody)
	for i := 1; i <= segments; i++ {
		seg := filepath.Join(rendDir, "video"+string(rune('0'+i))+".m4s")
		write(seg, "moof")
		pkg.SegmentPaths = append(pkg.SegmentPaths, seg)
	}
	return pkg
}

func newTestValidator(engine ffmpeg.Engine) *Validator {
	return NewValidator(engine, "", logging.Discard())
}

func TestValidatePlayable(t *testing.T) {
	pkg := fixture(t, "playlist.m3u8", masterWithoutAudio, "ftyp", 3)
	engine := &ffmpegtest.Engine{}

	o := newTestValidator(engine).Validate(context.Background(), pkg)
	if !o.Valid || o.Err != nil {
		t.Fatalf("Validate() = %+v", o)
	}
	if !o.ManifestOK || !o.InitOK || !o.SegmentsOK || !o.Playable || o.PlayabilitySkipped {
		t.Errorf("flags = %+v", o)
	}

	calls := engine.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one playability probe, got %d", len(calls))
	}
	c := calls[0]
	if c.Dir != filepath.Dir(pkg.ManifestPath) || c.Timeout != ffmpeg.PlayabilityTimeout || c.Name != "ffmpeg" {
		t.Errorf("probe command = %+v", c)
	}
	if strings.Join(c.Args, " ") != "-v error -i playlist.m3u8 -f null -" {
		t.Errorf("probe args = %v", c.Args)
	}
}

func TestValidateSkipsPlayabilityForMasterWithAudio(t *testing.T) {
	for _, name := range []string{"playlist.m3u8", "master_h264.m3u8", "master_vp9.m3u8"} {
		t.Run(name, func(t *testing.T) {
			pkg := fixture(t, name, masterWithAudio, "ftyp", 1)
			engine := &ffmpegtest.Engine{Handler: func(ffmpeg.Command) ffmpeg.Result {
				return ffmpegtest.Fail(1, "should not run")
			}}

			o := newTestValidator(engine).Validate(context.Background(), pkg)
			if !o.Valid || !o.PlayabilitySkipped || !o.Playable {
				t.Fatalf("Validate() = %+v", o)
			}
			if len(engine.Calls()) != 0 {
				t.Error("probe must be skipped")
			}
		})
	}
}

func TestValidateProbesMediaPlaylists(t *testing.T) {
	// A media playlist is always probed, whatever it contains.
	pkg := fixture(t, "video.m3u8", masterWithAudio, "ftyp", 1)
	engine := &ffmpegtest.Engine{}
	o := newTestValidator(engine).Validate(context.Background(), pkg)
	if !o.Valid || o.PlayabilitySkipped || len(engine.Calls()) != 1 {
		t.Errorf("Validate() = %+v, calls = %d", o, len(engine.Calls()))
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) Package
		engine ffmpegtest.Handler
		check  func(t *testing.T, o *Outcome)
	}{
		{
			name: "missing manifest",
			setup: func(t *testing.T) Package {
				pkg := fixture(t, "playlist.m3u8", masterWithoutAudio, "ftyp", 1)
				_ = os.Remove(pkg.ManifestPath)
				return pkg
			},
			check: func(t *testing.T, o *Outcome) {
				if o.ManifestOK || o.InitOK {
					t.Errorf("checks after manifest must not pass: %+v", o)
				}
			},
		},
		{
			name: "empty manifest",
			setup: func(t *testing.T) Package {
				return fixture(t, "playlist.m3u8", "", "ftyp", 1)
			},
			check: func(t *testing.T, o *Outcome) {
				if o.ManifestOK {
					t.Error("empty manifest accepted")
				}
			},
		},
		{
			name: "empty init",
			setup: func(t *testing.T) Package {
				return fixture(t, "playlist.m3u8", masterWithoutAudio, "", 1)
			},
			check: func(t *testing.T, o *Outcome) {
				if !o.ManifestOK || o.InitOK || o.SegmentsOK {
					t.Errorf("flags = %+v", o)
				}
			},
		},
		{
			name: "no segments",
			setup: func(t *testing.T) Package {
				return fixture(t, "playlist.m3u8", masterWithoutAudio, "ftyp", 0)
			},
			check: func(t *testing.T, o *Outcome) {
				if !o.InitOK || o.SegmentsOK {
					t.Errorf("flags = %+v", o)
				}
			},
		},
		{
			name: "missing segment",
			setup: func(t *testing.T) Package {
				pkg := fixture(t, "playlist.m3u8", masterWithoutAudio, "ftyp", 3)
				_ = os.Remove(pkg.SegmentPaths[1])
				return pkg
			},
			check: func(t *testing.T, o *Outcome) {
				if len(o.Missing) != 1 || !strings.HasSuffix(o.Missing[0], "video2.m4s") {
					t.Errorf("Missing = %v", o.Missing)
				}
				if o.Playable {
					t.Error("probe must not run after a segment failure")
				}
			},
		},
		{
			name: "probe fails",
			setup: func(t *testing.T) Package {
				return fixture(t, "playlist.m3u8", masterWithoutAudio, "ftyp", 2)
			},
			engine: func(ffmpeg.Command) ffmpeg.Result {
				return ffmpegtest.Fail(1, "Invalid data found when processing input")
			},
			check: func(t *testing.T, o *Outcome) {
				if !o.SegmentsOK || o.Playable {
					t.Errorf("flags = %+v", o)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &ffmpegtest.Engine{Handler: tt.engine}
			o := newTestValidator(engine).Validate(context.Background(), tt.setup(t))
			if o.Valid {
				t.Fatal("expected invalid outcome")
			}
			if !lerrors.IsKind(o.Err, lerrors.KindValidation) {
				t.Errorf("Err = %v, want validation failure", o.Err)
			}
			if len(o.GetFailures()) == 0 {
				t.Error("GetFailures() should not be empty")
			}
			tt.check(t, o)
		})
	}
}

func TestOutcomeSteps(t *testing.T) {
	o := &Outcome{Valid: true, ManifestOK: true, InitOK: true, SegmentsOK: true, Playable: true, PlayabilitySkipped: true, Segments: 4}
	steps := o.Steps()
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	for _, s := range steps {
		if !s.Passed {
			t.Errorf("step %s should pass", s.Name)
		}
	}
	if steps[2].Details != "4 present" {
		t.Errorf("segment details = %q", steps[2].Details)
	}
	if !strings.Contains(steps[3].Details, "skipped") {
		t.Errorf("playability details = %q", steps[3].Details)
	}
	if len(o.GetFailures()) != 0 {
		t.Errorf("GetFailures() = %v", o.GetFailures())
	}
}
