// Package manifest writes HLS master playlists and reads the media
// playlists the engine produces.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/ffmpeg"
	"github.com/five82/ladder/internal/quality"
)

// Names and references used by master playlists.
const (
	UnifiedName  = "playlist.m3u8"
	AudioGroupID = "audio"
	// AudioURI is relative to the video/ directory holding the masters.
	AudioURI = "../audio/" + ffmpeg.AudioManifestName
)

// MasterName returns the per-codec master file name, e.g. master_h264.m3u8.
func MasterName(codec quality.Codec) string {
	return "master_" + codec.String() + ".m3u8"
}

// IsMasterName reports whether name is a master or unified playlist.
func IsMasterName(name string) bool {
	if name == UnifiedName {
		return true
	}
	for _, c := range quality.Codecs {
		if name == MasterName(c) {
			return true
		}
	}
	return false
}

// Group is one codec family's renditions in a master playlist.
type Group struct {
	Codec      quality.Codec
	Renditions []quality.EncodeTarget
	// PeakHeight marks the rendition that also advertises AVERAGE-BANDWIDTH
	// and FRAME-RATE. Zero marks none.
	PeakHeight int
}

// Render builds a master playlist for videoDir. Renditions whose media
// playlist is missing are left out. The audio group is declared only when
// hasAudio is set and the audio playlist exists.
func Render(videoDir string, groups []Group, hasAudio bool) []byte {
	audio := hasAudio && fileExists(filepath.Join(videoDir, filepath.FromSlash(AudioURI)))

	version := 0
	for _, g := range groups {
		if len(g.Renditions) > 0 && Version(g.Codec) > version {
			version = Version(g.Codec)
		}
	}
	if version == 0 {
		version = Version(quality.CodecH264)
	}

	var b bytes.Buffer
	b.WriteString("#EXTM3U\n")
	fmt.Fprintf(&b, "#EXT-X-VERSION:%d\n", version)

	if audio {
		fmt.Fprintf(&b, "#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"%s\",NAME=\"English\",DEFAULT=YES,AUTOSELECT=YES,LANGUAGE=\"en\",URI=\"%s\"\n",
			AudioGroupID, AudioURI)
	}

	for _, g := range groups {
		renditions := append([]quality.EncodeTarget(nil), g.Renditions...)
		sort.SliceStable(renditions, func(i, j int) bool {
			return renditions[i].Height > renditions[j].Height
		})

		for _, r := range renditions {
			if !fileExists(filepath.Join(videoDir, r.Folder, ffmpeg.VideoManifestName)) {
				continue
			}
			writeStreamInf(&b, g.Codec, r, g.PeakHeight > 0 && r.Height == g.PeakHeight, audio)
			fmt.Fprintf(&b, "%s/%s\n", r.Folder, ffmpeg.VideoManifestName)
		}
	}
	return b.Bytes()
}

func writeStreamInf(b *bytes.Buffer, codec quality.Codec, r quality.EncodeTarget, peak, audio bool) {
	fmt.Fprintf(b, "#EXT-X-STREAM-INF:BANDWIDTH=%d", r.Bandwidth)
	if peak {
		fmt.Fprintf(b, ",AVERAGE-BANDWIDTH=%d", r.Bandwidth)
	}
	fmt.Fprintf(b, ",RESOLUTION=%dx%d", r.Width(), r.Height)
	if peak {
		fmt.Fprintf(b, ",FRAME-RATE=%d", PeakFrameRate)
	}

	codecs := CodecString(codec, r.Height)
	if audio {
		codecs += "," + AudioCodecString
	}
	fmt.Fprintf(b, ",CODECS=\"%s\"", codecs)
	if audio {
		fmt.Fprintf(b, ",AUDIO=\"%s\"", AudioGroupID)
	}
	b.WriteByte('\n')
}

// Write renders groups and replaces the file at path in one write. The
// playlist's directory is the video/ directory it describes.
func Write(path string, groups []Group, hasAudio bool) error {
	data := Render(filepath.Dir(path), groups, hasAudio)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return lerrors.NewManifestError("failed to write "+filepath.Base(path), err)
	}
	return nil
}

// WriteMaster writes master_<codec>.m3u8 for one codec family and returns
// its path.
func WriteMaster(videoDir string, g Group, hasAudio bool) (string, error) {
	path := filepath.Join(videoDir, MasterName(g.Codec))
	return path, Write(path, []Group{g}, hasAudio)
}

// WriteUnified writes playlist.m3u8 listing both codec families, primary
// first, and returns its path.
func WriteUnified(videoDir string, primary, secondary Group, hasAudio bool) (string, error) {
	path := filepath.Join(videoDir, UnifiedName)
	return path, Write(path, []Group{primary, secondary}, hasAudio)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
