package ffmpeg

import (
	"strconv"
)

// File names the engine writes inside a rendition or audio folder.
const (
	InitFilename        = "init.mp4"
	VideoManifestName   = "video.m3u8"
	VideoSegmentPattern = "video%d.m4s"
	AudioManifestName   = "aac.m3u8"
	AudioSegmentPattern = "audio%d.m4s"
)

// Trailer settings.
const (
	TrailerLength = 4.0
	TrailerHeight = 360
)

// hlsArgs returns the fMP4 HLS muxer flags. Segment numbering starts at 1.
func hlsArgs(segmentDuration int, segmentPattern, manifest string) []string {
	return []string{
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentDuration),
		"-hls_playlist_type", "vod",
		"-hls_segment_type", "fmp4",
		"-hls_fmp4_init_filename", InitFilename,
		"-hls_segment_filename", segmentPattern,
		"-hls_flags", "independent_segments",
		"-start_number", "1",
		manifest,
	}
}

// fallbackArgs asks for a near-zero-length fragmented MP4 so the muxer
// emits only the initialization segment.
func fallbackArgs(initPath string) []string {
	return []string{
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
		"-t", "0.001",
		initPath,
	}
}

// RenditionArgs builds a video-only HLS encode. Output names are relative,
// so the command must run inside the rendition folder.
func RenditionArgs(source string, p VideoParams, segmentDuration int) []string {
	args := []string{"-y", "-i", source, "-an"}
	args = append(args, VideoCodecArgs(p)...)
	return append(args, hlsArgs(segmentDuration, VideoSegmentPattern, VideoManifestName)...)
}

// VideoInitFallbackArgs builds the init-only call for a video rendition.
func VideoInitFallbackArgs(source string, p VideoParams, initPath string) []string {
	args := []string{"-y", "-i", source, "-an"}
	args = append(args, VideoCodecArgs(p)...)
	return append(args, fallbackArgs(initPath)...)
}

// AudioArgs builds an audio-only HLS encode with a stereo downmix.
func AudioArgs(source string, kbps, segmentDuration int) []string {
	args := []string{"-y", "-i", source, "-vn"}
	args = append(args, AudioCodecArgs(kbps)...)
	return append(args, hlsArgs(segmentDuration, AudioSegmentPattern, AudioManifestName)...)
}

// AudioInitFallbackArgs builds the init-only call for the audio track.
func AudioInitFallbackArgs(source string, kbps int, initPath string) []string {
	args := []string{"-y", "-i", source, "-vn"}
	args = append(args, AudioCodecArgs(kbps)...)
	return append(args, fallbackArgs(initPath)...)
}

// ThumbnailArgs grabs a single high quality frame at the given offset.
func ThumbnailArgs(source string, at float64, output string) []string {
	return []string{
		"-y",
		"-ss", FormatSeconds(at),
		"-i", source,
		"-vframes", "1",
		"-q:v", "2",
		output,
	}
}

// TrailerArgs builds a short muted low-bitrate clip. Seeking after the
// input is slower but frame accurate.
func TrailerArgs(source string, start float64, output string) []string {
	args := []string{
		"-y",
		"-i", source,
		"-ss", FormatSeconds(start),
		"-t", FormatSeconds(TrailerLength),
		"-an",
	}
	args = append(args, "-vf", NewVideoFilterChain().AddScale(TrailerHeight).Build())
	args = append(args, NewVideoArgsBuilder(EncoderH264).
		AddParam("-preset", "medium").
		AddParam("-crf", "35").
		WithProfile("baseline", "3.0").
		AddParam("-movflags", "+faststart").
		AddParam("-pix_fmt", "yuv420p").
		Build()...)
	return append(args, output)
}

// TrailerStart returns where the trailer begins: 10% in to skip intros, but
// never so late that the clip would run past the end.
func TrailerStart(duration float64) float64 {
	latest := duration - TrailerLength - 1
	if latest < 0 {
		latest = 0
	}
	start := duration * 0.10
	if start > latest {
		return latest
	}
	return start
}

// PlayabilityArgs demuxes and decodes the whole manifest, discarding output.
func PlayabilityArgs(manifest string) []string {
	return []string{"-v", "error", "-i", manifest, "-f", "null", "-"}
}

// ProbeStreamArgs asks ffprobe for the first video stream's geometry and bitrate.
func ProbeStreamArgs(source string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,bit_rate",
		"-of", "csv=p=0",
		source,
	}
}

// ProbeDurationArgs asks ffprobe for the container duration.
func ProbeDurationArgs(source string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		source,
	}
}

// FormatSeconds renders a seek offset with millisecond precision.
func FormatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
