// Package ffmpeg provides FFmpeg command building and execution.
package ffmpeg

import (
	"fmt"
	"strconv"
)

// Encoder names understood by ffmpeg.
const (
	EncoderH264 = "libx264"
	EncoderVP9  = "libvpx-vp9"
	EncoderAAC  = "aac"
)

// VideoParams describes the codec half of a video-only encode.
type VideoParams struct {
	Encoder  string
	Height   int
	BitrateK int
}

// VideoArgsBuilder builds video codec arguments with method chaining.
type VideoArgsBuilder struct {
	args []string
}

// NewVideoArgsBuilder creates a builder for the given encoder.
func NewVideoArgsBuilder(encoder string) *VideoArgsBuilder {
	return &VideoArgsBuilder{args: []string{"-c:v", encoder}}
}

// WithBitrate sets the target bitrate, capping the peak at the same value
// with a two-second buffer.
func (b *VideoArgsBuilder) WithBitrate(kbps int) *VideoArgsBuilder {
	rate := fmt.Sprintf("%dk", kbps)
	b.args = append(b.args, "-b:v", rate, "-maxrate", rate, "-bufsize", fmt.Sprintf("%dk", kbps*2))
	return b
}

// WithHeight scales to the given height, keeping the width even.
func (b *VideoArgsBuilder) WithHeight(height int) *VideoArgsBuilder {
	return b.WithFilters(NewVideoFilterChain().AddScale(height))
}

// WithFilters adds a -vf argument for a non-empty chain.
func (b *VideoArgsBuilder) WithFilters(chain *VideoFilterChain) *VideoArgsBuilder {
	if !chain.IsEmpty() {
		b.args = append(b.args, "-vf", chain.Build())
	}
	return b
}

// WithProfile sets the H.264 profile and level.
func (b *VideoArgsBuilder) WithProfile(profile, level string) *VideoArgsBuilder {
	b.args = append(b.args, "-profile:v", profile)
	if level != "" {
		b.args = append(b.args, "-level", level)
	}
	return b
}

// AddParam adds a custom flag and value.
func (b *VideoArgsBuilder) AddParam(flag, value string) *VideoArgsBuilder {
	b.args = append(b.args, flag, value)
	return b
}

// Build returns a copy of the accumulated arguments.
func (b *VideoArgsBuilder) Build() []string {
	return append([]string(nil), b.args...)
}

// VideoCodecArgs returns the codec arguments shared by the rendition and
// init fallback calls for p.
func VideoCodecArgs(p VideoParams) []string {
	b := NewVideoArgsBuilder(p.Encoder).WithBitrate(p.BitrateK).WithHeight(p.Height)
	switch p.Encoder {
	case EncoderH264:
		b.WithProfile("main", "4.0")
	case EncoderVP9:
		b.AddParam("-row-mt", "1").AddParam("-cpu-used", "2")
	}
	return b.Build()
}

// AudioCodecArgs returns AAC stereo arguments at the given bitrate.
func AudioCodecArgs(kbps int) []string {
	return []string{"-c:a", EncoderAAC, "-b:a", strconv.Itoa(kbps) + "k", "-ac", "2"}
}
