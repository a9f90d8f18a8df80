// Package config provides configuration types and defaults for ladder.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Default constants
const (
	// DefaultSegmentDuration is the HLS segment length in seconds.
	DefaultSegmentDuration = 5

	// DefaultTrailerMinDuration is the source length in seconds a trailer requires.
	DefaultTrailerMinDuration float64 = 10

	// DefaultTierProfile folds 1080p sources into the 720p tier.
	DefaultTierProfile = TierProfileStandard

	// MaxSegmentDuration bounds the HLS segment length.
	MaxSegmentDuration = 60

	// LogDirName is the log subdirectory created under the output directory.
	LogDirName = "logs"
)

// DefaultThumbnailPercentages are the positions thumbnails are taken at.
var DefaultThumbnailPercentages = []int{30, 50, 70}

// Tier profile names accepted by TierProfile.
const (
	TierProfileStandard = "standard"
	TierProfileFullHD   = "full_hd"
)

// ParseTierProfile normalizes a tier profile name.
func ParseTierProfile(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", TierProfileStandard:
		return TierProfileStandard, nil
	case TierProfileFullHD, "fullhd", "1080p":
		return TierProfileFullHD, nil
	default:
		return "", fmt.Errorf("%w: '%s', valid options: standard, full_hd", ErrInvalidTierProfile, s)
	}
}

// PublishConfig holds the optional object storage target.
type PublishConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKey string `json:"access_key" yaml:"access_key" envconfig:"ACCESS_KEY"`
	SecretKey string `json:"secret_key" yaml:"secret_key" envconfig:"SECRET_KEY"`
	Bucket    string `json:"bucket" yaml:"bucket" envconfig:"BUCKET"`
	Prefix    string `json:"prefix" yaml:"prefix" envconfig:"PREFIX"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl" envconfig:"USE_SSL"`
}

// Enabled reports whether packages should be uploaded.
func (p PublishConfig) Enabled() bool {
	return p.Endpoint != "" && p.Bucket != ""
}

// Config holds all configuration for a batch run.
type Config struct {
	// Input/output paths
	InputDir  string `json:"input_directory_path" yaml:"input_directory_path" envconfig:"INPUT_DIR"`
	OutputDir string `json:"output_directory_path" yaml:"output_directory_path" envconfig:"OUTPUT_DIR"`
	LogDir    string `json:"log_directory_path" yaml:"log_directory_path" envconfig:"LOG_DIR"`

	// Post-processing
	Compress             bool  `json:"compress" yaml:"compress" envconfig:"COMPRESS"`
	DeleteOriginals      bool  `json:"delete_mp4" yaml:"delete_mp4" envconfig:"DELETE_ORIGINALS"`
	ThumbnailPercentages []int `json:"thumbnail_video_percentage" yaml:"thumbnail_video_percentage" envconfig:"THUMBNAILS"`

	// Packaging
	SegmentDuration    int     `json:"segment_duration" yaml:"segment_duration" envconfig:"SEGMENT_DURATION"`
	TierProfile        string  `json:"tier_profile" yaml:"tier_profile" envconfig:"TIER_PROFILE"`
	TrailerMinDuration float64 `json:"trailer_min_duration" yaml:"trailer_min_duration" envconfig:"TRAILER_MIN_DURATION"`

	// External tools
	FFmpegPath  string `json:"ffmpeg_path" yaml:"ffmpeg_path" envconfig:"FFMPEG"`
	FFprobePath string `json:"ffprobe_path" yaml:"ffprobe_path" envconfig:"FFPROBE"`
	LowPriority bool   `json:"low_priority" yaml:"low_priority" envconfig:"LOW_PRIORITY"`

	// Run control
	StopFile    string `json:"stop_file" yaml:"stop_file" envconfig:"STOP_FILE"`
	MetricsFile string `json:"metrics_file" yaml:"metrics_file" envconfig:"METRICS_FILE"`

	Publish PublishConfig `json:"publish" yaml:"publish" envconfig:"PUBLISH"`
}

// NewConfig creates a new Config with default values.
func NewConfig(inputDir, outputDir, logDir string) *Config {
	return &Config{
		InputDir:             inputDir,
		OutputDir:            outputDir,
		LogDir:               logDir,
		ThumbnailPercentages: append([]int(nil), DefaultThumbnailPercentages...),
		SegmentDuration:      DefaultSegmentDuration,
		TierProfile:          DefaultTierProfile,
		TrailerMinDuration:   DefaultTrailerMinDuration,
		FFmpegPath:           "ffmpeg",
		FFprobePath:          "ffprobe",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: input_directory_path", ErrMissingPath)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_directory_path", ErrMissingPath)
	}

	if c.SegmentDuration < 1 || c.SegmentDuration > MaxSegmentDuration {
		return fmt.Errorf("%w: must be 1-%d, got %d", ErrInvalidSegmentDuration, MaxSegmentDuration, c.SegmentDuration)
	}

	for _, p := range c.ThumbnailPercentages {
		if p < 0 || p > 100 {
			return fmt.Errorf("%w: %d is outside 0-100", ErrInvalidThumbnail, p)
		}
	}

	profile, err := ParseTierProfile(c.TierProfile)
	if err != nil {
		return err
	}
	c.TierProfile = profile

	if c.TrailerMinDuration < 0 {
		return fmt.Errorf("%w: trailer_min_duration must not be negative", ErrInvalidTrailer)
	}

	if (c.Publish.Endpoint == "") != (c.Publish.Bucket == "") {
		return fmt.Errorf("%w: endpoint and bucket must be set together", ErrInvalidPublish)
	}

	return nil
}

// GetLogDir returns the log directory, falling back to OutputDir/logs.
func (c *Config) GetLogDir() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return filepath.Join(c.OutputDir, LogDirName)
}

// SortedThumbnails returns the thumbnail percentages in ascending order
// without duplicates.
func (c *Config) SortedThumbnails() []int {
	seen := make(map[int]bool, len(c.ThumbnailPercentages))
	out := make([]int, 0, len(c.ThumbnailPercentages))
	for _, p := range c.ThumbnailPercentages {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
