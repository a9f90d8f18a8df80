package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrMissingPath indicates a required directory path was empty.
	ErrMissingPath = errors.New("required path missing")

	// ErrInvalidSegmentDuration indicates a segment length outside the valid range.
	ErrInvalidSegmentDuration = errors.New("segment duration out of range")

	// ErrInvalidThumbnail indicates a thumbnail percentage outside 0-100.
	ErrInvalidThumbnail = errors.New("thumbnail percentage out of range")

	// ErrInvalidTierProfile indicates an unknown tier profile name.
	ErrInvalidTierProfile = errors.New("invalid tier profile")

	// ErrInvalidTrailer indicates an unusable trailer threshold.
	ErrInvalidTrailer = errors.New("trailer configuration invalid")

	// ErrInvalidPublish indicates a half-configured publish target.
	ErrInvalidPublish = errors.New("publish configuration invalid")

	// ErrUnsupportedFormat indicates a config file extension Load cannot read.
	ErrUnsupportedFormat = errors.New("unsupported config file format")
)
