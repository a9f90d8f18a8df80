package quality

import (
	"fmt"

	"github.com/five82/ladder/internal/config"
	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/ffprobe"
)

// MaxCatalogSize caps how many renditions one codec may produce.
const MaxCatalogSize = 4

// DefaultAudioBitrateK is the AAC bitrate of the shared audio track.
const DefaultAudioBitrateK = 128

// EncodeTarget is one rendition to produce.
type EncodeTarget struct {
	Tier          Tier
	Codec         Codec
	Height        int
	VideoBitrateK int
	AudioBitrateK int
	// Bandwidth is the estimate advertised in master manifests, in bits/s.
	Bandwidth int
	// Folder is the rendition directory under video/, e.g. "h264_720p".
	Folder string
}

// Width returns the 16:9 width advertised for the rendition.
func (t EncodeTarget) Width() int {
	return t.Height * 16 / 9
}

func (t EncodeTarget) String() string {
	return t.Folder
}

func newTarget(codec Codec, tier Tier, videoK, bandwidth int) EncodeTarget {
	return EncodeTarget{
		Tier:          tier,
		Codec:         codec,
		Height:        tier.Height(),
		VideoBitrateK: videoK,
		AudioBitrateK: DefaultAudioBitrateK,
		Bandwidth:     bandwidth,
		Folder:        fmt.Sprintf("%s_%s", codec, tier),
	}
}

// H264Catalog returns the primary codec ladder, highest first.
func H264Catalog() []EncodeTarget {
	return []EncodeTarget{
		newTarget(CodecH264, Tier1080p, 5000, 5500000),
		newTarget(CodecH264, Tier720p, 2800, 3000000),
		newTarget(CodecH264, Tier480p, 1400, 1500000),
		newTarget(CodecH264, Tier360p, 800, 900000),
	}
}

// VP9Catalog returns the secondary codec ladder, highest first. VP9 reaches
// the same quality at roughly two thirds of the H.264 rate.
func VP9Catalog() []EncodeTarget {
	return []EncodeTarget{
		newTarget(CodecVP9, Tier1080p, 3500, 3800000),
		newTarget(CodecVP9, Tier720p, 1800, 2000000),
		newTarget(CodecVP9, Tier480p, 900, 1000000),
		newTarget(CodecVP9, Tier360p, 500, 600000),
	}
}

func validateCatalog(codec Codec, entries []EncodeTarget) error {
	if len(entries) > MaxCatalogSize {
		return fmt.Errorf("%s catalog has %d entries, max %d", codec, len(entries), MaxCatalogSize)
	}
	for i, e := range entries {
		if e.Codec != codec {
			return fmt.Errorf("%s catalog entry %s belongs to %s", codec, e.Folder, e.Codec)
		}
		if e.Height <= 0 || e.VideoBitrateK <= 0 || e.Bandwidth <= 0 {
			return fmt.Errorf("%s catalog entry %s is incomplete", codec, e.Folder)
		}
		if i > 0 && e.Height >= entries[i-1].Height {
			return fmt.Errorf("%s catalog is not in descending height order at %s", codec, e.Folder)
		}
	}
	return nil
}

// Classifier buckets probes into tiers and picks targets per codec.
type Classifier struct {
	thresholds []Threshold
	catalogs   map[Codec][]EncodeTarget
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithCatalog replaces the catalog used for codec.
func WithCatalog(codec Codec, entries []EncodeTarget) Option {
	return func(c *Classifier) {
		c.catalogs[codec] = append([]EncodeTarget(nil), entries...)
	}
}

// NewClassifier builds a Classifier over the given threshold table and the
// default catalogs.
func NewClassifier(thresholds []Threshold, opts ...Option) (*Classifier, error) {
	if err := validateThresholds(thresholds); err != nil {
		return nil, lerrors.NewConfigError(err.Error())
	}

	c := &Classifier{
		thresholds: append([]Threshold(nil), thresholds...),
		catalogs: map[Codec][]EncodeTarget{
			CodecH264: H264Catalog(),
			CodecVP9:  VP9Catalog(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	for codec, entries := range c.catalogs {
		if err := validateCatalog(codec, entries); err != nil {
			return nil, lerrors.NewConfigError(err.Error())
		}
	}
	return c, nil
}

// NewClassifierForProfile picks the threshold table named by a config
// tier profile.
func NewClassifierForProfile(profile string, opts ...Option) (*Classifier, error) {
	p, err := config.ParseTierProfile(profile)
	if err != nil {
		return nil, lerrors.NewConfigError(err.Error())
	}
	if p == config.TierProfileFullHD {
		return NewClassifier(FullHDThresholds, opts...)
	}
	return NewClassifier(StandardThresholds, opts...)
}

// Classify returns the tier for a probed source.
func (c *Classifier) Classify(p ffprobe.SourceProbe) Tier {
	return c.ClassifyHeight(p.Height)
}

// ClassifyHeight returns the first tier whose threshold height admits.
func (c *Classifier) ClassifyHeight(height int64) Tier {
	for _, t := range c.thresholds {
		if height >= t.MinHeight {
			return t.Tier
		}
	}
	return c.thresholds[len(c.thresholds)-1].Tier
}

// Catalog returns a copy of the catalog for codec.
func (c *Classifier) Catalog(codec Codec) []EncodeTarget {
	return append([]EncodeTarget(nil), c.catalogs[codec]...)
}

// TargetsFor returns the catalog entries at or below tier, highest first.
// When tier itself is not in the codec's catalog the list starts at the
// first entry no taller than the tier.
func (c *Classifier) TargetsFor(tier Tier, codec Codec) ([]EncodeTarget, error) {
	entries := c.catalogs[codec]
	if len(entries) == 0 {
		return nil, lerrors.NewClassificationError(fmt.Sprintf("no %s catalog configured", codec), nil)
	}

	start := -1
	for i, e := range entries {
		if e.Tier == tier {
			start = i
			break
		}
	}
	if start < 0 {
		h := tier.Height()
		for i, e := range entries {
			if e.Height <= h {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return nil, lerrors.NewClassificationError(
			fmt.Sprintf("no %s target at or below %s", codec, tier), nil)
	}

	return append([]EncodeTarget(nil), entries[start:]...), nil
}

// PeakHeight returns the tallest height in codec's catalog, or 0.
func (c *Classifier) PeakHeight(codec Codec) int {
	if entries := c.catalogs[codec]; len(entries) > 0 {
		return entries[0].Height
	}
	return 0
}
