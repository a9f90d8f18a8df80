// Package quality buckets sources into tiers and selects encode targets.
package quality

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/five82/ladder/internal/ffmpeg"
)

// Tier is a quality label such as "720p". Tiers order by height.
type Tier string

const (
	Tier1080p Tier = "1080p"
	Tier720p  Tier = "720p"
	Tier480p  Tier = "480p"
	Tier360p  Tier = "360p"
)

// Height returns the nominal pixel height of the tier, or 0 for a label
// that does not end in "p".
func (t Tier) Height() int {
	n, err := strconv.Atoi(strings.TrimSuffix(string(t), "p"))
	if err != nil || !strings.HasSuffix(string(t), "p") {
		return 0
	}
	return n
}

// Compare returns -1, 0 or 1 as t is lower than, equal to or higher than o.
func (t Tier) Compare(o Tier) int {
	a, b := t.Height(), o.Height()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Codec identifies a video codec family.
type Codec int

const (
	// CodecH264 is the primary codec: at least one rendition must succeed.
	CodecH264 Codec = iota
	// CodecVP9 is the secondary codec, encoded best-effort.
	CodecVP9
)

// Codecs lists every codec family, primary first.
var Codecs = []Codec{CodecH264, CodecVP9}

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "h264"
	case CodecVP9:
		return "vp9"
	default:
		return fmt.Sprintf("codec(%d)", int(c))
	}
}

// Primary reports whether c is the codec a job cannot succeed without.
func (c Codec) Primary() bool {
	return c == CodecH264
}

// Encoder returns the ffmpeg encoder for c.
func (c Codec) Encoder() string {
	if c == CodecVP9 {
		return ffmpeg.EncoderVP9
	}
	return ffmpeg.EncoderH264
}

// ParseCodec parses "h264" or "vp9".
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "h264", "avc":
		return CodecH264, nil
	case "vp9":
		return CodecVP9, nil
	default:
		return 0, fmt.Errorf("unknown codec %q", s)
	}
}

// Threshold maps every height at or above MinHeight to Tier.
type Threshold struct {
	MinHeight int64
	Tier      Tier
}

// StandardThresholds folds full HD sources into the 720p tier.
var StandardThresholds = []Threshold{
	{MinHeight: 600, Tier: Tier720p},
	{MinHeight: 420, Tier: Tier480p},
	{MinHeight: 0, Tier: Tier360p},
}

// FullHDThresholds adds a distinct 1080p tier for sources of 1000 lines or more.
var FullHDThresholds = []Threshold{
	{MinHeight: 1000, Tier: Tier1080p},
	{MinHeight: 600, Tier: Tier720p},
	{MinHeight: 420, Tier: Tier480p},
	{MinHeight: 0, Tier: Tier360p},
}

// validateThresholds requires strictly descending bounds and tiers ending
// in a catch-all, which makes classification monotonic.
func validateThresholds(ts []Threshold) error {
	if len(ts) == 0 {
		return fmt.Errorf("threshold table is empty")
	}
	for i := 1; i < len(ts); i++ {
		if ts[i].MinHeight >= ts[i-1].MinHeight {
			return fmt.Errorf("threshold %d (%d) is not below %d", i, ts[i].MinHeight, ts[i-1].MinHeight)
		}
		if ts[i].Tier.Compare(ts[i-1].Tier) >= 0 {
			return fmt.Errorf("tier %s is not below %s", ts[i].Tier, ts[i-1].Tier)
		}
	}
	if ts[len(ts)-1].MinHeight != 0 {
		return fmt.Errorf("last threshold must start at 0, got %d", ts[len(ts)-1].MinHeight)
	}
	return nil
}
