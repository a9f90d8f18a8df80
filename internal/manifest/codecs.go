package manifest

import "github.com/five82/ladder/internal/quality"

type codecHeight struct {
	codec  quality.Codec
	height int
}

// codecStrings maps a rendition to its RFC 6381 codec identifier.
var codecStrings = map[codecHeight]string{
	{quality.CodecH264, 720}: "avc1.64001f",
	{quality.CodecH264, 360}: "avc1.4d401e",
	{quality.CodecVP9, 1080}: "vp09.00.41.08.00.01.01.01.00",
	{quality.CodecVP9, 720}:  "vp09.00.31.08.00.01.01.01.00",
	{quality.CodecVP9, 480}:  "vp09.00.30.08.00.01.01.01.00",
	{quality.CodecVP9, 360}:  "vp09.00.21.08.00.01.01.01.00",
}

var defaultCodecStrings = map[quality.Codec]string{
	quality.CodecH264: "avc1.4d401f",
	quality.CodecVP9:  "vp09.00.30.08.00.01.01.01.00",
}

// AudioCodecString identifies the AAC-LC audio track.
const AudioCodecString = "mp4a.40.2"

// CodecString returns the identifier advertised for a rendition.
func CodecString(codec quality.Codec, height int) string {
	if s, ok := codecStrings[codecHeight{codec, height}]; ok {
		return s
	}
	return defaultCodecStrings[codec]
}

// PeakFrameRate is advertised on the peak rendition next to its average
// bandwidth.
const PeakFrameRate = 30

// Version returns the EXT-X-VERSION used for a codec family.
func Version(codec quality.Codec) int {
	if codec == quality.CodecVP9 {
		return 4
	}
	return 3
}
