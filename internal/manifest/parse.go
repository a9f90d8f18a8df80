package manifest

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Playlist is what a media playlist references.
type Playlist struct {
	// InitURI is the EXT-X-MAP URI, empty when the playlist has none.
	InitURI  string
	Segments []string
}

// ParseSegments reads a media playlist written by the engine.
func ParseSegments(path string) (*Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	pl := &Playlist{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "#EXT-X-MAP:"):
			pl.InitURI = attribute(line, "URI")
		case strings.HasPrefix(line, "#"):
		default:
			pl.Segments = append(pl.Segments, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pl, nil
}

// ReferencesAudioGroup reports whether a master playlist declares a
// separate audio rendition.
func ReferencesAudioGroup(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "#EXT-X-MEDIA:") && strings.Contains(line, "TYPE=AUDIO") {
			return true, nil
		}
	}
	return false, nil
}

// attribute returns the value of key in an attribute list, unquoted.
func attribute(line, key string) string {
	idx := strings.Index(line, key+"=")
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(key)+1:]
	if strings.HasPrefix(rest, `"`) {
		rest = rest[1:]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if end := strings.IndexByte(rest, ','); end >= 0 {
		return rest[:end]
	}
	return rest
}
