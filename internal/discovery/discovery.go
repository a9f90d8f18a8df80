// Package discovery finds source folders and the single video each one holds.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lerrors "github.com/five82/ladder/internal/errors"
	"github.com/five82/ladder/internal/util"
)

// VideoDirName is the subfolder of a source folder that holds the video.
const VideoDirName = "video"

// Status is the eligibility of a source folder.
type Status int

const (
	// Eligible folders hold exactly one .mp4 in their video/ subfolder.
	Eligible Status = iota
	// SkipNoneFound folders have no .mp4, or no video/ subfolder at all.
	SkipNoneFound
	// SkipAmbiguous folders have more than one .mp4.
	SkipAmbiguous
)

func (s Status) String() string {
	switch s {
	case Eligible:
		return "eligible"
	case SkipNoneFound:
		return "no mp4 found"
	case SkipAmbiguous:
		return "multiple mp4 files"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Folder is one inspected source folder.
type Folder struct {
	Path   string
	Name   string
	Status Status
	// Source is the video to convert, set only when Eligible.
	Source string
	// Candidates lists every .mp4 found, sorted.
	Candidates []string
}

// FindSourceFolders returns the immediate, non-hidden subdirectories of
// inputDir sorted by name.
func FindSourceFolders(inputDir string) ([]string, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, lerrors.NewIOError("input directory does not exist: "+inputDir, err)
	}
	if !info.IsDir() {
		return nil, lerrors.NewIOError(inputDir+" is not a directory", nil)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, lerrors.NewIOError("cannot read directory "+inputDir, err)
	}

	var folders []string
	for _, entry := range entries {
		if !entry.IsDir() || util.IsHidden(entry.Name()) {
			continue
		}
		folders = append(folders, filepath.Join(inputDir, entry.Name()))
	}

	if len(folders) == 0 {
		return nil, lerrors.NewNoFoldersError(inputDir)
	}

	sort.Strings(folders)
	return folders, nil
}

// Inspect classifies a source folder by the .mp4 files in its video/
// subfolder. Extension matching ignores case.
func Inspect(folder string) Folder {
	f := Folder{Path: folder, Name: filepath.Base(folder), Status: SkipNoneFound}

	videoDir := filepath.Join(folder, VideoDirName)
	entries, err := os.ReadDir(videoDir)
	if err != nil {
		return f
	}

	for _, entry := range entries {
		if util.IsHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(videoDir, entry.Name())
		if util.IsSourceVideo(path) {
			f.Candidates = append(f.Candidates, path)
		}
	}
	sort.Strings(f.Candidates)

	switch len(f.Candidates) {
	case 0:
		f.Status = SkipNoneFound
	case 1:
		f.Status = Eligible
		f.Source = f.Candidates[0]
	default:
		f.Status = SkipAmbiguous
	}
	return f
}

// InspectAll inspects every folder, keeping order.
func InspectAll(folders []string) []Folder {
	out := make([]Folder, 0, len(folders))
	for _, folder := range folders {
		out = append(out, Inspect(folder))
	}
	return out
}
