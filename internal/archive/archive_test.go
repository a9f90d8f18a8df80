package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestZipFolder(t *testing.T) {
	out := t.TempDir()
	job := filepath.Join(out, "movie")
	files := map[string]string{
		"info.json":                  `{"title":"movie"}`,
		"video/playlist.m3u8":        "#EXTM3U\n",
		"video/h264_360p/init.mp4":   "ftyp",
		"video/h264_360p/video1.m4s": "moof",
		"audio/aac.m3u8":             "#EXTM3U\n",
	}
	for name, body := range files {
		path := filepath.Join(job, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dest := filepath.Join(out, "movie"+Extension)
	res, err := ZipFolder(context.Background(), job, dest)
	if err != nil {
		t.Fatalf("ZipFolder() error = %v", err)
	}
	if res.Files != len(files) || res.Size == 0 || res.Path != dest {
		t.Errorf("Result = %+v", res)
	}
	if _, err := os.Stat(dest + ".partial"); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}

	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = zr.Close() }()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		rel := f.Name[len("movie/"):]
		if string(data) != files[rel] {
			t.Errorf("%s content = %q", f.Name, data)
		}
	}
	sort.Strings(names)
	want := []string{
		"movie/audio/aac.m3u8",
		"movie/info.json",
		"movie/video/h264_360p/init.mp4",
		"movie/video/h264_360p/video1.m4s",
		"movie/video/playlist.m3u8",
	}
	if len(names) != len(want) {
		t.Fatalf("entries = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestZipFolderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ZipFolder(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "x.zip")); err == nil {
		t.Error("expected error for missing folder")
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ZipFolder(context.Background(), file, filepath.Join(dir, "x.zip")); err == nil {
		t.Error("expected error for non-directory")
	}
}

func TestZipFolderCancelled(t *testing.T) {
	out := t.TempDir()
	job := filepath.Join(out, "job")
	if err := os.MkdirAll(job, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(job, "a"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dest := filepath.Join(out, "job.zip")
	if _, err := ZipFolder(ctx, job, dest); err == nil {
		t.Fatal("expected cancellation error")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("no archive should exist after cancellation")
	}
}
