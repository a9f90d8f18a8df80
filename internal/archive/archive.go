// Package archive packs a finished job folder into a single zip file.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Extension is appended to the job folder name.
const Extension = ".zip"

// Result describes a written archive.
type Result struct {
	Path  string
	Files int
	// Size is the archive's size on disk.
	Size uint64
}

// ZipFolder writes every regular file under folder into dest. Entry names
// are relative to folder's parent, so the archive unpacks into a folder of
// the same name. The archive is written beside dest and renamed into place
// once complete.
func ZipFolder(ctx context.Context, folder, dest string) (*Result, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("folder to compress does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", folder)
	}

	tmp := dest + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	files, err := writeZip(ctx, f, folder)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close archive: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("failed to move archive into place: %w", err)
	}

	st, err := os.Stat(dest)
	if err != nil {
		return nil, err
	}
	return &Result{Path: dest, Files: files, Size: uint64(st.Size())}, nil
}

func writeZip(ctx context.Context, w io.Writer, folder string) (int, error) {
	zw := zip.NewWriter(w)
	base := filepath.Dir(folder)
	files := 0

	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if err := copyFile(entry, path); err != nil {
			return fmt.Errorf("failed to add %s: %w", rel, err)
		}
		files++
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish archive: %w", err)
	}
	return files, nil
}

func copyFile(w io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	_, err = io.Copy(w, src)
	return err
}
