package comicinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"longbox/internal/approval"
)

// Read returns the managed field values stored in the archive at path. An
// archive without ComicInfo.xml yields an empty map.
func Read(path string) (map[approval.FieldName]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer zr.Close()

	data, err := readEntry(zr.File)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.fields()
}

func readEntry(files []*zip.File) ([]byte, error) {
	for _, f := range files {
		if !strings.EqualFold(f.Name, EntryName) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", EntryName, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", EntryName, err)
		}
		return data, nil
	}
	return nil, nil
}

// Update merges fields into the archive's ComicInfo.xml and replaces the
// archive atomically.
func Update(ctx context.Context, path string, fields map[approval.FieldName]string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", path, err)
	}
	defer zr.Close()

	existing, err := readEntry(zr.File)
	if err != nil {
		return err
	}
	doc, err := parseDocument(existing)
	if err != nil {
		return err
	}
	for _, field := range approval.Fields {
		value, ok := fields[field]
		if !ok {
			continue
		}
		if err := doc.set(field, value); err != nil {
			return err
		}
	}
	encoded, err := doc.marshal()
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".longbox-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, EntryName) {
			continue
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = zw.Copy(f); err != nil {
			return fmt.Errorf("copy entry %s: %w", f.Name, err)
		}
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     EntryName,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", EntryName, err)
	}
	if _, err = w.Write(encoded); err != nil {
		return fmt.Errorf("write %s: %w", EntryName, err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp archive: %w", err)
	}
	if err = os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod temp archive: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// PathResolver maps catalog file ids to archive paths.
type PathResolver interface {
	Path(ctx context.Context, fileID string) (string, error)
}

// Writer applies approved fields to archives resolved through a catalog.
type Writer struct {
	paths PathResolver
}

var _ approval.MetadataWriter = (*Writer)(nil)

// NewWriter returns a Writer resolving ids through paths.
func NewWriter(paths PathResolver) (*Writer, error) {
	if paths == nil {
		return nil, errors.New("comicinfo writer requires a path resolver")
	}
	return &Writer{paths: paths}, nil
}

// ApplyFields writes fields into the archive identified by fileID.
func (w *Writer) ApplyFields(ctx context.Context, fileID string, fields map[approval.FieldName]string) error {
	path, err := w.paths.Path(ctx, fileID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(path), ".cbz") {
		return fmt.Errorf("%s: only cbz archives can be updated", filepath.Base(path))
	}
	return Update(ctx, path, fields)
}
