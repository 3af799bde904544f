package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"longbox/internal/approval"
	"longbox/internal/comicinfo"
	"longbox/internal/services"
)

// idNamespace seeds file ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://longbox.invalid/library"))

var archiveExtensions = map[string]bool{".cbz": true}

// Entry is one cataloged archive.
type Entry struct {
	ID       string
	Path     string
	Relative string
}

// Catalog maps file ids to archives under a root directory.
type Catalog struct {
	root string

	mu      sync.RWMutex
	entries map[string]Entry
}

var (
	_ approval.FileSource    = (*Catalog)(nil)
	_ comicinfo.PathResolver = (*Catalog)(nil)
)

// New returns an empty catalog rooted at root.
func New(root string) (*Catalog, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("library root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}
	return &Catalog{root: abs, entries: make(map[string]Entry)}, nil
}

// Root reports the library directory.
func (c *Catalog) Root() string { return c.root }

// FileID derives the stable id for an archive path.
func (c *Catalog) FileID(path string) string {
	return uuid.NewSHA1(idNamespace, []byte(c.relative(path))).String()
}

func (c *Catalog) relative(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel, err := filepath.Rel(c.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Scan catalogs archives found under targets, which may be files or
// directories. With no targets the library root is scanned. It returns the
// ids found, ordered by relative path.
func (c *Catalog) Scan(ctx context.Context, targets ...string) ([]string, error) {
	if len(targets) == 0 {
		targets = []string{c.root}
	}
	var found []Entry
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", target, err)
		}
		if !info.IsDir() {
			if isArchive(target) {
				found = append(found, c.entryFor(target))
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				if path != target && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && isArchive(path) && !strings.HasPrefix(d.Name(), ".") {
				found = append(found, c.entryFor(path))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", target, err)
		}
	}

	slices.SortFunc(found, func(a, b Entry) int { return strings.Compare(a.Relative, b.Relative) })
	found = slices.CompactFunc(found, func(a, b Entry) bool { return a.ID == b.ID })

	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(found))
	for _, entry := range found {
		c.entries[entry.ID] = entry
		ids = append(ids, entry.ID)
	}
	return ids, nil
}

func (c *Catalog) entryFor(path string) Entry {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel := c.relative(abs)
	return Entry{ID: uuid.NewSHA1(idNamespace, []byte(rel)).String(), Path: abs, Relative: rel}
}

func isArchive(path string) bool {
	return archiveExtensions[strings.ToLower(filepath.Ext(path))]
}

// Entry returns the cataloged archive for id.
func (c *Catalog) Entry(id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// Len reports how many archives are cataloged.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Path resolves id to its archive path.
func (c *Catalog) Path(_ context.Context, id string) (string, error) {
	entry, ok := c.Entry(id)
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "library", "resolve path", fmt.Sprintf("file %s is not cataloged", id), nil)
	}
	return entry.Path, nil
}

// File returns the archive for id with its current ComicInfo values.
func (c *Catalog) File(ctx context.Context, id string) (approval.File, error) {
	path, err := c.Path(ctx, id)
	if err != nil {
		return approval.File{}, err
	}
	fields, err := comicinfo.Read(path)
	if err != nil {
		return approval.File{}, fmt.Errorf("read metadata for %s: %w", filepath.Base(path), err)
	}
	return approval.File{
		ID:       id,
		Path:     path,
		Filename: filepath.Base(path),
		Fields:   fields,
	}, nil
}
