package file

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Storage provides a flat, local filesystem folder.
// It is used both for enumerating sources and for the rendition output area.
type Storage struct {
	basePath string
}

// NewStorage creates a new Storage instance rooted at basePath.
func NewStorage(basePath string) *Storage {
	return &Storage{basePath: basePath}
}

// BasePath returns the folder this storage is rooted at.
func (s *Storage) BasePath() string {
	return s.basePath
}

// Path returns the absolute-or-relative path of filename inside the folder.
func (s *Storage) Path(filename string) string {
	return filepath.Join(s.basePath, filename)
}

// EnsureDir creates the folder tree if it is absent. It is idempotent.
func (s *Storage) EnsureDir() error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.basePath, err)
	}

	return nil
}

// List returns the entries directly inside the folder whose extension
// matches ext case-insensitively (ext includes the dot, e.g. ".tif").
// Directories are dropped, symlinks are resolved to decide that.
// Paths are sorted lexicographically. Subdirectories are not descended.
func (s *Storage) List(ext string) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", s.basePath, err)
	}

	var files []string
	for _, e := range entries {
		if !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}

		path := filepath.Join(s.basePath, e.Name())
		if s.isDir(e, path) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	return files, nil
}

// isDir reports whether e is a directory, following a symlink.
// A dangling symlink is kept so the decoder reports it.
func (s *Storage) isDir(e fs.DirEntry, path string) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.IsDir()
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
