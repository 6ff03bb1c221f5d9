// Package garden reads a user's garden directory.
package garden

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider is the read-only view of one garden the importer needs.
type Provider interface {
	// Root returns the absolute garden directory.
	Root() string
	// Read returns the text of the file at path (relative to the root).
	Read(path string) (string, error)
	// Entries lists the root's entries plus the entries one level inside
	// each immediate subdirectory. Deeper levels are not visited.
	Entries() ([]string, error)
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string
}

var _ Provider = (*FS)(nil)

// Open returns an FS rooted at dir, which must be an existing directory.
func Open(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("garden: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("garden: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("garden: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute garden directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves rel against the root and rejects results outside it.
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("garden: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("garden: path escapes garden root: %s", rel)
	}
	return abs, nil
}

// Read returns the content of a garden file as text.
func (f *FS) Read(path string) (string, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("garden: read %s: %w", path, err)
	}
	return string(data), nil
}

// Entries returns slash-separated paths relative to the root. Subdirectory
// names themselves are included alongside files, so callers filter by
// extension.
func (f *FS) Entries() ([]string, error) {
	top, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("garden: list %s: %w", f.root, err)
	}
	out := make([]string, 0, len(top))
	for _, e := range top {
		out = append(out, e.Name())
	}
	for _, e := range top {
		if !isDir(f.root, e) {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("garden: list %s: %w", e.Name(), err)
		}
		for _, s := range sub {
			out = append(out, e.Name()+"/"+s.Name())
		}
	}
	return out, nil
}

// Subdirs returns the names of the immediate subdirectories of dir in the
// order the file system lists them.
func Subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("garden: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if isDir(dir, e) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// isDir follows symlinks, which gardens mounted from elsewhere often are.
func isDir(parent string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, e.Name()))
	return err == nil && info.IsDir()
}
