// Package testutil provides shared test helpers for gardens, databases and
// version control.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/flancian/agora-import/internal/apperr"
	"github.com/flancian/agora-import/internal/index"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "agora-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// WriteFile writes content to rel (slash separated) under root, creating
// parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// FakeVCS is an in-memory vcs.Querier. Revisions and diffs are keyed by
// garden path; a path without a revision behaves like an unversioned
// directory.
type FakeVCS struct {
	mu        sync.Mutex
	revisions map[string]string
	diffs     map[string][]string
	diffErr   error
	// DiffCalls counts Diff invocations.
	DiffCalls int
}

// NewFakeVCS returns an empty FakeVCS.
func NewFakeVCS() *FakeVCS {
	return &FakeVCS{
		revisions: make(map[string]string),
		diffs:     make(map[string][]string),
	}
}

// SetRevision sets the current revision of path.
func (f *FakeVCS) SetRevision(path, rev string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revisions[path] = rev
}

// SetDiff sets the files reported between from and to for path.
func (f *FakeVCS) SetDiff(path, from, to string, files []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diffs[diffKey(path, from, to)] = files
}

// FailDiffs makes every Diff call return err.
func (f *FakeVCS) FailDiffs(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diffErr = err
}

// CurrentRevision implements vcs.Querier.
func (f *FakeVCS) CurrentRevision(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, ok := f.revisions[path]
	if !ok {
		return "", fmt.Errorf("fake: %s: %w", path, apperr.ErrVCSUnavailable)
	}
	return rev, nil
}

// Diff implements vcs.Querier. Equal revisions diff to nothing.
func (f *FakeVCS) Diff(_ context.Context, path, from, to string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DiffCalls++
	if f.diffErr != nil {
		return nil, f.diffErr
	}
	if from == to {
		return nil, nil
	}
	files, ok := f.diffs[diffKey(path, from, to)]
	if !ok {
		return nil, fmt.Errorf("fake: unknown revision range %s..%s: %w", from, to, apperr.ErrVCSUnavailable)
	}
	return files, nil
}

func diffKey(path, from, to string) string {
	return path + "\x00" + from + "\x00" + to
}
