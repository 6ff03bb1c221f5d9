package garden

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func tempGarden(t *testing.T) (string, *FS) {
	t.Helper()
	dir := t.TempDir()
	g, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return dir, g
}

func TestRead(t *testing.T) {
	dir, g := tempGarden(t)
	writeFile(t, dir, "note.md", "# Hello\n")
	got, err := g.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "# Hello\n" {
		t.Errorf("content = %q", got)
	}
}

func TestRead_Missing(t *testing.T) {
	_, g := tempGarden(t)
	if _, err := g.Read("gone.md"); err == nil {
		t.Error("expected error reading missing file")
	}
}

func TestEntries_TwoLevels(t *testing.T) {
	dir, g := tempGarden(t)
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "sub/b.md", "b")
	writeFile(t, dir, "sub/deeper/c.md", "c")
	writeFile(t, dir, "readme.txt", "x")

	got, err := g.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	sort.Strings(got)
	want := []string{"a.md", "readme.txt", "sub", "sub/b.md", "sub/deeper"}
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alice/x.md", "x")
	writeFile(t, dir, "bob/y.md", "y")
	writeFile(t, dir, "stray.md", "z")

	got, err := Subdirs(dir)
	if err != nil {
		t.Fatalf("Subdirs: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("subdirs = %v", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	_, g := tempGarden(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow", "."} {
		if _, err := g.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestOpen_NonExistentDir(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestOpen_FileNotDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file", "x")
	if _, err := Open(filepath.Join(dir, "file")); err == nil {
		t.Error("expected error when root is a file")
	}
}
