package vcs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"

	"github.com/flancian/agora-import/internal/apperr"
)

// setupTestRepo creates a temporary git repository for testing.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}

func commitFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	gitCmd(t, dir, "add", "-A")
	gitCmd(t, dir, "commit", "-q", "-m", "update "+rel)
}

func TestGit_CurrentRevision(t *testing.T) {
	dir := setupTestRepo(t)
	commitFile(t, dir, "a.md", "a")

	g := NewGit(0)
	rev, err := g.CurrentRevision(context.Background(), dir)
	if err != nil {
		t.Fatalf("CurrentRevision: %v", err)
	}
	if len(rev) < 40 {
		t.Errorf("rev = %q, want a full hash", rev)
	}
}

func TestGit_CurrentRevision_NoCommits(t *testing.T) {
	dir := setupTestRepo(t)
	_, err := NewGit(0).CurrentRevision(context.Background(), dir)
	if !errors.Is(err, apperr.ErrVCSUnavailable) {
		t.Fatalf("err = %v, want ErrVCSUnavailable", err)
	}
}

func TestGit_NotARepository(t *testing.T) {
	_, err := NewGit(0).CurrentRevision(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNotInVCS) {
		t.Fatalf("err = %v, want ErrNotInVCS", err)
	}
	if !errors.Is(err, apperr.ErrVCSUnavailable) {
		t.Error("ErrNotInVCS should wrap ErrVCSUnavailable")
	}
}

func TestGit_Diff(t *testing.T) {
	dir := setupTestRepo(t)
	commitFile(t, dir, "a.md", "a")
	g := NewGit(0)
	ctx := context.Background()
	from, err := g.CurrentRevision(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}

	commitFile(t, dir, "b.md", "b")
	commitFile(t, dir, "sub/c.md", "c")
	if err := os.Remove(filepath.Join(dir, "a.md")); err != nil {
		t.Fatal(err)
	}
	gitCmd(t, dir, "commit", "-q", "-am", "remove a")

	to, err := g.CurrentRevision(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	files, err := g.Diff(ctx, dir, from, to)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	sort.Strings(files)
	want := []string{"a.md", "b.md", "sub/c.md"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestGit_DiffUnknownRevision(t *testing.T) {
	dir := setupTestRepo(t)
	commitFile(t, dir, "a.md", "a")
	_, err := NewGit(0).Diff(context.Background(), dir, "0000000000000000000000000000000000000000", "HEAD")
	if !errors.Is(err, apperr.ErrVCSUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestGit_DiffRevisionLooksLikeFlag(t *testing.T) {
	dir := setupTestRepo(t)
	commitFile(t, dir, "a.md", "a")
	_, err := NewGit(0).Diff(context.Background(), dir, "-p", "HEAD")
	if !errors.Is(err, apperr.ErrVCSUnavailable) {
		t.Fatalf("err = %v, want unknown revision", err)
	}
}

func TestGit_DiffKeepsSurroundingSpaces(t *testing.T) {
	dir := setupTestRepo(t)
	commitFile(t, dir, "a.md", "a")
	g := NewGit(0)
	ctx := context.Background()
	from, err := g.CurrentRevision(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	commitFile(t, dir, " spaced note .md", "s")
	to, err := g.CurrentRevision(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}

	files, err := g.Diff(ctx, dir, from, to)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(files) != 1 || files[0] != " spaced note .md" {
		t.Errorf("files = %q, want [\" spaced note .md\"]", files)
	}
}

func TestParseLines(t *testing.T) {
	got := ParseLines([]byte("a.md\n\n  b.md  \n"))
	if len(got) != 2 || got[0] != "a.md" || got[1] != "  b.md  " {
		t.Errorf("lines = %q", got)
	}
	if ParseLines(nil) != nil {
		t.Error("empty output should give nil")
	}
}
