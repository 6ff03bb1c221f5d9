package importer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flancian/agora-import/internal/models"
	"github.com/flancian/agora-import/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ReimportsChangedGarden(t *testing.T) {
	e := newEnv(t, nil)
	item := gardenItem(t, "alice")
	testutil.WriteFile(t, item.Path, "journal/.keep.md", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.im.Watch(ctx, []models.WorkItem{item}, 50*time.Millisecond) }()

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, item.Path, "new.md", "[[watched]]")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := e.db.GetSubnode(context.Background(), "alice", "new")
		return err == nil
	}, "new note not imported by watcher")

	testutil.WriteFile(t, item.Path, "journal/today.md", "x")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := e.db.GetSubnode(context.Background(), "alice", "today")
		return err == nil
	}, "note in subdirectory not imported by watcher")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop")
	}
}

func TestWatch_IgnoresNonMarkdown(t *testing.T) {
	e := newEnv(t, nil)
	item := gardenItem(t, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.im.Watch(ctx, []models.WorkItem{item}, 20*time.Millisecond) }()

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, item.Path, "scratch.txt", "x")
	time.Sleep(300 * time.Millisecond)

	if n := countSubnodes(t, e.db, "alice"); n != 0 {
		t.Errorf("subnodes = %d, want 0", n)
	}
	if _, ok, _ := e.db.LastRevision(context.Background(), "alice"); ok {
		t.Error("no import should have run")
	}
}

func TestWatch_SameUserGardensDebouncedSeparately(t *testing.T) {
	e := newEnv(t, nil)
	garden := gardenItem(t, "alice")
	stream := models.WorkItem{User: "alice", Path: t.TempDir(), Kind: models.KindStream}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.im.Watch(ctx, []models.WorkItem{garden, stream}, 200*time.Millisecond) }()

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, garden.Path, "from-garden.md", "x")
	testutil.WriteFile(t, stream.Path, "from-stream.md", "x")

	for _, title := range []string{"from-garden", "from-stream"} {
		eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
			_, err := e.db.GetSubnode(context.Background(), "alice", title)
			return err == nil
		}, title+" not imported by watcher")
	}
}

func TestRelevant(t *testing.T) {
	root := filepath.FromSlash("/g/alice")
	cases := map[string]bool{
		"/g/alice/a.md":                 true,
		"/g/alice/sub/b.md":             true,
		"/g/alice/a.txt":                false,
		"/g/alice/.git/HEAD":            true,
		"/g/alice/.git/refs/heads/main": true,
		"/g/alice/.git/index":           false,
		"/g/alice/.git/HEAD.lock":       false,
	}
	for name, want := range cases {
		if got := relevant(root, filepath.FromSlash(name)); got != want {
			t.Errorf("relevant(%q) = %v, want %v", name, got, want)
		}
	}
}
