package changes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"testing"

	"github.com/flancian/agora-import/internal/garden"
	"github.com/flancian/agora-import/internal/testutil"
)

func setup(t *testing.T) (*garden.FS, *testutil.FakeVCS, *Detector) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.md", "a")
	testutil.WriteFile(t, dir, "notes/b.md", "b")
	testutil.WriteFile(t, dir, "notes/deep/c.md", "c")
	g, err := garden.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	fake := testutil.NewFakeVCS()
	d := NewDetector(fake, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return g, fake, d
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func detect(t *testing.T, d *Detector, g *garden.FS, previous string) Result {
	t.Helper()
	res, err := d.Detect(context.Background(), g, previous)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	return res
}

func TestDetect_UnversionedIsFull(t *testing.T) {
	g, fake, d := setup(t)

	res := detect(t, d, g, "abc123")
	if res.Mode != ModeFull || res.CurrentRevision != "" {
		t.Errorf("result = %+v, want full without revision", res)
	}
	want := []string{"a.md", "notes", "notes/b.md", "notes/deep"}
	if got := sorted(res.Files); !reflect.DeepEqual(got, want) {
		t.Errorf("files = %q, want %q", got, want)
	}
	if fake.DiffCalls != 0 {
		t.Errorf("diff calls = %d, want 0", fake.DiffCalls)
	}
}

func TestDetect_FirstRunIsFull(t *testing.T) {
	g, fake, d := setup(t)
	fake.SetRevision(g.Root(), "rev1")

	res := detect(t, d, g, "")
	if res.Mode != ModeFull || res.CurrentRevision != "rev1" {
		t.Errorf("result = %+v, want full at rev1", res)
	}
	if !slices.Contains(res.Files, "notes/b.md") {
		t.Errorf("files = %q, missing notes/b.md", res.Files)
	}
	if slices.Contains(res.Files, "notes/deep/c.md") {
		t.Errorf("files = %q, full scan goes two levels deep only", res.Files)
	}
}

func TestDetect_Incremental(t *testing.T) {
	g, fake, d := setup(t)
	fake.SetRevision(g.Root(), "rev2")
	fake.SetDiff(g.Root(), "rev1", "rev2", []string{"notes/deep/c.md", "gone.md"})

	res := detect(t, d, g, "rev1")
	if res.Mode != ModeIncremental || res.CurrentRevision != "rev2" {
		t.Errorf("result = %+v, want incremental at rev2", res)
	}
	if want := []string{"notes/deep/c.md", "gone.md"}; !reflect.DeepEqual(res.Files, want) {
		t.Errorf("files = %q, want %q", res.Files, want)
	}
}

func TestDetect_UnchangedRevisionIsEmptyIncremental(t *testing.T) {
	g, fake, d := setup(t)
	fake.SetRevision(g.Root(), "rev1")

	res := detect(t, d, g, "rev1")
	if res.Mode != ModeIncremental || res.CurrentRevision != "rev1" || len(res.Files) != 0 {
		t.Errorf("result = %+v, want empty incremental at rev1", res)
	}
}

func TestDetect_DiffFailureFallsBackToFull(t *testing.T) {
	g, fake, d := setup(t)
	fake.SetRevision(g.Root(), "rev2")
	fake.FailDiffs(errors.New("bad object"))

	res := detect(t, d, g, "rev1")
	if res.Mode != ModeFull || res.CurrentRevision != "rev2" {
		t.Errorf("result = %+v, want full at rev2", res)
	}
	if !slices.Contains(res.Files, "a.md") {
		t.Errorf("files = %q, missing a.md", res.Files)
	}
}
