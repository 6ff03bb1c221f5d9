// Package changes decides which garden files an import run has to read.
package changes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flancian/agora-import/internal/garden"
	"github.com/flancian/agora-import/internal/vcs"
)

// Mode is the scan mode chosen for a run.
type Mode string

const (
	// ModeFull re-reads every file within two directory levels.
	ModeFull Mode = "full"
	// ModeIncremental reads only files that differ between two revisions.
	ModeIncremental Mode = "incremental"
)

// Result is the outcome of change detection for one garden.
type Result struct {
	Mode Mode
	// Files are garden-relative, slash separated, in no particular order.
	// Full scans include directory names; callers filter by extension.
	Files []string
	// CurrentRevision is empty when the garden's revision is unknown.
	CurrentRevision string
}

// Detector computes the candidate files for a garden.
type Detector struct {
	vcs    vcs.Querier
	logger *slog.Logger
}

// NewDetector returns a Detector asking q for revisions and diffs.
func NewDetector(q vcs.Querier, logger *slog.Logger) *Detector {
	return &Detector{vcs: q, logger: logger}
}

// Detect inspects g. When the current revision cannot be read, the garden
// is treated as unversioned and fully rescanned. When a previous revision
// is known, only the diff to the current revision is returned; a failed diff
// also falls back to a full scan.
//
// Deleted files appear in a diff like any other change. Nothing here or
// downstream removes notes for them.
func (d *Detector) Detect(ctx context.Context, g garden.Provider, previous string) (Result, error) {
	root := g.Root()
	current, err := d.vcs.CurrentRevision(ctx, root)
	if err != nil {
		d.logger.Debug("changes: revision unavailable, full scan",
			slog.String("root", root),
			slog.String("error", err.Error()))
		return d.full(g, "")
	}

	if previous == "" {
		return d.full(g, current)
	}

	files, err := d.vcs.Diff(ctx, root, previous, current)
	if err != nil {
		d.logger.Warn("changes: diff failed, full scan",
			slog.String("root", root),
			slog.String("from", previous),
			slog.String("to", current),
			slog.String("error", err.Error()))
		return d.full(g, current)
	}
	return Result{Mode: ModeIncremental, Files: files, CurrentRevision: current}, nil
}

func (d *Detector) full(g garden.Provider, current string) (Result, error) {
	files, err := g.Entries()
	if err != nil {
		return Result{}, fmt.Errorf("changes: full scan: %w", err)
	}
	return Result{Mode: ModeFull, Files: files, CurrentRevision: current}, nil
}
