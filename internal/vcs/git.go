package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flancian/agora-import/internal/apperr"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 30 * time.Second

// Git implements Querier by running the git binary against <path>/.git.
// Only the garden's own repository counts; a garden nested inside some other
// checkout is treated as unversioned.
type Git struct {
	// Binary is the git executable, "git" when empty.
	Binary  string
	Timeout time.Duration
}

var _ Querier = (*Git)(nil)

// NewGit returns a Git querier with the given per-command timeout.
func NewGit(timeout time.Duration) *Git {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Git{Binary: "git", Timeout: timeout}
}

func (g *Git) run(ctx context.Context, path string, args ...string) ([]byte, error) {
	gitDir := filepath.Join(path, ".git")
	if _, err := os.Stat(gitDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotInVCS
		}
		return nil, fmt.Errorf("vcs: stat %s: %w", gitDir, errors.Join(apperr.ErrVCSUnavailable, err))
	}
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	// quotePath off keeps non-ASCII file names verbatim in diff output.
	full := append([]string{"-c", "core.quotePath=false", "--git-dir=" + gitDir, "--work-tree=" + path}, args...)
	out, err := ExecContext(ctx, g.Timeout, path, bin, full...)
	if err != nil {
		return nil, fmt.Errorf("vcs: git %s: %w", strings.Join(args, " "), errors.Join(apperr.ErrVCSUnavailable, err))
	}
	return out, nil
}

// CurrentRevision returns the commit hash of HEAD.
func (g *Git) CurrentRevision(ctx context.Context, path string) (string, error) {
	out, err := g.run(ctx, path, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return "", fmt.Errorf("vcs: empty revision for %s: %w", path, apperr.ErrVCSUnavailable)
	}
	return rev, nil
}

// Diff returns the names of files changed between from and to. Added,
// modified, renamed and deleted files all appear as plain paths.
func (g *Git) Diff(ctx context.Context, path, from, to string) ([]string, error) {
	// Revisions come from the cursor table; end-of-options keeps one
	// starting with "-" from being read as a flag.
	out, err := g.run(ctx, path, "diff", "--name-only", "--end-of-options", from, to, "--")
	if err != nil {
		return nil, err
	}
	return ParseLines(out), nil
}
