// Package vcs answers the two version-control questions the importer asks:
// what revision a garden is at, and which files changed between two
// revisions.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/flancian/agora-import/internal/apperr"
)

// ErrNotInVCS is returned when a garden is not a repository.
var ErrNotInVCS = fmt.Errorf("not a version-controlled directory: %w", apperr.ErrVCSUnavailable)

// Querier is the version-control capability consumed by change detection.
type Querier interface {
	// CurrentRevision returns the revision checked out at path.
	CurrentRevision(ctx context.Context, path string) (string, error)
	// Diff lists paths (relative to path) that differ between from and to.
	Diff(ctx context.Context, path, from, to string) ([]string, error)
}

// ExecContext runs name with args in workDir, bounded by timeout when
// positive. Stderr is folded into the returned error.
func ExecContext(ctx context.Context, timeout time.Duration, workDir string, name string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// ParseLines splits command output into its non-empty lines. Lines are
// kept verbatim: file names may start or end with spaces.
func ParseLines(output []byte) []string {
	if len(output) == 0 {
		return nil
	}
	lines := strings.Split(string(output), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
