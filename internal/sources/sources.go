// Package sources expands configured garden roots into per-user work items.
package sources

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flancian/agora-import/internal/garden"
	"github.com/flancian/agora-import/internal/models"
)

// Root is one configured garden root.
type Root struct {
	Kind models.SourceKind
	Path string
}

// Enumerate returns the work items for roots, root by root in the given
// order. Garden and stream roots yield one item per immediate subdirectory;
// a root-kind root yields a single item named after its last path segment.
// Roots with an empty path are skipped. A root that cannot be listed is
// logged and skipped so the remaining roots still expand.
func Enumerate(roots []Root, logger *slog.Logger) []models.WorkItem {
	var items []models.WorkItem
	for _, r := range roots {
		if r.Path == "" {
			continue
		}
		expanded, err := expand(r)
		if err != nil {
			logger.Error("sources: expand failed",
				slog.String("kind", string(r.Kind)),
				slog.String("path", r.Path),
				slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sources: expanded",
			slog.String("kind", string(r.Kind)),
			slog.String("path", r.Path),
			slog.Int("gardens", len(expanded)))
		items = append(items, expanded...)
	}
	return items
}

func expand(r Root) ([]models.WorkItem, error) {
	switch r.Kind {
	case models.KindGarden, models.KindStream:
		users, err := garden.Subdirs(r.Path)
		if err != nil {
			return nil, err
		}
		out := make([]models.WorkItem, 0, len(users))
		for _, u := range users {
			out = append(out, models.WorkItem{
				User: u,
				Path: filepath.Join(r.Path, u),
				Kind: r.Kind,
			})
		}
		return out, nil

	case models.KindRoot:
		cleaned := filepath.Clean(r.Path)
		user := filepath.Base(cleaned)
		if user == "." || user == string(filepath.Separator) {
			return nil, fmt.Errorf("sources: root path %q has no user segment", r.Path)
		}
		// The user's garden is <parent>/<user>, i.e. the root itself.
		return []models.WorkItem{{
			User: user,
			Path: filepath.Join(filepath.Dir(cleaned), user),
			Kind: r.Kind,
		}}, nil

	default:
		return nil, fmt.Errorf("sources: unknown kind %q", r.Kind)
	}
}
