package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flancian/agora-import/internal/garden"
	"github.com/flancian/agora-import/internal/models"
)

// DefaultDebounce is the quiet period before a changed garden is re-imported.
const DefaultDebounce = 2 * time.Second

// Watch re-imports a garden shortly after its Markdown files or its git HEAD
// change. It watches each garden directory, its immediate subdirectories and
// its .git metadata until ctx is cancelled.
func (im *Importer) Watch(ctx context.Context, items []models.WorkItem, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// owners maps every watched directory to its garden.
	owners := make(map[string]models.WorkItem)
	for _, item := range items {
		item.Path = filepath.Clean(item.Path)
		for _, dir := range watchDirs(item.Path) {
			if err := w.Add(dir); err != nil {
				im.logger.Warn("watcher: add dir failed",
					slog.String("path", dir),
					slog.String("error", err.Error()))
				continue
			}
			owners[dir] = item
		}
	}

	im.logger.Info("watcher: started", slog.Int("gardens", len(items)), slog.Int("dirs", len(owners)))

	fire := make(chan models.WorkItem, len(items)+1)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	// Timers are per garden directory: one user may own a garden and a stream.
	schedule := func(item models.WorkItem) {
		if t, ok := timers[item.Path]; ok {
			t.Reset(debounce)
			return
		}
		timers[item.Path] = time.AfterFunc(debounce, func() {
			select {
			case fire <- item:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			im.logger.Info("watcher: stopped")
			return nil

		case item := <-fire:
			if _, err := im.ImportGarden(ctx, item); err != nil {
				im.logger.Error("watcher: re-import failed",
					slog.String("user", item.User),
					slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			item, ok := owners[filepath.Dir(ev.Name)]
			if !ok {
				continue
			}

			// New top-level folders hold notes too.
			if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == item.Path {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() && info.Name() != ".git" {
					if addErr := w.Add(ev.Name); addErr == nil {
						owners[ev.Name] = item
						im.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}

			if !relevant(item.Path, ev.Name) {
				continue
			}
			im.logger.Debug("watcher: change",
				slog.String("user", item.User),
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()))
			schedule(item)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// watchDirs lists the directories to watch for the garden at root.
func watchDirs(root string) []string {
	dirs := []string{root}
	if subs, err := garden.Subdirs(root); err == nil {
		for _, s := range subs {
			if s == ".git" {
				continue
			}
			dirs = append(dirs, filepath.Join(root, s))
		}
	}
	gitDir := filepath.Join(root, ".git")
	for _, d := range []string{gitDir, filepath.Join(gitDir, "refs", "heads")} {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// relevant reports whether a change to name can alter what an import reads.
func relevant(root, name string) bool {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rest, ok := strings.CutPrefix(rel, ".git/"); ok {
		if strings.HasSuffix(rest, ".lock") {
			return false
		}
		return rest == "HEAD" || strings.HasPrefix(rest, "refs/heads/")
	}
	return strings.HasSuffix(rel, ".md")
}
