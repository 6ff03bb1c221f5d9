// Package importer loads users' gardens into the store.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flancian/agora-import/internal/changes"
	"github.com/flancian/agora-import/internal/garden"
	"github.com/flancian/agora-import/internal/models"
	"github.com/flancian/agora-import/internal/parser"
	"github.com/flancian/agora-import/internal/sources"
)

// DefaultChunkSize is the number of files read and parsed per chunk.
const DefaultChunkSize = 100

// Store is the subset of the index the importer writes to.
type Store interface {
	UpsertSubnodes(ctx context.Context, subnodes []models.Subnode) error
	LastRevision(ctx context.Context, user string) (string, bool, error)
	RecordInitialRevision(ctx context.Context, user, rev string) error
	AdvanceRevision(ctx context.Context, user, rev string) error
}

// Report summarises one garden import.
type Report struct {
	User     string       `json:"user"`
	Mode     changes.Mode `json:"mode"`
	Revision string       `json:"revision"`
	// Files is the number of .md candidates considered.
	Files    int `json:"files"`
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// EventFunc is called after every successful garden import.
type EventFunc func(Report)

// Importer runs the per-garden import pipeline.
type Importer struct {
	store     Store
	detector  *changes.Detector
	parser    *parser.Parser
	roots     []sources.Root
	chunkSize int
	workers   int
	logger    *slog.Logger
	onImport  EventFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Importer.
type Option func(*Importer)

// WithChunkSize sets the number of files per chunk. Non-positive values are
// ignored.
func WithChunkSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.chunkSize = n
		}
	}
}

// WithWorkers sets how many files of a chunk are read and parsed at once.
func WithWorkers(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.workers = n
		}
	}
}

// WithParser replaces the default parser.
func WithParser(p *parser.Parser) Option {
	return func(im *Importer) {
		im.parser = p
	}
}

// WithEventFunc registers fn to be called after each garden import.
func WithEventFunc(fn EventFunc) Option {
	return func(im *Importer) {
		im.onImport = fn
	}
}

// New returns an Importer for the given roots.
func New(store Store, detector *changes.Detector, roots []sources.Root, logger *slog.Logger, opts ...Option) *Importer {
	im := &Importer{
		store:     store,
		detector:  detector,
		parser:    parser.New(),
		roots:     roots,
		chunkSize: DefaultChunkSize,
		workers:   1,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Items expands the configured roots into work items.
func (im *Importer) Items() []models.WorkItem {
	return sources.Enumerate(im.roots, im.logger)
}

// ImportAll imports every configured garden in order. A failing garden is
// logged and the next one is processed. The returned error is non-nil only
// when ctx is cancelled between gardens.
func (im *Importer) ImportAll(ctx context.Context) ([]Report, error) {
	items := im.Items()
	start := time.Now()
	im.logger.Info("import: started", slog.Int("gardens", len(items)))

	reports := make([]Report, 0, len(items))
	failed := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := im.ImportGarden(ctx, item)
		if err != nil {
			failed++
			im.logger.Error("import: garden failed",
				slog.String("user", item.User),
				slog.String("path", item.Path),
				slog.String("error", err.Error()))
			continue
		}
		reports = append(reports, rep)
	}

	im.logger.Info("import: finished",
		slog.Int("gardens", len(items)),
		slog.Int("failed", failed),
		slog.Duration("took", time.Since(start)))
	return reports, nil
}

// ImportGarden brings one user's subnodes up to date. The cursor is written
// before any file is parsed, so a file that fails to parse stays stale until
// a later diff names it again. Deleted files are not removed from the store.
func (im *Importer) ImportGarden(ctx context.Context, item models.WorkItem) (Report, error) {
	unlock := im.lock(item.User)
	defer unlock()

	rep := Report{User: item.User}

	previous, hasCursor, err := im.store.LastRevision(ctx, item.User)
	if err != nil {
		return rep, fmt.Errorf("importer: %s: read cursor: %w", item.User, err)
	}

	g, err := garden.Open(item.Path)
	if err != nil {
		return rep, fmt.Errorf("importer: %s: %w", item.User, err)
	}

	res, err := im.detector.Detect(ctx, g, previous)
	if err != nil {
		return rep, fmt.Errorf("importer: %s: %w", item.User, err)
	}
	rep.Mode = res.Mode
	rep.Revision = res.CurrentRevision

	if err := im.moveCursor(ctx, item.User, res, hasCursor); err != nil {
		return rep, fmt.Errorf("importer: %s: write cursor: %w", item.User, err)
	}

	files := markdownFiles(res.Files)
	rep.Files = len(files)

	var notes []models.Subnode
	for start := 0; start < len(files); start += im.chunkSize {
		end := min(start+im.chunkSize, len(files))
		parsed := im.processChunk(ctx, g, item.User, files[start:end])
		for _, sn := range parsed {
			if sn == nil {
				rep.Failed++
				continue
			}
			notes = append(notes, *sn)
		}
	}

	if err := im.store.UpsertSubnodes(ctx, notes); err != nil {
		return rep, fmt.Errorf("importer: %s: upsert: %w", item.User, err)
	}
	rep.Imported = len(notes)

	im.logger.Info("import: garden done",
		slog.String("user", rep.User),
		slog.String("mode", string(rep.Mode)),
		slog.String("revision", rep.Revision),
		slog.Int("files", rep.Files),
		slog.Int("imported", rep.Imported),
		slog.Int("failed", rep.Failed))

	if im.onImport != nil {
		im.onImport(rep)
	}
	return rep, nil
}

// moveCursor performs exactly one cursor write for the run.
func (im *Importer) moveCursor(ctx context.Context, user string, res changes.Result, hasCursor bool) error {
	if res.Mode == changes.ModeFull && !hasCursor {
		return im.store.RecordInitialRevision(ctx, user, res.CurrentRevision)
	}
	return im.store.AdvanceRevision(ctx, user, res.CurrentRevision)
}

// processChunk reads and parses files. The result is index-aligned with
// files; a nil entry marks a file that failed and was logged.
func (im *Importer) processChunk(ctx context.Context, g garden.Provider, user string, files []string) []*models.Subnode {
	out := make([]*models.Subnode, len(files))

	var eg errgroup.Group
	eg.SetLimit(im.workers)
	for i, f := range files {
		eg.Go(func() error {
			sn, err := im.parseFile(g, user, f)
			if err != nil {
				im.logger.Warn("import: file skipped",
					slog.String("user", user),
					slog.String("path", f),
					slog.String("error", err.Error()))
				return nil
			}
			out[i] = sn
			return nil
		})
	}
	_ = eg.Wait()

	im.logger.DebugContext(ctx, "import: chunk done",
		slog.String("user", user),
		slog.Int("files", len(files)))
	return out
}

func (im *Importer) parseFile(g garden.Provider, user, file string) (*models.Subnode, error) {
	raw, err := g.Read(file)
	if err != nil {
		return nil, err
	}
	sn, err := im.parser.Parse(raw, parser.TitleFromPath(file))
	if err != nil {
		return nil, err
	}
	sn.User = user
	return sn, nil
}

func (im *Importer) lock(user string) func() {
	im.mu.Lock()
	l, ok := im.locks[user]
	if !ok {
		l = &sync.Mutex{}
		im.locks[user] = l
	}
	im.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// markdownFiles keeps paths ending in ".md", case-sensitively.
func markdownFiles(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f, ".md") {
			out = append(out, f)
		}
	}
	return out
}
