// Package nodeservice assembles nodes, the per-title view across all users'
// subnodes.
package nodeservice

import (
	"context"
	"strings"

	"github.com/flancian/agora-import/internal/apperr"
	"github.com/flancian/agora-import/internal/index"
	"github.com/flancian/agora-import/internal/models"
)

// MaxSearchResults caps a single search.
const MaxSearchResults = 100

// Node is every user's subnode for one title plus what points at it.
type Node struct {
	Title     string           `json:"title"`
	Subnodes  []models.Subnode `json:"subnodes"`
	Backlinks []models.Ref     `json:"backlinks"`
	Pushes    []index.PushRef  `json:"pushes"`
}

// Store is the read surface of the index.
type Store interface {
	GetSubnode(ctx context.Context, user, title string) (*models.Subnode, error)
	SubnodesByTitle(ctx context.Context, title string) ([]models.Subnode, error)
	ListSubnodes(ctx context.Context, user string) ([]models.Ref, error)
	Backlinks(ctx context.Context, title string) ([]models.Ref, error)
	PushesTo(ctx context.Context, title string) ([]index.PushRef, error)
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)
}

var _ Store = (*index.DB)(nil)

// Service answers read queries over imported subnodes.
type Service struct {
	db Store
}

// NewService creates a new node service.
func NewService(db Store) *Service {
	return &Service{db: db}
}

// NormalizeTitle maps a user-supplied title onto the stored form.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// GetNode returns the node for title. A title nobody wrote, linked or
// pushed to is apperr.ErrNotFound.
func (s *Service) GetNode(ctx context.Context, title string) (*Node, error) {
	title = NormalizeTitle(title)
	if title == "" {
		return nil, apperr.ErrNotFound
	}
	subnodes, err := s.db.SubnodesByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	backlinks, err := s.db.Backlinks(ctx, title)
	if err != nil {
		return nil, err
	}
	pushes, err := s.db.PushesTo(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(subnodes) == 0 && len(backlinks) == 0 && len(pushes) == 0 {
		return nil, apperr.ErrNotFound
	}
	return &Node{
		Title:     title,
		Subnodes:  nonNilSlice(subnodes),
		Backlinks: nonNilSlice(backlinks),
		Pushes:    nonNilSlice(pushes),
	}, nil
}

// GetSubnode returns one user's subnode.
func (s *Service) GetSubnode(ctx context.Context, user, title string) (*models.Subnode, error) {
	return s.db.GetSubnode(ctx, user, NormalizeTitle(title))
}

// Backlinks returns the subnodes linking to title.
func (s *Service) Backlinks(ctx context.Context, title string) ([]models.Ref, error) {
	refs, err := s.db.Backlinks(ctx, NormalizeTitle(title))
	return nonNilSlice(refs), err
}

// ListUser returns the titles one user has written.
func (s *Service) ListUser(ctx context.Context, user string) ([]models.Ref, error) {
	refs, err := s.db.ListSubnodes(ctx, user)
	return nonNilSlice(refs), err
}

// Search delegates full-text search to the index.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	if limit > MaxSearchResults {
		limit = MaxSearchResults
	}
	res, err := s.db.Search(ctx, query, limit)
	return nonNilSlice(res), err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
