package api

import (
	"github.com/flancian/agora-import/internal/importer"
	"github.com/flancian/agora-import/internal/index"
	"github.com/flancian/agora-import/internal/models"
	"github.com/flancian/agora-import/internal/nodeservice"
)

// Node is the node response type (aliased from the domain layer).
type Node = nodeservice.Node

// Subnode is the single subnode response type.
type Subnode = models.Subnode

// RefListResponse wraps a list of (user, title) references.
type RefListResponse struct {
	Refs []models.Ref `json:"refs" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ImportResponse lists one report per successfully imported garden.
type ImportResponse struct {
	Reports []importer.Report `json:"reports" validate:"required"`
}
