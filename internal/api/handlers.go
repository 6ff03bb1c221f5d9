package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flancian/agora-import/internal/apperr"
	"github.com/flancian/agora-import/internal/checksum"
	"github.com/flancian/agora-import/internal/importer"
	"github.com/flancian/agora-import/internal/nodeservice"
)

// Importer runs an import pass over every configured garden.
type Importer interface {
	ImportAll(ctx context.Context) ([]importer.Report, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc *nodeservice.Service
	imp Importer
}

// NewHandler creates a new Handler.
func NewHandler(svc *nodeservice.Service, imp Importer) *Handler {
	return &Handler{svc: svc, imp: imp}
}

// urlParam returns the decoded route parameter. chi matches on RawPath when
// the request carried escapes Path cannot represent (such as %2F); only then
// is the parameter still encoded.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func writeLookupError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error(what+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// GetNode handles GET /api/nodes/{title}.
//
//	@Summary		Get every user's subnode for a title, with backlinks and pushes
//	@Tags			nodes
//	@Produce		json
//	@Param			title	path		string	true	"Node title"
//	@Success		200		{object}	Node
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{title} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.svc.GetNode(r.Context(), urlParam(r, "title"))
	if err != nil {
		writeLookupError(w, err, "get node")
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// Backlinks handles GET /api/nodes/{title}/backlinks.
//
//	@Summary		List subnodes linking to a title
//	@Tags			nodes
//	@Produce		json
//	@Param			title	path		string	true	"Node title"
//	@Success		200		{object}	RefListResponse
//	@Security		BearerAuth
//	@Router			/nodes/{title}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.Backlinks(r.Context(), urlParam(r, "title"))
	if err != nil {
		writeLookupError(w, err, "backlinks")
		return
	}
	writeJSON(w, http.StatusOK, RefListResponse{Refs: refs})
}

// ListUserSubnodes handles GET /api/users/{user}/subnodes.
//
//	@Summary		List the titles one user has written
//	@Tags			users
//	@Produce		json
//	@Param			user	path		string	true	"User"
//	@Success		200		{object}	RefListResponse
//	@Security		BearerAuth
//	@Router			/users/{user}/subnodes [get]
func (h *Handler) ListUserSubnodes(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.ListUser(r.Context(), urlParam(r, "user"))
	if err != nil {
		writeLookupError(w, err, "list subnodes")
		return
	}
	writeJSON(w, http.StatusOK, RefListResponse{Refs: refs})
}

// GetSubnode handles GET /api/users/{user}/subnodes/{title}.
//
//	@Summary		Get one user's subnode
//	@Tags			users
//	@Produce		json
//	@Param			user	path		string	true	"User"
//	@Param			title	path		string	true	"Subnode title"
//	@Param			If-None-Match	header	string	false	"ETag from a previous response"
//	@Success		200		{object}	Subnode
//	@Success		304		"Body unchanged"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{user}/subnodes/{title} [get]
func (h *Handler) GetSubnode(w http.ResponseWriter, r *http.Request) {
	sn, err := h.svc.GetSubnode(r.Context(), urlParam(r, "user"), urlParam(r, "title"))
	if err != nil {
		writeLookupError(w, err, "get subnode")
		return
	}
	etag := checksum.ETag(sn.Body)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across subnodes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Import handles POST /api/import.
//
//	@Summary		Import every configured garden now
//	@Tags			import
//	@Produce		json
//	@Success		200	{object}	ImportResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	reports, err := h.imp.ImportAll(r.Context())
	if err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("import interrupted"))
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Reports: reports})
}
