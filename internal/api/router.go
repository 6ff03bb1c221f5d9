package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flancian/agora-import/internal/nodeservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// imp, if non-nil, backs POST /import.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *nodeservice.Service, imp Importer, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, imp)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Nodes.
	r.Get("/nodes/{title}", h.GetNode)
	r.Get("/nodes/{title}/backlinks", h.Backlinks)

	// Per-user subnodes.
	r.Get("/users/{user}/subnodes", h.ListUserSubnodes)
	r.Get("/users/{user}/subnodes/{title}", h.GetSubnode)

	// Search.
	r.Get("/search", h.Search)

	if imp != nil {
		r.Post("/import", h.Import)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
