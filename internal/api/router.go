package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Record CRUD.
	r.Get("/records", h.ListRecords)
	r.Post("/records", h.SaveRecord)
	r.Get("/records/{id}", h.GetRecord)
	r.Delete("/records/{id}", h.DeleteRecord)
	r.Get("/records/{id}/similar", h.Similar)

	// Graph edges.
	r.Post("/links", h.Link)
	r.Delete("/links", h.Unlink)

	// Search & relevance.
	r.Get("/search", h.Search)
	r.Post("/context", h.InjectContext)
	r.Post("/session/reset", h.ResetSession)

	// Maintenance.
	r.Post("/index/rebuild", h.Rebuild)
	r.Get("/doctor", h.Health)
	r.Get("/graph", h.Graph)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
