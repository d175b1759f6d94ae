package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions carries cross-cutting wiring the caller controls.
type RouterOptions struct {
	AuthMiddleware func(http.Handler) http.Handler
}

// NewRouter constructs the API HTTP router.
//
// The /internal subtree is the downloader's surface; deployments keep it off
// the public listener, so it bypasses the session middleware.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		r.Post("/v1/routes", s.handleCreateRoute)
		r.Put("/v1/notes/{noteID}", s.handleUpsertNote)
		r.Put("/v1/progress/{routeID}", s.handleUpdateProgress)
		r.Put("/v1/preferences", s.handleUpdatePreferences)
		r.Post("/v1/bundles", s.handleCreateBundle)
		r.Get("/v1/bundles", s.handleListBundles)
	})

	r.Patch("/internal/bundles/{bundleID}", s.handleAdvanceBundle)

	return r
}
