package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noiddea/dash/internal/auth"
	"github.com/noiddea/dash/internal/catalog"
	"github.com/noiddea/dash/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	AuthHandler    *auth.Handler
	CatalogHandler *catalog.Handler
}

// NewRouter constructs the chi.Router with dash defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	params.AuthHandler.MountRoutes(r)

	r.Route("/api", func(r chi.Router) {
		params.CatalogHandler.MountRoutes(r)
	})

	return r
}
