package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicore/clinicore/internal/assignments"
	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/authz"
	"github.com/clinicore/clinicore/internal/catalog"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/practiceroles"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler          *auth.Handler
	CatalogHandler       *catalog.Handler
	PracticeRolesHandler *practiceroles.Handler
	AssignmentsHandler   *assignments.Handler
	AuthzHandler         *authz.Handler
	UsersHandler         *users.Handler

	Guard   authz.Middleware
	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Clinicore defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/session", params.AuthHandler.MountRoutes)
	r.Route("/catalog", func(r chi.Router) {
		params.CatalogHandler.MountRoutes(r, params.Guard)
	})
	r.Route("/practice/roles", func(r chi.Router) {
		params.PracticeRolesHandler.MountRoutes(r, params.Guard)
	})
	r.Route("/assignments", func(r chi.Router) {
		params.AssignmentsHandler.MountRoutes(r, params.Guard)
	})
	r.Route("/authz", func(r chi.Router) {
		params.AuthzHandler.MountRoutes(r, params.Guard)
	})
	r.Route("/users", func(r chi.Router) {
		params.UsersHandler.MountRoutes(r, params.Guard)
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
