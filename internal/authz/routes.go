package authz

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers resolution endpoints. The middleware guarding the
// member endpoint lives in this package, so no Guard indirection is needed.
func (h *Handler) MountRoutes(r chi.Router, mw Middleware) {
	r.Get("/me", h.Me)
	r.With(rateLimit()).Post("/check", h.Check)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAny("manage_users", "assign_roles"))
		r.Get("/members/{userID}", h.Member)
	})
}

func rateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
}
