package practiceroles

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Guard abstracts the capability middleware provided by the authz package.
type Guard interface {
	RequireAny(caps ...string) func(http.Handler) http.Handler
	RequireAll(caps ...string) func(http.Handler) http.Handler
}

// MountRoutes registers practice role routes.
func (h *Handler) MountRoutes(r chi.Router, guard Guard) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAny("manage_practice_roles", "assign_roles"))
		r.Get("/", h.List)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAll("manage_practice_roles"))
		r.Use(httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/", h.Activate)
		r.Post("/{id}/deactivate", h.Deactivate)
		r.Post("/{id}/overrides", h.AddOverride)
		r.Delete("/{id}/overrides/{capability}", h.RemoveOverride)
	})
}
