package catalog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Guard abstracts the capability middleware provided by the authz package.
type Guard interface {
	RequireAny(caps ...string) func(http.Handler) http.Handler
}

// MountRoutes registers catalog routes. Reads are available to any member who
// can administer roles in their practice; writes are platform-operator only.
func (h *Handler) MountRoutes(r chi.Router, guard Guard) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAny("manage_practice_roles", "assign_roles"))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.RequirePlatformKey)
		r.Use(httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
	})
}
