package assignments

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

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router, guard Guard) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAny("assign_roles", "manage_users"))
		r.Get("/members/{userID}", h.ListForMember)
		r.Get("/roles/{roleID}/holders", h.ListHolders)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAll("assign_roles"))
		r.Use(httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/", h.Assign)
		r.Delete("/", h.Unassign)
	})
}
