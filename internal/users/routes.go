package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Guard abstracts the capability middleware provided by the authz package.
type Guard interface {
	RequireAny(caps ...string) func(http.Handler) http.Handler
}

// MountRoutes registers member profile routes.
func (h *Handler) MountRoutes(r chi.Router, guard Guard) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAny("manage_users", "assign_roles"))
		r.Get("/members", h.ListMembers)
		r.Get("/{userID}", h.Show)
	})
}
