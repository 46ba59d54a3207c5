package authz

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/clinicore/clinicore/internal/capability"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// ResolutionSource yields effective capability sets. Both Resolver and
// CachedResolver satisfy it.
type ResolutionSource interface {
	Resolve(ctx context.Context, userID, practiceID int64) (Resolution, error)
}

// Middleware wires capability checks for HTTP handlers. A resolution failure
// is a denial: the request is rejected rather than let through on a guess.
type Middleware struct {
	Source ResolutionSource
	Logger *slog.Logger
}

// RequireAny lets the request through when the user holds at least one of
// the named capabilities.
func (m Middleware) RequireAny(caps ...string) func(http.Handler) http.Handler {
	required := normalizeCapabilities(caps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			res, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if res.Capabilities.HasAny(required...) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "Missing required capability.")
		})
	}
}

// RequireAll lets the request through only when the user holds every named
// capability.
func (m Middleware) RequireAll(caps ...string) func(http.Handler) http.Handler {
	required := normalizeCapabilities(caps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			res, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if res.Capabilities.HasAll(required...) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "Missing required capability.")
		})
	}
}

func (m Middleware) resolve(w http.ResponseWriter, r *http.Request) (Resolution, bool) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok || principal.PracticeID == 0 {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "No practice selected.")
		return Resolution{}, false
	}
	res, err := m.Source.Resolve(r.Context(), principal.UserID, principal.PracticeID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz resolve", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Authorization could not be evaluated.")
		return Resolution{}, false
	}
	return res, true
}

func normalizeCapabilities(caps []string) []capability.Capability {
	unique := make(map[capability.Capability]struct{}, len(caps))
	for _, raw := range caps {
		c := capability.Capability(strings.TrimSpace(strings.ToLower(raw)))
		if c == "" {
			continue
		}
		unique[c] = struct{}{}
	}
	normalized := make([]capability.Capability, 0, len(unique))
	for c := range unique {
		normalized = append(normalized, c)
	}
	return normalized
}
