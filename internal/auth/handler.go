// Package auth owns the session lifecycle. Authentication itself happens in
// the external identity layer; that layer establishes sessions here through a
// service-key guarded endpoint, and members then select the practice they act
// in.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// MembershipStore answers whether a user belongs to a practice.
type MembershipStore interface {
	IsMember(ctx context.Context, userID, practiceID int64) (bool, error)
}

// Handler wires HTTP endpoints for session flows.
type Handler struct {
	logger          *slog.Logger
	members         MembershipStore
	platformKeyHash string
	validate        *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, members MembershipStore, platformKeyHash string) *Handler {
	return &Handler{
		logger:          logger,
		members:         members,
		platformKeyHash: platformKeyHash,
		validate:        validator.New(),
	}
}

// MountRoutes registers session routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requirePlatformKey)
		r.Use(httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/", h.establish)
	})
	r.Post("/practice", h.selectPractice)
	r.Delete("/", h.logout)
}

type establishRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type selectPracticeRequest struct {
	PracticeID int64 `json:"practice_id" validate:"required,gt=0"`
}

// establish is called by the identity layer after it verified the user's
// credentials. It promotes the anonymous session to an authenticated one.
func (h *Handler) establish(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during establish")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "session unavailable")
		return
	}
	var req establishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	sess.SetUser(req.UserID)
	httpx.JSON(w, http.StatusOK, map[string]any{"session_id": sess.ID})
}

// selectPractice records which practice the caller acts in. Membership is
// required: holding at least one assignment there, active or not.
func (h *Handler) selectPractice(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	principal, ok := shared.PrincipalFromContext(r.Context())
	if sess == nil || !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req selectPracticeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	member, err := h.members.IsMember(r.Context(), principal.UserID, req.PracticeID)
	if err != nil {
		h.logger.Error("membership check", slog.Any("error", err), slog.Int64("practice_id", req.PracticeID))
		httpx.RespondError(w, err)
		return
	}
	if !member {
		httpx.RespondError(w, fmt.Errorf("%w: not a member of practice %d", httpx.ErrForbidden, req.PracticeID))
		return
	}
	sess.SetPractice(req.PracticeID)
	httpx.JSON(w, http.StatusOK, map[string]any{"practice_id": req.PracticeID})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		sess.Destroy()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (h *Handler) requirePlatformKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Platform-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(h.platformKeyHash), []byte(key)) != nil {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
