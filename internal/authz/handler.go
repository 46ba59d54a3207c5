package authz

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/capability"
	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// Handler exposes resolution endpoints for the UI and for admins inspecting
// member permissions.
type Handler struct {
	logger   *slog.Logger
	source   ResolutionSource
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, source ResolutionSource) *Handler {
	return &Handler{logger: logger, source: source, validate: validator.New()}
}

// CheckRequest asks whether the caller holds the listed capabilities.
type CheckRequest struct {
	Capabilities []string `json:"capabilities" validate:"required,min=1,dive,required"`
}

// Me returns the caller's own resolution within the selected practice.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	h.respondResolution(w, r, principal.UserID, principal.PracticeID)
}

// Member returns another member's resolution. Routes guard this behind
// user-management capabilities.
func (h *Handler) Member(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	h.respondResolution(w, r, userID, principal.PracticeID)
}

// Check evaluates a capability check for the caller and reports per-token
// results. Unknown tokens are reported as not granted, not rejected.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	res, err := h.source.Resolve(r.Context(), principal.UserID, principal.PracticeID)
	if err != nil {
		h.logger.Error("authz check", slog.Any("error", err), slog.Int64("user_id", principal.UserID))
		httpx.RespondError(w, err)
		return
	}

	results := make(map[string]bool, len(req.Capabilities))
	all := true
	for _, raw := range req.Capabilities {
		granted := res.Capabilities.Has(capability.Capability(raw))
		results[raw] = granted
		all = all && granted
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"granted": results, "all": all})
}

func (h *Handler) respondResolution(w http.ResponseWriter, r *http.Request, userID, practiceID int64) {
	res, err := h.source.Resolve(r.Context(), userID, practiceID)
	if err != nil {
		h.logger.Error("authz resolve", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
		return
	}
	if res.Assignments == nil {
		res.Assignments = []MemberAssignment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":      res.UserID,
		"practice_id":  res.PracticeID,
		"capabilities": res.Capabilities.Strings(),
		"assignments":  res.Assignments,
	})
}
