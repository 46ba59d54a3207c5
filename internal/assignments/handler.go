package assignments

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/clinicore/internal/platform/httpx"
	"github.com/clinicore/clinicore/internal/shared"
)

// Handler exposes assignment administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// ListForMember returns the assignments held by one user in the caller's
// practice.
func (h *Handler) ListForMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	list, err := h.service.ListForMember(r.Context(), userID, actor.PracticeID)
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Assignment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": list})
}

// ListHolders returns everyone holding a given practice role.
func (h *Handler) ListHolders(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid practice role id")
		return
	}
	list, err := h.service.ListHolders(r.Context(), actor, roleID)
	if err != nil {
		if errors.Is(err, ErrRoleMissing) {
			httpx.RespondError(w, fmt.Errorf("%w: practice role %d", httpx.ErrNotFound, roleID))
			return
		}
		h.logger.Error("list holders", slog.Any("error", err), slog.Int64("role_id", roleID))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Assignment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": list})
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, req, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}
	if err := h.service.Assign(r.Context(), actor, req.UserID, req.PracticeRoleID); err != nil {
		h.respondMutationError(w, err, req.PracticeRoleID)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "assigned"})
}

func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	actor, req, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}
	if err := h.service.Unassign(r.Context(), actor, req.UserID, req.PracticeRoleID); err != nil {
		h.respondMutationError(w, err, req.PracticeRoleID)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "unassigned"})
}

func (h *Handler) decodeMutation(w http.ResponseWriter, r *http.Request) (shared.Principal, AssignRequest, bool) {
	actor, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return shared.Principal{}, AssignRequest{}, false
	}
	var req AssignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return shared.Principal{}, AssignRequest{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return shared.Principal{}, AssignRequest{}, false
	}
	return actor, req, true
}

func (h *Handler) respondMutationError(w http.ResponseWriter, err error, roleID int64) {
	if errors.Is(err, ErrRoleMissing) {
		httpx.RespondError(w, fmt.Errorf("%w: practice role %d", httpx.ErrNotFound, roleID))
		return
	}
	h.logger.Error("assignment mutation", slog.Any("error", err), slog.Int64("role_id", roleID))
	httpx.RespondError(w, err)
}
