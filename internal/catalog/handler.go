package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/capability"
	"github.com/clinicore/clinicore/internal/platform/httpx"
)

// Handler exposes the catalog read API to practices and the curation API to
// platform operators.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	// bcrypt hash of the platform operator service key; curation endpoints
	// are rejected outright when unset.
	platformKeyHash string
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, platformKeyHash string) *Handler {
	return &Handler{
		logger:          logger,
		service:         service,
		validate:        validator.New(),
		platformKeyHash: platformKeyHash,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid catalog entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: catalog entry %d", httpx.ErrNotFound, id))
			return
		}
		h.logger.Error("get catalog entry", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	entry, err := h.service.Create(r.Context(), Entry{
		RoleKey:             req.RoleKey,
		DisplayName:         req.DisplayName,
		Category:            Category(req.Category),
		DefaultCapabilities: toCapabilities(req.DefaultCapabilities),
		Description:         req.Description,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			httpx.RespondError(w, fmt.Errorf("%w: role key %q", httpx.ErrDuplicate, req.RoleKey))
			return
		}
		h.logger.Error("create catalog entry", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid catalog entry id")
		return
	}
	var req UpdateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	entry, err := h.service.Update(r.Context(), id, req.DisplayName, Category(req.Category), toCapabilities(req.DefaultCapabilities), req.Description)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: catalog entry %d", httpx.ErrNotFound, id))
			return
		}
		h.logger.Error("update catalog entry", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

// RequirePlatformKey guards the curation endpoints. The key travels in the
// X-Platform-Key header and is compared against the configured bcrypt hash.
func (h *Handler) RequirePlatformKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.platformKeyHash == "" {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "catalog curation disabled")
			return
		}
		key := r.Header.Get("X-Platform-Key")
		if key == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing platform key")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(h.platformKeyHash), []byte(key)); err != nil {
			h.logger.Warn("platform key rejected", slog.String("path", r.URL.Path))
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "invalid platform key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func toCapabilities(raw []string) []capability.Capability {
	out := make([]capability.Capability, len(raw))
	for i, s := range raw {
		out[i] = capability.Capability(s)
	}
	return out
}
