package patches

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Handler wires the patch posture endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers patch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

type patchRequest struct {
	AssetID         string           `json:"assetId" validate:"required"`
	PatchStatus     string           `json:"patchStatus"`
	LastPatchCheck  *shared.DateOnly `json:"lastPatchCheck"`
	OperatingSystem string           `json:"operatingSystem"`
	Vulnerabilities int              `json:"vulnerabilities" validate:"gte=0"`
	PendingUpdates  int              `json:"pendingUpdates" validate:"gte=0"`
	CriticalUpdates int              `json:"criticalUpdates" validate:"gte=0"`
	SecurityUpdates int              `json:"securityUpdates" validate:"gte=0"`
	Notes           string           `json:"notes"`
	NextCheckDate   *shared.DateOnly `json:"nextCheckDate"`
}

func (req patchRequest) toRecord() Record {
	return Record{
		AssetID:         req.AssetID,
		PatchStatus:     req.PatchStatus,
		LastPatchCheck:  req.LastPatchCheck,
		OperatingSystem: req.OperatingSystem,
		Vulnerabilities: req.Vulnerabilities,
		PendingUpdates:  req.PendingUpdates,
		CriticalUpdates: req.CriticalUpdates,
		SecurityUpdates: req.SecurityUpdates,
		Notes:           req.Notes,
		NextCheckDate:   req.NextCheckDate,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status:       r.URL.Query().Get("status"),
		AssetID:      r.URL.Query().Get("assetId"),
		CriticalOnly: r.URL.Query().Get("critical") == "true",
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list patch records failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list, "total": len(list)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	record, err := h.service.Create(r.Context(), req.toRecord())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	record := req.toRecord()
	record.ID = chi.URLParam(r, "id")
	updated, err := h.service.Update(r.Context(), record)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return fmt.Errorf("invalid request body: %w", httpx.ErrValidation)
	}
	if err := h.validate.Struct(target); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), httpx.ErrValidation)
	}
	return nil
}
