package software

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Handler wires the software license endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers software license routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

type licenseRequest struct {
	SoftwareName     string           `json:"softwareName" validate:"required"`
	Publisher        string           `json:"publisher"`
	Version          string           `json:"version"`
	LicenseKey       string           `json:"licenseKey"`
	LicenseType      string           `json:"licenseType"`
	PurchaseDate     *shared.DateOnly `json:"purchaseDate"`
	ExpiryDate       *shared.DateOnly `json:"expiryDate"`
	LicensesTotal    int              `json:"licensesTotal" validate:"gte=0"`
	LicensesAssigned int              `json:"licensesAssigned" validate:"gte=0"`
	Category         string           `json:"category"`
	Description      string           `json:"description"`
	Notes            string           `json:"notes"`
	Status           string           `json:"status"`
}

func (req licenseRequest) toLicense() License {
	return License{
		SoftwareName:     req.SoftwareName,
		Publisher:        req.Publisher,
		Version:          req.Version,
		LicenseKey:       req.LicenseKey,
		LicenseType:      req.LicenseType,
		PurchaseDate:     req.PurchaseDate,
		ExpiryDate:       req.ExpiryDate,
		LicensesTotal:    req.LicensesTotal,
		LicensesAssigned: req.LicensesAssigned,
		Category:         req.Category,
		Description:      req.Description,
		Notes:            req.Notes,
		Status:           req.Status,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list software licenses failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list, "total": len(list)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	license, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, license)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req licenseRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	license, err := h.service.Create(r.Context(), req.toLicense())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, license)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req licenseRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	license := req.toLicense()
	license.ID = chi.URLParam(r, "id")
	updated, err := h.service.Update(r.Context(), license)
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
