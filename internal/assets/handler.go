package assets

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Handler wires the hardware asset endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers asset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Get("/{id}/history", h.handleHistory)
}

type assetRequest struct {
	AssetTag        string           `json:"assetTag"`
	Type            string           `json:"type" validate:"required"`
	Manufacturer    string           `json:"manufacturer"`
	Model           string           `json:"model"`
	SerialNumber    string           `json:"serialNumber"`
	PurchaseDate    *shared.DateOnly `json:"purchaseDate"`
	PurchasePrice   *decimal.Decimal `json:"purchasePrice"`
	Supplier        string           `json:"supplier"`
	WarrantyExpiry  *shared.DateOnly `json:"warrantyExpiry"`
	AssignedUser    string           `json:"assignedUser"`
	Location        string           `json:"location"`
	Department      string           `json:"department"`
	Status          string           `json:"status"`
	OperatingSystem string           `json:"operatingSystem"`
	Processor       string           `json:"processor"`
	Memory          string           `json:"memory"`
	Storage         string           `json:"storage"`
	Hostname        string           `json:"hostname"`
	IPAddress       string           `json:"ipAddress"`
	MACAddress      string           `json:"macAddress"`
	IsLoanable      bool             `json:"isLoanable"`
	Condition       string           `json:"condition"`
	Description     string           `json:"description"`
	Notes           string           `json:"notes"`
	UserID          string           `json:"userId"`
}

func (req assetRequest) toAsset() Asset {
	return Asset{
		AssetTag:        req.AssetTag,
		Type:            req.Type,
		Manufacturer:    req.Manufacturer,
		Model:           req.Model,
		SerialNumber:    req.SerialNumber,
		PurchaseDate:    req.PurchaseDate,
		PurchasePrice:   req.PurchasePrice,
		Supplier:        req.Supplier,
		WarrantyExpiry:  req.WarrantyExpiry,
		AssignedUser:    req.AssignedUser,
		Location:        req.Location,
		Department:      req.Department,
		Status:          req.Status,
		OperatingSystem: req.OperatingSystem,
		Processor:       req.Processor,
		Memory:          req.Memory,
		Storage:         req.Storage,
		Hostname:        req.Hostname,
		IPAddress:       req.IPAddress,
		MACAddress:      req.MACAddress,
		IsLoanable:      req.IsLoanable,
		Condition:       req.Condition,
		Description:     req.Description,
		Notes:           req.Notes,
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
		h.logger.Error("list assets failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list, "total": len(list)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	asset, err := h.service.Create(r.Context(), req.toAsset(), req.UserID)
	if err != nil {
		h.logger.Error("create asset failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	asset := req.toAsset()
	asset.ID = chi.URLParam(r, "id")
	updated, err := h.service.Update(r.Context(), asset, req.UserID)
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

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	stats, err := h.service.Dashboard(r.Context(), days)
	if err != nil {
		h.logger.Error("asset dashboard failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": history})
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
