package borrowing

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Handler wires the asset loan endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers borrowing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCheckout)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/checkin", h.handleCheckin)
}

type checkoutRequest struct {
	AssetID         string           `json:"assetId" validate:"required"`
	BorrowerName    string           `json:"borrowerName" validate:"required"`
	BorrowerContact string           `json:"borrowerContact"`
	CheckoutDate    *shared.DateOnly `json:"checkoutDate"`
	DueDate         *shared.DateOnly `json:"dueDate"`
	Location        string           `json:"location"`
	Purpose         string           `json:"purpose"`
	Notes           string           `json:"notes"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status:  r.URL.Query().Get("status"),
		AssetID: r.URL.Query().Get("asset_id"),
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list borrow records failed", slog.Any("error", err))
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

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CheckoutInput{
		AssetID:         req.AssetID,
		BorrowerName:    req.BorrowerName,
		BorrowerContact: req.BorrowerContact,
		DueDate:         req.DueDate,
		Location:        req.Location,
		Purpose:         req.Purpose,
		Notes:           req.Notes,
	}
	if req.CheckoutDate != nil {
		input.CheckoutDate = *req.CheckoutDate
	}
	record, err := h.service.Checkout(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) handleCheckin(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Checkin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
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
