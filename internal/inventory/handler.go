package inventory

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Handler wires the inventory HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	reports  *Reports
	validate *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service, reports *Reports) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		reports:  reports,
		validate: validator.New(),
	}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleReceive)
	r.Post("/dispense", h.handleDispense)
	r.Post("/return", h.handleReturn)
	r.Post("/adjust", h.handleAdjust)
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/reports", h.handleReports)
	r.Get("/reports/export", h.handleReportsExport)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleEdit)
	r.Delete("/{id}", h.handleDelete)
	r.Get("/{id}/history", h.handleHistory)
}

type receiveRequest struct {
	Barcode       string           `json:"barcode"`
	Name          string           `json:"name" validate:"required"`
	Quantity      int64            `json:"quantity" validate:"required,gt=0"`
	Location      string           `json:"location"`
	Category      string           `json:"category"`
	Description   string           `json:"description"`
	MinStockLevel *int64           `json:"min_stock_level" validate:"omitempty,gte=0"`
	PricePerUnit  *decimal.Decimal `json:"price_per_unit"`
	ImageURL      string           `json:"image_url"`
	UserID        string           `json:"user_id"`
	Notes         string           `json:"notes"`
}

type dispenseRequest struct {
	ItemID   int64  `json:"itemId" validate:"required,gt=0"`
	Quantity int64  `json:"quantityToDispense" validate:"required,gt=0"`
	UserID   string `json:"userId"`
	Notes    string `json:"notes"`
}

type returnRequest struct {
	ItemID   int64  `json:"itemId" validate:"required,gt=0"`
	Quantity int64  `json:"quantityToReturn" validate:"required,gt=0"`
	UserID   string `json:"userId"`
	Notes    string `json:"notes"`
}

type adjustRequest struct {
	ItemID      int64  `json:"itemId" validate:"required,gt=0"`
	NewQuantity *int64 `json:"newQuantity" validate:"required,gte=0"`
	UserID      string `json:"userId"`
	Notes       string `json:"notes" validate:"required"`
}

type editRequest struct {
	Name          string `json:"name" validate:"required"`
	Barcode       string `json:"barcode"`
	Location      string `json:"location"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	MinStockLevel int64  `json:"min_stock_level" validate:"gte=0"`
}

type listResponse struct {
	Items      []Item            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

type historyResponse struct {
	ItemName          string            `json:"item_name"`
	Entries           []LedgerEntry     `json:"entries"`
	RunningValueTotal decimal.Decimal   `json:"running_value_total"`
	Pagination        shared.Pagination `json:"pagination"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	// Matches the web form's default threshold for newly created items.
	minStock := int64(5)
	if req.MinStockLevel != nil {
		minStock = *req.MinStockLevel
	}

	result, err := h.service.Receive(r.Context(), ReceiveInput{
		Barcode:       req.Barcode,
		Name:          req.Name,
		Quantity:      req.Quantity,
		UnitPrice:     req.PricePerUnit,
		Location:      req.Location,
		Category:      req.Category,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		MinStockLevel: minStock,
		UserID:        req.UserID,
		Notes:         req.Notes,
	})
	if err != nil {
		h.logger.Warn("receive failed", slog.Any("error", err), slog.String("name", req.Name))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleDispense(w http.ResponseWriter, r *http.Request) {
	var req dispenseRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Dispense(r.Context(), DispenseInput{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		UserID:   req.UserID,
		Notes:    req.Notes,
	})
	if err != nil {
		h.logger.Warn("dispense failed", slog.Any("error", err), slog.Int64("item_id", req.ItemID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Return(r.Context(), ReturnInput{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		UserID:   req.UserID,
		Notes:    req.Notes,
	})
	if err != nil {
		h.logger.Warn("return failed", slog.Any("error", err), slog.Int64("item_id", req.ItemID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Adjust(r.Context(), AdjustInput{
		ItemID:      req.ItemID,
		NewQuantity: *req.NewQuantity,
		UserID:      req.UserID,
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.Warn("adjust failed", slog.Any("error", err), slog.Int64("item_id", req.ItemID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if barcode := q.Get("barcode"); barcode != "" {
		item, err := h.service.GetItemByBarcode(r.Context(), barcode)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, item)
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("limit"))
	filter := ListFilter{Search: q.Get("search"), Page: page, PerPage: perPage}
	items, total, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		h.logger.Error("list items failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Items:      items,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req editRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.EditItem(r.Context(), id, ItemEdit{
		Name:          req.Name,
		Barcode:       req.Barcode,
		Location:      req.Location,
		Category:      req.Category,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		MinStockLevel: req.MinStockLevel,
	})
	if err != nil {
		h.logger.Warn("edit item failed", slog.Any("error", err), slog.Int64("item_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeactivateItem(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("limit"))
	filter := HistoryFilter{ItemID: id, Page: page, PerPage: perPage}
	item, entries, total, running, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.logger.Error("history failed", slog.Any("error", err), slog.Int64("item_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, historyResponse{
		ItemName:          item.Name,
		Entries:           entries,
		RunningValueTotal: running,
		Pagination:        shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.reports.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	filter, err := reportFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.reports.Report(r.Context(), filter)
	if err != nil {
		h.logger.Error("report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleReportsExport(w http.ResponseWriter, r *http.Request) {
	filter, err := reportFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.reports.Report(r.Context(), filter)
	if err != nil {
		h.logger.Error("report export failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory-transactions.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"id", "item", "user", "type", "quantity_change", "price_per_unit", "value_change", "notes", "date"})
	for _, row := range rows {
		_ = writer.Write([]string{
			strconv.FormatInt(row.ID, 10),
			row.ItemName,
			row.UserName,
			string(row.Type),
			strconv.FormatInt(row.QuantityChange, 10),
			row.PricePerUnit.String(),
			row.ValueChange.String(),
			row.Notes,
			row.TransactionDate.Format(time.RFC3339),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("csv flush failed", slog.Any("error", err))
	}
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

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id: %w", httpx.ErrValidation)
	}
	return id, nil
}

func reportFilterFromQuery(r *http.Request) (ReportFilter, error) {
	q := r.URL.Query()
	var filter ReportFilter
	if from := q.Get("startDate"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return ReportFilter{}, fmt.Errorf("invalid startDate: %w", httpx.ErrValidation)
		}
		filter.From = t
	}
	if to := q.Get("endDate"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return ReportFilter{}, fmt.Errorf("invalid endDate: %w", httpx.ErrValidation)
		}
		// Inclusive end of day.
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if typ := q.Get("type"); typ != "" && typ != "all" {
		movement := MovementType(typ)
		if !movement.Valid() {
			return ReportFilter{}, fmt.Errorf("invalid transaction type %q: %w", typ, httpx.ErrValidation)
		}
		filter.Type = movement
	}
	if userID := q.Get("userId"); userID != "" && userID != "all" {
		filter.UserID = userID
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return ReportFilter{}, fmt.Errorf("invalid limit: %w", httpx.ErrValidation)
		}
		filter.Limit = n
	}
	return filter, nil
}
