package users

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// Handler wires the user management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

type userRequest struct {
	FirstName  string           `json:"firstName" validate:"required"`
	LastName   string           `json:"lastName" validate:"required"`
	Email      string           `json:"email" validate:"required,email"`
	Phone      string           `json:"phone"`
	Department string           `json:"department"`
	Role       string           `json:"role"`
	Location   string           `json:"location"`
	EmployeeID string           `json:"employeeId"`
	Manager    string           `json:"manager"`
	StartDate  *shared.DateOnly `json:"startDate"`
	Status     string           `json:"status" validate:"omitempty,oneof=active inactive onboarding offboarded"`
}

func (req userRequest) toUser() User {
	return User{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		Role:       req.Role,
		Location:   req.Location,
		EmployeeID: req.EmployeeID,
		Manager:    req.Manager,
		StartDate:  req.StartDate,
		Status:     req.Status,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search:     r.URL.Query().Get("search"),
		Status:     r.URL.Query().Get("status"),
		Department: r.URL.Query().Get("department"),
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list, "total": len(list)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Create(r.Context(), req.toUser())
	if err != nil {
		h.logger.Error("create user failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user := req.toUser()
	user.ID = chi.URLParam(r, "id")
	updated, err := h.service.Update(r.Context(), user)
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
