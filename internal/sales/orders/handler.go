package orders

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// CreateSalesOrderRequest is the payload for POST /sales-orders.
type CreateSalesOrderRequest struct {
	QuotationID uuid.UUID `json:"quotation_id" validate:"required"`
}

// Handler exposes the /sales-orders HTTP surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	mw       auth.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, mw auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, mw: mw}
}

// MountRoutes registers the sales-order routes; both require the SALES role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Authenticate)
		r.Use(h.mw.RequireRole(auth.RoleSales))
		r.Post("/", h.Create)
		r.Get("/", h.List)
	})
}

// Create handles POST /sales-orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	var req CreateSalesOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid payload", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: quotation_id is required", shared.ErrValidation))
		return
	}

	order, err := h.service.Create(r.Context(), req.QuotationID, principal)
	if err != nil {
		h.logger.Error("create sales order failed", slog.String("quotation_id", req.QuotationID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"sales_order": order})
}

// List handles GET /sales-orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list sales orders failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if details == nil {
		details = []SalesOrderDetail{}
	}
	httpx.JSON(w, http.StatusOK, details)
}
