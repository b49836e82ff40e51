package quotations

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/observability"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Handler exposes the /quotations HTTP surface.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	mw       auth.Middleware
	metrics  *observability.Metrics
}

// NewHandler constructs a Handler. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, mw auth.Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, mw: mw, metrics: metrics}
}

// MountRoutes registers the quotation routes. Every route requires an
// authenticated principal; approval additionally requires the SALES role, and
// that gate runs before the handler ever looks at quotation state.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Authenticate)
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Group(func(r chi.Router) {
			r.Use(h.mw.RequireRole(auth.RoleSales))
			r.Put("/{id}/approve", h.Approve)
		})
	})
}

// Create handles POST /quotations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid payload", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, err))
		return
	}

	detail, err := h.service.Create(r.Context(), req, principal)
	if err != nil {
		h.logger.Error("create quotation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, detail)
}

// List handles GET /quotations?status&startDate&endDate&page&limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	resp, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotations failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Show handles GET /quotations/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// Approve handles PUT /quotations/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	result, err := h.service.Approve(r.Context(), id, principal)
	h.metrics.RecordApproval(approvalOutcome(err))
	if err != nil {
		h.logger.Error("approve quotation failed", slog.String("quotation_id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func approvalOutcome(err error) string {
	switch {
	case err == nil:
		return "approved"
	case errors.Is(err, shared.ErrInvalidTransition), errors.Is(err, shared.ErrConflict):
		return "conflict"
	default:
		return "failed"
	}
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid quotation id", shared.ErrValidation)
	}
	return id, nil
}

func parseListRequest(r *http.Request) (ListQuotationsRequest, error) {
	req := ListQuotationsRequest{Page: 1, Limit: 10}
	query := r.URL.Query()

	if raw := query.Get("status"); raw != "" {
		status := QuotationStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return req, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, raw)
		}
		req.Status = &status
	}
	if raw := query.Get("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return req, fmt.Errorf("%w: invalid startDate", shared.ErrValidation)
		}
		req.StartDate = &t
	}
	if raw := query.Get("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return req, fmt.Errorf("%w: invalid endDate", shared.ErrValidation)
		}
		req.EndDate = &t
	}
	if raw := query.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			req.Page = n
		}
	}
	if raw := query.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			req.Limit = n
		}
	}
	return req, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
