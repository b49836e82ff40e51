package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/masterdata/products"
	"github.com/atlas-erp/atlas-erp/internal/observability"
	"github.com/atlas-erp/atlas-erp/internal/sales/customers"
	"github.com/atlas-erp/atlas-erp/internal/sales/orders"
	"github.com/atlas-erp/atlas-erp/internal/sales/quotations"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthHandler       *auth.Handler
	AuthMiddleware    auth.Middleware
	CustomersHandler  *customers.Handler
	ProductsHandler   *products.Handler
	QuotationsHandler *quotations.Handler
	OrdersHandler     *orders.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		if params.Config != nil && params.Config.LoginRateLimit > 0 {
			r.Use(httprate.LimitByIP(params.Config.LoginRateLimit, params.Config.LoginRateWindow))
		}
		params.AuthHandler.MountRoutes(r)
	})

	r.Route("/customers", func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		params.CustomersHandler.MountRoutes(r)
	})
	r.Route("/products", func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		params.ProductsHandler.MountRoutes(r)
	})
	r.Route("/quotations", params.QuotationsHandler.MountRoutes)
	r.Route("/sales-orders", params.OrdersHandler.MountRoutes)

	return r
}
