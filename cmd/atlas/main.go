package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/atlas-erp/atlas-erp/internal/app"
	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/masterdata/products"
	"github.com/atlas-erp/atlas-erp/internal/observability"
	"github.com/atlas-erp/atlas-erp/internal/platform/cache"
	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/sales/customers"
	"github.com/atlas-erp/atlas-erp/internal/sales/orders"
	"github.com/atlas-erp/atlas-erp/internal/sales/quotations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Degrade gracefully without Redis; catalog lookups just skip the cache.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled",
			slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	validate := validator.New()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	authMW := auth.Middleware{Tokens: tokens, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService, validate, authMW)

	customerRepo := customers.NewRepository(dbpool)
	customerCache := cache.NewJSONCache(redisClient, "customers:", cfg.CatalogCacheTTL)
	customerService := customers.NewService(customerRepo, customerCache, logger)
	customersHandler := customers.NewHandler(logger, customerService)

	productRepo := products.NewRepository(dbpool)
	productCache := cache.NewJSONCache(redisClient, "products:", cfg.CatalogCacheTTL)
	productService := products.NewService(productRepo, productCache, logger)
	productsHandler := products.NewHandler(logger, productService)

	metrics := observability.NewMetrics()

	quotationRepo := quotations.NewRepository(dbpool)
	quotationService := quotations.NewService(quotationRepo, customerRepo, productRepo)
	quotationsHandler := quotations.NewHandler(logger, quotationService, validate, authMW, metrics)

	orderRepo := orders.NewRepository(dbpool)
	orderService := orders.NewService(orderRepo, quotationRepo)
	ordersHandler := orders.NewHandler(logger, orderService, validate, authMW)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		AuthMiddleware:    authMW,
		CustomersHandler:  customersHandler,
		ProductsHandler:   productsHandler,
		QuotationsHandler: quotationsHandler,
		OrdersHandler:     ordersHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
