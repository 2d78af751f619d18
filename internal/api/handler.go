// Package api exposes the analytics service over HTTP.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/techstore/techstore-api/internal/analytics"
	"github.com/techstore/techstore-api/internal/config"
	"github.com/techstore/techstore-api/internal/observability"
)

//go:embed openapi.yaml
var openAPIDocument []byte

type ReadinessCheck func(ctx context.Context) error

// AnalyticsService is implemented by *analytics.Service.
type AnalyticsService interface {
	TopCustomers(ctx context.Context, limit int) ([]analytics.Customer, error)
	CustomersBySegment(ctx context.Context, segment string, limit int) ([]analytics.Customer, error)
	BestSellers(ctx context.Context, limit int) ([]analytics.Product, error)
	LowStock(ctx context.Context) ([]analytics.Product, error)
	SalesSummary(ctx context.Context, days int) (*analytics.SalesWindowSummary, error)
	SalesTrends(ctx context.Context, months int) ([]analytics.SalesPeriod, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Analytics         AnalyticsService
}

type rootDescriptor struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints endpointDirectory `json:"endpoints"`
	Docs      string            `json:"docs"`
}

type endpointDirectory struct {
	Customers string `json:"customers"`
	Products  string `json:"products"`
	Sales     string `json:"sales"`
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, rootDescriptor{
			Message: "TechStore Analytics API",
			Version: cfg.Service.Version,
			Endpoints: endpointDirectory{
				Customers: "/api/customers",
				Products:  "/api/products",
				Sales:     "/api/sales",
			},
			Docs: "/docs",
		})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(openAPIDocument)
	})
	mux.HandleFunc("GET /docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/openapi.yaml", http.StatusTemporaryRedirect)
	})

	routes := analyticsRoutes{svc: deps.Analytics, log: deps.Logger}
	mux.HandleFunc("GET /api/customers/top-customers", routes.topCustomers)
	mux.HandleFunc("GET /api/customers/segments/{segment}", routes.customersBySegment)
	mux.HandleFunc("GET /api/products/best-sellers", routes.bestSellers)
	mux.HandleFunc("GET /api/products/low-stock", routes.lowStock)
	mux.HandleFunc("GET /api/sales/summary", routes.salesSummary)
	mux.HandleFunc("GET /api/sales/trends", routes.salesTrends)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, corsMiddleware(cfg.CORS))
	return chain(mux, middlewares...)
}

func corsMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Trace-ID"},
	})
	return c.Handler
}

// CheckWarehouse reports whether a warehouse connection can be acquired.
func CheckWarehouse(ping func(ctx context.Context) error) ReadinessCheck {
	return func(ctx context.Context) error {
		if ping == nil {
			return errors.New("warehouse is not configured")
		}
		return ping(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
