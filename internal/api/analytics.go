package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/techstore/techstore-api/internal/analytics"
	"github.com/techstore/techstore-api/internal/observability"
	"github.com/techstore/techstore-api/internal/warehouse"
)

type analyticsRoutes struct {
	svc AnalyticsService
	log *slog.Logger
}

func (a analyticsRoutes) topCustomers(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	limit, err := intParam(r, analytics.TopCustomersLimit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	customers, err := a.svc.TopCustomers(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (a analyticsRoutes) customersBySegment(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	segment := r.PathValue("segment")
	if err := analytics.CheckSegment(segment); err != nil {
		a.fail(w, r, err)
		return
	}
	limit, err := intParam(r, analytics.SegmentLimit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	customers, err := a.svc.CustomersBySegment(r.Context(), segment, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (a analyticsRoutes) bestSellers(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	limit, err := intParam(r, analytics.BestSellersLimit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	products, err := a.svc.BestSellers(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a analyticsRoutes) lowStock(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	products, err := a.svc.LowStock(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// salesSummary answers JSON null when the warehouse returned no row.
func (a analyticsRoutes) salesSummary(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	days, err := intParam(r, analytics.SummaryDays)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	summary, err := a.svc.SalesSummary(r.Context(), days)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a analyticsRoutes) salesTrends(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r) {
		return
	}
	months, err := intParam(r, analytics.TrendMonths)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	periods, err := a.svc.SalesTrends(r.Context(), months)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

func (a analyticsRoutes) ready(w http.ResponseWriter, r *http.Request) bool {
	if a.svc == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ANALYTICS_NOT_CONFIGURED", "analytics dependencies are not configured", false, nil)
		return false
	}
	return true
}

// intParam returns the bound's default when the parameter is absent.
func intParam(r *http.Request, bounds analytics.Bounds) (int, error) {
	values, ok := r.URL.Query()[bounds.Name]
	if !ok || len(values) == 0 {
		return bounds.Default, nil
	}
	return bounds.Parse(values[0])
}

func (a analyticsRoutes) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var validation *analytics.ValidationError
	if errors.As(err, &validation) {
		observability.IncrementValidationRejection(validation.Field)
		if validation.Allowed != nil {
			writeError(ctx, w, http.StatusBadRequest, "INVALID_SEGMENT", validation.Message, false, map[string]any{
				"parameter":      validation.Field,
				"valid_segments": validation.Allowed,
			})
			return
		}
		writeError(ctx, w, http.StatusBadRequest, "INVALID_PARAMETER", validation.Message, false, map[string]any{
			"parameter": validation.Field,
			"min":       validation.Min,
			"max":       validation.Max,
		})
		return
	}

	retryable := true
	message := err.Error()
	var dbErr *warehouse.Error
	if errors.As(err, &dbErr) {
		retryable = dbErr.Op != "decode" && dbErr.Op != "bind"
	} else {
		message = "Database error: " + message
	}
	observability.RequestLogger(ctx, a.log).Error("analytics query failed",
		slog.String("route", r.Pattern),
		slog.Any("error", err),
	)
	writeError(ctx, w, http.StatusInternalServerError, "DATABASE_ERROR", message, retryable, nil)
}
