// Package analytics answers the dashboard questions asked of the gold tables.
//
// Every operation validates its arguments first and only then builds a
// parameterized statement; rejected input never reaches the warehouse.
package analytics

import (
	"context"
	"fmt"

	"github.com/techstore/techstore-api/internal/warehouse"
)

// Executor is the subset of *warehouse.Executor the service needs.
type Executor interface {
	ExecuteMany(ctx context.Context, query string, params map[string]any) ([]warehouse.Row, error)
	ExecuteOne(ctx context.Context, query string, params map[string]any) (warehouse.Row, bool, error)
	Dialect() warehouse.Dialect
}

// Query names label warehouse metrics and logs.
const (
	QueryTopCustomers       = "top_customers"
	QueryCustomersBySegment = "customers_by_segment"
	QueryBestSellers        = "best_sellers"
	QueryLowStock           = "low_stock"
	QuerySalesSummary       = "sales_summary"
	QuerySalesTrends        = "sales_trends"
)

type Service struct {
	executor   Executor
	statements statements
}

func NewService(executor Executor) (*Service, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	dialect := executor.Dialect()
	if dialect == nil {
		return nil, fmt.Errorf("executor dialect is required")
	}
	return &Service{executor: executor, statements: buildStatements(dialect)}, nil
}

func (s *Service) TopCustomers(ctx context.Context, limit int) ([]Customer, error) {
	if err := TopCustomersLimit.Check(limit); err != nil {
		return nil, err
	}
	rows, err := s.executor.ExecuteMany(warehouse.WithQueryName(ctx, QueryTopCustomers),
		s.statements.topCustomers, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, decodeCustomer)
}

func (s *Service) CustomersBySegment(ctx context.Context, segment string, limit int) ([]Customer, error) {
	if err := CheckSegment(segment); err != nil {
		return nil, err
	}
	if err := SegmentLimit.Check(limit); err != nil {
		return nil, err
	}
	rows, err := s.executor.ExecuteMany(warehouse.WithQueryName(ctx, QueryCustomersBySegment),
		s.statements.customersBySegment, map[string]any{"segment": segment, "limit": limit})
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, decodeCustomer)
}

func (s *Service) BestSellers(ctx context.Context, limit int) ([]Product, error) {
	if err := BestSellersLimit.Check(limit); err != nil {
		return nil, err
	}
	rows, err := s.executor.ExecuteMany(warehouse.WithQueryName(ctx, QueryBestSellers),
		s.statements.bestSellers, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, decodeProduct)
}

func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	rows, err := s.executor.ExecuteMany(warehouse.WithQueryName(ctx, QueryLowStock),
		s.statements.lowStock, map[string]any{"limit": LowStockLimit})
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, decodeProduct)
}

// SalesSummary aggregates the trailing window of days. It returns nil, nil
// when the warehouse produced no row.
func (s *Service) SalesSummary(ctx context.Context, days int) (*SalesWindowSummary, error) {
	if err := SummaryDays.Check(days); err != nil {
		return nil, err
	}
	row, ok, err := s.executor.ExecuteOne(warehouse.WithQueryName(ctx, QuerySalesSummary),
		s.statements.salesSummary, map[string]any{"days": days})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	summary, err := decodeSalesWindowSummary(row)
	if err != nil {
		return nil, &warehouse.Error{Op: "decode", Err: err}
	}
	return &summary, nil
}

func (s *Service) SalesTrends(ctx context.Context, months int) ([]SalesPeriod, error) {
	if err := TrendMonths.Check(months); err != nil {
		return nil, err
	}
	rows, err := s.executor.ExecuteMany(warehouse.WithQueryName(ctx, QuerySalesTrends),
		s.statements.salesTrends, map[string]any{"months": months})
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, decodeSalesPeriod)
}
