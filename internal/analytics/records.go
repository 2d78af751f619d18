package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/techstore/techstore-api/internal/warehouse"
)

// JSON field names follow the gold-table columns so existing dashboards keep
// working. Decimals encode as JSON strings to stay exact.

type Customer struct {
	CustomerID            int64            `json:"customer_id"`
	Name                  string           `json:"name"`
	Email                 string           `json:"email"`
	City                  *string          `json:"city"`
	Country               *string          `json:"country"`
	AgeGroup              *string          `json:"age_group"`
	CustomerLifetimeStage *string          `json:"customer_lifetime_stage"`
	TotalOrders           int64            `json:"total_orders"`
	TotalRevenue          decimal.Decimal  `json:"total_revenue"`
	AvgOrderValue         decimal.Decimal  `json:"avg_order_value"`
	CustomerSegment       *string          `json:"customer_segment"`
	CustomerLifetimeValue *decimal.Decimal `json:"customer_lifetime_value"`
}

type Product struct {
	ProductID          int64           `json:"product_id"`
	ProductName        string          `json:"product_name"`
	Category           string          `json:"category"`
	Brand              string          `json:"brand"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	CurrentStock       int64           `json:"current_stock"`
	TotalUnitsSold     int64           `json:"total_units_sold"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalProfit        decimal.Decimal `json:"total_profit"`
	SalesPerformance   string          `json:"sales_performance"`
	AvgRating          decimal.Decimal `json:"avg_rating"`
	ProductHealthScore decimal.Decimal `json:"product_health_score"`
}

// SalesPeriod is one month of the trend series. The daily_* names are kept
// for compatibility; they carry the monthly figures.
type SalesPeriod struct {
	SaleDate                *time.Time       `json:"sale_date"`
	DailyRevenue            *decimal.Decimal `json:"daily_revenue"`
	DailyOrders             *int64           `json:"daily_orders"`
	MonthlyRevenue          *decimal.Decimal `json:"monthly_revenue"`
	MomRevenueGrowthPercent *decimal.Decimal `json:"mom_revenue_growth_percent"`
}

type SalesWindowSummary struct {
	DaysAnalyzed    int64            `json:"days_analyzed"`
	TotalRevenue    *decimal.Decimal `json:"total_revenue"`
	TotalOrders     *int64           `json:"total_orders"`
	AvgDailyRevenue *decimal.Decimal `json:"avg_daily_revenue"`
	AvgOrderValue   *decimal.Decimal `json:"avg_order_value"`
}

func decodeCustomer(row warehouse.Row) (Customer, error) {
	r := rowReader{row: row}
	customer := Customer{
		CustomerID:            r.Int("customer_id"),
		Name:                  r.String("name"),
		Email:                 r.String("email"),
		City:                  r.OptionalString("city"),
		Country:               r.OptionalString("country"),
		AgeGroup:              r.OptionalString("age_group"),
		CustomerLifetimeStage: r.OptionalString("customer_lifetime_stage"),
		TotalOrders:           r.Int("total_orders"),
		TotalRevenue:          r.Decimal("total_revenue"),
		AvgOrderValue:         r.Decimal("avg_order_value"),
		CustomerSegment:       r.OptionalString("customer_segment"),
		CustomerLifetimeValue: r.OptionalDecimal("customer_lifetime_value"),
	}
	return customer, r.err
}

func decodeProduct(row warehouse.Row) (Product, error) {
	r := rowReader{row: row}
	product := Product{
		ProductID:          r.Int("product_id"),
		ProductName:        r.String("product_name"),
		Category:           r.String("category"),
		Brand:              r.String("brand"),
		CurrentPrice:       r.Decimal("current_price"),
		CurrentStock:       r.Int("current_stock"),
		TotalUnitsSold:     r.Int("total_units_sold"),
		TotalRevenue:       r.Decimal("total_revenue"),
		TotalProfit:        r.Decimal("total_profit"),
		SalesPerformance:   r.String("sales_performance"),
		AvgRating:          r.Decimal("avg_rating"),
		ProductHealthScore: r.Decimal("product_health_score"),
	}
	return product, r.err
}

func decodeSalesPeriod(row warehouse.Row) (SalesPeriod, error) {
	r := rowReader{row: row}
	period := SalesPeriod{
		SaleDate:                r.OptionalTime("sale_date"),
		DailyRevenue:            r.OptionalDecimal("daily_revenue"),
		DailyOrders:             r.OptionalInt("daily_orders"),
		MonthlyRevenue:          r.OptionalDecimal("monthly_revenue"),
		MomRevenueGrowthPercent: r.OptionalDecimal("mom_revenue_growth_percent"),
	}
	return period, r.err
}

func decodeSalesWindowSummary(row warehouse.Row) (SalesWindowSummary, error) {
	r := rowReader{row: row}
	summary := SalesWindowSummary{
		DaysAnalyzed:    r.Int("days_analyzed"),
		TotalRevenue:    r.OptionalDecimal("total_revenue"),
		TotalOrders:     r.OptionalInt("total_orders"),
		AvgDailyRevenue: r.OptionalDecimal("avg_daily_revenue"),
		AvgOrderValue:   r.OptionalDecimal("avg_order_value"),
	}
	return summary, r.err
}

func decodeAll[T any](rows []warehouse.Row, decode func(warehouse.Row) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		record, err := decode(row)
		if err != nil {
			return nil, &warehouse.Error{Op: "decode", Err: err}
		}
		out = append(out, record)
	}
	return out, nil
}
