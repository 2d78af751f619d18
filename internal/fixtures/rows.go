package fixtures

import "time"

// Row types mirror the gold-table schemas. Monetary columns are stored as
// DOUBLE; dates are Parquet DATE values (days since the Unix epoch).

type CustomerRow struct {
	CustomerID            int64    `parquet:"customer_id"`
	Name                  string   `parquet:"name"`
	Email                 string   `parquet:"email"`
	City                  *string  `parquet:"city"`
	Country               *string  `parquet:"country"`
	AgeGroup              *string  `parquet:"age_group"`
	CustomerLifetimeStage *string  `parquet:"customer_lifetime_stage"`
	TotalOrders           int64    `parquet:"total_orders"`
	TotalRevenue          float64  `parquet:"total_revenue"`
	AvgOrderValue         float64  `parquet:"avg_order_value"`
	RecencyScore          int32    `parquet:"recency_score"`
	FrequencyScore        int32    `parquet:"frequency_score"`
	MonetaryScore         int32    `parquet:"monetary_score"`
	CustomerSegment       *string  `parquet:"customer_segment"`
	CustomerLifetimeValue *float64 `parquet:"customer_lifetime_value"`
}

type ProductRow struct {
	ProductID          int64   `parquet:"product_id"`
	ProductName        string  `parquet:"product_name"`
	Category           string  `parquet:"category"`
	Brand              string  `parquet:"brand"`
	CurrentPrice       float64 `parquet:"current_price"`
	CurrentStock       int64   `parquet:"current_stock"`
	StockLevel         string  `parquet:"stock_level"`
	TotalUnitsSold     int64   `parquet:"total_units_sold"`
	TotalRevenue       float64 `parquet:"total_revenue"`
	TotalProfit        float64 `parquet:"total_profit"`
	SalesPerformance   string  `parquet:"sales_performance"`
	AvgRating          float64 `parquet:"avg_rating"`
	ProductHealthScore float64 `parquet:"product_health_score"`
}

type SalesMetricRow struct {
	SaleDate                int32    `parquet:"sale_date,date"`
	DailyRevenue            float64  `parquet:"daily_revenue"`
	DailyOrders             int64    `parquet:"daily_orders"`
	DailyAOV                float64  `parquet:"daily_aov"`
	MonthStart              int32    `parquet:"month_start,date"`
	MonthlyRevenue          float64  `parquet:"monthly_revenue"`
	MonthlyOrders           int64    `parquet:"monthly_orders"`
	MomRevenueGrowthPercent *float64 `parquet:"mom_revenue_growth_percent"`
}

// Snapshot is one consistent set of the three gold tables.
type Snapshot struct {
	Customers []CustomerRow
	Products  []ProductRow
	Sales     []SalesMetricRow
}

func epochDays(t time.Time) int32 {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int32(midnight.Unix() / 86400)
}

// DateFromEpochDays converts a stored DATE value back to a UTC midnight.
func DateFromEpochDays(days int32) time.Time {
	return time.Unix(int64(days)*86400, 0).UTC()
}
