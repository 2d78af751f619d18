package analytics

import "github.com/techstore/techstore-api/internal/warehouse"

const (
	customerColumns = `customer_id, name, email, city, country, age_group,
            customer_lifetime_stage, total_orders, total_revenue,
            avg_order_value, customer_segment, customer_lifetime_value`

	productColumns = `product_id, product_name, category, brand, current_price,
            current_stock, total_units_sold, total_revenue, total_profit,
            sales_performance, avg_rating, product_health_score`
)

// statements are rendered once per dialect. Only configuration-validated
// identifiers are spliced in; request values are always :name parameters.
type statements struct {
	topCustomers       string
	customersBySegment string
	bestSellers        string
	lowStock           string
	salesSummary       string
	salesTrends        string
}

func buildStatements(d warehouse.Dialect) statements {
	customers := d.Table(TableCustomerAnalytics)
	products := d.Table(TableProductPerformance)
	sales := d.Table(TableSalesMetrics)

	return statements{
		topCustomers: `SELECT ` + customerColumns + `
        FROM ` + customers + `
        ORDER BY customer_lifetime_value DESC
        LIMIT :limit`,
		customersBySegment: `SELECT ` + customerColumns + `
        FROM ` + customers + `
        WHERE customer_segment = :segment
        ORDER BY customer_lifetime_value DESC
        LIMIT :limit`,
		bestSellers: `SELECT ` + productColumns + `
        FROM ` + products + `
        WHERE sales_performance IN ('Best Seller', 'Good')
        ORDER BY total_revenue DESC
        LIMIT :limit`,
		lowStock: `SELECT ` + productColumns + `
        FROM ` + products + `
        WHERE stock_level IN ('Critical', 'Low', 'Out of Stock')
        ORDER BY current_stock ASC
        LIMIT :limit`,
		salesSummary: `SELECT
            COUNT(DISTINCT sale_date) AS days_analyzed,
            SUM(daily_revenue) AS total_revenue,
            SUM(daily_orders) AS total_orders,
            AVG(daily_revenue) AS avg_daily_revenue,
            AVG(daily_aov) AS avg_order_value
        FROM ` + sales + `
        WHERE sale_date > ` + d.DaysBeforeToday("days"),
		salesTrends: `SELECT DISTINCT
            month_start AS sale_date,
            monthly_revenue AS daily_revenue,
            monthly_orders AS daily_orders,
            monthly_revenue,
            mom_revenue_growth_percent
        FROM ` + sales + `
        WHERE month_start IS NOT NULL
        ORDER BY month_start DESC
        LIMIT :months`,
	}
}
