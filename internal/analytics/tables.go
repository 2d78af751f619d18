package analytics

// Gold tables produced by the upstream transformation pipeline.
const (
	TableCustomerAnalytics  = "gold_customer_analytics"
	TableProductPerformance = "gold_product_performance"
	TableSalesMetrics       = "gold_sales_metrics"
)

var GoldTables = []string{TableCustomerAnalytics, TableProductPerformance, TableSalesMetrics}
