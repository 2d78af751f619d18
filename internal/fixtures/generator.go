package fixtures

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

var (
	firstNames = []string{"Ana", "Luis", "Marta", "Jorge", "Lucia", "Pablo", "Sofia", "Diego", "Elena", "Hugo"}
	lastNames  = []string{"Garcia", "Lopez", "Martinez", "Sanchez", "Perez", "Gomez", "Ruiz", "Diaz"}
	cities     = []struct{ city, country string }{
		{"Madrid", "Spain"}, {"Barcelona", "Spain"}, {"Lisbon", "Portugal"},
		{"Mexico City", "Mexico"}, {"Bogota", "Colombia"}, {"Lima", "Peru"},
	}
	ageGroups  = []string{"18-24", "25-34", "35-44", "45-54", "55+"}
	categories = []string{"Laptops", "Smartphones", "Tablets", "Accessories", "Audio", "Monitors"}
	brands     = []string{"Apex", "Nimbus", "Voltra", "Kestrel", "Orbit"}
)

type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (g *Generator) Snapshot(cfg Config) (Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Customers: g.Customers(cfg.Customers),
		Products:  g.Products(cfg.Products),
		Sales:     g.SalesMetrics(cfg.Days),
	}, nil
}

func (g *Generator) Customers(n int) []CustomerRow {
	rows := make([]CustomerRow, 0, n)
	for i := 1; i <= n; i++ {
		first := pickOne(g.rnd, firstNames)
		last := pickOne(g.rnd, lastNames)
		location := cities[g.rnd.Intn(len(cities))]

		recency := int32(g.rnd.Intn(5) + 1)
		frequency := int32(g.rnd.Intn(5) + 1)
		monetary := int32(g.rnd.Intn(5) + 1)

		orders := int64(frequency)*3 + int64(g.rnd.Intn(4))
		aov := round2(40 + float64(monetary)*60 + g.rnd.Float64()*50)
		revenue := round2(aov * float64(orders))
		segment := Segment(recency, frequency, monetary)

		row := CustomerRow{
			CustomerID:            int64(i),
			Name:                  first + " " + last,
			Email:                 fmt.Sprintf("customer%04d@techstore.example", i),
			Country:               ptr(location.country),
			AgeGroup:              ptr(pickOne(g.rnd, ageGroups)),
			CustomerLifetimeStage: ptr(lifetimeStage(orders)),
			TotalOrders:           orders,
			TotalRevenue:          revenue,
			AvgOrderValue:         aov,
			RecencyScore:          recency,
			FrequencyScore:        frequency,
			MonetaryScore:         monetary,
			CustomerSegment:       ptr(segment),
		}
		// Some customers never filled in their city; their lifetime value is
		// not computed until the next pipeline run.
		if g.rnd.Intn(10) > 0 {
			row.City = ptr(location.city)
			row.CustomerLifetimeValue = ptr(round2(revenue - 25))
		}
		rows = append(rows, row)
	}
	return rows
}

// Segment applies the RFM rules in priority order.
func Segment(recency, frequency, monetary int32) string {
	switch {
	case recency >= 4 && frequency >= 4 && monetary >= 4:
		return "VIP"
	case recency >= 3 && frequency >= 3 && monetary >= 3:
		return "Loyal"
	case recency >= 4 && frequency == 1:
		return "New"
	case recency <= 2 && frequency >= 2:
		return "At Risk"
	case recency <= 2 && frequency <= 2:
		return "Lost"
	default:
		return "Regular"
	}
}

func lifetimeStage(orders int64) string {
	switch {
	case orders <= 3:
		return "New"
	case orders <= 9:
		return "Developing"
	default:
		return "Established"
	}
}

func (g *Generator) Products(n int) []ProductRow {
	rows := make([]ProductRow, 0, n)
	for i := 1; i <= n; i++ {
		category := pickOne(g.rnd, categories)
		price := round2(15 + g.rnd.Float64()*1500)
		units := int64(g.rnd.Intn(900))
		revenue := round2(price * float64(units))
		stock := int64(g.rnd.Intn(300))
		if g.rnd.Intn(8) == 0 {
			stock = 0
		}
		rating := round2(2.5 + g.rnd.Float64()*2.5)

		rows = append(rows, ProductRow{
			ProductID:          int64(i),
			ProductName:        fmt.Sprintf("%s %s %d", pickOne(g.rnd, brands), category, 100+i),
			Category:           category,
			Brand:              pickOne(g.rnd, brands),
			CurrentPrice:       price,
			CurrentStock:       stock,
			StockLevel:         StockLevel(stock),
			TotalUnitsSold:     units,
			TotalRevenue:       revenue,
			TotalProfit:        round2(revenue * (0.12 + g.rnd.Float64()*0.2)),
			AvgRating:          rating,
			ProductHealthScore: round2(rating*15 + math.Min(float64(units)/30, 25)),
		})
	}

	// Performance tags rank products by revenue: top 10% Best Seller, next
	// 30% Good, next 40% Average, rest Poor.
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rows[order[a]].TotalRevenue > rows[order[b]].TotalRevenue })
	for rank, idx := range order {
		rows[idx].SalesPerformance = performanceTag(rank, len(rows))
	}
	return rows
}

func StockLevel(stock int64) string {
	switch {
	case stock == 0:
		return "Out of Stock"
	case stock < 10:
		return "Critical"
	case stock <= 50:
		return "Low"
	default:
		return "Normal"
	}
}

func performanceTag(rank, total int) string {
	share := float64(rank) / float64(total)
	switch {
	case share < 0.1:
		return "Best Seller"
	case share < 0.4:
		return "Good"
	case share < 0.8:
		return "Average"
	default:
		return "Poor"
	}
}

// SalesMetrics produces one row per day for the days before today, oldest
// first. Monthly figures aggregate the generated days of each month.
func (g *Generator) SalesMetrics(days int) []SalesMetricRow {
	today := g.now().UTC()
	rows := make([]SalesMetricRow, 0, days)
	for offset := days; offset >= 1; offset-- {
		day := today.AddDate(0, 0, -offset)
		orders := int64(80 + g.rnd.Intn(120))
		aov := round2(90 + g.rnd.Float64()*110)
		monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		rows = append(rows, SalesMetricRow{
			SaleDate:     epochDays(day),
			DailyRevenue: round2(aov * float64(orders)),
			DailyOrders:  orders,
			DailyAOV:     aov,
			MonthStart:   epochDays(monthStart),
		})
	}

	type monthTotals struct {
		revenue float64
		orders  int64
	}
	months := map[int32]*monthTotals{}
	keys := make([]int32, 0)
	for _, row := range rows {
		totals, ok := months[row.MonthStart]
		if !ok {
			totals = &monthTotals{}
			months[row.MonthStart] = totals
			keys = append(keys, row.MonthStart)
		}
		totals.revenue += row.DailyRevenue
		totals.orders += row.DailyOrders
	}

	growth := map[int32]*float64{}
	for i, key := range keys {
		if i == 0 {
			continue
		}
		prev := months[keys[i-1]].revenue
		if prev > 0 {
			growth[key] = ptr(round2((months[key].revenue - prev) / prev * 100))
		}
	}

	for i := range rows {
		totals := months[rows[i].MonthStart]
		rows[i].MonthlyRevenue = round2(totals.revenue)
		rows[i].MonthlyOrders = totals.orders
		rows[i].MomRevenueGrowthPercent = growth[rows[i].MonthStart]
	}
	return rows
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}

func ptr[T any](value T) *T {
	return &value
}
