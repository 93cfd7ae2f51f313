package analytics

import (
	"testing"
	"time"

	"shop-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

func order(id string, at time.Time, items ...models.LineItem) models.Order {
	var total float64
	for _, li := range items {
		total += li.Price * float64(li.Quantity)
	}
	return models.Order{ID: id, StoreID: "s", CreatedAt: at, TotalPrice: total, LineItems: items, Status: models.OrderStatusFulfilled}
}

func item(productID string, qty int, price float64) models.LineItem {
	return models.LineItem{ProductID: productID, Quantity: qty, Price: price}
}

func testDataset() *Dataset {
	return &Dataset{
		StoreID: "s",
		Products: []models.Product{
			{ID: "p1", StoreID: "s", Title: "Mug", Price: 10, InventoryQuantity: 30, ReorderThreshold: 5},
			{ID: "p2", StoreID: "s", Title: "Lamp", Price: 50, InventoryQuantity: 300, ReorderThreshold: 5},
			{ID: "p3", StoreID: "s", Title: "Flask", Price: 20, InventoryQuantity: 3, ReorderThreshold: 10},
		},
		Orders: []models.Order{
			order("o1", daysAgo(1), item("p1", 30, 10)),
			order("o2", daysAgo(10), item("p1", 30, 10), item("p2", 3, 50)),
			order("o3", daysAgo(60), item("p2", 10, 50)),
		},
		Customers: []models.Customer{
			{ID: "c1", Name: "Ann", OrderCount: 2, LastOrderAt: daysAgo(1)},
			{ID: "c2", Name: "Bob", OrderCount: 1, LastOrderAt: daysAgo(60)},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(testDataset(), now, 30, 14)

	assert.Equal(t, 3, s.TotalOrders)
	assert.Equal(t, 1250.0, s.TotalRevenue)
	assert.Equal(t, 416.67, s.AvgOrderValue)
	assert.Equal(t, 3, s.TotalProducts)
	assert.Equal(t, 2, s.TotalCustomers)

	require.Len(t, s.TopProducts, 2)
	assert.Equal(t, "p2", s.TopProducts[0].ID)
	assert.Equal(t, 650.0, s.TopProducts[0].Revenue)
	assert.Equal(t, 60, s.TopProducts[1].QuantitySold)

	require.Len(t, s.RecentOrders, 3)
	assert.Equal(t, "o1", s.RecentOrders[0].ID)

	// p1: 60 units / 30 days = 2/day -> 15 days, not low. p3: no sales but under threshold.
	require.Len(t, s.LowStockProducts, 1)
	assert.Equal(t, "p3", s.LowStockProducts[0].ID)
	assert.Nil(t, s.LowStockProducts[0].DaysOfStock)

	require.Len(t, s.SalesByDay, 3)
	assert.Equal(t, daysAgo(60).Format("2006-01-02"), s.SalesByDay[0].Date)
}

func TestSummarizeEmptyStore(t *testing.T) {
	s := Summarize(&Dataset{StoreID: "s"}, now, 30, 14)

	assert.Zero(t, s.TotalOrders)
	assert.Zero(t, s.AvgOrderValue)
	assert.Empty(t, s.TopProducts)
	assert.Empty(t, s.SalesByDay)
}

func TestProjectZeroVelocity(t *testing.T) {
	level := Project(models.Product{ID: "p", InventoryQuantity: 40}, 0, 30)

	assert.Nil(t, level.DaysOfStock)
	assert.Zero(t, level.DailyVelocity)
}

func TestProject(t *testing.T) {
	level := Project(models.Product{ID: "p", InventoryQuantity: 40}, 12, 30)

	require.NotNil(t, level.DaysOfStock)
	assert.Equal(t, 100.0, *level.DaysOfStock)
	assert.Equal(t, 0.4, level.DailyVelocity)
	assert.Equal(t, 12, level.UnitsSold)
	assert.Equal(t, 30, level.SalesDays)
}

func TestProjectSlowSellerKeepsVelocityPrecision(t *testing.T) {
	level := Project(models.Product{ID: "p", InventoryQuantity: 25}, 1, 30)

	require.NotNil(t, level.DaysOfStock)
	assert.Equal(t, 750.0, *level.DaysOfStock)
	assert.Equal(t, 0.03, level.DailyVelocity)
}

func TestHistoryCoverage(t *testing.T) {
	ds := testDataset()

	tests := []struct {
		name     string
		days     int
		coverage Coverage
		covered  int
	}{
		{"window inside history", 30, CoverageFull, 30},
		{"window longer than history", 90, CoveragePartial, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coverage, covered := HistoryCoverage(ds.Orders, TrailingWindow(now, tt.days))
			assert.Equal(t, tt.coverage, coverage)
			assert.Equal(t, tt.covered, covered)
		})
	}

	coverage, _ := HistoryCoverage(nil, TrailingWindow(now, 30))
	assert.Equal(t, CoverageNone, coverage)
}

func TestStockLevelsUsesCoveredDays(t *testing.T) {
	ds := testDataset()

	levels, coverage := StockLevels(ds, TrailingWindow(now, 90))

	assert.Equal(t, CoveragePartial, coverage)
	// p2 sold 13 units over the 60 covered days
	require.NotNil(t, levels[1].DaysOfStock)
	assert.Equal(t, 1384.6, *levels[1].DaysOfStock)
}

func TestSalesByDayKeepsMostRecentDaysAscending(t *testing.T) {
	var orders []models.Order
	for d := 0; d < 20; d++ {
		orders = append(orders, order("o", daysAgo(d), item("p", 1, 5)))
	}

	days := SalesByDay(orders, 14)

	require.Len(t, days, 14)
	assert.Equal(t, daysAgo(13).Format("2006-01-02"), days[0].Date)
	assert.Equal(t, now.Format("2006-01-02"), days[13].Date)
}

func TestCustomers(t *testing.T) {
	stats := Customers(testDataset().Customers, TrailingWindow(now, 30))

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Repeat)
	assert.Equal(t, 50.0, stats.RetentionRate)
	assert.Equal(t, "Ann", stats.TopCustomer)
	assert.Equal(t, 1, stats.ActiveInWindow)
}
