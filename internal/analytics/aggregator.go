// Package analytics computes store metrics from a snapshot of mock data.
// Everything here is pure: the same dataset and clock give the same result.
package analytics

import (
	"math"
	"sort"
	"time"

	"shop-analytics/internal/models"
)

const (
	topProductsLimit  = 5
	recentOrdersLimit = 5
	lowStockLimit     = 5
	salesByDayLimit   = 14
)

// Dataset is a snapshot of one store's data
type Dataset struct {
	StoreID   string
	Products  []models.Product
	Orders    []models.Order
	Customers []models.Customer
}

// Summary is the dashboard view of a store
type Summary struct {
	TotalOrders      int            `json:"total_orders"`
	TotalRevenue     float64        `json:"total_revenue"`
	TotalCustomers   int            `json:"total_customers"`
	TotalProducts    int            `json:"total_products"`
	AvgOrderValue    float64        `json:"avg_order_value"`
	TopProducts      []ProductSales `json:"top_products"`
	RecentOrders     []RecentOrder  `json:"recent_orders"`
	LowStockProducts []StockLevel   `json:"low_stock_products"`
	SalesByDay       []DailySales   `json:"sales_by_day"`
}

// ProductSales is units and revenue sold for one product
type ProductSales struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

// RecentOrder is the compact order shape shown on the dashboard
type RecentOrder struct {
	ID          string    `json:"id"`
	OrderNumber int       `json:"order_number"`
	Customer    string    `json:"customer"`
	Total       float64   `json:"total"`
	Status      string    `json:"status"`
	Date        time.Time `json:"date"`
}

// StockLevel is a stock projection for one product. DaysOfStock is nil when
// the product has no sales in the window and no projection can be made.
type StockLevel struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Inventory        int      `json:"inventory"`
	ReorderThreshold int      `json:"reorder_threshold"`
	UnitsSold        int      `json:"units_sold"`
	SalesDays        int      `json:"sales_days"`
	DailyVelocity    float64  `json:"daily_velocity"`
	DaysOfStock      *float64 `json:"days_of_stock"`
}

// DailySales is revenue and order count for one calendar day (UTC)
type DailySales struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// Window is a trailing time window ending at End
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// TrailingWindow returns the window of the last days days ending at now
func TrailingWindow(now time.Time, days int) Window {
	if days <= 0 {
		days = 1
	}
	return Window{Start: now.Add(-time.Duration(days) * 24 * time.Hour), End: now, Days: days}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Coverage describes how much of a window the order history spans
type Coverage string

const (
	CoverageFull    Coverage = "full"
	CoveragePartial Coverage = "partial"
	CoverageNone    Coverage = "none"
)

// Summarize builds the dashboard summary. Low stock means fewer than
// lowStockDays days of projected stock or inventory at or below the reorder
// threshold; velocity is measured over the trailing velocityDays.
func Summarize(ds *Dataset, now time.Time, velocityDays int, lowStockDays float64) *Summary {
	revenue := TotalRevenue(ds.Orders)

	s := &Summary{
		TotalOrders:    len(ds.Orders),
		TotalRevenue:   roundCents(revenue),
		TotalCustomers: len(ds.Customers),
		TotalProducts:  len(ds.Products),
		TopProducts:    TopProducts(ds.Products, ds.Orders, topProductsLimit),
		RecentOrders:   recentOrders(ds.Orders, recentOrdersLimit),
		SalesByDay:     SalesByDay(ds.Orders, salesByDayLimit),
	}
	if len(ds.Orders) > 0 {
		s.AvgOrderValue = roundCents(revenue / float64(len(ds.Orders)))
	}

	levels, _ := StockLevels(ds, TrailingWindow(now, velocityDays))
	s.LowStockProducts = LowStock(levels, lowStockDays, lowStockLimit)
	return s
}

// TotalRevenue sums order totals
func TotalRevenue(orders []models.Order) float64 {
	var total float64
	for _, o := range orders {
		total += o.TotalPrice
	}
	return total
}

// OrdersIn returns the orders created inside the window
func OrdersIn(orders []models.Order, w Window) []models.Order {
	var out []models.Order
	for _, o := range orders {
		if w.Contains(o.CreatedAt) {
			out = append(out, o)
		}
	}
	return out
}

// HistoryCoverage reports whether the order history reaches back to the start
// of the window, and how many days of the window it covers.
func HistoryCoverage(orders []models.Order, w Window) (Coverage, int) {
	if len(orders) == 0 {
		return CoverageNone, 0
	}
	earliest := orders[0].CreatedAt
	for _, o := range orders[1:] {
		if o.CreatedAt.Before(earliest) {
			earliest = o.CreatedAt
		}
	}
	if !earliest.After(w.Start) {
		return CoverageFull, w.Days
	}
	if earliest.After(w.End) {
		return CoverageNone, 0
	}
	days := int(math.Ceil(w.End.Sub(earliest).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return CoveragePartial, days
}

// UnitsSold counts units per product id over the given orders
func UnitsSold(orders []models.Order) map[string]int {
	units := make(map[string]int)
	for _, o := range orders {
		for _, li := range o.LineItems {
			units[li.ProductID] += li.Quantity
		}
	}
	return units
}

// TopProducts ranks products by revenue across orders
func TopProducts(products []models.Product, orders []models.Order, limit int) []ProductSales {
	type agg struct {
		qty     int
		revenue float64
	}
	sales := make(map[string]*agg)
	for _, o := range orders {
		for _, li := range o.LineItems {
			a, ok := sales[li.ProductID]
			if !ok {
				a = &agg{}
				sales[li.ProductID] = a
			}
			a.qty += li.Quantity
			a.revenue += li.Price * float64(li.Quantity)
		}
	}

	out := make([]ProductSales, 0, len(sales))
	for _, p := range products {
		a, ok := sales[p.ID]
		if !ok {
			continue
		}
		out = append(out, ProductSales{
			ID:           p.ID,
			Title:        p.Title,
			QuantitySold: a.qty,
			Revenue:      roundCents(a.revenue),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopProductsByUnits ranks products by units sold across orders
func TopProductsByUnits(products []models.Product, orders []models.Order, limit int) []ProductSales {
	out := TopProducts(products, orders, 0)
	sort.SliceStable(out, func(i, j int) bool { return out[i].QuantitySold > out[j].QuantitySold })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StockLevels projects days of stock for every product using the sales
// velocity inside w. The returned coverage is the order-history coverage of w.
func StockLevels(ds *Dataset, w Window) ([]StockLevel, Coverage) {
	coverage, coveredDays := HistoryCoverage(ds.Orders, w)
	units := UnitsSold(OrdersIn(ds.Orders, w))

	levels := make([]StockLevel, 0, len(ds.Products))
	for _, p := range ds.Products {
		levels = append(levels, Project(p, units[p.ID], coveredDays))
	}
	return levels, coverage
}

// Project computes the stock projection for a product that sold unitsSold
// units over days days. Zero velocity yields no projection.
func Project(p models.Product, unitsSold, days int) StockLevel {
	level := StockLevel{
		ID:               p.ID,
		Title:            p.Title,
		Inventory:        p.InventoryQuantity,
		ReorderThreshold: p.ReorderThreshold,
		UnitsSold:        unitsSold,
		SalesDays:        days,
	}
	if days <= 0 || unitsSold <= 0 {
		return level
	}
	velocity := float64(unitsSold) / float64(days)
	level.DailyVelocity = roundCents(velocity)
	dos := round1(float64(p.InventoryQuantity) / velocity)
	level.DaysOfStock = &dos
	return level
}

// LowStock filters projections that need attention, lowest days first.
// Products with no projection are only included when at or below their
// reorder threshold, and sort after projected ones.
func LowStock(levels []StockLevel, lowStockDays float64, limit int) []StockLevel {
	var out []StockLevel
	for _, l := range levels {
		below := l.DaysOfStock != nil && *l.DaysOfStock < lowStockDays
		if below || l.Inventory <= l.ReorderThreshold {
			out = append(out, l)
		}
	}
	SortByDaysOfStock(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortByDaysOfStock orders projections ascending; unprojected entries last
func SortByDaysOfStock(levels []StockLevel) {
	sort.SliceStable(levels, func(i, j int) bool {
		a, b := levels[i].DaysOfStock, levels[j].DaysOfStock
		switch {
		case a == nil && b == nil:
			return levels[i].Inventory < levels[j].Inventory
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
}

// SalesByDay groups orders by UTC day and keeps the limit most recent days,
// returned in ascending date order.
func SalesByDay(orders []models.Order, limit int) []DailySales {
	byDay := make(map[string]*DailySales)
	for _, o := range orders {
		day := o.CreatedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &DailySales{Date: day}
			byDay[day] = d
		}
		d.Orders++
		d.Revenue += o.TotalPrice
	}

	out := make([]DailySales, 0, len(byDay))
	for _, d := range byDay {
		d.Revenue = roundCents(d.Revenue)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func recentOrders(orders []models.Order, limit int) []RecentOrder {
	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]RecentOrder, 0, len(sorted))
	for _, o := range sorted {
		out = append(out, RecentOrder{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			Customer:    o.CustomerName,
			Total:       o.TotalPrice,
			Status:      o.Status,
			Date:        o.CreatedAt,
		})
	}
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
