package mockdata

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"shop-analytics/internal/models"

	"github.com/google/uuid"
)

const defaultProductCount = 20

// Generator produces mock products, orders and customers for a store
type Generator struct {
	seed         *Seed
	orderCount   int
	productCount int
	now          func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. src controls reproducibility; pass nil
// for a time-seeded source.
func NewGenerator(seed *Seed, orderCount int, src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	if orderCount <= 0 {
		orderCount = 100
	}
	return &Generator{
		seed:         seed,
		orderCount:   orderCount,
		productCount: defaultProductCount,
		now:          func() time.Time { return time.Now().UTC() },
		rng:          rand.New(src),
	}
}

// WithClock overrides the generator clock
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a fresh catalog for storeID
func (g *Generator) Generate(storeID string) *models.Catalog {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	products := g.products(storeID, now)
	customerIDs := make(map[string]string, len(g.seed.Customers))
	for _, name := range g.seed.Customers {
		customerIDs[name] = uuid.NewString()
	}

	orders := g.orders(storeID, products, customerIDs, now)
	customers := deriveCustomers(storeID, orders)

	return &models.Catalog{
		Products:  products,
		Orders:    orders,
		Customers: customers,
	}
}

func (g *Generator) products(storeID string, now time.Time) []models.Product {
	products := make([]models.Product, 0, g.productCount)
	for i := 0; i < g.productCount; i++ {
		title := g.seed.Products[i%len(g.seed.Products)]
		threshold := g.seed.ReorderThreshold.Min
		if spread := g.seed.ReorderThreshold.Max - g.seed.ReorderThreshold.Min; spread > 0 {
			threshold += g.rng.Intn(spread + 1)
		}
		products = append(products, models.Product{
			ID:                uuid.NewString(),
			StoreID:           storeID,
			Title:             title,
			SKU:               fmt.Sprintf("SKU-%d", 1000+g.rng.Intn(9000)),
			Vendor:            g.seed.Vendors[g.rng.Intn(len(g.seed.Vendors))],
			Price:             roundCents(g.seed.Price.Min + g.rng.Float64()*(g.seed.Price.Max-g.seed.Price.Min)),
			InventoryQuantity: g.rng.Intn(g.seed.Inventory.Max + 1),
			ReorderThreshold:  threshold,
			CreatedAt:         now.AddDate(0, 0, -(30 + g.rng.Intn(336))),
		})
	}
	return products
}

func (g *Generator) orders(storeID string, products []models.Product, customerIDs map[string]string, now time.Time) []models.Order {
	statuses := g.seed.statusTable()
	history := time.Duration(g.seed.HistoryDays) * 24 * time.Hour

	orders := make([]models.Order, 0, g.orderCount)
	for i := 0; i < g.orderCount; i++ {
		// The first order pins the start of the history so the generated data
		// always spans the full history window.
		createdAt := now.Add(-history)
		if i > 0 {
			createdAt = now.Add(-time.Duration(g.rng.Int63n(int64(history))))
		}

		orderID := uuid.NewString()
		numItems := 1 + g.rng.Intn(g.seed.MaxLineItems)
		if numItems > len(products) {
			numItems = len(products)
		}

		items := make([]models.LineItem, 0, numItems)
		var total float64
		for _, idx := range g.rng.Perm(len(products))[:numItems] {
			p := products[idx]
			qty := 1 + g.rng.Intn(g.seed.MaxQuantity)
			items = append(items, models.LineItem{
				OrderID:   orderID,
				StoreID:   storeID,
				ProductID: p.ID,
				Title:     p.Title,
				Quantity:  qty,
				Price:     p.Price,
			})
			total += p.Price * float64(qty)
		}

		customer := g.seed.Customers[g.rng.Intn(len(g.seed.Customers))]
		orders = append(orders, models.Order{
			ID:           orderID,
			StoreID:      storeID,
			CustomerID:   customerIDs[customer],
			CustomerName: customer,
			TotalPrice:   roundCents(total),
			Status:       statuses[g.rng.Intn(len(statuses))],
			CreatedAt:    createdAt,
			LineItems:    items,
		})
	}

	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	for i := range orders {
		orders[i].OrderNumber = 1000 + i
	}
	// most recent first
	for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
		orders[i], orders[j] = orders[j], orders[i]
	}
	return orders
}

func deriveCustomers(storeID string, orders []models.Order) []models.Customer {
	byID := make(map[string]*models.Customer)
	var order []string

	for _, o := range orders {
		c, ok := byID[o.CustomerID]
		if !ok {
			c = &models.Customer{
				ID:           o.CustomerID,
				StoreID:      storeID,
				Name:         o.CustomerName,
				Email:        emailFor(o.CustomerName),
				FirstOrderAt: o.CreatedAt,
				LastOrderAt:  o.CreatedAt,
			}
			byID[o.CustomerID] = c
			order = append(order, o.CustomerID)
		}
		c.OrderCount++
		c.TotalSpent = roundCents(c.TotalSpent + o.TotalPrice)
		if o.CreatedAt.Before(c.FirstOrderAt) {
			c.FirstOrderAt = o.CreatedAt
		}
		if o.CreatedAt.After(c.LastOrderAt) {
			c.LastOrderAt = o.CreatedAt
		}
	}

	customers := make([]models.Customer, 0, len(order))
	for _, id := range order {
		customers = append(customers, *byID[id])
	}
	return customers
}

func emailFor(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
