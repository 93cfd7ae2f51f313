package models

import "time"

// Store represents a connected (mocked) shop
type Store struct {
	ID          string    `db:"id" json:"id"`
	ShopDomain  string    `db:"shop_domain" json:"shop_domain"`
	ShopName    string    `db:"shop_name" json:"shop_name"`
	AccessToken string    `db:"access_token" json:"access_token"`
	IsConnected bool      `db:"is_connected" json:"is_connected"`
	ConnectedAt time.Time `db:"connected_at" json:"connected_at"`
}

// Product represents a generated catalog product
type Product struct {
	ID                string    `db:"id" json:"id"`
	StoreID           string    `db:"store_id" json:"store_id"`
	Title             string    `db:"title" json:"title"`
	SKU               string    `db:"sku" json:"sku"`
	Vendor            string    `db:"vendor" json:"vendor"`
	Price             float64   `db:"price" json:"price"`
	InventoryQuantity int       `db:"inventory_quantity" json:"inventory_quantity"`
	ReorderThreshold  int       `db:"reorder_threshold" json:"reorder_threshold"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Order represents a generated customer order
type Order struct {
	ID           string     `db:"id" json:"id"`
	StoreID      string     `db:"store_id" json:"store_id"`
	OrderNumber  int        `db:"order_number" json:"order_number"`
	CustomerID   string     `db:"customer_id" json:"customer_id"`
	CustomerName string     `db:"customer_name" json:"customer_name"`
	TotalPrice   float64    `db:"total_price" json:"total_price"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LineItems    []LineItem `db:"-" json:"line_items"`
}

// LineItem represents a product line inside an order
type LineItem struct {
	OrderID   string  `db:"order_id" json:"-"`
	StoreID   string  `db:"store_id" json:"-"`
	ProductID string  `db:"product_id" json:"product_id"`
	Title     string  `db:"title" json:"title"`
	Quantity  int     `db:"quantity" json:"quantity"`
	Price     float64 `db:"price" json:"price"`
}

// Customer represents a customer derived from generated orders
type Customer struct {
	ID           string    `db:"id" json:"id"`
	StoreID      string    `db:"store_id" json:"store_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	OrderCount   int       `db:"order_count" json:"total_orders"`
	TotalSpent   float64   `db:"total_spent" json:"total_spent"`
	FirstOrderAt time.Time `db:"first_order_at" json:"first_order_date"`
	LastOrderAt  time.Time `db:"last_order_at" json:"last_order_date"`
}

// Catalog is the full set of mock data generated for one store
type Catalog struct {
	Products  []Product
	Orders    []Order
	Customers []Customer
}

// Question is one answered question in a store's history
type Question struct {
	ID         string     `db:"id" json:"id"`
	StoreID    string     `db:"store_id" json:"store_id"`
	Question   string     `db:"question" json:"question"`
	Intent     Intent     `db:"intent" json:"intent"`
	ShopifyQL  string     `db:"shopify_ql" json:"shopify_ql"`
	Answer     string     `db:"answer" json:"answer"`
	Confidence Confidence `db:"confidence" json:"confidence"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusFulfilled = "fulfilled"
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
)
