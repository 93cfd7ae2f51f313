package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shop-analytics/internal/models"

	"github.com/jmoiron/sqlx"
)

// ReplaceCatalog swaps a store's products, orders and customers in one
// transaction. Question history is left untouched.
func (s *Store) ReplaceCatalog(ctx context.Context, storeID string, catalog *models.Catalog) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked string
	err = tx.GetContext(ctx, &locked, "SELECT id FROM stores WHERE id = $1 FOR UPDATE", storeID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store %s: %w", storeID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}

	for _, table := range []string{"orders", "products", "customers"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE store_id = $1", storeID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if len(catalog.Products) > 0 {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO products (id, store_id, title, sku, vendor, price, inventory_quantity, reorder_threshold, created_at)
			VALUES (:id, :store_id, :title, :sku, :vendor, :price, :inventory_quantity, :reorder_threshold, :created_at)`,
			catalog.Products); err != nil {
			return fmt.Errorf("failed to insert products: %w", err)
		}
	}

	if len(catalog.Customers) > 0 {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO customers (id, store_id, name, email, order_count, total_spent, first_order_at, last_order_at)
			VALUES (:id, :store_id, :name, :email, :order_count, :total_spent, :first_order_at, :last_order_at)`,
			catalog.Customers); err != nil {
			return fmt.Errorf("failed to insert customers: %w", err)
		}
	}

	var items []models.LineItem
	if len(catalog.Orders) > 0 {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO orders (id, store_id, order_number, customer_id, customer_name, total_price, status, created_at)
			VALUES (:id, :store_id, :order_number, :customer_id, :customer_name, :total_price, :status, :created_at)`,
			catalog.Orders); err != nil {
			return fmt.Errorf("failed to insert orders: %w", err)
		}
		for _, o := range catalog.Orders {
			items = append(items, o.LineItems...)
		}
	}

	if len(items) > 0 {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO order_line_items (order_id, store_id, product_id, title, quantity, price)
			VALUES (:order_id, :store_id, :product_id, :title, :quantity, :price)`,
			items); err != nil {
			return fmt.Errorf("failed to insert line items: %w", err)
		}
	}

	return tx.Commit()
}

// ListProducts retrieves a store's products. limit <= 0 means no limit.
func (s *Store) ListProducts(ctx context.Context, storeID string, limit int) ([]models.Product, error) {
	products := []models.Product{}
	query := "SELECT * FROM products WHERE store_id = $1 ORDER BY title, id"
	args := []interface{}{storeID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// ListCustomers retrieves a store's customers. limit <= 0 means no limit.
func (s *Store) ListCustomers(ctx context.Context, storeID string, limit int) ([]models.Customer, error) {
	customers := []models.Customer{}
	query := "SELECT * FROM customers WHERE store_id = $1 ORDER BY total_spent DESC, id"
	args := []interface{}{storeID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	err := s.db.SelectContext(ctx, &customers, query, args...)
	return customers, err
}

// ListOrders retrieves a store's orders created at or after since (zero
// means all), most recent first, with their line items.
func (s *Store) ListOrders(ctx context.Context, storeID string, since time.Time, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	query := "SELECT * FROM orders WHERE store_id = $1 AND created_at >= $2 ORDER BY created_at DESC, order_number DESC"
	args := []interface{}{storeID, since}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	q, qargs, err := sqlx.In("SELECT * FROM order_line_items WHERE store_id = ? AND order_id IN (?)", storeID, ids)
	if err != nil {
		return nil, err
	}
	q = s.db.Rebind(q)

	var items []models.LineItem
	if err := s.db.SelectContext(ctx, &items, q, qargs...); err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}

	byOrder := make(map[string][]models.LineItem, len(orders))
	for _, li := range items {
		byOrder[li.OrderID] = append(byOrder[li.OrderID], li)
	}
	for i := range orders {
		orders[i].LineItems = byOrder[orders[i].ID]
	}
	return orders, nil
}
