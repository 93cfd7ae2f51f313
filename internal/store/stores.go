package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-analytics/internal/models"
)

// CreateStore inserts a connected store
func (s *Store) CreateStore(ctx context.Context, st *models.Store) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO stores (id, shop_domain, shop_name, access_token, is_connected, connected_at)
		VALUES (:id, :shop_domain, :shop_name, :access_token, :is_connected, :connected_at)`, st)
	if err != nil {
		return fmt.Errorf("failed to insert store: %w", err)
	}
	return nil
}

// GetStore retrieves a store by ID
func (s *Store) GetStore(ctx context.Context, id string) (*models.Store, error) {
	var st models.Store
	err := s.db.GetContext(ctx, &st, "SELECT * FROM stores WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStores retrieves all connected stores, newest first
func (s *Store) ListStores(ctx context.Context, limit int) ([]models.Store, error) {
	stores := []models.Store{}
	err := s.db.SelectContext(ctx, &stores,
		"SELECT * FROM stores ORDER BY connected_at DESC LIMIT $1", limit)
	return stores, err
}

// DeleteStore removes a store; products, orders, customers and questions
// cascade with it.
func (s *Store) DeleteStore(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM stores WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("store %s: %w", id, ErrNotFound)
	}
	return nil
}
