package service

import (
	"context"
	"fmt"
	"time"

	"shop-analytics/internal/analytics"
	"shop-analytics/internal/models"
	"shop-analytics/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StoreView is a per-request data handle bound to a single store. Every read
// goes through it, and rows carrying another store's id are dropped.
type StoreView struct {
	store  *models.Store
	reader DataReader
	logger *zap.Logger
}

// OpenStoreView resolves storeID and binds a view to it. An unknown store
// yields an error wrapping store.ErrNotFound.
func OpenStoreView(ctx context.Context, reader DataReader, storeID string) (*StoreView, error) {
	st, err := reader.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return &StoreView{store: st, reader: reader, logger: util.GetLogger()}, nil
}

// Store returns the store the view is bound to
func (v *StoreView) Store() *models.Store {
	return v.store
}

// StoreID returns the id the view is bound to
func (v *StoreView) StoreID() string {
	return v.store.ID
}

// Products lists the store's products
func (v *StoreView) Products(ctx context.Context, limit int) ([]models.Product, error) {
	products, err := v.reader.ListProducts(ctx, v.store.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return scoped(v, products, func(p models.Product) string { return p.StoreID }), nil
}

// Orders lists the store's orders created at or after since
func (v *StoreView) Orders(ctx context.Context, since time.Time, limit int) ([]models.Order, error) {
	orders, err := v.reader.ListOrders(ctx, v.store.ID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return scoped(v, orders, func(o models.Order) string { return o.StoreID }), nil
}

// Customers lists the store's customers
func (v *StoreView) Customers(ctx context.Context, limit int) ([]models.Customer, error) {
	customers, err := v.reader.ListCustomers(ctx, v.store.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return scoped(v, customers, func(c models.Customer) string { return c.StoreID }), nil
}

// Snapshot loads products, orders and customers concurrently
func (v *StoreView) Snapshot(ctx context.Context) (*analytics.Dataset, error) {
	ds := &analytics.Dataset{StoreID: v.store.ID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds.Products, err = v.Products(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		ds.Orders, err = v.Orders(gctx, time.Time{}, 0)
		return err
	})
	g.Go(func() error {
		var err error
		ds.Customers, err = v.Customers(gctx, 0)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}

func scoped[T any](v *StoreView, rows []T, storeOf func(T) string) []T {
	out := rows[:0:0]
	for _, r := range rows {
		if id := storeOf(r); id != v.store.ID {
			v.logger.Error("Dropping row from foreign store",
				zap.String("store_id", v.store.ID),
				zap.String("row_store_id", id))
			continue
		}
		out = append(out, r)
	}
	return out
}
