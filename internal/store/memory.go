package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shop-analytics/internal/models"
)

type memQuestion struct {
	seq int64
	q   models.Question
}

type memTenant struct {
	store     models.Store
	products  []models.Product
	orders    []models.Order
	customers []models.Customer
	questions []memQuestion
}

// MemoryStore keeps everything in process memory. It backs the demo mode
// (STORE_BACKEND=memory) and tests; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	tenants map[string]*memTenant
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]*memTenant)}
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }
func (m *MemoryStore) Ping(context.Context) error    { return nil }
func (m *MemoryStore) Close() error                  { return nil }

func (m *MemoryStore) CreateStore(_ context.Context, st *models.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[st.ID]; ok {
		return fmt.Errorf("store %s already exists", st.ID)
	}
	m.tenants[st.ID] = &memTenant{store: *st}
	return nil
}

func (m *MemoryStore) GetStore(_ context.Context, id string) (*models.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, fmt.Errorf("store %s: %w", id, ErrNotFound)
	}
	st := t.store
	return &st, nil
}

func (m *MemoryStore) ListStores(_ context.Context, limit int) ([]models.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stores := make([]models.Store, 0, len(m.tenants))
	for _, t := range m.tenants {
		stores = append(stores, t.store)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ConnectedAt.After(stores[j].ConnectedAt) })
	if limit > 0 && len(stores) > limit {
		stores = stores[:limit]
	}
	return stores, nil
}

func (m *MemoryStore) DeleteStore(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[id]; !ok {
		return fmt.Errorf("store %s: %w", id, ErrNotFound)
	}
	delete(m.tenants, id)
	return nil
}

func (m *MemoryStore) ReplaceCatalog(_ context.Context, storeID string, catalog *models.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[storeID]
	if !ok {
		return fmt.Errorf("store %s: %w", storeID, ErrNotFound)
	}
	t.products = append([]models.Product(nil), catalog.Products...)
	t.customers = append([]models.Customer(nil), catalog.Customers...)
	t.orders = copyOrders(catalog.Orders)
	return nil
}

func (m *MemoryStore) ListProducts(_ context.Context, storeID string, limit int) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := []models.Product{}
	if t, ok := m.tenants[storeID]; ok {
		products = append(products, t.products...)
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Title < products[j].Title })
	return truncate(products, limit), nil
}

func (m *MemoryStore) ListCustomers(_ context.Context, storeID string, limit int) ([]models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customers := []models.Customer{}
	if t, ok := m.tenants[storeID]; ok {
		customers = append(customers, t.customers...)
	}
	sort.SliceStable(customers, func(i, j int) bool { return customers[i].TotalSpent > customers[j].TotalSpent })
	return truncate(customers, limit), nil
}

func (m *MemoryStore) ListOrders(_ context.Context, storeID string, since time.Time, limit int) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := []models.Order{}
	if t, ok := m.tenants[storeID]; ok {
		for _, o := range t.orders {
			if !o.CreatedAt.Before(since) {
				orders = append(orders, o)
			}
		}
	}
	orders = copyOrders(orders)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return truncate(orders, limit), nil
}

func (m *MemoryStore) AppendQuestion(_ context.Context, q *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[q.StoreID]
	if !ok {
		return fmt.Errorf("store %s: %w", q.StoreID, ErrNotFound)
	}
	m.seq++
	t.questions = append(t.questions, memQuestion{seq: m.seq, q: *q})
	return nil
}

func (m *MemoryStore) ListQuestions(_ context.Context, storeID string, limit int) ([]models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[storeID]
	if !ok {
		return []models.Question{}, nil
	}
	entries := append([]memQuestion(nil), t.questions...)
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.q.CreatedAt.Equal(b.q.CreatedAt) {
			return a.q.CreatedAt.After(b.q.CreatedAt)
		}
		return a.seq > b.seq
	})

	questions := make([]models.Question, 0, len(entries))
	for _, e := range entries {
		questions = append(questions, e.q)
	}
	return truncate(questions, limit), nil
}

func (m *MemoryStore) GetQuestion(_ context.Context, storeID, id string) (*models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.tenants[storeID]; ok {
		for _, e := range t.questions {
			if e.q.ID == id {
				q := e.q
				return &q, nil
			}
		}
	}
	return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
}

func copyOrders(orders []models.Order) []models.Order {
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		o.LineItems = append([]models.LineItem(nil), o.LineItems...)
		out[i] = o
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
