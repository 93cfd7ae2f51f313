package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-analytics/internal/mockdata"
	"shop-analytics/internal/models"
	"shop-analytics/internal/store"
	"shop-analytics/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	regenerateLockTTL = 30 * time.Second

	listDefaultLimit = 50
	listMaxLimit     = 200
)

// ErrRegenerationInProgress is returned when another regeneration holds the
// store's lock
var ErrRegenerationInProgress = errors.New("regeneration already in progress")

// Regeneration triggers, used as metric labels
const (
	TriggerConnect = "connect"
	TriggerManual  = "manual"
	TriggerRefresh = "refresh"
)

// StoreService handles store lifecycle and mock data
type StoreService struct {
	repo      Repository
	cache     Cache
	publisher EventPublisher
	generator *mockdata.Generator
	logger    *zap.Logger
}

// NewStoreService creates a new store service
func NewStoreService(
	repo Repository,
	cache Cache,
	publisher EventPublisher,
	generator *mockdata.Generator,
) *StoreService {
	return &StoreService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		generator: generator,
		logger:    util.GetLogger(),
	}
}

// ConnectStoreRequest represents a request to connect a (mock) store
type ConnectStoreRequest struct {
	ShopDomain string `json:"shop_domain" binding:"required"`
	ShopName   string `json:"shop_name"`
}

// Connect creates the store and seeds it with generated data. If seeding
// fails the store is removed again.
func (s *StoreService) Connect(ctx context.Context, req *ConnectStoreRequest) (*models.Store, error) {
	ctx, span := util.StartSpan(ctx, "StoreService.Connect", "")
	defer span.End()

	domain := strings.ToLower(strings.TrimSpace(req.ShopDomain))
	name := strings.TrimSpace(req.ShopName)
	if name == "" {
		name = strings.TrimSuffix(domain, ".myshopify.com")
	}

	st := &models.Store{
		ID:          uuid.New().String(),
		ShopDomain:  domain,
		ShopName:    name,
		AccessToken: mockAccessToken(),
		IsConnected: true,
		ConnectedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateStore(ctx, st); err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	catalog := s.generator.Generate(st.ID)
	if err := s.repo.ReplaceCatalog(ctx, st.ID, catalog); err != nil {
		util.RecordError(span, err)
		if delErr := s.repo.DeleteStore(ctx, st.ID); delErr != nil {
			s.logger.Error("Failed to remove partially connected store",
				zap.String("store_id", st.ID),
				zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to seed store data: %w", err)
	}

	util.StoresConnectedTotal.Inc()
	util.MockDataGeneratedTotal.WithLabelValues(TriggerConnect).Inc()
	s.logger.Info("Store connected",
		zap.String("store_id", st.ID),
		zap.String("shop_domain", st.ShopDomain),
		zap.Int("products", len(catalog.Products)),
		zap.Int("orders", len(catalog.Orders)))

	event := &models.StoreConnectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStoreConnected,
			Timestamp: time.Now(),
		},
		StoreID:    st.ID,
		ShopDomain: st.ShopDomain,
		Products:   len(catalog.Products),
		Orders:     len(catalog.Orders),
		Customers:  len(catalog.Customers),
	}
	if err := s.publisher.PublishStoreConnected(ctx, event); err != nil {
		s.logger.Error("Failed to publish StoreConnected event", zap.Error(err))
	}

	return st, nil
}

// ListStores lists connected stores, newest first
func (s *StoreService) ListStores(ctx context.Context, limit int) ([]models.Store, error) {
	stores, err := s.repo.ListStores(ctx, clampList(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

// GetStore returns one store
func (s *StoreService) GetStore(ctx context.Context, id string) (*models.Store, error) {
	return s.repo.GetStore(ctx, id)
}

// Disconnect deletes the store together with its data and question history
func (s *StoreService) Disconnect(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "StoreService.Disconnect", id)
	defer span.End()

	if err := s.repo.DeleteStore(ctx, id); err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	s.invalidateSummary(ctx, id)

	util.StoresDisconnectedTotal.Inc()
	s.logger.Info("Store disconnected", zap.String("store_id", id))

	event := &models.StoreDisconnectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStoreDisconnected,
			Timestamp: time.Now(),
		},
		StoreID: id,
	}
	if err := s.publisher.PublishStoreDisconnected(ctx, event); err != nil {
		s.logger.Error("Failed to publish StoreDisconnected event", zap.Error(err))
	}
	return nil
}

// RequestRefresh queues an asynchronous regeneration and returns the event id
func (s *StoreService) RequestRefresh(ctx context.Context, id string) (string, error) {
	ctx, span := util.StartSpan(ctx, "StoreService.RequestRefresh", id)
	defer span.End()

	if _, err := s.repo.GetStore(ctx, id); err != nil {
		return "", err
	}

	event := &models.DataRefreshRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeDataRefreshRequested,
			Timestamp: time.Now(),
		},
		StoreID: id,
	}
	if err := s.publisher.PublishDataRefreshRequested(ctx, event); err != nil {
		util.RecordError(span, err)
		return "", fmt.Errorf("failed to queue refresh: %w", err)
	}
	return event.EventID, nil
}

// RegenerateMockData replaces the store's products, orders and customers.
// Question history is left untouched.
func (s *StoreService) RegenerateMockData(ctx context.Context, id, trigger string) (*models.Catalog, error) {
	ctx, span := util.StartSpan(ctx, "StoreService.RegenerateMockData", id)
	defer span.End()

	if _, err := s.repo.GetStore(ctx, id); err != nil {
		return nil, err
	}

	lockKey := "regenerate:" + id
	token := uuid.New().String()
	acquired, err := s.cache.AcquireLock(ctx, lockKey, token, regenerateLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire regeneration lock: %w", err)
	}
	if !acquired {
		return nil, ErrRegenerationInProgress
	}
	defer func() {
		if err := s.cache.ReleaseLock(context.Background(), lockKey, token); err != nil {
			s.logger.Warn("Failed to release regeneration lock",
				zap.String("store_id", id),
				zap.Error(err))
		}
	}()

	catalog := s.generator.Generate(id)
	if err := s.repo.ReplaceCatalog(ctx, id, catalog); err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to replace store data: %w", err)
	}
	s.invalidateSummary(ctx, id)

	util.MockDataGeneratedTotal.WithLabelValues(trigger).Inc()
	s.logger.Info("Mock data regenerated",
		zap.String("store_id", id),
		zap.String("trigger", trigger),
		zap.Int("orders", len(catalog.Orders)))

	event := &models.DataRegeneratedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeDataRegenerated,
			Timestamp: time.Now(),
		},
		StoreID:   id,
		Products:  len(catalog.Products),
		Orders:    len(catalog.Orders),
		Customers: len(catalog.Customers),
	}
	if err := s.publisher.PublishDataRegenerated(ctx, event); err != nil {
		s.logger.Error("Failed to publish DataRegenerated event", zap.Error(err))
	}
	return catalog, nil
}

// HandleRefreshRequested is the consumer side of RequestRefresh. Stores that
// are gone or already regenerating are acknowledged without retry.
func (s *StoreService) HandleRefreshRequested(ctx context.Context, event *models.DataRefreshRequestedEvent) error {
	_, err := s.RegenerateMockData(ctx, event.StoreID, TriggerRefresh)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		s.logger.Info("Skipping refresh for removed store", zap.String("store_id", event.StoreID))
		return nil
	case errors.Is(err, ErrRegenerationInProgress):
		s.logger.Info("Skipping refresh, regeneration in progress", zap.String("store_id", event.StoreID))
		return nil
	}
	return err
}

// HandleStoreDisconnected drops cached state for a removed store
func (s *StoreService) HandleStoreDisconnected(ctx context.Context, event *models.StoreDisconnectedEvent) error {
	s.invalidateSummary(ctx, event.StoreID)
	return nil
}

// ListProducts lists a store's products
func (s *StoreService) ListProducts(ctx context.Context, storeID string, limit int) ([]models.Product, error) {
	view, err := OpenStoreView(ctx, s.repo, storeID)
	if err != nil {
		return nil, err
	}
	return view.Products(ctx, clampList(limit))
}

// ListOrders lists a store's orders, most recent first
func (s *StoreService) ListOrders(ctx context.Context, storeID string, limit int) ([]models.Order, error) {
	view, err := OpenStoreView(ctx, s.repo, storeID)
	if err != nil {
		return nil, err
	}
	return view.Orders(ctx, time.Time{}, clampList(limit))
}

// ListCustomers lists a store's customers
func (s *StoreService) ListCustomers(ctx context.Context, storeID string, limit int) ([]models.Customer, error) {
	view, err := OpenStoreView(ctx, s.repo, storeID)
	if err != nil {
		return nil, err
	}
	return view.Customers(ctx, clampList(limit))
}

func (s *StoreService) invalidateSummary(ctx context.Context, storeID string) {
	if err := s.cache.Delete(ctx, summaryCacheKey(storeID)); err != nil {
		s.logger.Warn("Failed to invalidate analytics cache",
			zap.String("store_id", storeID),
			zap.Error(err))
	}
}

func clampList(limit int) int {
	if limit <= 0 {
		return listDefaultLimit
	}
	if limit > listMaxLimit {
		return listMaxLimit
	}
	return limit
}

func failureReason(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return "not_found"
	}
	return "db_error"
}

func mockAccessToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "mock_token_" + uuid.New().String()
	}
	return "mock_token_" + hex.EncodeToString(b)
}
