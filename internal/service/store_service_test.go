package service

import (
	"context"
	"errors"
	"testing"

	"shop-analytics/internal/models"
	"shop-analytics/internal/service/servicetest"
	"shop-analytics/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenCatalogRepo fails every catalog replacement
type brokenCatalogRepo struct {
	*store.MemoryStore
}

func (brokenCatalogRepo) ReplaceCatalog(context.Context, string, *models.Catalog) error {
	return errors.New("disk full")
}

func newTestStoreService(repo Repository) (*StoreService, *servicetest.Cache, *servicetest.Publisher) {
	cache := servicetest.NewCache()
	pub := &servicetest.Publisher{}
	return NewStoreService(repo, cache, pub, nil), cache, pub
}

func TestConnectSeedsStore(t *testing.T) {
	repo := store.NewMemoryStore()
	svc, _, pub := newTestStoreService(repo)
	svc.generator = testGenerator(t)

	st, err := svc.Connect(context.Background(), &ConnectStoreRequest{ShopDomain: " Demo.myshopify.com "})
	require.NoError(t, err)

	assert.Equal(t, "demo.myshopify.com", st.ShopDomain)
	assert.Equal(t, "demo", st.ShopName)
	assert.True(t, st.IsConnected)
	assert.Regexp(t, `^mock_token_[0-9a-f]{32}$`, st.AccessToken)

	products, err := svc.ListProducts(context.Background(), st.ID, 0)
	require.NoError(t, err)
	assert.Len(t, products, 20)

	orders, err := svc.ListOrders(context.Background(), st.ID, 500)
	require.NoError(t, err)
	assert.Len(t, orders, 150)

	assert.Equal(t, []string{models.EventTypeStoreConnected}, pub.Published())
}

func TestConnectRollsBackOnSeedFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	svc, _, pub := newTestStoreService(brokenCatalogRepo{mem})
	svc.generator = testGenerator(t)

	_, err := svc.Connect(context.Background(), &ConnectStoreRequest{ShopDomain: "demo.myshopify.com", ShopName: "Demo"})
	require.Error(t, err)

	stores, err := mem.ListStores(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, stores)
	assert.Empty(t, pub.Published())
}

func TestRegenerateKeepsHistory(t *testing.T) {
	repo := store.NewMemoryStore()
	gen := testGenerator(t)
	seedStore(t, repo, "shop-a", gen.Generate("shop-a"))
	svc, cache, pub := newTestStoreService(repo)
	svc.generator = gen
	qs, _, _ := newTestQuestionService(repo, newStageLLM("sales", revenueDescriptor, "ok"))

	for _, text := range []string{"Q1", "Q2"} {
		_, err := qs.Ask(context.Background(), &AskRequest{StoreID: "shop-a", Question: text})
		require.NoError(t, err)
	}
	require.NoError(t, cache.SetJSON(context.Background(), summaryCacheKey("shop-a"), map[string]int{"x": 1}, 0))

	for i := 0; i < 3; i++ {
		_, err := svc.RegenerateMockData(context.Background(), "shop-a", TriggerManual)
		require.NoError(t, err)
	}

	history, err := qs.History(context.Background(), "shop-a", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Q2", history[0].Question)

	products, err := svc.ListProducts(context.Background(), "shop-a", 200)
	require.NoError(t, err)
	assert.Len(t, products, 20)

	assert.False(t, cache.Has(summaryCacheKey("shop-a")))
	assert.Len(t, pub.Published(), 3)
}

func TestRegenerateWhileLocked(t *testing.T) {
	repo := store.NewMemoryStore()
	seedStore(t, repo, "shop-a", nil)
	svc, cache, _ := newTestStoreService(repo)
	svc.generator = testGenerator(t)

	ok, err := cache.AcquireLock(context.Background(), "regenerate:shop-a", "other", 0)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.RegenerateMockData(context.Background(), "shop-a", TriggerManual)
	assert.ErrorIs(t, err, ErrRegenerationInProgress)

	err = svc.HandleRefreshRequested(context.Background(), &models.DataRefreshRequestedEvent{StoreID: "shop-a"})
	assert.NoError(t, err)
}

func TestHandleRefreshForRemovedStore(t *testing.T) {
	svc, _, pub := newTestStoreService(store.NewMemoryStore())
	svc.generator = testGenerator(t)

	err := svc.HandleRefreshRequested(context.Background(), &models.DataRefreshRequestedEvent{StoreID: "gone"})
	assert.NoError(t, err)
	assert.Empty(t, pub.Published())
}

func TestRequestRefresh(t *testing.T) {
	repo := store.NewMemoryStore()
	seedStore(t, repo, "shop-a", nil)
	svc, _, pub := newTestStoreService(repo)

	id, err := svc.RequestRefresh(context.Background(), "shop-a")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []string{models.EventTypeDataRefreshRequested}, pub.Published())

	_, err = svc.RequestRefresh(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDisconnectRemovesEverything(t *testing.T) {
	repo := store.NewMemoryStore()
	gen := testGenerator(t)
	seedStore(t, repo, "shop-a", gen.Generate("shop-a"))
	seedStore(t, repo, "shop-b", gen.Generate("shop-b"))
	svc, cache, pub := newTestStoreService(repo)
	require.NoError(t, cache.SetJSON(context.Background(), summaryCacheKey("shop-a"), 1, 0))

	require.NoError(t, svc.Disconnect(context.Background(), "shop-a"))

	_, err := svc.GetStore(context.Background(), "shop-a")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.ListOrders(context.Background(), "shop-a", 10)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, cache.Has(summaryCacheKey("shop-a")))
	assert.Equal(t, []string{models.EventTypeStoreDisconnected}, pub.Published())

	orders, err := svc.ListOrders(context.Background(), "shop-b", 10)
	require.NoError(t, err)
	assert.Len(t, orders, 10)

	assert.ErrorIs(t, svc.Disconnect(context.Background(), "shop-a"), store.ErrNotFound)
}

func TestClampList(t *testing.T) {
	assert.Equal(t, 50, clampList(0))
	assert.Equal(t, 10, clampList(10))
	assert.Equal(t, 200, clampList(1000))
}
