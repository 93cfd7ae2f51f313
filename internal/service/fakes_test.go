package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"shop-analytics/internal/mockdata"
	"shop-analytics/internal/models"
	"shop-analytics/internal/service/servicetest"
	"shop-analytics/internal/store"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var errModelDown = errors.New("model down")

// stageLLM answers each pipeline stage from its own script and counts calls
type stageLLM struct {
	mu     sync.Mutex
	calls  map[string]int
	stages map[string]func(ctx context.Context, prompt string) (string, error)
}

func newStageLLM(classify, describe, phrase string) *stageLLM {
	return &stageLLM{
		calls: make(map[string]int),
		stages: map[string]func(context.Context, string) (string, error){
			stageClassify:   reply(classify),
			stageDescribe:   reply(describe),
			stageSynthesize: reply(phrase),
		},
	}
}

func reply(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, nil }
}

func failing(context.Context, string) (string, error) {
	return "", errModelDown
}

func blocking(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (l *stageLLM) set(stage string, fn func(context.Context, string) (string, error)) *stageLLM {
	l.stages[stage] = fn
	return l
}

func (l *stageLLM) Complete(ctx context.Context, prompt string) (string, error) {
	stage := stageOf(prompt)
	l.mu.Lock()
	l.calls[stage]++
	fn := l.stages[stage]
	l.mu.Unlock()
	return fn(ctx, prompt)
}

func (l *stageLLM) callCount(stage string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[stage]
}

func stageOf(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "Classify"):
		return stageClassify
	case strings.HasPrefix(prompt, "Turn a store owner's question"):
		return stageDescribe
	default:
		return stageSynthesize
	}
}

// recordingReader remembers which store ids were read
type recordingReader struct {
	*store.MemoryStore
	mu    sync.Mutex
	reads []string
}

func (r *recordingReader) note(storeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads = append(r.reads, storeID)
}

func (r *recordingReader) storeIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reads...)
}

func (r *recordingReader) GetStore(ctx context.Context, id string) (*models.Store, error) {
	r.note(id)
	return r.MemoryStore.GetStore(ctx, id)
}

func (r *recordingReader) ListProducts(ctx context.Context, storeID string, limit int) ([]models.Product, error) {
	r.note(storeID)
	return r.MemoryStore.ListProducts(ctx, storeID, limit)
}

func (r *recordingReader) ListOrders(ctx context.Context, storeID string, since time.Time, limit int) ([]models.Order, error) {
	r.note(storeID)
	return r.MemoryStore.ListOrders(ctx, storeID, since, limit)
}

func (r *recordingReader) ListCustomers(ctx context.Context, storeID string, limit int) ([]models.Customer, error) {
	r.note(storeID)
	return r.MemoryStore.ListCustomers(ctx, storeID, limit)
}

func testGenerator(t *testing.T) *mockdata.Generator {
	t.Helper()
	seed, err := mockdata.DefaultSeed()
	require.NoError(t, err)
	return mockdata.NewGenerator(seed, 150, rand.NewSource(7)).
		WithClock(func() time.Time { return testNow })
}

// seedStore creates a store and loads catalog into it
func seedStore(t *testing.T, repo *store.MemoryStore, id string, catalog *models.Catalog) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.CreateStore(ctx, &models.Store{
		ID:          id,
		ShopDomain:  id + ".myshopify.com",
		ShopName:    id,
		IsConnected: true,
		ConnectedAt: testNow,
	}))
	if catalog != nil {
		require.NoError(t, repo.ReplaceCatalog(ctx, id, catalog))
	}
}

func newTestQuestionService(repo QuestionRepository, completer *stageLLM) (*QuestionService, *servicetest.Cache, *servicetest.Publisher) {
	cache := servicetest.NewCache()
	pub := &servicetest.Publisher{}
	qs := NewQuestionService(repo, cache, pub, completer, QuestionOptions{
		LLMTimeout:          time.Second,
		DefaultWindowDays:   30,
		LowStockDays:        14,
		HistoryDefaultLimit: 20,
		HistoryMaxLimit:     100,
	})
	qs.now = func() time.Time { return testNow }
	return qs, cache, pub
}
