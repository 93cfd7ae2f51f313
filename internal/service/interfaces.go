package service

import (
	"context"
	"time"

	"shop-analytics/internal/models"
)

// DataReader is read access to stores and their mock data
type DataReader interface {
	GetStore(ctx context.Context, id string) (*models.Store, error)
	ListProducts(ctx context.Context, storeID string, limit int) ([]models.Product, error)
	ListOrders(ctx context.Context, storeID string, since time.Time, limit int) ([]models.Order, error)
	ListCustomers(ctx context.Context, storeID string, limit int) ([]models.Customer, error)
}

// HistoryStore is the append-only question history
type HistoryStore interface {
	AppendQuestion(ctx context.Context, q *models.Question) error
	ListQuestions(ctx context.Context, storeID string, limit int) ([]models.Question, error)
	GetQuestion(ctx context.Context, storeID, id string) (*models.Question, error)
}

// QuestionRepository is what the question pipeline reads and writes
type QuestionRepository interface {
	DataReader
	HistoryStore
}

// Repository is the full persistence surface
type Repository interface {
	QuestionRepository
	CreateStore(ctx context.Context, st *models.Store) error
	ListStores(ctx context.Context, limit int) ([]models.Store, error)
	DeleteStore(ctx context.Context, id string) error
	ReplaceCatalog(ctx context.Context, storeID string, catalog *models.Catalog) error
	Ping(ctx context.Context) error
}

// Cache is the shared key/value store used for summaries, idempotency keys
// and regeneration locks
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	PublishStoreConnected(ctx context.Context, event *models.StoreConnectedEvent) error
	PublishStoreDisconnected(ctx context.Context, event *models.StoreDisconnectedEvent) error
	PublishDataRefreshRequested(ctx context.Context, event *models.DataRefreshRequestedEvent) error
	PublishDataRegenerated(ctx context.Context, event *models.DataRegeneratedEvent) error
	PublishQuestionAnswered(ctx context.Context, event *models.QuestionAnsweredEvent) error
}
