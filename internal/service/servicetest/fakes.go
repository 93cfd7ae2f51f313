// Package servicetest provides in-memory stand-ins for the cache and event
// publisher used by the services.
package servicetest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"shop-analytics/internal/models"
)

// Cache is an in-memory cache with JSON round-tripping, idempotency keys and
// token locks. TTLs are ignored.
type Cache struct {
	mu     sync.Mutex
	values map[string][]byte
	keys   map[string]string
	locks  map[string]string
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		values: make(map[string][]byte),
		keys:   make(map[string]string),
		locks:  make(map[string]string),
	}
}

func (c *Cache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *Cache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

// Has reports whether a JSON value is cached under key
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

func (c *Cache) SetIdempotencyKey(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = value
	return true, nil
}

func (c *Cache) GetIdempotencyKey(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.keys[key]
	return v, ok, nil
}

func (c *Cache) AcquireLock(_ context.Context, lockKey, token string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locks[lockKey]; held {
		return false, nil
	}
	c.locks[lockKey] = token
	return true, nil
}

func (c *Cache) ReleaseLock(_ context.Context, lockKey, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[lockKey] == token {
		delete(c.locks, lockKey)
	}
	return nil
}

// Publisher records the type of every published event
type Publisher struct {
	mu     sync.Mutex
	events []string
}

// Published returns event types in publish order
func (p *Publisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *Publisher) record(eventType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *Publisher) PublishStoreConnected(_ context.Context, e *models.StoreConnectedEvent) error {
	return p.record(e.EventType)
}

func (p *Publisher) PublishStoreDisconnected(_ context.Context, e *models.StoreDisconnectedEvent) error {
	return p.record(e.EventType)
}

func (p *Publisher) PublishDataRefreshRequested(_ context.Context, e *models.DataRefreshRequestedEvent) error {
	return p.record(e.EventType)
}

func (p *Publisher) PublishDataRegenerated(_ context.Context, e *models.DataRegeneratedEvent) error {
	return p.record(e.EventType)
}

func (p *Publisher) PublishQuestionAnswered(_ context.Context, e *models.QuestionAnsweredEvent) error {
	return p.record(e.EventType)
}
