package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shop-analytics/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("store-s1"), Value: raw}
}

func TestHandleMessageRoutesRefresh(t *testing.T) {
	eh := NewEventHandler()
	var got *models.DataRefreshRequestedEvent
	eh.OnDataRefreshRequested(func(_ context.Context, e *models.DataRefreshRequestedEvent) error {
		got = e
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.DataRefreshRequestedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeDataRefreshRequested, Timestamp: time.Now()},
		StoreID:   "s1",
	}))

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.StoreID)
	assert.Equal(t, "e1", got.EventID)
}

func TestHandleMessageSkipsUnhandledTypes(t *testing.T) {
	eh := NewEventHandler()
	called := false
	eh.OnDataRefreshRequested(func(context.Context, *models.DataRefreshRequestedEvent) error {
		called = true
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.QuestionAnsweredEvent{
		BaseEvent: models.BaseEvent{EventID: "e2", EventType: models.EventTypeQuestionAnswered},
		StoreID:   "s1",
	}))

	assert.NoError(t, err)
	assert.False(t, called)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}

func TestStoreKey(t *testing.T) {
	assert.Equal(t, "store-abc", storeKey("abc"))
}
