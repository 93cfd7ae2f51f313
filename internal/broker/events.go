package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"shop-analytics/internal/models"
	"shop-analytics/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func storeKey(storeID string) string {
	return fmt.Sprintf("store-%s", storeID)
}

// PublishStoreConnected publishes StoreConnected event
func (ep *EventPublisher) PublishStoreConnected(ctx context.Context, event *models.StoreConnectedEvent) error {
	return ep.producer.PublishEvent(ctx, storeKey(event.StoreID), event)
}

// PublishStoreDisconnected publishes StoreDisconnected event
func (ep *EventPublisher) PublishStoreDisconnected(ctx context.Context, event *models.StoreDisconnectedEvent) error {
	return ep.producer.PublishEvent(ctx, storeKey(event.StoreID), event)
}

// PublishDataRefreshRequested publishes DataRefreshRequested event
func (ep *EventPublisher) PublishDataRefreshRequested(ctx context.Context, event *models.DataRefreshRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, storeKey(event.StoreID), event)
}

// PublishDataRegenerated publishes DataRegenerated event
func (ep *EventPublisher) PublishDataRegenerated(ctx context.Context, event *models.DataRegeneratedEvent) error {
	return ep.producer.PublishEvent(ctx, storeKey(event.StoreID), event)
}

// PublishQuestionAnswered publishes QuestionAnswered event
func (ep *EventPublisher) PublishQuestionAnswered(ctx context.Context, event *models.QuestionAnsweredEvent) error {
	return ep.producer.PublishEvent(ctx, storeKey(event.StoreID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onDataRefreshRequested func(context.Context, *models.DataRefreshRequestedEvent) error
	onStoreDisconnected    func(context.Context, *models.StoreDisconnectedEvent) error
	logger                 *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnDataRefreshRequested registers a handler for DataRefreshRequested events
func (eh *EventHandler) OnDataRefreshRequested(handler func(context.Context, *models.DataRefreshRequestedEvent) error) {
	eh.onDataRefreshRequested = handler
}

// OnStoreDisconnected registers a handler for StoreDisconnected events
func (eh *EventHandler) OnStoreDisconnected(handler func(context.Context, *models.StoreDisconnectedEvent) error) {
	eh.onStoreDisconnected = handler
}

// HandleMessage routes messages to appropriate handlers. Event types
// without a registered handler are acknowledged and skipped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeDataRefreshRequested:
		if eh.onDataRefreshRequested != nil {
			var event models.DataRefreshRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal DataRefreshRequested event: %w", err)
			}
			return eh.onDataRefreshRequested(ctx, &event)
		}

	case models.EventTypeStoreDisconnected:
		if eh.onStoreDisconnected != nil {
			var event models.StoreDisconnectedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StoreDisconnected event: %w", err)
			}
			return eh.onStoreDisconnected(ctx, &event)
		}
	}

	return nil
}
