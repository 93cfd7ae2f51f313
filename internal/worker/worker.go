package worker

import (
	"context"

	"shop-analytics/internal/broker"
	"shop-analytics/internal/models"
	"shop-analytics/internal/util"

	"go.uber.org/zap"
)

// MessageSource is a stream of broker messages
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// RefreshHandler reacts to store data events
type RefreshHandler interface {
	HandleRefreshRequested(ctx context.Context, event *models.DataRefreshRequestedEvent) error
	HandleStoreDisconnected(ctx context.Context, event *models.StoreDisconnectedEvent) error
}

// RefreshWorker regenerates mock data for refresh requests and drops cached
// state for disconnected stores
type RefreshWorker struct {
	source       MessageSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(source MessageSource, handler RefreshHandler) *RefreshWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnDataRefreshRequested(handler.HandleRefreshRequested)
	eventHandler.OnStoreDisconnected(handler.HandleStoreDisconnected)

	return &RefreshWorker{
		source:       source,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks until ctx is cancelled
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting refresh worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RefreshWorker) Stop() error {
	w.logger.Info("Stopping refresh worker")
	return w.source.Close()
}
