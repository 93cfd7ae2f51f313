package service

import (
	"context"
	"fmt"
	"time"

	"shop-analytics/internal/analytics"
	"shop-analytics/internal/util"

	"go.uber.org/zap"
)

// AnalyticsService serves the dashboard summary, cached per store
type AnalyticsService struct {
	reader       DataReader
	cache        Cache
	ttl          time.Duration
	velocityDays int
	lowStockDays float64
	now          func() time.Time
	logger       *zap.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(reader DataReader, cache Cache, ttl time.Duration, velocityDays int, lowStockDays float64) *AnalyticsService {
	return &AnalyticsService{
		reader:       reader,
		cache:        cache,
		ttl:          ttl,
		velocityDays: velocityDays,
		lowStockDays: lowStockDays,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       util.GetLogger(),
	}
}

func summaryCacheKey(storeID string) string {
	return "analytics:" + storeID
}

// Summary returns the dashboard summary for storeID
func (s *AnalyticsService) Summary(ctx context.Context, storeID string) (*analytics.Summary, error) {
	ctx, span := util.StartSpan(ctx, "AnalyticsService.Summary", storeID)
	defer span.End()

	view, err := OpenStoreView(ctx, s.reader, storeID)
	if err != nil {
		return nil, err
	}

	key := summaryCacheKey(storeID)
	var cached analytics.Summary
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Analytics cache read failed", zap.Error(err))
	}
	if hit {
		util.AnalyticsCacheTotal.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	util.AnalyticsCacheTotal.WithLabelValues("miss").Inc()

	ds, err := view.Snapshot(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to load store data: %w", err)
	}

	summary := analytics.Summarize(ds, s.now(), s.velocityDays, s.lowStockDays)
	if err := s.cache.SetJSON(ctx, key, summary, s.ttl); err != nil {
		s.logger.Warn("Analytics cache write failed", zap.Error(err))
	}
	return summary, nil
}

// Dataset loads the full snapshot for storeID, used by exports
func (s *AnalyticsService) Dataset(ctx context.Context, storeID string) (*analytics.Dataset, error) {
	view, err := OpenStoreView(ctx, s.reader, storeID)
	if err != nil {
		return nil, err
	}
	return view.Snapshot(ctx)
}
