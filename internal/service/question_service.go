package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shop-analytics/internal/analytics"
	"shop-analytics/internal/llm"
	"shop-analytics/internal/models"
	"shop-analytics/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// QuestionOptions tunes the question pipeline
type QuestionOptions struct {
	LLMTimeout          time.Duration
	DefaultWindowDays   int
	LowStockDays        float64
	HistoryDefaultLimit int
	HistoryMaxLimit     int
}

// QuestionService answers store questions: classify, describe, compute and
// phrase, then record the result in the store's history
type QuestionService struct {
	repo        QuestionRepository
	cache       Cache
	publisher   EventPublisher
	classifier  *IntentClassifier
	planner     *QueryPlanner
	synthesizer *AnswerSynthesizer
	opts        QuestionOptions
	now         func() time.Time
	logger      *zap.Logger
}

// NewQuestionService creates a new question service
func NewQuestionService(
	repo QuestionRepository,
	cache Cache,
	publisher EventPublisher,
	completer llm.Completer,
	opts QuestionOptions,
) *QuestionService {
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = DefaultLLMTimeout
	}
	if opts.HistoryDefaultLimit <= 0 {
		opts.HistoryDefaultLimit = 20
	}
	if opts.HistoryMaxLimit < opts.HistoryDefaultLimit {
		opts.HistoryMaxLimit = opts.HistoryDefaultLimit
	}
	return &QuestionService{
		repo:        repo,
		cache:       cache,
		publisher:   publisher,
		classifier:  NewIntentClassifier(completer, opts.LLMTimeout),
		planner:     NewQueryPlanner(completer, opts.LLMTimeout, opts.DefaultWindowDays),
		synthesizer: NewAnswerSynthesizer(completer, opts.LLMTimeout, opts.LowStockDays),
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      util.GetLogger(),
	}
}

// AskRequest represents a question asked against one store
type AskRequest struct {
	StoreID        string `json:"store_id" binding:"required"`
	Question       string `json:"question"`
	IdempotencyKey string `json:"-"`
}

// Ask runs the pipeline. The only error for a well-formed request is a
// wrapped store.ErrNotFound; every stage failure degrades the answer instead.
func (s *QuestionService) Ask(ctx context.Context, req *AskRequest) (*models.Question, error) {
	ctx, span := util.StartSpan(ctx, "QuestionService.Ask", req.StoreID)
	defer span.End()

	start := time.Now()
	defer func() {
		util.QuestionLatency.Observe(time.Since(start).Seconds())
	}()

	view, err := OpenStoreView(ctx, s.repo, req.StoreID)
	if err != nil {
		util.QuestionsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to resolve store: %w", err)
	}

	if prior := s.replay(ctx, req); prior != nil {
		return prior, nil
	}

	question := strings.TrimSpace(req.Question)

	ds, err := view.Snapshot(ctx)
	if err != nil {
		s.logger.Error("Failed to load store snapshot",
			zap.String("store_id", req.StoreID),
			zap.Error(err))
		ds = &analytics.Dataset{StoreID: view.StoreID()}
	}

	class := s.classifier.Classify(ctx, question, ds)
	descriptor := s.planner.Describe(ctx, question, class.Intent)
	answer := s.synthesizer.Synthesize(ctx, question, ds, descriptor, s.now(), class.Degraded)

	q := &models.Question{
		ID:         uuid.New().String(),
		StoreID:    view.StoreID(),
		Question:   question,
		Intent:     class.Intent,
		ShopifyQL:  descriptor.ShopifyQL,
		Answer:     answer.Text,
		Confidence: answer.Confidence,
		CreatedAt:  s.now(),
	}

	if err := s.repo.AppendQuestion(ctx, q); err != nil {
		util.QuestionsFailedTotal.WithLabelValues("history_write").Inc()
		util.RecordError(span, err)
		s.logger.Error("Failed to record question",
			zap.String("store_id", q.StoreID),
			zap.Error(err))
		return q, nil
	}

	s.remember(ctx, req, q)

	util.QuestionsAskedTotal.WithLabelValues(string(q.Intent), string(q.Confidence)).Inc()
	s.logger.Info("Question answered",
		zap.String("store_id", q.StoreID),
		zap.String("question_id", q.ID),
		zap.String("intent", string(q.Intent)),
		zap.String("metric", string(descriptor.Metric)),
		zap.String("confidence", string(q.Confidence)))

	event := &models.QuestionAnsweredEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeQuestionAnswered,
			Timestamp: time.Now(),
		},
		StoreID:    q.StoreID,
		QuestionID: q.ID,
		Intent:     q.Intent,
		Confidence: q.Confidence,
	}
	if err := s.publisher.PublishQuestionAnswered(ctx, event); err != nil {
		s.logger.Error("Failed to publish QuestionAnswered event", zap.Error(err))
	}

	return q, nil
}

// replay returns the recorded answer for a repeated idempotency key
func (s *QuestionService) replay(ctx context.Context, req *AskRequest) *models.Question {
	if req.IdempotencyKey == "" {
		return nil
	}
	id, ok, err := s.cache.GetIdempotencyKey(ctx, idempotencyScope(req))
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	prior, err := s.repo.GetQuestion(ctx, req.StoreID, id)
	if err != nil {
		s.logger.Warn("Idempotency key points at missing question",
			zap.String("question_id", id),
			zap.Error(err))
		return nil
	}
	s.logger.Info("Duplicate question request detected",
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("question_id", prior.ID))
	return prior
}

func (s *QuestionService) remember(ctx context.Context, req *AskRequest, q *models.Question) {
	if req.IdempotencyKey == "" {
		return
	}
	if _, err := s.cache.SetIdempotencyKey(ctx, idempotencyScope(req), q.ID, idempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency key", zap.Error(err))
	}
}

// idempotency keys are scoped per store so one key cannot replay across stores
func idempotencyScope(req *AskRequest) string {
	return "question:" + req.StoreID + ":" + req.IdempotencyKey
}

// History lists a store's questions, most recent first. limit is clamped to
// the configured maximum; non-positive means the default.
func (s *QuestionService) History(ctx context.Context, storeID string, limit int) ([]models.Question, error) {
	ctx, span := util.StartSpan(ctx, "QuestionService.History", storeID)
	defer span.End()

	view, err := OpenStoreView(ctx, s.repo, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store: %w", err)
	}

	limit = s.clampLimit(limit)
	questions, err := s.repo.ListQuestions(ctx, view.StoreID(), limit)
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return scoped(view, questions, func(q models.Question) string { return q.StoreID }), nil
}

func (s *QuestionService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.HistoryDefaultLimit
	}
	if limit > s.opts.HistoryMaxLimit {
		return s.opts.HistoryMaxLimit
	}
	return limit
}
