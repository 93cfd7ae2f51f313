package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shop-analytics/internal/models"
)

// AppendQuestion adds a question to the store's history
func (s *Store) AppendQuestion(ctx context.Context, q *models.Question) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO questions (id, store_id, question, intent, shopify_ql, answer, confidence, created_at)
		VALUES (:id, :store_id, :question, :intent, :shopify_ql, :answer, :confidence, :created_at)`, q)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

// ListQuestions returns the most recent questions of a store first
func (s *Store) ListQuestions(ctx context.Context, storeID string, limit int) ([]models.Question, error) {
	questions := []models.Question{}
	err := s.db.SelectContext(ctx, &questions, `
		SELECT id, store_id, question, intent, shopify_ql, answer, confidence, created_at
		FROM questions WHERE store_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`, storeID, limit)
	return questions, err
}

// GetQuestion retrieves one question of a store
func (s *Store) GetQuestion(ctx context.Context, storeID, id string) (*models.Question, error) {
	var q models.Question
	err := s.db.GetContext(ctx, &q, `
		SELECT id, store_id, question, intent, shopify_ql, answer, confidence, created_at
		FROM questions WHERE store_id = $1 AND id = $2`, storeID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}
