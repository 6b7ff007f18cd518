package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/melontrace/melontrace-engine/pkg/models"
)

// FeedbackRepository provides data access for consumer feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	// ListByBatch returns feedback newest first. limit <= 0 returns all.
	ListByBatch(ctx context.Context, batchID uuid.UUID, limit int) ([]*models.Feedback, error)
	// RatingSummary returns the average rating and the number of ratings for a batch.
	RatingSummary(ctx context.Context, batchID uuid.UUID) (avg float64, count int, err error)
}

type feedbackRepository struct{}

func NewFeedbackRepository() FeedbackRepository {
	return &feedbackRepository{}
}

var _ FeedbackRepository = (*feedbackRepository)(nil)

func (r *feedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO feedbacks (batch_id, rating, content, consumer)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		feedback.BatchID, feedback.Rating, feedback.Content, feedback.Consumer,
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, limit int) ([]*models.Feedback, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := q.Query(ctx, `
		SELECT id, batch_id, rating, content, consumer, created_at
		FROM feedbacks
		WHERE batch_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, batchID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	feedbacks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Feedback, error) {
		f := &models.Feedback{}
		err := row.Scan(&f.ID, &f.BatchID, &f.Rating, &f.Content, &f.Consumer, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan feedback: %w", err)
	}
	return feedbacks, nil
}

func (r *feedbackRepository) RatingSummary(ctx context.Context, batchID uuid.UUID) (float64, int, error) {
	q, err := querier(ctx)
	if err != nil {
		return 0, 0, err
	}

	var avg float64
	var count int
	err = q.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM feedbacks
		WHERE batch_id = $1`, batchID,
	).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to summarize ratings: %w", err)
	}
	return avg, count, nil
}
