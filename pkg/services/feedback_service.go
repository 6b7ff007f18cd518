package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/audit"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/repositories"
	"github.com/melontrace/melontrace-engine/pkg/screening"
	"github.com/melontrace/melontrace-engine/pkg/views"
)

// FeedbackInput is a consumer review from the public trace page.
// A zero rating means none was given.
type FeedbackInput struct {
	Rating   int
	Content  string
	Consumer string
	ClientIP string
}

// FeedbackService accepts consumer reviews and re-evaluates alerts after each one.
// The alert check outcome is logged for operators and never returned to the consumer.
type FeedbackService interface {
	Submit(ctx context.Context, batchID uuid.UUID, input FeedbackInput) (*models.Feedback, error)
}

type feedbackService struct {
	repo        repositories.FeedbackRepository
	batchRepo   repositories.BatchRepository
	alerts      AlertChecker
	invalidator views.Invalidator
	auditor     *audit.SecurityAuditor
	logger      *zap.Logger
}

func NewFeedbackService(
	repo repositories.FeedbackRepository,
	batchRepo repositories.BatchRepository,
	alerts AlertChecker,
	invalidator views.Invalidator,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) FeedbackService {
	return &feedbackService{
		repo:        repo,
		batchRepo:   batchRepo,
		alerts:      alerts,
		invalidator: invalidator,
		auditor:     auditor,
		logger:      logger.Named("feedback-service"),
	}
}

var _ FeedbackService = (*feedbackService)(nil)

func (s *feedbackService) Submit(ctx context.Context, batchID uuid.UUID, input FeedbackInput) (*models.Feedback, error) {
	rating := input.Rating
	if rating == 0 {
		rating = models.DefaultRating
	}
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", apperrors.ErrInvalidInput, models.MinRating, models.MaxRating)
	}

	content := strings.TrimSpace(input.Content)
	consumer := valueOr(input.Consumer, models.AnonymousConsumer)

	findings := screening.CheckFields(map[string]string{
		"content":  content,
		"consumer": consumer,
	})
	if len(findings) > 0 {
		for _, f := range findings {
			s.auditor.LogContentRejected(ctx, batchID, audit.ScreeningDetails{
				Field:       f.Field,
				Value:       f.Value,
				Kind:        f.Kind,
				Fingerprint: f.Fingerprint,
			}, input.ClientIP)
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRejectedContent, findings[0].Field)
	}

	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, apperrors.ErrNotFound)
	}

	feedback := &models.Feedback{
		BatchID:  batchID,
		Rating:   rating,
		Content:  content,
		Consumer: consumer,
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		s.logger.Error("Failed to store feedback",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Feedback received",
		zap.String("batch_no", batch.BatchNo),
		zap.Int("rating", feedback.Rating))

	check := s.alerts.CheckBatch(ctx, batchID)
	if check.Success {
		s.logger.Debug("Alert check after feedback",
			zap.String("batch_no", batch.BatchNo),
			zap.Int("alert_count", check.AlertCount))
	} else {
		s.logger.Warn("Alert check after feedback failed",
			zap.String("batch_no", batch.BatchNo),
			zap.String("message", check.Message))
	}
	s.invalidator.Invalidate(ctx, views.TracePath(batch.BatchNo))

	return feedback, nil
}
