package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/repositories"
	"github.com/melontrace/melontrace-engine/pkg/views"
)

// batchNoAttempts bounds the retries when a generated batch number collides.
const batchNoAttempts = 5

// BatchInput holds the fields a grower supplies for a new batch.
type BatchInput struct {
	Variety    string
	Location   string
	SowingDate time.Time
}

// BatchService manages batch lifecycle.
type BatchService interface {
	Create(ctx context.Context, input BatchInput) (*models.Batch, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	GetByBatchNo(ctx context.Context, batchNo string) (*models.Batch, error)
	List(ctx context.Context, filters models.BatchFilters) ([]*models.Batch, int, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	// Delete removes the batch together with every record that references it.
	Delete(ctx context.Context, id uuid.UUID) error
}

type batchService struct {
	repo        repositories.BatchRepository
	invalidator views.Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

func NewBatchService(repo repositories.BatchRepository, invalidator views.Invalidator, logger *zap.Logger) BatchService {
	return &batchService{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger.Named("batch-service"),
		now:         time.Now,
	}
}

var _ BatchService = (*batchService)(nil)

// batchNumber derives a KL-<4 digits> number from the clock. attempt shifts
// the digits so a retry after a collision yields a different number.
func batchNumber(t time.Time, attempt int) string {
	return fmt.Sprintf("KL-%04d", (t.UnixMilli()+int64(attempt))%10000)
}

func (s *batchService) Create(ctx context.Context, input BatchInput) (*models.Batch, error) {
	variety := strings.TrimSpace(input.Variety)
	location := strings.TrimSpace(input.Location)
	if variety == "" || location == "" || input.SowingDate.IsZero() {
		return nil, fmt.Errorf("%w: variety, location and sowing date are required", apperrors.ErrInvalidInput)
	}

	batch := &models.Batch{
		Variety:    variety,
		Location:   location,
		SowingDate: input.SowingDate,
		Status:     models.BatchStatusGrowing,
	}
	if ownerID, ok := auth.GetUserUUIDFromContext(ctx); ok {
		batch.OwnerID = &ownerID
	}

	now := s.now()
	var err error
	for attempt := 0; attempt < batchNoAttempts; attempt++ {
		batch.BatchNo = batchNumber(now, attempt)
		err = s.repo.Create(ctx, batch)
		if !errors.Is(err, apperrors.ErrConflict) {
			break
		}
		s.logger.Debug("Batch number taken, retrying", zap.String("batch_no", batch.BatchNo))
	}
	if err != nil {
		s.logger.Error("Failed to create batch", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Batch created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_no", batch.BatchNo))

	s.invalidator.Invalidate(ctx, views.AdminPath)
	return batch, nil
}

func (s *batchService) GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	batch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get batch",
			zap.String("batch_id", id.String()),
			zap.Error(err))
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", id, apperrors.ErrNotFound)
	}
	return batch, nil
}

func (s *batchService) GetByBatchNo(ctx context.Context, batchNo string) (*models.Batch, error) {
	batch, err := s.repo.GetByBatchNo(ctx, batchNo)
	if err != nil {
		s.logger.Error("Failed to get batch",
			zap.String("batch_no", batchNo),
			zap.Error(err))
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", batchNo, apperrors.ErrNotFound)
	}
	return batch, nil
}

func (s *batchService) List(ctx context.Context, filters models.BatchFilters) ([]*models.Batch, int, error) {
	if filters.Status != "" && !models.ValidBatchStatus(filters.Status) {
		return nil, 0, fmt.Errorf("%w: invalid status filter: %s", apperrors.ErrInvalidInput, filters.Status)
	}
	batches, total, err := s.repo.List(ctx, filters)
	if err != nil {
		s.logger.Error("Failed to list batches", zap.Error(err))
		return nil, 0, err
	}
	return batches, total, nil
}

func (s *batchService) Approve(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	return s.setStatus(ctx, id, models.BatchStatusApproved)
}

func (s *batchService) Reject(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	return s.setStatus(ctx, id, models.BatchStatusRejected)
}

func (s *batchService) setStatus(ctx context.Context, id uuid.UUID, status string) (*models.Batch, error) {
	batch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Error("Failed to update batch status",
			zap.String("batch_id", id.String()),
			zap.String("status", status),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Batch reviewed",
		zap.String("batch_no", batch.BatchNo),
		zap.String("status", status),
		zap.String("reviewer", auth.GetUserIDFromContext(ctx)))

	batch.Status = status
	batch.UpdatedAt = s.now()
	s.invalidator.Invalidate(ctx, views.AdminPath, views.TracePath(batch.BatchNo))
	return batch, nil
}

func (s *batchService) Delete(ctx context.Context, id uuid.UUID) error {
	batch, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete batch",
			zap.String("batch_id", id.String()),
			zap.Error(err))
		return err
	}

	s.logger.Info("Batch deleted", zap.String("batch_no", batch.BatchNo))
	s.invalidator.Invalidate(ctx, views.AdminPath, views.TracePath(batch.BatchNo))
	return nil
}
