package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/repositories"
	"github.com/melontrace/melontrace-engine/pkg/views"
)

const defaultFarmOperator = "未知农户"

// FarmingRecordInput is a field operation as submitted by a grower.
type FarmingRecordInput struct {
	ActionType  string
	Description string
	Operator    string
}

// FarmingRecordService records field operations that make up the trace timeline.
type FarmingRecordService interface {
	Create(ctx context.Context, batchID uuid.UUID, input FarmingRecordInput) (*models.FarmingRecord, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.FarmingRecord, error)
}

type farmingRecordService struct {
	repo        repositories.FarmingRecordRepository
	batchRepo   repositories.BatchRepository
	invalidator views.Invalidator
	logger      *zap.Logger
}

func NewFarmingRecordService(
	repo repositories.FarmingRecordRepository,
	batchRepo repositories.BatchRepository,
	invalidator views.Invalidator,
	logger *zap.Logger,
) FarmingRecordService {
	return &farmingRecordService{
		repo:        repo,
		batchRepo:   batchRepo,
		invalidator: invalidator,
		logger:      logger.Named("farming-record-service"),
	}
}

var _ FarmingRecordService = (*farmingRecordService)(nil)

func (s *farmingRecordService) Create(ctx context.Context, batchID uuid.UUID, input FarmingRecordInput) (*models.FarmingRecord, error) {
	action := strings.TrimSpace(input.ActionType)
	description := strings.TrimSpace(input.Description)
	if action == "" || description == "" {
		return nil, fmt.Errorf("%w: action_type and description are required", apperrors.ErrInvalidInput)
	}
	if !models.ValidFarmingAction(action) {
		return nil, fmt.Errorf("%w: invalid action type: %q", apperrors.ErrInvalidInput, action)
	}

	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, apperrors.ErrNotFound)
	}

	record := &models.FarmingRecord{
		BatchID:     batchID,
		ActionType:  action,
		Description: description,
		Operator:    valueOr(input.Operator, defaultFarmOperator),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to create farming record",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Farming record added",
		zap.String("batch_no", batch.BatchNo),
		zap.String("action_type", record.ActionType))

	s.invalidator.Invalidate(ctx, views.AdminPath, views.TracePath(batch.BatchNo))
	return record, nil
}

func (s *farmingRecordService) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.FarmingRecord, error) {
	records, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		s.logger.Error("Failed to list farming records",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return nil, err
	}
	return records, nil
}
