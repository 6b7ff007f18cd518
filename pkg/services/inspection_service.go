package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/repositories"
	"github.com/melontrace/melontrace-engine/pkg/views"
)

// Inspection defaults applied to blank form values.
const (
	defaultInspectionStage  = models.InspectionStageHarvest
	defaultInspectionResult = models.InspectionResultPass
	defaultInspector        = "系统监管员"
)

// InspectionInput is a quality check as submitted by an inspector.
type InspectionInput struct {
	Stage     string
	Result    string
	Inspector string
	Sugar     string
	Pesticide string
	Notes     string
}

// InspectionResult is a stored inspection plus the alert check it triggered.
type InspectionResult struct {
	Inspection *models.Inspection `json:"inspection"`
	AlertCheck *CheckResult       `json:"alert_check"`
}

// InspectionService records quality checks and re-evaluates alerts after each one.
type InspectionService interface {
	Create(ctx context.Context, batchID uuid.UUID, input InspectionInput) (*InspectionResult, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Inspection, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type inspectionService struct {
	repo        repositories.InspectionRepository
	batchRepo   repositories.BatchRepository
	alerts      AlertChecker
	invalidator views.Invalidator
	logger      *zap.Logger
	now         func() time.Time
}

func NewInspectionService(
	repo repositories.InspectionRepository,
	batchRepo repositories.BatchRepository,
	alerts AlertChecker,
	invalidator views.Invalidator,
	logger *zap.Logger,
) InspectionService {
	return &inspectionService{
		repo:        repo,
		batchRepo:   batchRepo,
		alerts:      alerts,
		invalidator: invalidator,
		logger:      logger.Named("inspection-service"),
		now:         time.Now,
	}
}

var _ InspectionService = (*inspectionService)(nil)

func (s *inspectionService) Create(ctx context.Context, batchID uuid.UUID, input InspectionInput) (*InspectionResult, error) {
	stage := valueOr(input.Stage, defaultInspectionStage)
	result := valueOr(input.Result, defaultInspectionResult)
	if !models.ValidInspectionResult(result) {
		return nil, fmt.Errorf("%w: invalid inspection result: %q", apperrors.ErrInvalidInput, result)
	}

	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, apperrors.ErrNotFound)
	}

	date := s.now().UTC().Format(time.RFC3339)
	inspection := &models.Inspection{
		BatchID:   batchID,
		Stage:     stage,
		Result:    result,
		Inspector: valueOr(input.Inspector, defaultInspector),
		ReportData: models.InspectionReport{
			Sugar:     optionalString(input.Sugar),
			Pesticide: optionalString(input.Pesticide),
			Notes:     optionalString(input.Notes),
			Date:      &date,
		},
	}
	if err := s.repo.Create(ctx, inspection); err != nil {
		s.logger.Error("Failed to create inspection",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Inspection recorded",
		zap.String("batch_no", batch.BatchNo),
		zap.String("stage", inspection.Stage),
		zap.String("result", inspection.Result))

	// The inspection stands regardless of the alert check outcome.
	check := s.alerts.CheckBatch(ctx, batchID)
	s.invalidator.Invalidate(ctx, views.AdminPath, views.TracePath(batch.BatchNo))

	return &InspectionResult{Inspection: inspection, AlertCheck: check}, nil
}

func (s *inspectionService) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Inspection, error) {
	inspections, err := s.repo.ListByBatch(ctx, batchID, 0)
	if err != nil {
		s.logger.Error("Failed to list inspections",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return nil, err
	}
	return inspections, nil
}

func (s *inspectionService) Delete(ctx context.Context, id uuid.UUID) error {
	inspection, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get inspection: %w", err)
	}
	if inspection == nil {
		return fmt.Errorf("inspection %s: %w", id, apperrors.ErrNotFound)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete inspection",
			zap.String("inspection_id", id.String()),
			zap.Error(err))
		return err
	}

	paths := []string{views.AdminPath}
	if batch, err := s.batchRepo.GetByID(ctx, inspection.BatchID); err == nil && batch != nil {
		paths = append(paths, views.TracePath(batch.BatchNo))
	}
	s.invalidator.Invalidate(ctx, paths...)
	return nil
}

// valueOr returns the trimmed value, or def when it is blank.
func valueOr(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
