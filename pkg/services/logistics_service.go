package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/repositories"
	"github.com/melontrace/melontrace-engine/pkg/views"
)

// Logistics defaults applied to blank form values.
const (
	defaultLogisticsStage = models.LogisticsStageTransport
	defaultOperator       = "物流人员"
)

// LogisticsInput is a supply-chain event as submitted by an operator.
type LogisticsInput struct {
	Stage         string
	Operator      string
	Location      string
	Temperature   *float64
	Humidity      *float64
	VehiclePlate  string
	VehicleDriver string
	VehiclePhone  string
	RouteFrom     string
	RouteTo       string
	RouteDistance *float64
	Notes         string
}

// LogisticsService records supply-chain events for a batch.
type LogisticsService interface {
	Create(ctx context.Context, batchID uuid.UUID, input LogisticsInput) (*models.Logistics, error)
	// ListByBatch returns the batch timeline, oldest first.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Logistics, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type logisticsService struct {
	repo        repositories.LogisticsRepository
	batchRepo   repositories.BatchRepository
	invalidator views.Invalidator
	logger      *zap.Logger
}

func NewLogisticsService(
	repo repositories.LogisticsRepository,
	batchRepo repositories.BatchRepository,
	invalidator views.Invalidator,
	logger *zap.Logger,
) LogisticsService {
	return &logisticsService{
		repo:        repo,
		batchRepo:   batchRepo,
		invalidator: invalidator,
		logger:      logger.Named("logistics-service"),
	}
}

var _ LogisticsService = (*logisticsService)(nil)

func (s *logisticsService) Create(ctx context.Context, batchID uuid.UUID, input LogisticsInput) (*models.Logistics, error) {
	stage := valueOr(input.Stage, defaultLogisticsStage)
	if !models.ValidLogisticsStage(stage) {
		return nil, fmt.Errorf("%w: invalid logistics stage: %q", apperrors.ErrInvalidInput, stage)
	}

	for field, v := range map[string]*float64{
		"temperature":    input.Temperature,
		"humidity":       input.Humidity,
		"route_distance": input.RouteDistance,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return nil, fmt.Errorf("%w: %s must be a finite number", apperrors.ErrInvalidInput, field)
		}
	}

	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, apperrors.ErrNotFound)
	}

	record := &models.Logistics{
		BatchID:     batchID,
		Stage:       stage,
		Operator:    valueOr(input.Operator, defaultOperator),
		Location:    optionalString(input.Location),
		Temperature: input.Temperature,
		Humidity:    input.Humidity,
		VehicleInfo: vehicleInfo(input),
		RouteInfo:   routeInfo(input),
		Notes:       optionalString(input.Notes),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to create logistics record",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Logistics recorded",
		zap.String("batch_no", batch.BatchNo),
		zap.String("stage", record.Stage))

	s.invalidator.Invalidate(ctx, views.AdminPath, views.TracePath(batch.BatchNo))
	return record, nil
}

func (s *logisticsService) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Logistics, error) {
	records, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		s.logger.Error("Failed to list logistics",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return nil, err
	}
	return records, nil
}

func (s *logisticsService) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get logistics record: %w", err)
	}
	if record == nil {
		return fmt.Errorf("logistics record %s: %w", id, apperrors.ErrNotFound)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete logistics record",
			zap.String("logistics_id", id.String()),
			zap.Error(err))
		return err
	}

	paths := []string{views.AdminPath}
	if batch, err := s.batchRepo.GetByID(ctx, record.BatchID); err == nil && batch != nil {
		paths = append(paths, views.TracePath(batch.BatchNo))
	}
	s.invalidator.Invalidate(ctx, paths...)
	return nil
}

// vehicleInfo returns nil unless at least one vehicle field is set.
func vehicleInfo(in LogisticsInput) *models.VehicleInfo {
	v := &models.VehicleInfo{
		Plate:  optionalString(in.VehiclePlate),
		Driver: optionalString(in.VehicleDriver),
		Phone:  optionalString(in.VehiclePhone),
	}
	if v.Plate == nil && v.Driver == nil && v.Phone == nil {
		return nil
	}
	return v
}

// routeInfo returns nil unless at least one route field is set.
func routeInfo(in LogisticsInput) *models.RouteInfo {
	r := &models.RouteInfo{
		From:     optionalString(in.RouteFrom),
		To:       optionalString(in.RouteTo),
		Distance: in.RouteDistance,
	}
	if r.From == nil && r.To == nil && r.Distance == nil {
		return nil
	}
	return r
}
