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

// ManualAlertInput is an operator-raised alert. Level defaults to medium.
type ManualAlertInput struct {
	BatchID     uuid.UUID
	AlertType   models.AlertType
	AlertLevel  string
	Title       string
	Description string
	AssignedTo  string
}

// DisposalInput describes how an alert was handled.
type DisposalInput struct {
	ResponsibleParty string
	ActionTaken      string
	Result           string
	Handler          string
}

// AlertChecker runs the alert rules for a batch and refreshes affected views.
type AlertChecker interface {
	CheckBatch(ctx context.Context, batchID uuid.UUID) *CheckResult
}

// AlertService provides operations for batch alerts and their disposals.
type AlertService interface {
	AlertChecker
	List(ctx context.Context, filters models.AlertFilters) ([]*models.Alert, int, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Alert, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	CountByStatus(ctx context.Context) (*models.AlertStatusCounts, error)
	// CreateManual inserts a single alert directly. Manual alerts bypass the
	// rules and the open-alert deduplication.
	CreateManual(ctx context.Context, input ManualAlertInput) (*models.Alert, error)
	// UpdateStatus applies a status transition. Unknown statuses and illegal
	// transitions return apperrors.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Alert, error)
	// RecordDisposal stores a disposal and resolves the alert.
	RecordDisposal(ctx context.Context, alertID uuid.UUID, input DisposalInput) (*models.Disposal, error)
}

type alertService struct {
	alertRepo    repositories.AlertRepository
	disposalRepo repositories.DisposalRepository
	batchRepo    repositories.BatchRepository
	trigger      AlertTriggerService
	invalidator  views.Invalidator
	logger       *zap.Logger
}

func NewAlertService(
	alertRepo repositories.AlertRepository,
	disposalRepo repositories.DisposalRepository,
	batchRepo repositories.BatchRepository,
	trigger AlertTriggerService,
	invalidator views.Invalidator,
	logger *zap.Logger,
) AlertService {
	return &alertService{
		alertRepo:    alertRepo,
		disposalRepo: disposalRepo,
		batchRepo:    batchRepo,
		trigger:      trigger,
		invalidator:  invalidator,
		logger:       logger.Named("alert-service"),
	}
}

var _ AlertService = (*alertService)(nil)

func (s *alertService) CheckBatch(ctx context.Context, batchID uuid.UUID) *CheckResult {
	result := s.trigger.CheckAndCreateAlerts(ctx, batchID)
	if result.Success {
		s.invalidator.Invalidate(ctx, result.Views...)
	}
	return result
}

func (s *alertService) List(ctx context.Context, filters models.AlertFilters) ([]*models.Alert, int, error) {
	if filters.Status != "" {
		if _, ok := models.ParseAlertStatus(filters.Status); !ok {
			return nil, 0, fmt.Errorf("%w: invalid status filter: %s", apperrors.ErrInvalidInput, filters.Status)
		}
	}
	if filters.AlertType != "" && !models.ValidAlertType(models.AlertType(filters.AlertType)) {
		return nil, 0, fmt.Errorf("%w: invalid alert type filter: %s", apperrors.ErrInvalidInput, filters.AlertType)
	}

	alerts, total, err := s.alertRepo.List(ctx, filters)
	if err != nil {
		s.logger.Error("Failed to list alerts", zap.Error(err))
		return nil, 0, err
	}
	return alerts, total, nil
}

func (s *alertService) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Alert, error) {
	alerts, err := s.alertRepo.ListByBatch(ctx, batchID)
	if err != nil {
		s.logger.Error("Failed to list batch alerts",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return nil, err
	}
	return alerts, nil
}

func (s *alertService) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	alert, err := s.alertRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get alert",
			zap.String("alert_id", id.String()),
			zap.Error(err))
		return nil, err
	}
	if alert == nil {
		return nil, fmt.Errorf("alert %s: %w", id, apperrors.ErrNotFound)
	}

	disposals, err := s.disposalRepo.ListByAlert(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list disposals",
			zap.String("alert_id", id.String()),
			zap.Error(err))
		return nil, err
	}
	alert.Disposals = disposals
	return alert, nil
}

func (s *alertService) CountByStatus(ctx context.Context) (*models.AlertStatusCounts, error) {
	counts, err := s.alertRepo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to count alerts", zap.Error(err))
		return nil, err
	}
	return counts, nil
}

func (s *alertService) CreateManual(ctx context.Context, input ManualAlertInput) (*models.Alert, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: alert title is required", apperrors.ErrInvalidInput)
	}
	if !models.ValidAlertType(input.AlertType) {
		return nil, fmt.Errorf("%w: invalid alert type: %q", apperrors.ErrInvalidInput, input.AlertType)
	}
	level := input.AlertLevel
	if level == "" {
		level = models.AlertLevelMedium
	}
	if !models.ValidAlertLevel(level) {
		return nil, fmt.Errorf("%w: invalid alert level: %q", apperrors.ErrInvalidInput, level)
	}

	batch, err := s.batchRepo.GetByID(ctx, input.BatchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", input.BatchID, apperrors.ErrNotFound)
	}

	alert := &models.Alert{
		BatchID:     batch.ID,
		AlertType:   input.AlertType,
		AlertLevel:  level,
		Title:       title,
		Description: optionalString(input.Description),
		TriggeredBy: models.TriggeredByManual,
		Status:      models.AlertStatusPending,
		AssignedTo:  optionalString(input.AssignedTo),
	}
	if err := s.alertRepo.CreateAlert(ctx, alert); err != nil {
		s.logger.Error("Failed to create manual alert",
			zap.String("batch_id", batch.ID.String()),
			zap.Error(err))
		return nil, err
	}
	alert.BatchNo = batch.BatchNo
	alert.BatchVariety = batch.Variety

	s.logger.Info("Manual alert created",
		zap.String("alert_id", alert.ID.String()),
		zap.String("batch_no", batch.BatchNo),
		zap.String("alert_type", string(alert.AlertType)))

	s.invalidator.Invalidate(ctx, views.AdminPath, views.TracePath(batch.BatchNo))
	return alert, nil
}

func (s *alertService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Alert, error) {
	next, ok := models.ParseAlertStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidTransition, status)
	}

	alert, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !alert.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, alert.Status, next)
	}

	if err := s.alertRepo.UpdateStatus(ctx, id, alert.Status, next); err != nil {
		s.logger.Warn("Failed to update alert status",
			zap.String("alert_id", id.String()),
			zap.String("from", string(alert.Status)),
			zap.String("to", string(next)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Alert status changed",
		zap.String("alert_id", id.String()),
		zap.String("from", string(alert.Status)),
		zap.String("to", string(next)))

	alert.Status = next
	alert.UpdatedAt = time.Now()
	s.invalidator.Invalidate(ctx, views.AdminPath, views.TracePath(alert.BatchNo))
	return alert, nil
}

func (s *alertService) RecordDisposal(ctx context.Context, alertID uuid.UUID, input DisposalInput) (*models.Disposal, error) {
	action := strings.TrimSpace(input.ActionTaken)
	if action == "" {
		return nil, fmt.Errorf("%w: action taken is required", apperrors.ErrInvalidInput)
	}

	alert, err := s.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if !alert.Status.IsOpen() {
		return nil, fmt.Errorf("%w: alert is %s", apperrors.ErrInvalidTransition, alert.Status)
	}

	disposal := &models.Disposal{
		AlertID:          alertID,
		ResponsibleParty: optionalString(input.ResponsibleParty),
		ActionTaken:      action,
		Result:           optionalString(input.Result),
		Handler:          optionalString(input.Handler),
	}
	if err := s.disposalRepo.CreateAndResolve(ctx, disposal); err != nil {
		s.logger.Error("Failed to record disposal",
			zap.String("alert_id", alertID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Alert resolved by disposal",
		zap.String("alert_id", alertID.String()),
		zap.String("disposal_id", disposal.ID.String()))

	s.invalidator.Invalidate(ctx, views.AdminPath, views.TracePath(alert.BatchNo))
	return disposal, nil
}

// optionalString maps blank form values to NULL.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
