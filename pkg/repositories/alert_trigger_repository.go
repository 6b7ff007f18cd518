package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/melontrace/melontrace-engine/pkg/models"
)

// AlertTriggerRepository provides the queries the alert rule engine uses to
// load a batch and to deduplicate candidate alerts.
type AlertTriggerRepository interface {
	// LoadBatchAggregate returns the batch with its most recent inspections,
	// feedbacks and storage records, each newest first. Returns nil if the
	// batch does not exist.
	LoadBatchAggregate(ctx context.Context, batchID uuid.UUID, rules *models.AlertRules) (*models.BatchAggregate, error)

	// HasOpenAlert checks whether a pending or processing alert of the given
	// type exists for the batch. A non-nil since restricts the check to alerts
	// created at or after it.
	HasOpenAlert(ctx context.Context, batchID uuid.UUID, alertType models.AlertType, since *time.Time) (bool, error)
}

type alertTriggerRepository struct {
	batches     BatchRepository
	inspections InspectionRepository
	feedbacks   FeedbackRepository
	logistics   LogisticsRepository
}

func NewAlertTriggerRepository(
	batches BatchRepository,
	inspections InspectionRepository,
	feedbacks FeedbackRepository,
	logistics LogisticsRepository,
) AlertTriggerRepository {
	return &alertTriggerRepository{
		batches:     batches,
		inspections: inspections,
		feedbacks:   feedbacks,
		logistics:   logistics,
	}
}

var _ AlertTriggerRepository = (*alertTriggerRepository)(nil)

func (r *alertTriggerRepository) LoadBatchAggregate(ctx context.Context, batchID uuid.UUID, rules *models.AlertRules) (*models.BatchAggregate, error) {
	batch, err := r.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, nil
	}

	inspections, err := r.inspections.ListByBatch(ctx, batchID, rules.InspectionLimit)
	if err != nil {
		return nil, err
	}
	feedbacks, err := r.feedbacks.ListByBatch(ctx, batchID, rules.FeedbackLimit)
	if err != nil {
		return nil, err
	}
	storage, err := r.logistics.ListRecentByStage(ctx, batchID, models.LogisticsStageStorage, rules.StorageLimit)
	if err != nil {
		return nil, err
	}

	return &models.BatchAggregate{
		Batch:       batch,
		Inspections: inspections,
		Feedbacks:   feedbacks,
		Storage:     storage,
	}, nil
}

func (r *alertTriggerRepository) HasOpenAlert(ctx context.Context, batchID uuid.UUID, alertType models.AlertType, since *time.Time) (bool, error) {
	q, err := querier(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM alerts
			WHERE batch_id = $1
			  AND alert_type = $2
			  AND status IN ('pending', 'processing')
			  AND ($3::timestamptz IS NULL OR created_at >= $3)
		)`,
		batchID, alertType, since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing alert: %w", err)
	}
	return exists, nil
}
