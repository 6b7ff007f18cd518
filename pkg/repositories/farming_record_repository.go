package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/melontrace/melontrace-engine/pkg/models"
)

// FarmingRecordRepository provides data access for field operation records.
type FarmingRecordRepository interface {
	Create(ctx context.Context, record *models.FarmingRecord) error
	// ListByBatch returns the batch's records, newest first.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.FarmingRecord, error)
}

type farmingRecordRepository struct{}

func NewFarmingRecordRepository() FarmingRecordRepository {
	return &farmingRecordRepository{}
}

var _ FarmingRecordRepository = (*farmingRecordRepository)(nil)

func (r *farmingRecordRepository) Create(ctx context.Context, record *models.FarmingRecord) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO farming_records (batch_id, action_type, description, operator)
		VALUES ($1, $2, $3, $4)
		RETURNING id, recorded_at`,
		record.BatchID, record.ActionType, record.Description, record.Operator,
	).Scan(&record.ID, &record.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to create farming record: %w", err)
	}
	record.ActionLabel = models.FarmingActionLabel(record.ActionType)
	return nil
}

func (r *farmingRecordRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.FarmingRecord, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, batch_id, action_type, description, operator, recorded_at
		FROM farming_records
		WHERE batch_id = $1
		ORDER BY recorded_at DESC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list farming records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.FarmingRecord, error) {
		rec := &models.FarmingRecord{}
		if err := row.Scan(&rec.ID, &rec.BatchID, &rec.ActionType, &rec.Description, &rec.Operator, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.ActionLabel = models.FarmingActionLabel(rec.ActionType)
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan farming records: %w", err)
	}
	return records, nil
}
