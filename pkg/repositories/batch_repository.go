package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
)

// BatchRepository provides data access for batches.
type BatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	GetByBatchNo(ctx context.Context, batchNo string) (*models.Batch, error)
	List(ctx context.Context, filters models.BatchFilters) ([]*models.Batch, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// Delete removes the batch; inspections, feedbacks, logistics, alerts and
	// disposals go with it through ON DELETE CASCADE.
	Delete(ctx context.Context, id uuid.UUID) error
}

type batchRepository struct{}

func NewBatchRepository() BatchRepository {
	return &batchRepository{}
}

var _ BatchRepository = (*batchRepository)(nil)

const batchColumns = `id, batch_no, variety, location, sowing_date, status, owner_id, created_at, updated_at`

func (r *batchRepository) Create(ctx context.Context, batch *models.Batch) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO batches (batch_no, variety, location, sowing_date, status, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		batch.BatchNo, batch.Variety, batch.Location, batch.SowingDate, batch.Status, batch.OwnerID,
	).Scan(&batch.ID, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("batch number %s: %w", batch.BatchNo, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (r *batchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *batchRepository) GetByBatchNo(ctx context.Context, batchNo string) (*models.Batch, error) {
	return r.getOne(ctx, "batch_no = $1", batchNo)
}

func (r *batchRepository) getOne(ctx context.Context, where string, arg any) (*models.Batch, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE `+where, arg)
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

func (r *batchRepository) List(ctx context.Context, filters models.BatchFilters) ([]*models.Batch, int, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePageParams(filters.Limit, filters.Offset)

	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filters.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM batches WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count batches: %w", err)
	}

	dataQuery := fmt.Sprintf(`
		SELECT %s
		FROM batches
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, batchColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating batches: %w", err)
	}

	return batches, total, nil
}

func (r *batchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE batches SET status = $2, updated_at = now()
		WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *batchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanBatch(row pgx.Row) (*models.Batch, error) {
	b := &models.Batch{}
	err := row.Scan(
		&b.ID, &b.BatchNo, &b.Variety, &b.Location, &b.SowingDate,
		&b.Status, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
