package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
)

// InspectionRepository provides data access for inspections.
type InspectionRepository interface {
	Create(ctx context.Context, inspection *models.Inspection) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inspection, error)
	// ListByBatch returns inspections newest first. limit <= 0 returns all.
	ListByBatch(ctx context.Context, batchID uuid.UUID, limit int) ([]*models.Inspection, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type inspectionRepository struct{}

func NewInspectionRepository() InspectionRepository {
	return &inspectionRepository{}
}

var _ InspectionRepository = (*inspectionRepository)(nil)

const inspectionColumns = `id, batch_id, stage, result, inspector, report_data, created_at`

func (r *inspectionRepository) Create(ctx context.Context, inspection *models.Inspection) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO inspections (batch_id, stage, result, inspector, report_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		inspection.BatchID, inspection.Stage, inspection.Result, inspection.Inspector, inspection.ReportData,
	).Scan(&inspection.ID, &inspection.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create inspection: %w", err)
	}
	return nil
}

func (r *inspectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Inspection, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	inspection, err := scanInspection(q.QueryRow(ctx,
		`SELECT `+inspectionColumns+` FROM inspections WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return inspection, nil
}

func (r *inspectionRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, limit int) ([]*models.Inspection, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	// LIMIT NULL means no limit
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := q.Query(ctx, `
		SELECT `+inspectionColumns+`
		FROM inspections
		WHERE batch_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, batchID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	var inspections []*models.Inspection
	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, inspection)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inspections: %w", err)
	}
	return inspections, nil
}

func (r *inspectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `DELETE FROM inspections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inspection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanInspection(row pgx.Row) (*models.Inspection, error) {
	i := &models.Inspection{}
	err := row.Scan(&i.ID, &i.BatchID, &i.Stage, &i.Result, &i.Inspector, &i.ReportData, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return i, nil
}
