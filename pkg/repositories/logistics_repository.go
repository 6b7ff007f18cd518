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

// LogisticsRepository provides data access for supply-chain records.
type LogisticsRepository interface {
	Create(ctx context.Context, record *models.Logistics) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Logistics, error)
	// ListByBatch returns every record for the batch, oldest first (the trace timeline).
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Logistics, error)
	// ListRecentByStage returns up to limit records of one stage, newest first.
	ListRecentByStage(ctx context.Context, batchID uuid.UUID, stage string, limit int) ([]*models.Logistics, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type logisticsRepository struct{}

func NewLogisticsRepository() LogisticsRepository {
	return &logisticsRepository{}
}

var _ LogisticsRepository = (*logisticsRepository)(nil)

const logisticsColumns = `id, batch_id, stage, operator, location, temperature::float8, humidity::float8,
	vehicle_info, route_info, notes, recorded_at`

func (r *logisticsRepository) Create(ctx context.Context, record *models.Logistics) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO logistics (batch_id, stage, operator, location, temperature, humidity,
		                       vehicle_info, route_info, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, recorded_at`,
		record.BatchID, record.Stage, record.Operator, record.Location,
		record.Temperature, record.Humidity, record.VehicleInfo, record.RouteInfo, record.Notes,
	).Scan(&record.ID, &record.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to create logistics record: %w", err)
	}
	return nil
}

func (r *logisticsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Logistics, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	record, err := scanLogistics(q.QueryRow(ctx,
		`SELECT `+logisticsColumns+` FROM logistics WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get logistics record: %w", err)
	}
	return record, nil
}

func (r *logisticsRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Logistics, error) {
	return r.list(ctx, `
		SELECT `+logisticsColumns+`
		FROM logistics
		WHERE batch_id = $1
		ORDER BY recorded_at ASC`, batchID)
}

func (r *logisticsRepository) ListRecentByStage(ctx context.Context, batchID uuid.UUID, stage string, limit int) ([]*models.Logistics, error) {
	return r.list(ctx, `
		SELECT `+logisticsColumns+`
		FROM logistics
		WHERE batch_id = $1 AND stage = $2
		ORDER BY recorded_at DESC
		LIMIT $3`, batchID, stage, limit)
}

func (r *logisticsRepository) list(ctx context.Context, query string, args ...any) ([]*models.Logistics, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list logistics records: %w", err)
	}
	defer rows.Close()

	var records []*models.Logistics
	for rows.Next() {
		record, err := scanLogistics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan logistics record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logistics records: %w", err)
	}
	return records, nil
}

func (r *logisticsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `DELETE FROM logistics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete logistics record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanLogistics(row pgx.Row) (*models.Logistics, error) {
	l := &models.Logistics{}
	err := row.Scan(
		&l.ID, &l.BatchID, &l.Stage, &l.Operator, &l.Location, &l.Temperature, &l.Humidity,
		&l.VehicleInfo, &l.RouteInfo, &l.Notes, &l.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}
