package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/database"
	"github.com/melontrace/melontrace-engine/pkg/models"
)

// DisposalRepository provides data access for alert disposals.
type DisposalRepository interface {
	// CreateAndResolve records a disposal and marks its alert resolved in one
	// transaction. The alert must be pending or processing; otherwise
	// apperrors.ErrInvalidTransition is returned and nothing is written.
	CreateAndResolve(ctx context.Context, disposal *models.Disposal) error
	ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*models.Disposal, error)
}

type disposalRepository struct{}

func NewDisposalRepository() DisposalRepository {
	return &disposalRepository{}
}

var _ DisposalRepository = (*disposalRepository)(nil)

func (r *disposalRepository) CreateAndResolve(ctx context.Context, disposal *models.Disposal) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	return scope.InTx(ctx, func(ctx context.Context) error {
		q := scope.Q()

		var status models.AlertStatus
		err := q.QueryRow(ctx, `SELECT status FROM alerts WHERE id = $1 FOR UPDATE`, disposal.AlertID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to lock alert: %w", err)
		}
		if !status.IsOpen() {
			return fmt.Errorf("alert is %s: %w", status, apperrors.ErrInvalidTransition)
		}

		err = q.QueryRow(ctx, `
			INSERT INTO disposals (alert_id, responsible_party, action_taken, result, handler, handled_at)
			VALUES ($1, $2, $3, $4, $5, now())
			RETURNING id, handled_at, created_at`,
			disposal.AlertID, disposal.ResponsibleParty, disposal.ActionTaken, disposal.Result, disposal.Handler,
		).Scan(&disposal.ID, &disposal.HandledAt, &disposal.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create disposal: %w", err)
		}

		_, err = q.Exec(ctx, `
			UPDATE alerts SET status = $2, updated_at = now()
			WHERE id = $1`, disposal.AlertID, models.AlertStatusResolved)
		if err != nil {
			return fmt.Errorf("failed to resolve alert: %w", err)
		}
		return nil
	})
}

func (r *disposalRepository) ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*models.Disposal, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	byAlert, err := listDisposals(ctx, q, []uuid.UUID{alertID})
	if err != nil {
		return nil, err
	}
	return byAlert[alertID], nil
}

// listDisposals loads the disposals of the given alerts, newest first, grouped by alert.
func listDisposals(ctx context.Context, q database.Querier, alertIDs []uuid.UUID) (map[uuid.UUID][]*models.Disposal, error) {
	rows, err := q.Query(ctx, `
		SELECT id, alert_id, responsible_party, action_taken, result, handler, handled_at, created_at
		FROM disposals
		WHERE alert_id = ANY($1)
		ORDER BY created_at DESC`, alertIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list disposals: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]*models.Disposal)
	for rows.Next() {
		d := &models.Disposal{}
		if err := rows.Scan(&d.ID, &d.AlertID, &d.ResponsibleParty, &d.ActionTaken, &d.Result,
			&d.Handler, &d.HandledAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan disposal: %w", err)
		}
		out[d.AlertID] = append(out[d.AlertID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating disposals: %w", err)
	}
	return out, nil
}
