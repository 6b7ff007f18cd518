package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
)

// AlertRepository provides data access for batch alerts.
type AlertRepository interface {
	// CreateAlerts inserts rule-generated alerts in one statement. Rows that
	// collide with an existing open alert (uq_alerts_open_rule_alert) are
	// skipped. Returns the alerts actually inserted, with ID and timestamps set.
	CreateAlerts(ctx context.Context, alerts []*models.Alert) ([]*models.Alert, error)
	// CreateAlert inserts a single alert without deduplication.
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	// List returns alerts newest first with batch number/variety and the latest disposal.
	List(ctx context.Context, filters models.AlertFilters) ([]*models.Alert, int, error)
	// ListByBatch returns every alert of a batch newest first, each with its disposals.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Alert, error)
	CountByStatus(ctx context.Context) (*models.AlertStatusCounts, error)
	// UpdateStatus moves an alert from one status to another. Returns
	// apperrors.ErrConflict if the alert is no longer in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.AlertStatus) error
}

type alertRepository struct{}

func NewAlertRepository() AlertRepository {
	return &alertRepository{}
}

var _ AlertRepository = (*alertRepository)(nil)

const alertInsertColumns = 10

const alertSelect = `
	SELECT a.id, a.batch_id, a.alert_type, a.alert_level, a.title, a.description,
	       a.triggered_by, a.trigger_data, a.status, a.assigned_to, a.created_at, a.updated_at,
	       b.batch_no, b.variety`

func (r *alertRepository) CreateAlerts(ctx context.Context, alerts []*models.Alert) ([]*models.Alert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}

	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.Alert, len(alerts))
	values := make([]string, 0, len(alerts))
	args := make([]any, 0, len(alerts)*alertInsertColumns)

	for i, alert := range alerts {
		if alert.ID == uuid.Nil {
			alert.ID = uuid.New()
		}
		if alert.Status == "" {
			alert.Status = models.AlertStatusPending
		}
		triggerData, err := models.EncodeTriggerData(alert.TriggerData)
		if err != nil {
			return nil, err
		}
		byID[alert.ID] = alert

		base := i * alertInsertColumns
		placeholders := make([]string, alertInsertColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		values = append(values, "("+strings.Join(placeholders, ", ")+")")
		args = append(args,
			alert.ID, alert.BatchID, alert.AlertType, alert.AlertLevel, alert.Title, alert.Description,
			alert.TriggeredBy, triggerData, alert.Status, alert.AssignedTo,
		)
	}

	rows, err := q.Query(ctx, `
		INSERT INTO alerts (id, batch_id, alert_type, alert_level, title, description,
		                    triggered_by, trigger_data, status, assigned_to)
		VALUES `+strings.Join(values, ", ")+`
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create alerts: %w", err)
	}
	defer rows.Close()

	var inserted []*models.Alert
	for rows.Next() {
		var id uuid.UUID
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inserted alert: %w", err)
		}
		alert := byID[id]
		alert.CreatedAt, alert.UpdatedAt = createdAt, updatedAt
		inserted = append(inserted, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to create alerts: %w", err)
	}
	return inserted, nil
}

func (r *alertRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	triggerData, err := models.EncodeTriggerData(alert.TriggerData)
	if err != nil {
		return err
	}
	if alert.Status == "" {
		alert.Status = models.AlertStatusPending
	}

	err = q.QueryRow(ctx, `
		INSERT INTO alerts (batch_id, alert_type, alert_level, title, description,
		                    triggered_by, trigger_data, status, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		alert.BatchID, alert.AlertType, alert.AlertLevel, alert.Title, alert.Description,
		alert.TriggeredBy, triggerData, alert.Status, alert.AssignedTo,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("open %s alert already exists: %w", alert.AlertType, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *alertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	alert, err := scanAlert(q.QueryRow(ctx, alertSelect+`
		FROM alerts a
		JOIN batches b ON b.id = a.batch_id
		WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	disposals, err := listDisposals(ctx, q, []uuid.UUID{alert.ID})
	if err != nil {
		return nil, err
	}
	alert.Disposals = disposals[alert.ID]
	if len(alert.Disposals) > 0 {
		alert.LatestDisposal = alert.Disposals[0]
	}
	return alert, nil
}

func (r *alertRepository) List(ctx context.Context, filters models.AlertFilters) ([]*models.Alert, int, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePageParams(filters.Limit, filters.Offset)

	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argIdx))
		args = append(args, filters.Status)
		argIdx++
	}
	if filters.AlertType != "" {
		conditions = append(conditions, fmt.Sprintf("a.alert_type = $%d", argIdx))
		args = append(args, filters.AlertType)
		argIdx++
	}
	if filters.BatchID != nil {
		conditions = append(conditions, fmt.Sprintf("a.batch_id = $%d", argIdx))
		args = append(args, *filters.BatchID)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM alerts a WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	dataQuery := fmt.Sprintf(alertSelect+`,
		       d.id, d.responsible_party, d.action_taken, d.result, d.handler, d.handled_at, d.created_at
		FROM alerts a
		JOIN batches b ON b.id = a.batch_id
		LEFT JOIN LATERAL (
			SELECT id, responsible_party, action_taken, result, handler, handled_at, created_at
			FROM disposals
			WHERE alert_id = a.id
			ORDER BY created_at DESC
			LIMIT 1
		) d ON TRUE
		WHERE %s
		ORDER BY a.created_at DESC
		LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlertWithLatestDisposal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, total, nil
}

func (r *alertRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Alert, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, alertSelect+`
		FROM alerts a
		JOIN batches b ON b.id = a.batch_id
		WHERE a.batch_id = $1
		ORDER BY a.created_at DESC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	var ids []uuid.UUID
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
		ids = append(ids, alert.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return alerts, nil
	}

	disposals, err := listDisposals(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, alert := range alerts {
		alert.Disposals = disposals[alert.ID]
		if len(alert.Disposals) > 0 {
			alert.LatestDisposal = alert.Disposals[0]
		}
	}
	return alerts, nil
}

func (r *alertRepository) CountByStatus(ctx context.Context) (*models.AlertStatusCounts, error) {
	q, err := querier(ctx)
	if err != nil {
		return nil, err
	}

	counts := &models.AlertStatusCounts{}
	err = q.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'resolved'),
			COUNT(*) FILTER (WHERE status = 'closed')
		FROM alerts`,
	).Scan(&counts.Pending, &counts.Processing, &counts.Resolved, &counts.Closed)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts by status: %w", err)
	}
	return counts, nil
}

func (r *alertRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.AlertStatus) error {
	q, err := querier(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE alerts SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s is no longer %s: %w", id, from, apperrors.ErrConflict)
	}
	return nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	a := &models.Alert{}
	var triggerData []byte
	err := row.Scan(
		&a.ID, &a.BatchID, &a.AlertType, &a.AlertLevel, &a.Title, &a.Description,
		&a.TriggeredBy, &triggerData, &a.Status, &a.AssignedTo, &a.CreatedAt, &a.UpdatedAt,
		&a.BatchNo, &a.BatchVariety,
	)
	if err != nil {
		return nil, err
	}
	if a.TriggerData, err = models.DecodeTriggerData(a.AlertType, triggerData); err != nil {
		return nil, err
	}
	return a, nil
}

func scanAlertWithLatestDisposal(row pgx.Row) (*models.Alert, error) {
	a := &models.Alert{}
	var triggerData []byte
	var (
		dID               *uuid.UUID
		dResponsibleParty *string
		dActionTaken      *string
		dResult           *string
		dHandler          *string
		dHandledAt        *time.Time
		dCreatedAt        *time.Time
	)
	err := row.Scan(
		&a.ID, &a.BatchID, &a.AlertType, &a.AlertLevel, &a.Title, &a.Description,
		&a.TriggeredBy, &triggerData, &a.Status, &a.AssignedTo, &a.CreatedAt, &a.UpdatedAt,
		&a.BatchNo, &a.BatchVariety,
		&dID, &dResponsibleParty, &dActionTaken, &dResult, &dHandler, &dHandledAt, &dCreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.TriggerData, err = models.DecodeTriggerData(a.AlertType, triggerData); err != nil {
		return nil, err
	}
	if dID != nil {
		a.LatestDisposal = &models.Disposal{
			ID:               *dID,
			AlertID:          a.ID,
			ResponsibleParty: dResponsibleParty,
			ActionTaken:      derefString(dActionTaken),
			Result:           dResult,
			Handler:          dHandler,
			HandledAt:        derefTime(dHandledAt),
			CreatedAt:        derefTime(dCreatedAt),
		}
	}
	return a, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
