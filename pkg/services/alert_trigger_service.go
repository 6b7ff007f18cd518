package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/repositories"
	"github.com/melontrace/melontrace-engine/pkg/views"
)

// User-facing check results.
const (
	msgBatchNotFound   = "批次不存在"
	msgAlertCheckError = "预警检测失败"
)

var tracer = otel.Tracer("github.com/melontrace/melontrace-engine/pkg/services")

// CheckResult is the outcome of one rule evaluation over a batch.
// Views lists the rendered pages whose data changed; it is empty on failure.
type CheckResult struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	AlertCount int      `json:"alertCount"`
	Views      []string `json:"-"`
}

// MarshalJSON omits alertCount from failed checks, which carry only a message.
func (r CheckResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		AlertCount *int   `json:"alertCount,omitempty"`
	}{Success: r.Success, Message: r.Message}
	if r.Success {
		out.AlertCount = &r.AlertCount
	}
	return json.Marshal(out)
}

// AlertTriggerService runs the alert rules over a batch and stores the alerts
// that are not already open.
type AlertTriggerService interface {
	// CheckAndCreateAlerts never returns an error: failures are logged and
	// reported through CheckResult so the triggering write still succeeds.
	CheckAndCreateAlerts(ctx context.Context, batchID uuid.UUID) *CheckResult
}

type alertTriggerDeps struct {
	alertRepo   repositories.AlertRepository
	triggerRepo repositories.AlertTriggerRepository
	rules       *models.AlertRules
	logger      *zap.Logger
	now         func() time.Time
}

type alertTriggerService struct {
	deps alertTriggerDeps
}

func NewAlertTriggerService(
	alertRepo repositories.AlertRepository,
	triggerRepo repositories.AlertTriggerRepository,
	rules *models.AlertRules,
	logger *zap.Logger,
) AlertTriggerService {
	if rules == nil {
		rules = models.DefaultAlertRules()
	}
	return &alertTriggerService{
		deps: alertTriggerDeps{
			alertRepo:   alertRepo,
			triggerRepo: triggerRepo,
			rules:       rules,
			logger:      logger.Named("alert-trigger"),
			now:         time.Now,
		},
	}
}

var _ AlertTriggerService = (*alertTriggerService)(nil)

func (s *alertTriggerService) CheckAndCreateAlerts(ctx context.Context, batchID uuid.UUID) *CheckResult {
	ctx, span := tracer.Start(ctx, "alerts.check")
	defer span.End()
	span.SetAttributes(attribute.String("batch.id", batchID.String()))

	result, err := s.check(ctx, batchID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "alert check failed")
		s.deps.logger.Error("Alert check failed",
			zap.String("batch_id", batchID.String()),
			zap.Error(err))
		return &CheckResult{Success: false, Message: msgAlertCheckError}
	}

	span.SetAttributes(attribute.Int("alerts.created", result.AlertCount))
	return result
}

func (s *alertTriggerService) check(ctx context.Context, batchID uuid.UUID) (*CheckResult, error) {
	rules := s.deps.rules

	agg, err := s.deps.triggerRepo.LoadBatchAggregate(ctx, batchID, rules)
	if err != nil {
		return nil, fmt.Errorf("load batch aggregate: %w", err)
	}
	if agg == nil || agg.Batch == nil {
		return &CheckResult{Success: false, Message: msgBatchNotFound}, nil
	}

	candidates, err := s.gatedCandidates(ctx, agg)
	if err != nil {
		return nil, err
	}

	created := 0
	if len(candidates) > 0 {
		inserted, err := s.deps.alertRepo.CreateAlerts(ctx, candidates)
		if err != nil {
			return nil, fmt.Errorf("create alerts: %w", err)
		}
		created = len(inserted)
		if skipped := len(candidates) - created; skipped > 0 {
			s.deps.logger.Info("Skipped alerts that became open concurrently",
				zap.String("batch_id", batchID.String()),
				zap.Int("skipped", skipped))
		}
		for _, a := range inserted {
			s.deps.logger.Info("Alert created",
				zap.String("batch_no", agg.Batch.BatchNo),
				zap.String("alert_type", string(a.AlertType)),
				zap.String("alert_level", a.AlertLevel),
				zap.String("alert_id", a.ID.String()))
		}
	}

	return &CheckResult{
		Success:    true,
		Message:    fmt.Sprintf("检测完成,生成%d条预警", created),
		AlertCount: created,
		Views:      []string{views.AdminPath, views.TracePath(agg.Batch.BatchNo)},
	}, nil
}

// gatedCandidates evaluates every enabled rule and drops candidates that
// already have an open alert of the same type on the batch.
func (s *alertTriggerService) gatedCandidates(ctx context.Context, agg *models.BatchAggregate) ([]*models.Alert, error) {
	rules := s.deps.rules
	if !rules.AlertsEnabled {
		return nil, nil
	}

	var out []*models.Alert

	if rules.IsRuleEnabled(models.AlertTypeInspectionFail) {
		if c := inspectionFailCandidate(agg.Batch, agg.Inspections); c != nil {
			keep, err := s.isNew(ctx, c, nil)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, c)
			}
		}
	}

	if rules.IsRuleEnabled(models.AlertTypeQualityComplaint) {
		if c := qualityComplaintCandidate(agg.Batch, agg.Feedbacks, rules); c != nil {
			keep, err := s.isNew(ctx, c, nil)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, c)
			}
		}
	}

	if rules.IsRuleEnabled(models.AlertTypeEnvAbnormal) {
		since := s.deps.now().Add(-rules.EnvDedupWindow)
		for _, c := range envAbnormalCandidates(agg.Batch, agg.Storage, rules) {
			keep, err := s.isNew(ctx, c, &since)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, c)
			}
		}
	}

	return out, nil
}

// isNew reports whether no open alert of the candidate's type exists for its
// batch (created at or after since, when given).
func (s *alertTriggerService) isNew(ctx context.Context, candidate *models.Alert, since *time.Time) (bool, error) {
	exists, err := s.deps.triggerRepo.HasOpenAlert(ctx, candidate.BatchID, candidate.AlertType, since)
	if err != nil {
		return false, fmt.Errorf("%s dedup check: %w", candidate.AlertType, err)
	}
	if exists {
		s.deps.logger.Debug("Open alert already exists, skipping",
			zap.String("batch_id", candidate.BatchID.String()),
			zap.String("alert_type", string(candidate.AlertType)))
		return false, nil
	}
	return true, nil
}
