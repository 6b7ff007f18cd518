package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/repositories"
	"github.com/melontrace/melontrace-engine/pkg/views"
)

// dashboardRecentAlerts is the number of alerts shown on the dashboard.
const dashboardRecentAlerts = 10

// FeedbackSummary aggregates consumer ratings for the trace page.
type FeedbackSummary struct {
	Count         int    `json:"count"`
	AverageRating string `json:"average_rating"`
}

// TraceView is the public trace page payload for one batch.
type TraceView struct {
	Batch       *models.Batch           `json:"batch"`
	Rejected    bool                    `json:"rejected"`
	Records     []*models.FarmingRecord `json:"records"`
	Inspections []*models.Inspection    `json:"inspections"`
	Logistics   []*models.Logistics     `json:"logistics"`
	Feedback    FeedbackSummary         `json:"feedback"`
}

// DashboardView is the admin landing page payload.
type DashboardView struct {
	Counts       *models.AlertStatusCounts `json:"counts"`
	RecentAlerts []*models.Alert           `json:"recent_alerts"`
	TotalAlerts  int                       `json:"total_alerts"`
}

// ViewService builds the rendered page payloads, serving them from the view
// cache when present.
type ViewService interface {
	Trace(ctx context.Context, batchNo string) (*TraceView, error)
	Dashboard(ctx context.Context) (*DashboardView, error)
}

type viewService struct {
	batchRepo      repositories.BatchRepository
	recordRepo     repositories.FarmingRecordRepository
	inspectionRepo repositories.InspectionRepository
	logisticsRepo  repositories.LogisticsRepository
	feedbackRepo   repositories.FeedbackRepository
	alertRepo      repositories.AlertRepository
	cache          views.Cache
	logger         *zap.Logger
}

func NewViewService(
	batchRepo repositories.BatchRepository,
	recordRepo repositories.FarmingRecordRepository,
	inspectionRepo repositories.InspectionRepository,
	logisticsRepo repositories.LogisticsRepository,
	feedbackRepo repositories.FeedbackRepository,
	alertRepo repositories.AlertRepository,
	cache views.Cache,
	logger *zap.Logger,
) ViewService {
	return &viewService{
		batchRepo:      batchRepo,
		recordRepo:     recordRepo,
		inspectionRepo: inspectionRepo,
		logisticsRepo:  logisticsRepo,
		feedbackRepo:   feedbackRepo,
		alertRepo:      alertRepo,
		cache:          cache,
		logger:         logger.Named("view-service"),
	}
}

var _ ViewService = (*viewService)(nil)

func (s *viewService) Trace(ctx context.Context, batchNo string) (*TraceView, error) {
	path := views.TracePath(batchNo)

	var cached TraceView
	if s.fromCache(ctx, path, &cached) {
		return &cached, nil
	}

	batch, err := s.batchRepo.GetByBatchNo(ctx, batchNo)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %s: %w", batchNo, apperrors.ErrNotFound)
	}

	records, err := s.recordRepo.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("list farming records: %w", err)
	}
	inspections, err := s.inspectionRepo.ListByBatch(ctx, batch.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	logistics, err := s.logisticsRepo.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("list logistics: %w", err)
	}
	avg, count, err := s.feedbackRepo.RatingSummary(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}

	view := &TraceView{
		Batch:       batch,
		Rejected:    batch.Status == models.BatchStatusRejected,
		Records:     records,
		Inspections: inspections,
		Logistics:   logistics,
		Feedback: FeedbackSummary{
			Count:         count,
			AverageRating: decimal.NewFromFloat(avg).StringFixed(1),
		},
	}

	s.toCache(ctx, path, view)
	return view, nil
}

func (s *viewService) Dashboard(ctx context.Context) (*DashboardView, error) {
	var cached DashboardView
	if s.fromCache(ctx, views.AdminPath, &cached) {
		return &cached, nil
	}

	counts, err := s.alertRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}
	recent, total, err := s.alertRepo.List(ctx, models.AlertFilters{Limit: dashboardRecentAlerts})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	view := &DashboardView{
		Counts:       counts,
		RecentAlerts: recent,
		TotalAlerts:  total,
	}

	s.toCache(ctx, views.AdminPath, view)
	return view, nil
}

// fromCache reports a hit. Cache errors are logged and treated as misses.
func (s *viewService) fromCache(ctx context.Context, path string, dst any) bool {
	hit, err := s.cache.Get(ctx, path, dst)
	if err != nil {
		s.logger.Warn("View cache read failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return hit
}

func (s *viewService) toCache(ctx context.Context, path string, value any) {
	if err := s.cache.Set(ctx, path, value); err != nil {
		s.logger.Warn("View cache write failed", zap.String("path", path), zap.Error(err))
	}
}
