package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
)

// mockAlertRepo is an in-memory AlertRepository.
type mockAlertRepo struct {
	mu        sync.Mutex
	alerts    []*models.Alert
	createErr error
	listErr   error
	getErr    error
	updateErr error
	// skipOnCreate simulates rows dropped by ON CONFLICT DO NOTHING.
	skipOnCreate int
	createCalls  int
}

func (m *mockAlertRepo) CreateAlerts(_ context.Context, alerts []*models.Alert) ([]*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	var inserted []*models.Alert
	for i, a := range alerts {
		if i < m.skipOnCreate {
			continue
		}
		a.ID = uuid.New()
		a.Status = models.AlertStatusPending
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		m.alerts = append(m.alerts, a)
		inserted = append(inserted, a)
	}
	return inserted, nil
}

func (m *mockAlertRepo) CreateAlert(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	alert.ID = uuid.New()
	alert.CreatedAt = time.Now()
	alert.UpdatedAt = alert.CreatedAt
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockAlertRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, a := range m.alerts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAlertRepo) List(_ context.Context, filters models.AlertFilters) ([]*models.Alert, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []*models.Alert
	for _, a := range m.alerts {
		if filters.Status != "" && string(a.Status) != filters.Status {
			continue
		}
		if filters.AlertType != "" && string(a.AlertType) != filters.AlertType {
			continue
		}
		out = append(out, a)
	}
	total := len(out)
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, total, nil
}

func (m *mockAlertRepo) ListByBatch(_ context.Context, batchID uuid.UUID) ([]*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Alert
	for _, a := range m.alerts {
		if a.BatchID == batchID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAlertRepo) CountByStatus(_ context.Context) (*models.AlertStatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	counts := &models.AlertStatusCounts{}
	for _, a := range m.alerts {
		switch a.Status {
		case models.AlertStatusPending:
			counts.Pending++
		case models.AlertStatusProcessing:
			counts.Processing++
		case models.AlertStatusResolved:
			counts.Resolved++
		case models.AlertStatusClosed:
			counts.Closed++
		}
	}
	return counts, nil
}

func (m *mockAlertRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.AlertStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, a := range m.alerts {
		if a.ID == id {
			if a.Status != from {
				return apperrors.ErrConflict
			}
			a.Status = to
			return nil
		}
	}
	return apperrors.ErrConflict
}

// openAlert is an existing alert the trigger repo reports as open.
type openAlert struct {
	alertType models.AlertType
	createdAt time.Time
}

// mockAlertTriggerRepo serves a fixed aggregate and a set of open alerts.
type mockAlertTriggerRepo struct {
	aggregate  *models.BatchAggregate
	open       []openAlert
	loadErr    error
	hasOpenErr error

	loadCalls    int
	hasOpenCalls []models.AlertType
	sinceArgs    map[models.AlertType]*time.Time
}

func (m *mockAlertTriggerRepo) LoadBatchAggregate(_ context.Context, batchID uuid.UUID, _ *models.AlertRules) (*models.BatchAggregate, error) {
	m.loadCalls++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.aggregate == nil || m.aggregate.Batch == nil || m.aggregate.Batch.ID != batchID {
		return nil, nil
	}
	return m.aggregate, nil
}

func (m *mockAlertTriggerRepo) HasOpenAlert(_ context.Context, _ uuid.UUID, alertType models.AlertType, since *time.Time) (bool, error) {
	m.hasOpenCalls = append(m.hasOpenCalls, alertType)
	if m.sinceArgs == nil {
		m.sinceArgs = make(map[models.AlertType]*time.Time)
	}
	m.sinceArgs[alertType] = since
	if m.hasOpenErr != nil {
		return false, m.hasOpenErr
	}
	for _, o := range m.open {
		if o.alertType != alertType {
			continue
		}
		if since == nil || !o.createdAt.Before(*since) {
			return true, nil
		}
	}
	return false, nil
}

// mockBatchRepo is an in-memory BatchRepository.
type mockBatchRepo struct {
	batches   map[uuid.UUID]*models.Batch
	createErr error
	getErr    error
	// conflicts is the number of Create calls that fail with ErrConflict first.
	conflicts   int
	createdNos  []string
	deleted     []uuid.UUID
	statusCalls map[uuid.UUID]string
}

func newMockBatchRepo(batches ...*models.Batch) *mockBatchRepo {
	m := &mockBatchRepo{
		batches:     make(map[uuid.UUID]*models.Batch),
		statusCalls: make(map[uuid.UUID]string),
	}
	for _, b := range batches {
		m.batches[b.ID] = b
	}
	return m
}

func (m *mockBatchRepo) Create(_ context.Context, batch *models.Batch) error {
	m.createdNos = append(m.createdNos, batch.BatchNo)
	if m.conflicts > 0 {
		m.conflicts--
		return apperrors.ErrConflict
	}
	if m.createErr != nil {
		return m.createErr
	}
	batch.ID = uuid.New()
	batch.CreatedAt = time.Now()
	batch.UpdatedAt = batch.CreatedAt
	m.batches[batch.ID] = batch
	return nil
}

func (m *mockBatchRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Batch, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBatchRepo) GetByBatchNo(_ context.Context, batchNo string) (*models.Batch, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, b := range m.batches {
		if b.BatchNo == batchNo {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockBatchRepo) List(_ context.Context, filters models.BatchFilters) ([]*models.Batch, int, error) {
	var out []*models.Batch
	for _, b := range m.batches {
		if filters.Status == "" || b.Status == filters.Status {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func (m *mockBatchRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	b, ok := m.batches[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	b.Status = status
	m.statusCalls[id] = status
	return nil
}

func (m *mockBatchRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.batches[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.batches, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// mockDisposalRepo records disposals and resolves the alert in the shared alert repo.
type mockDisposalRepo struct {
	alerts    *mockAlertRepo
	disposals []*models.Disposal
	err       error
}

func (m *mockDisposalRepo) CreateAndResolve(_ context.Context, disposal *models.Disposal) error {
	if m.err != nil {
		return m.err
	}
	m.alerts.mu.Lock()
	defer m.alerts.mu.Unlock()
	for _, a := range m.alerts.alerts {
		if a.ID != disposal.AlertID {
			continue
		}
		if !a.Status.IsOpen() {
			return apperrors.ErrInvalidTransition
		}
		disposal.ID = uuid.New()
		disposal.HandledAt = time.Now()
		disposal.CreatedAt = disposal.HandledAt
		a.Status = models.AlertStatusResolved
		m.disposals = append(m.disposals, disposal)
		return nil
	}
	return apperrors.ErrNotFound
}

func (m *mockDisposalRepo) ListByAlert(_ context.Context, alertID uuid.UUID) ([]*models.Disposal, error) {
	var out []*models.Disposal
	for _, d := range m.disposals {
		if d.AlertID == alertID {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockInspectionRepo struct {
	inspections []*models.Inspection
	createErr   error
}

func (m *mockInspectionRepo) Create(_ context.Context, inspection *models.Inspection) error {
	if m.createErr != nil {
		return m.createErr
	}
	inspection.ID = uuid.New()
	inspection.CreatedAt = time.Now()
	m.inspections = append(m.inspections, inspection)
	return nil
}

func (m *mockInspectionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Inspection, error) {
	for _, i := range m.inspections {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, nil
}

func (m *mockInspectionRepo) ListByBatch(_ context.Context, batchID uuid.UUID, _ int) ([]*models.Inspection, error) {
	var out []*models.Inspection
	for _, i := range m.inspections {
		if i.BatchID == batchID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *mockInspectionRepo) Delete(_ context.Context, id uuid.UUID) error {
	for idx, i := range m.inspections {
		if i.ID == id {
			m.inspections = append(m.inspections[:idx], m.inspections[idx+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type mockFeedbackRepo struct {
	feedbacks []*models.Feedback
	createErr error
	avg       float64
	count     int
}

func (m *mockFeedbackRepo) Create(_ context.Context, feedback *models.Feedback) error {
	if m.createErr != nil {
		return m.createErr
	}
	feedback.ID = uuid.New()
	feedback.CreatedAt = time.Now()
	m.feedbacks = append(m.feedbacks, feedback)
	return nil
}

func (m *mockFeedbackRepo) ListByBatch(_ context.Context, batchID uuid.UUID, _ int) ([]*models.Feedback, error) {
	var out []*models.Feedback
	for _, f := range m.feedbacks {
		if f.BatchID == batchID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFeedbackRepo) RatingSummary(context.Context, uuid.UUID) (float64, int, error) {
	return m.avg, m.count, nil
}

type mockLogisticsRepo struct {
	records   []*models.Logistics
	createErr error
}

func (m *mockLogisticsRepo) Create(_ context.Context, record *models.Logistics) error {
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = uuid.New()
	record.RecordedAt = time.Now()
	m.records = append(m.records, record)
	return nil
}

func (m *mockLogisticsRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Logistics, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockLogisticsRepo) ListByBatch(_ context.Context, batchID uuid.UUID) ([]*models.Logistics, error) {
	var out []*models.Logistics
	for _, r := range m.records {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockLogisticsRepo) ListRecentByStage(_ context.Context, batchID uuid.UUID, stage string, limit int) ([]*models.Logistics, error) {
	var out []*models.Logistics
	for _, r := range m.records {
		if r.BatchID == batchID && r.Stage == stage {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockLogisticsRepo) Delete(_ context.Context, id uuid.UUID) error {
	for idx, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:idx], m.records[idx+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// mockFarmingRecordRepo keeps records in insertion order; listing returns newest first.
type mockFarmingRecordRepo struct {
	records   []*models.FarmingRecord
	createErr error
}

func (m *mockFarmingRecordRepo) Create(_ context.Context, record *models.FarmingRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = uuid.New()
	record.RecordedAt = time.Now()
	record.ActionLabel = models.FarmingActionLabel(record.ActionType)
	m.records = append(m.records, record)
	return nil
}

func (m *mockFarmingRecordRepo) ListByBatch(_ context.Context, batchID uuid.UUID) ([]*models.FarmingRecord, error) {
	var out []*models.FarmingRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].BatchID == batchID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

// mockInvalidator records invalidated paths.
type mockInvalidator struct {
	paths []string
}

func (m *mockInvalidator) Invalidate(_ context.Context, paths ...string) {
	m.paths = append(m.paths, paths...)
}

// mockAlertChecker returns a fixed result and records checked batches.
type mockAlertChecker struct {
	result  *CheckResult
	checked []uuid.UUID
}

func (m *mockAlertChecker) CheckBatch(_ context.Context, batchID uuid.UUID) *CheckResult {
	m.checked = append(m.checked, batchID)
	if m.result != nil {
		return m.result
	}
	return &CheckResult{Success: true, Message: "检测完成,生成0条预警"}
}

// mockTrigger returns a fixed CheckResult.
type mockTrigger struct {
	result *CheckResult
}

func (m *mockTrigger) CheckAndCreateAlerts(context.Context, uuid.UUID) *CheckResult {
	return m.result
}

// mockViewCache is an in-memory views.Cache storing values by path.
type mockViewCache struct {
	mockInvalidator
	entries map[string]any
	getErr  error
	gets    int
}

func (m *mockViewCache) Get(_ context.Context, path string, dst any) (bool, error) {
	m.gets++
	if m.getErr != nil {
		return false, m.getErr
	}
	v, ok := m.entries[path]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *TraceView:
		*d = *(v.(*TraceView))
	case *DashboardView:
		*d = *(v.(*DashboardView))
	}
	return true, nil
}

func (m *mockViewCache) Set(_ context.Context, path string, value any) error {
	if m.entries == nil {
		m.entries = make(map[string]any)
	}
	m.entries[path] = value
	return nil
}
