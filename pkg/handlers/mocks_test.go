package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/services"
)

// passthroughScope stands in for the database scope middleware.
func passthroughScope(next http.HandlerFunc) http.HandlerFunc { return next }

func makeRequest(method, path string, body []byte) *http.Request {
	if body != nil {
		return httptest.NewRequest(method, path, bytes.NewReader(body))
	}
	return httptest.NewRequest(method, path, nil)
}

func withClaims(req *http.Request, userID, role, name string) *http.Request {
	claims := &auth.Claims{Role: role, Name: name}
	claims.Subject = userID
	return req.WithContext(auth.WithClaims(req.Context(), claims, "test-token"))
}

type mockBatchService struct {
	batches   map[uuid.UUID]*models.Batch
	created   []services.BatchInput
	createErr error
	listErr   error
	deleted   []uuid.UUID
}

func newMockBatchService(batches ...*models.Batch) *mockBatchService {
	m := &mockBatchService{batches: make(map[uuid.UUID]*models.Batch)}
	for _, b := range batches {
		m.batches[b.ID] = b
	}
	return m
}

func (m *mockBatchService) Create(_ context.Context, input services.BatchInput) (*models.Batch, error) {
	m.created = append(m.created, input)
	if m.createErr != nil {
		return nil, m.createErr
	}
	b := &models.Batch{
		ID:         uuid.New(),
		BatchNo:    "KL-0001",
		Variety:    input.Variety,
		Location:   input.Location,
		SowingDate: input.SowingDate,
		Status:     models.BatchStatusGrowing,
	}
	m.batches[b.ID] = b
	return b, nil
}

func (m *mockBatchService) GetByID(_ context.Context, id uuid.UUID) (*models.Batch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return b, nil
}

func (m *mockBatchService) GetByBatchNo(_ context.Context, batchNo string) (*models.Batch, error) {
	for _, b := range m.batches {
		if b.BatchNo == batchNo {
			return b, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockBatchService) List(_ context.Context, filters models.BatchFilters) ([]*models.Batch, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []*models.Batch
	for _, b := range m.batches {
		if filters.Status == "" || b.Status == filters.Status {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func (m *mockBatchService) Approve(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	return m.setStatus(id, models.BatchStatusApproved)
}

func (m *mockBatchService) Reject(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	return m.setStatus(id, models.BatchStatusRejected)
}

func (m *mockBatchService) setStatus(id uuid.UUID, status string) (*models.Batch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	b.Status = status
	return b, nil
}

func (m *mockBatchService) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.batches[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.batches, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockInspectionService struct {
	inputs    []services.InspectionInput
	createErr error
	check     *services.CheckResult
}

func (m *mockInspectionService) Create(_ context.Context, batchID uuid.UUID, input services.InspectionInput) (*services.InspectionResult, error) {
	m.inputs = append(m.inputs, input)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &services.InspectionResult{
		Inspection: &models.Inspection{
			ID:        uuid.New(),
			BatchID:   batchID,
			Stage:     input.Stage,
			Result:    input.Result,
			Inspector: input.Inspector,
			CreatedAt: time.Now(),
		},
		AlertCheck: m.check,
	}, nil
}

func (m *mockInspectionService) ListByBatch(context.Context, uuid.UUID) ([]*models.Inspection, error) {
	return nil, nil
}

func (m *mockInspectionService) Delete(context.Context, uuid.UUID) error {
	return apperrors.ErrNotFound
}

type mockLogisticsService struct {
	inputs []services.LogisticsInput
}

func (m *mockLogisticsService) Create(_ context.Context, batchID uuid.UUID, input services.LogisticsInput) (*models.Logistics, error) {
	m.inputs = append(m.inputs, input)
	return &models.Logistics{
		ID:          uuid.New(),
		BatchID:     batchID,
		Stage:       input.Stage,
		Temperature: input.Temperature,
		Humidity:    input.Humidity,
	}, nil
}

func (m *mockLogisticsService) ListByBatch(context.Context, uuid.UUID) ([]*models.Logistics, error) {
	return nil, nil
}

func (m *mockLogisticsService) Delete(context.Context, uuid.UUID) error {
	return nil
}

type mockFarmingRecordService struct {
	inputs    []services.FarmingRecordInput
	records   []*models.FarmingRecord
	createErr error
}

func (m *mockFarmingRecordService) Create(_ context.Context, batchID uuid.UUID, input services.FarmingRecordInput) (*models.FarmingRecord, error) {
	m.inputs = append(m.inputs, input)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.FarmingRecord{
		ID:          uuid.New(),
		BatchID:     batchID,
		ActionType:  input.ActionType,
		ActionLabel: models.FarmingActionLabel(input.ActionType),
		Description: input.Description,
		Operator:    input.Operator,
		RecordedAt:  time.Now(),
	}, nil
}

func (m *mockFarmingRecordService) ListByBatch(context.Context, uuid.UUID) ([]*models.FarmingRecord, error) {
	return m.records, nil
}

type mockFeedbackService struct {
	inputs    []services.FeedbackInput
	submitErr error
}

func (m *mockFeedbackService) Submit(_ context.Context, batchID uuid.UUID, input services.FeedbackInput) (*models.Feedback, error) {
	m.inputs = append(m.inputs, input)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.Feedback{ID: uuid.New(), BatchID: batchID, Rating: input.Rating, Content: input.Content}, nil
}

type mockAlertService struct {
	alerts      []*models.Alert
	checkResult *services.CheckResult
	listFilters []models.AlertFilters
	manual      []services.ManualAlertInput
	disposals   []services.DisposalInput
	statusErr   error
	disposalErr error
}

func (m *mockAlertService) CheckBatch(context.Context, uuid.UUID) *services.CheckResult {
	return m.checkResult
}

func (m *mockAlertService) List(_ context.Context, filters models.AlertFilters) ([]*models.Alert, int, error) {
	m.listFilters = append(m.listFilters, filters)
	return m.alerts, len(m.alerts), nil
}

func (m *mockAlertService) ListByBatch(_ context.Context, batchID uuid.UUID) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range m.alerts {
		if a.BatchID == batchID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAlertService) GetByID(_ context.Context, id uuid.UUID) (*models.Alert, error) {
	for _, a := range m.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAlertService) CountByStatus(context.Context) (*models.AlertStatusCounts, error) {
	return &models.AlertStatusCounts{}, nil
}

func (m *mockAlertService) CreateManual(_ context.Context, input services.ManualAlertInput) (*models.Alert, error) {
	m.manual = append(m.manual, input)
	return &models.Alert{
		ID:          uuid.New(),
		BatchID:     input.BatchID,
		AlertType:   input.AlertType,
		Title:       input.Title,
		TriggeredBy: models.TriggeredByManual,
		Status:      models.AlertStatusPending,
	}, nil
}

func (m *mockAlertService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Alert, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	a, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = models.AlertStatus(status)
	return a, nil
}

func (m *mockAlertService) RecordDisposal(_ context.Context, alertID uuid.UUID, input services.DisposalInput) (*models.Disposal, error) {
	m.disposals = append(m.disposals, input)
	if m.disposalErr != nil {
		return nil, m.disposalErr
	}
	return &models.Disposal{ID: uuid.New(), AlertID: alertID, ActionTaken: input.ActionTaken}, nil
}

type mockViewService struct {
	trace     *services.TraceView
	dashboard *services.DashboardView
}

func (m *mockViewService) Trace(_ context.Context, batchNo string) (*services.TraceView, error) {
	if m.trace == nil || m.trace.Batch.BatchNo != batchNo {
		return nil, apperrors.ErrNotFound
	}
	return m.trace, nil
}

func (m *mockViewService) Dashboard(context.Context) (*services.DashboardView, error) {
	return m.dashboard, nil
}

// stubAuthService accepts "Bearer <role>" and rejects everything else.
type stubAuthService struct{}

func (stubAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	header := r.Header.Get("Authorization")
	role, ok := bytes.CutPrefix([]byte(header), []byte("Bearer "))
	if !ok || !auth.ValidRole(string(role)) {
		return nil, "", auth.ErrMissingAuthorization
	}
	claims := &auth.Claims{Role: string(role), Name: "测试用户"}
	claims.Subject = uuid.NewString()
	return claims, string(role), nil
}
