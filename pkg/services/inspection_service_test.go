package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/apperrors"
	"github.com/melontrace/melontrace-engine/pkg/models"
)

func newTestInspectionService(repo *mockInspectionRepo, batches *mockBatchRepo, checker *mockAlertChecker, inv *mockInvalidator) *inspectionService {
	svc := NewInspectionService(repo, batches, checker, inv, zap.NewNop()).(*inspectionService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestInspectionService_Create_RunsAlertCheck(t *testing.T) {
	batch := testBatch()
	repo := &mockInspectionRepo{}
	checker := &mockAlertChecker{result: &CheckResult{Success: true, Message: "检测完成,生成1条预警", AlertCount: 1}}
	inv := &mockInvalidator{}

	res, err := newTestInspectionService(repo, newMockBatchRepo(batch), checker, inv).Create(context.Background(), batch.ID, InspectionInput{
		Stage:     models.InspectionStageHarvest,
		Result:    models.InspectionResultFail,
		Sugar:     "11.2",
		Pesticide: "0.8",
		Notes:     "农残超标",
	})
	require.NoError(t, err)

	insp := res.Inspection
	assert.Equal(t, models.InspectionResultFail, insp.Result)
	assert.Equal(t, "系统监管员", insp.Inspector)
	assert.Equal(t, "农残超标", insp.ReportData.NotesText())
	require.NotNil(t, insp.ReportData.Date)
	assert.Equal(t, "2025-07-01T12:00:00Z", *insp.ReportData.Date)

	assert.Equal(t, 1, res.AlertCheck.AlertCount)
	assert.Equal(t, []uuid.UUID{batch.ID}, checker.checked)
	assert.Equal(t, []string{"/admin", "/trace/KL-4821"}, inv.paths)
}

func TestInspectionService_Create_Defaults(t *testing.T) {
	batch := testBatch()
	repo := &mockInspectionRepo{}

	res, err := newTestInspectionService(repo, newMockBatchRepo(batch), &mockAlertChecker{}, &mockInvalidator{}).
		Create(context.Background(), batch.ID, InspectionInput{})
	require.NoError(t, err)

	assert.Equal(t, models.InspectionStageHarvest, res.Inspection.Stage)
	assert.Equal(t, models.InspectionResultPass, res.Inspection.Result)
	assert.Nil(t, res.Inspection.ReportData.Notes)
	assert.Nil(t, res.Inspection.ReportData.Sugar)
}

func TestInspectionService_Create_CheckFailureKeepsInspection(t *testing.T) {
	batch := testBatch()
	repo := &mockInspectionRepo{}
	checker := &mockAlertChecker{result: &CheckResult{Success: false, Message: "预警检测失败"}}

	res, err := newTestInspectionService(repo, newMockBatchRepo(batch), checker, &mockInvalidator{}).
		Create(context.Background(), batch.ID, InspectionInput{Result: models.InspectionResultFail})
	require.NoError(t, err)

	assert.Len(t, repo.inspections, 1)
	assert.False(t, res.AlertCheck.Success)
	assert.Equal(t, "预警检测失败", res.AlertCheck.Message)
}

func TestInspectionService_Create_Rejections(t *testing.T) {
	batch := testBatch()

	t.Run("unknown result", func(t *testing.T) {
		checker := &mockAlertChecker{}
		_, err := newTestInspectionService(&mockInspectionRepo{}, newMockBatchRepo(batch), checker, &mockInvalidator{}).
			Create(context.Background(), batch.ID, InspectionInput{Result: "unknown"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Empty(t, checker.checked)
	})

	t.Run("missing batch", func(t *testing.T) {
		checker := &mockAlertChecker{}
		_, err := newTestInspectionService(&mockInspectionRepo{}, newMockBatchRepo(batch), checker, &mockInvalidator{}).
			Create(context.Background(), uuid.New(), InspectionInput{})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Empty(t, checker.checked)
	})

	t.Run("insert fails", func(t *testing.T) {
		checker := &mockAlertChecker{}
		repo := &mockInspectionRepo{createErr: errors.New("constraint violation")}
		_, err := newTestInspectionService(repo, newMockBatchRepo(batch), checker, &mockInvalidator{}).
			Create(context.Background(), batch.ID, InspectionInput{})
		assert.Error(t, err)
		assert.Empty(t, checker.checked, "no alert check without a stored inspection")
	})
}

func TestInspectionService_Delete(t *testing.T) {
	batch := testBatch()
	insp := &models.Inspection{ID: uuid.New(), BatchID: batch.ID, Stage: models.InspectionStageMarket, Result: models.InspectionResultPass}
	repo := &mockInspectionRepo{inspections: []*models.Inspection{insp}}
	inv := &mockInvalidator{}
	svc := newTestInspectionService(repo, newMockBatchRepo(batch), &mockAlertChecker{}, inv)

	require.NoError(t, svc.Delete(context.Background(), insp.ID))
	assert.Empty(t, repo.inspections)
	assert.Equal(t, []string{"/admin", "/trace/KL-4821"}, inv.paths)

	assert.ErrorIs(t, svc.Delete(context.Background(), insp.ID), apperrors.ErrNotFound)
}
