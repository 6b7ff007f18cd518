package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/melontrace/melontrace-engine/pkg/models"
)

// Ideal storage ranges quoted in env_abnormal descriptions. The thresholds
// that actually flag a reading live in models.AlertRules and are wider.
const (
	idealTemperatureRange = "10-15℃"
	idealHumidityRange    = "85-90%"
)

// inspectionFailCandidate proposes an inspection_fail alert for the most
// recent failing or warning inspection. Returns nil when none failed.
func inspectionFailCandidate(batch *models.Batch, inspections []*models.Inspection) *models.Alert {
	var latest *models.Inspection
	for _, insp := range inspections {
		if !insp.IsFailing() {
			continue
		}
		if latest == nil || insp.CreatedAt.After(latest.CreatedAt) {
			latest = insp
		}
	}
	if latest == nil {
		return nil
	}

	level := models.AlertLevelMedium
	verdict := "预警"
	if latest.Result == models.InspectionResultFail {
		level = models.AlertLevelHigh
		verdict = "不合格"
	}

	return &models.Alert{
		BatchID:     batch.ID,
		AlertType:   models.AlertTypeInspectionFail,
		AlertLevel:  level,
		Title:       "检测不合格 - " + models.StageLabel(latest.Stage),
		Description: strPtr(fmt.Sprintf("检测结果: %s。%s", verdict, latest.ReportData.NotesText())),
		TriggeredBy: models.TriggeredByInspection,
		TriggerData: models.InspectionTrigger{
			InspectionID: latest.ID,
			Stage:        latest.Stage,
			Result:       latest.Result,
			ReportData:   latest.ReportData,
		},
		AssignedTo: strPtr(models.AssigneeRegulator),
	}
}

// qualityComplaintCandidate proposes a quality_complaint alert once enough
// low ratings have accumulated among the loaded feedback.
func qualityComplaintCandidate(batch *models.Batch, feedbacks []*models.Feedback, rules *models.AlertRules) *models.Alert {
	var low []*models.Feedback
	sum := 0
	for _, fb := range feedbacks {
		if fb.Rating <= rules.LowRatingThreshold {
			low = append(low, fb)
			sum += fb.Rating
		}
	}
	if len(low) < rules.ComplaintMinCount || len(low) == 0 {
		return nil
	}

	avg := decimal.NewFromInt(int64(sum)).
		Div(decimal.NewFromInt(int64(len(low)))).
		StringFixed(1)

	level := models.AlertLevelMedium
	if len(low) >= rules.ComplaintHighCount {
		level = models.AlertLevelHigh
	}

	snapshots := make([]models.RatingSnapshot, len(low))
	for i, fb := range low {
		snapshots[i] = models.RatingSnapshot{Rating: fb.Rating}
		if fb.Content != "" {
			snapshots[i].Content = strPtr(fb.Content)
		}
	}

	return &models.Alert{
		BatchID:     batch.ID,
		AlertType:   models.AlertTypeQualityComplaint,
		AlertLevel:  level,
		Title:       "消费者质量投诉 - 低评分异常",
		Description: strPtr(fmt.Sprintf("近期收到%d条低评分反馈,平均评分%s分,需要关注产品品质。", len(low), avg)),
		TriggeredBy: models.TriggeredByFeedback,
		TriggerData: models.ComplaintTrigger{
			LowRatingCount: len(low),
			AvgRating:      avg,
			Feedbacks:      snapshots,
		},
		AssignedTo: strPtr(models.AssigneeEnterpriseQuality),
	}
}

// envAbnormalCandidates proposes one env_abnormal alert per storage record
// whose temperature or humidity falls outside the configured bounds.
func envAbnormalCandidates(batch *models.Batch, storage []*models.Logistics, rules *models.AlertRules) []*models.Alert {
	var out []*models.Alert
	for _, rec := range storage {
		if !rec.HasEnvironmentReading() {
			continue
		}
		reason := environmentReason(rec, rules)
		if reason == "" {
			continue
		}

		out = append(out, &models.Alert{
			BatchID:     batch.ID,
			AlertType:   models.AlertTypeEnvAbnormal,
			AlertLevel:  models.AlertLevelMedium,
			Title:       "仓储环境异常",
			Description: strPtr(reason),
			TriggeredBy: models.TriggeredBySystem,
			TriggerData: models.EnvironmentTrigger{
				LogisticsID: rec.ID,
				Temperature: rec.Temperature,
				Humidity:    rec.Humidity,
				Location:    rec.Location,
			},
			AssignedTo: strPtr(models.AssigneeEnterpriseStorage),
		})
	}
	return out
}

// environmentReason describes every out-of-range reading, or returns "" when
// the record is within bounds.
func environmentReason(rec *models.Logistics, rules *models.AlertRules) string {
	var b strings.Builder
	if rec.Temperature != nil && rules.TemperatureAbnormal(*rec.Temperature) {
		fmt.Fprintf(&b, "温度%s℃异常 (适宜范围%s); ", formatReading(*rec.Temperature), idealTemperatureRange)
	}
	if rec.Humidity != nil && rules.HumidityAbnormal(*rec.Humidity) {
		fmt.Fprintf(&b, "湿度%s%%异常 (适宜范围%s); ", formatReading(*rec.Humidity), idealHumidityRange)
	}
	return strings.TrimSpace(b.String())
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func strPtr(s string) *string {
	return &s
}
