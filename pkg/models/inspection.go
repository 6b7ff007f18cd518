package models

import (
	"time"

	"github.com/google/uuid"
)

// Inspection stage constants.
const (
	InspectionStagePlanting  = "planting"
	InspectionStageHarvest   = "harvest"
	InspectionStageTransport = "transport"
	InspectionStageMarket    = "market"
)

// Inspection result constants.
const (
	InspectionResultPass    = "pass"
	InspectionResultFail    = "fail"
	InspectionResultWarning = "warning"
)

var inspectionStageLabels = map[string]string{
	InspectionStagePlanting:  "种植期",
	InspectionStageHarvest:   "采收期",
	InspectionStageTransport: "流通期",
	InspectionStageMarket:    "销售期",
}

// StageLabel returns the display label for an inspection stage, or the raw
// stage when it is not one of the known values.
func StageLabel(stage string) string {
	if label, ok := inspectionStageLabels[stage]; ok {
		return label
	}
	return stage
}

// ValidInspectionResult returns true if r is a known inspection result.
func ValidInspectionResult(r string) bool {
	switch r {
	case InspectionResultPass, InspectionResultFail, InspectionResultWarning:
		return true
	}
	return false
}

// InspectionReport holds the measured values recorded with an inspection.
// Every field is optional; absent values stay nil rather than failing reads.
type InspectionReport struct {
	Sugar     *string `json:"sugar"`
	Pesticide *string `json:"pesticide"`
	Notes     *string `json:"notes"`
	Date      *string `json:"date,omitempty"`
}

// NotesText returns the notes or an empty string.
func (r InspectionReport) NotesText() string {
	if r.Notes == nil {
		return ""
	}
	return *r.Notes
}

// Inspection is a quality check recorded against a batch. Immutable once created.
type Inspection struct {
	ID         uuid.UUID        `json:"id"`
	BatchID    uuid.UUID        `json:"batch_id"`
	Stage      string           `json:"stage"`
	Result     string           `json:"result"`
	Inspector  string           `json:"inspector"`
	ReportData InspectionReport `json:"report_data"`
	CreatedAt  time.Time        `json:"created_at"`
}

// IsFailing returns true for fail and warning results.
func (i *Inspection) IsFailing() bool {
	return i.Result == InspectionResultFail || i.Result == InspectionResultWarning
}
