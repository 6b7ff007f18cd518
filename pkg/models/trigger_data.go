package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TriggerData is the snapshot of the records that caused an alert to fire.
// Exactly one variant exists per rule; manual alerts carry none.
type TriggerData interface {
	// AlertType returns the alert type this payload belongs to.
	AlertType() AlertType
}

// InspectionTrigger is the snapshot stored with inspection_fail alerts.
type InspectionTrigger struct {
	InspectionID uuid.UUID        `json:"inspection_id"`
	Stage        string           `json:"stage"`
	Result       string           `json:"result"`
	ReportData   InspectionReport `json:"report_data"`
}

func (InspectionTrigger) AlertType() AlertType { return AlertTypeInspectionFail }

// RatingSnapshot is one low-rated feedback as captured in a complaint alert.
type RatingSnapshot struct {
	Rating  int     `json:"rating"`
	Content *string `json:"content"`
}

// ComplaintTrigger is the snapshot stored with quality_complaint alerts.
// AvgRating is the one-decimal string shown in the description.
type ComplaintTrigger struct {
	LowRatingCount int              `json:"low_rating_count"`
	AvgRating      string           `json:"avg_rating"`
	Feedbacks      []RatingSnapshot `json:"feedbacks"`
}

func (ComplaintTrigger) AlertType() AlertType { return AlertTypeQualityComplaint }

// EnvironmentTrigger is the snapshot stored with env_abnormal alerts.
type EnvironmentTrigger struct {
	LogisticsID uuid.UUID `json:"logistics_id"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Location    *string   `json:"location"`
}

func (EnvironmentTrigger) AlertType() AlertType { return AlertTypeEnvAbnormal }

// EncodeTriggerData serializes a payload for the alerts.trigger_data column.
// A nil payload encodes to nil so the column stays NULL.
func EncodeTriggerData(data TriggerData) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode trigger data: %w", err)
	}
	return b, nil
}

// DecodeTriggerData parses a stored payload according to the alert type.
// Empty input and types without a rule-generated payload yield nil.
func DecodeTriggerData(alertType AlertType, raw []byte) (TriggerData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch alertType {
	case AlertTypeInspectionFail:
		var t InspectionTrigger
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode %s trigger data: %w", alertType, err)
		}
		return t, nil
	case AlertTypeQualityComplaint:
		var t ComplaintTrigger
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode %s trigger data: %w", alertType, err)
		}
		return t, nil
	case AlertTypeEnvAbnormal:
		var t EnvironmentTrigger
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode %s trigger data: %w", alertType, err)
		}
		return t, nil
	}
	return nil, nil
}
