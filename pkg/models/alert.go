package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AlertType identifies the rule (or manual category) an alert belongs to.
type AlertType string

// Alert type constants.
const (
	AlertTypeInspectionFail   AlertType = "inspection_fail"
	AlertTypeQualityComplaint AlertType = "quality_complaint"
	AlertTypeEnvAbnormal      AlertType = "env_abnormal"
	AlertTypePesticideExceed  AlertType = "pesticide_exceed"
)

// ValidAlertType returns true if t is a known alert type.
func ValidAlertType(t AlertType) bool {
	switch t {
	case AlertTypeInspectionFail, AlertTypeQualityComplaint, AlertTypeEnvAbnormal, AlertTypePesticideExceed:
		return true
	}
	return false
}

// Alert level constants.
const (
	AlertLevelLow    = "low"
	AlertLevelMedium = "medium"
	AlertLevelHigh   = "high"
	AlertLevelUrgent = "urgent"
)

// ValidAlertLevel returns true if l is a known alert level.
func ValidAlertLevel(l string) bool {
	switch l {
	case AlertLevelLow, AlertLevelMedium, AlertLevelHigh, AlertLevelUrgent:
		return true
	}
	return false
}

// Trigger source constants (alerts.triggered_by).
const (
	TriggeredByInspection = "inspection"
	TriggeredByFeedback   = "feedback"
	TriggeredBySystem     = "system"
	TriggeredByManual     = "manual"
)

// Assignee labels used by the rule engine.
const (
	AssigneeRegulator         = "监管部门"
	AssigneeEnterpriseQuality = "企业质检部门"
	AssigneeEnterpriseStorage = "企业仓储部门"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

// Alert status constants.
const (
	AlertStatusPending    AlertStatus = "pending"
	AlertStatusProcessing AlertStatus = "processing"
	AlertStatusResolved   AlertStatus = "resolved"
	AlertStatusClosed     AlertStatus = "closed"
)

// OpenAlertStatuses are the statuses that still need operator attention.
var OpenAlertStatuses = []AlertStatus{AlertStatusPending, AlertStatusProcessing}

var alertTransitions = map[AlertStatus][]AlertStatus{
	AlertStatusPending:    {AlertStatusProcessing, AlertStatusClosed},
	AlertStatusProcessing: {AlertStatusResolved, AlertStatusClosed},
}

// ParseAlertStatus validates a raw status string.
func ParseAlertStatus(s string) (AlertStatus, bool) {
	switch st := AlertStatus(s); st {
	case AlertStatusPending, AlertStatusProcessing, AlertStatusResolved, AlertStatusClosed:
		return st, true
	}
	return "", false
}

// IsOpen returns true for pending and processing.
func (s AlertStatus) IsOpen() bool {
	return s == AlertStatusPending || s == AlertStatusProcessing
}

// IsTerminal returns true for resolved and closed.
func (s AlertStatus) IsTerminal() bool {
	return s == AlertStatusResolved || s == AlertStatusClosed
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	for _, allowed := range alertTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Alert is a warning raised against a batch, either by the rule engine or manually.
// Stored in alerts table.
type Alert struct {
	ID          uuid.UUID   `json:"id"`
	BatchID     uuid.UUID   `json:"batch_id"`
	AlertType   AlertType   `json:"alert_type"`
	AlertLevel  string      `json:"alert_level"`
	Title       string      `json:"title"`
	Description *string     `json:"description,omitempty"`
	TriggeredBy string      `json:"triggered_by"`
	TriggerData TriggerData `json:"trigger_data"`
	Status      AlertStatus `json:"status"`
	AssignedTo  *string     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Joined for list views, not persisted on the alert row.
	BatchNo        string      `json:"batch_no,omitempty"`
	BatchVariety   string      `json:"batch_variety,omitempty"`
	LatestDisposal *Disposal   `json:"latest_disposal,omitempty"`
	Disposals      []*Disposal `json:"disposals,omitempty"`
}

// AlertFilters contains filters for the alert list.
type AlertFilters struct {
	Status    string
	AlertType string
	BatchID   *uuid.UUID
	Limit     int
	Offset    int
}

// AlertStatusCounts holds per-status alert totals for the dashboard header.
type AlertStatusCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

// Disposal records the action taken to resolve an alert.
// Stored in disposals table.
type Disposal struct {
	ID               uuid.UUID `json:"id"`
	AlertID          uuid.UUID `json:"alert_id"`
	ResponsibleParty *string   `json:"responsible_party,omitempty"`
	ActionTaken      string    `json:"action_taken"`
	Result           *string   `json:"result,omitempty"`
	Handler          *string   `json:"handler,omitempty"`
	HandledAt        time.Time `json:"handled_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// UnmarshalJSON decodes trigger_data into the variant matching alert_type.
func (a *Alert) UnmarshalJSON(data []byte) error {
	type alias Alert
	aux := struct {
		*alias
		TriggerData json.RawMessage `json:"trigger_data"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	td, err := DecodeTriggerData(a.AlertType, aux.TriggerData)
	if err != nil {
		return err
	}
	a.TriggerData = td
	return nil
}
