package models

import "time"

// AlertRules holds the thresholds the alert rule engine evaluates against.
// Temperature and humidity bounds are normal-inclusive: a reading equal to a
// bound is not abnormal.
type AlertRules struct {
	AlertsEnabled bool               `json:"alerts_enabled"`
	RuleEnabled   map[AlertType]bool `json:"rule_enabled,omitempty"`

	InspectionLimit int `json:"inspection_limit"`
	FeedbackLimit   int `json:"feedback_limit"`
	StorageLimit    int `json:"storage_limit"`

	LowRatingThreshold int `json:"low_rating_threshold"`
	ComplaintMinCount  int `json:"complaint_min_count"`
	ComplaintHighCount int `json:"complaint_high_count"`

	TemperatureMin float64 `json:"temperature_min"`
	TemperatureMax float64 `json:"temperature_max"`
	HumidityMin    float64 `json:"humidity_min"`
	HumidityMax    float64 `json:"humidity_max"`

	EnvDedupWindow time.Duration `json:"env_dedup_window"`
}

// DefaultAlertRules returns the thresholds the engine ships with.
func DefaultAlertRules() *AlertRules {
	return &AlertRules{
		AlertsEnabled:      true,
		InspectionLimit:    5,
		FeedbackLimit:      10,
		StorageLimit:       5,
		LowRatingThreshold: 2,
		ComplaintMinCount:  3,
		ComplaintHighCount: 5,
		TemperatureMin:     5,
		TemperatureMax:     20,
		HumidityMin:        70,
		HumidityMax:        95,
		EnvDedupWindow:     24 * time.Hour,
	}
}

// IsRuleEnabled checks if a rule is enabled, considering the master toggle.
func (r *AlertRules) IsRuleEnabled(alertType AlertType) bool {
	if !r.AlertsEnabled {
		return false
	}
	enabled, ok := r.RuleEnabled[alertType]
	if !ok {
		// Unlisted rule: default to enabled
		return true
	}
	return enabled
}

// TemperatureAbnormal reports whether t falls outside the storage bounds.
func (r *AlertRules) TemperatureAbnormal(t float64) bool {
	return t < r.TemperatureMin || t > r.TemperatureMax
}

// HumidityAbnormal reports whether h falls outside the storage bounds.
func (r *AlertRules) HumidityAbnormal(h float64) bool {
	return h < r.HumidityMin || h > r.HumidityMax
}
