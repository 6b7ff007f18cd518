package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from AlertStatus
		to   AlertStatus
		want bool
	}{
		{AlertStatusPending, AlertStatusProcessing, true},
		{AlertStatusPending, AlertStatusClosed, true},
		{AlertStatusProcessing, AlertStatusResolved, true},
		{AlertStatusProcessing, AlertStatusClosed, true},
		{AlertStatusPending, AlertStatusResolved, false},
		{AlertStatusProcessing, AlertStatusPending, false},
		{AlertStatusResolved, AlertStatusPending, false},
		{AlertStatusResolved, AlertStatusClosed, false},
		{AlertStatusClosed, AlertStatusProcessing, false},
		{AlertStatusPending, AlertStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAlertStatus_OpenAndTerminal(t *testing.T) {
	assert.True(t, AlertStatusPending.IsOpen())
	assert.True(t, AlertStatusProcessing.IsOpen())
	assert.False(t, AlertStatusResolved.IsOpen())
	assert.True(t, AlertStatusResolved.IsTerminal())
	assert.True(t, AlertStatusClosed.IsTerminal())
	assert.False(t, AlertStatusPending.IsTerminal())
}

func TestParseAlertStatus(t *testing.T) {
	st, ok := ParseAlertStatus("processing")
	assert.True(t, ok)
	assert.Equal(t, AlertStatusProcessing, st)

	_, ok = ParseAlertStatus("archived")
	assert.False(t, ok)
}

func TestValidAlertTypeAndLevel(t *testing.T) {
	assert.True(t, ValidAlertType(AlertTypePesticideExceed))
	assert.False(t, ValidAlertType("sql_injection"))
	assert.True(t, ValidAlertLevel(AlertLevelUrgent))
	assert.False(t, ValidAlertLevel("critical"))
}

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "采收期", StageLabel(InspectionStageHarvest))
	assert.Equal(t, "种植期", StageLabel(InspectionStagePlanting))
	assert.Equal(t, "flowering", StageLabel("flowering"))
}
