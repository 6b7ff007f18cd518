package models

import (
	"time"

	"github.com/google/uuid"
)

// Farming action types.
const (
	FarmingActionWater      = "water"
	FarmingActionFertilizer = "fertilizer"
	FarmingActionPesticide  = "pesticide"
	FarmingActionHarvest    = "harvest"
	FarmingActionCustom     = "custom"
)

var farmingActionLabels = map[string]string{
	FarmingActionWater:      "灌溉水源",
	FarmingActionFertilizer: "施肥养护",
	FarmingActionPesticide:  "绿色防控",
	FarmingActionHarvest:    "成熟采摘",
	FarmingActionCustom:     "农事操作",
}

// ValidFarmingAction returns true if a is a known farming action type.
func ValidFarmingAction(a string) bool {
	_, ok := farmingActionLabels[a]
	return ok
}

// FarmingActionLabel returns the display name for an action type.
func FarmingActionLabel(a string) string {
	if label, ok := farmingActionLabels[a]; ok {
		return label
	}
	return farmingActionLabels[FarmingActionCustom]
}

// FarmingRecord is a field operation on a batch (irrigation, fertilizing, harvest).
// Stored in farming_records table.
type FarmingRecord struct {
	ID          uuid.UUID `json:"id"`
	BatchID     uuid.UUID `json:"batch_id"`
	ActionType  string    `json:"action_type"`
	ActionLabel string    `json:"action_label"`
	Description string    `json:"description"`
	Operator    string    `json:"operator"`
	RecordedAt  time.Time `json:"recorded_at"`
}
