package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFarmingActionLabel(t *testing.T) {
	assert.Equal(t, "灌溉水源", FarmingActionLabel(FarmingActionWater))
	assert.Equal(t, "成熟采摘", FarmingActionLabel(FarmingActionHarvest))
	assert.Equal(t, "农事操作", FarmingActionLabel("pruning"), "unknown types fall back to the generic label")

	assert.True(t, ValidFarmingAction(FarmingActionCustom))
	assert.False(t, ValidFarmingAction("pruning"))
	assert.False(t, ValidFarmingAction(""))
}
