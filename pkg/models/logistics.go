package models

import (
	"time"

	"github.com/google/uuid"
)

// Logistics stage constants.
const (
	LogisticsStageSorting   = "sorting"
	LogisticsStagePacking   = "packing"
	LogisticsStageStorage   = "storage"
	LogisticsStageTransport = "transport"
	LogisticsStageDelivery  = "delivery"
)

// ValidLogisticsStage returns true if s is a known logistics stage.
func ValidLogisticsStage(s string) bool {
	switch s {
	case LogisticsStageSorting, LogisticsStagePacking, LogisticsStageStorage,
		LogisticsStageTransport, LogisticsStageDelivery:
		return true
	}
	return false
}

// VehicleInfo describes the vehicle used for a transport leg.
type VehicleInfo struct {
	Plate  *string `json:"plate"`
	Driver *string `json:"driver"`
	Phone  *string `json:"phone"`
}

// RouteInfo describes the route of a transport leg.
type RouteInfo struct {
	From     *string  `json:"from"`
	To       *string  `json:"to"`
	Distance *float64 `json:"distance"`
}

// Logistics is a supply-chain handling event for a batch.
// Temperature and humidity are only meaningful for the storage stage.
type Logistics struct {
	ID          uuid.UUID    `json:"id"`
	BatchID     uuid.UUID    `json:"batch_id"`
	Stage       string       `json:"stage"`
	Operator    string       `json:"operator"`
	Location    *string      `json:"location,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Humidity    *float64     `json:"humidity,omitempty"`
	VehicleInfo *VehicleInfo `json:"vehicle_info,omitempty"`
	RouteInfo   *RouteInfo   `json:"route_info,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	RecordedAt  time.Time    `json:"recorded_at"`
}

// HasEnvironmentReading returns true when a temperature or humidity value is present.
func (l *Logistics) HasEnvironmentReading() bool {
	return l.Temperature != nil || l.Humidity != nil
}
