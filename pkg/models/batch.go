package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch lifecycle status constants.
const (
	BatchStatusGrowing  = "growing"
	BatchStatusApproved = "approved"
	BatchStatusRejected = "rejected"
)

// Batch represents a tracked production lot.
// Stored in batches table.
type Batch struct {
	ID         uuid.UUID  `json:"id"`
	BatchNo    string     `json:"batch_no"` // human-readable, e.g. KL-4821
	Variety    string     `json:"variety"`
	Location   string     `json:"location"`
	SowingDate time.Time  `json:"sowing_date"`
	Status     string     `json:"status"`
	OwnerID    *uuid.UUID `json:"owner_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// BatchFilters contains filters for listing batches.
type BatchFilters struct {
	Status string
	Limit  int
	Offset int
}

// ValidBatchStatus returns true if s is a known batch status.
func ValidBatchStatus(s string) bool {
	switch s {
	case BatchStatusGrowing, BatchStatusApproved, BatchStatusRejected:
		return true
	}
	return false
}

// BatchAggregate is a batch loaded together with the recent records the alert
// rules evaluate. Each slice is ordered newest first.
type BatchAggregate struct {
	Batch       *Batch
	Inspections []*Inspection
	Feedbacks   []*Feedback
	Storage     []*Logistics
}
