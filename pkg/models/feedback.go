package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 5

	AnonymousConsumer = "Anonymous"
)

// Feedback is a consumer review of a batch, submitted from the public trace page.
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	BatchID   uuid.UUID `json:"batch_id"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	Consumer  string    `json:"consumer"` // contact, or Anonymous
	CreatedAt time.Time `json:"created_at"`
}
