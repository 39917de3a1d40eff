package domain

import (
	"time"

	"github.com/google/uuid"
)

// Word is a vocabulary item as seen by the progress engine. The catalog that
// owns words (terms, media, AI-generated examples) lives outside the engine;
// only the fields needed for scheduling and topic rollups are carried here.
type Word struct {
	ID        uuid.UUID `json:"id"`
	TopicID   uuid.UUID `json:"topic_id"`
	Term      string    `json:"term"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
