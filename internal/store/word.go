package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
)

// WordStore is the read-only view of the word catalog that the engine needs.
// Version: 1.0
type WordStore interface {
	// GetByID retrieves a word by its unique ID.
	// Returns ErrWordNotFound if the word does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Word, error)

	// ListByTopic returns the active words of a topic ordered by ID.
	// Returns ErrTopicNotFound if the topic has no words at all.
	ListByTopic(ctx context.Context, topicID uuid.UUID) ([]*domain.Word, error)

	// ListUnstarted returns up to limit active words the learner has never
	// reviewed, optionally restricted to one topic. A word counts as
	// unstarted when it has no progress record or its record is still NEW.
	// Words are ordered by creation time, then ID.
	ListUnstarted(ctx context.Context, learnerID uuid.UUID, topicID *uuid.UUID, limit int) ([]*domain.Word, error)
}
