package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
)

// MaxDueLimit is the largest page a due-list query may request.
const MaxDueLimit = 500

// DueQuery selects the words that are due for a learner.
//
// A word is due when its NextReviewAt is at or before Now, its tier is not
// NEW, and it was not already reviewed on Now's UTC calendar day. Results are
// ordered by NextReviewAt ascending, ties broken by WordID.
type DueQuery struct {
	Now time.Time
	// TopicID restricts the query to one topic when set.
	TopicID *uuid.UUID
	Limit   int
	Offset  int
}

// ProgressStore defines the interface for word and topic progress persistence.
// Version: 1.0
type ProgressStore interface {
	// Get retrieves the progress record for a (learner, word) pair.
	// Returns ErrProgressNotFound if the learner has never touched the word.
	Get(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error)

	// Upsert writes a progress record guarded by its Version.
	//
	// A record with Version 0 is inserted; if another writer inserted the
	// same pair first, ErrConflict is returned. A record with Version n is
	// only written if the stored version is still n; otherwise ErrConflict
	// is returned. On success the stored record is returned with its new
	// Version, and the argument is left untouched.
	Upsert(ctx context.Context, p *domain.WordProgress) (*domain.WordProgress, error)

	// ListForTopic returns the learner's progress rows for the words of a topic.
	ListForTopic(ctx context.Context, learnerID, topicID uuid.UUID) ([]*domain.WordProgress, error)

	// ListForLearner returns every progress row of a learner.
	ListForLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.WordProgress, error)

	// ListDue returns one page of due words (see DueQuery).
	ListDue(ctx context.Context, learnerID uuid.UUID, q DueQuery) ([]*domain.WordProgress, error)

	// CountDue returns the total number of due words for the query, ignoring
	// Limit and Offset.
	CountDue(ctx context.Context, learnerID uuid.UUID, q DueQuery) (int, error)

	// UpsertTopicProgress replaces the stored topic rollup wholesale.
	UpsertTopicProgress(ctx context.Context, tp *domain.TopicProgress) error

	// ListTopicProgress returns every topic rollup of a learner ordered by TopicID.
	ListTopicProgress(ctx context.Context, learnerID uuid.UUID) ([]*domain.TopicProgress, error)
}
