package progress

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/store"
)

// WordRepository is the word catalog lookup the scheduler depends on.
// store.WordStore implementations satisfy it directly.
type WordRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Word, error)
	ListByTopic(ctx context.Context, topicID uuid.UUID) ([]*domain.Word, error)
	ListUnstarted(ctx context.Context, learnerID uuid.UUID, topicID *uuid.UUID, limit int) ([]*domain.Word, error)
}

// ProgressRepository is the progress persistence the scheduler depends on.
// store.ProgressStore implementations satisfy it directly.
type ProgressRepository interface {
	Get(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error)
	Upsert(ctx context.Context, p *domain.WordProgress) (*domain.WordProgress, error)
	ListForTopic(ctx context.Context, learnerID, topicID uuid.UUID) ([]*domain.WordProgress, error)
	ListForLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.WordProgress, error)
	ListDue(ctx context.Context, learnerID uuid.UUID, q store.DueQuery) ([]*domain.WordProgress, error)
	CountDue(ctx context.Context, learnerID uuid.UUID, q store.DueQuery) (int, error)
	UpsertTopicProgress(ctx context.Context, tp *domain.TopicProgress) error
	ListTopicProgress(ctx context.Context, learnerID uuid.UUID) ([]*domain.TopicProgress, error)
}

// TopicRefresher brings a learner's topic rollup up to date after a word
// in the topic changed. Implementations may refresh inline or hand the
// work to a background worker.
type TopicRefresher interface {
	RefreshTopic(ctx context.Context, learnerID, topicID uuid.UUID) error
}

var (
	_ WordRepository     = (store.WordStore)(nil)
	_ ProgressRepository = (store.ProgressStore)(nil)
)
