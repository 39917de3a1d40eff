package progress

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/store"
)

var _ TopicRefresher = (*Aggregator)(nil)

// Aggregator recomputes TopicProgress rollups from the word progress rows.
//
// A rollup is always rebuilt wholesale from the authoritative rows and
// never patched incrementally, so refreshing is idempotent, safe to retry,
// and the last refresh to finish wins.
type Aggregator struct {
	words    WordRepository
	progress ProgressRepository
	clock    func() time.Time
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. A nil clock uses time.Now and a
// non-positive storeTimeout uses DefaultStoreTimeout.
func NewAggregator(
	words WordRepository,
	progress ProgressRepository,
	clock func() time.Time,
	storeTimeout time.Duration,
	logger *slog.Logger,
) *Aggregator {
	if words == nil {
		panic("words cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if clock == nil {
		clock = time.Now
	}
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		words:    words,
		progress: progress,
		clock:    clock,
		timeout:  storeTimeout,
		logger:   logger.With(slog.String("component", "topic_aggregator")),
	}
}

// Refresh recomputes and stores the learner's rollup for one topic.
// Returns an error wrapping ErrNotFound if the topic has no words.
func (a *Aggregator) Refresh(ctx context.Context, learnerID, topicID uuid.UUID) (*domain.TopicProgress, error) {
	const op = "refresh_topic"
	log := logger.FromContextOrDefault(ctx, a.logger).With(
		slog.String("learner_id", learnerID.String()),
		slog.String("topic_id", topicID.String()))

	start := time.Now()
	tp, err := a.refresh(ctx, learnerID, topicID)
	topicRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		topicRefreshFailures.Inc()
		if errors.Is(err, store.ErrTopicNotFound) {
			log.Warn("topic not found for refresh")
			return nil, notFound(op, "topic not found", err)
		}
		log.Error("failed to refresh topic progress", slog.String("error", err.Error()))
		return nil, internal(op, "failed to refresh topic progress", err)
	}

	log.Debug("topic progress refreshed",
		slog.Int("total_words", tp.TotalWords),
		slog.Int("learned_words", tp.LearnedWords),
		slog.Int("mastered_words", tp.MasteredWords))
	return tp, nil
}

// RefreshTopic implements TopicRefresher.
func (a *Aggregator) RefreshTopic(ctx context.Context, learnerID, topicID uuid.UUID) error {
	_, err := a.Refresh(ctx, learnerID, topicID)
	return err
}

func (a *Aggregator) refresh(ctx context.Context, learnerID, topicID uuid.UUID) (*domain.TopicProgress, error) {
	var (
		words []*domain.Word
		rows  []*domain.WordProgress
	)
	err := a.withTimeout(ctx, func(sctx context.Context) (err error) {
		words, err = a.words.ListByTopic(sctx, topicID)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = a.withTimeout(ctx, func(sctx context.Context) (err error) {
		rows, err = a.progress.ListForTopic(sctx, learnerID, topicID)
		return err
	})
	if err != nil {
		return nil, err
	}

	active := make(map[uuid.UUID]struct{}, len(words))
	for _, w := range words {
		active[w.ID] = struct{}{}
	}

	now := a.clock().UTC()
	tp := &domain.TopicProgress{
		LearnerID:     learnerID,
		TopicID:       topicID,
		TotalWords:    len(words),
		LastStudiedAt: now,
		UpdatedAt:     now,
	}
	for _, p := range rows {
		// Progress on a word that was since deactivated does not count
		if _, ok := active[p.WordID]; !ok {
			continue
		}
		switch p.Tier {
		case domain.TierLearning, domain.TierReviewing:
			tp.LearningWords++
		case domain.TierMastered:
			tp.MasteredWords++
		}
	}
	tp.LearnedWords = tp.LearningWords + tp.MasteredWords

	if err := tp.Validate(); err != nil {
		return nil, err
	}
	err = a.withTimeout(ctx, func(sctx context.Context) error {
		return a.progress.UpsertTopicProgress(sctx, tp)
	})
	if err != nil {
		return nil, err
	}
	return tp, nil
}

// withTimeout runs one store call under the aggregator's store timeout.
func (a *Aggregator) withTimeout(ctx context.Context, call func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return call(sctx)
}
