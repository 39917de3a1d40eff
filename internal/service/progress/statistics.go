package progress

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/store"
	"golang.org/x/sync/errgroup"
)

// GetLearnerStatistics implements ReviewScheduler.GetLearnerStatistics.
//
// CurrentStreak is the longest running streak over the learner's words and
// LongestStreak the best streak ever reached on any word.
func (s *scheduler) GetLearnerStatistics(ctx context.Context, learnerID uuid.UUID) (*domain.LearnerStatistics, error) {
	const op = "get_learner_statistics"
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("learner_id", learnerID.String()))

	if learnerID == uuid.Nil {
		return nil, invalidArgument(op, "learner ID is required")
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var (
		rows   []*domain.WordProgress
		topics []*domain.TopicProgress
		due    int
	)
	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		var err error
		rows, err = s.progress.ListForLearner(gctx, learnerID)
		return err
	})
	g.Go(func() error {
		var err error
		due, err = s.progress.CountDue(gctx, learnerID, store.DueQuery{Now: s.clock()})
		return err
	})
	g.Go(func() error {
		var err error
		topics, err = s.progress.ListTopicProgress(gctx, learnerID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to load learner statistics", slog.String("error", err.Error()))
		return nil, internal(op, "failed to load learner statistics", err)
	}

	stats := &domain.LearnerStatistics{
		DueCount: due,
		PerTopic: topics,
	}
	if stats.PerTopic == nil {
		stats.PerTopic = []*domain.TopicProgress{}
	}

	var correct, attempts int
	for _, p := range rows {
		if p.Tier.Learned() {
			stats.TotalLearned++
		}
		if p.Tier == domain.TierMastered {
			stats.TotalMastered++
		}
		correct += p.CorrectCount
		attempts += p.Attempts()
		stats.CurrentStreak = max(stats.CurrentStreak, p.CurrentStreak)
		stats.LongestStreak = max(stats.LongestStreak, p.BestStreak)
	}
	if attempts > 0 {
		stats.Accuracy = float64(correct) / float64(attempts)
	}

	return stats, nil
}
