package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/store"
)

// BuildStudySession implements ReviewScheduler.BuildStudySession.
//
// new draws unstarted words in creation order and review draws due words
// most overdue first. mixed gives up to half of the budget to new words,
// fills the rest with due words, tops up with further new words when too
// few are due, and shuffles the result so the two kinds interleave.
func (s *scheduler) BuildStudySession(
	ctx context.Context,
	learnerID uuid.UUID,
	topicID *uuid.UUID,
	mode domain.StudyMode,
	wordCount int,
) ([]domain.StudyItem, error) {
	const op = "build_study_session"
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("learner_id", learnerID.String()),
		slog.String("mode", string(mode)))

	if learnerID == uuid.Nil {
		return nil, invalidArgument(op, "learner ID is required")
	}
	if _, err := domain.ParseStudyMode(string(mode)); err != nil {
		return nil, invalidArgument(op, err.Error())
	}
	if wordCount < 1 || wordCount > MaxSessionWords {
		return nil, invalidArgument(op, fmt.Sprintf("word count must be between 1 and %d", MaxSessionWords))
	}
	if topicID != nil {
		if *topicID == uuid.Nil {
			return nil, invalidArgument(op, "topic ID cannot be empty")
		}
		if err := s.checkTopic(ctx, op, *topicID); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	var (
		fresh []*domain.Word
		due   []*domain.WordProgress
		err   error
	)
	switch mode {
	case domain.StudyModeNew:
		fresh, err = s.listUnstarted(ctx, learnerID, topicID, wordCount)
	case domain.StudyModeReview:
		due, err = s.listDue(ctx, learnerID, topicID, now, wordCount)
	case domain.StudyModeMixed:
		fresh, due, err = s.mixedSelection(ctx, learnerID, topicID, now, wordCount)
	}
	if err != nil {
		log.Error("failed to select study words", slog.String("error", err.Error()))
		return nil, internal(op, "failed to select study words", err)
	}

	items := make([]domain.StudyItem, 0, len(fresh)+len(due))
	for _, w := range fresh {
		items = append(items, domain.StudyItem{WordID: w.ID, Origin: domain.OriginNew})
	}
	for _, p := range due {
		items = append(items, domain.StudyItem{
			WordID:    p.WordID,
			Origin:    domain.OriginReview,
			Progress:  p,
			Retention: s.srs.Retention(p, now),
		})
	}

	if mode == domain.StudyModeMixed {
		s.shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	}

	sessionsBuilt.WithLabelValues(string(mode)).Inc()
	log.Debug("study session built",
		slog.Int("requested", wordCount),
		slog.Int("new_words", len(fresh)),
		slog.Int("due_words", len(due)))
	return items, nil
}

func (s *scheduler) mixedSelection(
	ctx context.Context,
	learnerID uuid.UUID,
	topicID *uuid.UUID,
	now time.Time,
	wordCount int,
) ([]*domain.Word, []*domain.WordProgress, error) {
	// Enough unstarted words to cover the whole budget if little is due
	fresh, err := s.listUnstarted(ctx, learnerID, topicID, wordCount)
	if err != nil {
		return nil, nil, err
	}

	newShare := min(len(fresh), wordCount/2)
	due, err := s.listDue(ctx, learnerID, topicID, now, wordCount-newShare)
	if err != nil {
		return nil, nil, err
	}

	newTake := min(len(fresh), wordCount-len(due))
	return fresh[:newTake], due, nil
}

// SubmitSessionResults implements ReviewScheduler.SubmitSessionResults.
func (s *scheduler) SubmitSessionResults(
	ctx context.Context,
	learnerID uuid.UUID,
	results []domain.ReviewResult,
) (*domain.SessionSummary, error) {
	const op = "submit_session_results"
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("learner_id", learnerID.String()))

	if learnerID == uuid.Nil {
		return nil, invalidArgument(op, "learner ID is required")
	}
	if len(results) == 0 {
		return nil, invalidArgument(op, "at least one result is required")
	}
	if len(results) > MaxResultsPerSubmission {
		return nil, invalidArgument(op, fmt.Sprintf("at most %d results per submission", MaxResultsPerSubmission))
	}
	for i, r := range results {
		if r.WordID == uuid.Nil {
			return nil, invalidArgument(op, fmt.Sprintf("result %d has no word ID", i))
		}
	}

	summary := &domain.SessionSummary{}
	var interrupted error
	for i, r := range results {
		res, err := s.recordReview(ctx, op, learnerID, r.WordID, r.Correct)
		if err != nil {
			// A stopped caller makes every further attempt fail the same way
			if ctxErr := ctx.Err(); ctxErr != nil {
				for _, rest := range results[i:] {
					summary.FailedWordIDs = append(summary.FailedWordIDs, rest.WordID)
				}
				interrupted = internal(op, "submission interrupted", ctxErr)
				break
			}
			sessionResultFailures.Inc()
			log.Warn("skipping session result",
				slog.String("word_id", r.WordID.String()),
				slog.String("error", err.Error()))
			summary.FailedWordIDs = append(summary.FailedWordIDs, r.WordID)
			continue
		}

		if r.Correct {
			summary.CorrectCount++
		} else {
			summary.IncorrectCount++
		}
		if !res.applied {
			continue
		}
		if r.Correct {
			summary.XPEarned += s.xp.PerCorrect
		} else {
			summary.XPEarned += s.xp.PerIncorrect
		}
		if res.newlyMastered() {
			summary.NewlyMastered++
			summary.XPEarned += s.xp.MasteryBonus
		}
	}

	summary.Total = summary.CorrectCount + summary.IncorrectCount
	if summary.Total > 0 {
		summary.Accuracy = float64(summary.CorrectCount) / float64(summary.Total)
	}

	if interrupted != nil {
		log.Warn("session submission interrupted",
			slog.Int("submitted", len(results)),
			slog.Int("saved", summary.Total),
			slog.Int("unprocessed", len(summary.FailedWordIDs)))
		return summary, interrupted
	}

	log.Info("session results submitted",
		slog.Int("submitted", len(results)),
		slog.Int("saved", summary.Total),
		slog.Int("failed", len(summary.FailedWordIDs)),
		slog.Int("newly_mastered", summary.NewlyMastered),
		slog.Int("xp_earned", summary.XPEarned))
	return summary, nil
}

// checkTopic maps an unknown topic to ErrNotFound.
func (s *scheduler) checkTopic(ctx context.Context, op string, topicID uuid.UUID) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if _, err := s.words.ListByTopic(sctx, topicID); err != nil {
		if errors.Is(err, store.ErrTopicNotFound) {
			return notFound(op, "topic not found", err)
		}
		return internal(op, "failed to look up topic", err)
	}
	return nil
}

func (s *scheduler) listUnstarted(
	ctx context.Context,
	learnerID uuid.UUID,
	topicID *uuid.UUID,
	limit int,
) ([]*domain.Word, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.words.ListUnstarted(sctx, learnerID, topicID, limit)
}

func (s *scheduler) listDue(
	ctx context.Context,
	learnerID uuid.UUID,
	topicID *uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.WordProgress, error) {
	if limit <= 0 {
		return nil, nil
	}
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.progress.ListDue(sctx, learnerID, store.DueQuery{Now: now, TopicID: topicID, Limit: limit})
}
