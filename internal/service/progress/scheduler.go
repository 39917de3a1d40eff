package progress

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/domain/srs"
	"github.com/phrazzld/lexis/internal/platform/keylock"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/store"
	"github.com/sethvargo/go-retry"
)

// Request bounds enforced before any state is touched.
const (
	MaxSessionWords         = 200
	MaxResultsPerSubmission = 500
)

// ReviewScheduler is the entry point of the progress engine.
type ReviewScheduler interface {
	// RecordReview applies one review attempt to the learner's progress on a
	// word and returns the stored record.
	//
	// Attempts on the same (learner, word) pair are serialized. A second
	// attempt on the same UTC day returns the stored record unchanged.
	//
	// Error Handling:
	//   - ErrInvalidArgument for nil IDs
	//   - ErrNotFound when the word does not exist
	//   - ErrConcurrencyConflict when another writer won twice in a row
	RecordReview(ctx context.Context, learnerID, wordID uuid.UUID, correct bool) (*domain.WordProgress, error)

	// GetProgress returns the learner's progress on a word, creating a NEW
	// record on first lookup.
	GetProgress(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error)

	// DueForReview returns up to limit due words, most overdue first.
	// limit must be within 1..store.MaxDueLimit.
	DueForReview(ctx context.Context, learnerID uuid.UUID, limit int) ([]*domain.WordProgress, error)

	// DueForReviewPage is DueForReview with a topic filter, offset paging,
	// the total count and the current retention of each item.
	DueForReviewPage(ctx context.Context, learnerID uuid.UUID, q DueQuery) (*DuePage, error)

	// BuildStudySession returns a snapshot of up to wordCount study items.
	BuildStudySession(
		ctx context.Context,
		learnerID uuid.UUID,
		topicID *uuid.UUID,
		mode domain.StudyMode,
		wordCount int,
	) ([]domain.StudyItem, error)

	// SubmitSessionResults records each result in order. A result that
	// fails is logged, listed in the summary and skipped. If ctx ends part
	// way, the summary of what was saved is returned with the error and the
	// unprocessed results are listed as failed.
	SubmitSessionResults(
		ctx context.Context,
		learnerID uuid.UUID,
		results []domain.ReviewResult,
	) (*domain.SessionSummary, error)

	// GetLearnerStatistics summarizes the learner's progress across topics.
	GetLearnerStatistics(ctx context.Context, learnerID uuid.UUID) (*domain.LearnerStatistics, error)
}

// DefaultStoreTimeout bounds a store call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// XPRules sets the experience points awarded by SubmitSessionResults.
type XPRules struct {
	PerCorrect   int
	PerIncorrect int
	MasteryBonus int
}

// DefaultXPRules returns the standard XP awards.
func DefaultXPRules() XPRules {
	return XPRules{PerCorrect: 10, PerIncorrect: 2, MasteryBonus: 50}
}

// Options configures a scheduler. Zero fields take the defaults noted.
type Options struct {
	// Clock is the source of "now". Defaults to time.Now.
	Clock func() time.Time
	// Rand drives the study session shuffle. Defaults to the global source.
	Rand *rand.Rand
	// StoreTimeout bounds each store call. Defaults to DefaultStoreTimeout.
	StoreTimeout time.Duration
	// LockShards is the size of the per-word lock table.
	LockShards int
	// RetryDelay is the pause before retrying a conflicting write. Defaults to 5ms.
	RetryDelay time.Duration
	XP         XPRules
}

// DefaultOptions returns Options with the default XP rules.
func DefaultOptions() Options {
	return Options{XP: DefaultXPRules()}
}

var _ ReviewScheduler = (*scheduler)(nil)

type scheduler struct {
	words     WordRepository
	progress  ProgressRepository
	srs       srs.Service
	refresher TopicRefresher
	locks     *keylock.Sharded

	clock        func() time.Time
	storeTimeout time.Duration
	retryDelay   time.Duration
	xp           XPRules

	randMu sync.Mutex
	rand   *rand.Rand

	logger *slog.Logger
}

// NewScheduler creates a ReviewScheduler.
func NewScheduler(
	words WordRepository,
	progress ProgressRepository,
	srsService srs.Service,
	refresher TopicRefresher,
	logger *slog.Logger,
	opts Options,
) ReviewScheduler {
	if words == nil {
		panic("words cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if refresher == nil {
		panic("refresher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Millisecond
	}

	return &scheduler{
		words:        words,
		progress:     progress,
		srs:          srsService,
		refresher:    refresher,
		locks:        keylock.New(opts.LockShards),
		clock:        opts.Clock,
		storeTimeout: opts.StoreTimeout,
		retryDelay:   opts.RetryDelay,
		xp:           opts.XP,
		rand:         opts.Rand,
		logger:       logger.With(slog.String("component", "review_scheduler")),
	}
}

// reviewResult is the outcome of one recorded attempt.
type reviewResult struct {
	progress  *domain.WordProgress
	priorTier domain.ProficiencyTier
	// applied is false when the same-day guard returned the stored record
	applied bool
}

func (r *reviewResult) newlyMastered() bool {
	return r.applied && r.priorTier != domain.TierMastered && r.progress.Tier == domain.TierMastered
}

// RecordReview implements ReviewScheduler.RecordReview.
func (s *scheduler) RecordReview(
	ctx context.Context,
	learnerID, wordID uuid.UUID,
	correct bool,
) (*domain.WordProgress, error) {
	res, err := s.recordReview(ctx, "record_review", learnerID, wordID, correct)
	if err != nil {
		return nil, err
	}
	return res.progress, nil
}

func (s *scheduler) recordReview(
	ctx context.Context,
	op string,
	learnerID, wordID uuid.UUID,
	correct bool,
) (*reviewResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("learner_id", learnerID.String()),
		slog.String("word_id", wordID.String()))

	if learnerID == uuid.Nil {
		return nil, invalidArgument(op, "learner ID is required")
	}
	if wordID == uuid.Nil {
		return nil, invalidArgument(op, "word ID is required")
	}

	word, err := s.lookupWord(ctx, op, wordID)
	if err != nil {
		return nil, err
	}

	res, err := s.applyReview(ctx, learnerID, wordID, correct)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Warn("review lost the version check twice")
			return nil, conflict(op, err)
		}
		log.Error("failed to record review", slog.String("error", err.Error()))
		return nil, internal(op, "failed to record review", err)
	}

	if !res.applied {
		reviewsRecorded.WithLabelValues("same_day").Inc()
		log.Debug("review ignored, word already reviewed today")
		return res, nil
	}

	if correct {
		reviewsRecorded.WithLabelValues("correct").Inc()
	} else {
		reviewsRecorded.WithLabelValues("incorrect").Inc()
	}

	// The word write has committed; a failed refresh only leaves the
	// rollup stale until the next one.
	if err := s.refresher.RefreshTopic(ctx, learnerID, word.TopicID); err != nil {
		log.Error("failed to refresh topic progress after review",
			slog.String("topic_id", word.TopicID.String()),
			slog.String("error", err.Error()))
	}

	log.Debug("review recorded",
		slog.Bool("correct", correct),
		slog.Float64("decay_rate", res.progress.DecayRate),
		slog.String("tier", string(res.progress.Tier)),
		slog.Time("next_review_at", *res.progress.NextReviewAt))
	return res, nil
}

// applyReview runs read, apply and write for one attempt under the word's
// lock. A write that loses the version check is retried once from a
// fresh read.
func (s *scheduler) applyReview(
	ctx context.Context,
	learnerID, wordID uuid.UUID,
	correct bool,
) (*reviewResult, error) {
	unlock := s.locks.LockPair(learnerID, wordID)
	defer unlock()

	at := s.clock()
	outcome := srs.Outcome{LearnerID: learnerID, WordID: wordID, Correct: correct, At: at}

	var res *reviewResult
	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		prior, err := s.loadProgress(ctx, learnerID, wordID)
		if err != nil {
			return err
		}

		next, err := s.srs.Apply(prior, outcome)
		if err != nil {
			return err
		}

		r := &reviewResult{priorTier: domain.TierNew}
		if prior != nil {
			r.priorTier = prior.Tier
			if next.Attempts() == prior.Attempts() {
				r.progress = prior
				res = r
				return nil
			}
		}

		stored, err := s.upsert(ctx, next)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				reviewConflicts.Inc()
				return retry.RetryableError(err)
			}
			return err
		}

		r.progress = stored
		r.applied = true
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetProgress implements ReviewScheduler.GetProgress.
func (s *scheduler) GetProgress(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error) {
	const op = "get_progress"
	log := logger.FromContextOrDefault(ctx, s.logger)

	if learnerID == uuid.Nil {
		return nil, invalidArgument(op, "learner ID is required")
	}
	if wordID == uuid.Nil {
		return nil, invalidArgument(op, "word ID is required")
	}
	if _, err := s.lookupWord(ctx, op, wordID); err != nil {
		return nil, err
	}

	unlock := s.locks.LockPair(learnerID, wordID)
	defer unlock()

	p, err := s.loadProgress(ctx, learnerID, wordID)
	if err != nil {
		log.Error("failed to load progress", slog.String("error", err.Error()))
		return nil, internal(op, "failed to load progress", err)
	}
	if p != nil {
		return p, nil
	}

	fresh, err := s.srs.NewProgress(learnerID, wordID, s.clock())
	if err != nil {
		return nil, internal(op, "failed to initialize progress", err)
	}
	stored, err := s.upsert(ctx, fresh)
	if errors.Is(err, store.ErrConflict) {
		// Another process created the record first
		stored, err = s.loadProgress(ctx, learnerID, wordID)
		if err == nil && stored == nil {
			err = store.ErrProgressNotFound
		}
	}
	if err != nil {
		log.Error("failed to create progress",
			slog.String("learner_id", learnerID.String()),
			slog.String("word_id", wordID.String()),
			slog.String("error", err.Error()))
		return nil, internal(op, "failed to create progress", err)
	}

	log.Debug("progress created on lookup",
		slog.String("learner_id", learnerID.String()),
		slog.String("word_id", wordID.String()))
	return stored, nil
}

// lookupWord fetches a word and maps a missing word to ErrNotFound.
func (s *scheduler) lookupWord(ctx context.Context, op string, wordID uuid.UUID) (*domain.Word, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	word, err := s.words.GetByID(sctx, wordID)
	if err != nil {
		if errors.Is(err, store.ErrWordNotFound) {
			return nil, notFound(op, "word not found", err)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to look up word",
			slog.String("word_id", wordID.String()),
			slog.String("error", err.Error()))
		return nil, internal(op, "failed to look up word", err)
	}
	return word, nil
}

// loadProgress returns nil, nil when the learner has no record for the word.
func (s *scheduler) loadProgress(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	p, err := s.progress.Get(sctx, learnerID, wordID)
	if errors.Is(err, store.ErrProgressNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *scheduler) upsert(ctx context.Context, p *domain.WordProgress) (*domain.WordProgress, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.progress.Upsert(sctx, p)
}

// shuffle permutes n items with a uniform Fisher-Yates shuffle.
func (s *scheduler) shuffle(n int, swap func(i, j int)) {
	if s.rand == nil {
		rand.Shuffle(n, swap)
		return
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand.Shuffle(n, swap)
}
