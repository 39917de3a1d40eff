package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/domain/srs"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/platform/memory"
	"github.com/phrazzld/lexis/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerPanicsOnNilDeps(t *testing.T) {
	t.Parallel()
	st := memory.NewStore()
	svc := srs.NewDefaultService()
	refresher := &mockRefresher{}

	assert.Panics(t, func() { NewScheduler(nil, st, svc, refresher, nil, Options{}) })
	assert.Panics(t, func() { NewScheduler(st, nil, svc, refresher, nil, Options{}) })
	assert.Panics(t, func() { NewScheduler(st, st, nil, refresher, nil, Options{}) })
	assert.Panics(t, func() { NewScheduler(st, st, svc, nil, nil, Options{}) })
	assert.NotPanics(t, func() { NewScheduler(st, st, svc, refresher, nil, Options{}) })
}

func TestRecordReviewFirstCorrect(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t)
	f.addWord(t)

	p, err := f.sched.RecordReview(ctx, f.learner, w.ID, true)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, p.DecayRate, 1e-9)
	assert.Equal(t, domain.TierLearning, p.Tier)
	assert.Equal(t, baseTime, *p.LastReviewedAt)
	assert.WithinDuration(t, baseTime.Add(48*time.Hour), *p.NextReviewAt, time.Millisecond)
	assert.Equal(t, baseTime, p.FirstLearnedAt)
	assert.Equal(t, int64(1), p.Version)

	// The topic rollup is refreshed synchronously
	topics, err := f.store.ListTopicProgress(ctx, f.learner)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, 2, topics[0].TotalWords)
	assert.Equal(t, 1, topics[0].LearnedWords)
	assert.Equal(t, 1, topics[0].LearningWords)
}

func TestRecordReviewSameDayGivesNoDoubleCredit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t)

	first, err := f.sched.RecordReview(ctx, f.learner, w.ID, true)
	require.NoError(t, err)

	f.clock.Advance(6 * time.Hour)
	second, err := f.sched.RecordReview(ctx, f.learner, w.ID, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := f.store.Get(ctx, f.learner, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts())
	assert.Equal(t, int64(1), stored.Version)

	// The next UTC day counts again
	f.clock.Advance(day)
	third, err := f.sched.RecordReview(ctx, f.learner, w.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, third.IncorrectCount)
	assert.Equal(t, 0, third.CurrentStreak)
	assert.Equal(t, 1, third.BestStreak)
	assert.Equal(t, int64(2), third.Version)
}

func TestRecordReviewIncorrectHalvesDecay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	w := f.addWord(t)
	f.seedReviewed(t, w.ID, 10, baseTime.Add(-4*day), baseTime.Add(6*day), domain.TierReviewing)

	p, err := f.sched.RecordReview(context.Background(), f.learner, w.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 5.0, p.DecayRate)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 3, p.BestStreak)
	assert.Equal(t, domain.TierLearning, p.Tier)
}

func TestRecordReviewValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t)

	testCases := []struct {
		name      string
		learnerID uuid.UUID
		wordID    uuid.UUID
		kind      error
	}{
		{"Missing learner", uuid.Nil, w.ID, ErrInvalidArgument},
		{"Missing word", f.learner, uuid.Nil, ErrInvalidArgument},
		{"Unknown word", f.learner, uuid.New(), ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.sched.RecordReview(ctx, tc.learnerID, tc.wordID, true)
			assert.ErrorIs(t, err, tc.kind)
		})
	}

	all, err := f.store.ListForLearner(ctx, f.learner)
	require.NoError(t, err)
	assert.Empty(t, all, "rejected reviews write nothing")
}

func TestRecordReviewConcurrentSameWordSerializes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sched.RecordReview(ctx, f.learner, w.ID, true)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	stored, err := f.store.Get(ctx, f.learner, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CorrectCount)
	assert.Equal(t, int64(1), stored.Version)
}

func TestRecordReviewConcurrentDifferentWords(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	words := make([]*domain.Word, 16)
	for i := range words {
		words[i] = f.addWord(t)
	}

	var wg sync.WaitGroup
	for _, w := range words {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.sched.RecordReview(ctx, f.learner, id, true)
			assert.NoError(t, err)
		}(w.ID)
	}
	wg.Wait()

	all, err := f.store.ListForLearner(ctx, f.learner)
	require.NoError(t, err)
	assert.Len(t, all, len(words))

	tp, err := f.agg.Refresh(ctx, f.learner, f.topic)
	require.NoError(t, err)
	assert.Equal(t, len(words), tp.LearnedWords)
	assert.Equal(t, len(words), tp.LearningWords)
}

func TestRecordReviewRetriesConflictOnce(t *testing.T) {
	t.Parallel()
	st := memory.NewStore()
	learner := uuid.New()
	w := &domain.Word{ID: uuid.New(), TopicID: uuid.New(), Active: true}
	require.NoError(t, st.PutWord(w))

	// Another process created the record between our read and our write
	last, next := baseTime.Add(-3*day), baseTime.Add(-day)
	theirs, err := domain.NewWordProgress(learner, w.ID, 2, last)
	require.NoError(t, err)
	theirs.LastReviewedAt, theirs.NextReviewAt, theirs.Tier = &last, &next, domain.TierLearning
	theirs.CorrectCount, theirs.CurrentStreak, theirs.BestStreak = 1, 1, 1
	theirs.Version = 1

	stored := theirs.Clone()
	stored.CorrectCount, stored.CurrentStreak, stored.BestStreak = 2, 2, 2
	stored.Version = 2

	progress := &mockProgressRepository{}
	progress.On("Get", mock.Anything, learner, w.ID).Return(nil, store.ErrProgressNotFound).Once()
	progress.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.WordProgress) bool {
		return p.Version == 0
	})).Return(nil, store.ErrConflict).Once()
	progress.On("Get", mock.Anything, learner, w.ID).Return(theirs, nil).Once()
	progress.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.WordProgress) bool {
		return p.Version == 1 && p.CorrectCount == 2
	})).Return(stored, nil).Once()

	refresher := &mockRefresher{}
	refresher.On("RefreshTopic", mock.Anything, learner, w.TopicID).Return(nil).Once()

	opts := Options{Clock: func() time.Time { return baseTime }, RetryDelay: time.Millisecond}
	sched := NewScheduler(st, progress, srs.NewDefaultService(), refresher, discardLogger(), opts)

	p, err := sched.RecordReview(context.Background(), learner, w.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Version)
	assert.Equal(t, 2, p.CorrectCount)

	progress.AssertExpectations(t)
	refresher.AssertExpectations(t)
}

func TestRecordReviewSurfacesRepeatedConflict(t *testing.T) {
	t.Parallel()
	st := memory.NewStore()
	learner := uuid.New()
	w := &domain.Word{ID: uuid.New(), TopicID: uuid.New(), Active: true}
	require.NoError(t, st.PutWord(w))

	progress := &mockProgressRepository{}
	progress.On("Get", mock.Anything, learner, w.ID).Return(nil, store.ErrProgressNotFound).Times(2)
	progress.On("Upsert", mock.Anything, mock.Anything).Return(nil, store.ErrConflict).Times(2)
	refresher := &mockRefresher{}

	opts := Options{RetryDelay: time.Millisecond}
	sched := NewScheduler(st, progress, srs.NewDefaultService(), refresher, discardLogger(), opts)

	_, err := sched.RecordReview(context.Background(), learner, w.ID, true)
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.ErrorIs(t, err, store.ErrConflict)

	progress.AssertExpectations(t)
	refresher.AssertNotCalled(t, "RefreshTopic", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordReviewRefreshFailureIsLoggedNotReturned(t *testing.T) {
	t.Parallel()
	st := memory.NewStore()
	learner := uuid.New()
	w := &domain.Word{ID: uuid.New(), TopicID: uuid.New(), Active: true}
	require.NoError(t, st.PutWord(w))

	refresher := &mockRefresher{}
	refresher.On("RefreshTopic", mock.Anything, learner, w.TopicID).Return(errors.New("rollup store down"))

	sched := NewScheduler(st, st, srs.NewDefaultService(), refresher, discardLogger(), Options{})
	ctx, logBuf := logger.NewLogCaptureContext(t)

	p, err := sched.RecordReview(ctx, learner, w.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CorrectCount)

	logger.AssertLogContains(t, logBuf, "failed to refresh topic progress after review")
	logger.AssertLogContains(t, logBuf, "rollup store down")
}

func TestRecordReviewStoreFailure(t *testing.T) {
	t.Parallel()
	st := memory.NewStore()
	learner := uuid.New()
	w := &domain.Word{ID: uuid.New(), TopicID: uuid.New(), Active: true}
	require.NoError(t, st.PutWord(w))
	dbErr := errors.New("connection refused")

	progress := &mockProgressRepository{}
	progress.On("Get", mock.Anything, learner, w.ID).Return(nil, dbErr).Once()

	sched := NewScheduler(st, progress, srs.NewDefaultService(), &mockRefresher{}, discardLogger(), Options{})
	_, err := sched.RecordReview(context.Background(), learner, w.ID, true)

	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrConcurrencyConflict)
	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "record_review", serviceErr.Operation)
}

func TestGetProgressCreatesOnFirstLookup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t)

	p, err := f.sched.GetProgress(ctx, f.learner, w.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierNew, p.Tier)
	assert.Equal(t, 1.0, p.DecayRate)
	assert.Nil(t, p.LastReviewedAt)
	assert.Nil(t, p.NextReviewAt)
	assert.Equal(t, int64(1), p.Version)

	again, err := f.sched.GetProgress(ctx, f.learner, w.ID)
	require.NoError(t, err)
	assert.Equal(t, p, again)

	// A NEW record is still offered as a new word
	items, err := f.sched.BuildStudySession(ctx, f.learner, nil, domain.StudyModeNew, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, w.ID, items[0].WordID)

	// The first review advances the looked-up record
	reviewed, err := f.sched.RecordReview(ctx, f.learner, w.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reviewed.Version)
	assert.Equal(t, domain.TierLearning, reviewed.Tier)
}

func TestGetProgressValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.sched.GetProgress(context.Background(), uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.sched.GetProgress(context.Background(), f.learner, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDueForReview(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	yesterday := f.addWord(t)
	today := f.addWord(t)
	tomorrow := f.addWord(t)
	f.seedReviewed(t, yesterday.ID, 2, baseTime.Add(-3*day), baseTime.Add(-day), domain.TierLearning)
	f.seedReviewed(t, today.ID, 2, baseTime.Add(-2*day), baseTime.Add(-time.Hour), domain.TierLearning)
	f.seedReviewed(t, tomorrow.ID, 2, baseTime.Add(-day), baseTime.Add(day), domain.TierLearning)

	due, err := f.sched.DueForReview(ctx, f.learner, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, yesterday.ID, due[0].WordID)
	assert.Equal(t, today.ID, due[1].WordID)

	limited, err := f.sched.DueForReview(ctx, f.learner, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, yesterday.ID, limited[0].WordID)

	// Reviewing a due word removes it for the rest of the day
	_, err = f.sched.RecordReview(ctx, f.learner, yesterday.ID, false)
	require.NoError(t, err)
	due, err = f.sched.DueForReview(ctx, f.learner, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, today.ID, due[0].WordID)
}

func TestDueForReviewValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for _, limit := range []int{-1, 0, store.MaxDueLimit + 1} {
		_, err := f.sched.DueForReview(ctx, f.learner, limit)
		assert.ErrorIs(t, err, ErrInvalidArgument, "limit %d", limit)
	}
	_, err := f.sched.DueForReview(ctx, uuid.Nil, 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	due, err := f.sched.DueForReview(ctx, f.learner, store.MaxDueLimit)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDueForReviewPage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	otherTopic := uuid.New()

	a := f.addWord(t)
	b := f.addWord(t)
	c := f.addWordTo(t, otherTopic)
	f.seedReviewed(t, a.ID, 4, baseTime.Add(-8*day), baseTime.Add(-4*day), domain.TierLearning)
	f.seedReviewed(t, b.ID, 3, baseTime.Add(-6*day), baseTime.Add(-2*day), domain.TierLearning)
	f.seedReviewed(t, c.ID, 4, baseTime.Add(-5*day), baseTime.Add(-day), domain.TierLearning)

	page, err := f.sched.DueForReviewPage(ctx, f.learner, DueQuery{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 1, page.Offset)
	require.Len(t, page.Items, 2)
	assert.Equal(t, b.ID, page.Items[0].Progress.WordID)
	assert.Equal(t, c.ID, page.Items[1].Progress.WordID)
	// Two half-lives since b's last review
	assert.InDelta(t, 0.25, page.Items[0].Retention, 1e-9)

	filtered, err := f.sched.DueForReviewPage(ctx, f.learner, DueQuery{TopicID: &otherTopic, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Total)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, c.ID, filtered.Items[0].Progress.WordID)

	_, err = f.sched.DueForReviewPage(ctx, f.learner, DueQuery{Limit: 10, Offset: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	nilTopic := uuid.Nil
	_, err = f.sched.DueForReviewPage(ctx, f.learner, DueQuery{Limit: 10, TopicID: &nilTopic})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
