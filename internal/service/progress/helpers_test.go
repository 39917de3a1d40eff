package progress

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/domain/srs"
	"github.com/phrazzld/lexis/internal/platform/memory"
	"github.com/phrazzld/lexis/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store   *memory.Store
	clock   *fakeClock
	agg     *Aggregator
	sched   ReviewScheduler
	learner uuid.UUID
	topic   uuid.UUID
	created int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithSeed(t, 1)
}

func newFixtureWithSeed(t *testing.T, seed uint64) *fixture {
	t.Helper()
	st := memory.NewStore()
	clock := &fakeClock{now: baseTime}
	agg := NewAggregator(st, st, clock.Now, 0, discardLogger())

	opts := DefaultOptions()
	opts.Clock = clock.Now
	opts.Rand = rand.New(rand.NewPCG(seed, seed+1))
	opts.RetryDelay = time.Millisecond

	return &fixture{
		store:   st,
		clock:   clock,
		agg:     agg,
		sched:   NewScheduler(st, st, srs.NewDefaultService(), agg, discardLogger(), opts),
		learner: uuid.New(),
		topic:   uuid.New(),
	}
}

// addWord adds an active word to the fixture topic, in creation order.
func (f *fixture) addWord(t *testing.T) *domain.Word {
	t.Helper()
	return f.addWordTo(t, f.topic)
}

func (f *fixture) addWordTo(t *testing.T, topicID uuid.UUID) *domain.Word {
	t.Helper()
	f.created++
	w := &domain.Word{
		ID:        uuid.New(),
		TopicID:   topicID,
		Term:      "term",
		Active:    true,
		CreatedAt: baseTime.Add(-time.Duration(1000-f.created) * time.Minute),
	}
	require.NoError(t, f.store.PutWord(w))
	return w
}

// seedReviewed stores a reviewed progress record for the fixture learner.
func (f *fixture) seedReviewed(
	t *testing.T,
	wordID uuid.UUID,
	decayRate float64,
	last, next time.Time,
	tier domain.ProficiencyTier,
) *domain.WordProgress {
	t.Helper()
	p, err := domain.NewWordProgress(f.learner, wordID, decayRate, last.Add(-10*day))
	require.NoError(t, err)
	p.LastReviewedAt = &last
	p.NextReviewAt = &next
	p.Tier = tier
	p.CorrectCount = 3
	p.IncorrectCount = 1
	p.CurrentStreak = 2
	p.BestStreak = 3
	stored, err := f.store.Upsert(context.Background(), p)
	require.NoError(t, err)
	return stored
}

type mockWordRepository struct {
	mock.Mock
}

func (m *mockWordRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Word, error) {
	args := m.Called(ctx, id)
	w, _ := args.Get(0).(*domain.Word)
	return w, args.Error(1)
}

func (m *mockWordRepository) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]*domain.Word, error) {
	args := m.Called(ctx, topicID)
	w, _ := args.Get(0).([]*domain.Word)
	return w, args.Error(1)
}

func (m *mockWordRepository) ListUnstarted(
	ctx context.Context,
	learnerID uuid.UUID,
	topicID *uuid.UUID,
	limit int,
) ([]*domain.Word, error) {
	args := m.Called(ctx, learnerID, topicID, limit)
	w, _ := args.Get(0).([]*domain.Word)
	return w, args.Error(1)
}

type mockProgressRepository struct {
	mock.Mock
}

func (m *mockProgressRepository) Get(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error) {
	args := m.Called(ctx, learnerID, wordID)
	p, _ := args.Get(0).(*domain.WordProgress)
	return p, args.Error(1)
}

func (m *mockProgressRepository) Upsert(ctx context.Context, p *domain.WordProgress) (*domain.WordProgress, error) {
	args := m.Called(ctx, p)
	stored, _ := args.Get(0).(*domain.WordProgress)
	return stored, args.Error(1)
}

func (m *mockProgressRepository) ListForTopic(
	ctx context.Context,
	learnerID, topicID uuid.UUID,
) ([]*domain.WordProgress, error) {
	args := m.Called(ctx, learnerID, topicID)
	p, _ := args.Get(0).([]*domain.WordProgress)
	return p, args.Error(1)
}

func (m *mockProgressRepository) ListForLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.WordProgress, error) {
	args := m.Called(ctx, learnerID)
	p, _ := args.Get(0).([]*domain.WordProgress)
	return p, args.Error(1)
}

func (m *mockProgressRepository) ListDue(
	ctx context.Context,
	learnerID uuid.UUID,
	q store.DueQuery,
) ([]*domain.WordProgress, error) {
	args := m.Called(ctx, learnerID, q)
	p, _ := args.Get(0).([]*domain.WordProgress)
	return p, args.Error(1)
}

func (m *mockProgressRepository) CountDue(ctx context.Context, learnerID uuid.UUID, q store.DueQuery) (int, error) {
	args := m.Called(ctx, learnerID, q)
	return args.Int(0), args.Error(1)
}

func (m *mockProgressRepository) UpsertTopicProgress(ctx context.Context, tp *domain.TopicProgress) error {
	args := m.Called(ctx, tp)
	return args.Error(0)
}

func (m *mockProgressRepository) ListTopicProgress(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*domain.TopicProgress, error) {
	args := m.Called(ctx, learnerID)
	tp, _ := args.Get(0).([]*domain.TopicProgress)
	return tp, args.Error(1)
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshTopic(ctx context.Context, learnerID, topicID uuid.UUID) error {
	args := m.Called(ctx, learnerID, topicID)
	return args.Error(0)
}
