package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewedProgress(t *testing.T, decayRate float64, lastReviewed time.Time) *domain.WordProgress {
	t.Helper()
	p, err := domain.NewWordProgress(uuid.New(), uuid.New(), decayRate, lastReviewed.Add(-30*day))
	require.NoError(t, err)
	next := lastReviewed.Add(time.Duration(decayRate * float64(day)))
	p.LastReviewedAt = &lastReviewed
	p.NextReviewAt = &next
	p.Tier = deriveTier(decayRate, NewDefaultParams())
	p.CorrectCount = 4
	p.IncorrectCount = 1
	p.CurrentStreak = 3
	p.BestStreak = 5
	return p
}

func TestNewDefaultService(t *testing.T) {
	t.Parallel() // Enable parallel execution
	service := NewDefaultService()
	require.NotNil(t, service)

	defaultService, ok := service.(*defaultService)
	require.True(t, ok, "Expected *defaultService type")
	assert.NotNil(t, defaultService.params)
	assert.Equal(t, ModelHalfLife, service.Model().Name())
}

func TestNewServiceRejectsInvalidParams(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	params.MinHalfLife = 10
	params.MaxHalfLife = 5

	_, err := NewService(params, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestApplyFirstReviewCorrect(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	learnerID, wordID := uuid.New(), uuid.New()
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	got, err := service.Apply(nil, Outcome{LearnerID: learnerID, WordID: wordID, Correct: true, At: at})
	require.NoError(t, err)

	assert.Equal(t, learnerID, got.LearnerID)
	assert.Equal(t, wordID, got.WordID)
	assert.InDelta(t, 2.0, got.DecayRate, 1e-9) // boost = 1 + (1 - 0)
	assert.Equal(t, domain.TierLearning, got.Tier)
	require.NotNil(t, got.LastReviewedAt)
	require.NotNil(t, got.NextReviewAt)
	assert.Equal(t, at, *got.LastReviewedAt)
	assert.WithinDuration(t, at.Add(48*time.Hour), *got.NextReviewAt, time.Millisecond)
	assert.Equal(t, at, got.FirstLearnedAt)
	assert.Equal(t, 1, got.CorrectCount)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 1, got.BestStreak)
	assert.Nil(t, got.MasteredAt)
}

func TestApplyFirstReviewIncorrect(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	got, err := service.Apply(nil, Outcome{LearnerID: uuid.New(), WordID: uuid.New(), Correct: false, At: at})
	require.NoError(t, err)

	assert.Equal(t, 1.0, got.DecayRate) // 1.0 * 0.5 clamped to the minimum
	assert.Equal(t, domain.TierLearning, got.Tier)
	assert.Equal(t, 1, got.IncorrectCount)
	assert.Equal(t, 0, got.CurrentStreak)
}

func TestApplyIncorrectHalvesDecayRate(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	last := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	prior := reviewedProgress(t, 10, last)

	got, err := service.Apply(prior, Outcome{Correct: false, At: last.Add(3 * day)})
	require.NoError(t, err)

	assert.Equal(t, 5.0, got.DecayRate)
	assert.Equal(t, 0, got.CurrentStreak)
	assert.Equal(t, 5, got.BestStreak)
	assert.Equal(t, 2, got.IncorrectCount)
	assert.Equal(t, 4, got.CorrectCount)
	assert.Equal(t, domain.TierLearning, got.Tier)

	// The prior record is not modified
	assert.Equal(t, 10.0, prior.DecayRate)
	assert.Equal(t, 3, prior.CurrentStreak)
}

func TestApplySameDayIsIdempotent(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	last := time.Date(2026, 6, 1, 0, 5, 0, 0, time.UTC)
	prior := reviewedProgress(t, 4, last)

	for _, tc := range []struct {
		name    string
		at      time.Time
		correct bool
	}{
		{"Later the same day, correct", last.Add(20 * time.Hour), true},
		{"Later the same day, incorrect", last.Add(23*time.Hour + 50*time.Minute), false},
		{"Same instant", last, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := service.Apply(prior, Outcome{Correct: tc.correct, At: tc.at})
			require.NoError(t, err)
			assert.Equal(t, prior, got)
			assert.NotSame(t, prior, got)
		})
	}

	// One minute past midnight UTC is a new day
	got, err := service.Apply(prior, Outcome{Correct: true, At: time.Date(2026, 6, 2, 0, 1, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, prior.CorrectCount+1, got.CorrectCount)
}

func TestApplySameDayUsesUTC(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	last := time.Date(2026, 6, 1, 23, 0, 0, 0, time.UTC)
	prior := reviewedProgress(t, 4, last)

	// 01:30 in UTC+3 on June 2nd is still June 1st in UTC
	loc := time.FixedZone("UTC+3", 3*60*60)
	got, err := service.Apply(prior, Outcome{Correct: true, At: time.Date(2026, 6, 2, 1, 30, 0, 0, loc)})
	require.NoError(t, err)
	assert.Equal(t, prior, got)
}

func TestApplyCorrectSequenceNonDecreasing(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	params := service.Params()
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	p, err := service.Apply(nil, Outcome{LearnerID: uuid.New(), WordID: uuid.New(), Correct: true, At: at})
	require.NoError(t, err)

	var masteredAt *time.Time
	for i := 0; i < 40; i++ {
		// Review exactly when due, or the next day if due the same day
		nextAt := *p.NextReviewAt
		if domain.SameUTCDay(nextAt, *p.LastReviewedAt) {
			nextAt = domain.StartOfUTCDay(nextAt).Add(day)
		}
		next, err := service.Apply(p, Outcome{Correct: true, At: nextAt})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, next.DecayRate, p.DecayRate)
		assert.LessOrEqual(t, next.DecayRate, params.MaxHalfLife)
		assert.GreaterOrEqual(t, next.CorrectCount+next.IncorrectCount, p.CorrectCount+p.IncorrectCount)

		if next.Tier == domain.TierMastered && masteredAt == nil {
			require.NotNil(t, next.MasteredAt)
			masteredAt = next.MasteredAt
		}
		p = next
	}

	assert.Equal(t, params.MaxHalfLife, p.DecayRate)
	assert.Equal(t, domain.TierMastered, p.Tier)
	require.NotNil(t, masteredAt)
	assert.Equal(t, *masteredAt, *p.MasteredAt, "MasteredAt is stamped only once")
}

func TestApplyIncorrectSequenceStrictlyDecreasing(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	params := service.Params()
	last := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	p := reviewedProgress(t, 200, last)

	at := last
	for p.DecayRate > params.MinHalfLife {
		at = at.Add(day)
		next, err := service.Apply(p, Outcome{Correct: false, At: at})
		require.NoError(t, err)
		assert.Less(t, next.DecayRate, p.DecayRate)
		assert.GreaterOrEqual(t, next.DecayRate, params.MinHalfLife)
		p = next
	}

	at = at.Add(day)
	floor, err := service.Apply(p, Outcome{Correct: false, At: at})
	require.NoError(t, err)
	assert.Equal(t, params.MinHalfLife, floor.DecayRate)
}

func TestApplyMasteredAtSurvivesRegression(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	prior := reviewedProgress(t, 40, last)
	masteredAt := last.Add(-10 * day)
	prior.MasteredAt = &masteredAt

	regressed, err := service.Apply(prior, Outcome{Correct: false, At: last.Add(5 * day)})
	require.NoError(t, err)
	assert.Equal(t, domain.TierReviewing, regressed.Tier) // 40 → 20
	require.NotNil(t, regressed.MasteredAt)
	assert.Equal(t, masteredAt, *regressed.MasteredAt)

	again, err := service.Apply(regressed, Outcome{Correct: false, At: last.Add(6 * day)})
	require.NoError(t, err)
	again, err = service.Apply(again, Outcome{Correct: false, At: last.Add(7 * day)})
	require.NoError(t, err)
	assert.Equal(t, domain.TierLearning, again.Tier) // 20 → 10 → 5
	require.NotNil(t, again.MasteredAt)
	assert.Equal(t, masteredAt, *again.MasteredAt)
}

func TestApplyRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	service := NewDefaultService()
	at := time.Now().UTC()

	_, err := service.Apply(nil, Outcome{LearnerID: uuid.New(), WordID: uuid.New(), Correct: true})
	assert.ErrorIs(t, err, ErrInvalidOutcome, "zero attempt time")

	_, err = service.Apply(nil, Outcome{WordID: uuid.New(), Correct: true, At: at})
	assert.ErrorIs(t, err, ErrInvalidOutcome, "missing learner")

	bad := reviewedProgress(t, 3, at.Add(-48*time.Hour))
	bad.DecayRate = -1
	_, err = service.Apply(bad, Outcome{Correct: true, At: at})
	assert.ErrorIs(t, err, ErrInvalidProgress)

	other := reviewedProgress(t, 3, at.Add(-48*time.Hour))
	_, err = service.Apply(other, Outcome{LearnerID: uuid.New(), Correct: true, At: at})
	assert.ErrorIs(t, err, ErrInvalidOutcome, "foreign learner")
}

func TestApplyWithSM2Model(t *testing.T) {
	t.Parallel()
	service, err := NewService(NewDefaultParams(), SM2Model{})
	require.NoError(t, err)
	at := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	p, err := service.Apply(nil, Outcome{LearnerID: uuid.New(), WordID: uuid.New(), Correct: true, At: at})
	require.NoError(t, err)
	assert.Equal(t, 1, p.IntervalDays)
	assert.Equal(t, domain.TierLearning, p.Tier)
	assert.Equal(t, at.AddDate(0, 0, 1), *p.NextReviewAt)

	p, err = service.Apply(p, Outcome{Correct: false, At: at.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 0, p.IntervalDays)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, at.AddDate(0, 0, 1).Add(10*time.Minute), *p.NextReviewAt)
}
