package srs

import (
	"time"

	"github.com/phrazzld/lexis/internal/domain"
)

// deriveTier maps a post-review decay rate onto a proficiency tier.
//
// NEW is never returned: a reviewed word is at least LEARNING, and a word can
// regress from REVIEWING or MASTERED back toward LEARNING but not to NEW.
func deriveTier(decayRate float64, params *Params) domain.ProficiencyTier {
	switch {
	case decayRate >= params.MasteredThreshold:
		return domain.TierMastered
	case decayRate >= params.ReviewingThreshold:
		return domain.TierReviewing
	default:
		return domain.TierLearning
	}
}

// calculateNextProgress creates a new WordProgress with updated values based
// on a review outcome. The prior record is never modified.
//
// Algorithm behavior:
//   - A prior reviewed on the same UTC calendar day as the attempt is returned
//     unchanged, so repeated answers within a day earn nothing
//   - Retention at the attempt feeds the decay model
//   - Correct answers extend the streak; incorrect ones reset it
//   - The tier is derived from the new decay rate; MasteredAt is stamped on
//     the first entry into MASTERED and never cleared afterwards
func calculateNextProgress(
	prior *domain.WordProgress,
	correct bool,
	at time.Time,
	model DecayModel,
	params *Params,
) *domain.WordProgress {
	if prior.LastReviewedAt != nil && domain.SameUTCDay(*prior.LastReviewedAt, at) {
		return prior.Clone()
	}

	next := prior.Clone()
	at = at.UTC()

	retention := Retention(prior.LastReviewedAt, prior.DecayRate, at)

	state := model.Next(DecayState{
		DecayRate:    prior.DecayRate,
		EaseFactor:   prior.EaseFactor,
		IntervalDays: prior.IntervalDays,
	}, retention, correct, prior.CurrentStreak, params)

	next.DecayRate = state.DecayRate
	next.EaseFactor = state.EaseFactor
	next.IntervalDays = state.IntervalDays

	if correct {
		next.CorrectCount++
		next.CurrentStreak++
		if next.CurrentStreak > next.BestStreak {
			next.BestStreak = next.CurrentStreak
		}
	} else {
		next.IncorrectCount++
		next.CurrentStreak = 0
	}

	reviewedAt := at
	nextReviewAt := model.NextReviewAt(at, state, correct, params).UTC()
	next.LastReviewedAt = &reviewedAt
	next.NextReviewAt = &nextReviewAt

	next.Tier = deriveTier(next.DecayRate, params)
	if next.Tier == domain.TierMastered && next.MasteredAt == nil {
		masteredAt := at
		next.MasteredAt = &masteredAt
	}

	next.UpdatedAt = at

	return next
}
