package srs

import "time"

// SM2Model is the discrete SuperMemo-2 variant kept for compatibility with
// records scheduled by the older algorithm. It tracks an ease factor and an
// integer interval; the decay rate mirrors the interval so tier derivation
// and due queries work unchanged.
type SM2Model struct{}

var _ DecayModel = SM2Model{}

// Name implements DecayModel.
func (SM2Model) Name() string { return ModelSM2 }

// Next implements DecayModel. The interval never exceeds params.MaxHalfLife
// days.
func (SM2Model) Next(prior DecayState, _ float64, correct bool, priorStreak int, params *Params) DecayState {
	next := prior
	next.EaseFactor = calculateNewEaseFactor(prior.EaseFactor, correct, params)
	next.IntervalDays = calculateNewInterval(prior.IntervalDays, priorStreak, next.EaseFactor, correct, params)
	if maxInterval := int(params.MaxHalfLife); next.IntervalDays > maxInterval {
		next.IntervalDays = maxInterval
	}
	next.DecayRate = params.clampHalfLife(float64(next.IntervalDays))
	return next
}

// NextReviewAt implements DecayModel.
//
// Failed reviews come back after params.AgainReviewMinutes; everything else
// after the interval in whole days.
func (SM2Model) NextReviewAt(at time.Time, state DecayState, correct bool, params *Params) time.Time {
	if !correct {
		return at.Add(time.Duration(params.AgainReviewMinutes) * time.Minute)
	}
	return at.AddDate(0, 0, state.IntervalDays)
}

// calculateNewEaseFactor applies the outcome adjustment and clamps the result
// to [params.MinEaseFactor, params.MaxEaseFactor].
func calculateNewEaseFactor(currentEF float64, correct bool, params *Params) float64 {
	adjustment := params.IncorrectEaseAdjustment
	if correct {
		adjustment = params.CorrectEaseAdjustment
	}
	newEF := currentEF + adjustment

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the new interval in days.
//
// Algorithm behavior:
//   - Incorrect: interval resets to 0 (review again in minutes)
//   - First review or after a reset: params.FirstReviewInterval
//   - Correct right after a lapse: interval * params.LapseIntervalModifier
//   - Otherwise: interval * ease factor
func calculateNewInterval(
	currentInterval int,
	consecutiveCorrect int,
	easeFactor float64,
	correct bool,
	params *Params,
) int {
	if !correct {
		return 0
	}

	if currentInterval == 0 {
		return params.FirstReviewInterval
	}

	if consecutiveCorrect == 0 {
		return int(float64(currentInterval) * params.LapseIntervalModifier)
	}

	return int(float64(currentInterval) * easeFactor)
}
