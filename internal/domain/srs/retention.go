package srs

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// Retention returns the modeled probability, in [0, 1], that a word last
// reviewed at lastReviewedAt is still recalled at time at, given a half-life
// of decayRate days:
//
//	retention = exp(-ln2 * elapsedDays / decayRate)
//
// A word that was never reviewed has retention 0. Elapsed time before the last
// review (clock skew) counts as zero. decayRate is not clamped here; callers
// apply policy limits first. A non-positive decayRate panics.
func Retention(lastReviewedAt *time.Time, decayRate float64, at time.Time) float64 {
	mustPositiveDecay(decayRate)
	if lastReviewedAt == nil {
		return 0
	}

	elapsed := at.Sub(*lastReviewedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	elapsedDays := elapsed.Hours() / 24

	return math.Exp(-math.Ln2 * elapsedDays / decayRate)
}

// NextDueDate solves the decay equation for the moment retention falls to
// threshold and returns lastReviewedAt plus that many days:
//
//	elapsedDays = -decayRate * ln(threshold) / ln2
//
// With threshold 0.5 the word is due exactly one half-life after the review.
func NextDueDate(lastReviewedAt time.Time, decayRate, threshold float64) time.Time {
	mustPositiveDecay(decayRate)
	if !(threshold > 0 && threshold < 1) {
		// ALLOW-PANIC: threshold comes from validated Params
		panic(fmt.Sprintf("srs: review threshold must be in (0, 1), got %v", threshold))
	}

	elapsedDays := -decayRate * math.Log(threshold) / math.Ln2
	return lastReviewedAt.Add(time.Duration(math.Round(elapsedDays * float64(day))))
}

func mustPositiveDecay(decayRate float64) {
	if !(decayRate > 0) {
		// ALLOW-PANIC: a non-positive half-life is a caller bug, not a runtime condition
		panic(fmt.Sprintf("srs: decay rate must be positive, got %v", decayRate))
	}
}
