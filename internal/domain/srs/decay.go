package srs

import (
	"fmt"
	"math"
	"time"
)

// Names of the available decay models, as used in configuration.
const (
	ModelHalfLife = "halflife"
	ModelSM2      = "sm2"
)

// DecayState is the part of a progress record a DecayModel owns.
type DecayState struct {
	DecayRate    float64
	EaseFactor   float64
	IntervalDays int
}

// DecayModel turns a review outcome into a new decay state and a due date.
// The state machine around it (idempotency, counters, tiers) is shared by all
// models, so swapping models never forks the engine.
type DecayModel interface {
	// Name returns the configuration name of the model.
	Name() string

	// Next computes the decay state after a review. retention is the modeled
	// recall probability at the moment of the attempt and priorStreak the
	// learner's consecutive-correct count before it.
	Next(prior DecayState, retention float64, correct bool, priorStreak int, params *Params) DecayState

	// NextReviewAt returns when a word reviewed at "at" should be reviewed again.
	NextReviewAt(at time.Time, state DecayState, correct bool, params *Params) time.Time
}

// NewDecayModel returns the model registered under name.
func NewDecayModel(name string) (DecayModel, error) {
	switch name {
	case "", ModelHalfLife:
		return HalfLifeModel{}, nil
	case ModelSM2:
		return SM2Model{}, nil
	default:
		return nil, fmt.Errorf("unknown decay model %q", name)
	}
}

// HalfLifeModel is the canonical continuous model. The half-life grows on a
// correct answer by a boost of 1 + (1 - retention), so recalling a nearly
// forgotten word earns more than recalling a fresh one, and halves on a
// miss. The result is always clamped to [MinHalfLife, MaxHalfLife].
type HalfLifeModel struct{}

var _ DecayModel = HalfLifeModel{}

// Name implements DecayModel.
func (HalfLifeModel) Name() string { return ModelHalfLife }

// Next implements DecayModel.
func (HalfLifeModel) Next(prior DecayState, retention float64, correct bool, _ int, params *Params) DecayState {
	next := prior
	if correct {
		boost := 1 + (1 - retention)
		next.DecayRate = math.Min(prior.DecayRate*boost, params.MaxHalfLife)
	} else {
		next.DecayRate = math.Max(prior.DecayRate*0.5, params.MinHalfLife)
	}
	next.DecayRate = params.clampHalfLife(next.DecayRate)
	return next
}

// NextReviewAt implements DecayModel.
func (HalfLifeModel) NextReviewAt(at time.Time, state DecayState, _ bool, params *Params) time.Time {
	return NextDueDate(at, state.DecayRate, params.ReviewThreshold)
}
