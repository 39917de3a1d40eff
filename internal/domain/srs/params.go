package srs

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when a Params value cannot drive the algorithm.
var ErrInvalidParams = errors.New("invalid srs params")

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Half-life limits and starting point, in days
	InitialHalfLife float64
	MinHalfLife     float64
	MaxHalfLife     float64

	// ReviewThreshold is the retention at which a word becomes due
	ReviewThreshold float64

	// Tier thresholds on the half-life, in days
	ReviewingThreshold float64
	MasteredThreshold  float64

	// SM-2 ease factor limits and adjustments
	MinEaseFactor           float64
	MaxEaseFactor           float64
	CorrectEaseAdjustment   float64
	IncorrectEaseAdjustment float64

	// SM-2 interval handling
	FirstReviewInterval   int
	LapseIntervalModifier float64
	AgainReviewMinutes    int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	InitialHalfLife float64
	MinHalfLife     float64
	MaxHalfLife     float64
	ReviewThreshold float64

	ReviewingThreshold float64
	MasteredThreshold  float64

	MinEaseFactor           float64
	MaxEaseFactor           float64
	CorrectEaseAdjustment   float64
	IncorrectEaseAdjustment float64

	FirstReviewInterval   int
	LapseIntervalModifier float64
	AgainReviewMinutes    int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		InitialHalfLife: 1.0,
		MinHalfLife:     1.0,
		MaxHalfLife:     365.0,

		// Review when the modeled recall probability drops to one half
		ReviewThreshold: 0.5,

		ReviewingThreshold: 7.0,
		MasteredThreshold:  30.0,

		MinEaseFactor:           1.3,
		MaxEaseFactor:           2.5,
		CorrectEaseAdjustment:   0.10,
		IncorrectEaseAdjustment: -0.20,

		FirstReviewInterval:   1,
		LapseIntervalModifier: 1.5,

		// Failed SM-2 reviews come back in 10 minutes
		AgainReviewMinutes: 10,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Override half-life settings if provided
	if config.InitialHalfLife > 0 {
		params.InitialHalfLife = config.InitialHalfLife
	}
	if config.MinHalfLife > 0 {
		params.MinHalfLife = config.MinHalfLife
	}
	if config.MaxHalfLife > 0 {
		params.MaxHalfLife = config.MaxHalfLife
	}
	if config.ReviewThreshold > 0 {
		params.ReviewThreshold = config.ReviewThreshold
	}

	// Override tier thresholds if provided
	if config.ReviewingThreshold > 0 {
		params.ReviewingThreshold = config.ReviewingThreshold
	}
	if config.MasteredThreshold > 0 {
		params.MasteredThreshold = config.MasteredThreshold
	}

	// Override SM-2 ease factor settings if provided
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}
	if config.CorrectEaseAdjustment != 0 {
		params.CorrectEaseAdjustment = config.CorrectEaseAdjustment
	}
	if config.IncorrectEaseAdjustment != 0 {
		params.IncorrectEaseAdjustment = config.IncorrectEaseAdjustment
	}

	// Override SM-2 interval settings if provided
	if config.FirstReviewInterval > 0 {
		params.FirstReviewInterval = config.FirstReviewInterval
	}
	if config.LapseIntervalModifier > 0 {
		params.LapseIntervalModifier = config.LapseIntervalModifier
	}
	if config.AgainReviewMinutes > 0 {
		params.AgainReviewMinutes = config.AgainReviewMinutes
	}

	return params
}

// Validate checks that the parameters are mutually consistent.
func (p *Params) Validate() error {
	switch {
	case p.MinHalfLife <= 0:
		return fmt.Errorf("%w: min half-life must be positive", ErrInvalidParams)
	case p.MaxHalfLife < p.MinHalfLife:
		return fmt.Errorf("%w: max half-life below min half-life", ErrInvalidParams)
	case p.InitialHalfLife < p.MinHalfLife || p.InitialHalfLife > p.MaxHalfLife:
		return fmt.Errorf("%w: initial half-life outside [min, max]", ErrInvalidParams)
	case p.ReviewThreshold <= 0 || p.ReviewThreshold >= 1:
		return fmt.Errorf("%w: review threshold must be in (0, 1)", ErrInvalidParams)
	case p.ReviewingThreshold <= 0 || p.MasteredThreshold < p.ReviewingThreshold:
		return fmt.Errorf("%w: tier thresholds must satisfy 0 < reviewing <= mastered", ErrInvalidParams)
	case p.MinEaseFactor < 1.3 || p.MaxEaseFactor < p.MinEaseFactor:
		return fmt.Errorf("%w: ease factor limits must satisfy 1.3 <= min <= max", ErrInvalidParams)
	}
	return nil
}

// clampHalfLife keeps a decay rate within [MinHalfLife, MaxHalfLife].
func (p *Params) clampHalfLife(d float64) float64 {
	if d < p.MinHalfLife {
		return p.MinHalfLife
	}
	if d > p.MaxHalfLife {
		return p.MaxHalfLife
	}
	return d
}
