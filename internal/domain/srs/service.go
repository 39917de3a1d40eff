package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
)

// Common errors
var (
	ErrInvalidOutcome  = errors.New("invalid review outcome")
	ErrInvalidProgress = errors.New("invalid word progress")
)

// Outcome is a single review attempt.
type Outcome struct {
	LearnerID uuid.UUID
	WordID    uuid.UUID
	Correct   bool
	At        time.Time
}

// Service defines the interface for SRS algorithm operations
type Service interface {
	// Apply computes the progress record that follows prior after outcome.
	// A nil prior starts a fresh record for outcome.LearnerID/WordID.
	// Apply has no side effects; the caller persists the result.
	Apply(prior *domain.WordProgress, outcome Outcome) (*domain.WordProgress, error)

	// NewProgress creates the record for a word the learner has never reviewed.
	NewProgress(learnerID, wordID uuid.UUID, at time.Time) (*domain.WordProgress, error)

	// Retention returns the current modeled recall probability of p.
	Retention(p *domain.WordProgress, at time.Time) float64

	// Params returns the parameters the service runs with.
	Params() *Params

	// Model returns the decay model the service runs with.
	Model() DecayModel
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
	model  DecayModel
}

// NewDefaultService creates a new SRS service with default parameters and the
// half-life decay model
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
		model:  HalfLifeModel{},
	}
}

// NewService creates a new SRS service with custom parameters and decay model.
// A nil model selects the half-life model.
func NewService(params *Params, model DecayModel) (Service, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		model = HalfLifeModel{}
	}
	return &defaultService{
		params: params,
		model:  model,
	}, nil
}

// Apply implements the Service interface
func (s *defaultService) Apply(prior *domain.WordProgress, outcome Outcome) (*domain.WordProgress, error) {
	if outcome.At.IsZero() {
		return nil, fmt.Errorf("%w: attempt time is required", ErrInvalidOutcome)
	}

	if prior == nil {
		fresh, err := s.NewProgress(outcome.LearnerID, outcome.WordID, outcome.At)
		if err != nil {
			return nil, err
		}
		prior = fresh
	} else {
		if err := prior.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProgress, err)
		}
		if (outcome.LearnerID != uuid.Nil && outcome.LearnerID != prior.LearnerID) ||
			(outcome.WordID != uuid.Nil && outcome.WordID != prior.WordID) {
			return nil, fmt.Errorf("%w: outcome does not belong to this progress record", ErrInvalidOutcome)
		}
	}

	return calculateNextProgress(prior, outcome.Correct, outcome.At, s.model, s.params), nil
}

// NewProgress implements the Service interface
func (s *defaultService) NewProgress(learnerID, wordID uuid.UUID, at time.Time) (*domain.WordProgress, error) {
	p, err := domain.NewWordProgress(learnerID, wordID, s.params.InitialHalfLife, at)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutcome, err)
	}
	return p, nil
}

// Retention implements the Service interface
func (s *defaultService) Retention(p *domain.WordProgress, at time.Time) float64 {
	if p == nil {
		return 0
	}
	return Retention(p.LastReviewedAt, p.DecayRate, at)
}

// Params implements the Service interface
func (s *defaultService) Params() *Params {
	return s.params
}

// Model implements the Service interface
func (s *defaultService) Model() DecayModel {
	return s.model
}
