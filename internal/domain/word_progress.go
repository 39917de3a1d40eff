package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProficiencyTier is the coarse mastery bucket a word is in for a learner.
// It is always derived from the decay state and never set by a client.
type ProficiencyTier string

// Possible proficiency tiers, in ascending order of mastery.
const (
	TierNew       ProficiencyTier = "NEW"
	TierLearning  ProficiencyTier = "LEARNING"
	TierReviewing ProficiencyTier = "REVIEWING"
	TierMastered  ProficiencyTier = "MASTERED"
)

// Valid reports whether t is one of the known tiers.
func (t ProficiencyTier) Valid() bool {
	switch t {
	case TierNew, TierLearning, TierReviewing, TierMastered:
		return true
	default:
		return false
	}
}

// Learned reports whether the word has left the NEW tier.
func (t ProficiencyTier) Learned() bool {
	return t.Valid() && t != TierNew
}

// Default decay state for a word that has never been reviewed.
const (
	DefaultDecayRate  = 1.0
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// Validation errors for WordProgress
var (
	ErrEmptyProgressLearnerID = errors.New("word progress learner ID cannot be empty")
	ErrEmptyProgressWordID    = errors.New("word progress word ID cannot be empty")
	ErrInvalidDecayRate       = errors.New("decay rate must be greater than 0")
	ErrInvalidEaseFactor      = errors.New("ease factor must be at least 1.3")
	ErrInvalidInterval        = errors.New("interval must be greater than or equal to 0")
	ErrNegativeCounter        = errors.New("review counters cannot be negative")
	ErrInvalidStreak          = errors.New("best streak cannot be lower than current streak")
	ErrReviewTimestamps       = errors.New("last and next review timestamps must both be set or both be empty")
	ErrMissingFirstLearnedAt  = errors.New("first learned timestamp cannot be empty")
)

// WordProgress tracks one learner's spaced repetition state for one word.
// There is exactly one record per (LearnerID, WordID) pair.
type WordProgress struct {
	LearnerID uuid.UUID `json:"learner_id"`
	WordID    uuid.UUID `json:"word_id"`

	// DecayRate is the memory half-life in days.
	DecayRate float64 `json:"decay_rate"`

	// EaseFactor and IntervalDays are only advanced by the SM-2 decay model.
	EaseFactor   float64 `json:"ease_factor"`
	IntervalDays int     `json:"interval_days"`

	Tier           ProficiencyTier `json:"proficiency_tier"`
	CorrectCount   int             `json:"correct_count"`
	IncorrectCount int             `json:"incorrect_count"`
	CurrentStreak  int             `json:"current_streak"`
	BestStreak     int             `json:"best_streak"`

	LastReviewedAt *time.Time `json:"last_reviewed_at"`
	NextReviewAt   *time.Time `json:"next_review_at"`
	FirstLearnedAt time.Time  `json:"first_learned_at"`
	MasteredAt     *time.Time `json:"mastered_at"`

	// Version is the optimistic concurrency token. Zero means not yet persisted.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWordProgress creates a fresh record for a word the learner has never
// reviewed. firstLearnedAt is the time of the first attempt or lookup.
func NewWordProgress(learnerID, wordID uuid.UUID, decayRate float64, firstLearnedAt time.Time) (*WordProgress, error) {
	at := firstLearnedAt.UTC()
	p := &WordProgress{
		LearnerID:      learnerID,
		WordID:         wordID,
		DecayRate:      decayRate,
		EaseFactor:     DefaultEaseFactor,
		IntervalDays:   0,
		Tier:           TierNew,
		FirstLearnedAt: at,
		CreatedAt:      at,
		UpdatedAt:      at,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks if the WordProgress has valid data.
// Returns an error if any field fails validation.
func (p *WordProgress) Validate() error {
	if p.LearnerID == uuid.Nil {
		return ErrEmptyProgressLearnerID
	}
	if p.WordID == uuid.Nil {
		return ErrEmptyProgressWordID
	}
	if !(p.DecayRate > 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidDecayRate, p.DecayRate)
	}
	if p.EaseFactor < MinEaseFactor {
		return fmt.Errorf("%w: got %v", ErrInvalidEaseFactor, p.EaseFactor)
	}
	if p.IntervalDays < 0 {
		return ErrInvalidInterval
	}
	if !p.Tier.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTier, p.Tier)
	}
	if p.CorrectCount < 0 || p.IncorrectCount < 0 || p.CurrentStreak < 0 || p.BestStreak < 0 {
		return ErrNegativeCounter
	}
	if p.BestStreak < p.CurrentStreak {
		return ErrInvalidStreak
	}
	if (p.LastReviewedAt == nil) != (p.NextReviewAt == nil) {
		return ErrReviewTimestamps
	}
	if p.FirstLearnedAt.IsZero() {
		return ErrMissingFirstLearnedAt
	}
	return nil
}

// Attempts returns the total number of recorded review attempts.
func (p *WordProgress) Attempts() int {
	return p.CorrectCount + p.IncorrectCount
}

// Reviewed reports whether the word has at least one recorded review.
func (p *WordProgress) Reviewed() bool {
	return p.LastReviewedAt != nil
}

// Clone returns a deep copy so callers can derive new states without
// mutating a record that may be shared.
func (p *WordProgress) Clone() *WordProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.LastReviewedAt = cloneTime(p.LastReviewedAt)
	c.NextReviewAt = cloneTime(p.NextReviewAt)
	c.MasteredAt = cloneTime(p.MasteredAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SameUTCDay reports whether a and b fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// StartOfUTCDay truncates t to midnight UTC of its calendar day.
func StartOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
