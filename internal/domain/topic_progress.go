package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Validation errors for TopicProgress
var (
	ErrEmptyTopicProgressLearnerID = errors.New("topic progress learner ID cannot be empty")
	ErrEmptyTopicProgressTopicID   = errors.New("topic progress topic ID cannot be empty")
	ErrTopicCountsInconsistent     = errors.New("topic progress counts must satisfy mastered <= learned <= total")
)

// TopicProgress is the derived rollup of a learner's word progress within one
// topic. It is a cache owned by the aggregator and is always rebuilt from the
// authoritative WordProgress rows.
type TopicProgress struct {
	LearnerID uuid.UUID `json:"learner_id"`
	TopicID   uuid.UUID `json:"topic_id"`

	TotalWords int `json:"total_words"`
	// LearningWords counts words in LEARNING or REVIEWING.
	LearningWords int `json:"learning_words"`
	// LearnedWords counts every word whose tier is not NEW.
	LearnedWords  int `json:"learned_words"`
	MasteredWords int `json:"mastered_words"`

	LastStudiedAt time.Time `json:"last_studied_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the identity fields and the count ordering invariant.
func (t *TopicProgress) Validate() error {
	if t.LearnerID == uuid.Nil {
		return ErrEmptyTopicProgressLearnerID
	}
	if t.TopicID == uuid.Nil {
		return ErrEmptyTopicProgressTopicID
	}
	if t.MasteredWords < 0 || t.LearningWords < 0 {
		return ErrTopicCountsInconsistent
	}
	if t.MasteredWords > t.LearnedWords || t.LearnedWords > t.TotalWords {
		return ErrTopicCountsInconsistent
	}
	if t.LearningWords+t.MasteredWords != t.LearnedWords {
		return ErrTopicCountsInconsistent
	}
	return nil
}
