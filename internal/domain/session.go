package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// StudyMode selects which words a study session draws from.
type StudyMode string

// Possible study modes
const (
	StudyModeNew    StudyMode = "new"
	StudyModeReview StudyMode = "review"
	StudyModeMixed  StudyMode = "mixed"
)

// ParseStudyMode validates a raw mode string.
func ParseStudyMode(s string) (StudyMode, error) {
	switch m := StudyMode(s); m {
	case StudyModeNew, StudyModeReview, StudyModeMixed:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStudyMode, s)
	}
}

// StudyItemOrigin records why a word was put into a session.
type StudyItemOrigin string

// Possible study item origins
const (
	OriginNew    StudyItemOrigin = "new"
	OriginReview StudyItemOrigin = "review"
)

// StudyItem is one entry of a study session snapshot.
type StudyItem struct {
	WordID uuid.UUID       `json:"word_id"`
	Origin StudyItemOrigin `json:"origin"`
	// Progress is nil for words the learner has never attempted.
	Progress *WordProgress `json:"progress,omitempty"`
	// Retention is the modeled recall probability when the session was built.
	Retention float64 `json:"retention"`
}

// ReviewResult is a single answer submitted as part of a study session.
type ReviewResult struct {
	WordID  uuid.UUID `json:"word_id" validate:"required"`
	Correct bool      `json:"correct"`
}

// SessionSummary aggregates the outcome of a session submission. Total only
// counts saved results; a client compares it against the number submitted to
// detect partial saves, which are also listed in FailedWordIDs.
type SessionSummary struct {
	Total          int         `json:"total"`
	CorrectCount   int         `json:"correct_count"`
	IncorrectCount int         `json:"incorrect_count"`
	Accuracy       float64     `json:"accuracy"`
	NewlyMastered  int         `json:"newly_mastered"`
	XPEarned       int         `json:"xp_earned"`
	FailedWordIDs  []uuid.UUID `json:"failed_word_ids,omitempty"`
}

// LearnerStatistics is the overview of a learner's progress across topics.
type LearnerStatistics struct {
	TotalLearned  int              `json:"total_learned"`
	TotalMastered int              `json:"total_mastered"`
	DueCount      int              `json:"due_count"`
	Accuracy      float64          `json:"accuracy"`
	CurrentStreak int              `json:"current_streak"`
	LongestStreak int              `json:"longest_streak"`
	PerTopic      []*TopicProgress `json:"per_topic"`
}
