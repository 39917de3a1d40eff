package postgres

import (
	"database/sql"
	"time"

	"github.com/phrazzld/lexis/internal/domain"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const progressColumns = `
	p.learner_id, p.word_id, p.decay_rate, p.ease_factor, p.interval_days,
	p.proficiency_tier, p.correct_count, p.incorrect_count, p.current_streak,
	p.best_streak, p.last_reviewed_at, p.next_review_at, p.first_learned_at,
	p.mastered_at, p.version, p.created_at, p.updated_at`

func scanProgress(row scanner) (*domain.WordProgress, error) {
	var (
		p                        domain.WordProgress
		tier                     string
		lastReviewed, nextReview sql.NullTime
		mastered                 sql.NullTime
	)
	err := row.Scan(
		&p.LearnerID,
		&p.WordID,
		&p.DecayRate,
		&p.EaseFactor,
		&p.IntervalDays,
		&tier,
		&p.CorrectCount,
		&p.IncorrectCount,
		&p.CurrentStreak,
		&p.BestStreak,
		&lastReviewed,
		&nextReview,
		&p.FirstLearnedAt,
		&mastered,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Tier = domain.ProficiencyTier(tier)
	p.LastReviewedAt = timePtr(lastReviewed)
	p.NextReviewAt = timePtr(nextReview)
	p.MasteredAt = timePtr(mastered)
	p.FirstLearnedAt = p.FirstLearnedAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func collectProgress(rows *sql.Rows) ([]*domain.WordProgress, error) {
	defer func() { _ = rows.Close() }()

	out := make([]*domain.WordProgress, 0)
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const wordColumns = `w.id, w.topic_id, w.term, w.active, w.created_at`

func scanWord(row scanner) (*domain.Word, error) {
	var w domain.Word
	if err := row.Scan(&w.ID, &w.TopicID, &w.Term, &w.Active, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	return &w, nil
}

func collectWords(rows *sql.Rows) ([]*domain.Word, error) {
	defer func() { _ = rows.Close() }()

	out := make([]*domain.Word, 0)
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
