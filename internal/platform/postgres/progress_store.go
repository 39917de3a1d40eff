package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/store"
)

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend.
//
// Writes are single statements guarded by the row version, so no
// transaction is needed to keep concurrent reviews from overwriting
// each other.
type PostgresProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProgressStore creates a new PostgreSQL implementation of the ProgressStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// Get implements store.ProgressStore.Get
func (s *PostgresProgressStore) Get(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + progressColumns + ` FROM word_progress p WHERE p.learner_id = $1 AND p.word_id = $2`
	p, err := scanProgress(s.db.QueryRowContext(ctx, query, learnerID, wordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressNotFound
		}
		log.Error("failed to get word progress",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()),
			slog.String("word_id", wordID.String()))
		return nil, MapError(err)
	}
	return p, nil
}

// Upsert implements store.ProgressStore.Upsert
//
// Version 0 inserts with ON CONFLICT DO NOTHING; any other version updates
// only the row still at that version. No returned row means another writer
// got there first.
func (s *PostgresProgressStore) Upsert(ctx context.Context, p *domain.WordProgress) (*domain.WordProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("learner_id", p.LearnerID.String()),
		slog.String("word_id", p.WordID.String()))

	if err := p.Validate(); err != nil {
		log.Warn("word progress validation failed during upsert", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	updatedAt = updatedAt.UTC()

	args := []any{
		p.LearnerID,
		p.WordID,
		p.DecayRate,
		p.EaseFactor,
		p.IntervalDays,
		string(p.Tier),
		p.CorrectCount,
		p.IncorrectCount,
		p.CurrentStreak,
		p.BestStreak,
		nullTime(p.LastReviewedAt),
		nullTime(p.NextReviewAt),
		p.FirstLearnedAt.UTC(),
		nullTime(p.MasteredAt),
		updatedAt,
	}

	var query string
	if p.Version == 0 {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = updatedAt
		}
		args = append(args, createdAt.UTC())
		query = `
			INSERT INTO word_progress (
				learner_id, word_id, decay_rate, ease_factor, interval_days,
				proficiency_tier, correct_count, incorrect_count, current_streak,
				best_streak, last_reviewed_at, next_review_at, first_learned_at,
				mastered_at, updated_at, created_at, version
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)
			ON CONFLICT (learner_id, word_id) DO NOTHING
			RETURNING version, created_at
		`
	} else {
		args = append(args, p.Version)
		query = `
			UPDATE word_progress
			SET decay_rate = $3, ease_factor = $4, interval_days = $5,
				proficiency_tier = $6, correct_count = $7, incorrect_count = $8,
				current_streak = $9, best_streak = $10, last_reviewed_at = $11,
				next_review_at = $12, first_learned_at = $13, mastered_at = $14,
				updated_at = $15, version = version + 1
			WHERE learner_id = $1 AND word_id = $2 AND version = $16
			RETURNING version, created_at
		`
	}

	stored := p.Clone()
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&stored.Version, &stored.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("word progress version check failed", slog.Int64("version", p.Version))
			return nil, store.NewStoreError("word_progress", "upsert", "version mismatch", store.ErrConflict)
		}
		log.Error("failed to upsert word progress", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	stored.UpdatedAt = updatedAt
	return stored, nil
}

// ListForTopic implements store.ProgressStore.ListForTopic
func (s *PostgresProgressStore) ListForTopic(
	ctx context.Context,
	learnerID, topicID uuid.UUID,
) ([]*domain.WordProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM word_progress p
		JOIN words w ON w.id = p.word_id
		WHERE p.learner_id = $1 AND w.topic_id = $2
		ORDER BY p.word_id
	`
	return s.list(ctx, "list_for_topic", query, learnerID, topicID)
}

// ListForLearner implements store.ProgressStore.ListForLearner
func (s *PostgresProgressStore) ListForLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.WordProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM word_progress p WHERE p.learner_id = $1 ORDER BY p.word_id`
	return s.list(ctx, "list_for_learner", query, learnerID)
}

// dueCondition matches store.DueQuery; $1 learner, $2 now, $3 start of the
// UTC day, $4 optional topic.
const dueCondition = `
	p.learner_id = $1
	AND p.proficiency_tier <> 'NEW'
	AND p.next_review_at <= $2
	AND p.last_reviewed_at < $3
	AND ($4::uuid IS NULL OR w.topic_id = $4)
`

// ListDue implements store.ProgressStore.ListDue
func (s *PostgresProgressStore) ListDue(
	ctx context.Context,
	learnerID uuid.UUID,
	q store.DueQuery,
) ([]*domain.WordProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM word_progress p
		JOIN words w ON w.id = p.word_id
		WHERE ` + dueCondition + `
		ORDER BY p.next_review_at, p.word_id
		LIMIT $5 OFFSET $6
	`
	now := q.Now.UTC()
	return s.list(ctx, "list_due", query,
		learnerID, now, domain.StartOfUTCDay(now), q.TopicID, q.Limit, q.Offset)
}

// CountDue implements store.ProgressStore.CountDue
func (s *PostgresProgressStore) CountDue(ctx context.Context, learnerID uuid.UUID, q store.DueQuery) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM word_progress p
		JOIN words w ON w.id = p.word_id
		WHERE ` + dueCondition

	now := q.Now.UTC()
	var count int
	err := s.db.QueryRowContext(ctx, query, learnerID, now, domain.StartOfUTCDay(now), q.TopicID).Scan(&count)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count due words",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return 0, MapError(err)
	}
	return count, nil
}

// UpsertTopicProgress implements store.ProgressStore.UpsertTopicProgress
func (s *PostgresProgressStore) UpsertTopicProgress(ctx context.Context, tp *domain.TopicProgress) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := tp.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO topic_progress (
			learner_id, topic_id, total_words, learning_words, learned_words,
			mastered_words, last_studied_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (learner_id, topic_id) DO UPDATE
		SET total_words = EXCLUDED.total_words,
			learning_words = EXCLUDED.learning_words,
			learned_words = EXCLUDED.learned_words,
			mastered_words = EXCLUDED.mastered_words,
			last_studied_at = EXCLUDED.last_studied_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		tp.LearnerID,
		tp.TopicID,
		tp.TotalWords,
		tp.LearningWords,
		tp.LearnedWords,
		tp.MasteredWords,
		tp.LastStudiedAt.UTC(),
		tp.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to upsert topic progress",
			slog.String("error", err.Error()),
			slog.String("learner_id", tp.LearnerID.String()),
			slog.String("topic_id", tp.TopicID.String()))
		return MapError(err)
	}
	return nil
}

// ListTopicProgress implements store.ProgressStore.ListTopicProgress
func (s *PostgresProgressStore) ListTopicProgress(
	ctx context.Context,
	learnerID uuid.UUID,
) ([]*domain.TopicProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT learner_id, topic_id, total_words, learning_words, learned_words,
			mastered_words, last_studied_at, updated_at
		FROM topic_progress
		WHERE learner_id = $1
		ORDER BY topic_id
	`
	rows, err := s.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		log.Error("failed to list topic progress", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.TopicProgress, 0)
	for rows.Next() {
		var tp domain.TopicProgress
		if err := rows.Scan(
			&tp.LearnerID,
			&tp.TopicID,
			&tp.TotalWords,
			&tp.LearningWords,
			&tp.LearnedWords,
			&tp.MasteredWords,
			&tp.LastStudiedAt,
			&tp.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		tp.LastStudiedAt = tp.LastStudiedAt.UTC()
		tp.UpdatedAt = tp.UpdatedAt.UTC()
		out = append(out, &tp)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

func (s *PostgresProgressStore) list(
	ctx context.Context,
	op string,
	query string,
	args ...any,
) ([]*domain.WordProgress, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err == nil {
		var out []*domain.WordProgress
		out, err = collectProgress(rows)
		if err == nil {
			return out, nil
		}
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("failed to list word progress",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return nil, MapError(err)
}
