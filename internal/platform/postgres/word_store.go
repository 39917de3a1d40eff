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

// PostgresWordStore implements the store.WordStore interface
// using a PostgreSQL database as the storage backend.
type PostgresWordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresWordStore creates a new PostgreSQL implementation of the WordStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresWordStore(db store.DBTX, logger *slog.Logger) *PostgresWordStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresWordStore{
		db:     db,
		logger: logger.With(slog.String("component", "word_store")),
	}
}

// Ensure PostgresWordStore implements store.WordStore interface
var _ store.WordStore = (*PostgresWordStore)(nil)

// PutWord inserts or replaces a catalog word. The engine never writes words;
// this is the sync hook for the catalog that owns them.
func (s *PostgresWordStore) PutWord(ctx context.Context, w *domain.Word) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if w.ID == uuid.Nil || w.TopicID == uuid.Nil {
		return fmt.Errorf("%w: word and topic IDs are required", store.ErrInvalidEntity)
	}
	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO words (id, topic_id, term, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET topic_id = EXCLUDED.topic_id, term = EXCLUDED.term, active = EXCLUDED.active
	`
	if _, err := s.db.ExecContext(ctx, query, w.ID, w.TopicID, w.Term, w.Active, createdAt.UTC()); err != nil {
		log.Error("failed to put word",
			slog.String("error", err.Error()),
			slog.String("word_id", w.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.WordStore.GetByID
// Returns store.ErrWordNotFound if the word does not exist.
func (s *PostgresWordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Word, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + wordColumns + ` FROM words w WHERE w.id = $1`
	w, err := scanWord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("word not found", slog.String("word_id", id.String()))
			return nil, store.ErrWordNotFound
		}
		log.Error("failed to get word by ID",
			slog.String("error", err.Error()),
			slog.String("word_id", id.String()))
		return nil, MapError(err)
	}
	return w, nil
}

// ListByTopic implements store.WordStore.ListByTopic
// Returns store.ErrTopicNotFound if the topic has no words at all.
func (s *PostgresWordStore) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]*domain.Word, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("topic_id", topicID.String()))

	query := `SELECT ` + wordColumns + ` FROM words w WHERE w.topic_id = $1 AND w.active ORDER BY w.id`
	rows, err := s.db.QueryContext(ctx, query, topicID)
	if err != nil {
		log.Error("failed to list topic words", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	words, err := collectWords(rows)
	if err != nil {
		log.Error("failed to scan topic words", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if len(words) > 0 {
		return words, nil
	}

	// A topic whose words are all inactive still exists
	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM words WHERE topic_id = $1)`, topicID).Scan(&exists)
	if err != nil {
		log.Error("failed to check topic existence", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if !exists {
		return nil, store.ErrTopicNotFound
	}
	return words, nil
}

// ListUnstarted implements store.WordStore.ListUnstarted
func (s *PostgresWordStore) ListUnstarted(
	ctx context.Context,
	learnerID uuid.UUID,
	topicID *uuid.UUID,
	limit int,
) ([]*domain.Word, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + wordColumns + `
		FROM words w
		LEFT JOIN word_progress p ON p.word_id = w.id AND p.learner_id = $1
		WHERE w.active
		  AND (p.word_id IS NULL OR p.proficiency_tier = 'NEW')
		  AND ($2::uuid IS NULL OR w.topic_id = $2)
		ORDER BY w.created_at, w.id
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, learnerID, topicID, limit)
	if err != nil {
		log.Error("failed to list unstarted words",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, MapError(err)
	}
	words, err := collectWords(rows)
	if err != nil {
		return nil, MapError(err)
	}
	return words, nil
}
