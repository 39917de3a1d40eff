package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/store"
)

type progressKey struct {
	learnerID uuid.UUID
	wordID    uuid.UUID
}

type topicKey struct {
	learnerID uuid.UUID
	topicID   uuid.UUID
}

// Store implements store.WordStore and store.ProgressStore in memory.
// Records are copied on the way in and out, so callers never share state
// with the store.
type Store struct {
	mu       sync.RWMutex
	words    map[uuid.UUID]*domain.Word
	progress map[progressKey]*domain.WordProgress
	topics   map[topicKey]*domain.TopicProgress
}

var (
	_ store.WordStore     = (*Store)(nil)
	_ store.ProgressStore = (*Store)(nil)
)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		words:    make(map[uuid.UUID]*domain.Word),
		progress: make(map[progressKey]*domain.WordProgress),
		topics:   make(map[topicKey]*domain.TopicProgress),
	}
}

// PutWord adds or replaces a word in the catalog.
func (s *Store) PutWord(w *domain.Word) error {
	if w == nil || w.ID == uuid.Nil || w.TopicID == uuid.Nil {
		return fmt.Errorf("%w: word and topic IDs are required", store.ErrInvalidEntity)
	}
	c := *w
	s.mu.Lock()
	s.words[w.ID] = &c
	s.mu.Unlock()
	return nil
}

// GetByID implements store.WordStore.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.words[id]
	if !ok {
		return nil, store.ErrWordNotFound
	}
	c := *w
	return &c, nil
}

// ListByTopic implements store.WordStore.
func (s *Store) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]*domain.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	known := false
	words := make([]*domain.Word, 0)
	for _, w := range s.words {
		if w.TopicID != topicID {
			continue
		}
		known = true
		if w.Active {
			c := *w
			words = append(words, &c)
		}
	}
	if !known {
		return nil, store.ErrTopicNotFound
	}

	sort.Slice(words, func(i, j int) bool {
		return bytes.Compare(words[i].ID[:], words[j].ID[:]) < 0
	})
	return words, nil
}

// ListUnstarted implements store.WordStore.
func (s *Store) ListUnstarted(
	ctx context.Context,
	learnerID uuid.UUID,
	topicID *uuid.UUID,
	limit int,
) ([]*domain.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := make([]*domain.Word, 0)
	for _, w := range s.words {
		if !w.Active || (topicID != nil && w.TopicID != *topicID) {
			continue
		}
		if p, ok := s.progress[progressKey{learnerID, w.ID}]; ok && p.Tier != domain.TierNew {
			continue
		}
		c := *w
		words = append(words, &c)
	}

	sort.Slice(words, func(i, j int) bool {
		if !words[i].CreatedAt.Equal(words[j].CreatedAt) {
			return words[i].CreatedAt.Before(words[j].CreatedAt)
		}
		return bytes.Compare(words[i].ID[:], words[j].ID[:]) < 0
	})
	if limit >= 0 && len(words) > limit {
		words = words[:limit]
	}
	return words, nil
}

// Get implements store.ProgressStore.
func (s *Store) Get(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[progressKey{learnerID, wordID}]
	if !ok {
		return nil, store.ErrProgressNotFound
	}
	return p.Clone(), nil
}

// Upsert implements store.ProgressStore.
func (s *Store) Upsert(ctx context.Context, p *domain.WordProgress) (*domain.WordProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey{p.LearnerID, p.WordID}
	current, exists := s.progress[key]
	switch {
	case p.Version == 0 && exists:
		return nil, store.NewStoreError("word_progress", "upsert", "record already exists", store.ErrConflict)
	case p.Version != 0 && (!exists || current.Version != p.Version):
		return nil, store.NewStoreError("word_progress", "upsert", "version mismatch", store.ErrConflict)
	}

	stored := p.Clone()
	stored.Version = p.Version + 1
	if exists {
		stored.CreatedAt = current.CreatedAt
	}
	s.progress[key] = stored
	return stored.Clone(), nil
}

// ListForTopic implements store.ProgressStore.
func (s *Store) ListForTopic(ctx context.Context, learnerID, topicID uuid.UUID) ([]*domain.WordProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(learnerID, func(p *domain.WordProgress) bool {
		w, ok := s.words[p.WordID]
		return ok && w.TopicID == topicID
	}), nil
}

// ListForLearner implements store.ProgressStore.
func (s *Store) ListForLearner(ctx context.Context, learnerID uuid.UUID) ([]*domain.WordProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(learnerID, func(*domain.WordProgress) bool { return true }), nil
}

// ListDue implements store.ProgressStore.
func (s *Store) ListDue(ctx context.Context, learnerID uuid.UUID, q store.DueQuery) ([]*domain.WordProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	due := s.collectDue(learnerID, q)
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if !a.NextReviewAt.Equal(*b.NextReviewAt) {
			return a.NextReviewAt.Before(*b.NextReviewAt)
		}
		return bytes.Compare(a.WordID[:], b.WordID[:]) < 0
	})

	if q.Offset >= len(due) {
		return []*domain.WordProgress{}, nil
	}
	due = due[q.Offset:]
	if q.Limit >= 0 && len(due) > q.Limit {
		due = due[:q.Limit]
	}
	return due, nil
}

// CountDue implements store.ProgressStore.
func (s *Store) CountDue(ctx context.Context, learnerID uuid.UUID, q store.DueQuery) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.collectDue(learnerID, q)), nil
}

// UpsertTopicProgress implements store.ProgressStore.
func (s *Store) UpsertTopicProgress(ctx context.Context, tp *domain.TopicProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tp.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	c := *tp
	s.mu.Lock()
	s.topics[topicKey{tp.LearnerID, tp.TopicID}] = &c
	s.mu.Unlock()
	return nil
}

// ListTopicProgress implements store.ProgressStore.
func (s *Store) ListTopicProgress(ctx context.Context, learnerID uuid.UUID) ([]*domain.TopicProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TopicProgress, 0)
	for key, tp := range s.topics {
		if key.learnerID != learnerID {
			continue
		}
		c := *tp
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].TopicID[:], out[j].TopicID[:]) < 0
	})
	return out, nil
}

// collect must be called with s.mu held.
func (s *Store) collect(learnerID uuid.UUID, keep func(*domain.WordProgress) bool) []*domain.WordProgress {
	out := make([]*domain.WordProgress, 0)
	for key, p := range s.progress {
		if key.learnerID != learnerID || !keep(p) {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].WordID[:], out[j].WordID[:]) < 0
	})
	return out
}

// collectDue must be called with s.mu held.
func (s *Store) collectDue(learnerID uuid.UUID, q store.DueQuery) []*domain.WordProgress {
	today := domain.StartOfUTCDay(q.Now)
	return s.collect(learnerID, func(p *domain.WordProgress) bool {
		if p.Tier == domain.TierNew || p.NextReviewAt == nil || p.NextReviewAt.After(q.Now) {
			return false
		}
		if p.LastReviewedAt != nil && !p.LastReviewedAt.Before(today) {
			return false
		}
		if q.TopicID != nil {
			w, ok := s.words[p.WordID]
			if !ok || w.TopicID != *q.TopicID {
				return false
			}
		}
		return true
	})
}
