package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
)

// seedWord is one entry of a seed file. Words are active unless stated
// otherwise.
type seedWord struct {
	ID        uuid.UUID `json:"id"`
	TopicID   uuid.UUID `json:"topic_id"`
	Term      string    `json:"term"`
	Active    *bool     `json:"active,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// parseSeedWords reads a JSON array of words. Missing creation times are
// spaced one second apart in file order so that new-word sessions follow it.
func parseSeedWords(r io.Reader, now time.Time) ([]*domain.Word, error) {
	var entries []seedWord
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode seed words: %w", err)
	}

	words := make([]*domain.Word, 0, len(entries))
	for i, e := range entries {
		if e.ID == uuid.Nil || e.TopicID == uuid.Nil {
			return nil, fmt.Errorf("seed word %d: id and topic_id are required", i)
		}
		w := &domain.Word{
			ID:        e.ID,
			TopicID:   e.TopicID,
			Term:      e.Term,
			Active:    e.Active == nil || *e.Active,
			CreatedAt: e.CreatedAt.UTC(),
		}
		if e.CreatedAt.IsZero() {
			w.CreatedAt = now.UTC().Add(time.Duration(i-len(entries)) * time.Second)
		}
		words = append(words, w)
	}
	return words, nil
}

// seedWordsFromFile loads the words in path into the catalog.
func (app *application) seedWordsFromFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	words, err := parseSeedWords(f, time.Now())
	if err != nil {
		return 0, err
	}
	for _, w := range words {
		if err := app.putWord(ctx, w); err != nil {
			return 0, fmt.Errorf("failed to store word %s: %w", w.ID, err)
		}
	}
	return len(words), nil
}
