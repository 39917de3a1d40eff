package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/store"
	"golang.org/x/sync/errgroup"
)

// DueQuery pages through a learner's due words.
type DueQuery struct {
	// TopicID restricts the page to one topic when set.
	TopicID *uuid.UUID
	Limit   int
	Offset  int
}

// DueItem is a due word annotated with its retention at query time.
type DueItem struct {
	Progress  *domain.WordProgress `json:"progress"`
	Retention float64              `json:"retention"`
}

// DuePage is one page of due words.
type DuePage struct {
	Items  []DueItem `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

func validateLimit(op string, limit int) error {
	if limit < 1 || limit > store.MaxDueLimit {
		return invalidArgument(op, fmt.Sprintf("limit must be between 1 and %d", store.MaxDueLimit))
	}
	return nil
}

// DueForReview implements ReviewScheduler.DueForReview.
func (s *scheduler) DueForReview(
	ctx context.Context,
	learnerID uuid.UUID,
	limit int,
) ([]*domain.WordProgress, error) {
	const op = "due_for_review"
	if learnerID == uuid.Nil {
		return nil, invalidArgument(op, "learner ID is required")
	}
	if err := validateLimit(op, limit); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	due, err := s.progress.ListDue(sctx, learnerID, store.DueQuery{Now: s.clock(), Limit: limit})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list due words",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return nil, internal(op, "failed to list due words", err)
	}
	return due, nil
}

// DueForReviewPage implements ReviewScheduler.DueForReviewPage.
func (s *scheduler) DueForReviewPage(ctx context.Context, learnerID uuid.UUID, q DueQuery) (*DuePage, error) {
	const op = "due_for_review_page"
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("learner_id", learnerID.String()))

	if learnerID == uuid.Nil {
		return nil, invalidArgument(op, "learner ID is required")
	}
	if err := validateLimit(op, q.Limit); err != nil {
		return nil, err
	}
	if q.Offset < 0 {
		return nil, invalidArgument(op, "offset cannot be negative")
	}
	if q.TopicID != nil && *q.TopicID == uuid.Nil {
		return nil, invalidArgument(op, "topic ID cannot be empty")
	}

	now := s.clock()
	sq := store.DueQuery{Now: now, TopicID: q.TopicID, Limit: q.Limit, Offset: q.Offset}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var (
		due   []*domain.WordProgress
		total int
	)
	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		var err error
		due, err = s.progress.ListDue(gctx, learnerID, sq)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.progress.CountDue(gctx, learnerID, sq)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to page due words", slog.String("error", err.Error()))
		return nil, internal(op, "failed to page due words", err)
	}

	page := &DuePage{
		Items:  make([]DueItem, 0, len(due)),
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	for _, p := range due {
		page.Items = append(page.Items, DueItem{Progress: p, Retention: s.srs.Retention(p, now)})
	}
	return page, nil
}
