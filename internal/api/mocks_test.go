package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/service/auth"
	"github.com/phrazzld/lexis/internal/service/progress"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var mockAnyContext = mock.MatchedBy(func(context.Context) bool { return true })

// mockScheduler is a testify mock of progress.ReviewScheduler.
type mockScheduler struct {
	mock.Mock
}

var _ progress.ReviewScheduler = (*mockScheduler)(nil)

func (m *mockScheduler) RecordReview(
	ctx context.Context,
	learnerID, wordID uuid.UUID,
	correct bool,
) (*domain.WordProgress, error) {
	args := m.Called(ctx, learnerID, wordID, correct)
	p, _ := args.Get(0).(*domain.WordProgress)
	return p, args.Error(1)
}

func (m *mockScheduler) GetProgress(ctx context.Context, learnerID, wordID uuid.UUID) (*domain.WordProgress, error) {
	args := m.Called(ctx, learnerID, wordID)
	p, _ := args.Get(0).(*domain.WordProgress)
	return p, args.Error(1)
}

func (m *mockScheduler) DueForReview(
	ctx context.Context,
	learnerID uuid.UUID,
	limit int,
) ([]*domain.WordProgress, error) {
	args := m.Called(ctx, learnerID, limit)
	due, _ := args.Get(0).([]*domain.WordProgress)
	return due, args.Error(1)
}

func (m *mockScheduler) DueForReviewPage(
	ctx context.Context,
	learnerID uuid.UUID,
	q progress.DueQuery,
) (*progress.DuePage, error) {
	args := m.Called(ctx, learnerID, q)
	page, _ := args.Get(0).(*progress.DuePage)
	return page, args.Error(1)
}

func (m *mockScheduler) BuildStudySession(
	ctx context.Context,
	learnerID uuid.UUID,
	topicID *uuid.UUID,
	mode domain.StudyMode,
	wordCount int,
) ([]domain.StudyItem, error) {
	args := m.Called(ctx, learnerID, topicID, mode, wordCount)
	items, _ := args.Get(0).([]domain.StudyItem)
	return items, args.Error(1)
}

func (m *mockScheduler) SubmitSessionResults(
	ctx context.Context,
	learnerID uuid.UUID,
	results []domain.ReviewResult,
) (*domain.SessionSummary, error) {
	args := m.Called(ctx, learnerID, results)
	summary, _ := args.Get(0).(*domain.SessionSummary)
	return summary, args.Error(1)
}

func (m *mockScheduler) GetLearnerStatistics(
	ctx context.Context,
	learnerID uuid.UUID,
) (*domain.LearnerStatistics, error) {
	args := m.Called(ctx, learnerID)
	stats, _ := args.Get(0).(*domain.LearnerStatistics)
	return stats, args.Error(1)
}

func mustToken(t *testing.T, tokens auth.TokenService, learnerID uuid.UUID) string {
	t.Helper()
	token, err := tokens.GenerateToken(context.Background(), learnerID)
	require.NoError(t, err)
	return token
}

func serve(t *testing.T, handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func serveRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}
