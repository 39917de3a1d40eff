package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/config"
	"github.com/phrazzld/lexis/internal/domain"
	"github.com/phrazzld/lexis/internal/domain/srs"
	"github.com/phrazzld/lexis/internal/platform/memory"
	"github.com/phrazzld/lexis/internal/service/auth"
	"github.com/phrazzld/lexis/internal/service/progress"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-that-is-32-chars-long"

var baseTime = time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokens(t *testing.T) auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(config.AuthConfig{JWTSecret: testJWTSecret, TokenLifetime: time.Hour})
	require.NoError(t, err)
	return tokens
}

// testServer is the full router over the in-memory store.
type testServer struct {
	store   *memory.Store
	clock   *fakeClock
	handler http.Handler
	tokens  auth.TokenService
	learner uuid.UUID
	token   string
	topic   uuid.UUID
	created int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := memory.NewStore()
	clock := &fakeClock{now: baseTime}
	agg := progress.NewAggregator(st, st, clock.Now, 0, discardLogger())

	opts := progress.DefaultOptions()
	opts.Clock = clock.Now
	opts.Rand = rand.New(rand.NewPCG(1, 2))
	sched := progress.NewScheduler(st, st, srs.NewDefaultService(), agg, discardLogger(), opts)

	tokens := newTestTokens(t)
	learner := uuid.New()
	token, err := tokens.GenerateToken(context.Background(), learner)
	require.NoError(t, err)

	return &testServer{
		store:   st,
		clock:   clock,
		handler: NewRouter(RouterConfig{Scheduler: sched, Tokens: tokens, Logger: discardLogger()}),
		tokens:  tokens,
		learner: learner,
		token:   token,
		topic:   uuid.New(),
	}
}

func (s *testServer) addWord(t *testing.T) *domain.Word {
	t.Helper()
	s.created++
	w := &domain.Word{
		ID:        uuid.New(),
		TopicID:   s.topic,
		Term:      "term",
		Active:    true,
		CreatedAt: baseTime.Add(-time.Duration(1000-s.created) * time.Minute),
	}
	require.NoError(t, s.store.PutWord(w))
	return w
}

// do sends an authenticated request; body is marshaled to JSON unless it
// is a string, which is sent verbatim.
func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return s.doWithToken(t, method, path, body, s.token)
}

func (s *testServer) doWithToken(
	t *testing.T,
	method, path string,
	body interface{},
	token string,
) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
