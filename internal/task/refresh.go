package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexis/internal/platform/logger"
)

// Refresher recomputes one learner's rollup for one topic.
type Refresher interface {
	RefreshTopic(ctx context.Context, learnerID, topicID uuid.UUID) error
}

// TopicRefreshTask recomputes a topic rollup on a worker.
type TopicRefreshTask struct {
	id        uuid.UUID
	learnerID uuid.UUID
	topicID   uuid.UUID
	refresher Refresher
	timeout   time.Duration
	// started runs before the refresh reads anything
	started func()
}

// NewTopicRefreshTask creates a refresh task. A zero timeout leaves the
// worker context unbounded.
func NewTopicRefreshTask(learnerID, topicID uuid.UUID, refresher Refresher, timeout time.Duration) *TopicRefreshTask {
	return &TopicRefreshTask{
		id:        uuid.New(),
		learnerID: learnerID,
		topicID:   topicID,
		refresher: refresher,
		timeout:   timeout,
	}
}

// ID implements Task.
func (t *TopicRefreshTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *TopicRefreshTask) Type() string { return TaskTypeTopicRefresh }

// LearnerID returns the learner whose rollup is refreshed.
func (t *TopicRefreshTask) LearnerID() uuid.UUID { return t.learnerID }

// TopicID returns the topic whose rollup is refreshed.
func (t *TopicRefreshTask) TopicID() uuid.UUID { return t.topicID }

// Execute implements Task.
func (t *TopicRefreshTask) Execute(ctx context.Context) error {
	if t.started != nil {
		t.started()
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.refresher.RefreshTopic(ctx, t.learnerID, t.topicID)
}

type refreshKey struct {
	learnerID uuid.UUID
	topicID   uuid.UUID
}

// RefreshDispatcher moves topic refreshes onto the task queue.
//
// At most one refresh per (learner, topic) waits in the queue at a time. A
// queued refresh reads the word rows only once it starts, so it covers every
// write made before that point; requests arriving while one is pending are
// dropped. When the queue cannot take a task the refresh runs inline.
type RefreshDispatcher struct {
	queue     TaskQueueWriter
	refresher Refresher
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[refreshKey]struct{}
}

// NewRefreshDispatcher creates a RefreshDispatcher. timeout bounds each
// queued refresh.
func NewRefreshDispatcher(
	queue TaskQueueWriter,
	refresher Refresher,
	timeout time.Duration,
	logger *slog.Logger,
) *RefreshDispatcher {
	if queue == nil {
		panic("queue cannot be nil")
	}
	if refresher == nil {
		panic("refresher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshDispatcher{
		queue:     queue,
		refresher: refresher,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "refresh_dispatcher")),
		pending:   make(map[refreshKey]struct{}),
	}
}

// RefreshTopic schedules a refresh. The returned error is only ever from an
// inline fallback refresh.
func (d *RefreshDispatcher) RefreshTopic(ctx context.Context, learnerID, topicID uuid.UUID) error {
	key := refreshKey{learnerID: learnerID, topicID: topicID}

	d.mu.Lock()
	if _, ok := d.pending[key]; ok {
		d.mu.Unlock()
		return nil
	}
	d.pending[key] = struct{}{}
	d.mu.Unlock()

	t := NewTopicRefreshTask(learnerID, topicID, d.refresher, d.timeout)
	t.started = func() { d.release(key) }

	if err := d.queue.Enqueue(t); err != nil {
		d.release(key)
		refreshFallbacks.Inc()
		logger.FromContextOrDefault(ctx, d.logger).Warn("refreshing topic inline",
			slog.String("learner_id", learnerID.String()),
			slog.String("topic_id", topicID.String()),
			slog.String("reason", err.Error()))
		return d.refresher.RefreshTopic(ctx, learnerID, topicID)
	}
	return nil
}

// Pending returns the number of refreshes waiting to start.
func (d *RefreshDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *RefreshDispatcher) release(key refreshKey) {
	d.mu.Lock()
	delete(d.pending, key)
	d.mu.Unlock()
}
