package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id     uuid.UUID
	execFn func(ctx context.Context) error
}

func (m *mockTask) ID() uuid.UUID {
	return m.id
}

func (m *mockTask) Type() string {
	return "mock"
}

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

func newMockTask() *mockTask {
	return &mockTask{id: uuid.New()}
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestNewTaskQueue(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(10, setupTestLogger())

	assert.NotNil(t, queue)
	assert.Equal(t, 10, cap(queue.tasks))
	assert.False(t, queue.closed)
	assert.Zero(t, queue.Len())
}

func TestEnqueue(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(2, setupTestLogger())

	require.NoError(t, queue.Enqueue(newMockTask()))
	require.NoError(t, queue.Enqueue(newMockTask()))
	assert.Equal(t, 2, queue.Len())

	overflow := newMockTask()
	err := queue.Enqueue(overflow)
	assert.ErrorIs(t, err, ErrQueueFull)

	// Draining one task makes room again
	<-queue.tasks
	assert.NoError(t, queue.Enqueue(overflow))
}

func TestClose(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(10, setupTestLogger())

	queued := newMockTask()
	require.NoError(t, queue.Enqueue(queued))

	queue.Close()
	queue.Close()
	assert.True(t, queue.closed)
	assert.ErrorIs(t, queue.Enqueue(newMockTask()), ErrQueueClosed)

	// Tasks queued before Close are still delivered
	received := <-queue.GetChannel()
	assert.Equal(t, queued.ID(), received.ID())

	select {
	case _, ok := <-queue.GetChannel():
		assert.False(t, ok, "channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for closed channel read")
	}
}

func TestConcurrentEnqueueAndClose(t *testing.T) {
	t.Parallel()
	queue := NewTaskQueue(100, setupTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				err := queue.Enqueue(newMockTask())
				if err != nil {
					assert.ErrorIs(t, err, ErrQueueClosed)
				}
			}
		}()
	}
	queue.Close()
	wg.Wait()

	count := 0
	for range queue.GetChannel() {
		count++
	}
	assert.LessOrEqual(t, count, 100)
}
