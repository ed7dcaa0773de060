package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var seen atomic.Int32
	q := NewQueue[string]("test", func(ctx context.Context, job Job[string]) error {
		seen.Add(1)
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue("hello"))
	}

	require.Eventually(t, func() bool { return seen.Load() == 5 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return q.Stats().Processed == 5 }, time.Second, 5*time.Millisecond)
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue[int]("retry", func(ctx context.Context, job Job[int]) error {
		attempts.Add(1)
		return errors.New("upstream down")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(1))

	require.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue[int]("idle", func(ctx context.Context, job Job[int]) error { return nil }, QueueConfig{})
	assert.Error(t, q.TryEnqueue(1))
}

func TestTryEnqueueReportsFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue[int]("full", func(ctx context.Context, job Job[int]) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.TryEnqueue(1))
	var full bool
	for i := 0; i < 3; i++ {
		if errors.Is(q.TryEnqueue(i), ErrQueueFull) {
			full = true
		}
	}
	assert.True(t, full)
	assert.NotZero(t, q.Stats().Dropped)
}
