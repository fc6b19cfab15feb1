package hook

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsEnqueuedTasks(t *testing.T) {
	p := NewPool(2, 10)
	defer p.Stop()

	var n int32
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Enqueue(func(ctx context.Context) {
			atomic.AddInt32(&n, 1)
			wg.Done()
		}))
	}
	waitOrTimeout(t, &wg, time.Second)
	require.EqualValues(t, 5, atomic.LoadInt32(&n))
}

func TestPoolRejectsPastQueueMax(t *testing.T) {
	block := make(chan struct{})
	p := NewPool(1, 1)
	defer func() {
		close(block)
		p.Stop()
	}()

	require.NoError(t, p.Enqueue(func(ctx context.Context) { <-block }))
	// Give the single worker a moment to pick up the blocking task so
	// the queue below is genuinely full rather than racing the consumer.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Enqueue(func(ctx context.Context) {}))

	err := p.Enqueue(func(ctx context.Context) {})
	require.Error(t, err)
	var qf *QueueFullError
	require.ErrorAs(t, err, &qf)
}

func TestPoolStopRejectsNewWork(t *testing.T) {
	p := NewPool(1, 4)
	p.Stop()
	err := p.Enqueue(func(ctx context.Context) {})
	require.Error(t, err)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for pool tasks to complete")
	}
}
