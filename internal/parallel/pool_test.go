package parallel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool := New(4)
	defer pool.Shutdown()

	ctx := context.Background()
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make([]int, 0, 10)

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
		}
		require.NoError(t, pool.Submit(ctx, task))
	}
	wg.Wait()

	require.Len(t, seen, 10)
	stats := pool.StatsSnapshot()
	require.EqualValues(t, 10, stats.Submitted())
	require.EqualValues(t, 10, stats.Completed())
}

func TestPoolDefaultsWorkerCount(t *testing.T) {
	pool := New(0)
	defer pool.Shutdown()
	require.Greater(t, pool.Workers(), 0)
}

func TestPoolSubmitAfterShutdownFails(t *testing.T) {
	pool := New(2)
	pool.Shutdown()

	err := pool.Submit(context.Background(), func() {})
	require.ErrorIs(t, err, ErrPoolShutdown)
}

func TestPoolSubmitRespectsContextCancellation(t *testing.T) {
	pool := New(1)
	defer pool.Shutdown()

	block := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { <-block }))

	// Fill the buffered queue so the next submit must wait on ctx.Done().
	for i := 0; i < pool.Workers()*2; i++ {
		_ = pool.Submit(context.Background(), func() {})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func() {})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
}
