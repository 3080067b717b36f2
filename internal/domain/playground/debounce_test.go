package playground

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var executions atomic.Int32
	var lastQuery atomic.Value
	d := NewDebouncer(func(_ context.Context, _ []TxBatch, query string) (*Response, error) {
		executions.Add(1)
		lastQuery.Store(query)
		return okResponse(`"shared"`), nil
	}, 50*time.Millisecond)

	const callers = 5
	results := make([]*Response, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := d.Invoke(context.Background(), nil, "SELECT 1")
			assert.NoError(t, err)
			results[i] = resp
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), executions.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, "SELECT 1", lastQuery.Load())
}

func TestDebouncerUsesTrailingArguments(t *testing.T) {
	var queries []string
	var mu sync.Mutex
	d := NewDebouncer(func(_ context.Context, _ []TxBatch, query string) (*Response, error) {
		mu.Lock()
		queries = append(queries, query)
		mu.Unlock()
		return okResponse(`{}`), nil
	}, 40*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := d.Invoke(context.Background(), nil, "first")
		assert.NoError(t, err)
	}()
	time.Sleep(5 * time.Millisecond)
	_, err := d.Invoke(context.Background(), nil, "second")
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, []string{"second"}, queries)
}

func TestDebouncerSeparateWindows(t *testing.T) {
	var executions atomic.Int32
	d := NewDebouncer(func(context.Context, []TxBatch, string) (*Response, error) {
		executions.Add(1)
		return okResponse(`{}`), nil
	}, 10*time.Millisecond)

	for range 3 {
		_, err := d.Invoke(context.Background(), nil, "q")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), executions.Load())
}

func TestDebouncerCancelledCallerStillRunsBatch(t *testing.T) {
	done := make(chan struct{})
	d := NewDebouncer(func(ctx context.Context, _ []TxBatch, _ string) (*Response, error) {
		defer close(done)
		assert.NoError(t, ctx.Err())
		return okResponse(`{}`), nil
	}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Invoke(ctx, nil, "q")
	require.ErrorIs(t, err, context.Canceled)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}
}

func TestNewDebouncerDefaultWindow(t *testing.T) {
	d := NewDebouncer(nil, 0)
	assert.Equal(t, DefaultQuietWindow, d.wait)
}

func TestDebouncerSubmitKeepsCallOrder(t *testing.T) {
	var queries []string
	var mu sync.Mutex
	d := NewDebouncer(func(_ context.Context, _ []TxBatch, query string) (*Response, error) {
		mu.Lock()
		queries = append(queries, query)
		mu.Unlock()
		return okResponse(`{}`), nil
	}, 20*time.Millisecond)

	var waits []func() (*Response, error)
	for _, q := range []string{"SELECT 3", "SELECT 4", "SELECT 5", "SELECT 6", "SELECT 7"} {
		waits = append(waits, d.Submit(context.Background(), nil, q))
	}
	// waiting in reverse does not change which arguments run
	for i := len(waits) - 1; i >= 0; i-- {
		_, err := waits[i]()
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"SELECT 7"}, queries)
}
