package playground

import (
	"context"
	"sync"
	"time"
)

// DefaultQuietWindow is the debounce interval used when none is configured.
const DefaultQuietWindow = 150 * time.Millisecond

// Debouncer collapses bursts of Invoke calls into one call of the wrapped
// function. Every call arriving within the quiet window of the previous one
// joins the pending batch; once the window passes quietly, the function runs
// once with the trailing call's arguments and every waiting caller receives
// that result. Calls arriving while the function runs start a new batch.
type Debouncer struct {
	fn   InvokeFunc
	wait time.Duration

	mu      sync.Mutex
	gen     uint64
	pending *debounceBatch
}

type debounceBatch struct {
	ctx     context.Context
	batches []TxBatch
	query   string
	waiters []chan debounceResult
	timer   *time.Timer
}

type debounceResult struct {
	resp *Response
	err  error
}

// NewDebouncer wraps fn. A non-positive wait uses DefaultQuietWindow.
func NewDebouncer(fn InvokeFunc, wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = DefaultQuietWindow
	}
	return &Debouncer{fn: fn, wait: wait}
}

// Invoke joins the pending batch and blocks until it has run or ctx is done.
// Cancelling ctx only stops this caller from waiting; the batch still runs
// for the other callers.
func (d *Debouncer) Invoke(ctx context.Context, batches []TxBatch, query string) (*Response, error) {
	return d.Submit(ctx, batches, query)()
}

// Submit joins the pending batch without blocking and returns the wait for
// its result. The trailing arguments are those of the last Submit, so
// callers that need a definite order submit from one goroutine.
func (d *Debouncer) Submit(ctx context.Context, batches []TxBatch, query string) func() (*Response, error) {
	ch := make(chan debounceResult, 1)

	d.mu.Lock()
	if d.pending == nil {
		d.pending = &debounceBatch{}
	}
	b := d.pending
	b.ctx, b.batches, b.query = ctx, batches, query
	b.waiters = append(b.waiters, ch)
	if b.timer != nil {
		b.timer.Stop()
	}
	d.gen++
	gen := d.gen
	b.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
	d.mu.Unlock()

	return func() (*Response, error) {
		select {
		case r := <-ch:
			return r.resp, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		// superseded by a later call
		d.mu.Unlock()
		return
	}
	b := d.pending
	d.pending = nil
	d.mu.Unlock()

	resp, err := d.fn(context.WithoutCancel(b.ctx), b.batches, b.query)
	for _, w := range b.waiters {
		w <- debounceResult{resp: resp, err: err}
	}
}
