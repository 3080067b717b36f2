package playground

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLoopClosed is returned when work is submitted to a closed loop.
var ErrLoopClosed = errors.New("playground loop closed")

// Loop is a single-threaded task runner. Tasks, fired timers and the
// continuations of async work all execute on one goroutine, in submission
// order. The loop counts outstanding work so callers can wait for quiescence.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	idle    chan struct{}
	pending int
	timers  map[*Timer]struct{}
	closed  bool
	panics  []error
}

// Timer is a delayed loop task.
type Timer struct {
	loop *Loop
	t    *time.Timer
}

// NewLoop starts a loop goroutine. Close must be called to stop it.
func NewLoop() *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		timers: make(map[*Timer]struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			<-l.wake
			continue
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.execute(fn)
		l.release()
	}
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.mu.Lock()
			l.panics = append(l.panics, fmt.Errorf("playground task panicked: %v", r))
			l.mu.Unlock()
		}
	}()
	fn()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// acquire registers a unit of outstanding work. It fails once the loop is closed.
func (l *Loop) acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.pending++
	return true
}

func (l *Loop) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending > 0 {
		l.pending--
	}
	if l.pending == 0 && l.idle != nil {
		close(l.idle)
		l.idle = nil
	}
}

// Post queues fn to run on the loop. It reports false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending++
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
	return true
}

// After runs fn on the loop once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	timer := &Timer{loop: l}
	if !l.acquire() {
		return timer
	}
	l.mu.Lock()
	l.timers[timer] = struct{}{}
	timer.t = time.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, timer)
		l.mu.Unlock()
		l.Post(fn)
		l.release()
	})
	l.mu.Unlock()
	return timer
}

// Stop cancels the timer. It reports whether the timer was stopped before firing.
func (t *Timer) Stop() bool {
	if t == nil || t.t == nil {
		return false
	}
	l := t.loop
	l.mu.Lock()
	if _, ok := l.timers[t]; !ok {
		l.mu.Unlock()
		return false
	}
	if !t.t.Stop() {
		l.mu.Unlock()
		return false
	}
	delete(l.timers, t)
	l.mu.Unlock()
	l.release()
	return true
}

// Async runs work on its own goroutine. The function it returns, if any, is
// posted back to the loop. The loop is not idle until the continuation ran.
func (l *Loop) Async(work func() func()) bool {
	if !l.acquire() {
		return false
	}
	go func() {
		defer l.release()
		if next := work(); next != nil {
			l.Post(next)
		}
	}()
	return true
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Idle blocks until no task, timer or async work is outstanding.
func (l *Loop) Idle(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	if l.pending == 0 {
		l.mu.Unlock()
		return nil
	}
	if l.idle == nil {
		l.idle = make(chan struct{})
	}
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Err returns the panics recovered from loop tasks, if any.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.panics...)
}

// Close stops pending timers, drops queued tasks and stops the loop
// goroutine. In-flight async work finishes on its own goroutine but its
// continuation is discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	for timer := range l.timers {
		timer.t.Stop()
	}
	l.timers = nil
	l.queue = nil
	l.mu.Unlock()
	l.signal()
	<-l.done
}
