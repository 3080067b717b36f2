package playground

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var got []int
	for i := range 5 {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Idle(testContext(t)))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopTimers(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var got []string
	l.After(20*time.Millisecond, func() { got = append(got, "late") })
	l.After(time.Millisecond, func() { got = append(got, "early") })
	stopped := l.After(5*time.Millisecond, func() { got = append(got, "stopped") })
	require.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	require.NoError(t, l.Idle(testContext(t)))
	assert.Equal(t, []string{"early", "late"}, got)
}

func TestLoopAsyncContinuation(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	release := make(chan struct{})
	var got []string
	require.True(t, l.Async(func() func() {
		<-release
		return func() { got = append(got, "continued") }
	}))
	l.Post(func() { got = append(got, "posted") })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Idle(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, l.Idle(testContext(t)))
	assert.Equal(t, []string{"posted", "continued"}, got)
}

func TestLoopRecoversPanics(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	ran := false
	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true })
	require.NoError(t, l.Idle(testContext(t)))

	assert.True(t, ran)
	require.Error(t, l.Err())
	assert.Contains(t, l.Err().Error(), "boom")
}

func TestLoopClose(t *testing.T) {
	l := NewLoop()
	fired := make(chan struct{}, 1)
	l.After(10*time.Millisecond, func() { fired <- struct{}{} })
	l.Close()
	l.Close()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Call(context.Background(), func() {}), ErrLoopClosed)
	assert.ErrorIs(t, l.Idle(context.Background()), ErrLoopClosed)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, fired)
}
