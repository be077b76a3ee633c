package lazy

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineHandle struct {
	id int
}

// gatedBuilder blocks every Build until release is closed.
type gatedBuilder struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func newGatedBuilder(err error) *gatedBuilder {
	return &gatedBuilder{release: make(chan struct{}), err: err}
}

func (b *gatedBuilder) Build() (*engineHandle, error) {
	n := b.calls.Add(1)
	<-b.release
	if b.err != nil {
		return nil, b.err
	}
	return &engineHandle{id: int(n)}, nil
}

func waiters[T any](c *Cell[T]) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

func TestCell_NewDoesNotBuild(t *testing.T) {
	var calls int
	c := New[int](BuilderFunc[int](func() (int, error) {
		calls++
		return 1, nil
	}))

	assert.Equal(t, Unresolved, c.State())
	assert.Equal(t, 0, calls)
	_, ok := c.Peek()
	assert.False(t, ok)
}

func TestCell_ResolveCachesValue(t *testing.T) {
	var calls int
	c := New[*engineHandle](BuilderFunc[*engineHandle](func() (*engineHandle, error) {
		calls++
		return &engineHandle{id: calls}, nil
	}))

	first, err := c.Resolve(context.Background())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Resolve(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, again)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Attempts())
	assert.Equal(t, Resolved, c.State())

	peeked, ok := c.Peek()
	require.True(t, ok)
	assert.Same(t, first, peeked)
}

func TestCell_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	const n = 64
	b := newGatedBuilder(nil)
	c := New[*engineHandle](b)

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]*engineHandle, n)
		errs    = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = c.Resolve(context.Background())
		}(i)
	}
	close(start)

	// One goroutine runs the builder; the rest queue up behind it.
	require.Eventually(t, func() bool {
		return c.State() == InProgress && waiters(c) == n-1
	}, 5*time.Second, time.Millisecond)
	close(b.release)
	wg.Wait()

	assert.Equal(t, int32(1), b.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i], "caller %d saw a different handle", i)
	}
	assert.Equal(t, Resolved, c.State())
}

func TestCell_FailureReachesEveryWaiterThenRetries(t *testing.T) {
	const n = 8
	boom := errors.New("grammar binding failed")
	b := newGatedBuilder(boom)
	c := New[*engineHandle](b)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Resolve(context.Background())
		}(i)
	}
	require.Eventually(t, func() bool {
		return c.State() == InProgress && waiters(c) == n-1
	}, 5*time.Second, time.Millisecond)
	close(b.release)
	wg.Wait()

	assert.Equal(t, int32(1), b.calls.Load())
	for i, err := range errs {
		require.Error(t, err, "caller %d", i)
		assert.ErrorIs(t, err, ErrBuild)
		assert.ErrorIs(t, err, boom)
		assert.Same(t, errs[0], err, "all waiters share one failure")
	}

	// Failures are not cached: the cell is unresolved and builds again.
	assert.Equal(t, Unresolved, c.State())
	_, err := c.Resolve(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), b.calls.Load())
	assert.Equal(t, 2, c.Attempts())
}

func TestCell_RetrySucceedsAfterTransientFailure(t *testing.T) {
	var calls int
	c := New[string](BuilderFunc[string](func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("grammar not installed yet")
		}
		return "parser", nil
	}))

	_, err := c.Resolve(context.Background())
	require.Error(t, err)

	v, err := c.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "parser", v)

	v, err = c.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "parser", v)
	assert.Equal(t, 2, calls)
}

func TestCell_WaiterHonorsContext(t *testing.T) {
	b := newGatedBuilder(nil)
	c := New[*engineHandle](b)

	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, _ = c.Resolve(context.Background())
	}()
	require.Eventually(t, func() bool { return c.State() == InProgress }, 5*time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Resolve(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(b.release)
	<-leaderDone
	assert.Equal(t, Resolved, c.State())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestCell_CanceledContextDoesNotStartBuild(t *testing.T) {
	var calls int
	c := New[int](BuilderFunc[int](func() (int, error) {
		calls++
		return 7, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Resolve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
	assert.Equal(t, Unresolved, c.State())
}

func TestCell_PanicBecomesBuildError(t *testing.T) {
	c := New[int](BuilderFunc[int](func() (int, error) {
		panic("engine exploded")
	}))

	_, err := c.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuild)
	assert.Contains(t, err.Error(), "engine exploded")
	assert.Equal(t, Unresolved, c.State())
}

func TestCell_BuilderGoexitReleasesWaiters(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := New[int](BuilderFunc[int](func() (int, error) {
		if calls.Add(1) == 1 {
			<-release
			runtime.Goexit()
		}
		return 7, nil
	}))

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		_, _ = c.Resolve(context.Background())
	}()
	require.Eventually(t, func() bool { return c.State() == InProgress }, time.Second, time.Millisecond)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Resolve(context.Background())
		errc <- err
	}()
	require.Eventually(t, func() bool { return waiters(c) == 1 }, time.Second, time.Millisecond)

	close(release)
	<-exited
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrBuild)
	case <-time.After(time.Second):
		t.Fatal("waiter still blocked after builder exited")
	}
	assert.Equal(t, Unresolved, c.State())

	v, err := c.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, c.Attempts())
}

func TestCell_NilBuilder(t *testing.T) {
	c := New[int](nil)
	_, err := c.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrBuild)
}

func TestCell_TakeReleasesOwnership(t *testing.T) {
	var calls int
	c := New[*engineHandle](BuilderFunc[*engineHandle](func() (*engineHandle, error) {
		calls++
		return &engineHandle{id: calls}, nil
	}))

	_, ok := c.Take()
	assert.False(t, ok, "nothing to take before resolution")

	first, err := c.Resolve(context.Background())
	require.NoError(t, err)

	taken, ok := c.Take()
	require.True(t, ok)
	assert.Same(t, first, taken)
	assert.Equal(t, Unresolved, c.State())

	second, err := c.Resolve(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, calls)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Unresolved, "unresolved"},
		{InProgress, "in-progress"},
		{Resolved, "resolved"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}
