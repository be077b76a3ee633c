// Package lazy provides a compute-once cell for values that are expensive to
// build and may be requested by several goroutines before they exist.
//
// A Cell moves through Unresolved → InProgress → Resolved. Only one build
// runs at a time; callers arriving while a build is in flight wait for it and
// observe its outcome. A failed build is handed to every caller waiting on
// that attempt, then the cell drops back to Unresolved so the next Resolve
// runs the builder again. Failures are never cached.
package lazy

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBuild wraps every error produced by a builder (including panics).
var ErrBuild = errors.New("lazy: build failed")

// State is the lifecycle position of a Cell.
type State int32

const (
	Unresolved State = iota
	InProgress
	Resolved
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case InProgress:
		return "in-progress"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Builder constructs the value held by a Cell.
type Builder[T any] interface {
	Build() (T, error)
}

// BuilderFunc adapts a plain function to Builder.
type BuilderFunc[T any] func() (T, error)

// Build calls f.
func (f BuilderFunc[T]) Build() (T, error) {
	return f()
}

// attempt is one run of the builder. val and err are written before done is
// closed and only read after.
type attempt[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Cell holds a value built on first use.
type Cell[T any] struct {
	builder Builder[T]

	mu       sync.Mutex
	state    State
	val      T
	inflight *attempt[T]
	attempts int
	waiting  int // callers blocked on inflight
}

// New returns an unresolved cell. The builder is not called.
func New[T any](b Builder[T]) *Cell[T] {
	return &Cell[T]{builder: b}
}

// Resolve returns the cell's value, building it if needed.
//
// The caller that starts a build runs it to completion. ctx only limits how
// long other callers wait for a build that is already in flight.
func (c *Cell[T]) Resolve(ctx context.Context) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	switch c.state {
	case Resolved:
		v := c.val
		c.mu.Unlock()
		return v, nil
	case InProgress:
		a := c.inflight
		c.waiting++
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			c.waiting--
			c.mu.Unlock()
		}()
		select {
		case <-a.done:
			return a.val, a.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		return zero, err
	}

	a := &attempt[T]{done: make(chan struct{})}
	c.state = InProgress
	c.inflight = a
	c.attempts++
	c.mu.Unlock()

	// Stays set if the builder never returns (runtime.Goexit).
	a.err = fmt.Errorf("%w: builder did not return", ErrBuild)
	defer c.settle(a)
	a.val, a.err = c.build()
	return a.val, a.err
}

// settle publishes a's outcome and wakes its waiters.
func (c *Cell[T]) settle(a *attempt[T]) {
	c.mu.Lock()
	if a.err == nil {
		c.val = a.val
		c.state = Resolved
	} else {
		var zero T
		a.val = zero
		c.state = Unresolved
	}
	c.inflight = nil
	c.mu.Unlock()
	close(a.done)
}

func (c *Cell[T]) build() (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: panic: %v", ErrBuild, r)
		}
	}()
	if c.builder == nil {
		return v, fmt.Errorf("%w: nil builder", ErrBuild)
	}
	v, err = c.builder.Build()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	return v, nil
}

// State reports where the cell is in its lifecycle.
func (c *Cell[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Peek returns the value without building it. ok is false unless resolved.
func (c *Cell[T]) Peek() (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Resolved {
		return v, false
	}
	return c.val, true
}

// Take removes a resolved value and returns the cell to Unresolved, handing
// ownership of the value to the caller. ok is false if nothing was resolved.
func (c *Cell[T]) Take() (v T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Resolved {
		return v, false
	}
	v = c.val
	var zero T
	c.val = zero
	c.state = Unresolved
	return v, true
}

// Attempts returns how many times the builder has been started.
func (c *Cell[T]) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}
