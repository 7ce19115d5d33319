// SPDX-License-Identifier: MPL-2.0

// Package lazy provides a memoized thunk with at-most-one successful evaluation.
package lazy

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

const (
	// StateUnresolved means the thunk has not been evaluated successfully yet.
	StateUnresolved State = iota
	// StateResolved means a value is memoized.
	StateResolved
	// StateFailed means the last evaluation failed. The failure is not
	// memoized: the next Force evaluates the thunk again.
	StateFailed
)

// forceKey is the single key used with the cell's singleflight group.
const forceKey = "force"

type (
	// State describes the memoization cell.
	State int

	// Thunk computes a cell value.
	Thunk[T any] func(ctx context.Context) (T, error)

	// Cell memoizes the first successful result of a Thunk.
	//
	// Concurrent first calls to Force share one evaluation; the context of the
	// caller that started it is the one the thunk sees. A Cell must not be
	// copied after first use.
	Cell[T any] struct {
		thunk Thunk[T]
		group singleflight.Group

		mu      sync.RWMutex
		state   State
		value   T
		lastErr error
	}
)

// New returns an unresolved cell around thunk.
func New[T any](thunk Thunk[T]) *Cell[T] {
	return &Cell[T]{thunk: thunk}
}

// Of returns a cell that is already resolved to value.
func Of[T any](value T) *Cell[T] {
	return &Cell[T]{state: StateResolved, value: value}
}

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Force returns the memoized value, evaluating the thunk if no value is
// memoized yet. Errors are returned unchanged and leave the cell retryable.
func (c *Cell[T]) Force(ctx context.Context) (T, error) {
	if v, ok := c.Peek(); ok {
		return v, nil
	}

	out, err, _ := c.group.Do(forceKey, func() (any, error) {
		// A concurrent flight may have finished between Peek and Do.
		if v, ok := c.Peek(); ok {
			return v, nil
		}
		v, err := c.thunk(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.state = StateFailed
			c.lastErr = err
			return nil, err
		}
		c.state = StateResolved
		c.value = v
		c.lastErr = nil
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, _ := out.(T)
	return v, nil
}

// Peek returns the memoized value without evaluating the thunk.
func (c *Cell[T]) Peek() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateResolved {
		var zero T
		return zero, false
	}
	return c.value, true
}

// State returns the current state of the cell.
func (c *Cell[T]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the error of the last failed evaluation, or nil.
func (c *Cell[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}
