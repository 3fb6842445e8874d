package query

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MutationFunc performs a server-side change.
type MutationFunc[V, R any] func(ctx context.Context, vars V) (R, error)

// MutationOptions declare what a mutation affects.
type MutationOptions[V, R any] struct {
	// Invalidates lists the key prefixes to invalidate after success.
	Invalidates func(vars V) []Key
	OnSuccess   func(vars V, result R)
	OnError     func(vars V, err error)
}

// Mutation runs one kind of change. It is never retried automatically; the
// last failure stays readable until the next attempt or Reset.
type Mutation[V, R any] struct {
	client *Client
	fn     MutationFunc[V, R]
	opts   MutationOptions[V, R]

	mu      sync.Mutex
	pending bool
	err     error
	data    R
}

// NewMutation binds fn to c.
func NewMutation[V, R any](c *Client, fn MutationFunc[V, R], opts MutationOptions[V, R]) *Mutation[V, R] {
	return &Mutation[V, R]{client: c, fn: fn, opts: opts}
}

// Mutate runs fn once. On success the declared invalidation set is applied
// before OnSuccess runs.
func (m *Mutation[V, R]) Mutate(ctx context.Context, vars V) (R, error) {
	m.mu.Lock()
	m.pending = true
	m.err = nil
	m.mu.Unlock()

	if m.client.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.client.cfg.RequestTimeout)
		defer cancel()
	}
	result, err := m.fn(ctx, vars)

	m.mu.Lock()
	m.pending = false
	if err != nil {
		m.err = err
	} else {
		m.data = result
	}
	m.mu.Unlock()

	if err != nil {
		m.client.logger.Debug("mutation failed", zap.Error(err))
		if m.opts.OnError != nil {
			m.opts.OnError(vars, err)
		}
		return result, err
	}

	if m.opts.Invalidates != nil {
		for _, k := range m.opts.Invalidates(vars) {
			m.client.Invalidate(k)
		}
	}
	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(vars, result)
	}
	return result, nil
}

// IsPending reports whether a Mutate call is running.
func (m *Mutation[V, R]) IsPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// IsError reports whether the last attempt failed.
func (m *Mutation[V, R]) IsError() bool {
	return m.Err() != nil
}

func (m *Mutation[V, R]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Data returns the result of the last successful attempt.
func (m *Mutation[V, R]) Data() R {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Reset clears the retained error and data.
func (m *Mutation[V, R]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero R
	m.err = nil
	m.data = zero
}
