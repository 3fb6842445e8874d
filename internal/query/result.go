package query

import (
	"context"
	"time"
)

// FetchFunc loads the data for one key.
type FetchFunc func(ctx context.Context) (any, error)

// Status is the lifecycle of an entry's data.
type Status int

const (
	// StatusPending means no fetch has completed yet.
	StatusPending Status = iota
	// StatusSuccess means the last fetch succeeded.
	StatusSuccess
	// StatusError means the last fetch failed. Data from earlier fetches is kept.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// Result is an observer's view of its entry.
type Result struct {
	Key       Key
	Data      any
	Err       error
	Status    Status
	Fetching  bool
	Stale     bool
	UpdatedAt time.Time
}

// HasData reports whether any fetch ever succeeded.
func (r Result) HasData() bool {
	return !r.UpdatedAt.IsZero()
}

// Get extracts typed data from r. ok is false when there is no data or it
// has a different type.
func Get[T any](r Result) (T, bool) {
	v, ok := r.Data.(T)
	return v, ok
}

// Options control one observer.
type Options struct {
	// RefetchInterval polls the entry while this observer is mounted. Zero disables.
	RefetchInterval time.Duration
	// Disabled keeps the observer subscribed without ever fetching, e.g.
	// until a required id is known.
	Disabled bool
}
