package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/beazap/internal/bus"
)

const (
	waitFor = time.Second
	tick    = 2 * time.Millisecond
)

// counter is a fetch function that counts calls and returns the call number.
type counter struct {
	calls atomic.Int32
}

func (c *counter) fetch(ctx context.Context) (any, error) {
	return int(c.calls.Add(1)), nil
}

// gate is a fetch function that blocks each call until released.
type gate struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{
		started: make(chan struct{}, 16),
		release: make(chan struct{}, 16),
	}
}

func (g *gate) fetch(ctx context.Context) (any, error) {
	n := int(g.calls.Add(1))
	g.started <- struct{}{}
	<-g.release
	return n, nil
}

func (g *gate) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(waitFor):
		t.Fatal("fetch did not start")
	}
}

func settled(o *Observer) func() bool {
	return func() bool {
		r := o.Result()
		return r.Status != StatusPending && !r.Fetching
	}
}

func TestQueryMountFetches(t *testing.T) {
	c := New(Config{}, nil, nil)
	var cnt counter

	o := c.Query(NewKey("instances"), cnt.fetch, Options{})
	defer o.Close()

	require.Eventually(t, settled(o), waitFor, tick)
	r := o.Result()
	assert.Equal(t, StatusSuccess, r.Status)
	v, ok := Get[int](r)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, r.HasData())
	assert.False(t, r.Stale)
}

func TestConcurrentFetchesCollapse(t *testing.T) {
	c := New(Config{StaleTime: time.Hour}, nil, nil)
	g := newGate()
	key := NewKey("messages", int64(1))

	o1 := c.Query(key, g.fetch, Options{})
	defer o1.Close()
	g.waitStarted(t)

	o2 := c.Query(key, g.fetch, Options{})
	defer o2.Close()

	done := make(chan any, 1)
	go func() {
		v, _ := c.Fetch(context.Background(), key, g.fetch)
		done <- v
	}()

	g.release <- struct{}{}
	select {
	case v := <-done:
		assert.Equal(t, 1, v)
	case <-time.After(waitFor):
		t.Fatal("Fetch did not return")
	}

	require.Eventually(t, settled(o2), waitFor, tick)
	assert.Equal(t, int32(1), g.calls.Load())
	assert.Equal(t, o1.Result().Data, o2.Result().Data)
}

func TestInvalidateRefetchesObserved(t *testing.T) {
	c := New(Config{}, nil, nil)
	var cnt counter

	o := c.Query(NewKey("conversations", nil), cnt.fetch, Options{})
	defer o.Close()
	require.Eventually(t, settled(o), waitFor, tick)

	n := c.Invalidate(Key{"conversations"})
	assert.Equal(t, 1, n)

	require.Eventually(t, func() bool {
		v, _ := Get[int](o.Result())
		return v == 2 && !o.Result().Fetching
	}, waitFor, tick)
	assert.False(t, o.Result().Stale)
}

func TestInvalidateDuringFlightRunsOneFollowUp(t *testing.T) {
	c := New(Config{}, nil, nil)
	g := newGate()
	key := NewKey("messages", int64(7))

	o := c.Query(key, g.fetch, Options{})
	defer o.Close()
	g.waitStarted(t)

	c.Invalidate(key)
	c.Invalidate(Key{"messages"})

	g.release <- struct{}{}
	g.waitStarted(t)
	g.release <- struct{}{}

	require.Eventually(t, settled(o), waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), g.calls.Load())
	v, _ := Get[int](o.Result())
	assert.Equal(t, 2, v, "follow-up result must win")
}

func TestInvalidateUnobservedIsLazy(t *testing.T) {
	c := New(Config{CacheTime: time.Hour}, nil, nil)
	var cnt counter
	key := NewKey("sla-alerts", nil, 30)

	o := c.Query(key, cnt.fetch, Options{})
	require.Eventually(t, settled(o), waitFor, tick)
	o.Close()

	assert.Equal(t, 1, c.Invalidate(Key{"sla-alerts"}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), cnt.calls.Load())

	r, ok := c.Peek(key)
	require.True(t, ok)
	assert.True(t, r.Stale)

	o2 := c.Query(key, cnt.fetch, Options{})
	defer o2.Close()
	assert.True(t, o2.Result().HasData(), "remount serves cached data")
	require.Eventually(t, func() bool { return cnt.calls.Load() == 2 }, waitFor, tick)
}

func TestInvalidateDuringUnobservedFetchStaysStale(t *testing.T) {
	c := New(Config{StaleTime: time.Hour, CacheTime: time.Hour}, nil, nil)
	g := newGate()
	key := NewKey("sla-alerts", nil, 30)

	done := make(chan any, 1)
	go func() {
		v, _ := c.Fetch(context.Background(), key, g.fetch)
		done <- v
	}()
	g.waitStarted(t)

	assert.Equal(t, 1, c.Invalidate(Key{"sla-alerts"}))
	g.release <- struct{}{}
	select {
	case v := <-done:
		assert.Equal(t, 1, v)
	case <-time.After(waitFor):
		t.Fatal("fetch did not return")
	}

	r, ok := c.Peek(key)
	require.True(t, ok)
	assert.True(t, r.Stale, "invalidation during the flight must survive it")
	assert.False(t, r.Fetching)

	g.release <- struct{}{}
	v, err := c.Fetch(context.Background(), key, g.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, int32(2), g.calls.Load())
}

func TestInvalidateMatchesPrefixOnly(t *testing.T) {
	c := New(Config{CacheTime: time.Hour}, nil, nil)
	var cnt counter
	inst := int64(3)

	for _, k := range []Key{
		NewKey("conversations", nil),
		NewKey("conversations", &inst),
		NewKey("conversations-recent", &inst),
		NewKey("conversation", int64(9)),
	} {
		o := c.Query(k, cnt.fetch, Options{})
		defer o.Close()
	}

	assert.Equal(t, 2, c.Invalidate(Key{"conversations"}))
	assert.Equal(t, 1, c.Invalidate(Key{"conversations", "3"}))
	assert.Equal(t, 0, c.Invalidate(Key{"groups"}))
	assert.Len(t, c.Keys(), 4)
}

func TestInvalidatePublishes(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("query.", 4)
	defer unsub()

	c := New(Config{}, b, nil)
	c.Invalidate(Key{"calls"})

	select {
	case evt := <-ch:
		require.Equal(t, EventInvalidated, evt.Kind)
		p, ok := evt.Payload.(Invalidated)
		require.True(t, ok)
		assert.Equal(t, Key{"calls"}, p.Prefix)
		assert.Equal(t, 0, p.Matched)
	case <-time.After(waitFor):
		t.Fatal("no invalidation event")
	}
}

func TestErrorRetainsData(t *testing.T) {
	c := New(Config{}, nil, nil)
	var calls atomic.Int32
	boom := errors.New("boom")
	fetch := func(ctx context.Context) (any, error) {
		if calls.Add(1) == 1 {
			return "first", nil
		}
		return nil, boom
	}

	o := c.Query(NewKey("overview"), fetch, Options{})
	defer o.Close()
	require.Eventually(t, settled(o), waitFor, tick)

	err := o.Refetch(context.Background())
	assert.ErrorIs(t, err, boom)

	r := o.Result()
	assert.Equal(t, StatusError, r.Status)
	assert.ErrorIs(t, r.Err, boom)
	assert.Equal(t, "first", r.Data)
}

func TestPollingUsesSmallestInterval(t *testing.T) {
	c := New(Config{CacheTime: time.Hour}, nil, nil)
	defer c.Close()
	var cnt counter
	key := NewKey("messages", int64(1))

	slow := c.Query(key, cnt.fetch, Options{RefetchInterval: time.Hour})
	defer slow.Close()
	fast := c.Query(key, cnt.fetch, Options{RefetchInterval: 10 * time.Millisecond})

	require.Eventually(t, func() bool { return cnt.calls.Load() >= 4 }, waitFor, tick)

	fast.Close()
	c.mu.Lock()
	interval := c.entries[key.hash()].pollInterval
	c.mu.Unlock()
	assert.Equal(t, time.Hour, interval)

	slow.SetOptions(Options{})
	c.mu.Lock()
	stopped := c.entries[key.hash()].pollStop == nil
	c.mu.Unlock()
	assert.True(t, stopped)

	settledAt := cnt.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.LessOrEqual(t, cnt.calls.Load(), settledAt+1)
}

func TestCloseStopsPolling(t *testing.T) {
	c := New(Config{CacheTime: time.Hour}, nil, nil)
	var cnt counter

	o := c.Query(NewKey("group-messages", int64(2)), cnt.fetch, Options{RefetchInterval: 5 * time.Millisecond})
	require.Eventually(t, func() bool { return cnt.calls.Load() >= 3 }, waitFor, tick)
	o.Close()

	time.Sleep(10 * time.Millisecond)
	after := cnt.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, cnt.calls.Load())

	drained := make(chan struct{})
	go func() {
		for range o.Updates() {
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(waitFor):
		t.Fatal("Updates not closed after Close")
	}
}

func TestDisabledObserver(t *testing.T) {
	c := New(Config{}, nil, nil)
	var cnt counter

	o := c.Query(NewKey("conversation", int64(0)), cnt.fetch, Options{Disabled: true, RefetchInterval: 5 * time.Millisecond})
	defer o.Close()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), cnt.calls.Load())
	assert.Equal(t, StatusPending, o.Result().Status)
	c.Invalidate(Key{"conversation"})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), cnt.calls.Load())

	o.SetOptions(Options{})
	require.Eventually(t, settled(o), waitFor, tick)
	assert.Equal(t, int32(1), cnt.calls.Load())
}

func TestSetKey(t *testing.T) {
	c := New(Config{CacheTime: time.Hour}, nil, nil)
	var cnt counter
	inst := int64(5)

	o := c.Query(NewKey("groups", nil), cnt.fetch, Options{})
	defer o.Close()
	require.Eventually(t, settled(o), waitFor, tick)

	o.SetKey(NewKey("groups", &inst), cnt.fetch)
	assert.Equal(t, "groups/5", o.Key().String())
	require.Eventually(t, func() bool {
		v, _ := Get[int](o.Result())
		return v == 2
	}, waitFor, tick)

	c.mu.Lock()
	old := c.entries[NewKey("groups", nil).hash()]
	c.mu.Unlock()
	require.NotNil(t, old, "previous entry stays cached")
	assert.Empty(t, old.observers)
}

func TestUnobservedEntryCollected(t *testing.T) {
	c := New(Config{CacheTime: 10 * time.Millisecond}, nil, nil)
	var cnt counter
	key := NewKey("calls", nil, "")

	o := c.Query(key, cnt.fetch, Options{})
	require.Eventually(t, settled(o), waitFor, tick)
	o.Close()

	require.Eventually(t, func() bool {
		_, ok := c.Peek(key)
		return !ok
	}, waitFor, tick)
}

func TestFetchServesFreshData(t *testing.T) {
	c := New(Config{StaleTime: time.Hour, CacheTime: time.Hour}, nil, nil)
	var cnt counter
	key := NewKey("extended-metrics", nil)

	v1, err := c.Fetch(context.Background(), key, cnt.fetch)
	require.NoError(t, err)
	v2, err := c.Fetch(context.Background(), key, cnt.fetch)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, int32(1), cnt.calls.Load())

	c.Invalidate(key)
	v3, err := c.Fetch(context.Background(), key, cnt.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v3)
}

func TestUnmountDoesNotAbortInFlight(t *testing.T) {
	c := New(Config{CacheTime: time.Hour}, nil, nil)
	g := newGate()
	key := NewKey("conversation", int64(3))

	o := c.Query(key, g.fetch, Options{})
	g.waitStarted(t)
	o.Close()
	g.release <- struct{}{}

	require.Eventually(t, func() bool {
		r, ok := c.Peek(key)
		return ok && r.Status == StatusSuccess
	}, waitFor, tick)
}

func TestRequestTimeout(t *testing.T) {
	c := New(Config{RequestTimeout: 5 * time.Millisecond}, nil, nil)
	fetch := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	o := c.Query(NewKey("overview"), fetch, Options{})
	defer o.Close()
	require.Eventually(t, settled(o), waitFor, tick)
	assert.ErrorIs(t, o.Result().Err, context.DeadlineExceeded)
}
