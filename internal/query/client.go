// Package query is a keyed cache of server responses. Observers subscribe to
// keys, concurrent fetches of one key collapse into a single request, and
// invalidation by key prefix refetches whatever is currently observed.
package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/matheus3301/beazap/internal/bus"
)

// EventInvalidated is published on the bus for every Invalidate call.
const EventInvalidated = "query.invalidated"

// Invalidated is the payload of EventInvalidated.
type Invalidated struct {
	Prefix  Key
	Matched int
}

// Config tunes a Client.
type Config struct {
	// RequestTimeout bounds each fetch and mutation. Zero means no timeout.
	RequestTimeout time.Duration
	// StaleTime is how long data counts as fresh for a new mount. Zero makes
	// every mount revalidate.
	StaleTime time.Duration
	// CacheTime is how long an unobserved entry is kept. Zero drops it as
	// soon as the last observer closes.
	CacheTime time.Duration
}

// DefaultConfig matches the dashboard's defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		CacheTime:      5 * time.Minute,
	}
}

// Client owns every cache entry. All entry state is guarded by mu.
type Client struct {
	cfg    Config
	logger *zap.Logger
	bus    *bus.Bus

	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	closed  bool
}

// New creates a client. b may be nil.
func New(cfg Config, b *bus.Bus, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		logger:  logger,
		bus:     b,
		entries: make(map[string]*entry),
	}
}

// Query mounts an observer on key. The entry is fetched when it has no data,
// is stale, or is older than StaleTime, unless opts.Disabled.
func (c *Client) Query(key Key, fetch FetchFunc, opts Options) *Observer {
	o := &Observer{
		client:  c,
		opts:    opts,
		updates: make(chan struct{}, 1),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attach(o, key, fetch)
	return o
}

// Fetch returns fresh cached data for key or fetches it, sharing any request
// already in flight. It does not subscribe.
func (c *Client) Fetch(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	e := c.ensure(key, fetch)
	if c.fresh(e) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	ch := c.startFetch(e, false)
	if len(e.observers) == 0 {
		c.scheduleGC(e)
	}
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the cached result for key without subscribing.
func (c *Client) Peek(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.hash()]
	if !ok {
		return Result{}, false
	}
	return e.result(), true
}

// Invalidate marks every entry whose key starts with prefix stale. Entries
// with an enabled observer refetch now; if a request is already in flight,
// exactly one follow-up fetch runs after it settles. Unobserved entries are
// refetched on their next mount. Returns the number of matched entries.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	n := 0
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		n++
		e.stale = true
		switch {
		case e.active() > 0:
			c.startFetch(e, true)
		case e.fetching:
			// Keeps the entry stale once the running flight settles.
			e.refetch = true
		}
	}
	c.mu.Unlock()

	c.logger.Debug("invalidated", zap.Stringer("prefix", prefix), zap.Int("matched", n))
	if c.bus != nil {
		c.bus.Publish(bus.Event{
			Kind:    EventInvalidated,
			Payload: Invalidated{Prefix: prefix, Matched: n},
		})
	}
	return n
}

// Keys lists the cached keys, for diagnostics.
func (c *Client) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.entries))
	for _, e := range c.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// Close stops every poll timer and GC timer. In-flight requests still
// complete. Observers stay readable but no longer poll.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, e := range c.entries {
		e.stopPoll()
		if e.gcTimer != nil {
			e.gcTimer.Stop()
			e.gcTimer = nil
		}
	}
}

func (c *Client) requestContext() (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout > 0 {
		return context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	}
	return context.WithCancel(context.Background())
}

// ensure returns the entry for key, creating it. The latest fetch function
// wins. Caller holds mu.
func (c *Client) ensure(key Key, fetch FetchFunc) *entry {
	h := key.hash()
	e, ok := c.entries[h]
	if !ok {
		e = &entry{
			key:       key,
			hash:      h,
			observers: make(map[*Observer]struct{}),
		}
		c.entries[h] = e
	}
	if fetch != nil {
		e.fetch = fetch
	}
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
	return e
}

// fresh reports whether e can be served without fetching. Caller holds mu.
func (c *Client) fresh(e *entry) bool {
	if e.status != StatusSuccess || e.stale {
		return false
	}
	return time.Since(e.updatedAt) < c.cfg.StaleTime
}

// scheduleGC drops e after CacheTime unless it is observed again. Caller holds mu.
func (c *Client) scheduleGC(e *entry) {
	if e.gcTimer != nil {
		e.gcTimer.Stop()
	}
	if c.cfg.CacheTime <= 0 {
		c.remove(e)
		return
	}
	e.gcTimer = time.AfterFunc(c.cfg.CacheTime, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if len(e.observers) == 0 {
			c.remove(e)
		}
	})
}

func (c *Client) remove(e *entry) {
	e.stopPoll()
	if c.entries[e.hash] == e {
		delete(c.entries, e.hash)
	}
}
