package query

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	key   Key
	hash  string
	fetch FetchFunc

	data      any
	err       error
	status    Status
	updatedAt time.Time
	stale     bool

	// fetching is true while a flight for this entry runs. refetch asks the
	// running flight for one more round once it settles.
	fetching bool
	refetch  bool

	observers    map[*Observer]struct{}
	pollInterval time.Duration
	pollStop     chan struct{}
	gcTimer      *time.Timer
}

func (e *entry) result() Result {
	return Result{
		Key:       e.key,
		Data:      e.data,
		Err:       e.err,
		Status:    e.status,
		Fetching:  e.fetching,
		Stale:     e.stale,
		UpdatedAt: e.updatedAt,
	}
}

// active counts enabled observers.
func (e *entry) active() int {
	n := 0
	for o := range e.observers {
		if !o.opts.Disabled {
			n++
		}
	}
	return n
}

func (e *entry) notify() {
	for o := range e.observers {
		o.signal()
	}
}

func (e *entry) stopPoll() {
	if e.pollStop != nil {
		close(e.pollStop)
		e.pollStop = nil
	}
	e.pollInterval = 0
}

// startFetch begins or joins the flight for e. A forced call that joins a
// running flight schedules one follow-up round. Caller holds mu.
func (c *Client) startFetch(e *entry, force bool) <-chan singleflight.Result {
	if e.fetching {
		if force {
			e.refetch = true
		}
		return c.group.DoChan(e.hash, c.flight(e))
	}
	// A finished flight may still be registered in the group for a moment.
	c.group.Forget(e.hash)
	e.fetching = true
	e.refetch = false
	e.notify()
	return c.group.DoChan(e.hash, c.flight(e))
}

func (c *Client) flight(e *entry) func() (any, error) {
	return func() (any, error) {
		for {
			c.mu.Lock()
			fetch := e.fetch
			e.refetch = false
			c.mu.Unlock()

			ctx, cancel := c.requestContext()
			data, err := fetch(ctx)
			cancel()

			c.mu.Lock()
			if err != nil {
				e.err = err
				e.status = StatusError
				c.logger.Debug("query failed", zap.Stringer("key", e.key), zap.Error(err))
			} else {
				e.data = data
				e.err = nil
				e.status = StatusSuccess
				e.updatedAt = time.Now()
			}
			e.stale = e.refetch
			again := e.refetch && e.active() > 0
			if !again {
				e.fetching = false
			}
			e.notify()
			if !again {
				data = e.data
			}
			c.mu.Unlock()

			if !again {
				return data, err
			}
		}
	}
}

// reschedulePoll runs one ticker per entry at the smallest interval among
// its enabled observers. Caller holds mu.
func (c *Client) reschedulePoll(e *entry) {
	var interval time.Duration
	for o := range e.observers {
		iv := o.opts.RefetchInterval
		if o.opts.Disabled || iv <= 0 {
			continue
		}
		if interval == 0 || iv < interval {
			interval = iv
		}
	}
	if c.closed {
		interval = 0
	}
	if interval == e.pollInterval {
		return
	}
	e.stopPoll()
	if interval == 0 {
		return
	}
	stop := make(chan struct{})
	e.pollStop = stop
	e.pollInterval = interval
	go c.poll(e, interval, stop)
}

func (c *Client) poll(e *entry, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if !e.fetching && e.active() > 0 {
				c.startFetch(e, false)
			}
			c.mu.Unlock()
		}
	}
}
