package query

import "context"

// Observer is one mounted subscription to a key. Result is synchronous;
// Updates signals (coalesced) whenever the result may have changed.
type Observer struct {
	client  *Client
	entry   *entry
	opts    Options
	updates chan struct{}
	closed  bool
}

// attach binds o to key and fetches if the mount needs it. Caller holds mu.
func (c *Client) attach(o *Observer, key Key, fetch FetchFunc) {
	e := c.ensure(key, fetch)
	o.entry = e
	e.observers[o] = struct{}{}
	c.reschedulePoll(e)
	if !o.opts.Disabled && !e.fetching && !c.fresh(e) {
		c.startFetch(e, false)
	}
	o.signal()
}

// detach unbinds o from its entry. Caller holds mu.
func (c *Client) detach(o *Observer) {
	e := o.entry
	delete(e.observers, o)
	c.reschedulePoll(e)
	if len(e.observers) == 0 {
		c.scheduleGC(e)
	}
}

func (o *Observer) signal() {
	select {
	case o.updates <- struct{}{}:
	default:
	}
}

// Result returns the current state of the observed entry.
func (o *Observer) Result() Result {
	o.client.mu.Lock()
	defer o.client.mu.Unlock()
	return o.entry.result()
}

// Key returns the observed key.
func (o *Observer) Key() Key {
	o.client.mu.Lock()
	defer o.client.mu.Unlock()
	return o.entry.key
}

// Updates is closed by Close.
func (o *Observer) Updates() <-chan struct{} {
	return o.updates
}

// SetOptions changes polling or enablement. Enabling an observer whose entry
// needs data starts a fetch.
func (o *Observer) SetOptions(opts Options) {
	c := o.client
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.closed {
		return
	}
	wasDisabled := o.opts.Disabled
	o.opts = opts
	c.reschedulePoll(o.entry)
	if wasDisabled && !opts.Disabled && !o.entry.fetching && !c.fresh(o.entry) {
		c.startFetch(o.entry, false)
	}
}

// SetKey moves the observer to another key, as when a filter changes. The
// previous entry stays cached for CacheTime.
func (o *Observer) SetKey(key Key, fetch FetchFunc) {
	c := o.client
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.closed {
		return
	}
	if o.entry.hash == key.hash() {
		if fetch != nil {
			o.entry.fetch = fetch
		}
		return
	}
	c.detach(o)
	c.attach(o, key, fetch)
}

// Refetch fetches now (or schedules a follow-up if a request is in flight)
// and waits for the result.
func (o *Observer) Refetch(ctx context.Context) error {
	c := o.client
	c.mu.Lock()
	if o.closed {
		c.mu.Unlock()
		return nil
	}
	ch := c.startFetch(o.entry, true)
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close unmounts the observer. The last observer of an entry stops its poll
// timer; in-flight requests are not aborted and still land in the cache.
func (o *Observer) Close() {
	c := o.client
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	c.detach(o)
	close(o.updates)
}
