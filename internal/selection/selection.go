// Package selection holds the instance the user is looking at. Every scoped
// query takes its instance parameter from here.
package selection

import (
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/beazap/internal/bus"
)

// EventChanged is published with a Change payload.
const EventChanged = "selection.changed"

// Change describes a selection update. A nil ID means all instances.
type Change struct {
	ID   *int64
	Auto bool
}

// Context is the process-wide selected instance.
type Context struct {
	bus    *bus.Bus
	logger *zap.Logger

	mu       sync.Mutex
	id       int64
	selected bool
	autoDone bool
	nextSub  int
	subs     map[int]func(Change)
}

// New creates an empty selection. b may be nil.
func New(b *bus.Bus, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{bus: b, logger: logger, subs: make(map[int]func(Change))}
}

// Get returns the selected id.
func (c *Context) Get() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.selected
}

// Param is the query key parameter: nil when nothing is selected.
func (c *Context) Param() *int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selected {
		return nil
	}
	id := c.id
	return &id
}

// Set selects id. Selecting the current id is a no-op.
func (c *Context) Set(id int64) {
	c.mu.Lock()
	if c.selected && c.id == id {
		c.mu.Unlock()
		return
	}
	c.id, c.selected = id, true
	c.mu.Unlock()
	c.broadcast(Change{ID: &id})
}

// Clear drops the selection, scoping queries to all instances.
func (c *Context) Clear() {
	c.mu.Lock()
	if !c.selected {
		c.mu.Unlock()
		return
	}
	c.id, c.selected = 0, false
	c.mu.Unlock()
	c.broadcast(Change{})
}

// AutoSelect picks the first id the first time a non-empty list is seen,
// provided nothing was selected yet. Later lists never change the selection.
// It reports whether it selected.
func (c *Context) AutoSelect(ids []int64) bool {
	c.mu.Lock()
	if c.autoDone || len(ids) == 0 {
		c.mu.Unlock()
		return false
	}
	c.autoDone = true
	if c.selected {
		c.mu.Unlock()
		return false
	}
	id := ids[0]
	c.id, c.selected = id, true
	c.mu.Unlock()

	c.logger.Info("instance auto-selected", zap.Int64("instance_id", id))
	c.broadcast(Change{ID: &id, Auto: true})
	return true
}

// Subscribe registers fn for every change and returns its cancel func.
func (c *Context) Subscribe(fn func(Change)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Context) broadcast(ch Change) {
	c.mu.Lock()
	fns := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
	if c.bus != nil {
		c.bus.Publish(bus.Event{Kind: EventChanged, Payload: ch})
	}
}
