// Package stream maintains the server-push connection (SSE, or WebSocket for
// ws:// URLs), decodes envelopes and fans them out to subscribers.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/beazap/internal/bus"
	"github.com/matheus3301/beazap/internal/status"
)

// Connection states.
const (
	StateClosed       status.State = "closed"
	StateConnecting   status.State = "connecting"
	StateOpen         status.State = "open"
	StateErrored      status.State = "errored"
	StateReconnecting status.State = "reconnecting"
)

var transitions = status.Transitions{
	StateClosed:       {StateConnecting},
	StateConnecting:   {StateOpen, StateErrored, StateClosed},
	StateOpen:         {StateErrored, StateClosed},
	StateErrored:      {StateReconnecting, StateClosed},
	StateReconnecting: {StateConnecting, StateClosed},
}

// EventStatusChanged carries a status.Change for every connection state change.
const EventStatusChanged = "stream.status_changed"

var errIdle = errors.New("no traffic within idle timeout")

// Config describes the push endpoint and reconnect policy.
type Config struct {
	// URL is an http(s) SSE endpoint or a ws(s) WebSocket endpoint.
	URL string
	// Reconnect retries with exponential backoff after a failure. When false
	// the connection stays errored.
	Reconnect   bool
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	IdleTimeout time.Duration // 0 disables
	HTTPClient  *http.Client
}

// DefaultConfig returns the defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:         url,
		Reconnect:   true,
		MinBackoff:  time.Second,
		MaxBackoff:  30 * time.Second,
		IdleTimeout: 75 * time.Second,
	}
}

// Handler receives decoded events. It runs on the reader goroutine and must
// not block.
type Handler func(Event)

// Conn is one long-lived push connection.
type Conn struct {
	cfg     Config
	bus     *bus.Bus
	logger  *zap.Logger
	machine *status.Machine

	mu          sync.Mutex
	handlers    map[int]Handler
	nextID      int
	lastEventID string
	lastSeen    time.Time
	received    int

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a connection. It does nothing until Start.
func New(cfg Config, b *bus.Bus, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	return &Conn{
		cfg:      cfg,
		bus:      b,
		logger:   logger,
		machine:  status.NewMachine(StateClosed, transitions, b, EventStatusChanged),
		handlers: make(map[int]Handler),
	}
}

// Subscribe registers h for every non-heartbeat event.
func (c *Conn) Subscribe(h Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			c.mu.Unlock()
		})
	}
}

// State returns the current connection state.
func (c *Conn) State() status.State {
	return c.machine.Current()
}

// OnStateChange registers fn for state transitions.
func (c *Conn) OnStateChange(fn func(status.Change)) {
	c.machine.OnChange(fn)
}

// Stats reports the number of decoded events and the time of the last
// traffic, heartbeats included.
func (c *Conn) Stats() (received int, lastSeen time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.received, c.lastSeen
}

// Start opens the connection in the background.
func (c *Conn) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.run(ctx)
	}()
}

// Stop closes the connection and waits for the reader to exit.
func (c *Conn) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

func (c *Conn) transition(to status.State) {
	if err := c.machine.Transition(to); err != nil {
		c.logger.Debug("stream state", zap.Error(err))
	}
}

func (c *Conn) run(ctx context.Context) {
	backoff := c.cfg.MinBackoff
	for {
		c.transition(StateConnecting)
		err := c.connect(ctx, func() {
			c.transition(StateOpen)
			backoff = c.cfg.MinBackoff
			c.logger.Info("event stream open", zap.String("url", c.cfg.URL))
		})
		if ctx.Err() != nil {
			c.transition(StateClosed)
			return
		}
		c.transition(StateErrored)
		c.logger.Warn("event stream failed", zap.Error(err))
		if !c.cfg.Reconnect {
			return
		}

		c.transition(StateReconnecting)
		wait := min(backoff, c.cfg.MaxBackoff)
		c.logger.Debug("event stream reconnecting", zap.Duration("in", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			c.transition(StateClosed)
			return
		case <-t.C:
		}
		backoff = min(backoff*2, c.cfg.MaxBackoff)
	}
}

func (c *Conn) connect(ctx context.Context, onOpen func()) error {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse stream url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return c.connectWebSocket(ctx, onOpen)
	case "http", "https":
		return c.connectSSE(ctx, onOpen)
	default:
		return fmt.Errorf("unsupported stream scheme %q", u.Scheme)
	}
}

// touch records traffic on the wire.
func (c *Conn) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// dispatch decodes one envelope and delivers it.
func (c *Conn) dispatch(data []byte) {
	evt, err := Decode(data)
	if err != nil {
		c.logger.Debug("dropping undecodable event", zap.Error(err), zap.ByteString("data", data))
		return
	}

	c.mu.Lock()
	evt.ID = c.lastEventID
	c.received++
	if evt.Type == TypeHeartbeat {
		c.mu.Unlock()
		return
	}
	handlers := make([]Handler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(bus.Event{
			Kind:      "stream." + evt.Type,
			Timestamp: evt.ReceivedAt,
			Payload:   evt,
		})
	}
	for _, h := range handlers {
		h(evt)
	}
}
