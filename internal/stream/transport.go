package stream

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	sse "github.com/tmaxmax/go-sse"
)

// idleWatch cancels the connection when no traffic arrives for d.
type idleWatch struct {
	timer *time.Timer
	d     time.Duration
}

func newIdleWatch(d time.Duration, onIdle func()) *idleWatch {
	if d <= 0 {
		return &idleWatch{}
	}
	return &idleWatch{timer: time.AfterFunc(d, onIdle), d: d}
}

func (w *idleWatch) reset() {
	if w.timer != nil {
		w.timer.Reset(w.d)
	}
}

func (w *idleWatch) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (c *Conn) connectSSE(ctx context.Context, onOpen func()) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.mu.Lock()
	if c.lastEventID != "" {
		req.Header.Set("Last-Event-ID", c.lastEventID)
	}
	c.mu.Unlock()

	idle := newIdleWatch(c.cfg.IdleTimeout, func() { cancel(errIdle) })
	defer idle.stop()

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connect: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); mt != "text/event-stream" {
			return fmt.Errorf("connect: unexpected content type %q", ct)
		}
	}

	idle.reset()
	onOpen()
	c.touch()

	body := &activityReader{r: resp.Body, onRead: func() {
		idle.reset()
		c.touch()
	}}
	for ev, err := range sse.Read(body, readConfig) {
		if err != nil {
			if cause := context.Cause(ctx); errors.Is(cause, errIdle) {
				return errIdle
			}
			return fmt.Errorf("read: %w", err)
		}
		c.handleSSE(ev)
	}
	if cause := context.Cause(ctx); errors.Is(cause, errIdle) {
		return errIdle
	}
	return errors.New("stream ended by server")
}

func (c *Conn) connectWebSocket(ctx context.Context, onOpen func()) error {
	header := http.Header{}
	c.mu.Lock()
	if c.lastEventID != "" {
		header.Set("Last-Event-ID", c.lastEventID)
	}
	c.mu.Unlock()

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = ws.Close() }()

	stop := context.AfterFunc(ctx, func() {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = ws.Close()
	})
	defer stop()

	extend := func() {
		c.touch()
		if c.cfg.IdleTimeout > 0 {
			_ = ws.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
		}
	}
	ws.SetPingHandler(func(appData string) error {
		extend()
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	onOpen()
	extend()
	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return errIdle
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("stream ended by server")
			}
			return fmt.Errorf("read: %w", err)
		}
		extend()
		if kind != websocket.TextMessage {
			continue
		}
		c.dispatch(data)
	}
}
