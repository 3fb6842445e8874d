package stream

import (
	"io"

	sse "github.com/tmaxmax/go-sse"
)

// readConfig raises the per-event limit above the parser's 64 KiB default;
// a single envelope may carry a full conversation record.
var readConfig = &sse.ReadConfig{MaxEventSize: 1 << 20}

// activityReader reports every chunk read off the wire. The parser never
// surfaces ": keepalive" comments, so traffic is tracked below it.
type activityReader struct {
	r      io.Reader
	onRead func()
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 {
		a.onRead()
	}
	return n, err
}

// handleSSE records the event id for the next reconnect and dispatches the
// payload. Like EventSource.onmessage, only unnamed or "message" events
// count; blocks without data only move the id.
func (c *Conn) handleSSE(ev sse.Event) {
	if ev.LastEventID != "" {
		c.mu.Lock()
		c.lastEventID = ev.LastEventID
		c.mu.Unlock()
	}
	if ev.Data == "" {
		return
	}
	if ev.Type != "" && ev.Type != "message" {
		return
	}
	c.dispatch([]byte(ev.Data))
}
