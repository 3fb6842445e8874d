package model

import (
	"sync"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/query"
	"github.com/matheus3301/beazap/internal/shell"
	"github.com/matheus3301/beazap/internal/timeline"
)

// Filters is the status filter cycle of the conversation list. The empty
// status means no filter.
var Filters = []backend.Status{"", backend.StatusOpen, backend.StatusResolved, backend.StatusAbandoned}

// FilterLabel is the display name of a filter.
func FilterLabel(s backend.Status) string {
	if s == "" {
		return "all"
	}
	return string(s)
}

// Inbox is the TUI's state: the filtered conversation list, the SLA alert
// count and at most one open timeline. Every mounted piece feeds Updates.
type Inbox struct {
	shell *shell.Shell
	limit int

	mu     sync.Mutex
	filter int
	list   *shell.Scoped
	alerts *shell.Scoped
	view   *timeline.View
	closed bool

	updates chan struct{}
	Flash   Flash
}

// NewInbox mounts the unfiltered list and the SLA alerts.
func NewInbox(sh *shell.Shell, limit int) *Inbox {
	m := &Inbox{
		shell:   sh,
		limit:   limit,
		updates: make(chan struct{}, 1),
	}
	m.list = sh.Conversations(backend.ConversationFilter{Limit: limit})
	m.alerts = sh.SLAAlerts()
	go m.forward(m.list.Updates())
	go m.forward(m.alerts.Updates())
	return m
}

// forward relays src into the shared channel until src is closed.
func (m *Inbox) forward(src <-chan struct{}) {
	for range src {
		m.signal()
	}
}

func (m *Inbox) signal() {
	select {
	case m.updates <- struct{}{}:
	default:
	}
}

// Updates signals (coalesced) when anything shown may have changed.
func (m *Inbox) Updates() <-chan struct{} {
	return m.updates
}

// Shell exposes the underlying shell for commands.
func (m *Inbox) Shell() *shell.Shell {
	return m.shell
}

// Filter returns the active status filter.
func (m *Inbox) Filter() backend.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Filters[m.filter]
}

// CycleFilter moves to the next filter and remounts the list.
func (m *Inbox) CycleFilter() backend.Status {
	m.mu.Lock()
	next := (m.filter + 1) % len(Filters)
	m.mu.Unlock()
	return m.SetFilter(Filters[next])
}

// SetFilter remounts the list with status. Unknown statuses are ignored.
func (m *Inbox) SetFilter(status backend.Status) backend.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, f := range Filters {
		if f == status {
			idx = i
		}
	}
	if idx < 0 || m.closed {
		return Filters[m.filter]
	}
	if idx != m.filter {
		m.filter = idx
		old := m.list
		m.list = m.shell.Conversations(backend.ConversationFilter{Limit: m.limit, Status: status})
		go m.forward(m.list.Updates())
		old.Close()
	}
	return Filters[m.filter]
}

// Conversations returns the list result and its data, if any.
func (m *Inbox) Conversations() (query.Result, []backend.Conversation) {
	m.mu.Lock()
	list := m.list
	m.mu.Unlock()
	res := list.Result()
	convs, _ := query.Get[[]backend.Conversation](res)
	return res, convs
}

// Alerts returns the number of SLA alerts for the current threshold, or -1
// before the first load.
func (m *Inbox) Alerts() int {
	res := m.alerts.Result()
	a, ok := query.Get[*backend.SLAAlerts](res)
	if !ok || a == nil {
		return -1
	}
	return a.Count
}

// List returns the mounted conversation list.
func (m *Inbox) List() *shell.Scoped {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list
}

// Open mounts the timeline for id, closing the previous one. Opening the
// already open conversation returns it unchanged.
func (m *Inbox) Open(id int64) *timeline.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	if m.view != nil && m.view.ID() == id {
		return m.view
	}
	if m.view != nil {
		m.view.Close()
	}
	m.view = m.shell.OpenConversation(id)
	go m.forward(m.view.Updates())
	return m.view
}

// Active returns the open timeline, or nil.
func (m *Inbox) Active() *timeline.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// CloseActive unmounts the open timeline.
func (m *Inbox) CloseActive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.view != nil {
		m.view.Close()
		m.view = nil
	}
}

// Close unmounts everything.
func (m *Inbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.list.Close()
	m.alerts.Close()
	if m.view != nil {
		m.view.Close()
		m.view = nil
	}
}
