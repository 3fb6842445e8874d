package timeline

import (
	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/query"
	"github.com/matheus3301/beazap/internal/status"
)

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	ID              int64
	Conversation    *backend.Conversation
	ConversationErr error
	Policy          backend.Policy

	Groups          []DayGroup
	MessageCount    int
	MessagesLoading bool
	MessagesErr     error

	Notes []backend.Note

	Composer  string
	SendState status.State
	SendErr   error

	// Locked replaces the composer with LockedNotice.
	Locked       bool
	LockedNotice string

	// ScrollToEnd is set when the message list grew since the previous Snapshot.
	ScrollToEnd bool
}

// Snapshot assembles the current state. It is meant for a single renderer:
// ScrollToEnd compares against that renderer's previous call.
func (v *View) Snapshot() Snapshot {
	cr := v.conv.Result()
	mr := v.msgs.Result()
	nr := v.notes.Result()

	s := Snapshot{
		ID:              v.id,
		ConversationErr: cr.Err,
		MessagesLoading: mr.Status == query.StatusPending,
		MessagesErr:     mr.Err,
		SendState:       v.machine.Current(),
	}
	if conv, ok := query.Get[*backend.Conversation](cr); ok && conv != nil {
		s.Conversation = conv
		s.Policy = backend.PolicyFor(conv.Status)
		s.Locked = !s.Policy.CanSend
		s.LockedNotice = s.Policy.LockedNotice
	}
	if msgs, ok := query.Get[[]backend.Message](mr); ok {
		s.Groups = Group(msgs, v.deps.Location)
		s.MessageCount = len(msgs)
	}
	if notes, ok := query.Get[[]backend.Note](nr); ok {
		s.Notes = notes
	}

	v.mu.Lock()
	s.Composer = v.composer
	s.SendErr = v.sendErr
	s.ScrollToEnd = s.MessageCount > v.seen
	v.seen = s.MessageCount
	v.mu.Unlock()
	return s
}
