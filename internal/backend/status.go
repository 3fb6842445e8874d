package backend

import "time"

// Status is a conversation's lifecycle state. Only the backend moves it.
type Status string

const (
	StatusOpen      Status = "open"
	StatusResolved  Status = "resolved"
	StatusAbandoned Status = "abandoned"
)

// OpenMessagesInterval is how often an open conversation's messages are polled.
const OpenMessagesInterval = 5 * time.Second

// Policy is everything the UI derives from a status.
type Policy struct {
	Label        string
	CanSend      bool
	CanResolve   bool
	PollInterval time.Duration // 0 disables polling
	LockedNotice string
}

// PolicyFor is the single place status-dependent behavior is decided.
// Unknown values are treated as closed.
func PolicyFor(s Status) Policy {
	switch s {
	case StatusOpen:
		return Policy{
			Label:        "Open",
			CanSend:      true,
			CanResolve:   true,
			PollInterval: OpenMessagesInterval,
		}
	case StatusResolved:
		return Policy{
			Label:        "Resolved",
			LockedNotice: "This conversation was resolved. Sending is disabled.",
		}
	case StatusAbandoned:
		return Policy{
			Label:        "Abandoned",
			LockedNotice: "This conversation was abandoned. Sending is disabled.",
		}
	default:
		return Policy{
			Label:        string(s),
			LockedNotice: "Sending is disabled for this conversation.",
		}
	}
}

// IsOpen reports whether s accepts outbound messages.
func (s Status) IsOpen() bool {
	return s == StatusOpen
}
