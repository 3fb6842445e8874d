package store

// Setting is one persisted client preference.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt int64
}

// EventLogEntry is one received stream event.
type EventLogEntry struct {
	ID         int64
	Type       string
	Instance   string
	Payload    string
	ReceivedAt int64
}
