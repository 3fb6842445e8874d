package stream

import (
	"encoding/json"
	"errors"
	"time"
)

// Known event types sent by the backend.
const (
	TypeHeartbeat      = "heartbeat"
	TypeNewMessage     = "new_message"
	TypeMessageUpdated = "message_updated"
	TypeGroupsUpdated  = "groups_updated"
	TypeNewCall        = "new_call"
)

// Event is one decoded push envelope: {"type": ..., ...payload}.
type Event struct {
	Type       string
	Instance   string
	ID         string
	Raw        json.RawMessage
	ReceivedAt time.Time
}

var errNoType = errors.New("envelope has no type")

// Decode parses an envelope. Unknown types are returned as-is.
func Decode(data []byte) (Event, error) {
	var env struct {
		Type     string `json:"type"`
		Instance string `json:"instance"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, err
	}
	if env.Type == "" {
		return Event{}, errNoType
	}
	return Event{
		Type:       env.Type,
		Instance:   env.Instance,
		Raw:        json.RawMessage(data),
		ReceivedAt: time.Now(),
	}, nil
}
