package bus

import "time"

// Event is a local notification fanned out to in-process subscribers.
// Kind is dot-namespaced: "stream.new_message", "query.invalidated", ...
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Namespace returns the part of Kind before the first dot.
func (e Event) Namespace() string {
	for i := 0; i < len(e.Kind); i++ {
		if e.Kind[i] == '.' {
			return e.Kind[:i]
		}
	}
	return e.Kind
}
