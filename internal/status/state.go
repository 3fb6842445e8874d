// Package status enforces small, table-driven state machines (stream
// connection, send composer) and announces every transition on the bus.
package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/beazap/internal/bus"
)

// State is one node of a machine.
type State string

// Transitions lists, for each state, the states it may move to.
type Transitions map[State][]State

// Machine tracks and enforces state transitions.
type Machine struct {
	mu        sync.RWMutex
	current   State
	table     Transitions
	bus       *bus.Bus
	kind      string
	listeners []func(Change)
}

// NewMachine creates a machine in the initial state. Transitions are published
// on b (when non-nil) with the given event kind.
func NewMachine(initial State, table Transitions, b *bus.Bus, kind string) *Machine {
	return &Machine{
		current: initial,
		table:   table,
		bus:     b,
		kind:    kind,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the current state is one of states.
func (m *Machine) Is(states ...State) bool {
	return slices.Contains(states, m.Current())
}

// CanTransition reports whether moving to `to` is allowed right now.
func (m *Machine) CanTransition(to State) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.table[m.current], to)
}

// OnChange registers fn to run synchronously after every transition.
func (m *Machine) OnChange(fn func(Change)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	allowed := m.table[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return &TransitionError{From: from, To: to}
	}
	change := Change{From: m.current, To: to}
	m.current = to
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	if m.bus != nil && m.kind != "" {
		m.bus.Publish(bus.Event{
			Kind:      m.kind,
			Timestamp: time.Now(),
			Payload:   change,
		})
	}
	for _, fn := range listeners {
		fn(change)
	}
	return nil
}

// Change is the payload for status change events.
type Change struct {
	From State
	To   State
}

// TransitionError reports a move the table does not allow.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}
