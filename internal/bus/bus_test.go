package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("stream.", 10)
	defer unsub()

	b.Publish(Event{Kind: "stream.new_message", Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != "stream.new_message" {
			t.Errorf("got kind %q, want stream.new_message", evt.Kind)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not filled in")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("query.", 10)
	defer unsub()

	b.Publish(Event{Kind: "stream.heartbeat"})
	b.Publish(Event{Kind: "query.invalidated"})

	select {
	case evt := <-ch:
		if evt.Kind != "query.invalidated" {
			t.Errorf("got kind %q, want query.invalidated", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeMany(t *testing.T) {
	b := New()
	ch, unsub := b.SubscribeMany([]string{"stream.", "query."}, 10)
	defer unsub()

	b.Publish(Event{Kind: "stream.new_call"})
	b.Publish(Event{Kind: "settings.changed"})
	b.Publish(Event{Kind: "query.invalidated"})

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case evt := <-ch:
			got = append(got, evt.Kind)
		case <-time.After(time.Second):
			t.Fatalf("timeout after %v", got)
		}
	}
	if got[0] != "stream.new_call" || got[1] != "query.invalidated" {
		t.Errorf("got %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("stream.", 10)
	unsub()
	unsub() // second call is a no-op

	b.Publish(Event{Kind: "stream.new_message"})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	if n := b.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}

func TestNamespace(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"stream.new_message", "stream"},
		{"query.invalidated", "query"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := (Event{Kind: tt.kind}).Namespace(); got != tt.want {
			t.Errorf("Namespace(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
