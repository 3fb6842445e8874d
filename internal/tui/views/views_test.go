package views

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/shell"
	"github.com/matheus3301/beazap/internal/timeline"
	"github.com/matheus3301/beazap/internal/tui/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func msg(id int64, dir backend.Direction, text string, at time.Time) backend.Message {
	return backend.Message{ID: id, Direction: dir, MsgType: "text", Content: ptr(text), Timestamp: backend.Time{Time: at}}
}

func TestCleanStripsAndEscapes(t *testing.T) {
	assert.Equal(t, "ok 👍", clean("ok 👍\U0001F3FB"))
	assert.Equal(t, "a b\nc", clean("a\tb\nc"))
	assert.Equal(t, "[red[]x", clean("[red]x"))
	assert.Equal(t, "a b", oneLine("a\nb"))
}

func TestFormatThreadGroupsAndCompacts(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2024, 3, 9, 23, 50, 0, 0, loc)
	day2 := time.Date(2024, 3, 10, 0, 5, 0, 0, loc)
	msgs := []backend.Message{
		msg(1, backend.Inbound, "hello", day1),
		msg(2, backend.Inbound, "anyone?", day1.Add(time.Minute)),
		msg(3, backend.Outbound, "hi there", day2),
	}
	conv := &backend.Conversation{ID: 7, ContactPhone: "5511999", ContactName: ptr("Ana"), Status: backend.StatusOpen}
	s := timeline.Snapshot{
		ID:           7,
		Conversation: conv,
		Policy:       backend.PolicyFor(conv.Status),
		Groups:       timeline.Group(msgs, loc),
		MessageCount: 3,
		Notes:        []backend.Note{{ID: 4, AuthorName: "Bea", Content: "vip"}},
	}

	out := FormatThread(s, loc)

	assert.Contains(t, out, "09/03/2024")
	assert.Contains(t, out, "10/03/2024")
	assert.Less(t, strings.Index(out, "09/03/2024"), strings.Index(out, "10/03/2024"))
	// First inbound carries the sender line, the follow-up is compact.
	assert.Equal(t, 1, strings.Count(out, "Ana[-:-:-] [::d]23:50"))
	assert.Contains(t, out, "anyone? [::d]23:51")
	assert.Contains(t, out, "You[-:-:-] [::d]00:05")
	assert.Contains(t, out, "Notes (1)")
	assert.Contains(t, out, "#4 Bea:[-] vip")
}

func TestFormatThreadStates(t *testing.T) {
	loading := FormatThread(timeline.Snapshot{ID: 1, MessagesLoading: true}, time.UTC)
	assert.Contains(t, loading, "Loading messages")

	empty := FormatThread(timeline.Snapshot{ID: 1, Conversation: &backend.Conversation{ID: 1, Status: backend.StatusResolved}}, time.UTC)
	assert.Contains(t, empty, "No messages yet")
	assert.Contains(t, empty, "Resolved")

	failed := FormatThread(timeline.Snapshot{
		ID:              1,
		ConversationErr: errors.New("boom"),
		MessagesErr:     &backend.Error{StatusCode: 500, Detail: "db down"},
	}, time.UTC)
	assert.Contains(t, failed, "db down")
}

func TestFormatOpened(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)
	assert.Equal(t, "09:30", formatOpened(time.Date(2024, 3, 10, 9, 30, 0, 0, loc), loc, now))
	assert.Equal(t, "09/03", formatOpened(time.Date(2024, 3, 9, 9, 30, 0, 0, loc), loc, now))
	assert.Equal(t, "", formatOpened(time.Time{}, loc, now))
}

func TestFormatStatus(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 5, 0, 0, time.UTC)
	line := Line{
		Status: shell.Status{StreamState: "open", InstanceID: ptr(int64(2)), SLAThreshold: 45},
		Alerts: 3,
		Hints:  []string{"q:quit"},
		Now:    now,
	}
	out := FormatStatus("work", line)
	assert.Contains(t, out, "work")
	assert.Contains(t, out, "[green]live:open[-]")
	assert.Contains(t, out, "instance 2")
	assert.Contains(t, out, "SLA 45m: [orange]3[-]")
	assert.Contains(t, out, "14:05")
	assert.Contains(t, out, "q:quit")

	line.Flash = "send failed"
	line.FlashLevel = model.LevelError
	out = FormatStatus("work", line)
	assert.Contains(t, out, "[red]send failed[-]")
	assert.NotContains(t, out, "q:quit")

	line.Status.InstanceID = nil
	line.Alerts = -1
	out = FormatStatus("work", line)
	require.Contains(t, out, "instance all")
	assert.Contains(t, out, "SLA 45m: -")
}
