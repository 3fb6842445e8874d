package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/beazap/internal/backend"
	"github.com/matheus3301/beazap/internal/timeline"
	"github.com/rivo/tview"
)

// Thread shows one conversation's messages grouped by day.
type Thread struct {
	*tview.TextView
	loc *time.Location
}

// NewThread creates an empty thread view rendering times in loc.
func NewThread(loc *time.Location) *Thread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Conversation ")
	return &Thread{TextView: tv, loc: loc}
}

// Update renders s and follows the tail when new messages arrived.
func (t *Thread) Update(s timeline.Snapshot) {
	title := fmt.Sprintf(" #%d ", s.ID)
	if s.Conversation != nil {
		title = fmt.Sprintf(" #%d %s [%s] ", s.ID, oneLine(s.Conversation.DisplayName()), s.Policy.Label)
	}
	t.SetTitle(title)

	row, col := t.GetScrollOffset()
	t.SetText(FormatThread(s, t.loc))
	if s.ScrollToEnd {
		t.ScrollToEnd()
	} else {
		t.ScrollTo(row, col)
	}
}

// Reset blanks the view when no conversation is open.
func (t *Thread) Reset() {
	t.SetTitle(" Conversation ")
	t.SetText("[::d]Select a conversation with Enter.[-:-:-]")
}

// FormatThread renders a snapshot as tview markup: a header, one separator
// per day, and messages where a compact entry omits the sender line.
func FormatThread(s timeline.Snapshot, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder

	switch {
	case s.Conversation != nil:
		writeHeader(&b, s.Conversation)
	case s.ConversationErr != nil:
		fmt.Fprintf(&b, "[red]%s[-]\n", clean(backend.ErrorMessage(s.ConversationErr, "Could not load the conversation.")))
	}

	switch {
	case s.MessagesErr != nil && len(s.Groups) == 0:
		fmt.Fprintf(&b, "\n[red]%s[-]\n", clean(backend.ErrorMessage(s.MessagesErr, "Could not load messages.")))
	case s.MessagesLoading:
		b.WriteString("\n[::d]Loading messages...[-:-:-]\n")
	case len(s.Groups) == 0:
		b.WriteString("\n[::d]No messages yet.[-:-:-]\n")
	}

	for _, g := range s.Groups {
		fmt.Fprintf(&b, "\n[::d]-------- %s --------[-:-:-]\n", g.Label())
		for _, e := range g.Entries {
			writeEntry(&b, e, s.Conversation, loc)
		}
	}

	if len(s.Notes) > 0 {
		fmt.Fprintf(&b, "\n[yellow::b]Notes (%d)[-:-:-]\n", len(s.Notes))
		for _, n := range s.Notes {
			fmt.Fprintf(&b, "[yellow]#%d %s:[-] %s\n", n.ID, oneLine(n.AuthorName), clean(n.Content))
		}
	}
	return b.String()
}

func writeHeader(b *strings.Builder, c *backend.Conversation) {
	fmt.Fprintf(b, "[::b]%s[-:-:-] %s  [%s]%s[-]\n",
		oneLine(c.DisplayName()), oneLine(c.ContactPhone), colorName(statusColor(c.Status)), backend.PolicyFor(c.Status).Label)
	if c.AttendantName != nil && *c.AttendantName != "" {
		fmt.Fprintf(b, "Attendant: %s\n", oneLine(*c.AttendantName))
	}
	if c.AnalysisSummary != nil && *c.AnalysisSummary != "" {
		fmt.Fprintf(b, "[::d]Summary: %s[-:-:-]\n", clean(*c.AnalysisSummary))
	}
}

func writeEntry(b *strings.Builder, e timeline.Entry, c *backend.Conversation, loc *time.Location) {
	m := e.Message
	clock := m.Timestamp.In(loc).Format("15:04")
	color := "-"
	if m.Direction == backend.Outbound {
		color = "green"
	}
	if !e.Compact {
		fmt.Fprintf(b, "\n[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n", color, oneLine(sender(m, c)), clock)
		fmt.Fprintf(b, "%s\n", clean(m.Text()))
		return
	}
	fmt.Fprintf(b, "%s [::d]%s[-:-:-]\n", clean(m.Text()), clock)
}

func sender(m backend.Message, c *backend.Conversation) string {
	if m.SenderName != nil && *m.SenderName != "" {
		return *m.SenderName
	}
	if m.Direction == backend.Outbound {
		return "You"
	}
	if c != nil {
		return c.DisplayName()
	}
	if m.SenderPhone != nil {
		return *m.SenderPhone
	}
	return "Contact"
}

func statusColor(s backend.Status) tcell.Color {
	switch s {
	case backend.StatusOpen:
		return tcell.ColorGreen
	case backend.StatusResolved:
		return tcell.ColorDodgerBlue
	case backend.StatusAbandoned:
		return tcell.ColorOrangeRed
	default:
		return tcell.ColorGray
	}
}

func colorName(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
