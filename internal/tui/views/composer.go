package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/beazap/internal/status"
	"github.com/matheus3301/beazap/internal/timeline"
	"github.com/rivo/tview"
)

const composerLabel = " > "

// Composer is the message input. A closed conversation replaces it with the
// locked notice and disables input.
type Composer struct {
	*tview.InputField
	onSend func(text string)
	locked bool
}

// NewComposer creates an enabled, empty composer.
func NewComposer() *Composer {
	input := tview.NewInputField().
		SetLabel(composerLabel).
		SetFieldWidth(0)

	c := &Composer{InputField: input}
	input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || c.locked || c.onSend == nil {
			return
		}
		if text := c.GetText(); text != "" {
			c.onSend(text)
		}
	})
	return c
}

// SetOnSend sets the callback run on Enter. The callback owns clearing.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// Apply mirrors the timeline's send gate and send state.
func (c *Composer) Apply(s timeline.Snapshot) {
	c.locked = s.Conversation == nil || s.Locked
	c.SetDisabled(c.locked)
	switch {
	case s.Conversation == nil:
		c.SetLabel(composerLabel).SetPlaceholder("")
	case s.Locked:
		c.SetText("")
		c.SetLabel(" [locked] ").SetPlaceholder(s.LockedNotice)
	default:
		c.SetLabel(sendLabel(s.SendState)).SetPlaceholder("Type a message, Enter to send")
	}
}

// Locked reports whether input is currently disabled.
func (c *Composer) Locked() bool {
	return c.locked
}

func sendLabel(st status.State) string {
	switch st {
	case timeline.SendSending:
		return " sending... "
	case timeline.SendError:
		return " failed, Enter to retry > "
	default:
		return composerLabel
	}
}
