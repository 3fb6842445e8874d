package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/beazap/internal/shell"
	"github.com/matheus3301/beazap/internal/stream"
	"github.com/matheus3301/beazap/internal/tui/model"
	"github.com/rivo/tview"
)

// StatusBar shows the profile, stream state, instance scope, SLA alerts,
// key hints and the current flash message.
type StatusBar struct {
	*tview.TextView
	profile string
}

// NewStatusBar creates a status bar for profile.
func NewStatusBar(profile string) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)
	return &StatusBar{TextView: tv, profile: profile}
}

// Line holds everything one render of the bar needs.
type Line struct {
	Status     shell.Status
	Alerts     int
	Hints      []string
	Flash      string
	FlashLevel model.Level
	Now        time.Time
}

// Update redraws the bar.
func (sb *StatusBar) Update(l Line) {
	sb.SetText(FormatStatus(sb.profile, l))
}

// FormatStatus renders l as tview markup.
func FormatStatus(profile string, l Line) string {
	instance := "all"
	if l.Status.InstanceID != nil {
		instance = fmt.Sprintf("%d", *l.Status.InstanceID)
	}
	alerts := "-"
	if l.Alerts >= 0 {
		alerts = fmt.Sprintf("%d", l.Alerts)
	}
	if l.Alerts > 0 {
		alerts = "[orange]" + alerts + "[-]"
	}

	parts := []string{
		fmt.Sprintf(" [::b]%s[-:-:-]", tview.Escape(profile)),
		streamBadge(l.Status.StreamState),
		"instance " + instance,
		fmt.Sprintf("SLA %dm: %s", l.Status.SLAThreshold, alerts),
		l.Now.Format("15:04"),
	}
	if l.Flash != "" {
		color := "yellow"
		if l.FlashLevel == model.LevelError {
			color = "red"
		}
		parts = append(parts, fmt.Sprintf("[%s]%s[-]", color, oneLine(l.Flash)))
	} else if len(l.Hints) > 0 {
		parts = append(parts, "[::d]"+tview.Escape(strings.Join(l.Hints, " "))+"[-:-:-]")
	}
	return strings.Join(parts, " | ")
}

func streamBadge(state string) string {
	color := "gray"
	switch state {
	case string(stream.StateOpen):
		color = "green"
	case string(stream.StateConnecting), string(stream.StateReconnecting):
		color = "yellow"
	case string(stream.StateErrored):
		color = "red"
	}
	return fmt.Sprintf("[%s]live:%s[-]", color, state)
}
