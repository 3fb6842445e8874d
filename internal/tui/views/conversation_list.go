package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/rivo/tview"
)

// ConversationList is the inbox table.
type ConversationList struct {
	*tview.Table
	convs []backend.Conversation
}

// NewConversationList creates an empty table with a fixed header.
func NewConversationList() *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true).SetTitle(" Conversations ")
	return &ConversationList{Table: table}
}

// SetHeading updates the border title with the filter and load state.
func (cl *ConversationList) SetHeading(filter string, count int, note string) {
	title := fmt.Sprintf(" Conversations [%s] (%d) ", filter, count)
	if note != "" {
		title += note + " "
	}
	cl.SetTitle(title)
}

// Update replaces the rows, keeping the selected conversation selected when
// it is still listed.
func (cl *ConversationList) Update(convs []backend.Conversation, loc *time.Location, now time.Time) {
	keep := cl.SelectedID()
	cl.convs = convs
	cl.Clear()

	for col, h := range []string{" #", " Contact", " Status", " Attendant", " Opened"} {
		cl.SetCell(0, col, tview.NewTableCell(h).SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	}

	selectRow := 1
	for i := range convs {
		c := &convs[i]
		row := i + 1
		attendant := "-"
		if c.AttendantName != nil && *c.AttendantName != "" {
			attendant = *c.AttendantName
		}
		cl.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d", c.ID)))
		cl.SetCell(row, 1, tview.NewTableCell(" "+oneLine(c.DisplayName())).SetMaxWidth(30).SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(" "+backend.PolicyFor(c.Status).Label).SetTextColor(statusColor(c.Status)))
		cl.SetCell(row, 3, tview.NewTableCell(" "+oneLine(attendant)).SetMaxWidth(20).SetExpansion(1))
		cl.SetCell(row, 4, tview.NewTableCell(" "+formatOpened(c.OpenedAt.Time, loc, now)).SetMaxWidth(12))
		if c.ID == keep {
			selectRow = row
		}
	}
	if len(convs) > 0 {
		cl.Select(selectRow, 0)
	}
}

// SelectedID returns the id of the highlighted conversation, or 0.
func (cl *ConversationList) SelectedID() int64 {
	row, _ := cl.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(cl.convs) {
		return cl.convs[idx].ID
	}
	return 0
}

// formatOpened shows the time for today and the date otherwise.
func formatOpened(t time.Time, loc *time.Location, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(loc)
	now = now.In(loc)
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("02/01")
}
