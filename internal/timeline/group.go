package timeline

import (
	"time"

	"github.com/matheus3301/beazap/internal/backend"
)

// DayLayout formats day separators (dd/mm/yyyy).
const DayLayout = "02/01/2006"

// Entry is one message as rendered. Compact is set when the previous
// message in the same day has the same direction.
type Entry struct {
	Message backend.Message
	Compact bool
}

// DayGroup holds the messages of one calendar day.
type DayGroup struct {
	Day     time.Time // midnight in the viewer's location
	Entries []Entry
}

// Label is the day separator text.
func (g DayGroup) Label() string {
	return g.Day.Format(DayLayout)
}

// Group folds msgs into runs of the same calendar day in loc. A new group
// starts whenever the day differs from the previous message's, so server
// order is kept as is and a day may appear more than once when the server
// interleaves days.
func Group(msgs []backend.Message, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	var groups []DayGroup
	for _, m := range msgs {
		t := m.Timestamp.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)

		if n := len(groups); n == 0 || !groups[n-1].Day.Equal(day) {
			groups = append(groups, DayGroup{Day: day})
		}
		g := &groups[len(groups)-1]
		compact := false
		if n := len(g.Entries); n > 0 {
			compact = g.Entries[n-1].Message.Direction == m.Direction
		}
		g.Entries = append(g.Entries, Entry{Message: m, Compact: compact})
	}
	return groups
}

// Count returns the number of messages across groups.
func Count(groups []DayGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Entries)
	}
	return n
}
