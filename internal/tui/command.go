package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// commandHelp lists the prompt commands in display order.
var commandHelp = []string{
	"open <id>            open a conversation",
	"filter <status>      all, open, resolved or abandoned",
	"instance <id|all>    scope every list to one instance",
	"sla <minutes>        set the SLA alert threshold",
	"resolve              resolve the open conversation",
	"analyze              request an AI analysis",
	"assign <id|none>     assign or unassign an attendant",
	"note <text>          add an internal note",
	"unnote <id>          delete a note",
	"refresh              reload the list and conversation",
	"quit                 exit",
}

var errMissingArg = errors.New("missing argument")

// Int parses a required positive integer argument.
func (c Command) Int() (int64, error) {
	if c.Args == "" {
		return 0, errMissingArg
	}
	n, err := strconv.ParseInt(c.Args, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: expected a positive number, got %q", c.Name, c.Args)
	}
	return n, nil
}

// OptionalID parses an id argument where none is one of the given words,
// e.g. "all" for instances and "none" for attendants.
func (c Command) OptionalID(none ...string) (*int64, error) {
	for _, w := range none {
		if strings.EqualFold(c.Args, w) {
			return nil, nil
		}
	}
	n, err := c.Int()
	if err != nil {
		return nil, err
	}
	return &n, nil
}
