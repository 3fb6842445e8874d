package main

import (
	"fmt"
	"strings"

	"github.com/matheus3301/beazap/internal/api"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(timelineCmd, sendCmd, resolveCmd, assignCmd, noteCmd)
	noteCmd.AddCommand(noteAddCmd, noteDeleteCmd)

	noteAddCmd.Flags().String("author", "", "note author (defaults to the profile name)")
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <conversation-id>",
	Short: "Print a conversation grouped by day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := call(cmd, api.MethodGetTimeline, map[string]any{"conversation_id": id})
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}

		conv, _ := resp["conversation"].(map[string]any)
		contact := str(conv, "contact_name")
		if contact == "" {
			contact = str(conv, "contact_phone")
		}
		fmt.Printf("#%d %s [%s]\n", id, contact, str(resp, "status_label"))
		for _, day := range list(resp, "days") {
			fmt.Printf("\n-------- %s --------\n", str(day, "label"))
			for _, m := range list(day, "messages") {
				prefix := "<"
				if str(m, "direction") == "outbound" {
					prefix = ">"
				}
				if compact, _ := m["compact"].(bool); compact {
					prefix = " "
				}
				fmt.Printf("%s %s  %s\n", prefix, str(m, "time"), str(m, "text"))
			}
		}
		if notes := list(resp, "notes"); len(notes) > 0 {
			fmt.Printf("\nNotes:\n")
			for _, n := range notes {
				fmt.Printf("  #%d %s: %s\n", num(n, "id"), str(n, "author_name"), str(n, "content"))
			}
		}
		if locked, _ := resp["locked"].(bool); locked {
			fmt.Printf("\n%s\n", str(resp, "locked_notice"))
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <conversation-id> <text...>",
	Short: "Send a text message to an open conversation",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		return callAndPrint(cmd, api.MethodSendText, map[string]any{"conversation_id": id, "text": text}, "Sent.")
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <conversation-id>",
	Short: "Resolve an open conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return callAndPrint(cmd, api.MethodResolve, map[string]any{"conversation_id": id}, "Resolved.")
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <conversation-id> <attendant-id|none>",
	Short: "Assign or unassign a conversation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		req := map[string]any{"conversation_id": id, "attendant_id": nil}
		done := "Unassigned."
		if !strings.EqualFold(args[1], "none") {
			attendant, err := parseID(args[1])
			if err != nil {
				return err
			}
			req["attendant_id"] = attendant
			done = fmt.Sprintf("Assigned to attendant %d.", attendant)
		}
		return callAndPrint(cmd, api.MethodAssign, req, done)
	},
}

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage internal notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <conversation-id> <text...>",
	Short: "Add a note",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		author, _ := cmd.Flags().GetString("author")
		req := map[string]any{"conversation_id": id, "content": strings.Join(args[1:], " ")}
		if author != "" {
			req["author"] = author
		}
		resp, err := call(cmd, api.MethodAddNote, req)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}
		note, _ := resp["note"].(map[string]any)
		fmt.Printf("Added note #%d.\n", num(note, "id"))
		return nil
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id> <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		noteID, err := parseID(args[1])
		if err != nil {
			return err
		}
		return callAndPrint(cmd, api.MethodDeleteNote, map[string]any{"conversation_id": id, "note_id": noteID}, "Deleted.")
	},
}
