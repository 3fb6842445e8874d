package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/beazap/internal/api"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd, healthCmd, instancesCmd, selectCmd, dashboardCmd, conversationsCmd, slaCmd)
	slaCmd.AddCommand(slaGetCmd, slaSetCmd, slaAlertsCmd)

	conversationsCmd.Flags().String("status", "", "filter by status (open, resolved, abandoned)")
	conversationsCmd.Flags().Int("limit", 50, "maximum conversations")
	conversationsCmd.Flags().Int64("attendant", 0, "filter by attendant id")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, api.MethodGetStatus, nil)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}
		instance := "all"
		if _, ok := resp["instance_id"].(float64); ok {
			instance = strconv.FormatInt(num(resp, "instance_id"), 10)
		}
		lastEvent := "never"
		if ms := num(resp, "last_event_unix_ms"); ms > 0 {
			lastEvent = time.UnixMilli(ms).Format(time.DateTime)
		}
		fmt.Printf("Profile:   %s\n", str(resp, "profile"))
		fmt.Printf("API:       %s\n", str(resp, "api_url"))
		fmt.Printf("Stream:    %s (%s)\n", str(resp, "stream_state"), str(resp, "stream_url"))
		fmt.Printf("Events:    %d, last %s\n", num(resp, "events_received"), lastEvent)
		fmt.Printf("Instance:  %s\n", instance)
		fmt.Printf("SLA:       %d minutes\n", num(resp, "sla_threshold_minutes"))
		fmt.Printf("Cached:    %d queries\n", num(resp, "cached_queries"))
		fmt.Printf("Uptime:    %s\n", (time.Duration(num(resp, "uptime_ms")) * time.Millisecond).Round(time.Second))
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the daemon is serving",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, name, err := connect()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		ctx, cancel := contextWithTimeout(cmd)
		defer cancel()
		st, err := c.Health(ctx)
		if err != nil {
			return fmt.Errorf("daemon for profile %q is not reachable: %w", name, err)
		}
		fmt.Println(st.String())
		return nil
	},
}

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List WhatsApp instances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, api.MethodListInstances, nil)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}
		selected := int64(-1)
		if _, ok := resp["instance_id"].(float64); ok {
			selected = num(resp, "instance_id")
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tNAME\tPHONE\tACTIVE")
		for _, inst := range list(resp, "instances") {
			mark := ""
			if num(inst, "id") == selected {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%v\n", mark, num(inst, "id"), str(inst, "name"), orDash(inst, "phone_number"), inst["active"])
		}
		return w.Flush()
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <instance-id|all>",
	Short: "Scope every query to one instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := map[string]any{"instance_id": nil}
		done := "Selected all instances."
		if !strings.EqualFold(args[0], "all") {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req["instance_id"] = id
			done = fmt.Sprintf("Selected instance %d.", id)
		}
		return callAndPrint(cmd, api.MethodSelectInstance, req, done)
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Load the dashboard for the selected instance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, api.MethodGetDashboard, nil)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}
		if cmp, ok := resp["comparison"].(map[string]any); ok {
			if cur, ok := cmp["overview"].(map[string]any); ok {
				fmt.Printf("Conversations: %d (open %d, resolved %d, abandoned %d)\n",
					num(cur, "total_conversations"), num(cur, "open_conversations"),
					num(cur, "resolved_conversations"), num(cur, "abandoned_conversations"))
			}
		}
		if sla, ok := resp["sla_alerts"].(map[string]any); ok {
			fmt.Printf("SLA alerts:    %d over %d minutes\n", num(sla, "count"), num(sla, "threshold_minutes"))
		}
		fmt.Printf("Attendants:    %d\n", len(list(resp, "attendants")))
		fmt.Printf("Teams:         %d\n", len(list(resp, "teams")))
		fmt.Println()
		printConversations(list(resp, "recent"))
		return nil
	},
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List conversations for the selected instance",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		attendant, _ := cmd.Flags().GetInt64("attendant")
		req := map[string]any{"status": status, "limit": limit}
		if attendant > 0 {
			req["attendant_id"] = attendant
		}
		resp, err := call(cmd, api.MethodListConversations, req)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}
		printConversations(list(resp, "conversations"))
		return nil
	},
}

func printConversations(convs []map[string]any) {
	if len(convs) == 0 {
		fmt.Println("No conversations found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCONTACT\tSTATUS\tATTENDANT\tOPENED")
	for _, c := range convs {
		contact := str(c, "contact_name")
		if contact == "" {
			contact = str(c, "contact_phone")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", num(c, "id"), contact, str(c, "status"), orDash(c, "attendant_name"), orDash(c, "opened_at"))
	}
	_ = w.Flush()
}

var slaCmd = &cobra.Command{
	Use:   "sla",
	Short: "Inspect or change the SLA alert threshold",
}

var slaGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the threshold in minutes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, api.MethodGetStatus, nil)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(map[string]any{"minutes": resp["sla_threshold_minutes"]})
			return nil
		}
		fmt.Printf("%d\n", num(resp, "sla_threshold_minutes"))
		return nil
	},
}

var slaSetCmd = &cobra.Command{
	Use:   "set <minutes>",
	Short: "Persist a new threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := parseID(args[0])
		if err != nil {
			return fmt.Errorf("minutes: %w", err)
		}
		return callAndPrint(cmd, api.MethodSetSLAThreshold, map[string]any{"minutes": minutes},
			fmt.Sprintf("SLA threshold set to %d minutes.", minutes))
	},
}

var slaAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List conversations over the threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := call(cmd, api.MethodGetSLAAlerts, nil)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}
		alerts := list(resp, "alerts")
		fmt.Printf("%d alerts over %d minutes\n", num(resp, "count"), num(resp, "threshold_minutes"))
		if len(alerts) == 0 {
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCONTACT\tATTENDANT\tWAITING")
		for _, a := range alerts {
			contact := str(a, "contact_name")
			if contact == "" {
				contact = str(a, "contact_phone")
			}
			wait := time.Duration(num(a, "wait_seconds")) * time.Second
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", num(a, "id"), contact, orDash(a, "attendant_name"), wait)
		}
		return w.Flush()
	},
}
