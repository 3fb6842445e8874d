package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/matheus3301/beazap/internal/lock"
	"github.com/matheus3301/beazap/internal/profile"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(profilesCmd)
}

// profilesCmd works from disk alone, so it also runs with no daemon up.
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List local profiles and which daemons hold them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := profile.List()
		if err != nil {
			return fmt.Errorf("list profiles: %w", err)
		}
		active, from := profile.Lookup(profileFlag)

		type row struct {
			Name   string `json:"name"`
			Active bool   `json:"active"`
			PID    int    `json:"daemon_pid,omitempty"`
		}
		rows := make([]row, 0, len(names))
		for _, n := range names {
			info, _ := lock.Read(profile.Dir(n))
			rows = append(rows, row{Name: n, Active: n == active, PID: info.PID})
		}
		if jsonFlag {
			outputJSON(map[string]any{"active": active, "source": from, "profiles": rows})
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\tPROFILE\tDAEMON")
		for _, r := range rows {
			mark, daemon := "", "-"
			if r.Active {
				mark = "*"
			}
			if r.PID > 0 {
				daemon = fmt.Sprintf("pid %d", r.PID)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", mark, r.Name, daemon)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nactive: %s (from %s)\n", active, from)
		return nil
	},
}
