package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [kind-prefix...]",
	Short: "Stream daemon events until interrupted",
	Long:  "Stream daemon events until interrupted. Prefixes such as \"stream.\" or \"selection.\" narrow the stream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := connect()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		events, err := c.Watch(cmd.Context(), args...)
		if err != nil {
			return err
		}
		for {
			env, err := events.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
					return nil
				}
				return err
			}
			if jsonFlag {
				line, _ := json.Marshal(env)
				fmt.Println(string(line))
				continue
			}
			at := time.UnixMilli(num(env, "occurred_at_unix_ms")).Format("15:04:05.000")
			payload, _ := json.Marshal(env["payload"])
			fmt.Printf("%s  %-28s %s\n", at, str(env, "kind"), payload)
		}
	},
}
