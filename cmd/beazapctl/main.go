// Command beazapctl queries and drives a running beazapd over its socket.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/matheus3301/beazap/internal/api"
	"github.com/matheus3301/beazap/internal/profile"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	jsonFlag    bool
	timeoutFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "beazapctl",
	Short:         "Control a BeaZap profile daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default_profile)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 10*time.Second, "per-request timeout")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// connect resolves the profile and dials its daemon.
func connect() (*api.Client, string, error) {
	name := profile.Resolve(profileFlag)
	if err := profile.ValidateName(name); err != nil {
		return nil, "", err
	}
	c, err := api.Dial(profile.SocketPath(name))
	if err != nil {
		return nil, "", fmt.Errorf("cannot connect to daemon for profile %q: %w", name, err)
	}
	return c, name, nil
}

func contextWithTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeoutFlag)
}

// parseID parses a positive integer argument.
func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a positive number, got %q", s)
	}
	return n, nil
}

// call runs one unary method with the request timeout.
func call(cmd *cobra.Command, method string, req map[string]any) (map[string]any, error) {
	c, _, err := connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := contextWithTimeout(cmd)
	defer cancel()
	return c.Call(ctx, method, req)
}

// callAndPrint runs method and prints the JSON response or done.
func callAndPrint(cmd *cobra.Command, method string, req map[string]any, done string) error {
	resp, err := call(cmd, method, req)
	if err != nil {
		return err
	}
	if jsonFlag {
		outputJSON(resp)
		return nil
	}
	fmt.Println(done)
	return nil
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

// Struct numbers decode as float64.
func num(m map[string]any, key string) int64 {
	f, _ := m[key].(float64)
	return int64(f)
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func list(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if item, ok := r.(map[string]any); ok {
			out = append(out, item)
		}
	}
	return out
}

// orDash renders optional string fields.
func orDash(m map[string]any, key string) string {
	if s := str(m, key); s != "" {
		return s
	}
	return "-"
}
