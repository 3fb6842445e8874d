package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/beazap/internal/daemon"
	"github.com/matheus3301/beazap/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default_profile)")
	quiet := flag.Bool("quiet", false, "log to file only")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	for _, check := range []func(string) error{profile.ValidateName, profile.CheckSocketPath} {
		if err := check(profileName); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	app := fx.New(
		daemon.Module(daemon.Params{ProfileName: profileName, NoConsole: *quiet}),
	)

	app.Run()
}
