package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/beazap/internal/config"
	"github.com/matheus3301/beazap/internal/logging"
	"github.com/matheus3301/beazap/internal/profile"
	"github.com/matheus3301/beazap/internal/shell"
	"github.com/matheus3301/beazap/internal/store"
	"github.com/matheus3301/beazap/internal/tui"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default_profile)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run drives its own shell against the profile store. A daemon on the same
// profile keeps working; settings changes reach both through the store
// watcher, and only the daemon writes the event log.
func run(profileName string) error {
	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := profile.EnsureDir(profileName); err != nil {
		return err
	}

	logger, err := logging.New(profile.LogPath(profileName, "beazaptui"), profileName, logging.Options{
		Level:     cfg.LogLevel,
		NoConsole: true,
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(profile.DBPath(profileName))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		return err
	}

	sh, err := shell.New(shell.Deps{
		Config:        cfg,
		DB:            db,
		Logger:        logger,
		WatchSettings: true,
		NoJournal:     true,
	})
	if err != nil {
		return err
	}
	if err := sh.Start(context.Background()); err != nil {
		return err
	}
	defer func() {
		sh.Stop()
		sh.Cache().Close()
	}()

	logger.Info("tui started", zap.String("api_url", cfg.APIURL))
	return tui.NewApp(sh, profileName).Run()
}
