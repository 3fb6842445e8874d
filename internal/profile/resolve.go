// Package profile resolves the active profile and its on-disk layout. A
// profile is one backend target with its own daemon, lock, store and logs.
package profile

import (
	"os"

	"github.com/matheus3301/beazap/internal/config"
)

const DefaultName = "main"

// EnvName selects the profile when --profile is not given.
const EnvName = "BEAZAP_PROFILE"

// Source says where the active profile name came from.
type Source string

const (
	FromFlag    Source = "flag"
	FromEnv     Source = "env"
	FromConfig  Source = "config"
	FromDefault Source = "default"
)

// Lookup picks the active profile: --profile, then $BEAZAP_PROFILE, then
// default_profile in config.toml, then "main". An unreadable config counts
// as no config.
func Lookup(flagValue string) (string, Source) {
	if flagValue != "" {
		return flagValue, FromFlag
	}
	if v := os.Getenv(EnvName); v != "" {
		return v, FromEnv
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile, FromConfig
	}
	return DefaultName, FromDefault
}

// Resolve is Lookup without the source.
func Resolve(flagValue string) string {
	name, _ := Lookup(flagValue)
	return name
}
