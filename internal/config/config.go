// Package config loads ~/.beazap/config.toml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultAPIURL is used when neither the file nor the environment set one.
const DefaultAPIURL = "http://localhost:8000"

// Config represents the global ~/.beazap/config.toml.
type Config struct {
	DefaultProfile string       `toml:"default_profile"`
	APIURL         string       `toml:"api_url"`
	Timezone       string       `toml:"timezone,omitempty"`
	LogLevel       string       `toml:"log_level,omitempty"`
	RequestTimeout Duration     `toml:"request_timeout"`
	StaleTime      Duration     `toml:"stale_time"`
	CacheTime      Duration     `toml:"cache_time"`
	Stream         StreamConfig `toml:"stream"`
}

// StreamConfig controls the push connection. Path is joined to the API URL
// unless it is already absolute (http, https, ws or wss).
type StreamConfig struct {
	Path        string   `toml:"path"`
	Reconnect   bool     `toml:"reconnect"`
	MinBackoff  Duration `toml:"min_backoff"`
	MaxBackoff  Duration `toml:"max_backoff"`
	IdleTimeout Duration `toml:"idle_timeout"`
}

// Duration is a time.Duration encoded as a string ("30s", "5m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:         DefaultAPIURL,
		LogLevel:       "info",
		RequestTimeout: Duration{30 * time.Second},
		CacheTime:      Duration{5 * time.Minute},
		Stream: StreamConfig{
			Path:        "/api/events",
			Reconnect:   true,
			MinBackoff:  Duration{time.Second},
			MaxBackoff:  Duration{30 * time.Second},
			IdleTimeout: Duration{75 * time.Second},
		},
	}
}

// Load reads config from the given path on top of the defaults. Returns error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load that falls back to Default when the file does not
// exist. Environment overrides are applied either way.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file values from the environment. BEAZAP_API_URL wins over
// NEXT_PUBLIC_API_URL, which the dashboard build uses for the same purpose.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NEXT_PUBLIC_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("BEAZAP_API_URL"); v != "" {
		c.APIURL = v
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
}

// StreamURL is the push endpoint.
func (c *Config) StreamURL() string {
	p := c.Stream.Path
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(p, scheme) {
			return p
		}
	}
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(c.APIURL, "/") + p
}

// Location resolves Timezone, defaulting to the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
