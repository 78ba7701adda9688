// Package config
// Author: momentics <momentics@gmail.com>
//
// TOML configuration for the chat client. Flags given on the command line
// override file values; Default supplies everything else.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config mirrors the TOML file; keys are snake_case.
type Config struct {
	// ListenPort serves the OAuth callback. 0 picks a free port.
	ListenPort     int    `toml:"listen_port"`
	MaxHeaderBytes int    `toml:"max_header_bytes"`
	ReadChunk      int    `toml:"read_chunk"`
	HandshakeMode  string `toml:"handshake_mode"`

	// RetryInitialMs and RetryMaxMs bound reconnect delays. RetryMaxMs of 0
	// reconnects immediately.
	RetryInitialMs int `toml:"retry_initial_ms"`
	RetryMaxMs     int `toml:"retry_max_ms"`

	SendRatePerSec float64 `toml:"send_rate_per_sec"`
	SendBurst      int     `toml:"send_burst"`
	EventBuffer    int     `toml:"event_buffer"`

	// JournalPath enables the SQLite event journal when set.
	JournalPath string `toml:"journal_path"`

	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Token        string `toml:"token"`
	APIBase      string `toml:"api_base"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenPort:     7777,
		MaxHeaderBytes: 4096,
		ReadChunk:      16 * 1024,
		HandshakeMode:  "lenient",
		RetryInitialMs: 500,
		RetryMaxMs:     30000,
		SendRatePerSec: 1,
		SendBurst:      1,
		EventBuffer:    64,
		APIBase:        "https://slack.com/api",
	}
}

// Load reads path over Default. An empty path returns the defaults; a
// named file must exist. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("listen_port %d out of range", c.ListenPort))
	}
	if c.MaxHeaderBytes <= 0 {
		errs = append(errs, errors.New("max_header_bytes must be positive"))
	}
	if c.ReadChunk <= 0 {
		errs = append(errs, errors.New("read_chunk must be positive"))
	}
	switch strings.ToLower(c.HandshakeMode) {
	case "", "lenient", "strict":
	default:
		errs = append(errs, fmt.Errorf("handshake_mode %q is not lenient or strict", c.HandshakeMode))
	}
	if c.RetryInitialMs < 0 || c.RetryMaxMs < 0 {
		errs = append(errs, errors.New("retry delays must not be negative"))
	}
	if c.RetryMaxMs > 0 && c.RetryInitialMs > c.RetryMaxMs {
		errs = append(errs, errors.New("retry_initial_ms exceeds retry_max_ms"))
	}
	if c.SendRatePerSec < 0 || c.SendBurst < 0 || c.EventBuffer < 0 {
		errs = append(errs, errors.New("send and buffer limits must not be negative"))
	}
	return errors.Join(errs...)
}

// RetryInitial is RetryInitialMs as a duration.
func (c *Config) RetryInitial() time.Duration {
	return time.Duration(c.RetryInitialMs) * time.Millisecond
}

// RetryMax is RetryMaxMs as a duration.
func (c *Config) RetryMax() time.Duration {
	return time.Duration(c.RetryMaxMs) * time.Millisecond
}
