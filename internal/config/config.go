// Package config loads and watches the service configuration file.
//
// Files may be JSON or YAML; YAML is coerced to JSON so both formats go
// through the same strict decoder (unknown fields are rejected).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Server   ServerConfig   `json:"server"`
	Storage  StorageConfig  `json:"storage"`
	Dispatch DispatchConfig `json:"dispatch,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via
	// SUBCAST_TELEGRAM_TOKEN instead.
	Token string `json:"token,omitempty"`
	// PollTimeout and SendTimeout are Go duration strings (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr"`
	// AuthToken protects /broadcast and /subscriptions. May be supplied
	// via SUBCAST_AUTH_TOKEN instead.
	AuthToken    string `json:"auth_token,omitempty"`
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
	// MaintainSpec is a cron expression for periodic database upkeep.
	// Empty disables the job.
	MaintainSpec string `json:"maintain_spec,omitempty"`
}

type DispatchConfig struct {
	Workers    int `json:"workers,omitempty"`
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console bool   `json:"console,omitempty"`
}

const (
	envTelegramToken = "SUBCAST_TELEGRAM_TOKEN"
	envAuthToken     = "SUBCAST_AUTH_TOKEN"
)

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// Reject trailing tokens (e.g. concatenated JSON documents).
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv(envTelegramToken)
	}
	if cfg.Server.AuthToken == "" {
		cfg.Server.AuthToken = os.Getenv(envAuthToken)
	}
	return &cfg, nil
}

// Duration parses a Go duration string, falling back to def when raw is
// empty and failing loudly otherwise.
func Duration(name, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
