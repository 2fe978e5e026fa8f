// Package clientapp wires the supplyctl client: configuration, the local
// database, the gateway client and the login, quota and redemption flows.
package clientapp

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "supplyctl"
)

// Config aggregates runtime settings for the client.
type Config struct {
	Endpoint    string
	DatabaseURL string
	Timeout     time.Duration
	UserAgent   string
	Verbose     bool
}

// Validate fills defaults and checks the endpoint and database URL. Without
// a database URL each endpoint gets its own SQLite file.
func (cfg *Config) Validate() error {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	cfg.UserAgent = defaultIfEmpty(cfg.UserAgent, defaultUserAgent)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	parsed, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https, got %q", cfg.Endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("endpoint %q has no host", cfg.Endpoint)
	}
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, DefaultDatabasePath(cfg.Endpoint))
	if _, err := locateDatabase(cfg.DatabaseURL); err != nil {
		return err
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
