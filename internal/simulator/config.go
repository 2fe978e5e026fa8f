// Package simulator emulates the supply backend: OTP login, session tokens,
// policies, quotas and transactions, all held in memory.
package simulator

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultListenAddr      = ":8080"
	defaultAllowedOrigin   = "http://localhost:19006"
	defaultIssuer          = "supply-simulator"
	defaultSessionTTL      = time.Hour
	defaultOTPInterval     = 30 * time.Second
	defaultOTPBurst        = 1
	defaultMaxOTPAttempts  = 3
	defaultLockoutDuration = time.Minute
	otpLength              = 6
	minSigningKeyLength    = 16
)

// Config aggregates runtime settings for the simulator.
type Config struct {
	ListenAddr      string
	AllowedOrigins  []string
	SigningKey      string
	Issuer          string
	SessionTTL      time.Duration
	FixedOTP        string
	OTPInterval     time.Duration
	OTPBurst        int
	MaxOTPAttempts  int
	LockoutDuration time.Duration
	SeedPath        string
}

// Validate fills defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	cfg.Issuer = defaultIfEmpty(cfg.Issuer, defaultIssuer)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.OTPInterval <= 0 {
		cfg.OTPInterval = defaultOTPInterval
	}
	if cfg.OTPBurst <= 0 {
		cfg.OTPBurst = defaultOTPBurst
	}
	if cfg.MaxOTPAttempts <= 0 {
		cfg.MaxOTPAttempts = defaultMaxOTPAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = defaultLockoutDuration
	}
	if len(cfg.SigningKey) < minSigningKeyLength {
		return fmt.Errorf("signing key must be at least %d bytes", minSigningKeyLength)
	}
	if cfg.FixedOTP != "" && !isDigits(cfg.FixedOTP, otpLength) {
		return fmt.Errorf("fixed otp must be %d digits", otpLength)
	}
	return nil
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func isDigits(value string, length int) bool {
	if len(value) != length {
		return false
	}
	for _, character := range value {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}
