package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dhemutton/mobile-application/internal/simulator"
)

const (
	flagListenAddr      = "listen-addr"
	flagAllowedOrigins  = "allowed-origins"
	flagSigningKey      = "signing-key"
	flagIssuer          = "issuer"
	flagSessionTTL      = "session-ttl"
	flagFixedOTP        = "fixed-otp"
	flagOTPInterval     = "otp-interval"
	flagOTPBurst        = "otp-burst"
	flagMaxOTPAttempts  = "max-otp-attempts"
	flagLockoutDuration = "lockout-duration"
	flagSeed            = "seed"
	envPrefix           = "SIMULATOR"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := simulator.Config{}
	cmd := &cobra.Command{
		Use:           "simulator",
		Short:         "In-memory supply backend for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, &cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			seed, err := simulator.LoadSeed(cfg.SeedPath)
			if err != nil {
				return err
			}
			server, err := simulator.NewServer(cfg, seed, logger, time.Now)
			if err != nil {
				return err
			}
			if len(seed.Keys) == 0 {
				logger.Info("login key created", zap.String("key", server.CreateKey()))
			}
			return server.Run(ctx)
		},
	}

	cmd.Flags().String(flagListenAddr, "", "HTTP listen address (default :8080)")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagSigningKey, "", "HS256 session token signing key, at least 16 bytes (required)")
	cmd.Flags().String(flagIssuer, "", "session token issuer")
	cmd.Flags().Duration(flagSessionTTL, 0, "session token lifetime (e.g. 1h)")
	cmd.Flags().String(flagFixedOTP, "", "issue this 6-digit OTP instead of a random one")
	cmd.Flags().Duration(flagOTPInterval, 0, "minimum interval between OTP requests per phone (e.g. 30s)")
	cmd.Flags().Int(flagOTPBurst, 0, "OTP requests allowed before throttling applies")
	cmd.Flags().Int(flagMaxOTPAttempts, 0, "wrong OTP attempts before the phone is locked out")
	cmd.Flags().Duration(flagLockoutDuration, 0, "lockout duration after too many wrong OTPs (e.g. 1m)")
	cmd.Flags().String(flagSeed, "", "YAML file with env version, login keys and quotas")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *simulator.Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagListenAddr, flagAllowedOrigins, flagSigningKey, flagIssuer, flagSessionTTL, flagFixedOTP, flagOTPInterval, flagOTPBurst, flagMaxOTPAttempts, flagLockoutDuration, flagSeed} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	if strings.TrimSpace(v.GetString(flagSigningKey)) == "" {
		return fmt.Errorf("%s is required", flagSigningKey)
	}

	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.AllowedOrigins = simulator.ParseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.SigningKey = v.GetString(flagSigningKey)
	cfg.Issuer = strings.TrimSpace(v.GetString(flagIssuer))
	cfg.SessionTTL = v.GetDuration(flagSessionTTL)
	cfg.FixedOTP = strings.TrimSpace(v.GetString(flagFixedOTP))
	cfg.OTPInterval = v.GetDuration(flagOTPInterval)
	cfg.OTPBurst = v.GetInt(flagOTPBurst)
	cfg.MaxOTPAttempts = v.GetInt(flagMaxOTPAttempts)
	cfg.LockoutDuration = v.GetDuration(flagLockoutDuration)
	cfg.SeedPath = strings.TrimSpace(v.GetString(flagSeed))
	return cfg.Validate()
}
