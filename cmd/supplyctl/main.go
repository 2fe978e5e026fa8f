package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dhemutton/mobile-application/internal/clientapp"
	"github.com/dhemutton/mobile-application/internal/terminal"
	"github.com/dhemutton/mobile-application/pkg/supply"
)

const (
	flagEndpoint    = "endpoint"
	flagDatabaseURL = "database-url"
	flagTimeout     = "timeout"
	flagVerbose     = "verbose"
	flagMobile      = "mobile"
	flagKey         = "key"
	flagSummary     = "summary"
	flagCached      = "cached"
	flagItem        = "item"
	envPrefix       = "SUPPLYCTL"
)

func main() {
	rootCmd := newRootCommand(os.Stdin, os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "supplyctl: %v\n", err)
		os.Exit(1)
	}
}

type runtime struct {
	cfg    clientapp.Config
	input  io.Reader
	output io.Writer
}

func newRootCommand(input io.Reader, output io.Writer) *cobra.Command {
	state := &runtime{input: input, output: output}
	cmd := &cobra.Command{
		Use:           "supplyctl",
		Short:         "Supply distribution client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, &state.cfg)
		},
	}

	cmd.PersistentFlags().String(flagEndpoint, "", "backend base URL (required)")
	cmd.PersistentFlags().String(flagDatabaseURL, "", "local database: sqlite path, sqlite:// or postgres:// URL")
	cmd.PersistentFlags().Duration(flagTimeout, 0, "HTTP request timeout (e.g. 15s)")
	cmd.PersistentFlags().Bool(flagVerbose, false, "log flow events to stderr")

	cmd.AddCommand(
		newLoginCommand(state),
		newLogoutCommand(state),
		newEnvCommand(state),
		newQuotaCommand(state),
		newRedeemCommand(state),
		newHistoryCommand(state),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *clientapp.Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagEndpoint, flagDatabaseURL, flagTimeout, flagVerbose} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.Endpoint = strings.TrimSpace(v.GetString(flagEndpoint))
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.Timeout = v.GetDuration(flagTimeout)
	cfg.Verbose = v.GetBool(flagVerbose)
	return cfg.Validate()
}

// withApp opens the client for the duration of run.
func (state *runtime) withApp(cmd *cobra.Command, run func(ctx context.Context, app *clientapp.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(state.cfg.Verbose)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := clientapp.Open(ctx, state.cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return run(ctx, app)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func newLoginCommand(state *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a mobile number and login key",
		RunE: func(cmd *cobra.Command, args []string) error {
			mobile, _ := cmd.Flags().GetString(flagMobile)
			key, _ := cmd.Flags().GetString(flagKey)
			if strings.TrimSpace(mobile) == "" {
				return fmt.Errorf("%s is required", flagMobile)
			}
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("%s is required", flagKey)
			}
			return state.withApp(cmd, func(ctx context.Context, app *clientapp.App) error {
				return app.Login(ctx, terminal.New(state.input, state.output), mobile, key)
			})
		},
	}
	cmd.Flags().String(flagMobile, "", "mobile number including country code (required)")
	cmd.Flags().String(flagKey, "", "login key issued to the distributor (required)")
	return cmd
}

func newLogoutCommand(state *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withApp(cmd, func(ctx context.Context, app *clientapp.App) error {
				if err := app.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintf(state.output, "Logged out of %s.\n", app.Endpoint())
				return nil
			})
		},
	}
}

func newEnvCommand(state *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show the policies and feature flags of the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withApp(cmd, func(ctx context.Context, app *clientapp.App) error {
				envVersion, err := app.EnvVersion(ctx)
				if err != nil {
					return err
				}
				printEnvVersion(state.output, envVersion)
				return nil
			})
		},
	}
}

func newQuotaCommand(state *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota <id>",
		Short: "Show the remaining quota of an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, _ := cmd.Flags().GetBool(flagSummary)
			cached, _ := cmd.Flags().GetBool(flagCached)
			return state.withApp(cmd, func(ctx context.Context, app *clientapp.App) error {
				switch {
				case summary:
					quotaSummary, err := app.QuotaSummary(ctx, args[0])
					if err != nil {
						return err
					}
					printQuotaSummary(state.output, quotaSummary)
				case cached:
					quota, fetchedAt, err := app.CachedQuota(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(state.output, "Fetched %s\n", fetchedAt.Local().Format(time.RFC1123))
					printQuota(state.output, quota, nil)
				default:
					quota, policies, err := app.Quota(ctx, args[0])
					if err != nil {
						return err
					}
					printQuota(state.output, quota, policies)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool(flagSummary, false, "show the aggregate quota and redemption history")
	cmd.Flags().Bool(flagCached, false, "show the last quota fetched without contacting the backend")
	return cmd
}

func newRedeemCommand(state *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redeem <id>",
		Short: "Validate and submit transactions for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, _ := cmd.Flags().GetStringArray(flagItem)
			transactions, err := clientapp.ParseItems(items)
			if err != nil {
				return err
			}
			return state.withApp(cmd, func(ctx context.Context, app *clientapp.App) error {
				result, policies, err := app.Redeem(ctx, args[0], transactions)
				printRedemption(state.output, result, policies)
				return err
			})
		},
	}
	cmd.Flags().StringArray(flagItem, nil, "item as category=quantity[:label=value...], repeatable")
	return cmd
}

func newHistoryCommand(state *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "List transactions confirmed from this client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withApp(cmd, func(ctx context.Context, app *clientapp.App) error {
				groups, err := app.History(ctx, args[0])
				if err != nil {
					return err
				}
				envVersion, err := app.EnvVersion(ctx)
				if err != nil {
					envVersion = supply.EnvVersion{}
				}
				printRedemption(state.output, supply.PostTransactionResult{Transactions: groups}, envVersion.Policies)
				return nil
			})
		},
	}
}
