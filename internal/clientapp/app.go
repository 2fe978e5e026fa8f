package clientapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dhemutton/mobile-application/internal/auth"
	"github.com/dhemutton/mobile-application/internal/gateway"
	"github.com/dhemutton/mobile-application/internal/oplog"
	"github.com/dhemutton/mobile-application/internal/redemption"
	"github.com/dhemutton/mobile-application/internal/session"
	"github.com/dhemutton/mobile-application/internal/store/gormstore"
	"github.com/dhemutton/mobile-application/internal/terminal"
	"github.com/dhemutton/mobile-application/pkg/supply"
)

// App holds the wired client for one endpoint.
type App struct {
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	client   *gateway.Client
	store    *gormstore.Store
	sessions *session.Manager
	closeDB  func() error
}

// Open validates cfg, opens and migrates the local database and wires the
// gateway client and session manager.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, closeDB, err := OpenDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}
	store := gormstore.New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = closeDB()
		return nil, err
	}
	sessions, err := session.NewManager(store, time.Now)
	if err != nil {
		_ = closeDB()
		return nil, err
	}
	return &App{
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		client:   gateway.New(gateway.Config{Timeout: cfg.Timeout, UserAgent: cfg.UserAgent}),
		store:    store,
		sessions: sessions,
		closeDB:  closeDB,
	}, nil
}

// Close releases the local database.
func (app *App) Close() error {
	return app.closeDB()
}

// Endpoint returns the backend the app talks to.
func (app *App) Endpoint() string {
	return app.cfg.Endpoint
}

// EnvVersion fetches the policies and feature flags of the endpoint.
func (app *App) EnvVersion(ctx context.Context) (supply.EnvVersion, error) {
	return app.client.EnvVersion(ctx, app.cfg.Endpoint)
}

// Login signs mobileNumber in. When the backend requires an OTP the login
// flow runs on term, otherwise a session is created directly.
func (app *App) Login(ctx context.Context, term *terminal.Terminal, mobileNumber string, correlationKey string) error {
	envVersion, err := app.EnvVersion(ctx)
	if err != nil {
		return fmt.Errorf("fetch env version: %w", err)
	}
	if !envVersion.Features.RequireOTP {
		credentials, err := app.client.CreateSession(ctx, mobileNumber, correlationKey, app.cfg.Endpoint)
		if err != nil {
			return err
		}
		if err := app.sessions.SetAuthInfo(ctx, credentials.SessionToken, credentials.TTL.Millis(), app.cfg.Endpoint); err != nil {
			return err
		}
		return term.Navigate(ctx, auth.DefaultNextScreen)
	}

	controller, err := auth.NewController(app.client, app.sessions, term, term, auth.WithFlowLogger(oplog.New(app.logger)))
	if err != nil {
		return err
	}
	defer controller.Close()
	target := auth.LoginTarget{MobileNumber: mobileNumber, CorrelationKey: correlationKey, Endpoint: app.cfg.Endpoint}
	if err := controller.RequestOTP(ctx, target); err != nil {
		return fmt.Errorf("request otp: %w", err)
	}
	return terminal.RunOTPPrompt(ctx, term, controller)
}

// Logout tears down the stored session of the endpoint. Logging out without
// a session succeeds.
func (app *App) Logout(ctx context.Context) error {
	if _, err := app.sessions.Restore(ctx, app.cfg.Endpoint); err != nil {
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrSessionExpired) {
			return nil
		}
		return err
	}
	return app.sessions.Teardown(ctx)
}

// Session returns the stored live session of the endpoint.
func (app *App) Session(ctx context.Context) (*session.Session, error) {
	return app.sessions.Restore(ctx, app.cfg.Endpoint)
}

// Quota fetches and caches the remaining quota of id.
func (app *App) Quota(ctx context.Context, id string) (supply.Quota, []supply.Policy, error) {
	current, service, err := app.redemption(ctx)
	if err != nil {
		return supply.Quota{}, nil, err
	}
	quota, err := service.Quota(ctx, current, id)
	if err != nil {
		return supply.Quota{}, nil, err
	}
	return quota, service.Policies(), nil
}

// QuotaSummary fetches the aggregate quota and history of id.
func (app *App) QuotaSummary(ctx context.Context, id string) (supply.QuotaSummary, error) {
	current, err := app.Session(ctx)
	if err != nil {
		return supply.QuotaSummary{}, err
	}
	return app.client.QuotaSummary(ctx, current, id)
}

// CachedQuota returns the last quota fetched for id.
func (app *App) CachedQuota(ctx context.Context, id string) (supply.Quota, time.Time, error) {
	return app.store.LatestQuotaSnapshot(ctx, id)
}

// Redeem validates and submits transactions for id.
func (app *App) Redeem(ctx context.Context, id string, transactions []supply.Transaction) (supply.PostTransactionResult, []supply.Policy, error) {
	current, service, err := app.redemption(ctx)
	if err != nil {
		return supply.PostTransactionResult{}, nil, err
	}
	result, err := service.Checkout(ctx, current, id, transactions)
	return result, service.Policies(), err
}

// History lists the transaction groups confirmed locally for id.
func (app *App) History(ctx context.Context, id string) ([]supply.TransactionGroup, error) {
	return app.store.ListTransactionGroups(ctx, id)
}

func (app *App) redemption(ctx context.Context) (*session.Session, *redemption.Service, error) {
	current, err := app.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	envVersion, err := app.EnvVersion(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch env version: %w", err)
	}
	service, err := redemption.NewService(app.client, envVersion, app.now,
		redemption.WithHistory(app.store),
		redemption.WithOperationLogger(oplog.New(app.logger)),
	)
	if err != nil {
		return nil, nil, err
	}
	return current, service, nil
}
