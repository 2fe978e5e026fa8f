package clientapp

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dhemutton/mobile-application/internal/auth"
	"github.com/dhemutton/mobile-application/internal/session"
	"github.com/dhemutton/mobile-application/internal/simulator"
	"github.com/dhemutton/mobile-application/internal/terminal"
	"github.com/dhemutton/mobile-application/pkg/supply"
)

const (
	testPhone    = "+6591234567"
	testIdentity = "S8174504H"
	testOTP      = "135790"
)

type clientFixture struct {
	app *App
	key string
}

func newClientFixture(test *testing.T, mutate func(seed *simulator.Seed)) *clientFixture {
	test.Helper()
	seed := simulator.DefaultSeed()
	if mutate != nil {
		mutate(&seed)
	}
	server, err := simulator.NewServer(simulator.Config{SigningKey: "client-test-signing-key", FixedOTP: testOTP}, seed, nil, nil)
	require.NoError(test, err)
	httpServer := httptest.NewServer(server.Handler())
	test.Cleanup(httpServer.Close)

	app, err := Open(context.Background(), Config{
		Endpoint:    httpServer.URL,
		DatabaseURL: filepath.Join(test.TempDir(), "client.db"),
		Timeout:     5 * time.Second,
	}, nil)
	require.NoError(test, err)
	test.Cleanup(func() { _ = app.Close() })
	return &clientFixture{app: app, key: server.CreateKey()}
}

func (fixture *clientFixture) login(test *testing.T, input string) (string, error) {
	test.Helper()
	var output bytes.Buffer
	term := terminal.New(strings.NewReader(input), &output)
	err := fixture.app.Login(context.Background(), term, testPhone, fixture.key)
	return output.String(), err
}

func TestLoginWithOTPPersistsSession(test *testing.T) {
	test.Parallel()
	fixture := newClientFixture(test, nil)

	output, err := fixture.login(test, "12a\n"+testOTP+"\n")
	require.NoError(test, err)
	require.Contains(test, output, "OTP must contain digits only.")
	require.Contains(test, output, auth.DefaultNextScreen)

	current, err := fixture.app.Session(context.Background())
	require.NoError(test, err)
	subject, err := current.Subject()
	require.NoError(test, err)
	require.Equal(test, testPhone, subject)
}

func TestLoginWrongOTPShowsAlertAndRetries(test *testing.T) {
	test.Parallel()
	fixture := newClientFixture(test, nil)

	output, err := fixture.login(test, "000000\n\n"+testOTP+"\n")
	require.NoError(test, err)
	require.Contains(test, output, "Error: Invalid OTP, 2 attempts remaining")
}

func TestLoginLockoutReturnsToMobileEntry(test *testing.T) {
	test.Parallel()
	fixture := newClientFixture(test, nil)

	output, err := fixture.login(test, "000000\n\n000000\n\n000000\n\n")
	require.ErrorIs(test, err, terminal.ErrLoginLockedOut)
	require.Contains(test, output, "Please wait 60 seconds before retrying")

	_, err = fixture.app.Session(context.Background())
	require.ErrorIs(test, err, session.ErrNoSession)
}

func TestLoginWithoutOTPCreatesSession(test *testing.T) {
	test.Parallel()
	fixture := newClientFixture(test, func(seed *simulator.Seed) { seed.Env.Features.RequireOTP = false })

	_, err := fixture.login(test, "")
	require.NoError(test, err)
	_, err = fixture.app.Session(context.Background())
	require.NoError(test, err)
}

func TestRedeemRecordsHistoryAndSnapshot(test *testing.T) {
	test.Parallel()
	fixture := newClientFixture(test, nil)
	_, err := fixture.login(test, testOTP+"\n")
	require.NoError(test, err)
	ctx := context.Background()

	quota, policies, err := fixture.app.Quota(ctx, testIdentity)
	require.NoError(test, err)
	require.Equal(test, "meat", policies[0].Category)
	meat, ok := quota.Find("meat")
	require.True(test, ok)
	require.Equal(test, int64(5), meat.Quantity)

	transactions, err := ParseItems([]string{"meat=2", "masks=1:Serial=SN123"})
	require.NoError(test, err)
	result, _, err := fixture.app.Redeem(ctx, testIdentity, transactions)
	require.NoError(test, err)
	require.Len(test, result.Transactions, 1)

	groups, err := fixture.app.History(ctx, testIdentity)
	require.NoError(test, err)
	require.Len(test, groups, 1)
	require.Equal(test, "SN123", groups[0].Transaction[1].IdentifierInputs[0].Value)

	cached, _, err := fixture.app.CachedQuota(ctx, testIdentity)
	require.NoError(test, err)
	cachedMeat, _ := cached.Find("meat")
	require.Equal(test, int64(5), cachedMeat.Quantity)

	summary, err := fixture.app.QuotaSummary(ctx, testIdentity)
	require.NoError(test, err)
	require.Equal(test, int64(7), summary.RemainingQuota)
}

func TestRedeemRejectsMissingIdentifierWithoutSubmitting(test *testing.T) {
	test.Parallel()
	fixture := newClientFixture(test, nil)
	_, err := fixture.login(test, testOTP+"\n")
	require.NoError(test, err)
	ctx := context.Background()

	_, _, err = fixture.app.Redeem(ctx, testIdentity, []supply.Transaction{{Category: "masks", Quantity: 1}})
	require.ErrorIs(test, err, supply.ErrPolicyViolation)

	quota, _, err := fixture.app.Quota(ctx, testIdentity)
	require.NoError(test, err)
	masks, _ := quota.Find("masks")
	require.Equal(test, int64(5), masks.Quantity)
}

func TestLogoutRemovesSession(test *testing.T) {
	test.Parallel()
	fixture := newClientFixture(test, nil)
	ctx := context.Background()
	require.NoError(test, fixture.app.Logout(ctx))

	_, err := fixture.login(test, testOTP+"\n")
	require.NoError(test, err)
	require.NoError(test, fixture.app.Logout(ctx))
	_, err = fixture.app.Session(ctx)
	require.ErrorIs(test, err, session.ErrNoSession)
}

func TestParseItem(test *testing.T) {
	test.Parallel()
	transaction, err := ParseItem("masks=2:Serial=SN1:Contact=+6591234567")
	require.NoError(test, err)
	require.Equal(test, "masks", transaction.Category)
	require.Equal(test, int64(2), transaction.Quantity)
	require.Len(test, transaction.IdentifierInputs, 2)
	require.Equal(test, "Contact", transaction.IdentifierInputs[1].Label)

	for _, raw := range []string{"masks", "=2", "masks=two", "masks=1:Serial"} {
		_, err := ParseItem(raw)
		require.ErrorIs(test, err, supply.ErrInputFormat, raw)
	}
}

func TestConfigValidate(test *testing.T) {
	test.Parallel()
	cfg := Config{Endpoint: " https://supply.example.com/ "}
	require.NoError(test, cfg.Validate())
	require.Equal(test, "https://supply.example.com", cfg.Endpoint)
	require.Equal(test, DefaultDatabasePath("https://supply.example.com"), cfg.DatabaseURL)
	require.Equal(test, defaultTimeout, cfg.Timeout)

	for _, endpoint := range []string{"", "ftp://supply.example.com", "https://"} {
		cfg := Config{Endpoint: endpoint}
		require.Error(test, cfg.Validate(), endpoint)
	}

	cfg = Config{Endpoint: "https://supply.example.com", DatabaseURL: "mysql://localhost/supply"}
	require.Error(test, cfg.Validate())
}

func TestDefaultDatabasePathIsPerEndpoint(test *testing.T) {
	test.Parallel()
	staging := DefaultDatabasePath("https://staging.supply.example.com")
	local := DefaultDatabasePath("http://127.0.0.1:8080")
	require.NotEqual(test, staging, local)
	require.Equal(test, "staging.supply.example.com.db", filepath.Base(staging))
	require.Equal(test, "127.0.0.1_8080.db", filepath.Base(local))
	require.Equal(test, filepath.Dir(staging), filepath.Dir(local))
}

func TestLocateDatabase(test *testing.T) {
	test.Parallel()
	dir := test.TempDir()
	testCases := []struct {
		name   string
		raw    string
		driver string
		dsn    string
	}{
		{name: "postgres", raw: "postgres://user@localhost/supply", driver: driverPostgres, dsn: "postgres://user@localhost/supply"},
		{name: "postgresql", raw: "postgresql://user@localhost/supply", driver: driverPostgres, dsn: "postgresql://user@localhost/supply"},
		{name: "memory", raw: sqliteMemory, driver: driverSQLite, dsn: sqliteMemory},
		{name: "sqlite absolute", raw: "sqlite://" + filepath.Join(dir, "nested", "client.db"), driver: driverSQLite, dsn: filepath.Join(dir, "nested", "client.db")},
		{name: "sqlite relative", raw: "sqlite://data/client.db", driver: driverSQLite, dsn: filepath.Join("data", "client.db")},
		{name: "bare path", raw: filepath.Join(dir, "client.db"), driver: driverSQLite, dsn: filepath.Join(dir, "client.db")},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			location, err := locateDatabase(testCase.raw)
			require.NoError(test, err)
			require.Equal(test, testCase.driver, location.driver)
			require.Equal(test, testCase.dsn, location.dsn)
		})
	}

	for _, raw := range []string{"", "sqlite://", "mysql://localhost/supply"} {
		_, err := locateDatabase(raw)
		require.Error(test, err, raw)
	}
}

func TestOpenDatabaseCreatesParentDirectory(test *testing.T) {
	test.Parallel()
	path := filepath.Join(test.TempDir(), "nested", "deeper", "client.db")
	db, closeDB, err := OpenDatabase(context.Background(), "sqlite://"+path)
	require.NoError(test, err)
	test.Cleanup(func() { _ = closeDB() })
	require.NoError(test, db.Exec("SELECT 1").Error)
	require.FileExists(test, path)
}
