package redemption

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dhemutton/mobile-application/internal/gateway"
	"github.com/dhemutton/mobile-application/pkg/supply"
)

const (
	testIdentity   = "S8174504H"
	testEndpoint   = "https://api.example.com"
	testToken      = "session-token"
	categoryMeat   = "meat"
	categoryMasks  = "masks"
	identifierName = "Serial"
	groupTimestamp = int64(1580330434981)
)

type staticCredential struct{}

func (staticCredential) Token() string    { return testToken }
func (staticCredential) Endpoint() string { return testEndpoint }

type stubGateway struct {
	quota     supply.Quota
	quotaErr  error
	postErrAt int
	posts     [][]supply.Transaction
}

func (stub *stubGateway) Quota(_ context.Context, credential gateway.Credential, id string) (supply.Quota, error) {
	if credential.Token() != testToken || id != testIdentity {
		return supply.Quota{}, errors.New("unexpected credential")
	}
	return stub.quota, stub.quotaErr
}

func (stub *stubGateway) PostTransaction(_ context.Context, _ gateway.Credential, _ string, transactions []supply.Transaction) (supply.PostTransactionResult, error) {
	stub.posts = append(stub.posts, transactions)
	if stub.postErrAt > 0 && len(stub.posts) == stub.postErrAt {
		return supply.PostTransactionResult{}, errors.New("backend unavailable")
	}
	return supply.PostTransactionResult{Transactions: []supply.TransactionGroup{
		{Transaction: transactions, Timestamp: supply.NewEpochMillis(groupTimestamp + int64(len(stub.posts)))},
	}}, nil
}

type memoryHistory struct {
	snapshots map[string]supply.Quota
	fetchedAt map[string]time.Time
	groups    map[string][]supply.TransactionGroup
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{
		snapshots: map[string]supply.Quota{},
		fetchedAt: map[string]time.Time{},
		groups:    map[string][]supply.TransactionGroup{},
	}
}

func (history *memoryHistory) SaveQuotaSnapshot(_ context.Context, id string, quota supply.Quota, fetchedAt time.Time) error {
	history.snapshots[id] = quota
	history.fetchedAt[id] = fetchedAt
	return nil
}

func (history *memoryHistory) LatestQuotaSnapshot(_ context.Context, id string) (supply.Quota, time.Time, error) {
	quota, ok := history.snapshots[id]
	if !ok {
		return supply.Quota{}, time.Time{}, ErrNoSnapshot
	}
	return quota, history.fetchedAt[id], nil
}

func (history *memoryHistory) RecordTransactionGroups(_ context.Context, id string, groups []supply.TransactionGroup) error {
	history.groups[id] = append(history.groups[id], groups...)
	return nil
}

func (history *memoryHistory) ListTransactionGroups(_ context.Context, id string) ([]supply.TransactionGroup, error) {
	return history.groups[id], nil
}

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func testEnvVersion(grouping bool) supply.EnvVersion {
	return supply.EnvVersion{
		Policies: []supply.Policy{
			{
				Category: categoryMasks,
				Name:     "Face Masks",
				Order:    2,
				Quantity: supply.PolicyQuantity{Period: 7, Limit: 4},
				Identifiers: []supply.PolicyIdentifier{
					{Label: identifierName, TextInput: supply.TextInput{Visible: true, Type: supply.TextInputString}},
				},
			},
			{
				Category: categoryMeat,
				Name:     "Fresh Meat",
				Order:    1,
				Quantity: supply.PolicyQuantity{Period: 7, Limit: 5},
			},
		},
		Features: supply.Features{RequireOTP: true, TransactionGrouping: grouping},
	}
}

func testQuota() supply.Quota {
	return supply.Quota{RemainingQuota: []supply.ItemQuota{
		{Category: categoryMeat, Quantity: 3},
		{Category: categoryMasks, Quantity: 4},
	}}
}

func validTransactions() []supply.Transaction {
	return []supply.Transaction{
		{Category: categoryMeat, Quantity: 2},
		{Category: categoryMasks, Quantity: 1, IdentifierInputs: []supply.IdentifierInput{{Label: identifierName, Value: "SN1"}}},
	}
}

func fixedClock() time.Time {
	return time.UnixMilli(groupTimestamp).UTC()
}

func newTestService(test *testing.T, quotaGateway Gateway, grouping bool, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(quotaGateway, testEnvVersion(grouping), fixedClock, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func TestCheckoutGroupedPostsOnce(test *testing.T) {
	test.Parallel()
	stub := &stubGateway{quota: testQuota()}
	history := newMemoryHistory()
	logger := &recorderLogger{}
	service := newTestService(test, stub, true, WithHistory(history), WithOperationLogger(logger))
	result, err := service.Checkout(context.Background(), staticCredential{}, testIdentity, validTransactions())
	if err != nil {
		test.Fatalf("checkout failed: %v", err)
	}
	if len(stub.posts) != 1 || len(stub.posts[0]) != 2 {
		test.Fatalf("expected a single grouped post, got %+v", stub.posts)
	}
	if len(result.Transactions) != 1 || len(result.Transactions[0].Transaction) != 2 {
		test.Fatalf("expected one timestamped group, got %+v", result)
	}
	if len(history.groups[testIdentity]) != 1 {
		test.Fatalf("expected group recorded in history, got %+v", history.groups)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationCheckout || entry.Status != operationStatusOK || entry.Batches != 1 || entry.Transactions != 2 {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Identity != "S*******H" {
		test.Fatalf("expected masked identity, got %q", entry.Identity)
	}
}

func TestCheckoutIndividualPostsPerTransaction(test *testing.T) {
	test.Parallel()
	stub := &stubGateway{quota: testQuota()}
	service := newTestService(test, stub, false)
	result, err := service.Checkout(context.Background(), staticCredential{}, testIdentity, validTransactions())
	if err != nil {
		test.Fatalf("checkout failed: %v", err)
	}
	if len(stub.posts) != 2 {
		test.Fatalf("expected two posts, got %d", len(stub.posts))
	}
	if len(result.Transactions) != 2 {
		test.Fatalf("expected two groups, got %d", len(result.Transactions))
	}
	if result.Transactions[0].Transaction[0].Category != categoryMeat || result.Transactions[1].Transaction[0].Category != categoryMasks {
		test.Fatalf("expected results merged in submission order, got %+v", result.Transactions)
	}
}

func TestCheckoutRejectsBeforeSubmitting(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name         string
		transactions []supply.Transaction
		expected     error
		expectedCode string
	}{
		{
			name:         "empty",
			transactions: nil,
			expected:     supply.ErrInvalidTransaction,
			expectedCode: codeEmpty,
		},
		{
			name:         "duplicate category",
			transactions: append(validTransactions(), supply.Transaction{Category: categoryMeat, Quantity: 1}),
			expected:     supply.ErrPolicyViolation,
			expectedCode: codeDuplicateCategory,
		},
		{
			name:         "unknown category",
			transactions: []supply.Transaction{{Category: "rice", Quantity: 1}},
			expected:     supply.ErrUnknownCategory,
			expectedCode: codeUnknownCategory,
		},
		{
			name:         "exceeds remaining quota",
			transactions: []supply.Transaction{{Category: categoryMeat, Quantity: 4}},
			expected:     supply.ErrPolicyViolation,
			expectedCode: "quota_exceeded",
		},
		{
			name:         "missing identifier",
			transactions: []supply.Transaction{{Category: categoryMeat, Quantity: 1}, {Category: categoryMasks, Quantity: 1}},
			expected:     supply.ErrPolicyViolation,
			expectedCode: "missing_identifier",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			stub := &stubGateway{quota: testQuota()}
			service := newTestService(test, stub, true)
			_, err := service.Checkout(context.Background(), staticCredential{}, testIdentity, testCase.transactions)
			if !errors.Is(err, testCase.expected) {
				test.Fatalf("expected %v, got %v", testCase.expected, err)
			}
			if code := supply.ErrorCode(err); code != testCase.expectedCode {
				test.Fatalf("expected code %q, got %q", testCase.expectedCode, code)
			}
			if len(stub.posts) != 0 {
				test.Fatalf("expected nothing submitted, got %+v", stub.posts)
			}
		})
	}
}

func TestCheckoutKeepsConfirmedBatchesOnFailure(test *testing.T) {
	test.Parallel()
	stub := &stubGateway{quota: testQuota(), postErrAt: 2}
	history := newMemoryHistory()
	service := newTestService(test, stub, false, WithHistory(history))
	result, err := service.Checkout(context.Background(), staticCredential{}, testIdentity, validTransactions())
	if err == nil || supply.ErrorCode(err) != codeSubmit {
		test.Fatalf("expected submit error, got %v", err)
	}
	if len(result.Transactions) != 1 || len(history.groups[testIdentity]) != 1 {
		test.Fatalf("expected the first confirmed group kept, got %+v", result)
	}
}

func TestQuotaStoresSnapshot(test *testing.T) {
	test.Parallel()
	stub := &stubGateway{quota: testQuota()}
	history := newMemoryHistory()
	service := newTestService(test, stub, true, WithHistory(history))
	if _, _, err := service.CachedQuota(context.Background(), testIdentity); !errors.Is(err, ErrNoSnapshot) {
		test.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	quota, err := service.Quota(context.Background(), staticCredential{}, testIdentity)
	if err != nil {
		test.Fatalf("quota failed: %v", err)
	}
	cached, fetchedAt, err := service.CachedQuota(context.Background(), testIdentity)
	if err != nil {
		test.Fatalf("cached quota failed: %v", err)
	}
	if len(cached.RemainingQuota) != len(quota.RemainingQuota) || !fetchedAt.Equal(fixedClock()) {
		test.Fatalf("unexpected snapshot: %+v at %s", cached, fetchedAt)
	}
}

func TestQuotaFailureIsLogged(test *testing.T) {
	test.Parallel()
	stub := &stubGateway{quotaErr: errors.New("boom")}
	logger := &recorderLogger{}
	service := newTestService(test, stub, true, WithOperationLogger(logger))
	if _, err := service.Quota(context.Background(), staticCredential{}, testIdentity); supply.ErrorCode(err) != codeFetch {
		test.Fatalf("expected fetch error, got %v", err)
	}
	if len(logger.entries) != 1 || logger.entries[0].Status != operationStatusError {
		test.Fatalf("expected error log entry, got %+v", logger.entries)
	}
}

func TestServiceWithoutHistory(test *testing.T) {
	test.Parallel()
	service := newTestService(test, &stubGateway{}, true)
	if _, err := service.History(context.Background(), testIdentity); !errors.Is(err, ErrHistoryUnavailable) {
		test.Fatalf("expected ErrHistoryUnavailable, got %v", err)
	}
	policies := service.Policies()
	if policies[0].Category != categoryMeat {
		test.Fatalf("expected policies ordered by rank, got %s first", policies[0].Category)
	}
}

func TestNewServiceValidatesDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewService(nil, supply.EnvVersion{}, time.Now); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig, got %v", err)
	}
	if _, err := NewService(&stubGateway{}, supply.EnvVersion{}, nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig, got %v", err)
	}
}
