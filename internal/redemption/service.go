// Package redemption checks pending transactions against policies and
// quotas and submits them to the backend.
package redemption

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dhemutton/mobile-application/internal/gateway"
	"github.com/dhemutton/mobile-application/pkg/supply"
)

// Service errors.
var (
	ErrInvalidServiceConfig = errors.New("invalid redemption service configuration")
	ErrHistoryUnavailable   = errors.New("no local history configured")
	ErrNoSnapshot           = errors.New("no quota snapshot stored")
)

// Gateway fetches quotas and posts transactions for an identity.
type Gateway interface {
	Quota(ctx context.Context, credential gateway.Credential, id string) (supply.Quota, error)
	PostTransaction(ctx context.Context, credential gateway.Credential, id string, transactions []supply.Transaction) (supply.PostTransactionResult, error)
}

// History persists quota snapshots and confirmed transaction groups.
// LatestQuotaSnapshot returns ErrNoSnapshot when nothing is stored.
type History interface {
	SaveQuotaSnapshot(ctx context.Context, id string, quota supply.Quota, fetchedAt time.Time) error
	LatestQuotaSnapshot(ctx context.Context, id string) (supply.Quota, time.Time, error)
	RecordTransactionGroups(ctx context.Context, id string, groups []supply.TransactionGroup) error
	ListTransactionGroups(ctx context.Context, id string) ([]supply.TransactionGroup, error)
}

// Service runs quota and checkout operations under one EnvVersion snapshot.
type Service struct {
	gateway    Gateway
	envVersion supply.EnvVersion
	nowFn      func() time.Time
	history    History
	logger     OperationLogger
}

// NewService wires a Service.
func NewService(quotaGateway Gateway, envVersion supply.EnvVersion, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if quotaGateway == nil {
		return nil, fmt.Errorf("%w: gateway dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{gateway: quotaGateway, envVersion: envVersion, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Policies returns the policies of the snapshot ordered for display.
func (service *Service) Policies() []supply.Policy {
	return supply.SortPolicies(service.envVersion.Policies)
}

// Quota fetches the remaining quota of id and stores it as the latest snapshot.
func (service *Service) Quota(ctx context.Context, credential gateway.Credential, id string) (supply.Quota, error) {
	quota, err := service.gateway.Quota(ctx, credential, id)
	if err != nil {
		err = supply.WrapError(operationQuota, subjectQuota, codeFetch, err)
	} else if service.history != nil {
		if saveErr := service.history.SaveQuotaSnapshot(ctx, id, quota, service.nowFn()); saveErr != nil {
			err = supply.WrapError(operationQuota, subjectQuota, codePersist, saveErr)
		}
	}
	service.logOperation(ctx, OperationLog{
		Operation:  operationQuota,
		Identity:   MaskIdentity(id),
		Endpoint:   credential.Endpoint(),
		Categories: quotaCategories(quota),
		Error:      err,
	})
	if err != nil {
		return supply.Quota{}, err
	}
	return quota, nil
}

// CachedQuota returns the latest stored snapshot of id and when it was fetched.
func (service *Service) CachedQuota(ctx context.Context, id string) (supply.Quota, time.Time, error) {
	if service.history == nil {
		return supply.Quota{}, time.Time{}, ErrHistoryUnavailable
	}
	return service.history.LatestQuotaSnapshot(ctx, id)
}

// History lists confirmed transaction groups recorded for id.
func (service *Service) History(ctx context.Context, id string) ([]supply.TransactionGroup, error) {
	if service.history == nil {
		return nil, ErrHistoryUnavailable
	}
	groups, err := service.history.ListTransactionGroups(ctx, id)
	if err != nil {
		return nil, supply.WrapError(operationHistory, subjectHistory, codeUnavailable, err)
	}
	return groups, nil
}

// Checkout validates every transaction against its policy and the current
// quota and submits them. Nothing is sent when any transaction fails
// validation. With transaction grouping the batch is posted once, otherwise
// each transaction is posted on its own and the results are merged in order.
func (service *Service) Checkout(ctx context.Context, credential gateway.Credential, id string, transactions []supply.Transaction) (supply.PostTransactionResult, error) {
	entry := OperationLog{
		Operation:    operationCheckout,
		Identity:     MaskIdentity(id),
		Endpoint:     credential.Endpoint(),
		Categories:   transactionCategories(transactions),
		Transactions: len(transactions),
	}
	result, batches, err := service.checkout(ctx, credential, id, transactions)
	entry.Batches = batches
	entry.Error = err
	service.logOperation(ctx, entry)
	return result, err
}

func (service *Service) checkout(ctx context.Context, credential gateway.Credential, id string, transactions []supply.Transaction) (supply.PostTransactionResult, int, error) {
	if len(transactions) == 0 {
		return supply.PostTransactionResult{}, 0, checkoutViolation(codeEmpty, supply.ErrInvalidTransaction, "no transactions to submit")
	}
	quota, err := service.gateway.Quota(ctx, credential, id)
	if err != nil {
		return supply.PostTransactionResult{}, 0, supply.WrapError(operationCheckout, subjectQuota, codeFetch, err)
	}
	if err := service.validate(transactions, quota); err != nil {
		return supply.PostTransactionResult{}, 0, err
	}

	batches := supply.GroupTransactions(transactions, service.envVersion.Features.TransactionGrouping)
	merged := supply.PostTransactionResult{Transactions: make([]supply.TransactionGroup, 0, len(batches))}
	var submitErr error
	submitted := 0
	for _, batch := range batches {
		result, err := service.gateway.PostTransaction(ctx, credential, id, batch)
		if err != nil {
			submitErr = supply.WrapError(operationCheckout, subjectTransaction, codeSubmit, fmt.Errorf("batch %d of %d: %w", submitted+1, len(batches), err))
			break
		}
		submitted++
		merged.Transactions = append(merged.Transactions, result.Transactions...)
	}
	if service.history != nil && len(merged.Transactions) > 0 {
		if err := service.history.RecordTransactionGroups(ctx, id, merged.Transactions); err != nil {
			submitErr = errors.Join(submitErr, supply.WrapError(operationCheckout, subjectHistory, codePersist, err))
		}
	}
	return merged, submitted, submitErr
}

func (service *Service) validate(transactions []supply.Transaction, quota supply.Quota) error {
	seen := make(map[string]struct{}, len(transactions))
	for _, transaction := range transactions {
		if _, exists := seen[transaction.Category]; exists {
			return checkoutViolation(codeDuplicateCategory, supply.ErrPolicyViolation, "category %q appears more than once", transaction.Category)
		}
		seen[transaction.Category] = struct{}{}
		policy, ok := supply.FindPolicy(transaction.Category, service.envVersion.Policies)
		if !ok {
			return checkoutViolation(codeUnknownCategory, fmt.Errorf("%w: %w", supply.ErrPolicyViolation, supply.ErrUnknownCategory), "no policy for category %q", transaction.Category)
		}
		if err := supply.ValidateTransactionAgainstPolicy(transaction, policy); err != nil {
			return err
		}
		item, ok := quota.Find(transaction.Category)
		if !ok {
			return checkoutViolation(codeNoQuota, supply.ErrPolicyViolation, "no quota for category %q", transaction.Category)
		}
		if err := supply.ValidateTransactionAgainstQuota(transaction, item); err != nil {
			return err
		}
	}
	return nil
}

func checkoutViolation(code string, cause error, format string, args ...any) error {
	return supply.WrapError(operationCheckout, subjectTransaction, code, fmt.Errorf("%w: "+format, append([]any{cause}, args...)...))
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

// MaskIdentity keeps the first and last character of an identity number.
func MaskIdentity(id string) string {
	if len(id) <= 2 {
		return id
	}
	return id[:1] + strings.Repeat("*", len(id)-2) + id[len(id)-1:]
}

func quotaCategories(quota supply.Quota) []string {
	categories := make([]string, 0, len(quota.RemainingQuota))
	for _, item := range quota.RemainingQuota {
		categories = append(categories, item.Category)
	}
	return categories
}

func transactionCategories(transactions []supply.Transaction) []string {
	categories := make([]string, 0, len(transactions))
	for _, transaction := range transactions {
		categories = append(categories, transaction.Category)
	}
	return categories
}
