package supply

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var payloadValidator = validator.New()

func decodePayload(subject string, data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return WrapError(operationDecode, subject, codeMalformed, fmt.Errorf("%w: %w", ErrDecode, err))
	}
	if err := payloadValidator.Struct(target); err != nil {
		return WrapError(operationDecode, subject, codeSchema, fmt.Errorf("%w: %w", ErrDecode, err))
	}
	return nil
}

// DecodeEnvVersion decodes the environment configuration payload.
func DecodeEnvVersion(data []byte) (EnvVersion, error) {
	var wire wireEnvVersion
	if err := decodePayload(subjectEnvVersion, data, &wire); err != nil {
		return EnvVersion{}, err
	}
	envVersion := EnvVersion{
		Policies: make([]Policy, 0, len(wire.Policies)),
		Features: Features{
			RequireOTP:          *wire.Features.RequireOTP,
			TransactionGrouping: *wire.Features.TransactionGrouping,
		},
	}
	seen := make(map[string]struct{}, len(wire.Policies))
	for _, policy := range wire.Policies {
		if _, exists := seen[*policy.Category]; exists {
			return EnvVersion{}, WrapError(operationDecode, subjectEnvVersion, codeInvariant, fmt.Errorf("%w: duplicate policy category %q", ErrDecode, *policy.Category))
		}
		seen[*policy.Category] = struct{}{}
		envVersion.Policies = append(envVersion.Policies, policy.toPolicy())
	}
	return envVersion, nil
}

// DecodeQuota decodes a per-category quota snapshot.
func DecodeQuota(data []byte) (Quota, error) {
	var wire wireQuota
	if err := decodePayload(subjectQuota, data, &wire); err != nil {
		return Quota{}, err
	}
	quota := Quota{RemainingQuota: make([]ItemQuota, 0, len(wire.RemainingQuota))}
	for _, item := range wire.RemainingQuota {
		quota.RemainingQuota = append(quota.RemainingQuota, ItemQuota{
			Category:         *item.Category,
			Quantity:         *item.Quantity,
			TransactionTime:  item.TransactionTime,
			IdentifierInputs: toIdentifierInputs(item.IdentifierInputs),
		})
	}
	if err := quota.Validate(); err != nil {
		return Quota{}, WrapError(operationDecode, subjectQuota, codeInvariant, fmt.Errorf("%w: %w", ErrDecode, err))
	}
	return quota, nil
}

// DecodeQuotaSummary decodes the aggregate quota view with its history.
func DecodeQuotaSummary(data []byte) (QuotaSummary, error) {
	var wire wireQuotaSummary
	if err := decodePayload(subjectQuotaSummary, data, &wire); err != nil {
		return QuotaSummary{}, err
	}
	if *wire.RemainingQuota < 0 {
		return QuotaSummary{}, WrapError(operationDecode, subjectQuotaSummary, codeInvariant, fmt.Errorf("%w: negative remaining quota %d", ErrDecode, *wire.RemainingQuota))
	}
	summary := QuotaSummary{
		RemainingQuota: *wire.RemainingQuota,
		History:        make([]QuotaHistoryEntry, 0, len(wire.History)),
	}
	for _, entry := range wire.History {
		summary.History = append(summary.History, QuotaHistoryEntry{
			Quantity:        *entry.Quantity,
			TransactionTime: *entry.TransactionTime,
		})
	}
	return summary, nil
}

// DecodeSessionCredentials decodes the OTP validation response.
func DecodeSessionCredentials(data []byte) (SessionCredentials, error) {
	var wire wireSessionCredentials
	if err := decodePayload(subjectCredentials, data, &wire); err != nil {
		return SessionCredentials{}, err
	}
	if *wire.SessionToken == "" {
		return SessionCredentials{}, WrapError(operationDecode, subjectCredentials, codeInvariant, fmt.Errorf("%w: empty session token", ErrDecode))
	}
	return SessionCredentials{SessionToken: *wire.SessionToken, TTL: *wire.TTL}, nil
}

// DecodePostTransactionResult decodes the server confirmation of a submission.
func DecodePostTransactionResult(data []byte) (PostTransactionResult, error) {
	var wire wirePostTransactionResult
	if err := decodePayload(subjectTransactionSet, data, &wire); err != nil {
		return PostTransactionResult{}, err
	}
	result := PostTransactionResult{Transactions: make([]TransactionGroup, 0, len(wire.Transactions))}
	for _, group := range wire.Transactions {
		transactions := make([]Transaction, 0, len(group.Transaction))
		for _, transaction := range group.Transaction {
			if *transaction.Quantity <= 0 {
				return PostTransactionResult{}, WrapError(operationDecode, subjectTransactionSet, codeInvariant, fmt.Errorf("%w: non-positive quantity for %q", ErrDecode, *transaction.Category))
			}
			transactions = append(transactions, transaction.toTransaction())
		}
		result.Transactions = append(result.Transactions, TransactionGroup{
			Transaction: transactions,
			Timestamp:   *group.Timestamp,
		})
	}
	return result, nil
}

// DecodeOTPRequestResult decodes the OTP request response. An empty body is
// a success without warning.
func DecodeOTPRequestResult(data []byte) (OTPRequestResult, error) {
	if len(data) == 0 {
		return OTPRequestResult{}, nil
	}
	var wire wireOTPRequestResult
	if err := decodePayload(subjectOTPRequest, data, &wire); err != nil {
		return OTPRequestResult{}, err
	}
	return OTPRequestResult{Status: stringValue(wire.Status), Warning: stringValue(wire.Message)}, nil
}
