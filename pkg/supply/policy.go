package supply

import (
	"fmt"
	"sort"
	"strings"
)

// ResolveCategoryDisplayName returns the policy name for category, or the
// category itself when no policy matches.
func ResolveCategoryDisplayName(category string, policies []Policy) string {
	policy, ok := FindPolicy(category, policies)
	if !ok {
		return category
	}
	return policy.Name
}

// FindPolicy looks up the policy with the given category.
func FindPolicy(category string, policies []Policy) (Policy, bool) {
	for _, policy := range policies {
		if policy.Category == category {
			return policy, true
		}
	}
	return Policy{}, false
}

// SortPolicies returns a copy of policies ordered by Order, ties keeping
// their original position.
func SortPolicies(policies []Policy) []Policy {
	sorted := append([]Policy(nil), policies...)
	sort.SliceStable(sorted, func(left, right int) bool {
		return sorted[left].Order < sorted[right].Order
	})
	return sorted
}

// ValidateTransactionAgainstPolicy checks a pending transaction against the
// policy of its category.
func ValidateTransactionAgainstPolicy(transaction Transaction, policy Policy) error {
	if transaction.Category != policy.Category {
		return policyViolation(codeCategoryMismatch, "transaction category %q does not match policy %q", transaction.Category, policy.Category)
	}
	if transaction.Quantity <= 0 {
		return policyViolation(codeQuantity, "quantity for %q must be greater than zero", transaction.Category)
	}
	if transaction.Quantity > policy.Quantity.Limit {
		return policyViolation(codeLimitExceeded, "quantity %d for %q exceeds limit %d per %d", transaction.Quantity, transaction.Category, policy.Quantity.Limit, policy.Quantity.Period)
	}
	return validateIdentifierInputs(transaction, policy)
}

// ValidateTransactionAgainstQuota checks a pending transaction against the
// remaining allowance of its category.
func ValidateTransactionAgainstQuota(transaction Transaction, item ItemQuota) error {
	if transaction.Category != item.Category {
		return policyViolation(codeCategoryMismatch, "transaction category %q does not match quota %q", transaction.Category, item.Category)
	}
	if transaction.Quantity > item.Quantity {
		return policyViolation(codeQuotaExceeded, "quantity %d for %q exceeds remaining %d", transaction.Quantity, transaction.Category, item.Quantity)
	}
	return nil
}

func validateIdentifierInputs(transaction Transaction, policy Policy) error {
	declared := make(map[string]PolicyIdentifier, len(policy.Identifiers))
	for _, identifier := range policy.Identifiers {
		declared[identifier.Label] = identifier
	}
	captured := make(map[string]IdentifierInput, len(transaction.IdentifierInputs))
	for _, input := range transaction.IdentifierInputs {
		if _, exists := captured[input.Label]; exists {
			return policyViolation(codeDuplicateInput, "identifier %q captured more than once", input.Label)
		}
		identifier, ok := declared[input.Label]
		if !ok {
			return policyViolation(codeUnknownInput, "identifier %q is not declared by policy %q", input.Label, policy.Category)
		}
		if input.TextInputType != "" && identifier.TextInput.Type != "" && TextInputType(input.TextInputType) != identifier.TextInput.Type {
			return policyViolation(codeTypeMismatch, "identifier %q has text type %s, policy declares %s", input.Label, input.TextInputType, identifier.TextInput.Type)
		}
		if input.ScanButtonType != "" && identifier.ScanButton.Type != "" && ScanButtonType(input.ScanButtonType) != identifier.ScanButton.Type {
			return policyViolation(codeTypeMismatch, "identifier %q has scan type %s, policy declares %s", input.Label, input.ScanButtonType, identifier.ScanButton.Type)
		}
		if err := ValidateIdentifierInput(withDeclaredTypes(input, identifier)); err != nil {
			return err
		}
		captured[input.Label] = input
	}
	for _, identifier := range policy.Identifiers {
		if !identifier.Required() {
			continue
		}
		input, ok := captured[identifier.Label]
		if !ok || strings.TrimSpace(input.Value) == "" {
			return policyViolation(codeMissingInput, "identifier %q is required for %q", identifier.Label, policy.Category)
		}
	}
	return nil
}

func withDeclaredTypes(input IdentifierInput, identifier PolicyIdentifier) IdentifierInput {
	if input.TextInputType == "" && identifier.TextInput.Visible && identifier.TextInput.Type != "" {
		input.TextInputType = string(identifier.TextInput.Type)
	}
	if input.ScanButtonType == "" && identifier.ScanButton.Visible && identifier.ScanButton.Type != "" {
		input.ScanButtonType = string(identifier.ScanButton.Type)
	}
	return input
}

func policyViolation(code string, format string, args ...any) error {
	return WrapError(operationValidate, subjectTransaction, code, fmt.Errorf("%w: "+format, append([]any{ErrPolicyViolation}, args...)...))
}

// GroupTransactions splits transactions into submission batches: a single
// batch when grouping is enabled, one batch per transaction otherwise.
func GroupTransactions(transactions []Transaction, grouping bool) [][]Transaction {
	if len(transactions) == 0 {
		return nil
	}
	if grouping {
		return [][]Transaction{append([]Transaction(nil), transactions...)}
	}
	batches := make([][]Transaction, 0, len(transactions))
	for _, transaction := range transactions {
		batches = append(batches, []Transaction{transaction})
	}
	return batches
}
