package supply

import (
	"errors"
	"testing"
)

const (
	categoryMeat        = "meat"
	categoryMeatName    = "Fresh Meat"
	categoryMasks       = "masks"
	categoryMasksName   = "Face Masks"
	identifierSerial    = "Serial"
	identifierContact   = "Contact"
	validSerial         = "SN123456"
	validContact        = "+6591234567"
	policyLimit         = 5
	policyPeriodSeconds = 604800
)

func maskPolicy() Policy {
	return Policy{
		Category: categoryMasks,
		Name:     categoryMasksName,
		Order:    2,
		Quantity: PolicyQuantity{Period: policyPeriodSeconds, Limit: policyLimit},
		Type:     PolicyTypeRedeem,
		Identifiers: []PolicyIdentifier{
			{
				Label:      identifierSerial,
				TextInput:  TextInput{Visible: true, Type: TextInputString},
				ScanButton: ScanButton{Visible: true, Type: ScanButtonBarcode, Text: "Scan"},
			},
			{
				Label:     identifierContact,
				TextInput: TextInput{Visible: true, Type: TextInputPhoneNumber},
			},
		},
	}
}

func meatPolicy() Policy {
	return Policy{
		Category: categoryMeat,
		Name:     categoryMeatName,
		Order:    1,
		Quantity: PolicyQuantity{Period: policyPeriodSeconds, Limit: policyLimit},
		Type:     PolicyTypePurchase,
	}
}

func TestResolveCategoryDisplayName(test *testing.T) {
	test.Parallel()
	policies := []Policy{maskPolicy(), meatPolicy()}
	testCases := []struct {
		name     string
		category string
		policies []Policy
		expected string
	}{
		{name: "matching policy", category: categoryMeat, policies: policies, expected: categoryMeatName},
		{name: "no matching policy", category: categoryMeat, policies: []Policy{maskPolicy()}, expected: categoryMeat},
		{name: "no policies", category: categoryMeat, policies: nil, expected: categoryMeat},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if got := ResolveCategoryDisplayName(testCase.category, testCase.policies); got != testCase.expected {
				test.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestSortPoliciesByOrder(test *testing.T) {
	test.Parallel()
	input := []Policy{maskPolicy(), meatPolicy()}
	sorted := SortPolicies(input)
	if sorted[0].Category != categoryMeat || sorted[1].Category != categoryMasks {
		test.Fatalf("unexpected order: %s, %s", sorted[0].Category, sorted[1].Category)
	}
	if input[0].Category != categoryMasks {
		test.Fatalf("expected input slice to be left unchanged")
	}
}

func TestValidateTransactionAgainstPolicyAccepts(test *testing.T) {
	test.Parallel()
	transaction := Transaction{
		Category: categoryMasks,
		Quantity: policyLimit,
		IdentifierInputs: []IdentifierInput{
			{Label: identifierSerial, Value: validSerial, ScanButtonType: string(ScanButtonBarcode)},
			{Label: identifierContact, Value: validContact},
		},
	}
	if err := ValidateTransactionAgainstPolicy(transaction, maskPolicy()); err != nil {
		test.Fatalf("expected transaction to pass, got %v", err)
	}
}

func TestValidateTransactionAgainstPolicyRejects(test *testing.T) {
	test.Parallel()
	validInputs := []IdentifierInput{
		{Label: identifierSerial, Value: validSerial},
		{Label: identifierContact, Value: validContact},
	}
	testCases := []struct {
		name         string
		transaction  Transaction
		expectedCode string
		expectedErr  error
	}{
		{
			name:         "category mismatch",
			transaction:  Transaction{Category: categoryMeat, Quantity: 1, IdentifierInputs: validInputs},
			expectedCode: codeCategoryMismatch,
			expectedErr:  ErrPolicyViolation,
		},
		{
			name:         "zero quantity",
			transaction:  Transaction{Category: categoryMasks, Quantity: 0, IdentifierInputs: validInputs},
			expectedCode: codeQuantity,
			expectedErr:  ErrPolicyViolation,
		},
		{
			name:         "quantity above limit",
			transaction:  Transaction{Category: categoryMasks, Quantity: policyLimit + 1, IdentifierInputs: validInputs},
			expectedCode: codeLimitExceeded,
			expectedErr:  ErrPolicyViolation,
		},
		{
			name:         "missing required identifier",
			transaction:  Transaction{Category: categoryMasks, Quantity: 1, IdentifierInputs: validInputs[:1]},
			expectedCode: codeMissingInput,
			expectedErr:  ErrPolicyViolation,
		},
		{
			name: "unknown identifier",
			transaction: Transaction{Category: categoryMasks, Quantity: 1, IdentifierInputs: append([]IdentifierInput{
				{Label: "Colour", Value: "blue"},
			}, validInputs...)},
			expectedCode: codeUnknownInput,
			expectedErr:  ErrPolicyViolation,
		},
		{
			name: "duplicate identifier",
			transaction: Transaction{Category: categoryMasks, Quantity: 1, IdentifierInputs: append([]IdentifierInput{
				{Label: identifierSerial, Value: validSerial},
			}, validInputs...)},
			expectedCode: codeDuplicateInput,
			expectedErr:  ErrPolicyViolation,
		},
		{
			name: "mismatched declared type",
			transaction: Transaction{Category: categoryMasks, Quantity: 1, IdentifierInputs: []IdentifierInput{
				{Label: identifierSerial, Value: validSerial, ScanButtonType: string(ScanButtonQR)},
				{Label: identifierContact, Value: validContact},
			}},
			expectedCode: codeTypeMismatch,
			expectedErr:  ErrPolicyViolation,
		},
		{
			name: "malformed phone number",
			transaction: Transaction{Category: categoryMasks, Quantity: 1, IdentifierInputs: []IdentifierInput{
				{Label: identifierSerial, Value: validSerial},
				{Label: identifierContact, Value: "call me"},
			}},
			expectedCode: codeFormat,
			expectedErr:  ErrInputFormat,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			err := ValidateTransactionAgainstPolicy(testCase.transaction, maskPolicy())
			if !errors.Is(err, testCase.expectedErr) {
				test.Fatalf("expected %v, got %v", testCase.expectedErr, err)
			}
			if code := ErrorCode(err); code != testCase.expectedCode {
				test.Fatalf("expected code %q, got %q (%v)", testCase.expectedCode, code, err)
			}
		})
	}
}

func TestValidateTransactionWithoutIdentifiers(test *testing.T) {
	test.Parallel()
	if err := ValidateTransactionAgainstPolicy(Transaction{Category: categoryMeat, Quantity: 2}, meatPolicy()); err != nil {
		test.Fatalf("expected transaction to pass, got %v", err)
	}
}

func TestValidateTransactionAgainstQuota(test *testing.T) {
	test.Parallel()
	item := ItemQuota{Category: categoryMeat, Quantity: 3}
	if err := ValidateTransactionAgainstQuota(Transaction{Category: categoryMeat, Quantity: 3}, item); err != nil {
		test.Fatalf("expected transaction within quota, got %v", err)
	}
	err := ValidateTransactionAgainstQuota(Transaction{Category: categoryMeat, Quantity: 4}, item)
	if !errors.Is(err, ErrPolicyViolation) || ErrorCode(err) != codeQuotaExceeded {
		test.Fatalf("expected quota exceeded violation, got %v", err)
	}
}

func TestGroupTransactions(test *testing.T) {
	test.Parallel()
	transactions := []Transaction{
		{Category: categoryMeat, Quantity: 1},
		{Category: categoryMasks, Quantity: 2},
	}
	grouped := GroupTransactions(transactions, true)
	if len(grouped) != 1 || len(grouped[0]) != 2 {
		test.Fatalf("expected one batch of two, got %+v", grouped)
	}
	individual := GroupTransactions(transactions, false)
	if len(individual) != 2 || individual[1][0].Category != categoryMasks {
		test.Fatalf("expected one batch per transaction, got %+v", individual)
	}
	if GroupTransactions(nil, true) != nil {
		test.Fatalf("expected no batches for empty input")
	}
}

func TestQuotaValidate(test *testing.T) {
	test.Parallel()
	valid := Quota{RemainingQuota: []ItemQuota{{Category: categoryMeat, Quantity: 0}, {Category: categoryMasks, Quantity: 2}}}
	if err := valid.Validate(); err != nil {
		test.Fatalf("expected valid quota, got %v", err)
	}
	if item, ok := valid.Find(categoryMasks); !ok || item.Quantity != 2 {
		test.Fatalf("expected to find masks quota, got %+v %v", item, ok)
	}
	duplicate := Quota{RemainingQuota: []ItemQuota{{Category: categoryMeat}, {Category: categoryMeat}}}
	if err := duplicate.Validate(); !errors.Is(err, ErrInvalidQuota) {
		test.Fatalf("expected ErrInvalidQuota for duplicate, got %v", err)
	}
	negative := Quota{RemainingQuota: []ItemQuota{{Category: categoryMeat, Quantity: -1}}}
	if err := negative.Validate(); !errors.Is(err, ErrInvalidQuota) {
		test.Fatalf("expected ErrInvalidQuota for negative, got %v", err)
	}
}
