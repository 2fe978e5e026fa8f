package supply

import (
	"fmt"
	"time"
)

// PolicyType distinguishes paid purchases from free redemptions.
type PolicyType string

const (
	PolicyTypePurchase PolicyType = "PURCHASE"
	PolicyTypeRedeem   PolicyType = "REDEEM"
)

// UnitType places the unit label before or after the quantity.
type UnitType string

const (
	UnitTypePrefix  UnitType = "PREFIX"
	UnitTypePostfix UnitType = "POSTFIX"
)

// TextInputType enumerates typed text identifier inputs.
type TextInputType string

const (
	TextInputString      TextInputType = "STRING"
	TextInputNumber      TextInputType = "NUMBER"
	TextInputPhoneNumber TextInputType = "PHONE_NUMBER"
)

// ScanButtonType enumerates scanned identifier inputs.
type ScanButtonType string

const (
	ScanButtonQR      ScanButtonType = "QR"
	ScanButtonBarcode ScanButtonType = "BARCODE"
)

// PolicyUnit is the display unit of a policy quantity.
type PolicyUnit struct {
	Type  UnitType `json:"type" yaml:"type"`
	Label string   `json:"label" yaml:"label"`
}

// PolicyQuantity bounds how much of a category may be taken per period.
type PolicyQuantity struct {
	Period  int64       `json:"period" yaml:"period"`
	Limit   int64       `json:"limit" yaml:"limit"`
	Default *int64      `json:"default,omitempty" yaml:"default,omitempty"`
	Step    *int64      `json:"step,omitempty" yaml:"step,omitempty"`
	Unit    *PolicyUnit `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// TextInput describes the typed-entry capability of an identifier.
type TextInput struct {
	Visible  bool          `json:"visible" yaml:"visible"`
	Disabled bool          `json:"disabled" yaml:"disabled"`
	Type     TextInputType `json:"type,omitempty" yaml:"type,omitempty"`
}

// ScanButton describes the scanning capability of an identifier.
type ScanButton struct {
	Visible  bool           `json:"visible" yaml:"visible"`
	Disabled bool           `json:"disabled" yaml:"disabled"`
	Type     ScanButtonType `json:"type,omitempty" yaml:"type,omitempty"`
	Text     string         `json:"text,omitempty" yaml:"text,omitempty"`
}

// PolicyIdentifier declares one identifier a redemption must capture.
type PolicyIdentifier struct {
	Label      string     `json:"label" yaml:"label"`
	TextInput  TextInput  `json:"textInput" yaml:"textInput"`
	ScanButton ScanButton `json:"scanButton" yaml:"scanButton"`
}

// Required reports whether the user is asked to supply this identifier.
func (identifier PolicyIdentifier) Required() bool {
	return identifier.TextInput.Visible || identifier.ScanButton.Visible
}

// Policy is a server-defined redemption rule for one category.
type Policy struct {
	Category    string             `json:"category" yaml:"category"`
	Name        string             `json:"name" yaml:"name"`
	Order       int64              `json:"order" yaml:"order"`
	Quantity    PolicyQuantity     `json:"quantity" yaml:"quantity"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Image       string             `json:"image,omitempty" yaml:"image,omitempty"`
	Identifiers []PolicyIdentifier `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
	Type        PolicyType         `json:"type,omitempty" yaml:"type,omitempty"`
}

// Features are server-pushed feature flags.
type Features struct {
	RequireOTP          bool `json:"REQUIRE_OTP" yaml:"REQUIRE_OTP"`
	TransactionGrouping bool `json:"TRANSACTION_GROUPING" yaml:"TRANSACTION_GROUPING"`
}

// EnvVersion is the configuration snapshot fetched once per app session.
type EnvVersion struct {
	Policies []Policy `json:"policies" yaml:"policies"`
	Features Features `json:"features" yaml:"features"`
}

// IdentifierInput is a captured value for one policy identifier.
type IdentifierInput struct {
	Label          string `json:"label"`
	Value          string `json:"value"`
	TextInputType  string `json:"textInputType,omitempty"`
	ScanButtonType string `json:"scanButtonType,omitempty"`
}

// ItemQuota is the remaining allowance for one category.
type ItemQuota struct {
	Category         string            `json:"category"`
	Quantity         int64             `json:"quantity"`
	TransactionTime  *EpochMillis      `json:"transactionTime,omitempty"`
	IdentifierInputs []IdentifierInput `json:"identifierInputs,omitempty"`
}

// Quota aggregates item quotas, one per category.
type Quota struct {
	RemainingQuota []ItemQuota `json:"remainingQuota"`
}

// Validate checks category uniqueness and non-negative quantities.
func (quota Quota) Validate() error {
	seen := make(map[string]struct{}, len(quota.RemainingQuota))
	for _, item := range quota.RemainingQuota {
		if _, exists := seen[item.Category]; exists {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidQuota, item.Category)
		}
		seen[item.Category] = struct{}{}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: negative quantity for %q", ErrInvalidQuota, item.Category)
		}
	}
	return nil
}

// Find returns the item quota for category.
func (quota Quota) Find(category string) (ItemQuota, bool) {
	for _, item := range quota.RemainingQuota {
		if item.Category == category {
			return item, true
		}
	}
	return ItemQuota{}, false
}

// Transaction is a pending redemption for one category.
type Transaction struct {
	Category         string            `json:"category"`
	Quantity         int64             `json:"quantity"`
	IdentifierInputs []IdentifierInput `json:"identifierInputs,omitempty"`
}

// TransactionGroup records transactions confirmed under one timestamp.
type TransactionGroup struct {
	Transaction []Transaction `json:"transaction"`
	Timestamp   EpochMillis   `json:"timestamp"`
}

// PostTransactionResult is the server confirmation of a submission.
type PostTransactionResult struct {
	Transactions []TransactionGroup `json:"transactions"`
}

// SessionCredentials is the bearer credential issued after OTP validation.
type SessionCredentials struct {
	SessionToken string      `json:"sessionToken"`
	TTL          EpochMillis `json:"ttl"`
}

// Expired reports whether the credential is no longer valid at now.
func (credentials SessionCredentials) Expired(now time.Time) bool {
	return !now.Before(credentials.TTL.Time)
}

// OTPRequestResult is the response to an OTP request. Warning is the
// server-supplied message shown before the next resend.
type OTPRequestResult struct {
	Status  string `json:"status,omitempty"`
	Warning string `json:"message,omitempty"`
}

// QuotaHistoryEntry is one past redemption in the summary view.
type QuotaHistoryEntry struct {
	Quantity        int64       `json:"quantity"`
	TransactionTime EpochMillis `json:"transactionTime"`
}

// QuotaSummary is the aggregate quota view: a single remaining count plus
// the redemption history.
type QuotaSummary struct {
	RemainingQuota int64               `json:"remainingQuota"`
	History        []QuotaHistoryEntry `json:"history"`
}
