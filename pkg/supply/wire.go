package supply

// Wire shapes mirror the JSON payloads exchanged with the backend. Required
// scalars are pointers so that an absent field fails validation instead of
// decoding to a zero value.

type wireUnit struct {
	Type  *string `json:"type" validate:"required,oneof=PREFIX POSTFIX"`
	Label *string `json:"label" validate:"required"`
}

type wirePolicyQuantity struct {
	Period  *int64    `json:"period" validate:"required"`
	Limit   *int64    `json:"limit" validate:"required"`
	Default *int64    `json:"default"`
	Step    *int64    `json:"step"`
	Unit    *wireUnit `json:"unit"`
}

type wireTextInput struct {
	Visible  *bool   `json:"visible" validate:"required"`
	Disabled *bool   `json:"disabled" validate:"required"`
	Type     *string `json:"type" validate:"omitempty,oneof=STRING NUMBER PHONE_NUMBER"`
}

type wireScanButton struct {
	Visible  *bool   `json:"visible" validate:"required"`
	Disabled *bool   `json:"disabled" validate:"required"`
	Type     *string `json:"type" validate:"omitempty,oneof=QR BARCODE"`
	Text     *string `json:"text"`
}

type wirePolicyIdentifier struct {
	Label      *string         `json:"label" validate:"required"`
	TextInput  *wireTextInput  `json:"textInput" validate:"required"`
	ScanButton *wireScanButton `json:"scanButton" validate:"required"`
}

type wirePolicy struct {
	Category    *string                `json:"category" validate:"required"`
	Name        *string                `json:"name" validate:"required"`
	Order       *int64                 `json:"order" validate:"required"`
	Quantity    *wirePolicyQuantity    `json:"quantity" validate:"required"`
	Description *string                `json:"description"`
	Image       *string                `json:"image"`
	Identifiers []wirePolicyIdentifier `json:"identifiers" validate:"omitempty,dive"`
	Type        *string                `json:"type" validate:"omitempty,oneof=PURCHASE REDEEM"`
}

type wireFeatures struct {
	RequireOTP          *bool `json:"REQUIRE_OTP" validate:"required"`
	TransactionGrouping *bool `json:"TRANSACTION_GROUPING" validate:"required"`
}

type wireEnvVersion struct {
	Policies []wirePolicy `json:"policies" validate:"required,dive"`
	Features *wireFeatures `json:"features" validate:"required"`
}

type wireIdentifierInput struct {
	Label          *string `json:"label" validate:"required"`
	Value          *string `json:"value" validate:"required"`
	TextInputType  *string `json:"textInputType"`
	ScanButtonType *string `json:"scanButtonType"`
}

type wireItemQuota struct {
	Category         *string               `json:"category" validate:"required"`
	Quantity         *int64                `json:"quantity" validate:"required"`
	TransactionTime  *EpochMillis          `json:"transactionTime"`
	IdentifierInputs []wireIdentifierInput `json:"identifierInputs" validate:"omitempty,dive"`
}

type wireQuota struct {
	RemainingQuota []wireItemQuota `json:"remainingQuota" validate:"required,dive"`
}

type wireTransaction struct {
	Category         *string               `json:"category" validate:"required"`
	Quantity         *int64                `json:"quantity" validate:"required"`
	IdentifierInputs []wireIdentifierInput `json:"identifierInputs" validate:"omitempty,dive"`
}

type wireTransactionGroup struct {
	Transaction []wireTransaction `json:"transaction" validate:"required,dive"`
	Timestamp   *EpochMillis      `json:"timestamp" validate:"required"`
}

type wirePostTransactionResult struct {
	Transactions []wireTransactionGroup `json:"transactions" validate:"required,dive"`
}

type wireSessionCredentials struct {
	SessionToken *string      `json:"sessionToken" validate:"required"`
	TTL          *EpochMillis `json:"ttl" validate:"required"`
}

type wireOTPRequestResult struct {
	Status  *string `json:"status"`
	Message *string `json:"message"`
}

type wireQuotaHistoryEntry struct {
	Quantity        *int64       `json:"quantity" validate:"required"`
	TransactionTime *EpochMillis `json:"transactionTime" validate:"required"`
}

type wireQuotaSummary struct {
	RemainingQuota *int64                  `json:"remainingQuota" validate:"required"`
	History        []wireQuotaHistoryEntry `json:"history" validate:"required,dive"`
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func (wire wirePolicy) toPolicy() Policy {
	policy := Policy{
		Category:    *wire.Category,
		Name:        *wire.Name,
		Order:       *wire.Order,
		Quantity:    wire.Quantity.toPolicyQuantity(),
		Description: stringValue(wire.Description),
		Image:       stringValue(wire.Image),
		Type:        PolicyType(stringValue(wire.Type)),
	}
	if len(wire.Identifiers) > 0 {
		policy.Identifiers = make([]PolicyIdentifier, 0, len(wire.Identifiers))
		for _, identifier := range wire.Identifiers {
			policy.Identifiers = append(policy.Identifiers, identifier.toPolicyIdentifier())
		}
	}
	return policy
}

func (wire wirePolicyQuantity) toPolicyQuantity() PolicyQuantity {
	quantity := PolicyQuantity{
		Period:  *wire.Period,
		Limit:   *wire.Limit,
		Default: wire.Default,
		Step:    wire.Step,
	}
	if wire.Unit != nil {
		quantity.Unit = &PolicyUnit{Type: UnitType(*wire.Unit.Type), Label: *wire.Unit.Label}
	}
	return quantity
}

func (wire wirePolicyIdentifier) toPolicyIdentifier() PolicyIdentifier {
	return PolicyIdentifier{
		Label: *wire.Label,
		TextInput: TextInput{
			Visible:  *wire.TextInput.Visible,
			Disabled: *wire.TextInput.Disabled,
			Type:     TextInputType(stringValue(wire.TextInput.Type)),
		},
		ScanButton: ScanButton{
			Visible:  *wire.ScanButton.Visible,
			Disabled: *wire.ScanButton.Disabled,
			Type:     ScanButtonType(stringValue(wire.ScanButton.Type)),
			Text:     stringValue(wire.ScanButton.Text),
		},
	}
}

func toIdentifierInputs(wire []wireIdentifierInput) []IdentifierInput {
	if len(wire) == 0 {
		return nil
	}
	inputs := make([]IdentifierInput, 0, len(wire))
	for _, input := range wire {
		inputs = append(inputs, IdentifierInput{
			Label:          *input.Label,
			Value:          *input.Value,
			TextInputType:  stringValue(input.TextInputType),
			ScanButtonType: stringValue(input.ScanButtonType),
		})
	}
	return inputs
}

func (wire wireTransaction) toTransaction() Transaction {
	return Transaction{
		Category:         *wire.Category,
		Quantity:         *wire.Quantity,
		IdentifierInputs: toIdentifierInputs(wire.IdentifierInputs),
	}
}
