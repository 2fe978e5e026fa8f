package clientapp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

// ParseItem reads category=quantity[:label=value...] into a transaction.
func ParseItem(raw string) (supply.Transaction, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	category, quantityText, ok := strings.Cut(parts[0], "=")
	category = strings.TrimSpace(category)
	if !ok || category == "" {
		return supply.Transaction{}, fmt.Errorf("%w: item %q must be category=quantity", supply.ErrInputFormat, raw)
	}
	quantity, err := strconv.ParseInt(strings.TrimSpace(quantityText), 10, 64)
	if err != nil {
		return supply.Transaction{}, fmt.Errorf("%w: item %q has a non-integer quantity", supply.ErrInputFormat, raw)
	}
	transaction := supply.Transaction{Category: category, Quantity: quantity}
	for _, part := range parts[1:] {
		label, value, ok := strings.Cut(part, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return supply.Transaction{}, fmt.Errorf("%w: identifier %q must be label=value", supply.ErrInputFormat, part)
		}
		transaction.IdentifierInputs = append(transaction.IdentifierInputs, supply.IdentifierInput{Label: label, Value: strings.TrimSpace(value)})
	}
	return transaction, nil
}

// ParseItems parses every raw item.
func ParseItems(raw []string) ([]supply.Transaction, error) {
	transactions := make([]supply.Transaction, 0, len(raw))
	for _, item := range raw {
		transaction, err := ParseItem(item)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}
