package supply

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	numberPattern      = regexp.MustCompile(`^\d+$`)
	phoneNumberPattern = regexp.MustCompile(`^\+?\d+$`)
)

// ValidateIdentifierInput checks that the value conforms to at least one of
// the input's declared types. An input with no declared type is STRING.
func ValidateIdentifierInput(input IdentifierInput) error {
	if strings.TrimSpace(input.Label) == "" {
		return identifierFormatError("identifier label is empty")
	}
	declared := 0
	var formatErr error
	if input.TextInputType != "" {
		declared++
		formatErr = validateTextValue(TextInputType(input.TextInputType), input.Value)
		if formatErr == nil {
			return nil
		}
	}
	if input.ScanButtonType != "" {
		declared++
		scanErr := validateScannedValue(ScanButtonType(input.ScanButtonType), input.Value)
		if scanErr == nil {
			return nil
		}
		if formatErr == nil {
			formatErr = scanErr
		}
	}
	if declared == 0 {
		return validateTextValue(TextInputString, input.Value)
	}
	return fmt.Errorf("%s: %w", input.Label, formatErr)
}

func validateTextValue(inputType TextInputType, value string) error {
	switch inputType {
	case TextInputString:
		if strings.TrimSpace(value) == "" {
			return identifierFormatError("value is empty")
		}
		return nil
	case TextInputNumber:
		if !numberPattern.MatchString(value) {
			return identifierFormatError("%q is not a number", value)
		}
		return nil
	case TextInputPhoneNumber:
		if !phoneNumberPattern.MatchString(value) {
			return identifierFormatError("%q is not a phone number", value)
		}
		return nil
	default:
		return identifierFormatError("unsupported text input type %q", inputType)
	}
}

func validateScannedValue(scanType ScanButtonType, value string) error {
	switch scanType {
	case ScanButtonQR:
		if strings.TrimSpace(value) == "" {
			return identifierFormatError("scanned code is empty")
		}
		return nil
	case ScanButtonBarcode:
		if value == "" || strings.IndexFunc(value, unicode.IsSpace) >= 0 {
			return identifierFormatError("%q is not a barcode", value)
		}
		return nil
	default:
		return identifierFormatError("unsupported scan button type %q", scanType)
	}
}

func identifierFormatError(format string, args ...any) error {
	return WrapError(operationValidate, subjectIdentifier, codeFormat, fmt.Errorf("%w: "+format, append([]any{ErrInputFormat}, args...)...))
}

// FormatIdentifierInputs renders inputs as "label: value" pairs for display.
func FormatIdentifierInputs(inputs []IdentifierInput) string {
	if len(inputs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(inputs))
	for _, input := range inputs {
		value := strings.TrimSpace(input.Value)
		label := strings.TrimSpace(input.Label)
		if label == "" {
			parts = append(parts, value)
			continue
		}
		parts = append(parts, label+identifierLabelSeparator+value)
	}
	return strings.Join(parts, identifierDisplaySeparator)
}
