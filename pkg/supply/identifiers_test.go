package supply

import (
	"errors"
	"testing"
)

func TestValidateIdentifierInput(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		input   IdentifierInput
		wantErr bool
	}{
		{name: "untyped free text", input: IdentifierInput{Label: "Name", Value: "Tan"}},
		{name: "untyped blank", input: IdentifierInput{Label: "Name", Value: "  "}, wantErr: true},
		{name: "number", input: IdentifierInput{Label: "Count", Value: "42", TextInputType: string(TextInputNumber)}},
		{name: "number with letters", input: IdentifierInput{Label: "Count", Value: "4a", TextInputType: string(TextInputNumber)}, wantErr: true},
		{name: "phone with plus", input: IdentifierInput{Label: "Contact", Value: "+6591234567", TextInputType: string(TextInputPhoneNumber)}},
		{name: "phone with spaces", input: IdentifierInput{Label: "Contact", Value: "9123 4567", TextInputType: string(TextInputPhoneNumber)}, wantErr: true},
		{name: "qr code", input: IdentifierInput{Label: "Code", Value: "https://example.com/x y", ScanButtonType: string(ScanButtonQR)}},
		{name: "barcode with whitespace", input: IdentifierInput{Label: "Code", Value: "123 456", ScanButtonType: string(ScanButtonBarcode)}, wantErr: true},
		{name: "either declared type passes", input: IdentifierInput{Label: "Code", Value: "ABC", TextInputType: string(TextInputNumber), ScanButtonType: string(ScanButtonBarcode)}},
		{name: "unknown type", input: IdentifierInput{Label: "Code", Value: "ABC", TextInputType: "EMAIL"}, wantErr: true},
		{name: "empty label", input: IdentifierInput{Value: "ABC"}, wantErr: true},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			err := ValidateIdentifierInput(testCase.input)
			if testCase.wantErr {
				if !errors.Is(err, ErrInputFormat) {
					test.Fatalf("expected ErrInputFormat, got %v", err)
				}
				return
			}
			if err != nil {
				test.Fatalf("expected valid input, got %v", err)
			}
		})
	}
}

func TestFormatIdentifierInputs(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name     string
		inputs   []IdentifierInput
		expected string
	}{
		{name: "empty", inputs: nil, expected: ""},
		{name: "single", inputs: []IdentifierInput{{Label: "Serial", Value: "SN1"}}, expected: "Serial: SN1"},
		{
			name:     "multiple trimmed",
			inputs:   []IdentifierInput{{Label: " Serial ", Value: " SN1 "}, {Label: "Contact", Value: "+6591234567"}},
			expected: "Serial: SN1, Contact: +6591234567",
		},
		{name: "blank label", inputs: []IdentifierInput{{Label: " ", Value: "SN1"}}, expected: "SN1"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if got := FormatIdentifierInputs(testCase.inputs); got != testCase.expected {
				test.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}
