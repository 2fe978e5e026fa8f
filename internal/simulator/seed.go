package simulator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

// Seed is the initial simulator state.
type Seed struct {
	Env    supply.EnvVersion `yaml:"env"`
	Keys   []string          `yaml:"keys"`
	Quotas SeedQuotas        `yaml:"quotas"`
}

// SeedQuotas holds the allowance handed to identities on first lookup.
// Identities listed explicitly start from their own allowance.
type SeedQuotas struct {
	Default    []SeedItem            `yaml:"default"`
	Identities map[string][]SeedItem `yaml:"identities"`
}

// SeedItem is the starting quantity of one category.
type SeedItem struct {
	Category string `yaml:"category"`
	Quantity int64  `yaml:"quantity"`
}

// LoadSeed reads a YAML seed file. An empty path yields DefaultSeed.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	if err := seed.validate(); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

func (seed Seed) validate() error {
	categories := make(map[string]struct{}, len(seed.Env.Policies))
	for _, policy := range seed.Env.Policies {
		if policy.Category == "" {
			return fmt.Errorf("seed policy %q has no category", policy.Name)
		}
		if _, exists := categories[policy.Category]; exists {
			return fmt.Errorf("seed policy category %q is duplicated", policy.Category)
		}
		categories[policy.Category] = struct{}{}
	}
	check := func(owner string, items []SeedItem) error {
		for _, item := range items {
			if _, ok := categories[item.Category]; !ok {
				return fmt.Errorf("seed quota %s references unknown category %q", owner, item.Category)
			}
			if item.Quantity < 0 {
				return fmt.Errorf("seed quota %s has negative quantity for %q", owner, item.Category)
			}
		}
		return nil
	}
	if err := check("default", seed.Quotas.Default); err != nil {
		return err
	}
	for identity, items := range seed.Quotas.Identities {
		if err := check(identity, items); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSeed returns a small catalogue with OTP login and grouping enabled.
func DefaultSeed() Seed {
	step := int64(1)
	return Seed{
		Env: supply.EnvVersion{
			Policies: []supply.Policy{
				{
					Category: "meat",
					Name:     "Fresh Meat",
					Order:    1,
					Quantity: supply.PolicyQuantity{Period: 604800, Limit: 5, Step: &step, Unit: &supply.PolicyUnit{Type: supply.UnitTypePostfix, Label: "kg"}},
					Type:     supply.PolicyTypePurchase,
				},
				{
					Category: "masks",
					Name:     "Face Masks",
					Order:    2,
					Quantity: supply.PolicyQuantity{Period: 604800, Limit: 5},
					Type:     supply.PolicyTypeRedeem,
					Identifiers: []supply.PolicyIdentifier{
						{
							Label:      "Serial",
							TextInput:  supply.TextInput{Visible: true, Type: supply.TextInputString},
							ScanButton: supply.ScanButton{Visible: true, Type: supply.ScanButtonBarcode, Text: "Scan"},
						},
					},
				},
			},
			Features: supply.Features{RequireOTP: true, TransactionGrouping: true},
		},
		Quotas: SeedQuotas{
			Default: []SeedItem{{Category: "meat", Quantity: 5}, {Category: "masks", Quantity: 5}},
		},
	}
}
