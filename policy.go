package capshield

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/fee"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// Variant selects the entry points and role universe of a ledger.
type Variant string

const (
	// VariantReward is the fee-free ledger minted through RewardMint.
	VariantReward Variant = "reward"

	// VariantAllocation is the fee-bearing ledger with team, treasury and
	// DAO allocations and revenue-backed mints.
	VariantAllocation Variant = "allocation"
)

// ParseVariant resolves a variant by name.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantReward, VariantAllocation:
		return Variant(s), nil
	}
	return "", ValidationError{Field: "variant", Message: fmt.Sprintf("unknown variant %q", s)}
}

// Default caps, in whole tokens.
const (
	DefaultRewardMaxSupply     = 100_000_000
	DefaultAllocationMaxSupply = 1_000_000_000
)

// Policy parameterises the ledger core. It is fixed at construction.
type Policy struct {
	Name      string
	Symbol    string
	Variant   Variant
	MaxSupply *uint256.Int
	// Schema defaults to the variant's role universe.
	Schema role.Schema
	// Fee defaults to fee.None for the reward variant and fee.DefaultRate
	// for the allocation variant.
	Fee fee.Policy
}

// RewardPolicy returns the default reward ledger policy.
func RewardPolicy() Policy {
	return Policy{
		Name:      "CapShield Reward",
		Symbol:    "CSR",
		Variant:   VariantReward,
		MaxSupply: types.Units(DefaultRewardMaxSupply),
		Schema:    role.RewardSchema(),
		Fee:       fee.None{},
	}
}

// AllocationPolicy returns the default allocation ledger policy.
func AllocationPolicy() Policy {
	return Policy{
		Name:      "CapShield",
		Symbol:    "CAPS",
		Variant:   VariantAllocation,
		MaxSupply: types.Units(DefaultAllocationMaxSupply),
		Schema:    role.AllocationSchema(),
		Fee:       fee.DefaultRate,
	}
}

// withDefaults fills unset fields and validates p.
func (p Policy) withDefaults() (Policy, error) {
	var errs MultiError
	switch p.Variant {
	case VariantReward:
		if p.Schema.Allowed().IsEmpty() {
			p.Schema = role.RewardSchema()
		}
		if p.Fee == nil {
			p.Fee = fee.None{}
		}
	case VariantAllocation:
		if p.Schema.Allowed().IsEmpty() {
			p.Schema = role.AllocationSchema()
		}
		if p.Fee == nil {
			p.Fee = fee.DefaultRate
		}
	default:
		errs.Add(ValidationError{Field: "variant", Message: fmt.Sprintf("unknown variant %q", p.Variant)})
	}
	if p.Name == "" {
		errs.Add(ValidationError{Field: "name", Message: "must not be empty"})
	}
	if p.Symbol == "" {
		errs.Add(ValidationError{Field: "symbol", Message: "must not be empty"})
	}
	if types.IsZero(p.MaxSupply) {
		errs.Add(ValidationError{Field: "max_supply", Message: "must be positive"})
	}
	if r, ok := p.Fee.(fee.Rate); ok {
		if _, err := fee.NewRate(r.BurnBps, r.TreasuryBps); err != nil {
			errs.Add(err)
		}
		if p.Variant == VariantReward && r.TreasuryBps > 0 {
			errs.Add(ValidationError{Field: "fee", Message: "reward ledger has no treasury to receive fees"})
		}
	}
	if errs.HasErrors() {
		return Policy{}, errs
	}
	return p, nil
}

// rate returns the fee split in basis points, zero for non-percentage
// policies.
func (p Policy) rate() fee.Rate {
	if r, ok := p.Fee.(fee.Rate); ok {
		return r
	}
	return fee.Rate{}
}
