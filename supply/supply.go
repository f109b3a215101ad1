// Package supply enforces the immutable mint cap of a ledger.
//
// Two counters are tracked. totalMinted only ever grows and is bounded by
// the cap; totalSupply follows circulation and shrinks on every burn.
// Burned capacity is never reclaimed.
package supply

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/account"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// ErrMaxSupplyExceeded is returned when a mint would push totalMinted past
// the cap.
var ErrMaxSupplyExceeded = errors.New("capshield: max supply exceeded")

// Policy owns the supply counters and mediates every mint and burn against
// the account store.
type Policy struct {
	cap         *uint256.Int
	totalMinted *uint256.Int
	totalSupply *uint256.Int
	accounts    *account.Store
}

// NewPolicy creates a supply policy with the given cap. The cap must be
// non-zero.
func NewPolicy(maxSupply *uint256.Int, accounts *account.Store) (*Policy, error) {
	if types.IsZero(maxSupply) {
		return nil, fmt.Errorf("%w: max supply must be positive", types.ErrInvalidAmount)
	}
	return &Policy{
		cap:         types.Clone(maxSupply),
		totalMinted: new(uint256.Int),
		totalSupply: new(uint256.Int),
		accounts:    accounts,
	}, nil
}

// MaxSupply returns the cap.
func (p *Policy) MaxSupply() *uint256.Int { return types.Clone(p.cap) }

// TotalMinted returns the cumulative amount ever minted.
func (p *Policy) TotalMinted() *uint256.Int { return types.Clone(p.totalMinted) }

// TotalSupply returns the circulating amount.
func (p *Policy) TotalSupply() *uint256.Int { return types.Clone(p.totalSupply) }

// RemainingCapacity returns cap - totalMinted, saturating at zero.
func (p *Policy) RemainingCapacity() *uint256.Int {
	if p.totalMinted.Gt(p.cap) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(p.cap, p.totalMinted)
}

// CanMint reports whether amount fits in the remaining capacity.
func (p *Policy) CanMint(amount *uint256.Int) bool {
	if types.IsZero(amount) {
		return false
	}
	return !amount.Gt(p.RemainingCapacity())
}

// TryMint credits amount to to and advances both counters. On any failure
// nothing is changed.
func (p *Policy) TryMint(j *journal.Journal, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return types.ErrZeroAddress
	}
	if types.IsZero(amount) {
		return types.ErrInvalidAmount
	}
	minted, overflow := new(uint256.Int).AddOverflow(p.totalMinted, amount)
	if overflow || minted.Gt(p.cap) {
		return ErrMaxSupplyExceeded
	}
	// totalSupply <= totalMinted so it cannot overflow here.
	supplied := new(uint256.Int).Add(p.totalSupply, amount)

	if err := p.accounts.Credit(j, to, amount); err != nil {
		return err
	}
	p.setCounters(j, minted, supplied)
	return nil
}

// Burn debits amount from from and shrinks totalSupply. totalMinted is
// never touched.
func (p *Policy) Burn(j *journal.Journal, from common.Address, amount *uint256.Int) error {
	if types.IsZero(amount) {
		return types.ErrInvalidAmount
	}
	if err := p.accounts.Debit(j, from, amount); err != nil {
		return err
	}
	p.setCounters(j, p.totalMinted, new(uint256.Int).Sub(p.totalSupply, amount))
	return nil
}

// BurnFee removes a fee component from from. Unlike Burn a zero amount is a
// no-op, since small transfers may floor their fee to zero.
func (p *Policy) BurnFee(j *journal.Journal, from common.Address, amount *uint256.Int) error {
	if types.IsZero(amount) {
		return nil
	}
	return p.Burn(j, from, amount)
}

func (p *Policy) setCounters(j *journal.Journal, minted, supplied *uint256.Int) {
	prevMinted, prevSupply := p.totalMinted, p.totalSupply
	p.totalMinted, p.totalSupply = minted, supplied
	j.Record(func() {
		p.totalMinted, p.totalSupply = prevMinted, prevSupply
	})
}

// Load restores the counters from a checkpoint. It fails if the counters
// break the cap or disagree with the account store.
func (p *Policy) Load(totalMinted, totalSupply *uint256.Int) error {
	if totalMinted.Gt(p.cap) {
		return fmt.Errorf("%w: checkpoint total minted %s above cap %s", ErrMaxSupplyExceeded, totalMinted.Dec(), p.cap.Dec())
	}
	if totalSupply.Gt(totalMinted) {
		return fmt.Errorf("%w: checkpoint total supply above total minted", types.ErrInvalidAmount)
	}
	if !p.accounts.Sum().Eq(totalSupply) {
		return fmt.Errorf("%w: checkpoint balances do not sum to total supply", types.ErrInvalidAmount)
	}
	p.totalMinted = types.Clone(totalMinted)
	p.totalSupply = types.Clone(totalSupply)
	return nil
}
