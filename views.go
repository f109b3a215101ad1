package capshield

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// Decimals is the number of fractional digits of every ledger amount.
const Decimals = types.Decimals

// Name returns the token name.
func (l *Ledger) Name() string { return l.policy.Name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.policy.Symbol }

// Decimals returns the number of fractional digits.
func (l *Ledger) Decimals() uint8 { return Decimals }

// Variant returns the ledger variant.
func (l *Ledger) Variant() Variant { return l.policy.Variant }

// TokenID returns the ledger identifier.
func (l *Ledger) TokenID() TokenID { return l.tokenID }

// FeeRate returns the transfer fee split in basis points. Both are zero on a
// fee-free ledger.
func (l *Ledger) FeeRate() (burnBps, treasuryBps uint64) {
	r := l.policy.rate()
	return r.BurnBps, r.TreasuryBps
}

// Seq returns the sequence number of the last committed event.
func (l *Ledger) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// ──────────────────────────────────────────────────
// Supply
// ──────────────────────────────────────────────────

// MaxSupply returns the hard cap on cumulative minting.
func (l *Ledger) MaxSupply() *uint256.Int { return types.Clone(l.policy.MaxSupply) }

// TotalSupply returns the amount in circulation.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply.TotalSupply()
}

// TotalMinted returns the cumulative amount ever minted. Burns do not lower it.
func (l *Ledger) TotalMinted() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply.TotalMinted()
}

// RemainingMintableSupply returns MaxSupply minus TotalMinted.
func (l *Ledger) RemainingMintableSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply.RemainingCapacity()
}

// CanMint reports whether amount fits under the cap. It does not check
// roles or pause state.
func (l *Ledger) CanMint(amount *uint256.Int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply.CanMint(amount)
}

// MintAllocation returns how much has been minted through r. Revenue mints
// count toward TreasuryMinter.
func (l *Ledger) MintAllocation(r role.Role) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return types.Clone(l.allocations[r])
}

// MintAllocations returns the per-role mint totals.
func (l *Ledger) MintAllocations() map[role.Role]*uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[role.Role]*uint256.Int, len(l.allocations))
	for r, v := range l.allocations {
		out[r] = types.Clone(v)
	}
	return out
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

// BalanceOf returns the balance of who.
func (l *Ledger) BalanceOf(who common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts.BalanceOf(who)
}

// Allowance returns how much spender may still move on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts.Allowance(owner, spender)
}

// Holders returns every address with a non-zero balance.
func (l *Ledger) Holders() []common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts.Holders()
}

// ──────────────────────────────────────────────────
// Access control
// ──────────────────────────────────────────────────

// Owner returns the current owner.
func (l *Ledger) Owner() common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner.Owner()
}

// IsOwnerMultisig re-runs the multi-party check against the current owner.
// The verifier runs outside the ledger lock.
func (l *Ledger) IsOwnerMultisig(ctx context.Context) bool {
	l.mu.Lock()
	owner, verifier := l.owner.Owner(), l.owner.Verifier()
	l.mu.Unlock()
	return verifier.IsMultiParty(ctx, owner)
}

// OwnershipHandoverExpiresAt returns when candidate's pending request
// expires, or the zero time if there is none.
func (l *Ledger) OwnershipHandoverExpiresAt(candidate common.Address) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner.HandoverExpiresAt(candidate)
}

// HasRole reports whether who holds r.
func (l *Ledger) HasRole(who common.Address, r role.Role) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roles.HasRole(who, r)
}

// HasAnyRole reports whether who holds at least one role in s.
func (l *Ledger) HasAnyRole(who common.Address, s role.Set) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roles.HasAnyRole(who, s)
}

// RolesOf returns every role who holds.
func (l *Ledger) RolesOf(who common.Address) role.Set {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roles.RolesOf(who)
}

// RoleHolders returns the addresses holding r, sorted.
func (l *Ledger) RoleHolders(r role.Role) []common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roles.HoldersOf(r)
}

// Paused reports whether transfers and mints are halted.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gate.Paused()
}

// ──────────────────────────────────────────────────
// Fees
// ──────────────────────────────────────────────────

// IsExempt reports whether transfers touching who skip the fee.
func (l *Ledger) IsExempt(who common.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fees.Exemptions().IsExempt(who)
}

// Exemptions returns every fee-exempt address, sorted.
func (l *Ledger) Exemptions() []common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fees.Exemptions().List()
}

// Treasury returns the fee and revenue-mint recipient. It is the zero
// address on a reward ledger.
func (l *Ledger) Treasury() common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.treasury
}

// Dao returns the DAO address. It is the zero address on a reward ledger.
func (l *Ledger) Dao() common.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dao
}

// ──────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────

// Events lists committed events from the store.
func (l *Ledger) Events(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return l.store.ListEvents(ctx, l.tokenID, opts)
}
