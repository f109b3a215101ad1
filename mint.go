package capshield

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// RewardMint mints amount to to on the reward ledger. Caller must hold
// RewardMinter. reason is recorded on the event.
func (l *Ledger) RewardMint(ctx context.Context, caller, to common.Address, amount *uint256.Int, reason string) error {
	return l.roleMint(ctx, caller, VariantReward, role.RewardMinter, event.KindRewardMint, to, amount,
		map[string]string{event.FieldReason: reason})
}

// TeamMint mints amount to to from the team allocation.
func (l *Ledger) TeamMint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return l.roleMint(ctx, caller, VariantAllocation, role.TeamMinter, event.KindTeamMint, to, amount, nil)
}

// TreasuryMint mints amount to to from the treasury allocation.
func (l *Ledger) TreasuryMint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return l.roleMint(ctx, caller, VariantAllocation, role.TreasuryMinter, event.KindTreasuryMint, to, amount, nil)
}

// DaoMint mints amount to to from the DAO allocation.
func (l *Ledger) DaoMint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return l.roleMint(ctx, caller, VariantAllocation, role.DaoMinter, event.KindDaoMint, to, amount, nil)
}

func (l *Ledger) roleMint(
	ctx context.Context,
	caller common.Address,
	variant Variant,
	r role.Role,
	kind event.Kind,
	to common.Address,
	amount *uint256.Int,
	fields map[string]string,
) error {
	return l.exec(ctx, string(kind), caller, func(c *call) error {
		if err := l.gate.Require(); err != nil {
			return err
		}
		if err := l.requireVariant(variant, string(kind)); err != nil {
			return err
		}
		if err := l.roles.RequireRole(caller, r); err != nil {
			return err
		}
		return l.mint(c, kind, r, to, amount, fields)
	})
}

// RevenueMint mints floor(revenue / marketValue) tokens to the treasury.
// Both inputs are 18-decimal fixed point, marketValue being the price of one
// whole token, so the quotient is itself an 18-decimal amount. Caller must
// be the owner or hold TreasuryMinter. The minted amount is returned.
func (l *Ledger) RevenueMint(ctx context.Context, caller common.Address, revenue, marketValue *uint256.Int) (*uint256.Int, error) {
	var minted *uint256.Int
	err := l.exec(ctx, string(event.KindRevenueMint), caller, func(c *call) error {
		if err := l.gate.Require(); err != nil {
			return err
		}
		if err := l.requireVariant(VariantAllocation, "revenue mint"); err != nil {
			return err
		}
		if !l.owner.IsOwner(caller) && !l.roles.HasRole(caller, role.TreasuryMinter) {
			return fmt.Errorf("%w: owner or %s required", ErrUnauthorized, role.TreasuryMinter)
		}
		if types.IsZero(revenue) {
			return ErrInvalidRevenue
		}
		if types.IsZero(marketValue) {
			return ErrInvalidMarketValue
		}
		tokens, overflow := new(uint256.Int).MulDivOverflow(revenue, types.Unit(), marketValue)
		if overflow {
			return fmt.Errorf("%w: revenue mint overflows", ErrInvalidAmount)
		}
		if tokens.IsZero() {
			return fmt.Errorf("%w: revenue below market value", ErrInvalidAmount)
		}
		fields := map[string]string{
			event.FieldRevenue:     revenue.Dec(),
			event.FieldMarketValue: marketValue.Dec(),
			event.FieldMinted:      tokens.Dec(),
		}
		if err := l.mint(c, event.KindRevenueMint, role.TreasuryMinter, l.treasury, tokens, fields); err != nil {
			return err
		}
		minted = tokens
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// mint validates and applies a mint inside a call, then records the
// allocation stat and the event.
func (l *Ledger) mint(c *call, kind event.Kind, r role.Role, to common.Address, amount *uint256.Int, fields map[string]string) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if types.IsZero(amount) {
		return ErrInvalidAmount
	}
	if err := l.supply.TryMint(c.j, to, amount); err != nil {
		return err
	}
	if l.policy.Variant == VariantAllocation {
		l.addAllocation(c, r, amount)
	}

	remaining := l.supply.RemainingCapacity()
	if fields == nil {
		fields = make(map[string]string, 1)
	}
	fields[event.FieldRemaining] = remaining.Dec()
	c.emit(kind, common.Address{}, to, amount, fields)
	c.exhausted = remaining.IsZero()
	return nil
}

// addAllocation bumps the per-role mint total. It cannot overflow since
// every total is bounded by totalMinted.
func (l *Ledger) addAllocation(c *call, r role.Role, amount *uint256.Int) {
	prev := l.allocations[r]
	l.allocations[r] = new(uint256.Int).Add(types.Clone(prev), amount)
	c.j.Record(func() {
		if prev == nil {
			delete(l.allocations, r)
		} else {
			l.allocations[r] = prev
		}
	})
}
