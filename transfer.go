package capshield

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// Transfer moves amount from caller to to, charging the fee policy unless
// either side is exempt.
func (l *Ledger) Transfer(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return l.exec(ctx, "transfer", caller, func(c *call) error {
		if err := l.gate.Require(); err != nil {
			return err
		}
		return l.transfer(c, caller, to, amount)
	})
}

// TransferFrom moves amount from from to to on behalf of caller, spending
// caller's allowance first.
func (l *Ledger) TransferFrom(ctx context.Context, caller, from, to common.Address, amount *uint256.Int) error {
	return l.exec(ctx, "transfer_from", caller, func(c *call) error {
		if err := l.gate.Require(); err != nil {
			return err
		}
		if from == (common.Address{}) {
			return ErrZeroAddress
		}
		if err := l.accounts.SpendAllowance(c.j, from, caller, types.Clone(amount)); err != nil {
			return err
		}
		return l.transfer(c, from, to, amount)
	})
}

// transfer settles the fee and applies it in order: burn from the sender,
// credit the treasury, credit the recipient.
func (l *Ledger) transfer(c *call, from, to common.Address, amount *uint256.Int) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	amount = types.Clone(amount)
	if !l.accounts.CanDebit(from, amount) {
		return ErrInsufficientBalance
	}

	split, err := l.fees.Settle(from, to, amount)
	if err != nil {
		return err
	}

	if err := l.supply.BurnFee(c.j, from, split.Burn); err != nil {
		return err
	}
	if err := l.accounts.Debit(c.j, from, new(uint256.Int).Sub(amount, split.Burn)); err != nil {
		return err
	}
	if !split.Treasury.IsZero() {
		if err := l.accounts.Credit(c.j, l.treasury, split.Treasury); err != nil {
			return err
		}
	}
	if err := l.accounts.Credit(c.j, to, split.Recipient); err != nil {
		return err
	}

	c.emit(event.KindTransfer, from, to, amount, map[string]string{
		event.FieldRecipient: split.Recipient.Dec(),
		event.FieldBurn:      split.Burn.Dec(),
		event.FieldTreasury:  split.Treasury.Dec(),
		event.FieldExempt:    strconv.FormatBool(split.Exempt),
	})
	if !split.Exempt && !split.Treasury.IsZero() {
		c.emit(event.KindTreasuryFee, from, l.treasury, split.Treasury, nil)
	}
	return nil
}

// Burn destroys amount of caller's balance. totalMinted is unchanged, so
// burned capacity can never be minted again.
//
// Burn is deliberately not gated by pause.
func (l *Ledger) Burn(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return l.exec(ctx, "burn", caller, func(c *call) error {
		return l.burn(c, caller, amount)
	})
}

// BurnFrom destroys amount of from's balance on behalf of caller, spending
// caller's allowance first. Like Burn it is not gated by pause.
func (l *Ledger) BurnFrom(ctx context.Context, caller, from common.Address, amount *uint256.Int) error {
	return l.exec(ctx, "burn_from", caller, func(c *call) error {
		if from == (common.Address{}) {
			return ErrZeroAddress
		}
		if types.IsZero(amount) {
			return ErrInvalidAmount
		}
		if err := l.accounts.SpendAllowance(c.j, from, caller, amount); err != nil {
			return err
		}
		return l.burn(c, from, amount)
	})
}

func (l *Ledger) burn(c *call, from common.Address, amount *uint256.Int) error {
	if err := l.supply.Burn(c.j, from, amount); err != nil {
		return err
	}
	c.emit(event.KindBurn, from, common.Address{}, amount, nil)
	return nil
}

// Approve sets spender's allowance over caller's balance. types.Unlimited()
// grants an allowance that is never decremented.
func (l *Ledger) Approve(ctx context.Context, caller, spender common.Address, amount *uint256.Int) error {
	return l.exec(ctx, "approve", caller, func(c *call) error {
		if err := l.accounts.Approve(c.j, caller, spender, types.Clone(amount)); err != nil {
			return err
		}
		c.emit(event.KindApproval, caller, spender, types.Clone(amount), map[string]string{
			event.FieldSpender: spender.Hex(),
		})
		return nil
	})
}
