package capshield

import (
	"context"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
)

// ──────────────────────────────────────────────────
// Pause
// ──────────────────────────────────────────────────

// Pause halts minting and transfers. Pausing a paused ledger succeeds
// without emitting an event.
func (l *Ledger) Pause(ctx context.Context, caller common.Address) error {
	return l.exec(ctx, "pause", caller, func(c *call) error {
		if err := l.owner.RequireOwner(caller); err != nil {
			return err
		}
		if l.gate.Pause(c.j) {
			c.emit(event.KindPaused, common.Address{}, common.Address{}, nil, nil)
		}
		return nil
	})
}

// Unpause resumes minting and transfers. Unpausing a running ledger
// succeeds without emitting an event.
func (l *Ledger) Unpause(ctx context.Context, caller common.Address) error {
	return l.exec(ctx, "unpause", caller, func(c *call) error {
		if err := l.owner.RequireOwner(caller); err != nil {
			return err
		}
		if l.gate.Unpause(c.j) {
			c.emit(event.KindUnpaused, common.Address{}, common.Address{}, nil, nil)
		}
		return nil
	})
}

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

// GrantRoles adds roles to who. Granting held roles succeeds; the event
// records both the requested and the newly added bits.
func (l *Ledger) GrantRoles(ctx context.Context, caller, who common.Address, roles role.Set) error {
	return l.exec(ctx, "grant_roles", caller, func(c *call) error {
		if err := l.owner.RequireOwner(caller); err != nil {
			return err
		}
		changed, err := l.roles.Grant(c.j, who, roles)
		if err != nil {
			return err
		}
		c.emit(event.KindRolesGranted, common.Address{}, who, nil, roleFields(roles, changed))
		return nil
	})
}

// RevokeRoles removes roles from who.
func (l *Ledger) RevokeRoles(ctx context.Context, caller, who common.Address, roles role.Set) error {
	return l.exec(ctx, "revoke_roles", caller, func(c *call) error {
		if err := l.owner.RequireOwner(caller); err != nil {
			return err
		}
		changed, err := l.roles.Revoke(c.j, who, roles)
		if err != nil {
			return err
		}
		c.emit(event.KindRolesRevoked, common.Address{}, who, nil, roleFields(roles, changed))
		return nil
	})
}

// RenounceRoles removes roles from the caller itself.
func (l *Ledger) RenounceRoles(ctx context.Context, caller common.Address, roles role.Set) error {
	return l.exec(ctx, "renounce_roles", caller, func(c *call) error {
		changed, err := l.roles.Revoke(c.j, caller, roles)
		if err != nil {
			return err
		}
		c.emit(event.KindRolesRenounced, common.Address{}, caller, nil, roleFields(roles, changed))
		return nil
	})
}

func roleFields(requested, changed role.Set) map[string]string {
	return map[string]string{
		event.FieldRoles:   strconv.FormatUint(uint64(requested), 10),
		event.FieldChanged: strconv.FormatUint(uint64(changed), 10),
	}
}

// ──────────────────────────────────────────────────
// Ownership
// ──────────────────────────────────────────────────

// TransferOwnership hands ownership directly to next, which must be a
// multi-party identity.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, next common.Address) error {
	return l.exec(ctx, "transfer_ownership", caller, func(c *call) error {
		prev := l.owner.Owner()
		if err := l.owner.TransferOwnership(ctx, c.j, caller, next); err != nil {
			return err
		}
		c.emit(event.KindOwnershipTransferred, prev, next, nil, map[string]string{
			event.FieldPrevious: prev.Hex(),
		})
		return nil
	})
}

// RequestOwnershipHandover registers caller as a handover candidate. Anyone
// may request; the owner decides whether to complete.
func (l *Ledger) RequestOwnershipHandover(ctx context.Context, caller common.Address) (time.Time, error) {
	var expires time.Time
	err := l.exec(ctx, "request_ownership_handover", caller, func(c *call) error {
		var err error
		expires, err = l.owner.RequestHandover(c.j, caller)
		if err != nil {
			return err
		}
		c.emit(event.KindOwnershipHandoverRequested, caller, l.owner.Owner(), nil, map[string]string{
			event.FieldExpiresAt: expires.UTC().Format(time.RFC3339),
		})
		return nil
	})
	return expires, err
}

// CancelOwnershipHandover withdraws caller's handover request. Cancelling
// without a request succeeds without emitting an event.
func (l *Ledger) CancelOwnershipHandover(ctx context.Context, caller common.Address) error {
	return l.exec(ctx, "cancel_ownership_handover", caller, func(c *call) error {
		if l.owner.CancelHandover(c.j, caller) {
			c.emit(event.KindOwnershipHandoverCanceled, caller, l.owner.Owner(), nil, nil)
		}
		return nil
	})
}

// CompleteOwnershipHandover hands ownership to candidate. The candidate's
// multi-party status is checked now, not when the request was made.
func (l *Ledger) CompleteOwnershipHandover(ctx context.Context, caller, candidate common.Address) error {
	return l.exec(ctx, "complete_ownership_handover", caller, func(c *call) error {
		prev := l.owner.Owner()
		if err := l.owner.CompleteHandover(ctx, c.j, caller, candidate); err != nil {
			return err
		}
		c.emit(event.KindOwnershipTransferred, prev, candidate, nil, map[string]string{
			event.FieldPrevious: prev.Hex(),
		})
		return nil
	})
}

// RenounceOwnership always fails with ErrRenounceDisabled. A ledger can
// never become ownerless.
func (l *Ledger) RenounceOwnership(_ context.Context, caller common.Address) error {
	return l.owner.RenounceOwnership(caller)
}

// ──────────────────────────────────────────────────
// Allocation settings
// ──────────────────────────────────────────────────

// SetTreasuryAddress rotates the treasury. The old address loses its fee
// exemption and the new one gains it in the same call.
func (l *Ledger) SetTreasuryAddress(ctx context.Context, caller, next common.Address) error {
	return l.exec(ctx, "set_treasury_address", caller, func(c *call) error {
		return l.rotate(c, caller, &l.treasury, l.dao, next, event.KindTreasuryUpdated)
	})
}

// SetDaoAddress rotates the DAO identity with the same exemption handling
// as SetTreasuryAddress.
func (l *Ledger) SetDaoAddress(ctx context.Context, caller, next common.Address) error {
	return l.exec(ctx, "set_dao_address", caller, func(c *call) error {
		return l.rotate(c, caller, &l.dao, l.treasury, next, event.KindDaoUpdated)
	})
}

// rotate replaces *slot with next. other is the sibling system identity,
// whose exemption is left alone if it shares the old address.
func (l *Ledger) rotate(c *call, caller common.Address, slot *common.Address, other, next common.Address, kind event.Kind) error {
	if err := l.requireVariant(VariantAllocation, string(kind)); err != nil {
		return err
	}
	if err := l.owner.RequireOwner(caller); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return ErrZeroAddress
	}
	prev := *slot
	if prev == next {
		return nil
	}

	ex := l.fees.Exemptions()
	if prev != other {
		if _, err := ex.Set(c.j, prev, false); err != nil {
			return err
		}
	}
	if _, err := ex.Set(c.j, next, true); err != nil {
		return err
	}
	*slot = next
	c.j.Record(func() { *slot = prev })

	c.emit(kind, prev, next, nil, map[string]string{event.FieldPrevious: prev.Hex()})
	return nil
}

// SetExemption marks or unmarks who as fee exempt. Setting the current
// value succeeds without emitting an event.
func (l *Ledger) SetExemption(ctx context.Context, caller, who common.Address, exempt bool) error {
	return l.exec(ctx, "set_exemption", caller, func(c *call) error {
		if err := l.requireVariant(VariantAllocation, "set exemption"); err != nil {
			return err
		}
		if err := l.owner.RequireOwner(caller); err != nil {
			return err
		}
		changed, err := l.fees.Exemptions().Set(c.j, who, exempt)
		if err != nil {
			return err
		}
		if changed {
			c.emit(event.KindExemptionUpdated, common.Address{}, who, nil, map[string]string{
				event.FieldExempt: strconv.FormatBool(exempt),
			})
		}
		return nil
	})
}
