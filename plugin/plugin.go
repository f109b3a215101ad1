// Package plugin provides an extensible plugin system for CapShield ledgers.
// Plugins hook into lifecycle and committed ledger events. Hooks run after a
// call has committed and never see rolled-back state.
package plugin

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Event hooks
// ──────────────────────────────────────────────────

// OnEvent is called for every committed event, before the kind-specific
// hook.
type OnEvent interface {
	Plugin
	OnEvent(ctx context.Context, e *event.Event) error
}

// OnMint is called for every mint kind, including revenue mints.
type OnMint interface {
	Plugin
	OnMint(ctx context.Context, e *event.Event) error
}

// OnTransfer is called for every transfer, exempt or not.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, e *event.Event) error
}

// OnFeeCollected is called when a transfer credited the treasury.
type OnFeeCollected interface {
	Plugin
	OnFeeCollected(ctx context.Context, e *event.Event) error
}

// OnBurn is called for direct burns.
type OnBurn interface {
	Plugin
	OnBurn(ctx context.Context, e *event.Event) error
}

// OnApproval is called when an owner sets a spender's allowance.
type OnApproval interface {
	Plugin
	OnApproval(ctx context.Context, e *event.Event) error
}

// OnRolesChanged is called when roles are granted, revoked or renounced.
type OnRolesChanged interface {
	Plugin
	OnRolesChanged(ctx context.Context, e *event.Event) error
}

// OnOwnershipChanged is called for ownership transfers and handover
// requests or cancellations.
type OnOwnershipChanged interface {
	Plugin
	OnOwnershipChanged(ctx context.Context, e *event.Event) error
}

// OnPauseChanged is called when the ledger is paused or unpaused.
type OnPauseChanged interface {
	Plugin
	OnPauseChanged(ctx context.Context, e *event.Event, paused bool) error
}

// OnSettingsChanged is called when the treasury, DAO or an exemption
// changes.
type OnSettingsChanged interface {
	Plugin
	OnSettingsChanged(ctx context.Context, e *event.Event) error
}

// OnSupplyExhausted is called once a mint brings the remaining capacity to
// zero.
type OnSupplyExhausted interface {
	Plugin
	OnSupplyExhausted(ctx context.Context, tokenID id.TokenID, totalMinted *uint256.Int) error
}
