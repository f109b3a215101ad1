// Package audithook bridges committed ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/plugin"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnMint             = (*Extension)(nil)
	_ plugin.OnTransfer         = (*Extension)(nil)
	_ plugin.OnFeeCollected     = (*Extension)(nil)
	_ plugin.OnBurn             = (*Extension)(nil)
	_ plugin.OnApproval         = (*Extension)(nil)
	_ plugin.OnRolesChanged     = (*Extension)(nil)
	_ plugin.OnOwnershipChanged = (*Extension)(nil)
	_ plugin.OnPauseChanged     = (*Extension)(nil)
	_ plugin.OnSettingsChanged  = (*Extension)(nil)
	_ plugin.OnSupplyExhausted  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It matches chronicle.Emitter; callers inject the concrete
// *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges committed ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// actions maps event kinds to audit actions.
var actions = map[event.Kind]string{
	event.KindRewardMint:                 ActionMintReward,
	event.KindTeamMint:                   ActionMintTeam,
	event.KindTreasuryMint:               ActionMintTreasury,
	event.KindDaoMint:                    ActionMintDao,
	event.KindRevenueMint:                ActionMintRevenue,
	event.KindTransfer:                   ActionTransferExecuted,
	event.KindTreasuryFee:                ActionFeeCollected,
	event.KindBurn:                       ActionBurnExecuted,
	event.KindApproval:                   ActionAllowanceApproved,
	event.KindRolesGranted:               ActionRolesGranted,
	event.KindRolesRevoked:               ActionRolesRevoked,
	event.KindRolesRenounced:             ActionRolesRenounced,
	event.KindOwnershipTransferred:       ActionOwnershipTransferred,
	event.KindOwnershipHandoverRequested: ActionOwnershipHandoverRequested,
	event.KindOwnershipHandoverCanceled:  ActionOwnershipHandoverCanceled,
	event.KindPaused:                     ActionLedgerPaused,
	event.KindUnpaused:                   ActionLedgerUnpaused,
	event.KindTreasuryUpdated:            ActionTreasuryUpdated,
	event.KindDaoUpdated:                 ActionDaoUpdated,
	event.KindExemptionUpdated:           ActionExemptionUpdated,
}

// ──────────────────────────────────────────────────
// Supply hooks
// ──────────────────────────────────────────────────

// OnMint implements plugin.OnMint.
func (e *Extension) OnMint(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, SeverityInfo, ResourceAccount, evt.To.Hex(), CategorySupply)
}

// OnBurn implements plugin.OnBurn.
func (e *Extension) OnBurn(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, SeverityInfo, ResourceAccount, evt.From.Hex(), CategorySupply)
}

// OnSupplyExhausted implements plugin.OnSupplyExhausted.
func (e *Extension) OnSupplyExhausted(ctx context.Context, tokenID id.TokenID, totalMinted *uint256.Int) error {
	return e.record(ctx, ActionSupplyExhausted, SeverityWarning, OutcomeSuccess,
		ResourceToken, tokenID.String(), CategorySupply, nil,
		"total_minted", types.FormatUnits(totalMinted),
	)
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, SeverityInfo, ResourceAccount, evt.From.Hex(), CategoryTransfer)
}

// OnFeeCollected implements plugin.OnFeeCollected.
func (e *Extension) OnFeeCollected(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, SeverityInfo, ResourceAccount, evt.To.Hex(), CategoryTransfer)
}

// OnApproval implements plugin.OnApproval.
func (e *Extension) OnApproval(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, SeverityInfo, ResourceAccount, evt.From.Hex(), CategoryTransfer,
		"spender", evt.To.Hex(),
	)
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnRolesChanged implements plugin.OnRolesChanged.
func (e *Extension) OnRolesChanged(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, SeverityWarning, ResourceRole, evt.To.Hex(), CategoryAccess)
}

// OnOwnershipChanged implements plugin.OnOwnershipChanged.
func (e *Extension) OnOwnershipChanged(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, SeverityWarning, ResourceOwnership, evt.To.Hex(), CategoryGovernance)
}

// OnPauseChanged implements plugin.OnPauseChanged.
func (e *Extension) OnPauseChanged(ctx context.Context, evt *event.Event, paused bool) error {
	return e.recordEvent(ctx, evt, SeverityWarning, ResourceToken, evt.TokenID.String(), CategoryGovernance,
		"paused", paused,
	)
}

// OnSettingsChanged implements plugin.OnSettingsChanged.
func (e *Extension) OnSettingsChanged(ctx context.Context, evt *event.Event) error {
	return e.recordEvent(ctx, evt, SeverityInfo, ResourceSettings, evt.To.Hex(), CategoryGovernance)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// recordEvent maps a committed event to its audit action and records it
// with the event's amount and fields as metadata.
func (e *Extension) recordEvent(
	ctx context.Context,
	evt *event.Event,
	severity, resource, resourceID, category string,
	kvPairs ...any,
) error {
	action, ok := actions[evt.Kind]
	if !ok {
		return nil
	}
	kv := append([]any{
		"token_id", evt.TokenID.String(),
		"seq", evt.Seq,
		"caller", evt.Caller.Hex(),
	}, kvPairs...)
	if evt.Amount != nil {
		kv = append(kv, "amount", types.FormatUnits(evt.Amount))
	}
	for k, v := range evt.Fields {
		kv = append(kv, k, v)
	}
	return e.record(ctx, action, severity, OutcomeSuccess, resource, resourceID, category, nil, kv...)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
