// Package observability provides a metrics extension for CapShield ledgers
// that records committed event counts and amounts via a MetricFactory.
package observability

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/plugin"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnEvent            = (*MetricsExtension)(nil)
	_ plugin.OnMint             = (*MetricsExtension)(nil)
	_ plugin.OnTransfer         = (*MetricsExtension)(nil)
	_ plugin.OnFeeCollected     = (*MetricsExtension)(nil)
	_ plugin.OnBurn             = (*MetricsExtension)(nil)
	_ plugin.OnRolesChanged     = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipChanged = (*MetricsExtension)(nil)
	_ plugin.OnPauseChanged     = (*MetricsExtension)(nil)
	_ plugin.OnSettingsChanged  = (*MetricsExtension)(nil)
	_ plugin.OnSupplyExhausted  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger activity metrics. Amounts are recorded in
// whole tokens. Register it as a ledger plugin.
type MetricsExtension struct {
	factory MetricFactory

	// Event metrics
	Events Counter

	// Supply metrics
	MintCount       Counter
	MintAmount      Histogram
	RevenueMints    Counter
	BurnCount       Counter
	BurnAmount      Histogram
	SupplyExhausted Counter

	// Transfer metrics
	TransferCount  Counter
	TransferAmount Histogram
	ExemptTransfer Counter
	FeeBurned      Counter
	FeeTreasury    Counter

	// Governance metrics
	RolesChanged     Counter
	OwnershipChanged Counter
	PauseChanged     Counter
	SettingsChanged  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory standalone.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		Events: factory.Counter("capshield.events.total"),

		MintCount:       factory.Counter("capshield.mint.count"),
		MintAmount:      factory.Histogram("capshield.mint.amount"),
		RevenueMints:    factory.Counter("capshield.mint.revenue.count"),
		BurnCount:       factory.Counter("capshield.burn.count"),
		BurnAmount:      factory.Histogram("capshield.burn.amount"),
		SupplyExhausted: factory.Counter("capshield.supply.exhausted"),

		TransferCount:  factory.Counter("capshield.transfer.count"),
		TransferAmount: factory.Histogram("capshield.transfer.amount"),
		ExemptTransfer: factory.Counter("capshield.transfer.exempt"),
		FeeBurned:      factory.Counter("capshield.fee.burned"),
		FeeTreasury:    factory.Counter("capshield.fee.treasury"),

		RolesChanged:     factory.Counter("capshield.roles.changed"),
		OwnershipChanged: factory.Counter("capshield.ownership.changed"),
		PauseChanged:     factory.Counter("capshield.pause.changed"),
		SettingsChanged:  factory.Counter("capshield.settings.changed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// OnEvent implements plugin.OnEvent.
func (m *MetricsExtension) OnEvent(_ context.Context, _ *event.Event) error {
	m.Events.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Supply hooks
// ──────────────────────────────────────────────────

// OnMint implements plugin.OnMint.
func (m *MetricsExtension) OnMint(_ context.Context, e *event.Event) error {
	m.MintCount.Inc()
	m.MintAmount.Observe(types.WholeTokens(e.Amount))
	if e.Kind == event.KindRevenueMint {
		m.RevenueMints.Inc()
	}
	return nil
}

// OnBurn implements plugin.OnBurn.
func (m *MetricsExtension) OnBurn(_ context.Context, e *event.Event) error {
	m.BurnCount.Inc()
	m.BurnAmount.Observe(types.WholeTokens(e.Amount))
	return nil
}

// OnSupplyExhausted implements plugin.OnSupplyExhausted.
func (m *MetricsExtension) OnSupplyExhausted(_ context.Context, _ id.TokenID, _ *uint256.Int) error {
	m.SupplyExhausted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer. The burned share is read from the
// transfer event itself since fee burns emit no separate burn event.
func (m *MetricsExtension) OnTransfer(_ context.Context, e *event.Event) error {
	m.TransferCount.Inc()
	m.TransferAmount.Observe(types.WholeTokens(e.Amount))
	if e.Field(event.FieldExempt) == "true" {
		m.ExemptTransfer.Inc()
		return nil
	}
	if burned := e.UintField(event.FieldBurn); !types.IsZero(burned) {
		m.FeeBurned.Add(types.WholeTokens(burned))
	}
	return nil
}

// OnFeeCollected implements plugin.OnFeeCollected.
func (m *MetricsExtension) OnFeeCollected(_ context.Context, e *event.Event) error {
	m.FeeTreasury.Add(types.WholeTokens(e.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnRolesChanged implements plugin.OnRolesChanged.
func (m *MetricsExtension) OnRolesChanged(_ context.Context, _ *event.Event) error {
	m.RolesChanged.Inc()
	return nil
}

// OnOwnershipChanged implements plugin.OnOwnershipChanged.
func (m *MetricsExtension) OnOwnershipChanged(_ context.Context, _ *event.Event) error {
	m.OwnershipChanged.Inc()
	return nil
}

// OnPauseChanged implements plugin.OnPauseChanged.
func (m *MetricsExtension) OnPauseChanged(_ context.Context, _ *event.Event, _ bool) error {
	m.PauseChanged.Inc()
	return nil
}

// OnSettingsChanged implements plugin.OnSettingsChanged.
func (m *MetricsExtension) OnSettingsChanged(_ context.Context, _ *event.Event) error {
	m.SettingsChanged.Inc()
	return nil
}
