package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
)

// DefaultTimeout bounds each hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onEvent            []OnEvent
	onMint             []OnMint
	onTransfer         []OnTransfer
	onFeeCollected     []OnFeeCollected
	onBurn             []OnBurn
	onApproval         []OnApproval
	onRolesChanged     []OnRolesChanged
	onOwnershipChanged []OnOwnershipChanged
	onPauseChanged     []OnPauseChanged
	onSettingsChanged  []OnSettingsChanged
	onSupplyExhausted  []OnSupplyExhausted
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEvent); ok {
		r.onEvent = append(r.onEvent, v)
	}
	if v, ok := p.(OnMint); ok {
		r.onMint = append(r.onMint, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnFeeCollected); ok {
		r.onFeeCollected = append(r.onFeeCollected, v)
	}
	if v, ok := p.(OnBurn); ok {
		r.onBurn = append(r.onBurn, v)
	}
	if v, ok := p.(OnApproval); ok {
		r.onApproval = append(r.onApproval, v)
	}
	if v, ok := p.(OnRolesChanged); ok {
		r.onRolesChanged = append(r.onRolesChanged, v)
	}
	if v, ok := p.(OnOwnershipChanged); ok {
		r.onOwnershipChanged = append(r.onOwnershipChanged, v)
	}
	if v, ok := p.(OnPauseChanged); ok {
		r.onPauseChanged = append(r.onPauseChanged, v)
	}
	if v, ok := p.(OnSettingsChanged); ok {
		r.onSettingsChanged = append(r.onSettingsChanged, v)
	}
	if v, ok := p.(OnSupplyExhausted); ok {
		r.onSupplyExhausted = append(r.onSupplyExhausted, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnEvent)(nil)).Elem(), "OnEvent")
	checkInterface(reflect.TypeOf((*OnMint)(nil)).Elem(), "OnMint")
	checkInterface(reflect.TypeOf((*OnTransfer)(nil)).Elem(), "OnTransfer")
	checkInterface(reflect.TypeOf((*OnFeeCollected)(nil)).Elem(), "OnFeeCollected")
	checkInterface(reflect.TypeOf((*OnBurn)(nil)).Elem(), "OnBurn")
	checkInterface(reflect.TypeOf((*OnApproval)(nil)).Elem(), "OnApproval")
	checkInterface(reflect.TypeOf((*OnRolesChanged)(nil)).Elem(), "OnRolesChanged")
	checkInterface(reflect.TypeOf((*OnOwnershipChanged)(nil)).Elem(), "OnOwnershipChanged")
	checkInterface(reflect.TypeOf((*OnPauseChanged)(nil)).Elem(), "OnPauseChanged")
	checkInterface(reflect.TypeOf((*OnSettingsChanged)(nil)).Elem(), "OnSettingsChanged")
	checkInterface(reflect.TypeOf((*OnSupplyExhausted)(nil)).Elem(), "OnSupplyExhausted")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// Dispatch delivers one committed event: OnEvent first, then the hook that
// matches its kind.
func (r *Registry) Dispatch(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	onEvent := r.onEvent
	r.mu.RUnlock()

	for _, p := range onEvent {
		r.call(ctx, p.Name(), "OnEvent", func() error {
			return p.OnEvent(ctx, e)
		})
	}

	switch {
	case e.Kind.IsMint():
		r.emitMint(ctx, e)
	case e.Kind == event.KindTransfer:
		r.emitTransfer(ctx, e)
	case e.Kind == event.KindTreasuryFee:
		r.emitFeeCollected(ctx, e)
	case e.Kind == event.KindBurn:
		r.emitBurn(ctx, e)
	case e.Kind == event.KindApproval:
		r.emitApproval(ctx, e)
	case e.Kind == event.KindRolesGranted, e.Kind == event.KindRolesRevoked, e.Kind == event.KindRolesRenounced:
		r.emitRolesChanged(ctx, e)
	case e.Kind == event.KindOwnershipTransferred,
		e.Kind == event.KindOwnershipHandoverRequested,
		e.Kind == event.KindOwnershipHandoverCanceled:
		r.emitOwnershipChanged(ctx, e)
	case e.Kind == event.KindPaused, e.Kind == event.KindUnpaused:
		r.emitPauseChanged(ctx, e, e.Kind == event.KindPaused)
	case e.Kind == event.KindTreasuryUpdated, e.Kind == event.KindDaoUpdated, e.Kind == event.KindExemptionUpdated:
		r.emitSettingsChanged(ctx, e)
	}
}

func (r *Registry) emitMint(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	plugins := r.onMint
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnMint", func() error {
			return p.OnMint(ctx, e)
		})
	}
}

func (r *Registry) emitTransfer(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	plugins := r.onTransfer
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnTransfer", func() error {
			return p.OnTransfer(ctx, e)
		})
	}
}

func (r *Registry) emitFeeCollected(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	plugins := r.onFeeCollected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnFeeCollected", func() error {
			return p.OnFeeCollected(ctx, e)
		})
	}
}

func (r *Registry) emitBurn(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	plugins := r.onBurn
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnBurn", func() error {
			return p.OnBurn(ctx, e)
		})
	}
}

func (r *Registry) emitApproval(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	plugins := r.onApproval
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnApproval", func() error {
			return p.OnApproval(ctx, e)
		})
	}
}

func (r *Registry) emitRolesChanged(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	plugins := r.onRolesChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnRolesChanged", func() error {
			return p.OnRolesChanged(ctx, e)
		})
	}
}

func (r *Registry) emitOwnershipChanged(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	plugins := r.onOwnershipChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnOwnershipChanged", func() error {
			return p.OnOwnershipChanged(ctx, e)
		})
	}
}

func (r *Registry) emitPauseChanged(ctx context.Context, e *event.Event, paused bool) {
	r.mu.RLock()
	plugins := r.onPauseChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnPauseChanged", func() error {
			return p.OnPauseChanged(ctx, e, paused)
		})
	}
}

func (r *Registry) emitSettingsChanged(ctx context.Context, e *event.Event) {
	r.mu.RLock()
	plugins := r.onSettingsChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnSettingsChanged", func() error {
			return p.OnSettingsChanged(ctx, e)
		})
	}
}

// EmitSupplyExhausted calls OnSupplyExhausted for all plugins that
// implement it.
func (r *Registry) EmitSupplyExhausted(ctx context.Context, tokenID id.TokenID, totalMinted *uint256.Int) {
	r.mu.RLock()
	plugins := r.onSupplyExhausted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnSupplyExhausted", func() error {
			return p.OnSupplyExhausted(ctx, tokenID, totalMinted)
		})
	}
}

func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
