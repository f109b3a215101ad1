// Package extension provides the Forge extension adapter for CapShield.
//
// It implements the forge.Extension interface to integrate a CapShield
// ledger into a Forge application with DI registration and lifecycle
// management. The ledger is created from configuration, or restored from
// its latest checkpoint when a token ID is configured.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.capshield" or
// "capshield" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	capshield "github.com/lovekush-pitchmatter/capshield-smart-contract"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/fee"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/multisig"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/ownership"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store/memory"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store/mongo"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store/postgres"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "capshield"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Capped fee token ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts a CapShield ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *capshield.Ledger
	store      store.Store
	groveDB    *grove.DB
	policy     *capshield.Policy
	verifier   ownership.Verifier
	wallets    *multisig.Registry
	ledgerOpts []capshield.Option
}

// New creates a new CapShield Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *capshield.Ledger { return e.engine }

// Wallets returns the multisig registry owner quorums are registered in.
func (e *Extension) Wallets() *multisig.Registry { return e.wallets }

// Register implements [forge.Extension]. It loads configuration,
// builds or restores the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	eng, err := e.build(context.Background())
	if err != nil {
		return err
	}
	e.engine = eng

	e.Logger().Info("capshield: ledger ready",
		forge.F("token", eng.TokenID().String()),
		forge.F("variant", string(eng.Variant())),
		forge.F("owner", eng.Owner().Hex()),
		forge.F("seq", eng.Seq()),
	)

	if err := vessel.Provide(fapp.Container(), func() (*multisig.Registry, error) {
		return e.wallets, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*capshield.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("capshield: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("capshield: store not initialized")
	}
	return e.store.Ping(ctx)
}

// ──────────────────────────────────────────────────
// Ledger construction
// ──────────────────────────────────────────────────

// build resolves the store, owner and policy from the loaded config and
// creates the ledger, or restores it when a token ID is configured and
// checkpointed.
func (e *Extension) build(ctx context.Context) (*capshield.Ledger, error) {
	if e.wallets == nil {
		e.wallets = multisig.NewRegistry()
	}
	if e.verifier == nil {
		e.verifier = e.wallets
	}

	s, err := e.resolveStore()
	if err != nil {
		return nil, err
	}
	e.store = s

	owner, err := e.resolveOwner()
	if err != nil {
		return nil, err
	}

	opts := e.buildLedgerOpts()

	if e.config.TokenID != "" {
		tokenID, err := id.ParseTokenID(e.config.TokenID)
		if err != nil {
			return nil, capshield.ValidationError{Field: "token_id", Message: err.Error()}
		}
		l, err := capshield.Restore(ctx, e.store, tokenID, e.verifier, opts...)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, capshield.ErrNotFound) {
			return nil, err
		}
		opts = append(opts, capshield.WithTokenID(tokenID))
	}

	policy, err := e.resolvePolicy()
	if err != nil {
		return nil, err
	}

	genesis := capshield.Genesis{Owner: owner}
	if policy.Variant == capshield.VariantAllocation {
		var errs capshield.MultiError
		genesis.Treasury, err = parseAddress("treasury", e.config.Treasury)
		errs.Add(err)
		genesis.Dao, err = parseAddress("dao", e.config.Dao)
		errs.Add(err)
		if errs.HasErrors() {
			return nil, errs
		}
	}

	opts = append(opts, capshield.WithStore(e.store))
	return capshield.New(ctx, policy, genesis, e.verifier, opts...)
}

// resolveStore picks the programmatic store, then a grove-backed one for
// the configured backend, then memory.
func (e *Extension) resolveStore() (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if e.groveDB == nil {
		if e.config.Backend != "" && e.config.Backend != BackendMemory {
			return nil, fmt.Errorf("capshield: backend %q needs a grove database", e.config.Backend)
		}
		return memory.New(), nil
	}
	switch e.config.Backend {
	case BackendSQLite:
		return sqlite.New(e.groveDB), nil
	case BackendPostgres:
		return postgres.New(e.groveDB), nil
	case BackendMongo:
		return mongo.New(e.groveDB), nil
	}
	return nil, capshield.ValidationError{Field: "backend", Message: fmt.Sprintf("unknown backend %q", e.config.Backend)}
}

// resolveOwner registers the owner quorum, if configured, and returns the
// owner identity.
func (e *Extension) resolveOwner() (common.Address, error) {
	var wallet common.Address
	if len(e.config.OwnerSigners) > 0 {
		signers := make([]common.Address, 0, len(e.config.OwnerSigners))
		for i, s := range e.config.OwnerSigners {
			a, err := parseAddress(fmt.Sprintf("owner_signers[%d]", i), s)
			if err != nil {
				return common.Address{}, err
			}
			signers = append(signers, a)
		}
		w, err := e.wallets.Create("owner", signers, e.config.OwnerThreshold)
		if err != nil {
			return common.Address{}, err
		}
		wallet = w.Address
	}

	if e.config.Owner == "" {
		if wallet == (common.Address{}) {
			return common.Address{}, capshield.ValidationError{Field: "owner", Message: "set owner or owner_signers"}
		}
		return wallet, nil
	}
	owner, err := parseAddress("owner", e.config.Owner)
	if err != nil {
		return common.Address{}, err
	}
	if wallet != (common.Address{}) && wallet != owner {
		return common.Address{}, capshield.ValidationError{Field: "owner", Message: "does not match owner_signers quorum"}
	}
	return owner, nil
}

// resolvePolicy starts from the variant defaults and applies overrides.
func (e *Extension) resolvePolicy() (capshield.Policy, error) {
	if e.policy != nil {
		return *e.policy, nil
	}

	variant, err := capshield.ParseVariant(e.config.Variant)
	if err != nil {
		return capshield.Policy{}, err
	}
	p := capshield.RewardPolicy()
	if variant == capshield.VariantAllocation {
		p = capshield.AllocationPolicy()
	}

	if e.config.Name != "" {
		p.Name = e.config.Name
	}
	if e.config.Symbol != "" {
		p.Symbol = e.config.Symbol
	}
	if e.config.MaxSupply != "" {
		p.MaxSupply, err = capshield.ParseUnits(e.config.MaxSupply)
		if err != nil {
			return capshield.Policy{}, capshield.ValidationError{Field: "max_supply", Message: err.Error()}
		}
	}
	if f := e.config.Fee; f != nil {
		if f.BurnBps == 0 && f.TreasuryBps == 0 {
			p.Fee = fee.None{}
		} else {
			r, err := fee.NewRate(f.BurnBps, f.TreasuryBps)
			if err != nil {
				return capshield.Policy{}, err
			}
			p.Fee = r
		}
	}
	return p, nil
}

// buildLedgerOpts constructs capshield.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []capshield.Option {
	opts := make([]capshield.Option, 0, len(e.ledgerOpts)+3)

	if e.config.HandoverValidity > 0 {
		opts = append(opts, capshield.WithHandoverValidity(e.config.HandoverValidity))
	}
	if e.config.CheckpointInterval > 0 {
		opts = append(opts, capshield.WithCheckpointInterval(e.config.CheckpointInterval))
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, capshield.WithPluginTimeout(e.config.PluginTimeout))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, capshield.ValidationError{Field: field, Message: fmt.Sprintf("invalid address %q", s)}
	}
	a := common.HexToAddress(s)
	if a == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", capshield.ErrZeroAddress, field)
	}
	return a, nil
}

// ──────────────────────────────────────────────────
// Config loading
// ──────────────────────────────────────────────────

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("capshield: configuration is required but not found in config files; " +
				"ensure 'extensions.capshield' or 'capshield' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("capshield: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("backend", e.config.Backend),
		forge.F("variant", e.config.Variant),
		forge.F("token_id", e.config.TokenID),
		forge.F("handover_validity", e.config.HandoverValidity),
		forge.F("checkpoint_interval", e.config.CheckpointInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.capshield" first (namespaced pattern).
	if cm.IsSet("extensions.capshield") {
		if err := cm.Bind("extensions.capshield", &cfg); err == nil {
			e.Logger().Debug("capshield: loaded config from file",
				forge.F("key", "extensions.capshield"),
			)
			return cfg, true
		}
		e.Logger().Warn("capshield: failed to bind extensions.capshield config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "capshield" key.
	if cm.IsSet("capshield") {
		if err := cm.Bind("capshield", &cfg); err == nil {
			e.Logger().Debug("capshield: loaded config from file",
				forge.F("key", "capshield"),
			)
			return cfg, true
		}
		e.Logger().Warn("capshield: failed to bind capshield config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Backend == "" {
		cfg.Backend = defaults.Backend
	}
	if cfg.Variant == "" {
		cfg.Variant = defaults.Variant
	}
	if cfg.HandoverValidity == 0 {
		cfg.HandoverValidity = defaults.HandoverValidity
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.Backend, programmaticConfig.Backend)
	fill(&yamlConfig.TokenID, programmaticConfig.TokenID)
	fill(&yamlConfig.Variant, programmaticConfig.Variant)
	fill(&yamlConfig.Name, programmaticConfig.Name)
	fill(&yamlConfig.Symbol, programmaticConfig.Symbol)
	fill(&yamlConfig.MaxSupply, programmaticConfig.MaxSupply)
	fill(&yamlConfig.Owner, programmaticConfig.Owner)
	fill(&yamlConfig.Treasury, programmaticConfig.Treasury)
	fill(&yamlConfig.Dao, programmaticConfig.Dao)

	if len(yamlConfig.OwnerSigners) == 0 && len(programmaticConfig.OwnerSigners) > 0 {
		yamlConfig.OwnerSigners = programmaticConfig.OwnerSigners
		yamlConfig.OwnerThreshold = programmaticConfig.OwnerThreshold
	}
	if yamlConfig.Fee == nil {
		yamlConfig.Fee = programmaticConfig.Fee
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.HandoverValidity == 0 && programmaticConfig.HandoverValidity != 0 {
		yamlConfig.HandoverValidity = programmaticConfig.HandoverValidity
	}
	if yamlConfig.CheckpointInterval == 0 && programmaticConfig.CheckpointInterval != 0 {
		yamlConfig.CheckpointInterval = programmaticConfig.CheckpointInterval
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
