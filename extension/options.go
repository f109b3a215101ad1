package extension

import (
	"github.com/xraph/grove"

	capshield "github.com/lovekush-pitchmatter/capshield-smart-contract"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/multisig"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/ownership"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/plugin"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store"
)

// Option configures the CapShield Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger. It takes precedence over
// WithGroveDB.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB sets the database the configured backend is built on.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithBackend selects the grove store backend: "sqlite", "postgres" or "mongo".
func WithBackend(name string) Option {
	return func(e *Extension) { e.config.Backend = name }
}

// WithLedgerOption passes a capshield.Option through to the underlying ledger.
func WithLedgerOption(opt capshield.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, capshield.WithPlugin(p))
	}
}

// WithPolicy replaces the policy derived from the variant, name, symbol,
// cap and fee settings.
func WithPolicy(p capshield.Policy) Option {
	return func(e *Extension) { e.policy = &p }
}

// WithVerifier sets the multi-party check applied to owners. The default
// is the extension's multisig registry.
func WithVerifier(v ownership.Verifier) Option {
	return func(e *Extension) { e.verifier = v }
}

// WithWallets sets the multisig registry owner quorums are registered in.
func WithWallets(r *multisig.Registry) Option {
	return func(e *Extension) { e.wallets = r }
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
