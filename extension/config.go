package extension

import (
	"time"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/ownership"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds the CapShield extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.capshield" or "capshield" keys).
type Config struct {
	// DisableMigrate skips the ledger's Start on extension start: the store
	// is not migrated and no initial checkpoint is written.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Backend selects the store built around the grove.DB passed with
	// WithGroveDB: "sqlite", "postgres" or "mongo". Without a grove.DB the
	// ledger keeps its log in memory (default: "memory").
	Backend string `json:"backend" mapstructure:"backend" yaml:"backend"`

	// TokenID restores an existing ledger from its latest checkpoint. When
	// the store has no checkpoint for it a new ledger is created under
	// this identifier.
	TokenID string `json:"token_id" mapstructure:"token_id" yaml:"token_id"`

	// Variant is "reward" or "allocation" (default: "reward").
	Variant string `json:"variant" mapstructure:"variant" yaml:"variant"`

	// Name and Symbol override the variant defaults.
	Name   string `json:"name" mapstructure:"name" yaml:"name"`
	Symbol string `json:"symbol" mapstructure:"symbol" yaml:"symbol"`

	// MaxSupply is the cap in whole tokens, fractional digits allowed
	// (default: the variant's cap).
	MaxSupply string `json:"max_supply" mapstructure:"max_supply" yaml:"max_supply"`

	// Fee overrides the variant's transfer fee split.
	Fee *FeeConfig `json:"fee,omitempty" mapstructure:"fee" yaml:"fee,omitempty"`

	// Owner is the hex address of the owning wallet. When empty the owner
	// is the multisig wallet built from OwnerSigners and OwnerThreshold.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// OwnerSigners and OwnerThreshold describe the owner quorum. The wallet
	// is registered with the extension's multisig registry.
	OwnerSigners   []string `json:"owner_signers" mapstructure:"owner_signers" yaml:"owner_signers"`
	OwnerThreshold int      `json:"owner_threshold" mapstructure:"owner_threshold" yaml:"owner_threshold"`

	// Treasury and Dao are required by the allocation variant.
	Treasury string `json:"treasury" mapstructure:"treasury" yaml:"treasury"`
	Dao      string `json:"dao" mapstructure:"dao" yaml:"dao"`

	// HandoverValidity is how long an ownership handover request stays
	// open (default: 48h).
	HandoverValidity time.Duration `json:"handover_validity" mapstructure:"handover_validity" yaml:"handover_validity"`

	// CheckpointInterval writes a snapshot every n events. Zero disables
	// automatic checkpoints.
	CheckpointInterval uint64 `json:"checkpoint_interval" mapstructure:"checkpoint_interval" yaml:"checkpoint_interval"`

	// PluginTimeout bounds each plugin hook call.
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// FeeConfig is a transfer fee split in basis points.
type FeeConfig struct {
	BurnBps     uint64 `json:"burn_bps" mapstructure:"burn_bps" yaml:"burn_bps"`
	TreasuryBps uint64 `json:"treasury_bps" mapstructure:"treasury_bps" yaml:"treasury_bps"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendMemory,
		Variant:          "reward",
		HandoverValidity: ownership.DefaultHandoverValidity,
	}
}
