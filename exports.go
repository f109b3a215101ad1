package capshield

import (
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

// Re-export common types for convenience so users don't have to import the
// role and types packages.

// Role is re-exported from the role package.
type Role = role.Role

// RoleSet is re-exported from the role package.
type RoleSet = role.Set

// Re-export role constants
const (
	RewardMinter   = role.RewardMinter
	TeamMinter     = role.TeamMinter
	TreasuryMinter = role.TreasuryMinter
	DaoMinter      = role.DaoMinter
)

// Re-export amount helpers
var (
	Units       = types.Units
	Unlimited   = types.Unlimited
	ParseUnits  = types.ParseUnits
	FormatUnits = types.FormatUnits
	Roles       = role.Of
)
