package audithook

// Action constants for audit events.
const (
	// Mint actions
	ActionMintReward   = "mint.reward"
	ActionMintTeam     = "mint.team"
	ActionMintTreasury = "mint.treasury"
	ActionMintDao      = "mint.dao"
	ActionMintRevenue  = "mint.revenue"

	// Movement actions
	ActionTransferExecuted  = "transfer.executed"
	ActionFeeCollected      = "fee.collected"
	ActionBurnExecuted      = "burn.executed"
	ActionAllowanceApproved = "allowance.approved"

	// Role actions
	ActionRolesGranted   = "roles.granted"
	ActionRolesRevoked   = "roles.revoked"
	ActionRolesRenounced = "roles.renounced"

	// Ownership actions
	ActionOwnershipTransferred       = "ownership.transferred"
	ActionOwnershipHandoverRequested = "ownership.handover_requested"
	ActionOwnershipHandoverCanceled  = "ownership.handover_canceled"

	// Ledger state actions
	ActionLedgerPaused    = "ledger.paused"
	ActionLedgerUnpaused  = "ledger.unpaused"
	ActionSupplyExhausted = "supply.exhausted"

	// Settings actions
	ActionTreasuryUpdated  = "settings.treasury"
	ActionDaoUpdated       = "settings.dao"
	ActionExemptionUpdated = "settings.exemption"
)

// Resource constants for audit events.
const (
	ResourceToken     = "token"
	ResourceAccount   = "account"
	ResourceRole      = "role"
	ResourceOwnership = "ownership"
	ResourceSettings  = "settings"
)

// Category constants for audit events.
const (
	CategorySupply     = "supply"
	CategoryTransfer   = "transfer"
	CategoryAccess     = "access"
	CategoryGovernance = "governance"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
