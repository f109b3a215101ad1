// Package event defines the append-only audit records emitted by a ledger.
//
// Every successful mutating call emits one or more events, each stamped with
// a per-ledger sequence number. Failed calls emit nothing.
package event

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
)

// Kind names the operation an event records.
type Kind string

const (
	KindRewardMint   Kind = "mint.reward"
	KindTeamMint     Kind = "mint.team"
	KindTreasuryMint Kind = "mint.treasury"
	KindDaoMint      Kind = "mint.dao"
	KindRevenueMint  Kind = "mint.revenue"

	KindTransfer    Kind = "transfer"
	KindTreasuryFee Kind = "fee.treasury"
	KindBurn        Kind = "burn"
	KindApproval    Kind = "approval"

	KindRolesGranted   Kind = "roles.granted"
	KindRolesRevoked   Kind = "roles.revoked"
	KindRolesRenounced Kind = "roles.renounced"

	KindOwnershipTransferred       Kind = "ownership.transferred"
	KindOwnershipHandoverRequested Kind = "ownership.handover_requested"
	KindOwnershipHandoverCanceled  Kind = "ownership.handover_canceled"

	KindPaused   Kind = "ledger.paused"
	KindUnpaused Kind = "ledger.unpaused"

	KindTreasuryUpdated  Kind = "settings.treasury"
	KindDaoUpdated       Kind = "settings.dao"
	KindExemptionUpdated Kind = "settings.exemption"
)

// IsMint reports whether k is one of the mint kinds.
func (k Kind) IsMint() bool {
	switch k {
	case KindRewardMint, KindTeamMint, KindTreasuryMint, KindDaoMint, KindRevenueMint:
		return true
	}
	return false
}

// Field keys carried in Event.Fields.
const (
	FieldReason      = "reason"
	FieldRevenue     = "revenue"
	FieldMarketValue = "market_value"
	FieldMinted      = "minted"
	FieldRecipient   = "recipient_amount"
	FieldBurn        = "burn_amount"
	FieldTreasury    = "treasury_amount"
	FieldTreasuryTo  = "treasury"
	FieldExempt      = "exempt"
	FieldSpender     = "spender"
	FieldRoles       = "roles"
	FieldChanged     = "changed"
	FieldPrevious    = "previous"
	FieldExpiresAt   = "expires_at"
	FieldRemaining   = "remaining_capacity"
)

// Event is one audit record.
type Event struct {
	ID        id.EventID        `json:"id"`
	TokenID   id.TokenID        `json:"token_id"`
	Seq       uint64            `json:"seq"`
	Kind      Kind              `json:"kind"`
	Caller    common.Address    `json:"caller"`
	From      common.Address    `json:"from,omitempty"`
	To        common.Address    `json:"to,omitempty"`
	Amount    *uint256.Int      `json:"amount,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Field returns the named field or "".
func (e *Event) Field(key string) string {
	if e.Fields == nil {
		return ""
	}
	return e.Fields[key]
}

// UintField parses a decimal field. Missing or malformed values read as nil.
func (e *Event) UintField(key string) *uint256.Int {
	v := e.Field(key)
	if v == "" {
		return nil
	}
	n, err := uint256.FromDecimal(v)
	if err != nil {
		return nil
	}
	return n
}

// Involves reports whether who appears as caller, sender or recipient.
func (e *Event) Involves(who common.Address) bool {
	return e.Caller == who || e.From == who || e.To == who
}

// ListOpts filters ListEvents.
type ListOpts struct {
	Kind    Kind
	Account common.Address
	// AfterSeq returns only events with a greater sequence number.
	AfterSeq uint64
	Limit    int
	Offset   int
}

// Matches reports whether e passes the kind and account filters.
func (o ListOpts) Matches(e *Event) bool {
	if o.Kind != "" && e.Kind != o.Kind {
		return false
	}
	if o.Account != (common.Address{}) && !e.Involves(o.Account) {
		return false
	}
	return e.Seq > o.AfterSeq
}
