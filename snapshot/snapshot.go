// Package snapshot defines checkpoints of a ledger's full state.
//
// A snapshot is taken at a sequence number and captures every balance,
// allowance, role, exemption and counter as of that event. Amounts are kept
// as decimal strings so the encoding is stable across backends.
package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
)

// Snapshot is a checkpoint of one ledger.
type Snapshot struct {
	ID        id.SnapshotID `json:"id"`
	TokenID   id.TokenID    `json:"token_id"`
	Seq       uint64        `json:"seq"`
	State     State         `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
}

// State is the serialisable ledger state.
type State struct {
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Variant     string         `json:"variant"`
	MaxSupply   string         `json:"max_supply"`
	BurnBps     uint64         `json:"burn_bps"`
	TreasuryBps uint64         `json:"treasury_bps"`
	TotalMinted string         `json:"total_minted"`
	TotalSupply string         `json:"total_supply"`
	Paused      bool           `json:"paused"`
	Owner       common.Address `json:"owner"`
	Treasury    common.Address `json:"treasury,omitempty"`
	Dao         common.Address `json:"dao,omitempty"`

	Balances    map[common.Address]string                    `json:"balances"`
	Allowances  map[common.Address]map[common.Address]string `json:"allowances,omitempty"`
	Roles       map[common.Address]uint8                     `json:"roles,omitempty"`
	Exemptions  []common.Address                             `json:"exemptions,omitempty"`
	Handovers   map[common.Address]time.Time                 `json:"handovers,omitempty"`
	Allocations map[string]string                            `json:"allocations,omitempty"`
}

// Encode returns the JSON form of s.
func (s State) Encode() ([]byte, error) { return json.Marshal(s) }

// Decode parses the JSON form produced by Encode.
func Decode(data []byte) (State, error) {
	var s State
	err := json.Unmarshal(data, &s)
	return s, err
}

// Store persists snapshots.
type Store interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	// LatestSnapshot returns the snapshot with the highest sequence number.
	LatestSnapshot(ctx context.Context, tokenID id.TokenID) (*Snapshot, error)
}
