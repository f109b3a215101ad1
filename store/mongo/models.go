package mongo

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/xraph/grove"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/snapshot"
)

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:capshield_events"`

	ID        string            `grove:"id,pk"     bson:"_id"`
	TokenID   string            `grove:"token_id"  bson:"token_id"`
	Seq       int64             `grove:"seq"       bson:"seq"`
	Kind      string            `grove:"kind"      bson:"kind"`
	Caller    string            `grove:"caller"    bson:"caller"`
	From      string            `grove:"from_addr" bson:"from_addr"`
	To        string            `grove:"to_addr"   bson:"to_addr"`
	Amount    string            `grove:"amount"    bson:"amount,omitempty"`
	Fields    map[string]string `grove:"fields"    bson:"fields,omitempty"`
	Timestamp time.Time         `grove:"timestamp" bson:"timestamp"`
}

func toEventModel(e *event.Event) *eventModel {
	var amount string
	if e.Amount != nil {
		amount = e.Amount.Dec()
	}
	return &eventModel{
		ID:        e.ID.String(),
		TokenID:   e.TokenID.String(),
		Seq:       int64(e.Seq), //nolint:gosec // sequence numbers stay far below 2^63
		Kind:      string(e.Kind),
		Caller:    e.Caller.Hex(),
		From:      e.From.Hex(),
		To:        e.To.Hex(),
		Amount:    amount,
		Fields:    e.Fields,
		Timestamp: e.Timestamp,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, err
	}

	var amount *uint256.Int
	if m.Amount != "" {
		amount, err = uint256.FromDecimal(m.Amount)
		if err != nil {
			return nil, fmt.Errorf("event %s amount: %w", m.ID, err)
		}
	}

	return &event.Event{
		ID:        eventID,
		TokenID:   tokenID,
		Seq:       uint64(m.Seq), //nolint:gosec // stored from a uint64
		Kind:      event.Kind(m.Kind),
		Caller:    common.HexToAddress(m.Caller),
		From:      common.HexToAddress(m.From),
		To:        common.HexToAddress(m.To),
		Amount:    amount,
		Fields:    m.Fields,
		Timestamp: m.Timestamp.UTC(),
	}, nil
}

// ==================== Snapshot models ====================

// snapshotModel keeps the state as its JSON encoding so address-keyed
// maps survive the round trip unchanged.
type snapshotModel struct {
	grove.BaseModel `grove:"table:capshield_snapshots"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	TokenID   string    `grove:"token_id"   bson:"token_id"`
	Seq       int64     `grove:"seq"        bson:"seq"`
	State     string    `grove:"state"      bson:"state"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func toSnapshotModel(s *snapshot.Snapshot) (*snapshotModel, error) {
	state, err := s.State.Encode()
	if err != nil {
		return nil, err
	}
	return &snapshotModel{
		ID:        s.ID.String(),
		TokenID:   s.TokenID.String(),
		Seq:       int64(s.Seq), //nolint:gosec // sequence numbers stay far below 2^63
		State:     string(state),
		CreatedAt: s.CreatedAt,
	}, nil
}

func fromSnapshotModel(m *snapshotModel) (*snapshot.Snapshot, error) {
	snapID, err := id.ParseSnapshotID(m.ID)
	if err != nil {
		return nil, err
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, err
	}
	state, err := snapshot.Decode([]byte(m.State))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s state: %w", m.ID, err)
	}
	return &snapshot.Snapshot{
		ID:        snapID,
		TokenID:   tokenID,
		Seq:       uint64(m.Seq), //nolint:gosec // stored from a uint64
		State:     state,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}
