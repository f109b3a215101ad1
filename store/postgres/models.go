package postgres

import (
	"encoding/json"
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

	ID        string            `grove:"id,pk"`
	TokenID   string            `grove:"token_id"`
	Seq       int64             `grove:"seq"`
	Kind      string            `grove:"kind"`
	Caller    string            `grove:"caller"`
	From      string            `grove:"from_addr"`
	To        string            `grove:"to_addr"`
	Amount    *string           `grove:"amount"`
	Fields    map[string]string `grove:"fields,type:jsonb"`
	Timestamp time.Time         `grove:"timestamp"`
}

func toEventModel(e *event.Event) *eventModel {
	var amount *string
	if e.Amount != nil {
		dec := e.Amount.Dec()
		amount = &dec
	}
	fields := e.Fields
	if fields == nil {
		fields = map[string]string{}
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
		Fields:    fields,
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
	if m.Amount != nil {
		amount, err = uint256.FromDecimal(*m.Amount)
		if err != nil {
			return nil, fmt.Errorf("event %s amount: %w", m.ID, err)
		}
	}

	var fields map[string]string
	if len(m.Fields) > 0 {
		fields = m.Fields
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
		Fields:    fields,
		Timestamp: m.Timestamp.UTC(),
	}, nil
}

// ==================== Snapshot models ====================

type snapshotModel struct {
	grove.BaseModel `grove:"table:capshield_snapshots"`

	ID        string          `grove:"id,pk"`
	TokenID   string          `grove:"token_id"`
	Seq       int64           `grove:"seq"`
	State     json.RawMessage `grove:"state,type:jsonb"`
	CreatedAt time.Time       `grove:"created_at"`
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
		State:     state,
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
	state, err := snapshot.Decode(m.State)
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
