// Package storetest holds the behaviour every store.Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/snapshot"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store"
)

// Opener returns a fresh, migrated store. Each subtest gets its own.
type Opener func(t *testing.T) store.Store

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")

	// Millisecond precision survives every backend.
	epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

// Run exercises open against the store.Store contract.
func Run(t *testing.T, open Opener) {
	t.Helper()

	t.Run("AppendAndList", func(t *testing.T) { testAppendAndList(t, open(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, open(t)) })
	t.Run("RejectsSequenceConflicts", func(t *testing.T) { testSequenceConflicts(t, open(t)) })
	t.Run("TokensAreIsolated", func(t *testing.T) { testTokensIsolated(t, open(t)) })
	t.Run("Snapshots", func(t *testing.T) { testSnapshots(t, open(t)) })
	t.Run("MigrateIsIdempotent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Migrate(context.Background()))
		require.NoError(t, s.Ping(context.Background()))
	})
}

func newEvent(tok id.TokenID, seq uint64, kind event.Kind, from, to common.Address, amount *uint256.Int) *event.Event {
	return &event.Event{
		ID:        id.NewEventID(),
		TokenID:   tok,
		Seq:       seq,
		Kind:      kind,
		Caller:    from,
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: epoch.Add(time.Duration(seq) * time.Millisecond),
	}
}

func testAppendAndList(t *testing.T, s store.Store) {
	ctx := context.Background()
	tok := id.NewTokenID()

	mint := newEvent(tok, 1, event.KindRewardMint, common.Address{}, alice, uint256.NewInt(5_000))
	mint.Caller = carol
	mint.Fields = map[string]string{event.FieldReason: "campaign"}
	pause := newEvent(tok, 2, event.KindPaused, carol, common.Address{}, nil)
	xfer := newEvent(tok, 3, event.KindTransfer, alice, bob, uint256.NewInt(1_000))
	require.NoError(t, s.AppendEvents(ctx, []*event.Event{mint, pause, xfer}))

	last, err := s.LastEventSeq(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last)

	got, err := s.ListEvents(ctx, tok, event.ListOpts{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, want := range []*event.Event{mint, pause, xfer} {
		assert.Equal(t, want.ID, got[i].ID)
		assert.Equal(t, want.TokenID, got[i].TokenID)
		assert.Equal(t, want.Seq, got[i].Seq)
		assert.Equal(t, want.Kind, got[i].Kind)
		assert.Equal(t, want.Caller, got[i].Caller)
		assert.Equal(t, want.From, got[i].From)
		assert.Equal(t, want.To, got[i].To)
		assert.True(t, want.Timestamp.Equal(got[i].Timestamp), "timestamp %s != %s", want.Timestamp, got[i].Timestamp)
	}
	assert.Equal(t, uint256.NewInt(5_000), got[0].Amount)
	assert.Equal(t, "campaign", got[0].Field(event.FieldReason))
	assert.Nil(t, got[1].Amount, "an event without an amount stays without one")
	assert.Equal(t, uint256.NewInt(1_000), got[2].Amount)
}

func testListFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	tok := id.NewTokenID()

	require.NoError(t, s.AppendEvents(ctx, []*event.Event{
		newEvent(tok, 1, event.KindTeamMint, carol, alice, uint256.NewInt(100)),
		newEvent(tok, 2, event.KindTransfer, alice, bob, uint256.NewInt(10)),
		newEvent(tok, 3, event.KindTransfer, bob, carol, uint256.NewInt(5)),
		newEvent(tok, 4, event.KindBurn, alice, common.Address{}, uint256.NewInt(1)),
	}))

	seqs := func(evs []*event.Event) []uint64 {
		out := make([]uint64, len(evs))
		for i, e := range evs {
			out[i] = e.Seq
		}
		return out
	}

	tests := []struct {
		name string
		opts event.ListOpts
		want []uint64
	}{
		{"kind", event.ListOpts{Kind: event.KindTransfer}, []uint64{2, 3}},
		{"account as sender or recipient", event.ListOpts{Account: bob}, []uint64{2, 3}},
		{"account as caller", event.ListOpts{Account: carol}, []uint64{1, 3}},
		{"after seq", event.ListOpts{AfterSeq: 2}, []uint64{3, 4}},
		{"limit", event.ListOpts{Limit: 2}, []uint64{1, 2}},
		{"offset", event.ListOpts{Offset: 3}, []uint64{4}},
		{"page", event.ListOpts{Offset: 1, Limit: 2}, []uint64{2, 3}},
		{"combined", event.ListOpts{Kind: event.KindTransfer, Account: alice}, []uint64{2}},
		{"no match", event.ListOpts{Kind: event.KindDaoMint}, []uint64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListEvents(ctx, tok, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seqs(got))
		})
	}
}

func testSequenceConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()
	tok := id.NewTokenID()
	require.NoError(t, s.AppendEvents(ctx, []*event.Event{
		newEvent(tok, 1, event.KindTeamMint, carol, alice, uint256.NewInt(100)),
	}))

	reused := []*event.Event{
		newEvent(tok, 2, event.KindTransfer, alice, bob, uint256.NewInt(1)),
		newEvent(tok, 1, event.KindTransfer, alice, bob, uint256.NewInt(1)),
	}
	require.ErrorIs(t, s.AppendEvents(ctx, reused), store.ErrConflict)

	stale := []*event.Event{newEvent(tok, 1, event.KindBurn, alice, common.Address{}, uint256.NewInt(1))}
	require.ErrorIs(t, s.AppendEvents(ctx, stale), store.ErrConflict)

	last, err := s.LastEventSeq(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), last, "a rejected batch writes nothing")

	all, err := s.ListEvents(ctx, tok, event.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testTokensIsolated(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b := id.NewTokenID(), id.NewTokenID()

	require.NoError(t, s.AppendEvents(ctx, []*event.Event{
		newEvent(a, 1, event.KindTeamMint, carol, alice, uint256.NewInt(1)),
		newEvent(a, 2, event.KindTeamMint, carol, alice, uint256.NewInt(1)),
	}))
	require.NoError(t, s.AppendEvents(ctx, []*event.Event{
		newEvent(b, 1, event.KindTeamMint, carol, bob, uint256.NewInt(1)),
	}))

	last, err := s.LastEventSeq(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), last)

	none, err := s.LastEventSeq(ctx, id.NewTokenID())
	require.NoError(t, err)
	assert.Zero(t, none)

	evs, err := s.ListEvents(ctx, a, event.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, evs, 2)
}

func testSnapshots(t *testing.T, s store.Store) {
	ctx := context.Background()
	tok := id.NewTokenID()

	_, err := s.LatestSnapshot(ctx, tok)
	require.ErrorIs(t, err, store.ErrNotFound)

	state := snapshot.State{
		Name:        "CapShield Token",
		Symbol:      "CST",
		Variant:     "reward",
		MaxSupply:   "1000",
		BurnBps:     100,
		TreasuryBps: 100,
		TotalMinted: "30",
		TotalSupply: "30",
		Owner:       carol,
		Balances:    map[common.Address]string{alice: "20", bob: "10"},
		Roles:       map[common.Address]uint8{carol: 1},
		Exemptions:  []common.Address{carol},
	}
	later := &snapshot.Snapshot{ID: id.NewSnapshotID(), TokenID: tok, Seq: 9, State: state, CreatedAt: epoch.Add(time.Second)}
	earlier := &snapshot.Snapshot{ID: id.NewSnapshotID(), TokenID: tok, Seq: 4, State: state, CreatedAt: epoch}
	require.NoError(t, s.SaveSnapshot(ctx, later))
	require.NoError(t, s.SaveSnapshot(ctx, earlier))

	got, err := s.LatestSnapshot(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, later.ID, got.ID)
	assert.Equal(t, uint64(9), got.Seq)
	assert.True(t, later.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, state, got.State)

	dup := *later
	dup.ID = id.NewSnapshotID()
	require.ErrorIs(t, s.SaveSnapshot(ctx, &dup), store.ErrConflict)

	got, err = s.LatestSnapshot(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, later.ID, got.ID, "a rejected snapshot does not replace the stored one")

	_, err = s.LatestSnapshot(ctx, id.NewTokenID())
	require.ErrorIs(t, err, store.ErrNotFound)
}
