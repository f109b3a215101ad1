package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store"
)

func TestCheckSequence(t *testing.T) {
	ctx := context.Background()
	a, b := id.NewTokenID(), id.NewTokenID()
	stored := map[string]uint64{a.String(): 4}
	last := func(_ context.Context, tokenID id.TokenID) (uint64, error) {
		return stored[tokenID.String()], nil
	}

	tests := []struct {
		name    string
		events  []*event.Event
		wantErr bool
	}{
		{"continues each token", []*event.Event{{TokenID: a, Seq: 5}, {TokenID: b, Seq: 1}, {TokenID: a, Seq: 6}}, false},
		{"gaps are allowed", []*event.Event{{TokenID: a, Seq: 9}}, false},
		{"replays stored seq", []*event.Event{{TokenID: a, Seq: 4}}, true},
		{"repeats within batch", []*event.Event{{TokenID: b, Seq: 1}, {TokenID: b, Seq: 1}}, true},
		{"goes backwards", []*event.Event{{TokenID: b, Seq: 3}, {TokenID: b, Seq: 2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.CheckSequence(ctx, tt.events, last)
			if tt.wantErr {
				assert.True(t, errors.Is(err, store.ErrConflict))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckSequencePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	err := store.CheckSequence(context.Background(),
		[]*event.Event{{TokenID: id.NewTokenID(), Seq: 1}},
		func(context.Context, id.TokenID) (uint64, error) { return 0, boom },
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
