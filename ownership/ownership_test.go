package ownership

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

var (
	safeA  = common.HexToAddress("0xa000000000000000000000000000000000000001")
	safeB  = common.HexToAddress("0xa000000000000000000000000000000000000002")
	single = common.HexToAddress("0xb000000000000000000000000000000000000001")
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func verifier() Verifier {
	return VerifierFunc(func(_ context.Context, who common.Address) bool {
		return who == safeA || who == safeB
	})
}

func newGuard(t *testing.T, opts ...Option) *Guard {
	t.Helper()
	g, err := NewGuard(context.Background(), safeA, verifier(), opts...)
	require.NoError(t, err)
	return g
}

func TestNewGuardRequiresMultiParty(t *testing.T) {
	_, err := NewGuard(context.Background(), single, verifier())
	require.ErrorIs(t, err, ErrAdminMustBeContract)

	_, err = NewGuard(context.Background(), common.Address{}, verifier())
	require.ErrorIs(t, err, types.ErrZeroAddress)

	g := newGuard(t)
	assert.Equal(t, safeA, g.Owner())
	assert.True(t, g.IsOwnerMultiParty(context.Background()))
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t)

	require.ErrorIs(t, g.TransferOwnership(ctx, nil, single, safeB), role.ErrUnauthorized)
	require.ErrorIs(t, g.TransferOwnership(ctx, nil, safeA, single), ErrAdminMustBeContract)
	require.NoError(t, g.TransferOwnership(ctx, nil, safeA, safeB))
	assert.Equal(t, safeB, g.Owner())
}

func TestRenounceAlwaysFails(t *testing.T) {
	g := newGuard(t)
	require.ErrorIs(t, g.RenounceOwnership(safeA), ErrRenounceDisabled)
	require.ErrorIs(t, g.RenounceOwnership(single), ErrRenounceDisabled)
	assert.Equal(t, safeA, g.Owner())
}

func TestHandoverRevalidatesAtCompletion(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t)

	// Anyone may request, including a single-key identity.
	_, err := g.RequestHandover(nil, single)
	require.NoError(t, err)

	require.ErrorIs(t, g.CompleteHandover(ctx, nil, safeA, single), ErrAdminMustBeContract)
	assert.Equal(t, safeA, g.Owner())
	assert.False(t, g.HandoverExpiresAt(single).IsZero(), "failed completion keeps the request")
}

func TestHandoverLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := newGuard(t, WithClock(clock.now), WithHandoverValidity(time.Hour))

	require.ErrorIs(t, g.CompleteHandover(ctx, nil, safeA, safeB), ErrNoHandoverRequest)

	expires, err := g.RequestHandover(nil, safeB)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(time.Hour), expires)

	require.ErrorIs(t, g.CompleteHandover(ctx, nil, safeB, safeB), role.ErrUnauthorized)

	require.NoError(t, g.CompleteHandover(ctx, nil, safeA, safeB))
	assert.Equal(t, safeB, g.Owner())
	assert.True(t, g.HandoverExpiresAt(safeB).IsZero())
}

func TestHandoverExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := newGuard(t, WithClock(clock.now))

	_, err := g.RequestHandover(nil, safeB)
	require.NoError(t, err)

	clock.t = clock.t.Add(DefaultHandoverValidity + time.Second)
	require.ErrorIs(t, g.CompleteHandover(ctx, nil, safeA, safeB), ErrNoHandoverRequest)
}

func TestCancelHandover(t *testing.T) {
	g := newGuard(t)
	assert.False(t, g.CancelHandover(nil, safeB))

	_, err := g.RequestHandover(nil, safeB)
	require.NoError(t, err)
	assert.True(t, g.CancelHandover(nil, safeB))
	require.ErrorIs(t, g.CompleteHandover(context.Background(), nil, safeA, safeB), ErrNoHandoverRequest)
}

func TestJournalRevertsOwnerChange(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t)
	_, err := g.RequestHandover(nil, safeB)
	require.NoError(t, err)

	j := journal.New()
	require.NoError(t, g.CompleteHandover(ctx, j, safeA, safeB))
	j.Revert()

	assert.Equal(t, safeA, g.Owner())
	assert.False(t, g.HandoverExpiresAt(safeB).IsZero())
}
