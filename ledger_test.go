package capshield_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	capshield "github.com/lovekush-pitchmatter/capshield-smart-contract"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/event"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/id"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/multisig"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/ownership"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/role"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/store/memory"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

func addr(n byte) common.Address { return common.BytesToAddress([]byte{0xCA, n}) }

var (
	alice    = addr(0x01)
	bob      = addr(0x02)
	carol    = addr(0x03)
	minter   = addr(0x10)
	treasury = addr(0x20)
	dao      = addr(0x21)
	stranger = addr(0x99)
)

type fixture struct {
	ctx     context.Context
	wallets *multisig.Registry
	owner   common.Address
	store   *memory.Store
	clock   *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:     context.Background(),
		wallets: multisig.NewRegistry(),
		store:   memory.New(),
		clock:   &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	f.owner = f.wallet(t, "owner", 0xA0)
	return f
}

// wallet registers a 2-of-3 wallet whose signers are derived from seed.
func (f *fixture) wallet(t *testing.T, name string, seed byte) common.Address {
	t.Helper()
	w, err := f.wallets.Create(name, []common.Address{addr(seed), addr(seed + 1), addr(seed + 2)}, 2)
	require.NoError(t, err)
	return w.Address
}

func (f *fixture) opts(extra ...capshield.Option) []capshield.Option {
	return append([]capshield.Option{
		capshield.WithStore(f.store),
		capshield.WithClock(f.clock.Now),
	}, extra...)
}

func (f *fixture) reward(t *testing.T, extra ...capshield.Option) *capshield.Ledger {
	t.Helper()
	l, err := capshield.NewRewardLedger(f.ctx, f.owner, f.wallets, f.opts(extra...)...)
	require.NoError(t, err)
	require.NoError(t, l.Start(f.ctx))
	require.NoError(t, l.GrantRoles(f.ctx, f.owner, minter, role.Of(role.RewardMinter)))
	return l
}

func (f *fixture) allocation(t *testing.T, extra ...capshield.Option) *capshield.Ledger {
	t.Helper()
	l, err := capshield.NewAllocationLedger(f.ctx, f.owner, treasury, dao, f.wallets, f.opts(extra...)...)
	require.NoError(t, err)
	require.NoError(t, l.Start(f.ctx))
	require.NoError(t, l.GrantRoles(f.ctx, f.owner, minter,
		role.Of(role.TeamMinter, role.TreasuryMinter, role.DaoMinter)))
	return l
}

// requireConserved checks that balances sum to total supply and that total
// supply never exceeds total minted, which never exceeds the cap.
func requireConserved(t *testing.T, l *capshield.Ledger, holders ...common.Address) {
	t.Helper()
	sum := new(uint256.Int)
	for _, h := range l.Holders() {
		sum.Add(sum, l.BalanceOf(h))
	}
	assert.Equal(t, l.TotalSupply().Dec(), sum.Dec(), "balances must sum to total supply")
	assert.False(t, l.TotalSupply().Gt(l.TotalMinted()), "supply above minted")
	assert.False(t, l.TotalMinted().Gt(l.MaxSupply()), "minted above cap")
	for _, h := range holders {
		assert.False(t, l.BalanceOf(h).Gt(l.TotalSupply()))
	}
}

func lastEvents(t *testing.T, l *capshield.Ledger, n int) []*event.Event {
	t.Helper()
	all, err := l.Events(context.Background(), event.ListOpts{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), n)
	return all[len(all)-n:]
}

// ──────────────────────────────────────────────────
// Construction
// ──────────────────────────────────────────────────

func TestNewRewardLedgerDefaults(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)

	assert.Equal(t, "CapShield Reward", l.Name())
	assert.Equal(t, "CSR", l.Symbol())
	assert.Equal(t, uint8(18), l.Decimals())
	assert.Equal(t, capshield.VariantReward, l.Variant())
	assert.Equal(t, types.Units(capshield.DefaultRewardMaxSupply), l.MaxSupply())
	assert.Equal(t, f.owner, l.Owner())
	assert.True(t, l.IsOwnerMultisig(f.ctx))
	assert.False(t, l.Paused())

	burnBps, treasuryBps := l.FeeRate()
	assert.Zero(t, burnBps)
	assert.Zero(t, treasuryBps)
	assert.Equal(t, common.Address{}, l.Treasury())
}

func TestNewAllocationLedgerDefaults(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)

	assert.Equal(t, "CAPS", l.Symbol())
	assert.Equal(t, types.Units(capshield.DefaultAllocationMaxSupply), l.MaxSupply())
	assert.Equal(t, treasury, l.Treasury())
	assert.Equal(t, dao, l.Dao())
	assert.True(t, l.IsExempt(treasury))
	assert.True(t, l.IsExempt(dao))
	assert.False(t, l.IsExempt(alice))

	burnBps, treasuryBps := l.FeeRate()
	assert.Equal(t, uint64(100), burnBps)
	assert.Equal(t, uint64(100), treasuryBps)
}

func TestNewRejectsInvalidGenesis(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		new  func() (*capshield.Ledger, error)
		want error
	}{
		{
			name: "single key owner",
			new: func() (*capshield.Ledger, error) {
				return capshield.NewRewardLedger(f.ctx, stranger, f.wallets)
			},
			want: capshield.ErrAdminMustBeContract,
		},
		{
			name: "zero owner",
			new: func() (*capshield.Ledger, error) {
				return capshield.NewRewardLedger(f.ctx, common.Address{}, f.wallets)
			},
			want: capshield.ErrZeroAddress,
		},
		{
			name: "zero treasury",
			new: func() (*capshield.Ledger, error) {
				return capshield.NewAllocationLedger(f.ctx, f.owner, common.Address{}, dao, f.wallets)
			},
			want: capshield.ErrZeroAddress,
		},
		{
			name: "zero dao",
			new: func() (*capshield.Ledger, error) {
				return capshield.NewAllocationLedger(f.ctx, f.owner, treasury, common.Address{}, f.wallets)
			},
			want: capshield.ErrZeroAddress,
		},
		{
			name: "zero cap",
			new: func() (*capshield.Ledger, error) {
				p := capshield.RewardPolicy()
				p.MaxSupply = new(uint256.Int)
				return capshield.New(f.ctx, p, capshield.Genesis{Owner: f.owner}, f.wallets)
			},
			want: capshield.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := tt.new()
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, l)
		})
	}
}

// ──────────────────────────────────────────────────
// Minting
// ──────────────────────────────────────────────────

func TestRewardMint(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)

	require.NoError(t, l.RewardMint(f.ctx, minter, alice, types.Units(100), "quest"))

	assert.Equal(t, types.Units(100), l.BalanceOf(alice))
	assert.Equal(t, types.Units(100), l.TotalSupply())
	assert.Equal(t, types.Units(100), l.TotalMinted())

	e := lastEvents(t, l, 1)[0]
	assert.Equal(t, event.KindRewardMint, e.Kind)
	assert.Equal(t, minter, e.Caller)
	assert.Equal(t, alice, e.To)
	assert.Equal(t, "quest", e.Field(event.FieldReason))
	assert.Equal(t, l.RemainingMintableSupply(), e.UintField(event.FieldRemaining))
	requireConserved(t, l, alice)
}

func TestMintRejections(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)
	seq := l.Seq()

	tests := []struct {
		name   string
		caller common.Address
		to     common.Address
		amount *uint256.Int
		want   error
	}{
		{"missing role", stranger, alice, types.Units(1), capshield.ErrUnauthorized},
		{"owner lacks role", f.owner, alice, types.Units(1), capshield.ErrUnauthorized},
		{"zero recipient", minter, common.Address{}, types.Units(1), capshield.ErrZeroAddress},
		{"zero amount", minter, alice, new(uint256.Int), capshield.ErrInvalidAmount},
		{"over cap", minter, alice, types.Units(capshield.DefaultRewardMaxSupply + 1), capshield.ErrMaxSupplyExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.RewardMint(f.ctx, tt.caller, tt.to, tt.amount, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, seq, l.Seq(), "rejected calls must not emit events")
	assert.True(t, l.TotalMinted().IsZero())
}

func TestMintEntryPointsPerVariant(t *testing.T) {
	f := newFixture(t)
	reward := f.reward(t)

	err := reward.TeamMint(f.ctx, minter, alice, types.Units(1))
	assert.ErrorIs(t, err, capshield.ErrUnsupported)
	_, err = reward.RevenueMint(f.ctx, f.owner, types.Units(10), types.Units(1))
	assert.ErrorIs(t, err, capshield.ErrUnsupported)
	err = reward.SetExemption(f.ctx, f.owner, alice, true)
	assert.ErrorIs(t, err, capshield.ErrUnsupported)

	alloc := f.allocation(t, capshield.WithTokenID(id.NewTokenID()))
	err = alloc.RewardMint(f.ctx, minter, alice, types.Units(1), "")
	assert.ErrorIs(t, err, capshield.ErrUnsupported)
}

func TestAllocationMintsTrackPerRoleTotals(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)

	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(30)))
	require.NoError(t, l.TeamMint(f.ctx, minter, bob, types.Units(20)))
	require.NoError(t, l.TreasuryMint(f.ctx, minter, treasury, types.Units(7)))
	require.NoError(t, l.DaoMint(f.ctx, minter, dao, types.Units(3)))

	assert.Equal(t, types.Units(50), l.MintAllocation(role.TeamMinter))
	assert.Equal(t, types.Units(7), l.MintAllocation(role.TreasuryMinter))
	assert.Equal(t, types.Units(3), l.MintAllocation(role.DaoMinter))
	assert.Len(t, l.MintAllocations(), 3)
	assert.Equal(t, types.Units(60), l.TotalMinted())
	requireConserved(t, l, alice, bob, treasury, dao)
}

func TestBurnedCapacityIsNeverReclaimed(t *testing.T) {
	f := newFixture(t)
	p := capshield.RewardPolicy()
	p.MaxSupply = types.Units(1000)
	l, err := capshield.New(f.ctx, p, capshield.Genesis{Owner: f.owner}, f.wallets, f.opts()...)
	require.NoError(t, err)
	require.NoError(t, l.GrantRoles(f.ctx, f.owner, minter, role.Of(role.RewardMinter)))

	require.NoError(t, l.RewardMint(f.ctx, minter, alice, types.Units(1000), "genesis"))
	assert.True(t, l.RemainingMintableSupply().IsZero())
	assert.False(t, l.CanMint(uint256.NewInt(1)))

	require.NoError(t, l.Burn(f.ctx, alice, types.Units(1)))
	assert.Equal(t, types.Units(999), l.TotalSupply())
	assert.Equal(t, types.Units(1000), l.TotalMinted())

	err = l.RewardMint(f.ctx, minter, alice, types.Units(1), "again")
	assert.ErrorIs(t, err, capshield.ErrMaxSupplyExceeded)
	assert.True(t, capshield.IsSupplyError(err))
	assert.Equal(t, types.Units(999), l.BalanceOf(alice))
	requireConserved(t, l, alice)
}

func TestMintUpToExactCap(t *testing.T) {
	f := newFixture(t)
	p := capshield.RewardPolicy()
	p.MaxSupply = types.Units(100)
	l, err := capshield.New(f.ctx, p, capshield.Genesis{Owner: f.owner}, f.wallets, f.opts()...)
	require.NoError(t, err)
	require.NoError(t, l.GrantRoles(f.ctx, f.owner, minter, role.Of(role.RewardMinter)))

	require.NoError(t, l.RewardMint(f.ctx, minter, alice, types.Units(90), ""))
	err = l.RewardMint(f.ctx, minter, alice, types.Units(11), "")
	assert.ErrorIs(t, err, capshield.ErrMaxSupplyExceeded)
	require.NoError(t, l.RewardMint(f.ctx, minter, alice, types.Units(10), ""))
	assert.Equal(t, l.MaxSupply(), l.TotalMinted())
}

func TestRevenueMint(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)

	minted, err := l.RevenueMint(f.ctx, f.owner, types.Units(1000), types.Units(10))
	require.NoError(t, err)
	assert.Equal(t, types.Units(100), minted)
	assert.Equal(t, types.Units(100), l.BalanceOf(treasury))
	assert.Equal(t, types.Units(100), l.MintAllocation(role.TreasuryMinter))

	e := lastEvents(t, l, 1)[0]
	assert.Equal(t, event.KindRevenueMint, e.Kind)
	assert.Equal(t, treasury, e.To)
	assert.Equal(t, types.Units(1000), e.UintField(event.FieldRevenue))
	assert.Equal(t, types.Units(10), e.UintField(event.FieldMarketValue))
	assert.Equal(t, types.Units(100), e.UintField(event.FieldMinted))

	// A TreasuryMinter may call it too; the quotient truncates.
	minted, err = l.RevenueMint(f.ctx, minter, types.MustParseUnits("10"), types.MustParseUnits("3"))
	require.NoError(t, err)
	assert.Equal(t, "3.333333333333333333", types.FormatUnits(minted))
}

func TestRevenueMintRejections(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)

	tests := []struct {
		name        string
		caller      common.Address
		revenue     *uint256.Int
		marketValue *uint256.Int
		want        error
	}{
		{"stranger", stranger, types.Units(10), types.Units(1), capshield.ErrUnauthorized},
		{"zero revenue", f.owner, new(uint256.Int), types.Units(1), capshield.ErrInvalidRevenue},
		{"zero market value", f.owner, types.Units(1), new(uint256.Int), capshield.ErrInvalidMarketValue},
		{"rounds to zero", f.owner, uint256.NewInt(1), types.Units(2), capshield.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minted, err := l.RevenueMint(f.ctx, tt.caller, tt.revenue, tt.marketValue)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, minted)
		})
	}
	assert.True(t, l.TotalMinted().IsZero())
}

// ──────────────────────────────────────────────────
// Transfers and fees
// ──────────────────────────────────────────────────

func TestTransferChargesFee(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(1000)))

	require.NoError(t, l.Transfer(f.ctx, alice, bob, types.Units(1000)))

	assert.True(t, l.BalanceOf(alice).IsZero())
	assert.Equal(t, types.Units(980), l.BalanceOf(bob))
	assert.Equal(t, types.Units(10), l.BalanceOf(treasury))
	assert.Equal(t, types.Units(990), l.TotalSupply())
	assert.Equal(t, types.Units(1000), l.TotalMinted())

	evs := lastEvents(t, l, 2)
	assert.Equal(t, event.KindTransfer, evs[0].Kind)
	assert.Equal(t, types.Units(980), evs[0].UintField(event.FieldRecipient))
	assert.Equal(t, types.Units(10), evs[0].UintField(event.FieldBurn))
	assert.Equal(t, types.Units(10), evs[0].UintField(event.FieldTreasury))
	assert.Equal(t, "false", evs[0].Field(event.FieldExempt))
	assert.Equal(t, event.KindTreasuryFee, evs[1].Kind)
	assert.Equal(t, treasury, evs[1].To)
	assert.Equal(t, evs[0].Seq+1, evs[1].Seq)
	requireConserved(t, l, alice, bob, treasury)
}

func TestTransferExemptionSkipsFee(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(300)))

	// Transfers to the treasury are exempt by default.
	require.NoError(t, l.Transfer(f.ctx, alice, treasury, types.Units(100)))
	assert.Equal(t, types.Units(100), l.BalanceOf(treasury))

	require.NoError(t, l.SetExemption(f.ctx, f.owner, alice, true))
	require.NoError(t, l.Transfer(f.ctx, alice, bob, types.Units(100)))
	assert.Equal(t, types.Units(100), l.BalanceOf(bob))
	assert.Equal(t, types.Units(300), l.TotalSupply())

	e := lastEvents(t, l, 1)[0]
	assert.Equal(t, event.KindTransfer, e.Kind)
	assert.Equal(t, "true", e.Field(event.FieldExempt))

	require.NoError(t, l.SetExemption(f.ctx, f.owner, alice, false))
	require.NoError(t, l.Transfer(f.ctx, alice, bob, types.Units(100)))
	assert.Equal(t, types.Units(198), l.BalanceOf(bob))
	requireConserved(t, l, alice, bob, treasury)
}

func TestSetExemptionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)

	require.NoError(t, l.SetExemption(f.ctx, f.owner, alice, true))
	seq := l.Seq()
	require.NoError(t, l.SetExemption(f.ctx, f.owner, alice, true))
	assert.Equal(t, seq, l.Seq())

	err := l.SetExemption(f.ctx, stranger, bob, true)
	assert.ErrorIs(t, err, capshield.ErrUnauthorized)
	assert.Equal(t, []common.Address{alice, treasury, dao}, l.Exemptions())
}

func TestRewardTransferIsFeeFree(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)
	require.NoError(t, l.RewardMint(f.ctx, minter, alice, types.Units(50), ""))

	require.NoError(t, l.Transfer(f.ctx, alice, bob, types.Units(50)))
	assert.Equal(t, types.Units(50), l.BalanceOf(bob))
	assert.Equal(t, types.Units(50), l.TotalSupply())
	assert.Equal(t, event.KindTransfer, lastEvents(t, l, 1)[0].Kind)
}

func TestTransferRejections(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(10)))
	seq := l.Seq()

	err := l.Transfer(f.ctx, alice, bob, types.Units(11))
	assert.ErrorIs(t, err, capshield.ErrInsufficientBalance)
	err = l.Transfer(f.ctx, alice, common.Address{}, types.Units(1))
	assert.ErrorIs(t, err, capshield.ErrZeroAddress)

	assert.Equal(t, seq, l.Seq())
	assert.Equal(t, types.Units(10), l.BalanceOf(alice))
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(1000)))

	require.NoError(t, l.Approve(f.ctx, alice, bob, types.Units(500)))
	assert.Equal(t, types.Units(500), l.Allowance(alice, bob))

	require.NoError(t, l.TransferFrom(f.ctx, bob, alice, carol, types.Units(300)))
	assert.Equal(t, types.Units(200), l.Allowance(alice, bob))
	assert.Equal(t, types.Units(294), l.BalanceOf(carol))
	assert.Equal(t, types.Units(700), l.BalanceOf(alice))

	err := l.TransferFrom(f.ctx, bob, alice, carol, types.Units(201))
	assert.ErrorIs(t, err, capshield.ErrInsufficientAllowance)
	assert.Equal(t, types.Units(200), l.Allowance(alice, bob))

	require.NoError(t, l.Approve(f.ctx, alice, bob, types.Unlimited()))
	require.NoError(t, l.TransferFrom(f.ctx, bob, alice, carol, types.Units(100)))
	assert.True(t, types.IsUnlimited(l.Allowance(alice, bob)))
	requireConserved(t, l, alice, bob, carol, treasury)
}

func TestTransferFromRollsBackAllowanceOnFailure(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(10)))
	require.NoError(t, l.Approve(f.ctx, alice, bob, types.Units(100)))

	err := l.TransferFrom(f.ctx, bob, alice, carol, types.Units(50))
	assert.ErrorIs(t, err, capshield.ErrInsufficientBalance)
	assert.Equal(t, types.Units(100), l.Allowance(alice, bob), "allowance spend must be reverted")
}

// ──────────────────────────────────────────────────
// Burning
// ──────────────────────────────────────────────────

func TestBurnAndBurnFrom(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)
	require.NoError(t, l.RewardMint(f.ctx, minter, alice, types.Units(100), ""))

	require.NoError(t, l.Burn(f.ctx, alice, types.Units(10)))
	assert.Equal(t, types.Units(90), l.TotalSupply())

	require.NoError(t, l.Approve(f.ctx, alice, bob, types.Units(20)))
	require.NoError(t, l.BurnFrom(f.ctx, bob, alice, types.Units(20)))
	assert.Equal(t, types.Units(70), l.BalanceOf(alice))
	assert.True(t, l.Allowance(alice, bob).IsZero())

	err := l.BurnFrom(f.ctx, bob, alice, types.Units(1))
	assert.ErrorIs(t, err, capshield.ErrInsufficientAllowance)
	err = l.Burn(f.ctx, alice, types.Units(71))
	assert.ErrorIs(t, err, capshield.ErrInsufficientBalance)
	err = l.Burn(f.ctx, alice, new(uint256.Int))
	assert.ErrorIs(t, err, capshield.ErrInvalidAmount)

	assert.Equal(t, types.Units(100), l.TotalMinted())
	assert.Equal(t, event.KindBurn, lastEvents(t, l, 1)[0].Kind)
	requireConserved(t, l, alice)
}

// ──────────────────────────────────────────────────
// Pause
// ──────────────────────────────────────────────────

func TestPauseBlocksTransfersAndMints(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(100)))
	require.NoError(t, l.Approve(f.ctx, alice, bob, types.Units(100)))

	err := l.Pause(f.ctx, stranger)
	assert.ErrorIs(t, err, capshield.ErrUnauthorized)

	require.NoError(t, l.Pause(f.ctx, f.owner))
	assert.True(t, l.Paused())

	seq := l.Seq()
	require.NoError(t, l.Pause(f.ctx, f.owner), "pausing twice succeeds")
	assert.Equal(t, seq, l.Seq(), "no event for a no-op pause")

	assert.ErrorIs(t, l.Transfer(f.ctx, alice, bob, types.Units(1)), capshield.ErrPaused)
	assert.ErrorIs(t, l.TransferFrom(f.ctx, bob, alice, bob, types.Units(1)), capshield.ErrPaused)
	assert.ErrorIs(t, l.TeamMint(f.ctx, minter, alice, types.Units(1)), capshield.ErrPaused)
	_, err = l.RevenueMint(f.ctx, f.owner, types.Units(10), types.Units(1))
	assert.ErrorIs(t, err, capshield.ErrPaused)

	// Burns stay open while paused.
	require.NoError(t, l.Burn(f.ctx, alice, types.Units(1)))
	require.NoError(t, l.BurnFrom(f.ctx, bob, alice, types.Units(1)))

	require.NoError(t, l.Unpause(f.ctx, f.owner))
	require.NoError(t, l.Transfer(f.ctx, alice, bob, types.Units(1)))
	requireConserved(t, l, alice, bob)
}

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

func TestGrantRolesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)

	require.NoError(t, l.GrantRoles(f.ctx, f.owner, alice, role.Of(role.TeamMinter)))
	require.NoError(t, l.GrantRoles(f.ctx, f.owner, alice, role.Of(role.TeamMinter, role.DaoMinter)))

	assert.Equal(t, role.Of(role.TeamMinter, role.DaoMinter), l.RolesOf(alice))
	assert.True(t, l.HasAnyRole(alice, role.Of(role.TreasuryMinter, role.DaoMinter)))
	assert.False(t, l.HasRole(alice, role.TreasuryMinter))
	assert.Contains(t, l.RoleHolders(role.TeamMinter), alice)

	e := lastEvents(t, l, 1)[0]
	assert.Equal(t, event.KindRolesGranted, e.Kind)
	assert.Equal(t, "10", e.Field(event.FieldRoles))
	assert.Equal(t, "8", e.Field(event.FieldChanged))
}

func TestRoleChanges(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)

	err := l.GrantRoles(f.ctx, stranger, alice, role.Of(role.TeamMinter))
	assert.ErrorIs(t, err, capshield.ErrUnauthorized)
	assert.True(t, capshield.IsAuthError(err))

	err = l.GrantRoles(f.ctx, f.owner, alice, role.Of(role.RewardMinter))
	assert.ErrorIs(t, err, capshield.ErrUnknownRole)

	require.NoError(t, l.RevokeRoles(f.ctx, f.owner, minter, role.Of(role.DaoMinter)))
	assert.False(t, l.HasRole(minter, role.DaoMinter))
	assert.ErrorIs(t, l.DaoMint(f.ctx, minter, alice, types.Units(1)), capshield.ErrUnauthorized)

	require.NoError(t, l.RenounceRoles(f.ctx, minter, role.Of(role.TeamMinter)))
	assert.Equal(t, role.Of(role.TreasuryMinter), l.RolesOf(minter))
	assert.Equal(t, event.KindRolesRenounced, lastEvents(t, l, 1)[0].Kind)
}

// ──────────────────────────────────────────────────
// Ownership
// ──────────────────────────────────────────────────

func TestRenounceOwnershipIsDisabled(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)

	err := l.RenounceOwnership(f.ctx, f.owner)
	assert.ErrorIs(t, err, capshield.ErrRenounceDisabled)
	assert.Equal(t, f.owner, l.Owner())
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)
	next := f.wallet(t, "next", 0xB0)

	err := l.TransferOwnership(f.ctx, f.owner, stranger)
	assert.ErrorIs(t, err, capshield.ErrAdminMustBeContract)
	assert.Equal(t, f.owner, l.Owner())

	err = l.TransferOwnership(f.ctx, stranger, next)
	assert.ErrorIs(t, err, capshield.ErrUnauthorized)

	require.NoError(t, l.TransferOwnership(f.ctx, f.owner, next))
	assert.Equal(t, next, l.Owner())

	e := lastEvents(t, l, 1)[0]
	assert.Equal(t, event.KindOwnershipTransferred, e.Kind)
	assert.Equal(t, f.owner.Hex(), e.Field(event.FieldPrevious))
}

func TestIsOwnerMultisigVerifiesOutsideLock(t *testing.T) {
	f := newFixture(t)

	var l *capshield.Ledger
	verifier := ownership.VerifierFunc(func(ctx context.Context, who common.Address) bool {
		if l != nil {
			_ = l.Owner()
		}
		return f.wallets.IsMultiParty(ctx, who)
	})
	l, err := capshield.NewRewardLedger(f.ctx, f.owner, verifier, f.opts()...)
	require.NoError(t, err)

	done := make(chan bool, 1)
	go func() { done <- l.IsOwnerMultisig(f.ctx) }()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("IsOwnerMultisig blocked on a verifier that reads the ledger")
	}
}

func TestOwnershipHandover(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)
	next := f.wallet(t, "next", 0xB0)

	expires, err := l.RequestOwnershipHandover(f.ctx, next)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(48*time.Hour), expires)
	assert.Equal(t, expires, l.OwnershipHandoverExpiresAt(next))

	// Only the owner completes.
	err = l.CompleteOwnershipHandover(f.ctx, next, next)
	assert.ErrorIs(t, err, capshield.ErrUnauthorized)

	require.NoError(t, l.CompleteOwnershipHandover(f.ctx, f.owner, next))
	assert.Equal(t, next, l.Owner())
	assert.True(t, l.OwnershipHandoverExpiresAt(next).IsZero())
}

func TestOwnershipHandoverExpires(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)
	next := f.wallet(t, "next", 0xB0)

	_, err := l.RequestOwnershipHandover(f.ctx, next)
	require.NoError(t, err)
	f.clock.Advance(49 * time.Hour)

	err = l.CompleteOwnershipHandover(f.ctx, f.owner, next)
	assert.ErrorIs(t, err, capshield.ErrNoHandoverRequest)
	assert.Equal(t, f.owner, l.Owner())
}

func TestOwnershipHandoverCancel(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)
	next := f.wallet(t, "next", 0xB0)

	_, err := l.RequestOwnershipHandover(f.ctx, next)
	require.NoError(t, err)
	require.NoError(t, l.CancelOwnershipHandover(f.ctx, next))
	assert.Equal(t, event.KindOwnershipHandoverCanceled, lastEvents(t, l, 1)[0].Kind)

	seq := l.Seq()
	require.NoError(t, l.CancelOwnershipHandover(f.ctx, next))
	assert.Equal(t, seq, l.Seq())

	err = l.CompleteOwnershipHandover(f.ctx, f.owner, next)
	assert.ErrorIs(t, err, capshield.ErrNoHandoverRequest)
}

func TestOwnershipHandoverRechecksCandidate(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)

	_, err := l.RequestOwnershipHandover(f.ctx, stranger)
	require.NoError(t, err)

	err = l.CompleteOwnershipHandover(f.ctx, f.owner, stranger)
	assert.ErrorIs(t, err, capshield.ErrAdminMustBeContract)
	assert.Equal(t, f.owner, l.Owner())
	assert.False(t, l.OwnershipHandoverExpiresAt(stranger).IsZero(), "failed completion keeps the request")
}

// ──────────────────────────────────────────────────
// Treasury and DAO rotation
// ──────────────────────────────────────────────────

func TestSetTreasuryAddressMovesExemption(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	next := addr(0x30)

	err := l.SetTreasuryAddress(f.ctx, stranger, next)
	assert.ErrorIs(t, err, capshield.ErrUnauthorized)
	err = l.SetTreasuryAddress(f.ctx, f.owner, common.Address{})
	assert.ErrorIs(t, err, capshield.ErrZeroAddress)

	require.NoError(t, l.SetTreasuryAddress(f.ctx, f.owner, next))
	assert.Equal(t, next, l.Treasury())
	assert.True(t, l.IsExempt(next))
	assert.False(t, l.IsExempt(treasury))
	assert.True(t, l.IsExempt(dao))

	// Fees now flow to the new treasury.
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(100)))
	require.NoError(t, l.Transfer(f.ctx, alice, bob, types.Units(100)))
	assert.Equal(t, types.Units(1), l.BalanceOf(next))

	seq := l.Seq()
	require.NoError(t, l.SetTreasuryAddress(f.ctx, f.owner, next))
	assert.Equal(t, seq, l.Seq())
}

func TestSetDaoAddressKeepsSharedTreasuryExemption(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)

	require.NoError(t, l.SetDaoAddress(f.ctx, f.owner, treasury))
	assert.Equal(t, treasury, l.Dao())
	assert.False(t, l.IsExempt(dao))

	require.NoError(t, l.SetDaoAddress(f.ctx, f.owner, carol))
	assert.True(t, l.IsExempt(treasury), "treasury keeps its exemption")
	assert.True(t, l.IsExempt(carol))
	assert.Equal(t, event.KindDaoUpdated, lastEvents(t, l, 1)[0].Kind)
}

// ──────────────────────────────────────────────────
// Atomicity
// ──────────────────────────────────────────────────

type failingStore struct {
	*memory.Store
	mu   sync.Mutex
	fail bool
}

func (s *failingStore) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

func (s *failingStore) AppendEvents(ctx context.Context, events []*event.Event) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.Store.AppendEvents(ctx, events)
}

func TestFailedPersistenceRollsBackCall(t *testing.T) {
	f := newFixture(t)
	fs := &failingStore{Store: memory.New()}
	l := f.allocation(t, capshield.WithStore(fs))
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(100)))
	seq := l.Seq()

	fs.setFail(true)
	err := l.Transfer(f.ctx, alice, bob, types.Units(100))
	require.ErrorIs(t, err, capshield.ErrTransactionFailed)
	assert.True(t, capshield.IsRetryable(err))

	err = l.TeamMint(f.ctx, minter, alice, types.Units(1))
	require.ErrorIs(t, err, capshield.ErrTransactionFailed)

	assert.Equal(t, seq, l.Seq())
	assert.Equal(t, types.Units(100), l.BalanceOf(alice))
	assert.True(t, l.BalanceOf(bob).IsZero())
	assert.True(t, l.BalanceOf(treasury).IsZero())
	assert.Equal(t, types.Units(100), l.TotalSupply())
	assert.Equal(t, types.Units(100), l.TotalMinted())
	assert.Equal(t, types.Units(100), l.MintAllocation(role.TeamMinter))

	fs.setFail(false)
	require.NoError(t, l.Transfer(f.ctx, alice, bob, types.Units(100)))
	assert.Equal(t, seq+2, l.Seq())
	requireConserved(t, l, alice, bob, treasury)
}

func TestEventSequenceIsContiguous(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	require.NoError(t, l.TeamMint(f.ctx, minter, alice, types.Units(100)))
	_ = l.Transfer(f.ctx, alice, bob, types.Units(1000)) //nolint:errcheck // rejected on purpose
	require.NoError(t, l.Transfer(f.ctx, alice, bob, types.Units(10)))

	evs, err := l.Events(f.ctx, event.ListOpts{})
	require.NoError(t, err)
	for i, e := range evs {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.Equal(t, l.TokenID(), e.TokenID)
	}

	transfers, err := l.Events(f.ctx, event.ListOpts{Kind: event.KindTransfer})
	require.NoError(t, err)
	assert.Len(t, transfers, 1)

	mine, err := l.Events(f.ctx, event.ListOpts{Account: bob})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestEventLogIsImmutableToReaders(t *testing.T) {
	f := newFixture(t)
	l := f.reward(t)
	require.NoError(t, l.RewardMint(f.ctx, minter, alice, types.Units(5), "campaign"))

	evs, err := l.Events(f.ctx, event.ListOpts{Kind: event.KindRewardMint})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	evs[0].Amount.SetUint64(1)
	evs[0].Fields[event.FieldReason] = "tampered"

	again, err := l.Events(f.ctx, event.ListOpts{Kind: event.KindRewardMint})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, types.Units(5), again[0].Amount)
	assert.Equal(t, "campaign", again[0].Field(event.FieldReason))
}

func TestConcurrentTransfersConserveSupply(t *testing.T) {
	f := newFixture(t)
	l := f.allocation(t)
	holders := []common.Address{alice, bob, carol}
	for _, h := range holders {
		require.NoError(t, l.TeamMint(f.ctx, minter, h, types.Units(1000)))
	}

	var wg sync.WaitGroup
	for i, from := range holders {
		to := holders[(i+1)%len(holders)]
		wg.Add(1)
		go func(from, to common.Address) {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				_ = l.Transfer(f.ctx, from, to, types.Units(3)) //nolint:errcheck // balance races are expected
			}
		}(from, to)
	}
	wg.Wait()

	requireConserved(t, l, append(holders, treasury)...)
	assert.Equal(t, types.Units(3000), l.TotalMinted())
}
