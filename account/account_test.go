package account

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestCreditDebit(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Credit(nil, alice, uint256.NewInt(100)))
	require.NoError(t, s.Debit(nil, alice, uint256.NewInt(40)))

	assert.Equal(t, uint64(60), s.BalanceOf(alice).Uint64())
	assert.True(t, s.BalanceOf(bob).IsZero())
	assert.Equal(t, uint64(60), s.Sum().Uint64())
}

func TestDebitInsufficient(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Credit(nil, alice, uint256.NewInt(10)))

	err := s.Debit(nil, alice, uint256.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(10), s.BalanceOf(alice).Uint64())
}

func TestZeroAddressRejected(t *testing.T) {
	s := NewStore()
	require.ErrorIs(t, s.Credit(nil, common.Address{}, uint256.NewInt(1)), types.ErrZeroAddress)
	require.ErrorIs(t, s.Debit(nil, common.Address{}, uint256.NewInt(1)), types.ErrZeroAddress)
	require.ErrorIs(t, s.Approve(nil, alice, common.Address{}, uint256.NewInt(1)), types.ErrZeroAddress)
}

func TestCreditOverflow(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Credit(nil, alice, types.Unlimited()))
	require.ErrorIs(t, s.Credit(nil, alice, uint256.NewInt(1)), types.ErrInvalidAmount)
}

func TestJournalRevertRestoresBalances(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Credit(nil, alice, uint256.NewInt(50)))

	j := journal.New()
	require.NoError(t, s.Debit(j, alice, uint256.NewInt(50)))
	require.NoError(t, s.Credit(j, bob, uint256.NewInt(50)))
	require.NoError(t, s.Approve(j, alice, bob, uint256.NewInt(7)))
	j.Revert()

	assert.Equal(t, uint64(50), s.BalanceOf(alice).Uint64())
	assert.True(t, s.BalanceOf(bob).IsZero())
	assert.True(t, s.Allowance(alice, bob).IsZero())
	assert.Equal(t, []common.Address{alice}, s.Holders())
}

func TestSpendAllowance(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Approve(nil, alice, bob, uint256.NewInt(30)))

	require.NoError(t, s.SpendAllowance(nil, alice, bob, uint256.NewInt(20)))
	assert.Equal(t, uint64(10), s.Allowance(alice, bob).Uint64())

	require.ErrorIs(t, s.SpendAllowance(nil, alice, bob, uint256.NewInt(11)), ErrInsufficientAllowance)
	assert.Equal(t, uint64(10), s.Allowance(alice, bob).Uint64())
}

func TestUnlimitedAllowanceNotDecremented(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Approve(nil, alice, bob, types.Unlimited()))
	require.NoError(t, s.SpendAllowance(nil, alice, bob, types.Units(1_000_000)))
	assert.True(t, types.IsUnlimited(s.Allowance(alice, bob)))
}

func TestLoadRoundTrip(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Credit(nil, alice, uint256.NewInt(5)))
	require.NoError(t, s.Approve(nil, alice, bob, uint256.NewInt(3)))

	restored := NewStore()
	restored.Load(s.Balances(), s.Allowances())

	assert.Equal(t, s.BalanceOf(alice), restored.BalanceOf(alice))
	assert.Equal(t, s.Allowance(alice, bob), restored.Allowance(alice, bob))
}
