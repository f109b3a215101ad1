package supply

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovekush-pitchmatter/capshield-smart-contract/account"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/internal/journal"
	"github.com/lovekush-pitchmatter/capshield-smart-contract/types"
)

var holder = common.HexToAddress("0x1000000000000000000000000000000000000001")

func newPolicy(t *testing.T, maxSupply *uint256.Int) (*Policy, *account.Store) {
	t.Helper()
	accounts := account.NewStore()
	p, err := NewPolicy(maxSupply, accounts)
	require.NoError(t, err)
	return p, accounts
}

func TestNewPolicyRejectsZeroCap(t *testing.T) {
	_, err := NewPolicy(new(uint256.Int), account.NewStore())
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestMintBurnKeepsMintedMonotonic(t *testing.T) {
	maxSupply := types.Units(1_000_000)
	p, accounts := newPolicy(t, maxSupply)

	require.NoError(t, p.TryMint(nil, holder, maxSupply))
	assert.Equal(t, maxSupply, p.TotalSupply())

	require.NoError(t, p.Burn(nil, holder, uint256.NewInt(1000)))
	assert.Equal(t, new(uint256.Int).Sub(maxSupply, uint256.NewInt(1000)), p.TotalSupply())
	assert.Equal(t, maxSupply, p.TotalMinted())
	assert.True(t, p.RemainingCapacity().IsZero())
	assert.Equal(t, accounts.Sum(), p.TotalSupply())

	err := p.TryMint(nil, holder, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrMaxSupplyExceeded)
	assert.Equal(t, maxSupply, p.TotalMinted())
}

func TestTryMintValidation(t *testing.T) {
	p, _ := newPolicy(t, types.Units(10))

	require.ErrorIs(t, p.TryMint(nil, common.Address{}, uint256.NewInt(1)), types.ErrZeroAddress)
	require.ErrorIs(t, p.TryMint(nil, holder, new(uint256.Int)), types.ErrInvalidAmount)
	require.ErrorIs(t, p.TryMint(nil, holder, types.Unlimited()), ErrMaxSupplyExceeded)
	assert.True(t, p.TotalMinted().IsZero())
}

func TestCanMint(t *testing.T) {
	p, _ := newPolicy(t, uint256.NewInt(100))
	require.NoError(t, p.TryMint(nil, holder, uint256.NewInt(60)))

	assert.True(t, p.CanMint(uint256.NewInt(40)))
	assert.False(t, p.CanMint(uint256.NewInt(41)))
	assert.False(t, p.CanMint(new(uint256.Int)))
}

func TestRevertRestoresCounters(t *testing.T) {
	p, accounts := newPolicy(t, uint256.NewInt(100))
	require.NoError(t, p.TryMint(nil, holder, uint256.NewInt(10)))

	j := journal.New()
	require.NoError(t, p.TryMint(j, holder, uint256.NewInt(50)))
	require.NoError(t, p.Burn(j, holder, uint256.NewInt(5)))
	j.Revert()

	assert.Equal(t, uint64(10), p.TotalMinted().Uint64())
	assert.Equal(t, uint64(10), p.TotalSupply().Uint64())
	assert.Equal(t, uint64(10), accounts.BalanceOf(holder).Uint64())
}

func TestBurnFeeZeroIsNoop(t *testing.T) {
	p, _ := newPolicy(t, uint256.NewInt(100))
	require.NoError(t, p.BurnFee(nil, holder, new(uint256.Int)))
	require.ErrorIs(t, p.Burn(nil, holder, new(uint256.Int)), types.ErrInvalidAmount)
}

func TestLoadValidatesCheckpoint(t *testing.T) {
	p, accounts := newPolicy(t, uint256.NewInt(100))
	accounts.Load(map[common.Address]*uint256.Int{holder: uint256.NewInt(30)}, nil)

	require.ErrorIs(t, p.Load(uint256.NewInt(101), uint256.NewInt(30)), ErrMaxSupplyExceeded)
	require.ErrorIs(t, p.Load(uint256.NewInt(50), uint256.NewInt(31)), types.ErrInvalidAmount)
	require.NoError(t, p.Load(uint256.NewInt(50), uint256.NewInt(30)))
	assert.Equal(t, uint64(50), p.RemainingCapacity().Uint64())
}
