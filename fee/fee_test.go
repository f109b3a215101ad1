package fee

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
	sender   = common.HexToAddress("0x3000000000000000000000000000000000000003")
	receiver = common.HexToAddress("0x4000000000000000000000000000000000000004")
	treasury = common.HexToAddress("0x5000000000000000000000000000000000000005")
)

func TestDefaultRateSplit(t *testing.T) {
	tests := []struct {
		amount    uint64
		recipient uint64
		burn      uint64
		treasury  uint64
	}{
		{0, 0, 0, 0},
		{1, 1, 0, 0},
		{2, 2, 0, 0},
		{99, 99, 0, 0},
		{100, 98, 1, 1},
		{199, 197, 1, 1},
		{1000, 980, 10, 10},
	}

	for _, tt := range tests {
		b, err := DefaultRate.Split(uint256.NewInt(tt.amount))
		require.NoError(t, err)
		assert.Equal(t, tt.recipient, b.Recipient.Uint64(), "recipient of %d", tt.amount)
		assert.Equal(t, tt.burn, b.Burn.Uint64(), "burn of %d", tt.amount)
		assert.Equal(t, tt.treasury, b.Treasury.Uint64(), "treasury of %d", tt.amount)
		assert.Equal(t, tt.amount, b.Total().Uint64())
	}
}

func TestSplitLargeAmountIsExact(t *testing.T) {
	amount := types.Unlimited()
	b, err := DefaultRate.Split(amount)
	require.NoError(t, err)
	assert.Equal(t, amount, b.Total())
}

func TestNewRate(t *testing.T) {
	_, err := NewRate(6000, 5000)
	require.ErrorIs(t, err, ErrInvalidRate)

	r, err := NewRate(250, 0)
	require.NoError(t, err)
	assert.True(t, r.Charges())
}

func TestNoneNeverCharges(t *testing.T) {
	b, err := None{}.Split(uint256.NewInt(1000))
	require.NoError(t, err)
	assert.False(t, b.Charged())
	assert.Equal(t, uint64(1000), b.Recipient.Uint64())
}

func TestExemptionShortCircuits(t *testing.T) {
	ex := NewExemptions()
	_, err := ex.Set(nil, treasury, true)
	require.NoError(t, err)
	e := NewEngine(DefaultRate, ex)

	for _, pair := range [][2]common.Address{{treasury, receiver}, {sender, treasury}} {
		b, err := e.Settle(pair[0], pair[1], uint256.NewInt(1000))
		require.NoError(t, err)
		assert.True(t, b.Exempt)
		assert.False(t, b.Charged())
		assert.Equal(t, uint64(1000), b.Recipient.Uint64())
	}

	b, err := e.Settle(sender, receiver, uint256.NewInt(1000))
	require.NoError(t, err)
	assert.False(t, b.Exempt)
	assert.Equal(t, uint64(980), b.Recipient.Uint64())
}

func TestExemptionsJournal(t *testing.T) {
	ex := NewExemptions()
	j := journal.New()

	changed, err := ex.Set(j, sender, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = ex.Set(j, sender, true)
	require.NoError(t, err)
	assert.False(t, changed)

	j.Revert()
	assert.False(t, ex.IsExempt(sender))

	_, err = ex.Set(nil, common.Address{}, true)
	require.ErrorIs(t, err, types.ErrZeroAddress)
}
