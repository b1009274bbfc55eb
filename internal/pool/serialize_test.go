package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquifer-labs/aquifer/internal/accountmap"
)

// The serialized layout is a compatibility contract; these constants
// must never drift.
func TestLayoutConstants(t *testing.T) {
	assert.Equal(t, 24, ExchangeRateSize)
	assert.Equal(t, 16, SeedRangeSize)
	assert.Equal(t, 89, ValidatorConstantSize)
	assert.Equal(t, 16, RewardDistributionSize)
	assert.Equal(t, 64, FeeRecipientsSize)
	assert.Equal(t, 104, LamportsHistogramSize)
	assert.Equal(t, 24, WithdrawMetricSize)
	assert.Equal(t, 184, MetricsSize)
	assert.Equal(t, 373, PoolConstantSize)

	assert.Equal(t, 121, accountmap.EntrySize[Validator]())
}

func TestRequiredBytes(t *testing.T) {
	// Tag + constants + two registry headers with no entries.
	assert.Equal(t, 8+373+8+8, RequiredBytes(0, 0))
	assert.Equal(t, 8+373+8+2*121+8+3*32, RequiredBytes(2, 3))
}

// populatedPool exercises every field so the round trip cannot pass on
// zero values.
func populatedPool(t *testing.T) *Pool {
	t.Helper()
	p := newTestPool()
	p.ReserveAccountBumpSeed = 251
	p.StakeAuthorityBumpSeed = 252
	p.MintAuthorityBumpSeed = 253
	p.RewardsWithdrawAuthorityBumpSeed = 254

	_, err := p.Deposit(1_000_000)
	require.NoError(t, err)
	require.NoError(t, p.AddValidator(testKey(1), testKey(11)))
	require.NoError(t, p.AddValidator(testKey(2), testKey(12)))
	require.NoError(t, p.AddMaintainer(testKey(30)))
	require.NoError(t, p.UpdateExchangeRate(7))

	_, err = p.StakeDeposit(testKey(1), 300_000)
	require.NoError(t, err)
	_, err = p.StakeDeposit(testKey(2), 300_000)
	require.NoError(t, err)
	_, err = p.Unstake(testKey(1), 1234)
	require.NoError(t, err)
	_, err = p.DistributeFees(600, 7)
	require.NoError(t, err)
	_, err = p.Withdraw(testKey(2), 5000, 7)
	require.NoError(t, err)
	return p
}

func TestMarshalRoundTrip(t *testing.T) {
	p := populatedPool(t)

	data, err := p.Marshal()
	require.NoError(t, err)
	assert.Equal(t, p.MarshaledSize(), len(data))

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, p, restored)
}

func TestMarshaledSizeTracksRegistries(t *testing.T) {
	p := newTestPool()
	base := p.MarshaledSize()
	assert.Equal(t, AccountTagSize+PoolConstantSize+2*accountmap.HeaderSize, base)

	require.NoError(t, p.AddValidator(testKey(1), testKey(11)))
	assert.Equal(t, base+121, p.MarshaledSize())

	require.NoError(t, p.AddMaintainer(testKey(30)))
	assert.Equal(t, base+121+32, p.MarshaledSize())
}

// A pool filled to capacity must serialize to exactly the buffer that
// RequiredBytes promised at creation.
func TestFilledPoolMatchesRequiredBytes(t *testing.T) {
	p := NewPool(PoolParams{MaxValidators: 3, MaxMaintainers: 2})
	for i := byte(0); i < 3; i++ {
		require.NoError(t, p.AddValidator(testKey(i+1), testKey(i+11)))
	}
	for i := byte(0); i < 2; i++ {
		require.NoError(t, p.AddMaintainer(testKey(i + 30)))
	}

	data, err := p.Marshal()
	require.NoError(t, err)
	assert.Equal(t, RequiredBytes(3, 2), len(data))
}

func TestUnmarshalRejectsForeignData(t *testing.T) {
	_, err := Unmarshal([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidPoolData)

	_, err = Unmarshal([]byte("not a pool account, definitely"))
	assert.ErrorIs(t, err, ErrInvalidPoolData)
}

func TestUnmarshalRejectsTruncatedData(t *testing.T) {
	p := populatedPool(t)
	data, err := p.Marshal()
	require.NoError(t, err)

	_, err = Unmarshal(data[:len(data)-1])
	assert.Error(t, err)
}
