package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquifer-labs/aquifer/internal/accountmap"
	"github.com/aquifer-labs/aquifer/internal/token"
)

func TestStakeDepositIssuesSequentialSeeds(t *testing.T) {
	p := newTestPool()
	_, err := p.Deposit(10_000)
	require.NoError(t, err)
	require.NoError(t, p.AddValidator(testKey(1), testKey(11)))

	for want := uint64(0); want < 3; want++ {
		seed, err := p.StakeDeposit(testKey(1), 1000)
		require.NoError(t, err)
		assert.Equal(t, want, seed)
	}

	v, err := p.Validators.Get(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, SeedRange{Begin: 0, End: 3}, v.Value.StakeSeeds)
	assert.Equal(t, token.Lamports(3000), v.Value.StakeAccountsBalance)
	assert.Equal(t, token.Lamports(7000), p.ReserveBalance)
}

func TestStakeDepositGuards(t *testing.T) {
	p := newTestPool()
	_, err := p.Deposit(10_000)
	require.NoError(t, err)
	require.NoError(t, p.AddValidator(testKey(1), testKey(11)))

	_, err = p.StakeDeposit(testKey(1), 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = p.StakeDeposit(testKey(1), 10_001)
	assert.ErrorIs(t, err, ErrAmountExceedsReserve)

	_, err = p.StakeDeposit(testKey(9), 1000)
	assert.ErrorIs(t, err, accountmap.ErrEntryNotFound)

	require.NoError(t, p.DeactivateValidator(testKey(1)))
	_, err = p.StakeDeposit(testKey(1), 1000)
	assert.ErrorIs(t, err, ErrStakeToInactiveValidator)
}

func TestStakeDepositKeepsValidatorsBalanced(t *testing.T) {
	p := newTestPool()
	_, err := p.Deposit(10_000)
	require.NoError(t, err)
	require.NoError(t, p.AddValidator(testKey(1), testKey(11)))
	require.NoError(t, p.AddValidator(testKey(2), testKey(12)))

	// Both start at zero, either may receive stake.
	_, err = p.StakeDeposit(testKey(1), 1000)
	require.NoError(t, err)

	// Validator 2 now has strictly less stake, so it must come first.
	_, err = p.StakeDeposit(testKey(1), 1000)
	assert.ErrorIs(t, err, ErrValidatorWithLessStakeExists)

	_, err = p.StakeDeposit(testKey(2), 1000)
	require.NoError(t, err)

	// Inactive validators do not participate in the balance check.
	require.NoError(t, p.DeactivateValidator(testKey(2)))
	_, err = p.StakeDeposit(testKey(1), 1000)
	require.NoError(t, err)
}

func TestUnstake(t *testing.T) {
	p := stakedPool(t, 10_000)

	seed, err := p.Unstake(testKey(1), 4000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seed)

	v, err := p.Validators.Get(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(10_000), v.Value.StakeAccountsBalance)
	assert.Equal(t, token.Lamports(4000), v.Value.UnstakeAccountsBalance)
	assert.Equal(t, token.Lamports(6000), v.Value.EffectiveStakeBalance())
	assert.Equal(t, SeedRange{Begin: 0, End: 1}, v.Value.UnstakeSeeds)
}

func TestUnstakeGuards(t *testing.T) {
	p := stakedPool(t, 10_000)

	_, err := p.Unstake(testKey(1), 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = p.Unstake(testKey(1), 10_001)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestUnstakeTakesFromLargestValidator(t *testing.T) {
	p := stakedPool(t, 10_000)
	require.NoError(t, p.AddValidator(testKey(2), testKey(12)))
	_, err := p.StakeDeposit(testKey(2), 4000)
	require.NoError(t, err)

	// Validator 2 holds less than validator 1.
	_, err = p.Unstake(testKey(2), 1000)
	assert.ErrorIs(t, err, ErrValidatorWithMoreStakeExists)

	_, err = p.Unstake(testKey(1), 1000)
	assert.NoError(t, err)
}

func TestUnstakeFromInactiveValidatorUnrestricted(t *testing.T) {
	p := stakedPool(t, 10_000)
	require.NoError(t, p.AddValidator(testKey(2), testKey(12)))
	_, err := p.StakeDeposit(testKey(2), 4000)
	require.NoError(t, err)
	require.NoError(t, p.DeactivateValidator(testKey(2)))

	// Inactive validators are drained regardless of who holds more.
	_, err = p.Unstake(testKey(2), 4000)
	assert.NoError(t, err)
}

func TestUnstakeAccountLimit(t *testing.T) {
	p := stakedPool(t, 10_000)

	for i := 0; i < MaximumUnstakeAccounts; i++ {
		_, err := p.Unstake(testKey(1), 100)
		require.NoError(t, err)
	}
	_, err := p.Unstake(testKey(1), 100)
	assert.ErrorIs(t, err, ErrMaximumUnstakeAccountsExceeded)

	// Settling the oldest unstake account frees a slot.
	_, err = p.SettleUnstake(testKey(1), 100)
	require.NoError(t, err)
	_, err = p.Unstake(testKey(1), 100)
	assert.NoError(t, err)
}

func TestUpdateStakeAccountBalanceRecognizesDonations(t *testing.T) {
	p := stakedPool(t, 10_000)

	donation, err := p.UpdateStakeAccountBalance(testKey(1), 10_500)
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(500), donation)

	v, err := p.Validators.Get(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(10_500), v.Value.StakeAccountsBalance)

	// Unchanged balance is a zero donation.
	donation, err = p.UpdateStakeAccountBalance(testKey(1), 10_500)
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(0), donation)
}

func TestUpdateStakeAccountBalanceRejectsDecrease(t *testing.T) {
	p := stakedPool(t, 10_000)
	_, err := p.UpdateStakeAccountBalance(testKey(1), 9_999)
	assert.ErrorIs(t, err, ErrValidatorBalanceDecreased)

	v, verr := p.Validators.Get(testKey(1))
	require.NoError(t, verr)
	assert.Equal(t, token.Lamports(10_000), v.Value.StakeAccountsBalance)
}

func TestWithdrawInactiveStake(t *testing.T) {
	p := stakedPool(t, 10_000)

	require.NoError(t, p.WithdrawInactiveStake(testKey(1), 3000))
	assert.Equal(t, token.Lamports(3000), p.ReserveBalance)

	v, err := p.Validators.Get(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(7000), v.Value.StakeAccountsBalance)
}

func TestWithdrawInactiveStakeProtectsUnstakeBalance(t *testing.T) {
	p := stakedPool(t, 10_000)
	_, err := p.Unstake(testKey(1), 4000)
	require.NoError(t, err)

	err = p.WithdrawInactiveStake(testKey(1), 6001)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	require.NoError(t, p.WithdrawInactiveStake(testKey(1), 6000))
}

func TestSettleUnstake(t *testing.T) {
	p := stakedPool(t, 10_000)
	_, err := p.Unstake(testKey(1), 4000)
	require.NoError(t, err)

	seed, err := p.SettleUnstake(testKey(1), 4000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seed)
	assert.Equal(t, token.Lamports(4000), p.ReserveBalance)

	v, err := p.Validators.Get(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(6000), v.Value.StakeAccountsBalance)
	assert.Equal(t, token.Lamports(0), v.Value.UnstakeAccountsBalance)
	assert.Equal(t, SeedRange{Begin: 1, End: 1}, v.Value.UnstakeSeeds)
}

func TestSettleUnstakeWithoutAccounts(t *testing.T) {
	p := stakedPool(t, 10_000)
	_, err := p.SettleUnstake(testKey(1), 100)
	assert.ErrorIs(t, err, ErrInvalidStakeAccount)
}

func TestSettleUnstakeBeyondTracked(t *testing.T) {
	p := stakedPool(t, 10_000)
	_, err := p.Unstake(testKey(1), 100)
	require.NoError(t, err)

	_, err = p.SettleUnstake(testKey(1), 101)
	assert.ErrorIs(t, err, token.ErrCalculation)
}

func TestMergeStake(t *testing.T) {
	p := newTestPool()
	_, err := p.Deposit(10_000)
	require.NoError(t, err)
	require.NoError(t, p.AddValidator(testKey(1), testKey(11)))

	_, err = p.MergeStake(testKey(1))
	assert.ErrorIs(t, err, ErrInvalidStakeAccount)

	_, err = p.StakeDeposit(testKey(1), 1000)
	require.NoError(t, err)
	_, err = p.MergeStake(testKey(1))
	assert.ErrorIs(t, err, ErrInvalidStakeAccount)

	_, err = p.StakeDeposit(testKey(1), 1000)
	require.NoError(t, err)
	from, to, err := p.MergeStake(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), from)
	assert.Equal(t, uint64(1), to)

	v, verr := p.Validators.Get(testKey(1))
	require.NoError(t, verr)
	assert.Equal(t, SeedRange{Begin: 1, End: 2}, v.Value.StakeSeeds)
	assert.Equal(t, token.Lamports(2000), v.Value.StakeAccountsBalance)
}

func TestEffectiveStakeBalancePanicsOnCorruptBookkeeping(t *testing.T) {
	v := Validator{StakeAccountsBalance: 10, UnstakeAccountsBalance: 11}
	assert.Panics(t, func() { v.EffectiveStakeBalance() })
}
