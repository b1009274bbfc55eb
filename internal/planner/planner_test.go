package planner

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquifer-labs/aquifer/internal/pool"
	"github.com/aquifer-labs/aquifer/internal/token"
	"github.com/aquifer-labs/aquifer/internal/types"
)

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	return k
}

// testPool returns a pool holding the given reserve with one validator
// per stake amount, funded through observed balance updates the way the
// maintainer reconciles real stake accounts. Validator i votes with
// testKey(i+1).
func testPool(t *testing.T, reserve uint64, stakes ...uint64) *pool.Pool {
	t.Helper()
	p := pool.NewPool(pool.PoolParams{
		Version:   1,
		Manager:   testKey(200),
		StSolMint: testKey(201),
		RewardDistribution: pool.RewardDistribution{
			TreasuryFee:       3,
			ValidationFee:     2,
			DeveloperFee:      1,
			StSolAppreciation: 0,
		},
		FeeRecipients: pool.FeeRecipients{
			TreasuryAccount:  testKey(202),
			DeveloperAccount: testKey(203),
		},
		MaxValidators:  16,
		MaxMaintainers: 4,
	})
	if reserve > 0 {
		_, err := p.Deposit(token.Lamports(reserve))
		require.NoError(t, err)
	}
	for i, stake := range stakes {
		vote := testKey(byte(i + 1))
		require.NoError(t, p.AddValidator(vote, testKey(byte(i+101))))
		if stake > 0 {
			_, err := p.UpdateStakeAccountBalance(vote, token.Lamports(stake))
			require.NoError(t, err)
		}
	}
	return p
}

func testParams() types.PlannerParameters {
	return types.PlannerParameters{
		MinStakeDeltaLamports: 1,
		ReserveBufferLamports: 0,
		MaxActionsPerCycle:    8,
	}
}

func TestComputeStakeTargetsSplitsEvenly(t *testing.T) {
	p := testPool(t, 600, 100, 200, 300)

	targets, err := ComputeStakeTargets(p, testParams())
	require.NoError(t, err)
	require.Len(t, targets, 3)

	for i, target := range targets {
		assert.Equal(t, testKey(byte(i+1)), target.VoteAccount)
		assert.True(t, target.Active)
		assert.Equal(t, uint64(400), target.Target)
	}
	assert.Equal(t, uint64(100), targets[0].Current)
	assert.Equal(t, uint64(200), targets[1].Current)
	assert.Equal(t, uint64(300), targets[2].Current)
}

func TestComputeStakeTargetsRemainderToFirst(t *testing.T) {
	p := testPool(t, 101, 0, 0)

	targets, err := ComputeStakeTargets(p, testParams())
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, uint64(51), targets[0].Target)
	assert.Equal(t, uint64(50), targets[1].Target)
}

func TestComputeStakeTargetsInactiveTargetsZero(t *testing.T) {
	p := testPool(t, 300, 100, 200, 300)
	require.NoError(t, p.DeactivateValidator(testKey(3)))

	targets, err := ComputeStakeTargets(p, testParams())
	require.NoError(t, err)
	require.Len(t, targets, 3)

	// The deactivated validator's stake does not count toward the split.
	assert.Equal(t, uint64(300), targets[0].Target)
	assert.Equal(t, uint64(300), targets[1].Target)
	assert.False(t, targets[2].Active)
	assert.Equal(t, uint64(0), targets[2].Target)
	assert.Equal(t, uint64(300), targets[2].Current)
}

func TestComputeStakeTargetsRespectsReserveBuffer(t *testing.T) {
	p := testPool(t, 100, 0)
	params := testParams()
	params.ReserveBufferLamports = 40

	targets, err := ComputeStakeTargets(p, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), targets[0].Target)

	// A reserve at or below the buffer is not spendable at all.
	params.ReserveBufferLamports = 100
	targets, err = ComputeStakeTargets(p, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), targets[0].Target)
}

func TestComputeStakeTargetsSumBeyondUint64(t *testing.T) {
	p := testPool(t, 0, math.MaxUint64, math.MaxUint64)

	// The combined stake exceeds uint64 but each per-validator
	// target still fits.
	targets, err := ComputeStakeTargets(p, testParams())
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), targets[0].Target)
	assert.Equal(t, uint64(math.MaxUint64), targets[1].Target)
}

func TestComputeStakeTargetsOverflow(t *testing.T) {
	p := testPool(t, 2, math.MaxUint64, math.MaxUint64)

	_, err := ComputeStakeTargets(p, testParams())
	assert.ErrorIs(t, err, ErrTargetOverflow)
}

func TestComputeStakeTargetsValidation(t *testing.T) {
	_, err := ComputeStakeTargets(nil, testParams())
	assert.ErrorIs(t, err, ErrInvalidPool)

	p := testPool(t, 100, 50)

	params := testParams()
	params.MinStakeDeltaLamports = 0
	_, err = ComputeStakeTargets(p, params)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	params = testParams()
	params.MaxActionsPerCycle = 0
	_, err = ComputeStakeTargets(p, params)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	require.NoError(t, p.DeactivateValidator(testKey(1)))
	_, err = ComputeStakeTargets(p, testParams())
	assert.ErrorIs(t, err, ErrNoActiveValidators)
}

func TestGenerateStakePlanTopsUpAndUnstakes(t *testing.T) {
	p := testPool(t, 700, 100, 200, 700, 1000)
	params := testParams()
	params.MinStakeDeltaLamports = 50

	plan, err := GenerateStakePlan(p, params)
	require.NoError(t, err)

	// Target is 675 each. The reserve funds the least-staked validator
	// first and the second one takes whatever is left; validator 3's
	// 25 lamport surplus is below the delta threshold.
	require.Len(t, plan.Actions, 3)

	assert.Equal(t, types.ActionStakeDeposit, plan.Actions[0].Type)
	assert.Equal(t, testKey(1).String(), plan.Actions[0].VoteAccount)
	assert.Equal(t, uint64(575), plan.Actions[0].Amount)

	assert.Equal(t, types.ActionStakeDeposit, plan.Actions[1].Type)
	assert.Equal(t, testKey(2).String(), plan.Actions[1].VoteAccount)
	assert.Equal(t, uint64(125), plan.Actions[1].Amount)

	assert.Equal(t, types.ActionUnstake, plan.Actions[2].Type)
	assert.Equal(t, testKey(4).String(), plan.Actions[2].VoteAccount)
	assert.Equal(t, uint64(325), plan.Actions[2].Amount)

	assert.Contains(t, plan.GoalDescription, "4 active validators")
}

func TestGenerateStakePlanDrainsDeactivatedFirst(t *testing.T) {
	p := testPool(t, 20, 100, 80)
	require.NoError(t, p.DeactivateValidator(testKey(2)))

	plan, err := GenerateStakePlan(p, testParams())
	require.NoError(t, err)
	require.Len(t, plan.Actions, 2)

	assert.Equal(t, types.ActionUnstake, plan.Actions[0].Type)
	assert.Equal(t, testKey(2).String(), plan.Actions[0].VoteAccount)
	assert.Equal(t, uint64(80), plan.Actions[0].Amount)
	assert.Equal(t, "validator deactivated, draining remaining stake", plan.Actions[0].Reason)

	assert.Equal(t, types.ActionStakeDeposit, plan.Actions[1].Type)
	assert.Equal(t, testKey(1).String(), plan.Actions[1].VoteAccount)
	assert.Equal(t, uint64(20), plan.Actions[1].Amount)
}

func TestGenerateStakePlanDefersDrainWhenUnstakeSlotsFull(t *testing.T) {
	p := testPool(t, 0, 100, 90)
	require.NoError(t, p.DeactivateValidator(testKey(2)))

	// Occupy every unstake account of the deactivated validator.
	for i := 0; i < pool.MaximumUnstakeAccounts; i++ {
		_, err := p.Unstake(testKey(2), 10)
		require.NoError(t, err)
	}

	plan, err := GenerateStakePlan(p, testParams())
	require.NoError(t, err)

	for _, action := range plan.Actions {
		assert.NotEqual(t, testKey(2).String(), action.VoteAccount)
	}
}

func TestGenerateStakePlanIgnoresDustImbalance(t *testing.T) {
	p := testPool(t, 0, 100, 104)
	params := testParams()
	params.MinStakeDeltaLamports = 10

	plan, err := GenerateStakePlan(p, params)
	require.NoError(t, err)
	assert.Empty(t, plan.Actions)
}

func TestGenerateStakePlanCapsActionsPerCycle(t *testing.T) {
	p := testPool(t, 500, 0, 0, 0, 0, 0)
	params := testParams()
	params.MaxActionsPerCycle = 3

	plan, err := GenerateStakePlan(p, params)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 3)
	for _, action := range plan.Actions {
		assert.Equal(t, types.ActionStakeDeposit, action.Type)
		assert.Equal(t, uint64(100), action.Amount)
	}
}

func TestGenerateStakePlanEmptyWhenBalanced(t *testing.T) {
	p := testPool(t, 0, 250, 250, 250)

	plan, err := GenerateStakePlan(p, testParams())
	require.NoError(t, err)
	assert.Empty(t, plan.Actions)
}
