package simulation

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquifer-labs/aquifer/internal/planner"
	"github.com/aquifer-labs/aquifer/internal/pool"
	"github.com/aquifer-labs/aquifer/internal/token"
	"github.com/aquifer-labs/aquifer/internal/types"
)

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	return k
}

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

func TestApplyStakeDeposit(t *testing.T) {
	p := testPool(t, 1000, 0)

	seed, err := Apply(p, types.StakeAction{
		Type:        types.ActionStakeDeposit,
		VoteAccount: testKey(1).String(),
		Amount:      400,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seed)
	assert.Equal(t, token.Lamports(600), p.ReserveBalance)

	v, err := p.Validators.Get(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(400), v.Value.StakeAccountsBalance)
}

func TestApplyUnstake(t *testing.T) {
	p := testPool(t, 0, 500)

	seed, err := Apply(p, types.StakeAction{
		Type:        types.ActionUnstake,
		VoteAccount: testKey(1).String(),
		Amount:      200,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seed)

	v, err := p.Validators.Get(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(200), v.Value.UnstakeAccountsBalance)
	assert.Equal(t, token.Lamports(300), v.Value.EffectiveStakeBalance())
}

func TestApplyRejectsUnknownAction(t *testing.T) {
	p := testPool(t, 1000, 0)

	_, err := Apply(p, types.StakeAction{
		Type:        "REDELEGATE",
		VoteAccount: testKey(1).String(),
		Amount:      100,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stake action type")
}

func TestApplyRejectsBadVoteAccount(t *testing.T) {
	p := testPool(t, 1000, 0)

	_, err := Apply(p, types.StakeAction{
		Type:        types.ActionStakeDeposit,
		VoteAccount: "not-a-key",
		Amount:      100,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid vote account")
}

func TestRunLeavesPoolUntouched(t *testing.T) {
	p := testPool(t, 1000, 0)

	plan := types.StakePlan{Actions: []types.StakeAction{{
		Type:        types.ActionStakeDeposit,
		VoteAccount: testKey(1).String(),
		Amount:      400,
	}}}

	result := Run(p, plan)
	require.Len(t, result.Outcomes, 1)
	assert.True(t, result.Outcomes[0].Success)
	assert.Equal(t, uint64(0), result.Outcomes[0].Seed)
	assert.Equal(t, uint64(600), result.ReserveAfter)
	assert.Equal(t, 0, result.FailedCount())

	// Only the mirror was touched.
	assert.Equal(t, token.Lamports(1000), p.ReserveBalance)
	v, err := p.Validators.Get(testKey(1))
	require.NoError(t, err)
	assert.Equal(t, token.Lamports(0), v.Value.StakeAccountsBalance)
}

func TestRunContinuesPastFailures(t *testing.T) {
	p := testPool(t, 1000, 0)

	plan := types.StakePlan{Actions: []types.StakeAction{
		{
			Type:        types.ActionStakeDeposit,
			VoteAccount: testKey(1).String(),
			Amount:      2000, // More than the reserve holds
		},
		{
			Type:        types.ActionStakeDeposit,
			VoteAccount: testKey(1).String(),
			Amount:      300,
		},
	}}

	result := Run(p, plan)
	require.Len(t, result.Outcomes, 2)
	assert.False(t, result.Outcomes[0].Success)
	assert.NotEmpty(t, result.Outcomes[0].Message)
	assert.True(t, result.Outcomes[1].Success)
	assert.Equal(t, 1, result.FailedCount())
	assert.Equal(t, uint64(700), result.ReserveAfter)
}

func TestRunAcceptsGeneratedPlan(t *testing.T) {
	p := testPool(t, 800, 100, 200, 700, 1000)
	params := types.PlannerParameters{
		MinStakeDeltaLamports: 50,
		ReserveBufferLamports: 100,
		MaxActionsPerCycle:    8,
	}

	plan, err := planner.GenerateStakePlan(p, params)
	require.NoError(t, err)
	require.NotEmpty(t, plan.Actions)

	// Every planned action must clear the pool's balanced-staking
	// guards when applied in plan order.
	result := Run(p, plan)
	assert.Equal(t, 0, result.FailedCount())
	assert.Equal(t, uint64(100), result.ReserveAfter)
}
