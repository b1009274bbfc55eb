package planner

import (
	"errors"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/aquifer-labs/aquifer/internal/logger"
	"github.com/aquifer-labs/aquifer/internal/pool"
	"github.com/aquifer-labs/aquifer/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPool        = errors.New("pool state is invalid")
	ErrInvalidParameters  = errors.New("planner parameters contain invalid values")
	ErrNoActiveValidators = errors.New("pool has no active validators")
	ErrTargetOverflow     = errors.New("stake target does not fit in uint64")
)

// StakeTarget is the desired effective stake for one validator.
type StakeTarget struct {
	VoteAccount solana.PublicKey
	Current     uint64 // Effective stake right now
	Target      uint64 // Desired effective stake after balancing
	Active      bool
}

// ComputeStakeTargets derives the per-validator effective stake targets.
// The spendable reserve plus all active effective stake is split equally
// across the active validators, remainder to the first; deactivated
// validators always target zero.
func ComputeStakeTargets(p *pool.Pool, params types.PlannerParameters) ([]StakeTarget, error) {
	if err := validateInputs(p, params); err != nil {
		return nil, err
	}

	activeCount := p.ActiveValidatorCount()
	if activeCount == 0 {
		return nil, ErrNoActiveValidators
	}

	// Sum with arbitrary precision; individual balances are u64 and the
	// total of many validators can exceed it.
	total := sdkmath.NewIntFromUint64(spendableReserve(p, params))
	for i := range p.Validators.Entries {
		v := &p.Validators.Entries[i].Value
		if !v.Active {
			continue
		}
		total = total.Add(sdkmath.NewIntFromUint64(uint64(v.EffectiveStakeBalance())))
	}

	perValidator := total.Quo(sdkmath.NewIntFromUint64(activeCount))
	remainder := total.Mod(sdkmath.NewIntFromUint64(activeCount))

	if !perValidator.Add(remainder).IsUint64() {
		return nil, ErrTargetOverflow
	}

	targets := make([]StakeTarget, 0, len(p.Validators.Entries))
	first := true
	for i := range p.Validators.Entries {
		entry := &p.Validators.Entries[i]
		target := StakeTarget{
			VoteAccount: entry.Pubkey,
			Current:     uint64(entry.Value.EffectiveStakeBalance()),
			Active:      entry.Value.Active,
		}
		if entry.Value.Active {
			target.Target = perValidator.Uint64()
			if first {
				target.Target += remainder.Uint64()
				first = false
			}
		}
		targets = append(targets, target)
	}

	return targets, nil
}

// GenerateStakePlan emits the stake movements that walk the pool toward
// its targets: drain deactivated validators, top up understaked active
// ones from the reserve, and queue overweight active stake for
// deactivation. Action order respects the pool's balanced-staking
// guards when the plan is applied sequentially.
func GenerateStakePlan(p *pool.Pool, params types.PlannerParameters) (types.StakePlan, error) {
	plannerLogger := logger.GetForComponent("stake_planner")

	targets, err := ComputeStakeTargets(p, params)
	if err != nil {
		return types.StakePlan{}, err
	}

	var actions []types.StakeAction

	// ===== DRAIN DEACTIVATED VALIDATORS =====
	for _, target := range targets {
		if target.Active || target.Current == 0 {
			continue
		}
		if unstakeSlotsFull(p, target.VoteAccount) {
			plannerLogger.Warn().
				Str("voteAccount", target.VoteAccount.String()).
				Msg("Deactivated validator has no free unstake accounts, deferring drain")
			continue
		}
		actions = append(actions, types.StakeAction{
			Type:        types.ActionUnstake,
			VoteAccount: target.VoteAccount.String(),
			Amount:      target.Current,
			Reason:      "validator deactivated, draining remaining stake",
		})
	}

	// ===== TOP UP UNDERSTAKED VALIDATORS =====
	var understaked []StakeTarget
	for _, target := range targets {
		if target.Active && target.Target > target.Current &&
			target.Target-target.Current >= params.MinStakeDeltaLamports {
			understaked = append(understaked, target)
		}
	}
	// Least-staked first: stake may only go to the active validator no
	// other active validator undercuts.
	sort.Slice(understaked, func(i, j int) bool {
		return understaked[i].Current < understaked[j].Current
	})

	remaining := spendableReserve(p, params)
	for _, target := range understaked {
		amount := target.Target - target.Current
		if amount > remaining {
			amount = remaining
		}
		if amount < params.MinStakeDeltaLamports {
			plannerLogger.Debug().
				Str("voteAccount", target.VoteAccount.String()).
				Uint64("deficit", target.Target-target.Current).
				Uint64("spendable", remaining).
				Msg("Reserve too low to top up validator this cycle")
			continue
		}
		remaining -= amount
		actions = append(actions, types.StakeAction{
			Type:        types.ActionStakeDeposit,
			VoteAccount: target.VoteAccount.String(),
			Amount:      amount,
			Reason:      "validator below effective stake target",
		})
	}

	// ===== UNSTAKE OVERWEIGHT VALIDATORS =====
	var overweight []StakeTarget
	for _, target := range targets {
		if target.Active && target.Current > target.Target &&
			target.Current-target.Target >= params.MinStakeDeltaLamports {
			overweight = append(overweight, target)
		}
	}
	// Most-staked first: only the heaviest active validator may be unstaked.
	sort.Slice(overweight, func(i, j int) bool {
		return overweight[i].Current > overweight[j].Current
	})

	for _, target := range overweight {
		if unstakeSlotsFull(p, target.VoteAccount) {
			plannerLogger.Warn().
				Str("voteAccount", target.VoteAccount.String()).
				Msg("Overweight validator has no free unstake accounts, deferring")
			continue
		}
		actions = append(actions, types.StakeAction{
			Type:        types.ActionUnstake,
			VoteAccount: target.VoteAccount.String(),
			Amount:      target.Current - target.Target,
			Reason:      "validator above effective stake target",
		})
	}

	// ===== APPLY THE PER-CYCLE ACTION LIMIT =====
	if len(actions) > params.MaxActionsPerCycle {
		plannerLogger.Warn().
			Int("planned", len(actions)).
			Int("limit", params.MaxActionsPerCycle).
			Msg("Plan exceeds per-cycle action limit, deferring the tail")
		actions = actions[:params.MaxActionsPerCycle]
	}

	plan := types.StakePlan{
		GoalDescription: fmt.Sprintf("equalize effective stake across %d active validators", p.ActiveValidatorCount()),
		Actions:         actions,
	}

	plannerLogger.Info().
		Int("actionCount", len(actions)).
		Str("goal", plan.GoalDescription).
		Msg("Stake plan generated")

	return plan, nil
}

// validateInputs performs comprehensive validation of all input parameters
func validateInputs(p *pool.Pool, params types.PlannerParameters) error {
	if p == nil {
		return errors.Join(ErrInvalidPool, errors.New("pool cannot be nil"))
	}
	if params.MinStakeDeltaLamports == 0 {
		return errors.Join(ErrInvalidParameters, errors.New("minimum stake delta cannot be zero"))
	}
	if params.MaxActionsPerCycle <= 0 {
		return errors.Join(ErrInvalidParameters,
			fmt.Errorf("max actions per cycle must be positive, got %d", params.MaxActionsPerCycle))
	}
	return nil
}

// spendableReserve is the reserve minus the liquidity buffer.
func spendableReserve(p *pool.Pool, params types.PlannerParameters) uint64 {
	reserve := uint64(p.ReserveBalance)
	if reserve <= params.ReserveBufferLamports {
		return 0
	}
	return reserve - params.ReserveBufferLamports
}

// unstakeSlotsFull reports whether the validator has no unstake account
// seeds left for another deactivation.
func unstakeSlotsFull(p *pool.Pool, vote solana.PublicKey) bool {
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return true
	}
	return entry.Value.UnstakeSeeds.Count() >= pool.MaximumUnstakeAccounts
}
