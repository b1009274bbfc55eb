package simulation

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aquifer-labs/aquifer/internal/logger"
	"github.com/aquifer-labs/aquifer/internal/pool"
	"github.com/aquifer-labs/aquifer/internal/token"
	"github.com/aquifer-labs/aquifer/internal/types"
)

var simulationLogger = logger.GetForComponent("stake_simulator")

// ActionOutcome records the simulated result of one planned action.
type ActionOutcome struct {
	Action  types.StakeAction
	Seed    uint64 // Stake account seed the action would open
	Success bool
	Message string // Failure reason when Success is false
}

// Result summarizes one dry run.
type Result struct {
	Outcomes     []ActionOutcome
	ReserveAfter uint64 // Reserve balance once the plan has been applied
}

// FailedCount returns how many actions the dry run rejected.
func (r Result) FailedCount() int {
	failed := 0
	for _, outcome := range r.Outcomes {
		if !outcome.Success {
			failed++
		}
	}
	return failed
}

// Apply applies one planned action to the pool and returns the seed of
// the stake account the action opens.
func Apply(p *pool.Pool, action types.StakeAction) (uint64, error) {
	voteAccount, err := solana.PublicKeyFromBase58(action.VoteAccount)
	if err != nil {
		return 0, fmt.Errorf("invalid vote account %q: %w", action.VoteAccount, err)
	}

	switch action.Type {
	case types.ActionStakeDeposit:
		return p.StakeDeposit(voteAccount, token.Lamports(action.Amount))
	case types.ActionUnstake:
		return p.Unstake(voteAccount, token.Lamports(action.Amount))
	default:
		return 0, fmt.Errorf("unknown stake action type: %s", action.Type)
	}
}

// Run applies the plan to a copy of the pool and reports per-action
// outcomes. The pool passed in is never modified.
func Run(p *pool.Pool, plan types.StakePlan) Result {
	mirror := p.Clone()

	result := Result{
		Outcomes: make([]ActionOutcome, 0, len(plan.Actions)),
	}

	for _, action := range plan.Actions {
		outcome := ActionOutcome{Action: action, Success: true}

		seed, err := Apply(mirror, action)
		if err != nil {
			outcome.Success = false
			outcome.Message = err.Error()
			simulationLogger.Warn().
				Str("type", string(action.Type)).
				Str("voteAccount", action.VoteAccount).
				Uint64("amount", action.Amount).
				Err(err).
				Msg("Planned action failed in dry run")
		} else {
			outcome.Seed = seed
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.ReserveAfter = uint64(mirror.ReserveBalance)

	simulationLogger.Info().
		Int("actions", len(plan.Actions)).
		Int("failed", result.FailedCount()).
		Uint64("reserveAfter", result.ReserveAfter).
		Msg("Dry run complete")

	return result
}
