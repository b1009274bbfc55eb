package maintainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aquifer-labs/aquifer/internal/logger"
	"github.com/aquifer-labs/aquifer/internal/observer"
	"github.com/aquifer-labs/aquifer/internal/planner"
	"github.com/aquifer-labs/aquifer/internal/pool"
	"github.com/aquifer-labs/aquifer/internal/simulation"
	"github.com/aquifer-labs/aquifer/internal/state"
	"github.com/aquifer-labs/aquifer/internal/telemetry"
	"github.com/aquifer-labs/aquifer/internal/token"
	"github.com/aquifer-labs/aquifer/internal/types"
	"github.com/aquifer-labs/aquifer/internal/utils"
)

const (
	// Export constants for use in main.go
	DEFAULT_PLANNER_CONFIG_NAME    = "default_aquifer_strategy"
	DEFAULT_PLANNER_CONFIG_VERSION = 1
)

// Maintainer drives the per-epoch maintenance protocol against the
// pool mirror and persists every cycle's outcome
type Maintainer struct {
	// Core dependencies
	logger        zerolog.Logger
	observer      observer.ChainObserver
	pool          *pool.Pool
	plannerParams *types.PlannerParameters

	// Configuration
	configName    string
	configVersion int

	// Runtime state
	cycleCount int
}

// Config holds the configuration for creating a new Maintainer instance
type Config struct {
	Observer      observer.ChainObserver
	Pool          *pool.Pool
	PlannerParams *types.PlannerParameters
	ConfigName    string
	ConfigVersion int
}

// NewMaintainer creates a new Maintainer instance with dependency injection
func NewMaintainer(cfg Config) (*Maintainer, error) {
	// Validate required dependencies
	if err := validateMaintainerConfig(cfg); err != nil {
		return nil, fmt.Errorf("maintainer configuration validation failed: %w", err)
	}

	m := &Maintainer{
		logger:        logger.GetForComponent("maintainer_core"),
		observer:      cfg.Observer,
		pool:          cfg.Pool,
		plannerParams: cfg.PlannerParams,
		configName:    cfg.ConfigName,
		configVersion: cfg.ConfigVersion,
		cycleCount:    0,
	}

	m.logger.Info().
		Str("configName", m.configName).
		Int("configVersion", m.configVersion).
		Msg("Maintainer instance created successfully with dependency injection")

	return m, nil
}

// validateMaintainerConfig validates the Maintainer configuration
func validateMaintainerConfig(cfg Config) error {
	if cfg.Observer == nil {
		return fmt.Errorf("chain observer cannot be nil")
	}
	if cfg.Pool == nil {
		return fmt.Errorf("pool mirror cannot be nil")
	}
	if cfg.PlannerParams == nil {
		return fmt.Errorf("planner parameters cannot be nil")
	}
	if cfg.ConfigName == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if cfg.ConfigVersion <= 0 {
		return fmt.Errorf("config version must be positive")
	}
	return nil
}

// RunLoop starts the main maintenance loop with the specified interval
func (m *Maintainer) RunLoop(ctx context.Context, interval time.Duration) {
	m.logger.Info().
		Dur("interval", interval).
		Msg("Starting maintenance loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	m.cycleCount++
	m.logger.Info().Int("cycle", m.cycleCount).Msg("Initiating maintenance cycle")
	m.RunCycle(ctx)
	m.logger.Info().Int("cycle", m.cycleCount).Msg("Maintenance cycle completed")

	// Continue with ticker
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Maintenance loop stopped due to context cancellation")
			return
		case <-ticker.C:
			m.cycleCount++
			m.logger.Info().Int("cycle", m.cycleCount).Msg("Initiating maintenance cycle")
			m.RunCycle(ctx)
			m.logger.Info().Int("cycle", m.cycleCount).Msg("Maintenance cycle completed")
		}
	}
}

// RunCycle executes one complete maintenance cycle
func (m *Maintainer) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	// Generate unique cycle ID for tracing logs across the entire cycle
	cycleID := uuid.New().String()
	cycleLogger := m.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting Maintenance Cycle ---")

	// --- Step 1: Observe the chain ---
	cycleLogger.Info().Msg("Step 1: Observing current epoch...")
	epoch, err := m.observer.CurrentEpoch(ctx)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: Failed to fetch current epoch.")
		telemetry.ObserveCycle(false)
		return
	}
	cycleLogger.Info().Uint64("epoch", epoch).Msg("Step 1: Chain observation complete.")

	// --- Step 2: Freeze the exchange rate ---
	cycleLogger.Info().Msg("Step 2: Updating exchange rate...")
	rateFrozen := false
	err = m.pool.UpdateExchangeRate(epoch)
	switch {
	case errors.Is(err, pool.ErrExchangeRateAlreadyUpToDate):
		// Expected on every cycle after the first one in an epoch.
		cycleLogger.Info().Uint64("epoch", epoch).Msg("Exchange rate already frozen for this epoch")
	case err != nil:
		cycleLogger.Error().Err(err).Msg("Cycle aborted: Failed to update exchange rate.")
		telemetry.ObserveCycle(false)
		return
	default:
		rateFrozen = true
		cycleLogger.Info().
			Uint64("epoch", epoch).
			Uint64("solBalance", uint64(m.pool.ExchangeRate.SolBalance)).
			Uint64("stSolSupply", uint64(m.pool.ExchangeRate.StSolSupply)).
			Float64("rateSol", telemetry.ExchangeRateSol(m.pool)).
			Msg("Step 2: Exchange rate frozen.")
	}

	// --- Step 3: Reconcile stake account balances ---
	cycleLogger.Info().Msg("Step 3: Reconciling stake account balances...")
	m.reconcileStakeAccounts(ctx, cycleLogger)

	// --- Step 4: Collect and distribute validation rewards ---
	// Rewards are read straight off the vote accounts, so collecting
	// more than once per epoch would count the same balance twice.
	if rateFrozen {
		cycleLogger.Info().Msg("Step 4: Collecting validation rewards...")
		m.collectRewards(ctx, epoch, cycleID, cycleLogger)
	} else {
		cycleLogger.Info().Msg("Step 4: Rewards already collected this epoch, skipping.")
	}

	// --- Step 5: Plan stake movements ---
	cycleLogger.Info().Msg("Step 5: Generating stake plan...")
	plan, err := planner.GenerateStakePlan(m.pool, *m.plannerParams)
	if err != nil {
		if errors.Is(err, planner.ErrNoActiveValidators) {
			cycleLogger.Info().Msg("No active validators to balance. No stake movements needed.")
			plan = types.StakePlan{GoalDescription: "no active validators, nothing to balance"}
		} else {
			cycleLogger.Error().Err(err).Msg("Cycle aborted: Failed to generate stake plan.")
			telemetry.ObserveCycle(false)
			return
		}
	}
	cycleLogger.Info().Int("actions", len(plan.Actions)).Str("goal", plan.GoalDescription).Msg("Step 5: Stake plan generated.")

	if len(plan.Actions) > 0 {
		planJSON, _ := json.MarshalIndent(plan.Actions, "", "  ")
		cycleLogger.Info().Str("stakePlan", string(planJSON)).Msg("--- Detailed Stake Plan ---")
	}

	// --- Step 6: Dry run and apply ---
	if len(plan.Actions) > 0 {
		cycleLogger.Info().Msg("Step 6: Applying stake plan...")
		m.applyPlan(plan, cycleID, cycleLogger)
	}

	// --- Step 7: Persist the cycle ---
	cycleLogger.Info().Msg("Step 7: Persisting cycle state...")
	m.saveSnapshot(cycleID, epoch, cycleLogger)

	if err := state.SetLastProcessedEpoch(epoch); err != nil {
		cycleLogger.Error().Err(err).Uint64("epoch", epoch).Msg("Failed to advance the epoch cursor")
	}

	telemetry.Update(m.pool, epoch)
	telemetry.ObserveCycle(true)

	cycleEndTime := time.Now()
	cycleLogger.Info().Str("cycleDuration", cycleEndTime.Sub(cycleStartTime).String()).Msg("Maintenance Cycle Duration")

	cycleLogger.Info().Msg("--- Maintenance Cycle Completed Successfully ---")
}

// reconcileStakeAccounts folds each validator's observed stake account
// balances back into the mirror. Surpluses are donations and grow the
// tracked balance; an observed decrease means the mirror is ahead of
// the chain and the validator is skipped until they agree.
func (m *Maintainer) reconcileStakeAccounts(ctx context.Context, cycleLogger zerolog.Logger) {
	reconciled := 0
	var donations token.Lamports

	for i := range m.pool.Validators.Entries {
		entry := &m.pool.Validators.Entries[i]
		vote := entry.Pubkey

		observedTotal, observedUnstake, err := m.observer.StakeBalances(ctx, vote, entry.Value.StakeSeeds, entry.Value.UnstakeSeeds)
		if err != nil {
			cycleLogger.Warn().Err(err).
				Str("voteAccount", vote.String()).
				Msg("Skipping validator: failed to observe stake balances")
			continue
		}

		if observedUnstake != uint64(entry.Value.UnstakeAccountsBalance) {
			cycleLogger.Warn().
				Str("voteAccount", vote.String()).
				Uint64("observed", observedUnstake).
				Uint64("tracked", uint64(entry.Value.UnstakeAccountsBalance)).
				Msg("Unstake bucket drift between the chain and the mirror")
		}

		donation, err := m.pool.UpdateStakeAccountBalance(vote, token.Lamports(observedTotal))
		if err != nil {
			cycleLogger.Warn().Err(err).
				Str("voteAccount", vote.String()).
				Uint64("observedTotal", observedTotal).
				Msg("Skipping validator: balance reconciliation rejected")
			continue
		}
		if donation > 0 {
			cycleLogger.Info().
				Str("voteAccount", vote.String()).
				Uint64("donation", uint64(donation)).
				Msg("Recognized stake account donation")
			donations += donation
		}
		reconciled++
	}

	cycleLogger.Info().
		Int("validators", reconciled).
		Uint64("donations", uint64(donations)).
		Msg("Step 3: Stake account reconciliation complete.")
}

// collectRewards reads each validator's vote account rewards and runs
// them through the pool's fee split, recording one fee event per
// validator that earned anything.
func (m *Maintainer) collectRewards(ctx context.Context, epoch uint64, cycleID string, cycleLogger zerolog.Logger) {
	collected := 0
	var totalRewards uint64

	for i := range m.pool.Validators.Entries {
		entry := &m.pool.Validators.Entries[i]
		vote := entry.Pubkey

		rewards, err := m.observer.VoteRewards(ctx, vote)
		if err != nil {
			cycleLogger.Warn().Err(err).
				Str("voteAccount", vote.String()).
				Msg("Skipping validator: failed to observe vote rewards")
			continue
		}
		if rewards == 0 {
			continue
		}

		distribution, err := m.pool.DistributeFees(token.Lamports(rewards), epoch)
		if err != nil {
			cycleLogger.Warn().Err(err).
				Str("voteAccount", vote.String()).
				Uint64("rewards", rewards).
				Msg("Skipping validator: fee distribution rejected")
			continue
		}

		event := types.FeeEvent{
			CycleID:              cycleID,
			Epoch:                epoch,
			VoteAccount:          vote.String(),
			RewardLamports:       rewards,
			TreasuryLamports:     uint64(distribution.Fees.TreasuryAmount),
			DeveloperLamports:    uint64(distribution.Fees.DeveloperAmount),
			PerValidatorLamports: uint64(distribution.Fees.RewardPerValidator),
			AppreciationLamports: uint64(distribution.Fees.StSolAppreciationAmount),
			TreasuryStSol:        uint64(distribution.TreasuryStSol),
			DeveloperStSol:       uint64(distribution.DeveloperStSol),
			Timestamp:            time.Now(),
		}
		if _, err := state.SaveFeeEvent(event); err != nil {
			cycleLogger.Error().Err(err).
				Str("voteAccount", vote.String()).
				Msg("Failed to save fee event to database")
		}

		telemetry.ObserveRewards(rewards)
		totalRewards += rewards
		collected++

		cycleLogger.Info().
			Str("voteAccount", vote.String()).
			Uint64("rewards", rewards).
			Uint64("treasury", uint64(distribution.Fees.TreasuryAmount)).
			Uint64("perValidator", uint64(distribution.Fees.RewardPerValidator)).
			Uint64("appreciation", uint64(distribution.Fees.StSolAppreciationAmount)).
			Msg("Distributed validation rewards")
	}

	cycleLogger.Info().
		Int("validators", collected).
		Uint64("totalRewards", totalRewards).
		Msg("Step 4: Reward collection complete.")
}

// applyPlan dry-runs the plan against a clone and, only if every
// action clears the pool's guards, applies it to the live mirror. One
// receipt is recorded per planned action either way.
func (m *Maintainer) applyPlan(plan types.StakePlan, cycleID string, cycleLogger zerolog.Logger) {
	dryRun := simulation.Run(m.pool, plan)
	if failed := dryRun.FailedCount(); failed > 0 {
		cycleLogger.Error().
			Int("failed", failed).
			Int("planned", len(plan.Actions)).
			Msg("Dry run rejected the stake plan, skipping application")

		// Record the rejection so the plan's fate is auditable.
		for _, outcome := range dryRun.Outcomes {
			receipt := types.ActionReceipt{
				CycleID:        cycleID,
				OriginalAction: outcome.Action,
				Success:        false,
				Message:        rejectionMessage(outcome),
				Timestamp:      time.Now(),
			}
			m.saveReceipt(receipt, cycleLogger)
			telemetry.ObserveAction(string(outcome.Action.Type), false)
		}
		return
	}

	for _, action := range plan.Actions {
		seed, err := simulation.Apply(m.pool, action)
		receipt := types.ActionReceipt{
			CycleID:        cycleID,
			OriginalAction: action,
			Success:        err == nil,
			Seed:           seed,
			Timestamp:      time.Now(),
		}
		if err != nil {
			receipt.Message = err.Error()
			cycleLogger.Error().Err(err).
				Str("type", string(action.Type)).
				Str("voteAccount", action.VoteAccount).
				Uint64("amount", action.Amount).
				Msg("Stake action failed against the live mirror")
		} else {
			receipt.Message = "applied to the pool mirror"
			cycleLogger.Info().
				Str("type", string(action.Type)).
				Str("voteAccount", action.VoteAccount).
				Uint64("amount", action.Amount).
				Uint64("seed", seed).
				Msg("Applied stake action")
		}
		m.saveReceipt(receipt, cycleLogger)
		telemetry.ObserveAction(string(action.Type), err == nil)
	}

	cycleLogger.Info().
		Int("actions", len(plan.Actions)).
		Uint64("reserveAfter", uint64(m.pool.ReserveBalance)).
		Msg("Step 6: Stake plan applied.")
}

// rejectionMessage labels an action's receipt when the dry run turned
// the whole plan down.
func rejectionMessage(outcome simulation.ActionOutcome) string {
	if outcome.Success {
		return "plan rejected: another action failed the dry run"
	}
	return "plan rejected: " + outcome.Message
}

// saveReceipt saves one action receipt to the database
func (m *Maintainer) saveReceipt(receipt types.ActionReceipt, cycleLogger zerolog.Logger) {
	if _, err := state.SaveActionReceipt(receipt); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to save action receipt to database")
	}
}

// saveSnapshot captures the pool mirror and writes it to the database
func (m *Maintainer) saveSnapshot(cycleID string, epoch uint64, cycleLogger zerolog.Logger) {
	snapshot, err := m.buildSnapshot(cycleID, epoch)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to build pool snapshot")
		return
	}

	snapshotID, err := state.SavePoolSnapshot(snapshot)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to save pool snapshot to database")
		return
	}
	cycleLogger.Info().Int64("snapshot_id", snapshotID).Msg("Pool snapshot saved successfully")
}

// buildSnapshot assembles the persisted view of the mirror, including
// the serialized pool state for restart recovery.
func (m *Maintainer) buildSnapshot(cycleID string, epoch uint64) (types.PoolSnapshot, error) {
	stateBlob, err := m.pool.Marshal()
	if err != nil {
		return types.PoolSnapshot{}, fmt.Errorf("failed to serialize pool state: %w", err)
	}

	totalSol, err := m.pool.TotalSolBalance()
	if err != nil {
		return types.PoolSnapshot{}, fmt.Errorf("failed to total pool balance: %w", err)
	}

	validators := make([]types.ValidatorSummary, 0, m.pool.Validators.Len())
	for i := range m.pool.Validators.Entries {
		entry := &m.pool.Validators.Entries[i]
		effective := uint64(entry.Value.EffectiveStakeBalance())

		effectiveSol, err := utils.LamportsToSol(effective)
		if err != nil {
			return types.PoolSnapshot{}, fmt.Errorf("failed to convert effective stake: %w", err)
		}

		validators = append(validators, types.ValidatorSummary{
			VoteAccount:            entry.Pubkey.String(),
			FeeCredit:              uint64(entry.Value.FeeCredit),
			StakeAccountsBalance:   uint64(entry.Value.StakeAccountsBalance),
			UnstakeAccountsBalance: uint64(entry.Value.UnstakeAccountsBalance),
			EffectiveStake:         effective,
			EffectiveStakeSol:      effectiveSol,
			Active:                 entry.Value.Active,
		})
	}

	return types.PoolSnapshot{
		CycleID:          cycleID,
		Epoch:            epoch,
		Timestamp:        time.Now(),
		PlannerParamsID:  m.getPlannerParamsID(),
		ReserveLamports:  uint64(m.pool.ReserveBalance),
		StSolSupply:      uint64(m.pool.StSolSupply),
		TotalSolBalance:  uint64(totalSol),
		ExchangeRateSol:  telemetry.ExchangeRateSol(m.pool),
		ValidatorCount:   m.pool.Validators.Len(),
		ActiveValidators: int(m.pool.ActiveValidatorCount()),
		MaintainerCount:  m.pool.Maintainers.Len(),
		Validators:       validators,
		StateBlob:        stateBlob,
	}, nil
}

// getPlannerParamsID retrieves the current active planner parameters ID from database
func (m *Maintainer) getPlannerParamsID() *int64 {
	paramsID, err := state.GetActivePlannerParametersID(m.configName)
	if err != nil {
		m.logger.Error().Err(err).Str("configName", m.configName).Msg("Failed to get active planner parameters ID")
		return nil
	}
	return paramsID
}
