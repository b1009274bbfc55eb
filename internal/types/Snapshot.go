/*

This file contains the snapshot types persisted after each maintenance
cycle: summary columns for the dashboard plus the serialized pool state
itself for restart recovery.

*/

package types

import "time"

// PoolSnapshot is one persisted view of the pool mirror.
type PoolSnapshot struct {
	SnapshotID       int64     `json:"snapshot_id,omitempty"` // Auto-incremented by DB
	CycleID          string    `json:"cycle_id"`              // UUID of the maintenance cycle that took the snapshot
	Epoch            uint64    `json:"epoch"`                 // Epoch the cycle observed
	Timestamp        time.Time `json:"timestamp"`
	PlannerParamsID  *int64    `json:"planner_params_id,omitempty"` // Active parameter set during the cycle
	ReserveLamports  uint64    `json:"reserve_lamports"`            // Undelegated SOL in the reserve
	StSolSupply      uint64    `json:"st_sol_supply"`               // stSOL in existence
	TotalSolBalance  uint64    `json:"total_sol_balance"`           // Reserve plus all validator stake
	ExchangeRateSol  float64   `json:"exchange_rate_sol"`           // SOL value of one stSOL at the frozen rate
	ValidatorCount   int       `json:"validator_count"`
	ActiveValidators int       `json:"active_validators"`
	MaintainerCount  int       `json:"maintainer_count"`

	Validators []ValidatorSummary `json:"validators,omitempty"` // Per-validator breakdown at snapshot time
	StateBlob  []byte             `json:"-"`                    // Serialized pool state, not exposed over the API
}

// ValidatorSummary is the per-validator view served by the API.
type ValidatorSummary struct {
	VoteAccount            string  `json:"vote_account"`
	FeeCredit              uint64  `json:"fee_credit_st_lamports"` // Unclaimed fee credit in stSOL lamports
	StakeAccountsBalance   uint64  `json:"stake_accounts_balance"`
	UnstakeAccountsBalance uint64  `json:"unstake_accounts_balance"`
	EffectiveStake         uint64  `json:"effective_stake"`
	EffectiveStakeSol      float64 `json:"effective_stake_sol"`
	Active                 bool    `json:"active"`
}

// PoolSummary aggregates pool history for the dashboard.
type PoolSummary struct {
	LatestSnapshot     *PoolSnapshot `json:"latest_snapshot,omitempty"`
	SnapshotCount      int           `json:"snapshot_count"`
	FirstSnapshotAt    time.Time     `json:"first_snapshot_at,omitempty"`
	LastProcessedEpoch uint64        `json:"last_processed_epoch"`
	FeeEventCount      int           `json:"fee_event_count"`
	TotalRewardsSol    float64       `json:"total_rewards_sol"` // All rewards ever distributed, in SOL
}
