/*

This file contains the tunable parameters for the stake balancing
planner. Different sets can be stored in the database and activated
without redeploying.

*/

package types

// PlannerParameters holds all thresholds used by the planner when it
// decides which stake movements to emit.
type PlannerParameters struct {
	// MinStakeDeltaLamports is the smallest imbalance worth a stake
	// movement; deviations below it are left alone so the planner does
	// not churn stake accounts over dust.
	MinStakeDeltaLamports uint64 `json:"min_stake_delta_lamports"`

	// ReserveBufferLamports is kept liquid in the reserve and never
	// delegated, so withdrawals can be served without waiting for a
	// stake deactivation.
	ReserveBufferLamports uint64 `json:"reserve_buffer_lamports"`

	// MaxActionsPerCycle caps how many stake movements one cycle may
	// emit. Remaining imbalance waits for the next cycle.
	MaxActionsPerCycle int `json:"max_actions_per_cycle"`
}
