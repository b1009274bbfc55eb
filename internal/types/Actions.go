/*

This file contains the types for planned stake movements and their
outcomes. The planner emits StakeActions, the maintainer applies them
to the pool mirror and records an ActionReceipt per action.

*/

package types

import "time"

// StakeActionType defines the stake movements the planner can emit.
type StakeActionType string

const (
	ActionStakeDeposit StakeActionType = "STAKE_DEPOSIT" // Move SOL from the reserve into a validator stake account
	ActionUnstake      StakeActionType = "UNSTAKE"       // Queue validator stake for deactivation
)

// StakeAction is a single planned stake movement.
type StakeAction struct {
	Type        StakeActionType `json:"type"`
	VoteAccount string          `json:"vote_account"`
	Amount      uint64          `json:"amount_lamports"`
	Reason      string          `json:"reason,omitempty"` // Why the planner emitted this action
}

// StakePlan holds the ordered actions for one maintenance cycle.
type StakePlan struct {
	GoalDescription string        `json:"goal_description"`
	Actions         []StakeAction `json:"actions"`
}

// ActionReceipt records the outcome of applying one action.
type ActionReceipt struct {
	ReceiptID      int64       `json:"receipt_id,omitempty"` // Auto-incremented by DB
	CycleID        string      `json:"cycle_id"`
	OriginalAction StakeAction `json:"original_action"`
	Success        bool        `json:"success"`
	Message        string      `json:"message,omitempty"`
	Seed           uint64      `json:"seed,omitempty"` // Stake account seed the action opened
	Timestamp      time.Time   `json:"timestamp"`
}

// FeeEvent records one reward distribution.
type FeeEvent struct {
	EventID              int64     `json:"event_id,omitempty"` // Auto-incremented by DB
	CycleID              string    `json:"cycle_id"`
	Epoch                uint64    `json:"epoch"`
	VoteAccount          string    `json:"vote_account"` // Validator whose rewards were collected
	RewardLamports       uint64    `json:"reward_lamports"`
	TreasuryLamports     uint64    `json:"treasury_lamports"`
	DeveloperLamports    uint64    `json:"developer_lamports"`
	PerValidatorLamports uint64    `json:"per_validator_lamports"`
	AppreciationLamports uint64    `json:"appreciation_lamports"`
	TreasuryStSol        uint64    `json:"treasury_st_sol"`  // Minted to the treasury
	DeveloperStSol       uint64    `json:"developer_st_sol"` // Minted to the developer
	Timestamp            time.Time `json:"timestamp"`
}
