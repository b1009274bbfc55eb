/*

This file contains the default planner parameters.

These values are used if no active parameter set is found in the
database during initialization. Tuned sets are stored and activated
through the planner_parameters table.

*/

package config

import (
	"github.com/aquifer-labs/aquifer/internal/types"
)

// DefaultPlannerParameters provides a baseline parameter set for the stake planner.
var DefaultPlannerParameters = types.PlannerParameters{
	MinStakeDeltaLamports: 1_000_000_000, // Ignore imbalances below 1 SOL.

	ReserveBufferLamports: 10_000_000_000, // Keep 10 SOL liquid in the reserve.

	MaxActionsPerCycle: 8, // At most 8 stake movements per cycle; the rest waits.
}
