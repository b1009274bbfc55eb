package state

import (
	"database/sql"
	"fmt"

	"github.com/aquifer-labs/aquifer/internal/types"
	"github.com/aquifer-labs/aquifer/internal/utils"
	"github.com/rs/zerolog/log"
)

// GetPoolSummary retrieves high-level pool statistics for the dashboard.
func GetPoolSummary() (*types.PoolSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	summary := &types.PoolSummary{}

	latest, err := LoadLatestPoolSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot for summary: %w", err)
	}
	if latest != nil {
		latest.StateBlob = nil // Not exposed over the API
		summary.LatestSnapshot = latest
	}

	// Snapshot count and age of the history
	var firstSnapshotAt sql.NullTime
	err = DB.QueryRow(`SELECT COUNT(*), MIN(snapshot_timestamp) FROM pool_snapshots`).
		Scan(&summary.SnapshotCount, &firstSnapshotAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot count: %w", err)
	}
	if firstSnapshotAt.Valid {
		summary.FirstSnapshotAt = firstSnapshotAt.Time
	}

	lastEpoch, err := GetLastProcessedEpoch()
	if err != nil {
		return nil, fmt.Errorf("failed to get last processed epoch: %w", err)
	}
	summary.LastProcessedEpoch = lastEpoch

	// Aggregated reward history
	var totalRewardLamports int64
	err = DB.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(reward_lamports), 0)
		FROM fee_events`).
		Scan(&summary.FeeEventCount, &totalRewardLamports)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee event aggregates: %w", err)
	}

	totalRewardsSol, err := utils.LamportsToSol(uint64(totalRewardLamports))
	if err != nil {
		return nil, fmt.Errorf("failed to convert total rewards: %w", err)
	}
	summary.TotalRewardsSol = totalRewardsSol

	log.Info().
		Int("snapshotCount", summary.SnapshotCount).
		Uint64("lastProcessedEpoch", summary.LastProcessedEpoch).
		Float64("totalRewardsSol", summary.TotalRewardsSol).
		Msg("Retrieved pool summary")

	return summary, nil
}
