// ./internal/state/snapshot_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aquifer-labs/aquifer/internal/types"
	"github.com/rs/zerolog/log"
)

// SavePoolSnapshot saves a complete pool snapshot to the database.
func SavePoolSnapshot(snapshot types.PoolSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	validatorsJSON, err := json.Marshal(snapshot.Validators)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal validators: %w", err)
	}

	query := `
		INSERT INTO pool_snapshots (
			cycle_id, epoch, snapshot_timestamp, planner_params_id,
			reserve_lamports, st_sol_supply, total_sol_balance, exchange_rate_sol,
			validator_count, active_validators, maintainer_count,
			validators, state_blob
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.CycleID, int64(snapshot.Epoch), snapshot.Timestamp, snapshot.PlannerParamsID,
		int64(snapshot.ReserveLamports), int64(snapshot.StSolSupply), int64(snapshot.TotalSolBalance), snapshot.ExchangeRateSol,
		snapshot.ValidatorCount, snapshot.ActiveValidators, snapshot.MaintainerCount,
		validatorsJSON, snapshot.StateBlob,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Uint64("epoch", snapshot.Epoch).
		Uint64("total_sol_balance", snapshot.TotalSolBalance).
		Msg("Pool snapshot saved to database")

	return snapshotID, nil
}

// LoadLatestPoolSnapshot returns the most recent pool snapshot, including
// the serialized state blob, or nil if no snapshot has been taken yet.
func LoadLatestPoolSnapshot() (*types.PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			snapshot_id, cycle_id, epoch, snapshot_timestamp, planner_params_id,
			reserve_lamports, st_sol_supply, total_sol_balance, exchange_rate_sol,
			validator_count, active_validators, maintainer_count,
			validators, state_blob
		FROM pool_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;
	`

	var snapshot types.PoolSnapshot
	var validatorsJSON []byte

	err := DB.QueryRow(query).Scan(
		&snapshot.SnapshotID, &snapshot.CycleID, &snapshot.Epoch, &snapshot.Timestamp, &snapshot.PlannerParamsID,
		&snapshot.ReserveLamports, &snapshot.StSolSupply, &snapshot.TotalSolBalance, &snapshot.ExchangeRateSol,
		&snapshot.ValidatorCount, &snapshot.ActiveValidators, &snapshot.MaintainerCount,
		&validatorsJSON, &snapshot.StateBlob,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest pool snapshot: %w", err)
	}

	if len(validatorsJSON) > 0 {
		if err := json.Unmarshal(validatorsJSON, &snapshot.Validators); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validators: %w", err)
		}
	}

	log.Info().
		Int64("snapshot_id", snapshot.SnapshotID).
		Uint64("epoch", snapshot.Epoch).
		Msg("Loaded latest pool snapshot")
	return &snapshot, nil
}

// GetRecentSnapshots retrieves recent pool snapshots without their state blobs.
func GetRecentSnapshots(limit int) ([]types.PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT
			snapshot_id, cycle_id, epoch, snapshot_timestamp, planner_params_id,
			reserve_lamports, st_sol_supply, total_sol_balance, exchange_rate_sol,
			validator_count, active_validators, maintainer_count,
			validators
		FROM pool_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.PoolSnapshot
	for rows.Next() {
		var snapshot types.PoolSnapshot
		var validatorsJSON []byte

		err := rows.Scan(
			&snapshot.SnapshotID, &snapshot.CycleID, &snapshot.Epoch, &snapshot.Timestamp, &snapshot.PlannerParamsID,
			&snapshot.ReserveLamports, &snapshot.StSolSupply, &snapshot.TotalSolBalance, &snapshot.ExchangeRateSol,
			&snapshot.ValidatorCount, &snapshot.ActiveValidators, &snapshot.MaintainerCount,
			&validatorsJSON,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan snapshot row")
			continue // Skip this row and continue with others
		}

		if len(validatorsJSON) > 0 {
			if err := json.Unmarshal(validatorsJSON, &snapshot.Validators); err != nil {
				log.Error().Err(err).Int64("snapshot_id", snapshot.SnapshotID).Msg("Failed to unmarshal validators for snapshot")
				continue // Skip this row and continue with others
			}
		}

		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Info().Int("count", len(snapshots)).Int("limit", limit).Msg("Retrieved recent snapshots")
	return snapshots, nil
}
