// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aquifer-labs/aquifer/internal/types"
	"github.com/rs/zerolog/log"
)

// SavePlannerParameters saves a new version of planner parameters.
func SavePlannerParameters(params types.PlannerParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE planner_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO planner_parameters (
            version, config_name, is_active, activated_at, created_at,
            min_stake_delta_lamports, reserve_buffer_lamports, max_actions_per_cycle
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		int64(params.MinStakeDeltaLamports), int64(params.ReserveBufferLamports), params.MaxActionsPerCycle,
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert planner parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved planner parameters")
	return paramsID, nil
}

// LoadActivePlannerParameters loads the currently active planner parameters.
func LoadActivePlannerParameters(configName string) (*types.PlannerParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT
            min_stake_delta_lamports, reserve_buffer_lamports, max_actions_per_cycle
        FROM planner_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	p := &types.PlannerParameters{}
	row := DB.QueryRow(query, configName)
	err := row.Scan(
		&p.MinStakeDeltaLamports, &p.ReserveBufferLamports, &p.MaxActionsPerCycle,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active planner parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active planner parameters for config '%s': %w", configName, err)
	}
	log.Info().Str("config", configName).Msg("Loaded active planner parameters")
	return p, nil
}

// GetActivePlannerParametersID returns the params_id of the currently active planner parameters
func GetActivePlannerParametersID(configName string) (*int64, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT params_id
        FROM planner_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var paramsID int64
	row := DB.QueryRow(query, configName)
	err := row.Scan(&paramsID)

	if err != nil {
		if err == sql.ErrNoRows {
			// No active parameters found - this is valid, return nil
			log.Debug().Str("config", configName).Msg("No active planner parameters found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active planner parameters ID for config '%s': %w", configName, err)
	}

	log.Debug().
		Str("config", configName).
		Int64("params_id", paramsID).
		Msg("Retrieved active planner parameters ID")

	return &paramsID, nil
}
