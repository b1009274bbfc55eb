/*

This file manages the persistent epoch cursor. The cursor records the
last epoch whose maintenance completed, so a restarted daemon does not
repeat epoch-scoped work.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureEpochCursorTable creates the epoch_cursor table if it doesn't exist
func ensureEpochCursorTable() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS epoch_cursor (
			id INTEGER PRIMARY KEY DEFAULT 1,
			last_epoch BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO epoch_cursor (id, last_epoch)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`

	_, err := DB.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create epoch_cursor table: %w", err)
	}

	log.Debug().Msg("Ensured epoch_cursor table exists")
	return nil
}

// GetLastProcessedEpoch retrieves the last processed epoch from the database
func GetLastProcessedEpoch() (uint64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	// Ensure the table exists
	if err := ensureEpochCursorTable(); err != nil {
		return 0, err
	}

	query := `SELECT last_epoch FROM epoch_cursor WHERE id = 1;`

	var lastEpoch uint64
	row := DB.QueryRow(query)
	err := row.Scan(&lastEpoch)

	if err != nil {
		if err == sql.ErrNoRows {
			// This should not happen due to the INSERT in ensureEpochCursorTable
			log.Warn().Msg("No epoch cursor row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get last processed epoch: %w", err)
	}

	log.Debug().Uint64("lastEpoch", lastEpoch).Msg("Retrieved last processed epoch")
	return lastEpoch, nil
}

// SetLastProcessedEpoch records the epoch whose maintenance just completed
func SetLastProcessedEpoch(epoch uint64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Ensure the table exists
	if err := ensureEpochCursorTable(); err != nil {
		return err
	}

	updateQuery := `
		UPDATE epoch_cursor
		SET last_epoch = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(updateQuery, int64(epoch))
	if err != nil {
		return fmt.Errorf("failed to set last processed epoch to %d: %w", epoch, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when setting last processed epoch")
	}

	log.Info().Uint64("epoch", epoch).Msg("Updated epoch cursor")
	return nil
}
