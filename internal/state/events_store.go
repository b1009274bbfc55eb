// ./internal/state/events_store.go
package state

import (
	"fmt"

	"github.com/aquifer-labs/aquifer/internal/types"
	"github.com/rs/zerolog/log"
)

// SaveActionReceipt records the outcome of one applied stake action.
func SaveActionReceipt(receipt types.ActionReceipt) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO action_receipts (
			cycle_id, action_timestamp, action_type, vote_account,
			amount_lamports, seed, success, message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING receipt_id;
	`

	var receiptID int64
	err := DB.QueryRow(
		query,
		receipt.CycleID, receipt.Timestamp, string(receipt.OriginalAction.Type), receipt.OriginalAction.VoteAccount,
		int64(receipt.OriginalAction.Amount), int64(receipt.Seed), receipt.Success, receipt.Message,
	).Scan(&receiptID)

	if err != nil {
		return 0, fmt.Errorf("failed to save action receipt: %w", err)
	}

	log.Info().
		Int64("receipt_id", receiptID).
		Str("action_type", string(receipt.OriginalAction.Type)).
		Bool("success", receipt.Success).
		Msg("Action receipt saved to database")

	return receiptID, nil
}

// GetRecentActionReceipts retrieves recent action receipts with pagination.
func GetRecentActionReceipts(limit int) ([]types.ActionReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT
			receipt_id, cycle_id, action_timestamp, action_type, vote_account,
			amount_lamports, seed, success, message
		FROM action_receipts
		ORDER BY action_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent action receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.ActionReceipt
	for rows.Next() {
		var receipt types.ActionReceipt
		var actionType string

		err := rows.Scan(
			&receipt.ReceiptID, &receipt.CycleID, &receipt.Timestamp, &actionType, &receipt.OriginalAction.VoteAccount,
			&receipt.OriginalAction.Amount, &receipt.Seed, &receipt.Success, &receipt.Message,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan action receipt row")
			continue // Skip this row and continue with others
		}
		receipt.OriginalAction.Type = types.StakeActionType(actionType)

		receipts = append(receipts, receipt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Info().Int("count", len(receipts)).Int("limit", limit).Msg("Retrieved recent action receipts")
	return receipts, nil
}

// SaveFeeEvent records one reward distribution.
func SaveFeeEvent(event types.FeeEvent) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO fee_events (
			cycle_id, epoch, vote_account, observed_at,
			reward_lamports, treasury_lamports, developer_lamports,
			per_validator_lamports, appreciation_lamports,
			treasury_st_sol, developer_st_sol
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING event_id;
	`

	var eventID int64
	err := DB.QueryRow(
		query,
		event.CycleID, int64(event.Epoch), event.VoteAccount, event.Timestamp,
		int64(event.RewardLamports), int64(event.TreasuryLamports), int64(event.DeveloperLamports),
		int64(event.PerValidatorLamports), int64(event.AppreciationLamports),
		int64(event.TreasuryStSol), int64(event.DeveloperStSol),
	).Scan(&eventID)

	if err != nil {
		return 0, fmt.Errorf("failed to save fee event: %w", err)
	}

	log.Info().
		Int64("event_id", eventID).
		Uint64("epoch", event.Epoch).
		Uint64("reward_lamports", event.RewardLamports).
		Msg("Fee event saved to database")

	return eventID, nil
}
