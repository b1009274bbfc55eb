// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS planner_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			min_stake_delta_lamports BIGINT NOT NULL,
			reserve_buffer_lamports BIGINT NOT NULL,
			max_actions_per_cycle INTEGER NOT NULL,
			CONSTRAINT uq_planner_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_planner_parameters_config_active ON planner_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS pool_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			cycle_id VARCHAR(36) NOT NULL,
			epoch BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			planner_params_id INTEGER REFERENCES planner_parameters(params_id),

			-- Summary columns for the dashboard
			reserve_lamports BIGINT NOT NULL,
			st_sol_supply BIGINT NOT NULL,
			total_sol_balance BIGINT NOT NULL,
			exchange_rate_sol DOUBLE PRECISION NOT NULL,
			validator_count INTEGER NOT NULL,
			active_validators INTEGER NOT NULL,
			maintainer_count INTEGER NOT NULL,
			validators JSONB,

			-- Full serialized pool state for restart recovery
			state_blob BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_timestamp ON pool_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_epoch ON pool_snapshots(epoch DESC);

		CREATE TABLE IF NOT EXISTS action_receipts (
			receipt_id SERIAL PRIMARY KEY,
			cycle_id VARCHAR(36) NOT NULL,
			action_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			action_type VARCHAR(50) NOT NULL,
			vote_account VARCHAR(64) NOT NULL,
			amount_lamports BIGINT NOT NULL,
			seed BIGINT NOT NULL DEFAULT 0,
			success BOOLEAN NOT NULL,
			message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_action_receipts_timestamp ON action_receipts(action_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_action_receipts_vote_account ON action_receipts(vote_account);

		CREATE TABLE IF NOT EXISTS fee_events (
			event_id SERIAL PRIMARY KEY,
			cycle_id VARCHAR(36) NOT NULL,
			epoch BIGINT NOT NULL,
			vote_account VARCHAR(64) NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reward_lamports BIGINT NOT NULL,
			treasury_lamports BIGINT NOT NULL,
			developer_lamports BIGINT NOT NULL,
			per_validator_lamports BIGINT NOT NULL,
			appreciation_lamports BIGINT NOT NULL,
			treasury_st_sol BIGINT NOT NULL,
			developer_st_sol BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fee_events_epoch ON fee_events(epoch DESC);
		CREATE INDEX IF NOT EXISTS idx_fee_events_observed_at ON fee_events(observed_at DESC);

		-- Epoch cursor table for persistent epoch progress tracking
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
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
