package main

import (
	"context"
	"os"
	"strconv"

	"github.com/aquifer-labs/aquifer/internal/config"
	"github.com/aquifer-labs/aquifer/internal/logger"
	"github.com/aquifer-labs/aquifer/internal/maintainer"
	"github.com/aquifer-labs/aquifer/internal/observer"
	"github.com/aquifer-labs/aquifer/internal/pool"
	"github.com/aquifer-labs/aquifer/internal/state"
	"github.com/aquifer-labs/aquifer/internal/web"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Seed strings of the pool authority program-derived addresses.
const (
	reserveAccountSeed           = "reserve_account"
	stakeAuthoritySeed           = "stake_authority"
	mintAuthoritySeed            = "mint_authority"
	rewardsWithdrawAuthoritySeed = "rewards_withdraw_authority"
)

// main is the entry point for the pool maintainer daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Aquifer Pool Maintainer Starting...")

	// Initialize Database Connection (planner parameters, snapshots, receipts)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Planner Parameters
	plannerParams, err := state.LoadActivePlannerParameters(maintainer.DEFAULT_PLANNER_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active planner parameters, using defaults and saving.")
		defaultParams := config.DefaultPlannerParameters
		if _, err := state.SavePlannerParameters(defaultParams, maintainer.DEFAULT_PLANNER_CONFIG_NAME, maintainer.DEFAULT_PLANNER_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default planner parameters.")
		}
		plannerParams = &defaultParams
	}
	log.Info().Msg("Planner parameters loaded successfully.")

	// --- Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting Aquifer web dashboard")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// Initialize RPC Connection
	rpcClient := rpc.New(config.NodeRPC)
	chainObserver, err := observer.NewRPCObserver(rpcClient, config.ProgramID, config.PoolAddress, config.VoteRentFloor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chain observer")
	}
	defer chainObserver.Close()
	log.Info().Str("endpoint", config.NodeRPC).Msg("RPC connected")

	// --- 2. Pool Mirror Initialization (with Safety Switch) ---
	aquiferMode := os.Getenv("AQUIFER_MODE")

	if aquiferMode == "shadow" {
		log.Info().Msg("Initializing Aquifer in SHADOW mode. The pool is mirrored off-chain; no transactions are signed or sent.")
	} else {
		log.Fatal().Msg("AQUIFER_MODE is not set to 'shadow'. Halting to prevent accidental execution. Set AQUIFER_MODE=shadow to run.")
	}

	poolMirror := restorePool()

	// --- 3. Create Maintainer Instance with Dependency Injection ---
	log.Info().Msg("Creating maintainer instance with dependency injection...")

	maintainerConfig := maintainer.Config{
		Observer:      chainObserver,
		Pool:          poolMirror,
		PlannerParams: plannerParams,
		ConfigName:    maintainer.DEFAULT_PLANNER_CONFIG_NAME,
		ConfigVersion: maintainer.DEFAULT_PLANNER_CONFIG_VERSION,
	}

	maintainerInstance, err := maintainer.NewMaintainer(maintainerConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create maintainer instance")
	}

	log.Info().Msg("Maintainer instance created successfully")

	// --- 4. Start Maintainer Main Loop ---
	log.Info().Str("interval", config.CycleInterval.String()).Msg("Starting maintainer main loop")

	// Create context for graceful shutdown
	ctx := context.Background()

	// Start the maintenance loop (this will run indefinitely)
	maintainerInstance.RunLoop(ctx, config.CycleInterval)
}

// restorePool rebuilds the pool mirror from the latest snapshot, or
// creates a fresh pool from the configured parameters when the
// database holds no snapshots yet.
func restorePool() *pool.Pool {
	snapshot, err := state.LoadLatestPoolSnapshot()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load latest pool snapshot")
	}

	if snapshot != nil {
		restored, err := pool.Unmarshal(snapshot.StateBlob)
		if err != nil {
			log.Fatal().Err(err).Str("cycle_id", snapshot.CycleID).Msg("Failed to decode pool state from snapshot")
		}
		log.Info().
			Uint64("epoch", snapshot.Epoch).
			Str("cycle_id", snapshot.CycleID).
			Int("validators", restored.Validators.Len()).
			Msg("Pool mirror restored from snapshot")
		return restored
	}

	log.Info().Msg("No snapshot found, starting with a fresh pool mirror.")
	return pool.NewPool(pool.PoolParams{
		Version:                          1,
		Manager:                          config.Manager,
		StSolMint:                        config.StSolMint,
		ReserveAccountBumpSeed:           deriveAuthorityBump(reserveAccountSeed),
		StakeAuthorityBumpSeed:           deriveAuthorityBump(stakeAuthoritySeed),
		MintAuthorityBumpSeed:            deriveAuthorityBump(mintAuthoritySeed),
		RewardsWithdrawAuthorityBumpSeed: deriveAuthorityBump(rewardsWithdrawAuthoritySeed),
		RewardDistribution: pool.RewardDistribution{
			TreasuryFee:       config.TreasuryWeight,
			ValidationFee:     config.ValidationWeight,
			DeveloperFee:      config.DeveloperWeight,
			StSolAppreciation: config.AppreciationWeight,
		},
		FeeRecipients: pool.FeeRecipients{
			TreasuryAccount:  config.TreasuryFeeAddress,
			DeveloperAccount: config.DeveloperFeeAddress,
		},
		MaxValidators:  config.MaxValidators,
		MaxMaintainers: config.MaxMaintainers,
	})
}

// deriveAuthorityBump finds the bump seed of one pool authority address.
// The program derives these at initialization; the mirror recomputes
// them so serialized state matches the on-chain account byte for byte.
func deriveAuthorityBump(authority string) uint8 {
	_, bump, err := solana.FindProgramAddress(
		[][]byte{config.PoolAddress.Bytes(), []byte(authority)},
		config.ProgramID,
	)
	if err != nil {
		log.Fatal().Err(err).Str("authority", authority).Msg("Failed to derive authority bump seed")
	}
	return bump
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
