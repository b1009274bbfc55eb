package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ProgramID is the on-chain program that owns the pool account.
	ProgramID solana.PublicKey
	// PoolAddress is the address of the pool state account this instance manages.
	PoolAddress solana.PublicKey
	// Manager is the pool manager authority.
	Manager solana.PublicKey
	// StSolMint is the mint of the pool's stake token.
	StSolMint solana.PublicKey

	// TreasuryFeeAddress receives the treasury fee share.
	TreasuryFeeAddress solana.PublicKey
	// DeveloperFeeAddress receives the developer fee share.
	DeveloperFeeAddress solana.PublicKey

	// MaxValidators is the validator registry capacity used when creating a fresh pool.
	MaxValidators uint32
	// MaxMaintainers is the maintainer registry capacity used when creating a fresh pool.
	MaxMaintainers uint32

	// TreasuryWeight is the treasury share of the reward split.
	TreasuryWeight uint32
	// ValidationWeight is the validator share of the reward split.
	ValidationWeight uint32
	// DeveloperWeight is the developer share of the reward split.
	DeveloperWeight uint32
	// AppreciationWeight is the share of rewards left in the reserve for stSOL appreciation.
	AppreciationWeight uint32

	// VoteRentFloor is the lamports balance left behind in a vote account
	// when collecting rewards (the rent-exempt reserve).
	VoteRentFloor uint64

	// CycleInterval is the pause between maintenance cycles.
	CycleInterval time.Duration
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ProgramID, err = getEnvAsPublicKey("PROGRAM_ID")
	if err != nil {
		return err
	}

	PoolAddress, err = getEnvAsPublicKey("POOL_ADDRESS")
	if err != nil {
		return err
	}

	Manager, err = getEnvAsPublicKey("MANAGER_ADDRESS")
	if err != nil {
		return err
	}

	StSolMint, err = getEnvAsPublicKey("ST_SOL_MINT")
	if err != nil {
		return err
	}

	TreasuryFeeAddress, err = getEnvAsPublicKey("TREASURY_FEE_ADDRESS")
	if err != nil {
		return err
	}

	DeveloperFeeAddress, err = getEnvAsPublicKey("DEVELOPER_FEE_ADDRESS")
	if err != nil {
		return err
	}

	MaxValidators, err = getEnvAsUint32("MAX_VALIDATORS")
	if err != nil {
		return err
	}

	MaxMaintainers, err = getEnvAsUint32("MAX_MAINTAINERS")
	if err != nil {
		return err
	}

	TreasuryWeight, err = getEnvAsUint32("REWARD_TREASURY_WEIGHT")
	if err != nil {
		return err
	}

	ValidationWeight, err = getEnvAsUint32("REWARD_VALIDATION_WEIGHT")
	if err != nil {
		return err
	}

	DeveloperWeight, err = getEnvAsUint32("REWARD_DEVELOPER_WEIGHT")
	if err != nil {
		return err
	}

	AppreciationWeight, err = getEnvAsUint32("REWARD_APPRECIATION_WEIGHT")
	if err != nil {
		return err
	}

	VoteRentFloor, err = getEnvAsUint64("VOTE_RENT_FLOOR")
	if err != nil {
		return err
	}

	intervalMinutes, err := getEnvAsUint64("CYCLE_INTERVAL_MINUTES")
	if err != nil {
		return err
	}
	CycleInterval = time.Duration(intervalMinutes) * time.Minute

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("PoolAddress", PoolAddress.String()).
		Str("ProgramID", ProgramID.String()).
		Uint32("MaxValidators", MaxValidators).
		Str("CycleInterval", CycleInterval.String()).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsUint32 retrieves an environment variable as a uint32. Returns error if not set or invalid.
func getEnvAsUint32(key string) (uint32, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 32)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint32, got: " + valueStr)
	}
	return uint32(value), nil
}

// getEnvAsPublicKey retrieves an environment variable as a base58 Solana public key.
// Returns error if not set or not a valid key.
func getEnvAsPublicKey(key string) (solana.PublicKey, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return solana.PublicKey{}, err
	}
	value, err := solana.PublicKeyFromBase58(valueStr)
	if err != nil {
		return solana.PublicKey{}, errors.New("environment variable " + key + " must be a valid base58 public key, got: " + valueStr)
	}
	return value, nil
}
