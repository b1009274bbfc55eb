package observer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/aquifer-labs/aquifer/internal/logger"
	"github.com/aquifer-labs/aquifer/internal/pool"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidClient    = errors.New("RPC client is invalid")
	ErrInvalidProgram   = errors.New("program ID is invalid")
	ErrInvalidPool      = errors.New("pool address is invalid")
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
)

var observerLogger = logger.GetForComponent("chain_observer")

// Seed prefixes the on-chain program uses when deriving stake account
// addresses for a validator.
const (
	stakeAccountSeed   = "validator_stake_account"
	unstakeAccountSeed = "validator_unstake_account"
)

// rpcTimeout bounds every individual RPC call.
const rpcTimeout = 10 * time.Second

// RPCObserver implements ChainObserver over a Solana JSON-RPC client.
type RPCObserver struct {
	rpcClient   *rpc.Client
	programID   solana.PublicKey
	poolAddress solana.PublicKey

	// voteRentFloor is the lamports balance a vote account keeps for rent
	// exemption. Only the balance above it counts as rewards.
	voteRentFloor uint64
}

// NewRPCObserver creates a chain observer bound to one pool.
func NewRPCObserver(rpcClient *rpc.Client, programID, poolAddress solana.PublicKey, voteRentFloor uint64) (*RPCObserver, error) {
	if rpcClient == nil {
		return nil, errors.Join(ErrInvalidClient, errors.New("RPC client cannot be nil"))
	}
	if programID.IsZero() {
		return nil, errors.Join(ErrInvalidProgram, errors.New("program ID cannot be zero"))
	}
	if poolAddress.IsZero() {
		return nil, errors.Join(ErrInvalidPool, errors.New("pool address cannot be zero"))
	}

	observer := &RPCObserver{
		rpcClient:     rpcClient,
		programID:     programID,
		poolAddress:   poolAddress,
		voteRentFloor: voteRentFloor,
	}

	observerLogger.Info().
		Str("programID", programID.String()).
		Str("poolAddress", poolAddress.String()).
		Uint64("voteRentFloor", voteRentFloor).
		Msg("RPCObserver initialized successfully")

	return observer, nil
}

// CurrentEpoch returns the epoch the cluster is currently in.
func (o *RPCObserver) CurrentEpoch(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	epochInfo, err := o.rpcClient.GetEpochInfo(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return 0, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to query epoch info: %w", err))
	}
	if epochInfo == nil {
		return 0, errors.Join(ErrInvalidResponse, errors.New("epoch info response is nil"))
	}

	observerLogger.Debug().
		Uint64("epoch", epochInfo.Epoch).
		Uint64("slotIndex", epochInfo.SlotIndex).
		Msg("Observed current epoch")

	return epochInfo.Epoch, nil
}

// StakeBalances sums the balances of a validator's stake accounts over
// the given seed ranges. The first total covers every account (unstake
// accounts included), the second the unstake accounts alone.
func (o *RPCObserver) StakeBalances(ctx context.Context, voteAccount solana.PublicKey, stakeSeeds, unstakeSeeds pool.SeedRange) (uint64, uint64, error) {
	if voteAccount.IsZero() {
		return 0, 0, errors.Join(ErrInvalidResponse, errors.New("vote account cannot be zero"))
	}

	stakeTotal, err := o.sumSeedRange(ctx, voteAccount, stakeAccountSeed, stakeSeeds)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum stake accounts for %s: %w", voteAccount, err)
	}

	unstakeTotal, err := o.sumSeedRange(ctx, voteAccount, unstakeAccountSeed, unstakeSeeds)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum unstake accounts for %s: %w", voteAccount, err)
	}

	observerLogger.Debug().
		Str("voteAccount", voteAccount.String()).
		Uint64("stakeTotal", stakeTotal+unstakeTotal).
		Uint64("unstakeTotal", unstakeTotal).
		Msg("Observed validator stake balances")

	// The pool counts unstake accounts inside the stake accounts balance.
	return stakeTotal + unstakeTotal, unstakeTotal, nil
}

// sumSeedRange adds up the balances of the derived accounts in [Begin, End).
func (o *RPCObserver) sumSeedRange(ctx context.Context, voteAccount solana.PublicKey, prefix string, seeds pool.SeedRange) (uint64, error) {
	var total uint64
	for seed := seeds.Begin; seed < seeds.End; seed++ {
		address, err := o.stakeAccountAddress(voteAccount, prefix, seed)
		if err != nil {
			return 0, err
		}

		balance, err := o.accountBalance(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch balance of %s (seed %d): %w", address, seed, err)
		}
		total += balance
	}
	return total, nil
}

// stakeAccountAddress derives the program address of one stake account.
func (o *RPCObserver) stakeAccountAddress(voteAccount solana.PublicKey, prefix string, seed uint64) (solana.PublicKey, error) {
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], seed)

	address, _, err := solana.FindProgramAddress(
		[][]byte{
			o.poolAddress.Bytes(),
			voteAccount.Bytes(),
			[]byte(prefix),
			seedBytes[:],
		},
		o.programID,
	)
	if err != nil {
		return solana.PublicKey{}, errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to derive %s address for seed %d: %w", prefix, seed, err))
	}
	return address, nil
}

// VoteRewards returns the balance of the vote account above the rent floor.
func (o *RPCObserver) VoteRewards(ctx context.Context, voteAccount solana.PublicKey) (uint64, error) {
	if voteAccount.IsZero() {
		return 0, errors.Join(ErrInvalidResponse, errors.New("vote account cannot be zero"))
	}

	balance, err := o.accountBalance(ctx, voteAccount)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch vote account balance for %s: %w", voteAccount, err)
	}

	if balance <= o.voteRentFloor {
		return 0, nil
	}

	rewards := balance - o.voteRentFloor
	observerLogger.Debug().
		Str("voteAccount", voteAccount.String()).
		Uint64("balance", balance).
		Uint64("rewards", rewards).
		Msg("Observed vote account rewards")

	return rewards, nil
}

// accountBalance fetches one account balance at finalized commitment.
func (o *RPCObserver) accountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	result, err := o.rpcClient.GetBalance(ctx, account, rpc.CommitmentFinalized)
	if err != nil {
		return 0, errors.Join(ErrRPCRequestFailed, err)
	}
	if result == nil {
		return 0, errors.Join(ErrInvalidResponse, errors.New("balance response is nil"))
	}

	return result.Value, nil
}

// Close releases the underlying RPC client.
func (o *RPCObserver) Close() error {
	if o == nil || o.rpcClient == nil {
		return nil
	}

	observerLogger.Info().Msg("Closing RPCObserver")
	if err := o.rpcClient.Close(); err != nil {
		return fmt.Errorf("failed to close RPC client: %w", err)
	}
	return nil
}
