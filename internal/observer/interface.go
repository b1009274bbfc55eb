package observer

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/aquifer-labs/aquifer/internal/pool"
)

// ChainObserver defines the interface for reading on-chain pool state.
// This interface abstracts away the specific implementation details of chain access,
// allowing for different observer implementations (live RPC, fakes in tests).
type ChainObserver interface {
	// CurrentEpoch returns the epoch the cluster is currently in.
	CurrentEpoch(ctx context.Context) (uint64, error)

	// StakeBalances returns the combined balance of a validator's stake
	// accounts over the given seed ranges. The first value covers every
	// account (unstake accounts included, matching the pool's bookkeeping),
	// the second covers the unstake accounts alone.
	StakeBalances(ctx context.Context, voteAccount solana.PublicKey, stakeSeeds, unstakeSeeds pool.SeedRange) (uint64, uint64, error)

	// VoteRewards returns the rewards accrued on a validator's vote account,
	// the balance above the rent-exempt floor.
	VoteRewards(ctx context.Context, voteAccount solana.PublicKey) (uint64, error)

	// Close cleans up any resources used by the observer.
	Close() error
}
