// Package pool implements the accounting state of the liquid staking
// pool: the SOL/stSOL exchange rate frozen once per epoch, reward
// splitting into fee buckets, validator lifecycle, and the bookkeeping
// for stake moving between the reserve and validator stake accounts.
//
// Every operation either completes fully or leaves the pool exactly as
// it was: all new values are computed and checked before the first
// field is assigned.
package pool

import (
	"github.com/gagliardetto/solana-go"

	"github.com/aquifer-labs/aquifer/internal/accountmap"
	"github.com/aquifer-labs/aquifer/internal/token"
)

// PoolConstantSize is the serialized size of everything in Pool before
// the two registries.
const PoolConstantSize = 1 + // Version
	2*solana.PublicKeyLength + // Manager, StSolMint
	ExchangeRateSize +
	4 + // bump seeds
	RewardDistributionSize +
	FeeRecipientsSize +
	MetricsSize +
	8 + 8 // ReserveBalance, StSolSupply

// Pool is the complete accounting state. Field order is the persisted
// layout; see serialize.go.
type Pool struct {
	// Version of the state layout, bumped on incompatible changes.
	Version uint8

	// Manager may change the reward distribution and the validator and
	// maintainer registries.
	Manager solana.PublicKey

	// StSolMint is the mint of the derivative token.
	StSolMint solana.PublicKey

	// ExchangeRate frozen at the last epoch boundary.
	ExchangeRate ExchangeRate

	ReserveAccountBumpSeed           uint8
	StakeAuthorityBumpSeed           uint8
	MintAuthorityBumpSeed            uint8
	RewardsWithdrawAuthorityBumpSeed uint8

	// RewardDistribution splits incoming rewards into fee buckets.
	RewardDistribution RewardDistribution

	// FeeRecipients receive the treasury and developer fees.
	FeeRecipients FeeRecipients

	// Metrics are write-only lifetime counters.
	Metrics Metrics

	// ReserveBalance is the tracked SOL sitting in the reserve, not
	// yet delegated to any validator.
	ReserveBalance token.Lamports

	// StSolSupply is the tracked amount of stSOL in existence.
	StSolSupply token.StLamports

	// Validators holds one record per validator in the pool.
	Validators accountmap.AccountMap[Validator]

	// Maintainers may run the per-epoch maintenance operations.
	Maintainers accountmap.AccountSet
}

// PoolParams carries everything needed to initialize a pool.
type PoolParams struct {
	Version                          uint8
	Manager                          solana.PublicKey
	StSolMint                        solana.PublicKey
	ReserveAccountBumpSeed           uint8
	StakeAuthorityBumpSeed           uint8
	MintAuthorityBumpSeed            uint8
	RewardsWithdrawAuthorityBumpSeed uint8
	RewardDistribution               RewardDistribution
	FeeRecipients                    FeeRecipients
	MaxValidators                    uint32
	MaxMaintainers                   uint32
}

// NewPool returns an initialized pool with empty registries, a zero
// exchange rate (epoch 0, nothing under management), and no metrics.
func NewPool(params PoolParams) *Pool {
	return &Pool{
		Version:                          params.Version,
		Manager:                          params.Manager,
		StSolMint:                        params.StSolMint,
		ReserveAccountBumpSeed:           params.ReserveAccountBumpSeed,
		StakeAuthorityBumpSeed:           params.StakeAuthorityBumpSeed,
		MintAuthorityBumpSeed:            params.MintAuthorityBumpSeed,
		RewardsWithdrawAuthorityBumpSeed: params.RewardsWithdrawAuthorityBumpSeed,
		RewardDistribution:               params.RewardDistribution,
		FeeRecipients:                    params.FeeRecipients,
		Validators:                       accountmap.New[Validator](params.MaxValidators),
		Maintainers:                      accountmap.NewSet(params.MaxMaintainers),
	}
}

// Deposit accounts for amount arriving in the reserve and returns the
// stSOL to mint for the depositor, valued at the current frozen rate.
// Deposits are not epoch-gated; mid-epoch deposits simply trade at the
// rate frozen at the last boundary.
func (p *Pool) Deposit(amount token.Lamports) (token.StLamports, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	minted, err := p.ExchangeRate.ToStLamports(amount)
	if err != nil {
		return 0, err
	}
	newReserve, err := p.ReserveBalance.Add(amount)
	if err != nil {
		return 0, err
	}
	newSupply, err := p.StSolSupply.Add(minted)
	if err != nil {
		return 0, err
	}
	if err := p.Metrics.ObserveDeposit(amount); err != nil {
		return 0, err
	}
	p.ReserveBalance = newReserve
	p.StSolSupply = newSupply
	return minted, nil
}

// Withdraw burns amount stSOL and returns the SOL to release from the
// given validator's stake. Withdrawals drain the validator with the
// most effective stake first and require the exchange rate frozen in
// the current epoch, so a stale rate can never price an exit.
func (p *Pool) Withdraw(vote solana.PublicKey, amount token.StLamports, currentEpoch uint64) (token.Lamports, error) {
	if err := p.checkExchangeRateCurrent(currentEpoch); err != nil {
		return 0, err
	}
	if amount == 0 || amount > p.StSolSupply {
		return 0, ErrInvalidAmount
	}
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return 0, err
	}
	v := &entry.Value
	for i := range p.Validators.Entries {
		other := &p.Validators.Entries[i]
		if other.Pubkey.Equals(vote) {
			continue
		}
		if other.Value.EffectiveStakeBalance() > v.EffectiveStakeBalance() {
			return 0, ErrValidatorWithMoreStakeExists
		}
	}

	returned, err := p.ExchangeRate.ToLamports(amount)
	if err != nil {
		return 0, err
	}
	if returned > v.EffectiveStakeBalance() {
		return 0, ErrInvalidAmount
	}
	newStake, err := v.StakeAccountsBalance.Sub(returned)
	if err != nil {
		return 0, err
	}
	newSupply, err := p.StSolSupply.Sub(amount)
	if err != nil {
		return 0, err
	}
	if err := p.Metrics.ObserveWithdraw(amount, returned); err != nil {
		return 0, err
	}
	v.StakeAccountsBalance = newStake
	p.StSolSupply = newSupply
	return returned, nil
}

// TotalSolBalance sums the reserve and every validator's stake
// accounts; this is the SOL side of the exchange rate.
func (p *Pool) TotalSolBalance() (token.Lamports, error) {
	total := p.ReserveBalance
	for i := range p.Validators.Entries {
		var err error
		total, err = total.Add(p.Validators.Entries[i].Value.StakeAccountsBalance)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// ActiveValidatorCount returns the number of active validators.
func (p *Pool) ActiveValidatorCount() uint64 {
	var n uint64
	for i := range p.Validators.Entries {
		if p.Validators.Entries[i].Value.Active {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the pool, used for dry runs.
func (p *Pool) Clone() *Pool {
	clone := *p
	clone.Validators = p.Validators.Clone()
	clone.Maintainers = p.Maintainers.Clone()
	return &clone
}
