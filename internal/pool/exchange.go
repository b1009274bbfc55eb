package pool

import (
	"github.com/aquifer-labs/aquifer/internal/token"
)

// ExchangeRateSize is the serialized size of an ExchangeRate.
const ExchangeRateSize = 8 + 8 + 8

// ExchangeRate is the SOL/stSOL conversion rate frozen once per epoch.
//
// Freezing the totals at the epoch boundary makes every conversion in
// the epoch use the same price regardless of deposits, withdrawals, or
// rewards that happen mid-epoch, so the order of operations within an
// epoch cannot change what anyone receives.
type ExchangeRate struct {
	// ComputedInEpoch is the epoch in which the totals below were
	// frozen.
	ComputedInEpoch uint64

	// StSolSupply is the amount of stSOL in existence at the freeze.
	StSolSupply token.StLamports

	// SolBalance is the SOL under management at the freeze: the
	// reserve plus every validator's stake accounts.
	SolBalance token.Lamports
}

// ToStLamports values a SOL amount in stSOL at the frozen rate,
// rounding down. Before any stSOL exists, or while the pool holds no
// SOL, the rate is one to one so the first depositor can bootstrap the
// pool.
func (r *ExchangeRate) ToStLamports(amount token.Lamports) (token.StLamports, error) {
	if r.StSolSupply == 0 || r.SolBalance == 0 {
		return token.StLamports(amount), nil
	}
	converted, err := amount.Mul(token.Rational{
		Numerator:   uint64(r.StSolSupply),
		Denominator: uint64(r.SolBalance),
	})
	if err != nil {
		return 0, err
	}
	return token.StLamports(converted), nil
}

// ToLamports values an stSOL amount in SOL at the frozen rate,
// rounding down. stSOL cannot be valued while none exists.
func (r *ExchangeRate) ToLamports(amount token.StLamports) (token.Lamports, error) {
	if r.StSolSupply == 0 {
		return 0, ErrInvalidAmount
	}
	converted, err := amount.Mul(token.Rational{
		Numerator:   uint64(r.SolBalance),
		Denominator: uint64(r.StSolSupply),
	})
	if err != nil {
		return 0, err
	}
	return token.Lamports(converted), nil
}

// UpdateExchangeRate freezes the pool's tracked totals as the exchange
// rate for currentEpoch. It runs at most once per epoch and is the
// first step of the per-epoch maintenance protocol: fee distribution
// stays blocked until it has run.
func (p *Pool) UpdateExchangeRate(currentEpoch uint64) error {
	if p.ExchangeRate.ComputedInEpoch >= currentEpoch {
		return ErrExchangeRateAlreadyUpToDate
	}
	balance, err := p.TotalSolBalance()
	if err != nil {
		return err
	}
	p.ExchangeRate = ExchangeRate{
		ComputedInEpoch: currentEpoch,
		StSolSupply:     p.StSolSupply,
		SolBalance:      balance,
	}
	return nil
}

// checkExchangeRateCurrent fails unless the rate was frozen in
// currentEpoch or later.
func (p *Pool) checkExchangeRateCurrent(currentEpoch uint64) error {
	if p.ExchangeRate.ComputedInEpoch < currentEpoch {
		return ErrExchangeRateNotUpdated
	}
	return nil
}
