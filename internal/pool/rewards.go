package pool

import (
	"github.com/gagliardetto/solana-go"

	"github.com/aquifer-labs/aquifer/internal/token"
)

const (
	// RewardDistributionSize is the serialized size of a RewardDistribution.
	RewardDistributionSize = 4 * 4

	// FeeRecipientsSize is the serialized size of FeeRecipients.
	FeeRecipientsSize = 2 * solana.PublicKeyLength
)

// RewardDistribution holds the relative weights that split every
// incoming reward. Only the ratios matter: {3,2,1,0} and {6,4,2,0}
// split identically.
type RewardDistribution struct {
	TreasuryFee       uint32
	ValidationFee     uint32
	DeveloperFee      uint32
	StSolAppreciation uint32
}

// Sum returns the total weight.
func (d *RewardDistribution) Sum() uint64 {
	return uint64(d.TreasuryFee) + uint64(d.ValidationFee) +
		uint64(d.DeveloperFee) + uint64(d.StSolAppreciation)
}

// FeeRecipients holds the accounts that receive minted fees.
type FeeRecipients struct {
	TreasuryAccount  solana.PublicKey
	DeveloperAccount solana.PublicKey
}

// Fees is the outcome of splitting one reward, in SOL.
type Fees struct {
	TreasuryAmount     token.Lamports
	RewardPerValidator token.Lamports
	DeveloperAmount    token.Lamports

	// StSolAppreciationAmount is the part that stays in the pool and
	// benefits every stSOL holder: its own weight share plus every
	// lamport the other buckets lost to rounding.
	StSolAppreciationAmount token.Lamports
}

// SplitReward splits amount over the fee buckets by weight. The
// treasury and developer shares round down independently, the
// validation share rounds down once more when divided over
// validatorCount, and the appreciation bucket absorbs all rounding
// loss. The four buckets (validation counted validatorCount times)
// always sum to amount exactly.
func (d *RewardDistribution) SplitReward(amount token.Lamports, validatorCount uint64) (*Fees, error) {
	sum := d.Sum()

	treasury, err := amount.Mul(token.Rational{Numerator: uint64(d.TreasuryFee), Denominator: sum})
	if err != nil {
		return nil, err
	}
	developer, err := amount.Mul(token.Rational{Numerator: uint64(d.DeveloperFee), Denominator: sum})
	if err != nil {
		return nil, err
	}
	validation, err := amount.Mul(token.Rational{Numerator: uint64(d.ValidationFee), Denominator: sum})
	if err != nil {
		return nil, err
	}
	perValidator, err := validation.Div(validatorCount)
	if err != nil {
		return nil, err
	}

	paidToValidators, err := perValidator.Mul(token.Rational{Numerator: validatorCount, Denominator: 1})
	if err != nil {
		return nil, err
	}
	paid, err := treasury.Add(developer)
	if err != nil {
		return nil, err
	}
	paid, err = paid.Add(paidToValidators)
	if err != nil {
		return nil, err
	}
	appreciation, err := amount.Sub(paid)
	if err != nil {
		return nil, err
	}

	return &Fees{
		TreasuryAmount:          treasury,
		RewardPerValidator:      perValidator,
		DeveloperAmount:         developer,
		StSolAppreciationAmount: appreciation,
	}, nil
}

// FeeDistribution reports one executed reward distribution: the SOL
// split and the stSOL amounts the host must mint to the treasury and
// developer accounts. The per-validator share is not minted here, it
// accrues as fee credit until the validator claims it.
type FeeDistribution struct {
	Fees                    Fees
	TreasuryStSol           token.StLamports
	DeveloperStSol          token.StLamports
	RewardPerValidatorStSol token.StLamports
	ValidatorCount          uint64
}

// DistributeFees accounts for observed rewards: the SOL lands in the
// reserve as a donation, the treasury and developer fees are minted
// immediately, and each active validator's share accrues to its fee
// credit. The exchange rate must already be frozen in currentEpoch so
// the reward itself cannot dilute the fee valuation.
func (p *Pool) DistributeFees(rewards token.Lamports, currentEpoch uint64) (*FeeDistribution, error) {
	if err := p.checkExchangeRateCurrent(currentEpoch); err != nil {
		return nil, err
	}
	validatorCount := p.ActiveValidatorCount()
	if validatorCount == 0 {
		return nil, ErrNoActiveValidators
	}

	fees, err := p.RewardDistribution.SplitReward(rewards, validatorCount)
	if err != nil {
		return nil, err
	}
	treasuryStSol, err := p.ExchangeRate.ToStLamports(fees.TreasuryAmount)
	if err != nil {
		return nil, err
	}
	developerStSol, err := p.ExchangeRate.ToStLamports(fees.DeveloperAmount)
	if err != nil {
		return nil, err
	}
	perValidatorStSol, err := p.ExchangeRate.ToStLamports(fees.RewardPerValidator)
	if err != nil {
		return nil, err
	}

	newReserve, err := p.ReserveBalance.Add(rewards)
	if err != nil {
		return nil, err
	}
	minted, err := treasuryStSol.Add(developerStSol)
	if err != nil {
		return nil, err
	}
	newSupply, err := p.StSolSupply.Add(minted)
	if err != nil {
		return nil, err
	}

	// New credits are computed for every active validator before any
	// entry is touched, so a failing credit leaves the pool unchanged.
	type creditUpdate struct {
		index  int
		credit token.StLamports
	}
	updates := make([]creditUpdate, 0, validatorCount)
	for i := range p.Validators.Entries {
		v := &p.Validators.Entries[i].Value
		if !v.Active {
			continue
		}
		credit, err := v.FeeCredit.Add(perValidatorStSol)
		if err != nil {
			return nil, err
		}
		updates = append(updates, creditUpdate{index: i, credit: credit})
	}

	distribution := &FeeDistribution{
		Fees:                    *fees,
		TreasuryStSol:           treasuryStSol,
		DeveloperStSol:          developerStSol,
		RewardPerValidatorStSol: perValidatorStSol,
		ValidatorCount:          validatorCount,
	}
	if err := p.Metrics.ObserveFee(distribution); err != nil {
		return nil, err
	}

	p.ReserveBalance = newReserve
	p.StSolSupply = newSupply
	for _, u := range updates {
		p.Validators.Entries[u.index].Value.FeeCredit = u.credit
	}
	return distribution, nil
}

// ClaimValidatorFee mints the validator's accumulated fee credit and
// resets it. Returns the stSOL amount the host must mint to the
// validator's fee address; zero means there was nothing to claim.
func (p *Pool) ClaimValidatorFee(vote solana.PublicKey) (token.StLamports, error) {
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return 0, err
	}
	credit := entry.Value.FeeCredit
	if credit == 0 {
		return 0, nil
	}
	newSupply, err := p.StSolSupply.Add(credit)
	if err != nil {
		return 0, err
	}
	p.StSolSupply = newSupply
	entry.Value.FeeCredit = 0
	return credit, nil
}
