package pool

import (
	"github.com/gagliardetto/solana-go"

	"github.com/aquifer-labs/aquifer/internal/token"
)

// StakeDeposit moves amount from the reserve into a new stake account
// for the validator and returns the seed of the account to create.
// Stake must go to the active validator with the least effective stake
// first, so delegations stay balanced.
func (p *Pool) StakeDeposit(vote solana.PublicKey, amount token.Lamports) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return 0, err
	}
	v := &entry.Value
	if !v.Active {
		return 0, ErrStakeToInactiveValidator
	}
	if amount > p.ReserveBalance {
		return 0, ErrAmountExceedsReserve
	}
	for i := range p.Validators.Entries {
		other := &p.Validators.Entries[i]
		if other.Pubkey.Equals(vote) || !other.Value.Active {
			continue
		}
		if other.Value.EffectiveStakeBalance() < v.EffectiveStakeBalance() {
			return 0, ErrValidatorWithLessStakeExists
		}
	}

	newReserve, err := p.ReserveBalance.Sub(amount)
	if err != nil {
		return 0, err
	}
	newStake, err := v.StakeAccountsBalance.Add(amount)
	if err != nil {
		return 0, err
	}
	seed := v.StakeSeeds.End
	p.ReserveBalance = newReserve
	v.StakeAccountsBalance = newStake
	v.StakeSeeds.End++
	return seed, nil
}

// Unstake queues amount of the validator's stake for deactivation in a
// new unstake account and returns its seed. For active validators only
// the one with the most effective stake may be unstaked; inactive
// validators may always be drained. The total stake accounts balance
// is unchanged: the value only moves into the unstake bucket.
func (p *Pool) Unstake(vote solana.PublicKey, amount token.Lamports) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return 0, err
	}
	v := &entry.Value
	if v.Active {
		for i := range p.Validators.Entries {
			other := &p.Validators.Entries[i]
			if other.Pubkey.Equals(vote) || !other.Value.Active {
				continue
			}
			if other.Value.EffectiveStakeBalance() > v.EffectiveStakeBalance() {
				return 0, ErrValidatorWithMoreStakeExists
			}
		}
	}
	if amount > v.EffectiveStakeBalance() {
		return 0, ErrInvalidAmount
	}
	if v.UnstakeSeeds.Count() >= MaximumUnstakeAccounts {
		return 0, ErrMaximumUnstakeAccountsExceeded
	}

	newUnstake, err := v.UnstakeAccountsBalance.Add(amount)
	if err != nil {
		return 0, err
	}
	seed := v.UnstakeSeeds.End
	v.UnstakeAccountsBalance = newUnstake
	v.UnstakeSeeds.End++
	return seed, nil
}

// UpdateStakeAccountBalance reconciles the tracked balance with the
// observed total across the validator's stake and unstake accounts.
// The surplus is a donation and is returned; recognizing it in the
// tracked balance lets the next epoch's exchange rate pick it up.
// Balances only ever grow between observations, so an observed
// decrease is rejected.
func (p *Pool) UpdateStakeAccountBalance(vote solana.PublicKey, observedTotal token.Lamports) (token.Lamports, error) {
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return 0, err
	}
	v := &entry.Value
	donation, err := observedTotal.Sub(v.StakeAccountsBalance)
	if err != nil {
		return 0, ErrValidatorBalanceDecreased
	}
	v.StakeAccountsBalance = observedTotal
	return donation, nil
}

// WithdrawInactiveStake moves amount of settled, undelegated stake
// from the validator's stake accounts back into the reserve. The
// amount must not eat into value queued in unstake accounts.
func (p *Pool) WithdrawInactiveStake(vote solana.PublicKey, amount token.Lamports) error {
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return err
	}
	v := &entry.Value
	if amount > v.EffectiveStakeBalance() {
		return ErrInvalidAmount
	}
	newStake, err := v.StakeAccountsBalance.Sub(amount)
	if err != nil {
		return err
	}
	newReserve, err := p.ReserveBalance.Add(amount)
	if err != nil {
		return err
	}
	v.StakeAccountsBalance = newStake
	p.ReserveBalance = newReserve
	return nil
}

// SettleUnstake retires the oldest unstake account, whose deactivation
// has completed, moving its balance into the reserve. Returns the seed
// of the retired account.
func (p *Pool) SettleUnstake(vote solana.PublicKey, accountBalance token.Lamports) (uint64, error) {
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return 0, err
	}
	v := &entry.Value
	if v.UnstakeSeeds.Count() == 0 {
		return 0, ErrInvalidStakeAccount
	}
	newUnstake, err := v.UnstakeAccountsBalance.Sub(accountBalance)
	if err != nil {
		return 0, err
	}
	newStake, err := v.StakeAccountsBalance.Sub(accountBalance)
	if err != nil {
		return 0, err
	}
	newReserve, err := p.ReserveBalance.Add(accountBalance)
	if err != nil {
		return 0, err
	}
	seed := v.UnstakeSeeds.Begin
	v.UnstakeAccountsBalance = newUnstake
	v.StakeAccountsBalance = newStake
	p.ReserveBalance = newReserve
	v.UnstakeSeeds.Begin++
	return seed, nil
}

// MergeStake folds the validator's oldest stake account into the next
// one once both hold activated stake, freeing the older seed. Returns
// the source and destination seeds; balances are untouched because the
// value only changes accounts.
func (p *Pool) MergeStake(vote solana.PublicKey) (fromSeed, toSeed uint64, err error) {
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return 0, 0, err
	}
	v := &entry.Value
	if v.StakeSeeds.Count() < 2 {
		return 0, 0, ErrInvalidStakeAccount
	}
	fromSeed = v.StakeSeeds.Begin
	v.StakeSeeds.Begin++
	return fromSeed, fromSeed + 1, nil
}
