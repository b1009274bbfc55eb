package pool

import (
	"github.com/gagliardetto/solana-go"
)

// AddValidator admits a validator to the pool. The registry's
// duplicate and capacity errors pass through.
func (p *Pool) AddValidator(vote, feeAddress solana.PublicKey) error {
	return p.Validators.Add(vote, NewValidator(feeAddress))
}

// DeactivateValidator schedules a validator for removal: it stops
// receiving new stake and fee credit, and its stake can be drained
// without balance checks. Deactivating an already inactive validator
// changes nothing.
func (p *Pool) DeactivateValidator(vote solana.PublicKey) error {
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return err
	}
	entry.Value.Active = false
	return nil
}

// RemoveValidator erases a fully wound down validator from the
// registry and returns its final record. The validator must be
// inactive with no unclaimed credit and no remaining balances.
func (p *Pool) RemoveValidator(vote solana.PublicKey) (Validator, error) {
	entry, err := p.Validators.Get(vote)
	if err != nil {
		return Validator{}, err
	}
	if err := entry.Value.checkCanBeRemoved(); err != nil {
		return Validator{}, err
	}
	return p.Validators.Remove(vote)
}

// AddMaintainer grants a key the right to run maintenance operations.
func (p *Pool) AddMaintainer(key solana.PublicKey) error {
	return p.Maintainers.Add(key)
}

// RemoveMaintainer revokes a maintainer key.
func (p *Pool) RemoveMaintainer(key solana.PublicKey) error {
	return p.Maintainers.Remove(key)
}

// ChangeRewardDistribution replaces the fee weights. It takes effect
// for the next reward; already distributed fees are untouched. The
// weights are not validated here: an all-zero distribution surfaces as
// a calculation error from the next split.
func (p *Pool) ChangeRewardDistribution(distribution RewardDistribution, recipients FeeRecipients) {
	p.RewardDistribution = distribution
	p.FeeRecipients = recipients
}

// CheckManager verifies key is the pool manager.
func (p *Pool) CheckManager(key solana.PublicKey) error {
	if !p.Manager.Equals(key) {
		return ErrInvalidManager
	}
	return nil
}

// CheckMaintainer verifies key is a registered maintainer.
func (p *Pool) CheckMaintainer(key solana.PublicKey) error {
	if !p.Maintainers.Contains(key) {
		return ErrInvalidMaintainer
	}
	return nil
}
