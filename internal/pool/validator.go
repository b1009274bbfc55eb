package pool

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aquifer-labs/aquifer/internal/token"
)

// ValidatorConstantSize is the serialized size of a Validator record.
const ValidatorConstantSize = 8 + solana.PublicKeyLength + 2*SeedRangeSize + 8 + 8 + 1

// SeedRangeSize is the serialized size of a SeedRange.
const SeedRangeSize = 8 + 8

// MaximumUnstakeAccounts caps how many unstake accounts one validator
// may have in flight at a time.
const MaximumUnstakeAccounts = 3

// SeedRange is the half-open interval [Begin, End) of account seeds a
// validator currently has in flight. Seeds are only ever consumed at
// Begin and issued at End, so a seed is never reused.
type SeedRange struct {
	Begin uint64
	End   uint64
}

// Count returns the number of seeds in flight.
func (r *SeedRange) Count() uint64 { return r.End - r.Begin }

// Validator is the pool's record for one validator.
type Validator struct {
	// FeeCredit is stSOL owed to the validator from past reward
	// distributions, not yet claimed.
	FeeCredit token.StLamports

	// FeeAddress receives the stSOL when the credit is claimed.
	FeeAddress solana.PublicKey

	// StakeSeeds tracks the validator's stake accounts in flight.
	StakeSeeds SeedRange

	// UnstakeSeeds tracks the validator's unstake accounts in flight.
	UnstakeSeeds SeedRange

	// StakeAccountsBalance is the tracked total across all of the
	// validator's stake accounts, unstake accounts included.
	StakeAccountsBalance token.Lamports

	// UnstakeAccountsBalance is the tracked total across the unstake
	// accounts only.
	UnstakeAccountsBalance token.Lamports

	// Active is cleared when the validator is scheduled for removal.
	// Inactive validators accept no new stake or fee credit.
	Active bool
}

// NewValidator returns an active validator with no balances.
func NewValidator(feeAddress solana.PublicKey) Validator {
	return Validator{
		FeeAddress: feeAddress,
		Active:     true,
	}
}

// ConstantSerializedSize implements accountmap.ConstantSize.
func (Validator) ConstantSerializedSize() int { return ValidatorConstantSize }

// EffectiveStakeBalance returns the stake not queued for unstaking.
// An unstake balance above the stake balance means the bookkeeping
// itself is corrupt, so that panics instead of returning an error.
func (v *Validator) EffectiveStakeBalance() token.Lamports {
	if v.UnstakeAccountsBalance > v.StakeAccountsBalance {
		panic(fmt.Sprintf(
			"unstake balance %d exceeds stake balance %d",
			v.UnstakeAccountsBalance, v.StakeAccountsBalance,
		))
	}
	return v.StakeAccountsBalance - v.UnstakeAccountsBalance
}

// checkCanBeRemoved verifies the validator has been wound down fully:
// deactivated, credit claimed, and every lamport moved out.
func (v *Validator) checkCanBeRemoved() error {
	if v.Active {
		return ErrValidatorIsStillActive
	}
	if v.FeeCredit != 0 {
		return ErrValidatorHasUnclaimedCredit
	}
	if v.UnstakeAccountsBalance != 0 {
		return ErrValidatorHasUnstakeAccounts
	}
	if v.StakeAccountsBalance != 0 {
		return ErrValidatorHasStakeAccounts
	}
	return nil
}
