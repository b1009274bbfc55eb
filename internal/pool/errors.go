package pool

import "errors"

var (
	// ErrInvalidAmount rejects amounts that are zero or out of range
	// for the operation.
	ErrInvalidAmount = errors.New("amount is zero or out of range")

	// ErrExchangeRateAlreadyUpToDate means the rate was already frozen
	// in this epoch (or a later one) and must not be frozen again.
	ErrExchangeRateAlreadyUpToDate = errors.New("exchange rate already computed in this epoch")

	// ErrExchangeRateNotUpdated gates operations that need the rate
	// frozen in the current epoch before they may run.
	ErrExchangeRateNotUpdated = errors.New("exchange rate not yet computed in this epoch")

	// ErrNoActiveValidators means a reward cannot be distributed
	// because there is no active validator to credit.
	ErrNoActiveValidators = errors.New("pool has no active validators")

	ErrValidatorIsStillActive      = errors.New("validator must be deactivated before removal")
	ErrValidatorHasUnclaimedCredit = errors.New("validator still has unclaimed fee credit")
	ErrValidatorHasStakeAccounts   = errors.New("validator still has stake account balance")
	ErrValidatorHasUnstakeAccounts = errors.New("validator still has unstake account balance")

	// ErrStakeToInactiveValidator rejects new stake for validators that
	// are no longer active.
	ErrStakeToInactiveValidator = errors.New("cannot stake to an inactive validator")

	// ErrValidatorWithLessStakeExists enforces balanced staking: new
	// stake goes to the active validator with the least effective
	// stake first.
	ErrValidatorWithLessStakeExists = errors.New("an active validator with less stake exists")

	// ErrValidatorWithMoreStakeExists enforces balanced unstaking:
	// stake leaves the validator with the most effective stake first.
	ErrValidatorWithMoreStakeExists = errors.New("a validator with more stake exists")

	// ErrMaximumUnstakeAccountsExceeded caps how many unstake accounts
	// a validator may have in flight.
	ErrMaximumUnstakeAccountsExceeded = errors.New("validator has too many unstake accounts in flight")

	// ErrAmountExceedsReserve rejects stake deposits larger than the
	// reserve can fund.
	ErrAmountExceedsReserve = errors.New("amount exceeds the pool reserve")

	// ErrValidatorBalanceDecreased means an observed stake balance is
	// below the tracked one. Stake balances can only grow between
	// observations; a decrease is evidence of external interference.
	ErrValidatorBalanceDecreased = errors.New("observed validator balance is below the tracked balance")

	// ErrInvalidStakeAccount rejects seed-range operations when the
	// range does not hold the accounts the operation needs.
	ErrInvalidStakeAccount = errors.New("seed range does not hold the required stake accounts")

	ErrInvalidManager    = errors.New("key is not the pool manager")
	ErrInvalidMaintainer = errors.New("key is not a registered maintainer")

	// ErrInvalidPoolData rejects serialized state that does not start
	// with the pool account tag.
	ErrInvalidPoolData = errors.New("serialized data does not carry the pool account tag")
)
