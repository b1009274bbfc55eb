// Package token defines the two amount units the pool accounts in and
// the checked arithmetic they are allowed to perform. Amounts never
// convert between units here; only the pool's exchange rate does that.
package token

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrCalculation is returned for every arithmetic failure: overflow,
// underflow, or division by zero. Which operation failed is not
// preserved across the package boundary.
var ErrCalculation = errors.New("amount calculation failed")

// Lamports is an amount of SOL in its smallest unit.
type Lamports uint64

// StLamports is an amount of stSOL in its smallest unit.
type StLamports uint64

// Rational is an unsigned fraction used to scale amounts. It is never
// normalized; 2/4 and 1/2 are distinct values that scale identically.
type Rational struct {
	Numerator   uint64
	Denominator uint64
}

func addChecked[T ~uint64](a, b T) (T, error) {
	sum := a + b
	if sum < a {
		return 0, ErrCalculation
	}
	return sum, nil
}

func subChecked[T ~uint64](a, b T) (T, error) {
	if b > a {
		return 0, ErrCalculation
	}
	return a - b, nil
}

func divChecked[T ~uint64](a T, divisor uint64) (T, error) {
	if divisor == 0 {
		return 0, ErrCalculation
	}
	return a / T(divisor), nil
}

// mulRatioFloor computes floor(a * r.Numerator / r.Denominator). The
// product is taken in 256 bits so it cannot wrap before the division;
// only a quotient that does not fit u64 fails.
func mulRatioFloor[T ~uint64](a T, r Rational) (T, error) {
	if r.Denominator == 0 {
		return 0, ErrCalculation
	}
	product := new(uint256.Int).Mul(
		new(uint256.Int).SetUint64(uint64(a)),
		new(uint256.Int).SetUint64(r.Numerator),
	)
	quotient := product.Div(product, new(uint256.Int).SetUint64(r.Denominator))
	if !quotient.IsUint64() {
		return 0, ErrCalculation
	}
	return T(quotient.Uint64()), nil
}

// Add returns a+b, or ErrCalculation on wraparound.
func (a Lamports) Add(b Lamports) (Lamports, error) { return addChecked(a, b) }

// Sub returns a-b, or ErrCalculation when b exceeds a.
func (a Lamports) Sub(b Lamports) (Lamports, error) { return subChecked(a, b) }

// Mul scales a by r, rounding down.
func (a Lamports) Mul(r Rational) (Lamports, error) { return mulRatioFloor(a, r) }

// Div divides a by divisor, rounding down.
func (a Lamports) Div(divisor uint64) (Lamports, error) { return divChecked(a, divisor) }

// Add returns a+b, or ErrCalculation on wraparound.
func (a StLamports) Add(b StLamports) (StLamports, error) { return addChecked(a, b) }

// Sub returns a-b, or ErrCalculation when b exceeds a.
func (a StLamports) Sub(b StLamports) (StLamports, error) { return subChecked(a, b) }

// Mul scales a by r, rounding down.
func (a StLamports) Mul(r Rational) (StLamports, error) { return mulRatioFloor(a, r) }

// Div divides a by divisor, rounding down.
func (a StLamports) Div(divisor uint64) (StLamports, error) { return divChecked(a, divisor) }
