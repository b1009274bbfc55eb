package token

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChecked(t *testing.T) {
	sum, err := Lamports(100).Add(23)
	require.NoError(t, err)
	assert.Equal(t, Lamports(123), sum)

	_, err = Lamports(math.MaxUint64).Add(1)
	assert.ErrorIs(t, err, ErrCalculation)

	sum, err = Lamports(math.MaxUint64).Add(0)
	require.NoError(t, err)
	assert.Equal(t, Lamports(math.MaxUint64), sum)
}

func TestSubChecked(t *testing.T) {
	diff, err := StLamports(100).Sub(40)
	require.NoError(t, err)
	assert.Equal(t, StLamports(60), diff)

	diff, err = StLamports(100).Sub(100)
	require.NoError(t, err)
	assert.Equal(t, StLamports(0), diff)

	_, err = StLamports(100).Sub(101)
	assert.ErrorIs(t, err, ErrCalculation)
}

func TestDivChecked(t *testing.T) {
	q, err := Lamports(1000).Div(3)
	require.NoError(t, err)
	assert.Equal(t, Lamports(333), q)

	_, err = Lamports(1000).Div(0)
	assert.ErrorIs(t, err, ErrCalculation)
}

func TestMulRoundsDown(t *testing.T) {
	v, err := Lamports(7).Mul(Rational{Numerator: 1, Denominator: 2})
	require.NoError(t, err)
	assert.Equal(t, Lamports(3), v)

	v, err = Lamports(1000).Mul(Rational{Numerator: 101, Denominator: 100})
	require.NoError(t, err)
	assert.Equal(t, Lamports(1010), v)
}

func TestMulIdentity(t *testing.T) {
	v, err := Lamports(math.MaxUint64).Mul(Rational{Numerator: 5, Denominator: 5})
	require.NoError(t, err)
	assert.Equal(t, Lamports(math.MaxUint64), v)
}

func TestMulWidensIntermediate(t *testing.T) {
	// The product is far beyond 64 bits, the quotient is not.
	v, err := Lamports(math.MaxUint64).Mul(Rational{
		Numerator:   math.MaxUint64,
		Denominator: math.MaxUint64,
	})
	require.NoError(t, err)
	assert.Equal(t, Lamports(math.MaxUint64), v)
}

func TestMulQuotientOverflow(t *testing.T) {
	_, err := Lamports(math.MaxUint64).Mul(Rational{Numerator: 2, Denominator: 1})
	assert.ErrorIs(t, err, ErrCalculation)

	_, err = StLamports(math.MaxUint64).Mul(Rational{Numerator: math.MaxUint64, Denominator: 2})
	assert.ErrorIs(t, err, ErrCalculation)
}

func TestMulZeroDenominator(t *testing.T) {
	_, err := Lamports(1).Mul(Rational{Numerator: 1, Denominator: 0})
	assert.ErrorIs(t, err, ErrCalculation)
}

func TestMulZeroAmount(t *testing.T) {
	v, err := StLamports(0).Mul(Rational{Numerator: 3, Denominator: 7})
	require.NoError(t, err)
	assert.Equal(t, StLamports(0), v)
}
