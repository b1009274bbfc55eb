package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLamportsToSol(t *testing.T) {
	sol, err := LamportsToSol(1_500_000_000)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, sol, 1e-12)

	sol, err = LamportsToSol(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sol)
}

func TestLamportsToDisplayInvalidPrecision(t *testing.T) {
	_, err := LamportsToDisplay(1, -1)
	assert.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = LamportsToDisplay(1, 19)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestDisplayToLamports(t *testing.T) {
	lamports, err := DisplayToLamports(1.5, SolDecimals)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), lamports)

	lamports, err = DisplayToLamports(0, SolDecimals)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), lamports)
}

func TestDisplayToLamportsRejectsBadInput(t *testing.T) {
	_, err := DisplayToLamports(-1, SolDecimals)
	assert.ErrorIs(t, err, ErrAmountNegative)

	_, err = DisplayToLamports(math.NaN(), SolDecimals)
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = DisplayToLamports(math.Inf(1), SolDecimals)
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestRoundTrip(t *testing.T) {
	lamports, err := DisplayToLamports(2.25, SolDecimals)
	require.NoError(t, err)
	sol, err := LamportsToSol(lamports)
	require.NoError(t, err)
	assert.InDelta(t, 2.25, sol, 1e-9)
}
