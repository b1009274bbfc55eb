/*
This file contains utility functions for converting raw lamport amounts
into display units (SOL, stSOL) and back, with precision handled
through decimal math rather than floating point division.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// SolDecimals is the number of decimal places in one SOL.
const SolDecimals = 9

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// LamportsToDisplay converts a raw lamport amount to its display unit
// with proper precision handling
func LamportsToDisplay(amount uint64, precision int) (float64, error) {
	if precision < 0 || precision > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}

	decAmount := sdkmath.LegacyNewDecFromInt(sdkmath.NewIntFromUint64(amount))
	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}

	result := decAmount.Quo(factor)
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}

// DisplayToLamports converts a display-unit amount to raw lamports
// with proper precision handling
func DisplayToLamports(amount float64, precision int) (uint64, error) {
	if precision < 0 || precision > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return 0, ErrAmountNegative
	}
	if amount == 0 {
		return 0, nil
	}

	// Use string conversion to avoid floating point precision issues
	formatStr := fmt.Sprintf("%%.%df", precision)
	amountStr := fmt.Sprintf(formatStr, amount)

	decAmount, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}

	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}

	result := decAmount.Mul(factor).TruncateInt()
	if !result.IsUint64() {
		return 0, fmt.Errorf("%w: amount does not fit in uint64", ErrConversionFailed)
	}

	return result.Uint64(), nil
}

// LamportsToSol converts lamports to whole SOL for display
func LamportsToSol(amount uint64) (float64, error) {
	return LamportsToDisplay(amount, SolDecimals)
}
