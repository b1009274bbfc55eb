package pool

import (
	"github.com/aquifer-labs/aquifer/internal/token"
)

const (
	// LamportsHistogramSize is the serialized size of a LamportsHistogram.
	LamportsHistogramSize = histogramBuckets*8 + 8

	// WithdrawMetricSize is the serialized size of a WithdrawMetric.
	WithdrawMetricSize = 8 + 8 + 8

	// MetricsSize is the serialized size of Metrics.
	MetricsSize = 7*8 + LamportsHistogramSize + WithdrawMetricSize

	histogramBuckets = 12
)

// Metrics are lifetime totals the pool accumulates as it operates.
// They are write-only: no pool logic ever reads them back, they exist
// for operators and dashboards.
type Metrics struct {
	FeeTreasurySolTotal       token.Lamports
	FeeValidationSolTotal     token.Lamports
	FeeDeveloperSolTotal      token.Lamports
	StSolAppreciationSolTotal token.Lamports
	FeeTreasuryStSolTotal     token.StLamports
	FeeValidationStSolTotal   token.StLamports
	FeeDeveloperStSolTotal    token.StLamports

	DepositAmount  LamportsHistogram
	WithdrawAmount WithdrawMetric
}

// LamportsHistogram counts observed amounts by decimal magnitude:
// bucket i counts amounts of i+1 decimal digits, with everything of
// twelve digits or more in the last bucket.
type LamportsHistogram struct {
	Counts [histogramBuckets]uint64
	Total  token.Lamports
}

// Observe records one amount.
func (h *LamportsHistogram) Observe(amount token.Lamports) error {
	total, err := h.Total.Add(amount)
	if err != nil {
		return err
	}
	h.Counts[bucketIndex(amount)]++
	h.Total = total
	return nil
}

func bucketIndex(amount token.Lamports) int {
	idx := 0
	for n := uint64(amount); n >= 10 && idx < histogramBuckets-1; n /= 10 {
		idx++
	}
	return idx
}

// WithdrawMetric tracks withdrawals in both denominations.
type WithdrawMetric struct {
	TotalStSolAmount token.StLamports
	TotalSolAmount   token.Lamports
	Count            uint64
}

// Observe records one withdrawal.
func (w *WithdrawMetric) Observe(burned token.StLamports, returned token.Lamports) error {
	st, err := w.TotalStSolAmount.Add(burned)
	if err != nil {
		return err
	}
	sol, err := w.TotalSolAmount.Add(returned)
	if err != nil {
		return err
	}
	w.TotalStSolAmount = st
	w.TotalSolAmount = sol
	w.Count++
	return nil
}

// ObserveDeposit records a deposit.
func (m *Metrics) ObserveDeposit(amount token.Lamports) error {
	return m.DepositAmount.Observe(amount)
}

// ObserveWithdraw records a withdrawal.
func (m *Metrics) ObserveWithdraw(burned token.StLamports, returned token.Lamports) error {
	return m.WithdrawAmount.Observe(burned, returned)
}

// ObserveFee records one reward distribution. All new totals are
// computed before any is assigned, so a failure leaves the metrics
// untouched.
func (m *Metrics) ObserveFee(d *FeeDistribution) error {
	byCount := token.Rational{Numerator: d.ValidatorCount, Denominator: 1}
	validationSol, err := d.Fees.RewardPerValidator.Mul(byCount)
	if err != nil {
		return err
	}
	validationStSol, err := d.RewardPerValidatorStSol.Mul(byCount)
	if err != nil {
		return err
	}

	treasurySol, err := m.FeeTreasurySolTotal.Add(d.Fees.TreasuryAmount)
	if err != nil {
		return err
	}
	validationSolTotal, err := m.FeeValidationSolTotal.Add(validationSol)
	if err != nil {
		return err
	}
	developerSol, err := m.FeeDeveloperSolTotal.Add(d.Fees.DeveloperAmount)
	if err != nil {
		return err
	}
	appreciationSol, err := m.StSolAppreciationSolTotal.Add(d.Fees.StSolAppreciationAmount)
	if err != nil {
		return err
	}
	treasuryStSol, err := m.FeeTreasuryStSolTotal.Add(d.TreasuryStSol)
	if err != nil {
		return err
	}
	validationStSolTotal, err := m.FeeValidationStSolTotal.Add(validationStSol)
	if err != nil {
		return err
	}
	developerStSol, err := m.FeeDeveloperStSolTotal.Add(d.DeveloperStSol)
	if err != nil {
		return err
	}

	m.FeeTreasurySolTotal = treasurySol
	m.FeeValidationSolTotal = validationSolTotal
	m.FeeDeveloperSolTotal = developerSol
	m.StSolAppreciationSolTotal = appreciationSol
	m.FeeTreasuryStSolTotal = treasuryStSol
	m.FeeValidationStSolTotal = validationStSolTotal
	m.FeeDeveloperStSolTotal = developerStSol
	return nil
}
