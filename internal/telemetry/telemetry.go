/*

This file exposes the pool mirror and cycle outcomes as Prometheus
metrics. The maintainer refreshes the gauges after every cycle and the
web server serves them on /metrics.

*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquifer-labs/aquifer/internal/pool"
)

const namespace = "aquifer"

var (
	reserveLamports = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reserve_lamports",
		Help:      "Undelegated SOL held in the reserve.",
	})
	stSolSupply = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "st_sol_supply",
		Help:      "stSOL in existence, in stSOL lamports.",
	})
	exchangeRateSol = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "exchange_rate_sol",
		Help:      "SOL value of one stSOL at the frozen exchange rate.",
	})
	exchangeRateEpoch = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "exchange_rate_epoch",
		Help:      "Epoch in which the exchange rate was last frozen.",
	})
	lastProcessedEpoch = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_processed_epoch",
		Help:      "Most recent epoch a maintenance cycle completed for.",
	})
	validatorCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validators",
		Help:      "Validators in the pool registry.",
	})
	activeValidatorCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validators_active",
		Help:      "Validators currently accepting stake.",
	})
	maintainerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "maintainers",
		Help:      "Members of the maintainer set.",
	})
	validatorEffectiveStake = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validator_effective_stake_lamports",
		Help:      "Stake delegated to the validator, unstake accounts excluded.",
	}, []string{"vote_account"})
	validatorUnstakeBalance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validator_unstake_lamports",
		Help:      "Value waiting in the validator's unstake accounts.",
	}, []string{"vote_account"})

	// Lifetime totals the pool itself accumulates; exported as gauges
	// because they are read back from the mirror, not incremented here.
	poolFeeTreasurySol = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_fee_treasury_sol_lamports",
		Help:      "Lifetime treasury fees in SOL lamports.",
	})
	poolFeeValidationSol = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_fee_validation_sol_lamports",
		Help:      "Lifetime validation fees in SOL lamports.",
	})
	poolFeeDeveloperSol = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_fee_developer_sol_lamports",
		Help:      "Lifetime developer fees in SOL lamports.",
	})
	poolAppreciationSol = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_st_sol_appreciation_lamports",
		Help:      "Lifetime rewards left in the pool to appreciate stSOL.",
	})
	poolDepositedLamports = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_deposited_lamports",
		Help:      "Lifetime SOL deposited into the pool.",
	})
	poolWithdrawnLamports = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_withdrawn_lamports",
		Help:      "Lifetime SOL withdrawn from the pool.",
	})
	poolWithdrawals = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_withdrawals",
		Help:      "Lifetime number of withdrawals.",
	})

	cyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Completed maintenance cycles by result.",
	}, []string{"result"})
	stakeActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stake_actions_total",
		Help:      "Stake movements applied to the pool mirror.",
	}, []string{"type", "result"})
	rewardsLamportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rewards_lamports_total",
		Help:      "Validation rewards distributed through the pool.",
	})
)

func init() {
	prometheus.MustRegister(
		reserveLamports,
		stSolSupply,
		exchangeRateSol,
		exchangeRateEpoch,
		lastProcessedEpoch,
		validatorCount,
		activeValidatorCount,
		maintainerCount,
		validatorEffectiveStake,
		validatorUnstakeBalance,
		poolFeeTreasurySol,
		poolFeeValidationSol,
		poolFeeDeveloperSol,
		poolAppreciationSol,
		poolDepositedLamports,
		poolWithdrawnLamports,
		poolWithdrawals,
		cyclesTotal,
		stakeActionsTotal,
		rewardsLamportsTotal,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Update refreshes every pool gauge from the mirror. Vote accounts that
// left the registry are dropped rather than left at their last value.
func Update(p *pool.Pool, epoch uint64) {
	if p == nil {
		return
	}

	reserveLamports.Set(float64(p.ReserveBalance))
	stSolSupply.Set(float64(p.StSolSupply))
	exchangeRateSol.Set(ExchangeRateSol(p))
	exchangeRateEpoch.Set(float64(p.ExchangeRate.ComputedInEpoch))
	lastProcessedEpoch.Set(float64(epoch))
	validatorCount.Set(float64(p.Validators.Len()))
	activeValidatorCount.Set(float64(p.ActiveValidatorCount()))
	maintainerCount.Set(float64(p.Maintainers.Len()))

	poolFeeTreasurySol.Set(float64(p.Metrics.FeeTreasurySolTotal))
	poolFeeValidationSol.Set(float64(p.Metrics.FeeValidationSolTotal))
	poolFeeDeveloperSol.Set(float64(p.Metrics.FeeDeveloperSolTotal))
	poolAppreciationSol.Set(float64(p.Metrics.StSolAppreciationSolTotal))
	poolDepositedLamports.Set(float64(p.Metrics.DepositAmount.Total))
	poolWithdrawnLamports.Set(float64(p.Metrics.WithdrawAmount.TotalSolAmount))
	poolWithdrawals.Set(float64(p.Metrics.WithdrawAmount.Count))

	validatorEffectiveStake.Reset()
	validatorUnstakeBalance.Reset()
	for i := range p.Validators.Entries {
		entry := &p.Validators.Entries[i]
		vote := entry.Pubkey.String()
		validatorEffectiveStake.WithLabelValues(vote).Set(float64(entry.Value.EffectiveStakeBalance()))
		validatorUnstakeBalance.WithLabelValues(vote).Set(float64(entry.Value.UnstakeAccountsBalance))
	}
}

// ObserveCycle counts one finished maintenance cycle.
func ObserveCycle(success bool) {
	cyclesTotal.WithLabelValues(resultLabel(success)).Inc()
}

// ObserveAction counts one stake movement applied to the mirror.
func ObserveAction(actionType string, success bool) {
	stakeActionsTotal.WithLabelValues(actionType, resultLabel(success)).Inc()
}

// ObserveRewards adds freshly distributed rewards to the running total.
func ObserveRewards(lamports uint64) {
	rewardsLamportsTotal.Add(float64(lamports))
}

// ExchangeRateSol is the SOL value of one stSOL at the frozen rate,
// one to one while the pool is empty.
func ExchangeRateSol(p *pool.Pool) float64 {
	if p.ExchangeRate.StSolSupply == 0 || p.ExchangeRate.SolBalance == 0 {
		return 1.0
	}
	return float64(p.ExchangeRate.SolBalance) / float64(p.ExchangeRate.StSolSupply)
}
