package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine-level collectors, registered on the default registry and exposed
// through /metrics by the HTTP server.
var (
	BalanceQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinledger_balance_queries_total",
		Help: "Balance computations by kind (total or available)",
	}, []string{"kind"})

	DepositsReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinledger_deposits_reconciled_total",
		Help: "Deposit reconciliation outcomes",
	}, []string{"outcome"})

	WithdrawalsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinledger_withdrawals_executed_total",
		Help: "Withdrawal ledger entries executed successfully",
	})

	WithdrawalsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinledger_withdrawals_failed_total",
		Help: "Withdrawal ledger entries that failed execution",
	})

	WithdrawalBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coinledger_withdrawal_batch_size",
		Help:    "Size of executed withdrawal batches",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})

	ReconcileTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinledger_reconcile_ticks_total",
		Help: "Completed reconcile ticks",
	})

	ScrapeHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "coinledger_scrape_height",
		Help: "Last scraped block height per wallet",
	}, []string{"wallet"})
)
