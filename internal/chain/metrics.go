package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	txSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockvault_tx_submitted_total",
		Help: "Transactions accepted into the mempool, by kind",
	}, []string{"kind"})

	txFinalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockvault_tx_finalized_total",
		Help: "Transactions that reached a terminal status, by kind and status",
	}, []string{"kind", "status"})

	txFinalityLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lockvault_tx_finality_seconds",
		Help:    "Time from submission to finality",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"kind"})

	mempoolDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lockvault_mempool_depth",
		Help: "Transactions waiting to be executed",
	})
)
