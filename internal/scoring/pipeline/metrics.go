package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoredTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profit_scored_transactions_total",
		Help: "Number of transactions processed, by outcome",
	}, []string{"status"})
	scoreDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "profit_score_duration_seconds",
		Help:    "Time spent scoring one transaction",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	skippedLogs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "profit_skipped_logs_total",
		Help: "Number of transfer logs skipped because they could not be attributed or decoded",
	})
)
