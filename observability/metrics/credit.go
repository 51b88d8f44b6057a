package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type CreditMetrics struct {
	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	poolShares    prometheus.Gauge
	poolAssets    prometheus.Gauge
	poolBorrowed  prometheus.Gauge
	vaultBalance  prometheus.Gauge
	commitBatches prometheus.Histogram
}

var (
	creditOnce     sync.Once
	creditRegistry *CreditMetrics
)

func Credit() *CreditMetrics {
	creditOnce.Do(func() {
		creditRegistry = &CreditMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "credit_operations_total",
				Help: "Count of credit operations by name and outcome kind.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "credit_operation_duration_seconds",
				Help:    "Latency of credit operations including the state commit.",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation"}),
			poolShares: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "credit_pool_total_shares",
				Help: "Outstanding liquidity pool shares.",
			}),
			poolAssets: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "credit_pool_total_assets",
				Help: "Assets attributed to the liquidity pool in base units.",
			}),
			poolBorrowed: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "credit_pool_total_borrowed",
				Help: "Pool principal currently lent out in base units.",
			}),
			vaultBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "credit_pool_vault_balance",
				Help: "Idle balance held by the pool vault in base units.",
			}),
			commitBatches: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "credit_commit_batch_writes",
				Help:    "Number of state writes flushed per committed operation.",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			}),
		}
		prometheus.MustRegister(
			creditRegistry.operations,
			creditRegistry.latency,
			creditRegistry.poolShares,
			creditRegistry.poolAssets,
			creditRegistry.poolBorrowed,
			creditRegistry.vaultBalance,
			creditRegistry.commitBatches,
		)
	})
	return creditRegistry
}

// ObserveOperation records one operation attempt and its outcome kind.
func (m *CreditMetrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCommit records the size of a committed write batch.
func (m *CreditMetrics) ObserveCommit(writes int) {
	if m == nil {
		return
	}
	m.commitBatches.Observe(float64(writes))
}

// SetPool publishes the pool accounting snapshot.
func (m *CreditMetrics) SetPool(totalShares, totalAssets, totalBorrowed, vaultBalance uint64) {
	if m == nil {
		return
	}
	m.poolShares.Set(float64(totalShares))
	m.poolAssets.Set(float64(totalAssets))
	m.poolBorrowed.Set(float64(totalBorrowed))
	m.vaultBalance.Set(float64(vaultBalance))
}
