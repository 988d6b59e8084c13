// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pool service.
type Metrics struct {
	// Pool lifecycle
	PoolsCreated prometheus.Counter
	PoolsActive  prometheus.Gauge

	// Accounting operations
	DepositsTotal      prometheus.Counter
	WithdrawalsTotal   prometheus.Counter
	OperationFailures  *prometheus.CounterVec // labeled by op, reason
	UnitsMintedTotal   prometheus.Counter
	UnitsBurnedTotal   prometheus.Counter
	ReserveDeposited   prometheus.Counter
	ReserveReleased    prometheus.Counter

	// Per-pool gauges
	ReserveBalance *prometheus.GaugeVec // labeled by pool
	TotalUnits     *prometheus.GaugeVec // labeled by pool

	// Latency
	OperationDuration *prometheus.HistogramVec // labeled by op

	// Persistence
	StoreWriteErrors *prometheus.CounterVec // labeled by store
}

// NewMetrics creates a new Metrics instance registered on the default
// Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers all metrics on the given registerer.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "offsetzap_pool"
	}

	factory := promauto.With(reg)
	return &Metrics{
		PoolsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "pools_created_total",
			Help:      "Total number of pools created",
		}),
		PoolsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "pools_active",
			Help:      "Number of registered pools",
		}),
		DepositsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "deposits_total",
			Help:      "Total number of successful deposits",
		}),
		WithdrawalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "withdrawals_total",
			Help:      "Total number of successful withdrawals",
		}),
		OperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "operation_failures_total",
			Help:      "Total number of rejected operations by reason",
		}, []string{"op", "reason"}),
		UnitsMintedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "units_minted_total",
			Help:      "Total receipt units minted",
		}),
		UnitsBurnedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "units_burned_total",
			Help:      "Total receipt units burned",
		}),
		ReserveDeposited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "reserve_deposited_total",
			Help:      "Total reserve smallest units deposited",
		}),
		ReserveReleased: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "reserve_released_total",
			Help:      "Total reserve smallest units released to depositors",
		}),
		ReserveBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "reserve_balance",
			Help:      "Current reserve balance per pool",
		}, []string{"pool"}),
		TotalUnits: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "total_units",
			Help:      "Current outstanding receipt units per pool",
		}, []string{"pool"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "operation_duration_seconds",
			Help:      "Duration of accounting operations including ledger calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		StoreWriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "write_errors_total",
			Help:      "Total persistence write failures by store",
		}, []string{"store"}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
