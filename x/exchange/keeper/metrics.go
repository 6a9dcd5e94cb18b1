package keeper

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the exchange module.
type Metrics struct {
	SwapsTotal    *prometheus.CounterVec
	SwapLatency   prometheus.Histogram
	OrdersPlaced  *prometheus.CounterVec
	OrdersFilled  *prometheus.CounterVec
	OrdersPartial *prometheus.CounterVec
	OrdersCancel  *prometheus.CounterVec
	RestingOrders *prometheus.GaugeVec
	BooksTotal    prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics creates and registers exchange metrics (singleton pattern).
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			SwapsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gridex",
					Subsystem: "exchange",
					Name:      "swaps_total",
					Help:      "Total number of routed swaps executed",
				},
				[]string{"pair", "status"},
			),
			SwapLatency: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "gridex",
					Subsystem: "exchange",
					Name:      "swap_latency_seconds",
					Help:      "Latency of routed swap settlement",
					Buckets:   prometheus.DefBuckets,
				},
			),
			OrdersPlaced: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gridex",
					Subsystem: "exchange",
					Name:      "orders_placed_total",
					Help:      "Total number of limit orders deposited as resting liquidity",
				},
				[]string{"pair", "side"},
			),
			OrdersFilled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gridex",
					Subsystem: "exchange",
					Name:      "orders_filled_total",
					Help:      "Total number of resting orders fully consumed",
				},
				[]string{"pair", "side"},
			),
			OrdersPartial: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gridex",
					Subsystem: "exchange",
					Name:      "orders_partial_fills_total",
					Help:      "Total number of partial fills applied to resting orders",
				},
				[]string{"pair", "side"},
			),
			OrdersCancel: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gridex",
					Subsystem: "exchange",
					Name:      "orders_cancelled_total",
					Help:      "Total number of maker cancellations",
				},
				[]string{"pair", "side"},
			),
			RestingOrders: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "gridex",
					Subsystem: "exchange",
					Name:      "resting_orders",
					Help:      "Current number of resting orders per book side",
				},
				[]string{"pair", "side"},
			),
			BooksTotal: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "gridex",
					Subsystem: "exchange",
					Name:      "books_total",
					Help:      "Number of registered order books",
				},
			),
		}
	})
	return metrics
}

func sideLabel(isBuy bool) string {
	if isBuy {
		return "buy"
	}
	return "sell"
}
