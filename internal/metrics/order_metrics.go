package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons used as the "reason" label.
const (
	ReasonInvalidInput     = "invalid_input"
	ReasonOutOfStock       = "out_of_stock"
	ReasonStoreUnavailable = "store_unavailable"
)

// OrderMetrics holds checkout metrics.
type OrderMetrics struct {
	ordersPlaced   prometheus.Counter
	ordersRejected *prometheus.CounterVec
	seatsReserved  prometheus.Counter
	txDuration     prometheus.Histogram
}

// NewOrderMetrics registers checkout metrics with the default registerer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer registers checkout metrics with registerer.
// Collectors that are already registered are reused.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersPlaced: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lessonshop_orders_placed_total",
			Help: "Total number of orders committed",
		})),
		ordersRejected: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lessonshop_orders_rejected_total",
			Help: "Total number of order submissions rejected, by reason",
		}, []string{"reason"})),
		seatsReserved: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lessonshop_seats_reserved_total",
			Help: "Total number of lesson seats reserved by committed orders",
		})),
		txDuration: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lessonshop_order_tx_duration_seconds",
			Help:    "Duration of order placement transactions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})),
	}
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// RecordPlaced counts a committed order and its seats.
func (m *OrderMetrics) RecordPlaced(seats int) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.seatsReserved.Add(float64(seats))
}

// RecordRejected counts a rejected submission.
func (m *OrderMetrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordTxDuration records how long a placement transaction took.
func (m *OrderMetrics) RecordTxDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.txDuration.Observe(d.Seconds())
}
