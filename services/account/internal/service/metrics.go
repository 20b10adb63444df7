package service

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	AssetCreations     prometheus.Counter
	OrdersSettled      *prometheus.CounterVec
	SettlementDuration prometheus.Histogram
	ConsumeFailures    prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		AssetCreations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_asset_creations_total",
			Help: "Number of assets created through the API.",
		}),
		OrdersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "account_orders_settled_total",
			Help: "Number of orders settled, partitioned by outcome status.",
		}, []string{"status"}),
		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "account_order_settlement_duration_seconds",
			Help:    "Time spent settling a single order against the ledger.",
			Buckets: prometheus.DefBuckets,
		}),
		ConsumeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_order_consume_failures_total",
			Help: "Order events dropped because they could not be parsed or settled.",
		}),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.AssetCreations, m.OrdersSettled, m.SettlementDuration, m.ConsumeFailures)
}
