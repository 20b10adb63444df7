package service

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	OrdersCreated   prometheus.Counter
	OrdersCancelled prometheus.Counter
	OutcomesApplied *prometheus.CounterVec
	ConsumeFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_orders_created_total",
			Help: "Number of orders accepted through the API.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_orders_cancelled_total",
			Help: "Number of pending orders cancelled by customers.",
		}),
		OutcomesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_outcomes_applied_total",
			Help: "Settlement outcomes applied to orders, partitioned by status.",
		}, []string{"status"}),
		ConsumeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_outcome_consume_failures_total",
			Help: "Outcome events dropped because they could not be decoded or applied.",
		}),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.OrdersCreated, m.OrdersCancelled, m.OutcomesApplied, m.ConsumeFailures)
}
