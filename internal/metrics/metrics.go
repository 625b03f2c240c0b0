package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "number of orders reserved",
		},
	)
	OrdersRedeemed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_redeemed_total",
			Help: "number of orders redeemed at a tap",
		},
	)
	OrdersExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "number of orders expired by the sweeper",
		},
	)
	WebhookDuplicates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_duplicates_total",
			Help: "number of processor webhook deliveries dropped as duplicates",
		},
	)
	RefundBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refund_batches_total",
			Help: "number of refund batches dispatched to the processor",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		OrdersCreated,
		OrdersRedeemed,
		OrdersExpired,
		WebhookDuplicates,
		RefundBatches,
	)
}
