package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records outcomes of order placement attempts.
type CheckoutMetrics struct {
	placed   prometheus.Counter
	failures *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders successfully placed.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Failed order placement attempts by reason.",
	}, []string{"reason"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of the place-order transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(placed, failures, duration)
	return &CheckoutMetrics{
		placed:   placed,
		failures: failures,
		duration: duration,
	}
}

// IncPlaced increments the placed-orders counter.
func (c *CheckoutMetrics) IncPlaced() {
	if c == nil || c.placed == nil {
		return
	}
	c.placed.Inc()
}

// IncFailure increments the failure counter for the given reason.
func (c *CheckoutMetrics) IncFailure(reason string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveDuration records how long a place-order attempt took.
func (c *CheckoutMetrics) ObserveDuration(duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(duration.Seconds())
}
