package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	submitSuccess   prometheus.Counter
	submitFailure   prometheus.Counter
	confirmedTotal  prometheus.Counter
	feeSkippedTotal prometheus.Counter
	confirmDuration prometheus.Histogram
}

// NewMetrics registers the engine's counters with the given registerer.
// Tests pass a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmbot_submit_success_total",
			Help: "Total number of successfully submitted transactions",
		}),
		submitFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmbot_submit_failure_total",
			Help: "Total number of failed submission attempts",
		}),
		confirmedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmbot_tx_confirmed_total",
			Help: "Total number of transactions confirmed to the required depth",
		}),
		feeSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "farmbot_fee_accounting_skipped_total",
			Help: "Confirmed transactions skipped for fee accounting due to a bad receipt",
		}),
		confirmDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "farmbot_confirmation_duration_seconds",
			Help:    "Time from batch submission to full confirmation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(m.submitSuccess, m.submitFailure, m.confirmedTotal, m.feeSkippedTotal, m.confirmDuration)
	return m
}

func (m *Metrics) TrackConfirmation(start time.Time) {
	m.confirmDuration.Observe(time.Since(start).Seconds())
}
