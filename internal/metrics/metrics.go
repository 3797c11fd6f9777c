package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for admission and lifecycle flows.
type BookingMetrics struct {
	admissionTotal *prometheus.CounterVec
	admissionWait  prometheus.Histogram
	transitions    *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		admissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "admission_total",
			Help:      "Booking admission decisions by outcome",
		}, []string{"outcome"}),
		admissionWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "admission_wait_seconds",
			Help:      "Time spent waiting for the per doctor/date admission lock",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Booking status transitions",
		}, []string{"from", "to"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.admissionTotal, m.admissionWait, m.transitions)
	return m
}

func (m *BookingMetrics) ObserveAdmission(outcome string, wait time.Duration) {
	if m == nil {
		return
	}
	m.admissionTotal.WithLabelValues(outcome).Inc()
	m.admissionWait.Observe(wait.Seconds())
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}
