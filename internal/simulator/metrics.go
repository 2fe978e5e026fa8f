package simulator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "supply_simulator"

type metrics struct {
	registry       *prometheus.Registry
	otpRequests    *prometheus.CounterVec
	otpValidations *prometheus.CounterVec
	redeemed       *prometheus.CounterVec
}

func newMetrics() *metrics {
	collectors := &metrics{
		registry: prometheus.NewRegistry(),
		otpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "otp",
				Name:      "requests_total",
				Help:      "OTP requests by outcome.",
			},
			[]string{"outcome"},
		),
		otpValidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "otp",
				Name:      "validations_total",
				Help:      "OTP validations by outcome.",
			},
			[]string{"outcome"},
		),
		redeemed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "quota",
				Name:      "redeemed_total",
				Help:      "Quantity redeemed by category.",
			},
			[]string{"category"},
		),
	}
	collectors.registry.MustRegister(collectors.otpRequests, collectors.otpValidations, collectors.redeemed)
	return collectors
}

func (collectors *metrics) handler() http.Handler {
	return promhttp.HandlerFor(collectors.registry, promhttp.HandlerOpts{})
}
