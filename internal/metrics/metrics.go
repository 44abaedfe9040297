// Package metrics collects the Prometheus counters exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements services.MetricsRecorder on top of Prometheus
// counters.
type Collector struct {
	logins        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	associations  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its counters with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdesk_logins_total",
			Help: "OAuth logins by outcome.",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdesk_token_verifications_total",
			Help: "Bearer token verifications by outcome.",
		}, []string{"outcome"}),
		associations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdesk_association_ops_total",
			Help: "Customer/product association operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(
		c.logins,
		c.verifications,
		c.associations,
	)

	return c
}

// RecordLogin counts a finished OAuth handoff.
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordTokenVerification counts a bearer token check.
func (c *Collector) RecordTokenVerification(outcome string) {
	c.verifications.WithLabelValues(outcome).Inc()
}

// RecordAssociationOp counts an Add, Remove or Replace call.
func (c *Collector) RecordAssociationOp(operation, outcome string) {
	c.associations.WithLabelValues(operation, outcome).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
