// Package metrics exposes Prometheus counters for credit decisions,
// lifecycle transitions and authentication failures.
package metrics

import (
	"net/http"

	"github.com/Dan9191/loanflow/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transition outcomes
const (
	OutcomeApplied   = "applied"
	OutcomeForbidden = "forbidden"
	OutcomeIllegal   = "illegal"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
)

// Recorder is what the services report to
type Recorder interface {
	RecordApplication(decision models.Decision)
	RecordTransition(target models.LoanStatus, outcome string)
	RecordAuthFailure(reason string)
}

// Collector is the Prometheus implementation of Recorder
type Collector struct {
	applications *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	authFailures *prometheus.CounterVec
}

// NewCollector creates the counters and registers them with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loanflow_applications_total",
			Help: "Credit applications created, by eligibility decision",
		}, []string{"decision"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loanflow_transitions_total",
			Help: "Lifecycle transition attempts, by target status and outcome",
		}, []string{"target", "outcome"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loanflow_auth_failures_total",
			Help: "Refused credentials, by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(c.applications, c.transitions, c.authFailures)
	return c
}

// RecordApplication counts a created application
func (c *Collector) RecordApplication(decision models.Decision) {
	c.applications.WithLabelValues(string(decision)).Inc()
}

// RecordTransition counts a transition attempt
func (c *Collector) RecordTransition(target models.LoanStatus, outcome string) {
	c.transitions.WithLabelValues(string(target), outcome).Inc()
}

// RecordAuthFailure counts a refused credential
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordApplication(models.Decision)          {}
func (Nop) RecordTransition(models.LoanStatus, string) {}
func (Nop) RecordAuthFailure(string)                   {}
