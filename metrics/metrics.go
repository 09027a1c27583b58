// Package metrics registers the service's Prometheus instruments on the
// default registry and offers small helpers so callers don't depend on
// prometheus types directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	planningRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planforge_planning_runs_total",
		Help: "Completed orchestrator runs by terminal outcome.",
	}, []string{"outcome"})

	agentInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planforge_agent_invocations_total",
		Help: "Specialist agent invocations by agent kind and status.",
	}, []string{"agent", "status"})

	agentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planforge_agent_invocation_seconds",
		Help:    "Wall-clock duration of specialist agent invocations.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	}, []string{"agent"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "planforge_active_sessions",
		Help: "Planning sessions currently held in the store.",
	})

	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "planforge_stream_clients",
		Help: "Currently connected SSE clients.",
	})
)

// ObserveAgentInvocation records one specialist agent call.
func ObserveAgentInvocation(agent, status string, d time.Duration) {
	agentInvocations.WithLabelValues(agent, status).Inc()
	agentDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// RecordRun counts one terminal orchestrator outcome
// ("complete", "escalation", or "error").
func RecordRun(outcome string) {
	planningRuns.WithLabelValues(outcome).Inc()
}

// SetActiveSessions reports the current store size.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// StreamClientConnected increments the connected-clients gauge.
func StreamClientConnected() {
	streamClients.Inc()
}

// StreamClientDisconnected decrements the connected-clients gauge.
func StreamClientDisconnected() {
	streamClients.Dec()
}
