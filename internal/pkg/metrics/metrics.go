// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"context"
	"strconv"

	"gruenerator-be/pkg/workflow"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	Classifications  *prometheus.CounterVec
	DispatchedIntent *prometheus.CounterVec
	NodeExecutions   *prometheus.CounterVec
	NodeDuration     *prometheus.HistogramVec
	Sessions         *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gruenerator",
			Name:      "intent_classifications_total",
			Help:      "Classified chat messages by resolving tier.",
		}, []string{"method", "multi"}),
		DispatchedIntent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gruenerator",
			Name:      "dispatched_intents_total",
			Help:      "Single-intent pipeline runs by agent and outcome.",
		}, []string{"agent", "outcome"}),
		NodeExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gruenerator",
			Name:      "workflow_node_executions_total",
			Help:      "Workflow node executions by node and outcome.",
		}, []string{"node", "outcome"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gruenerator",
			Name:      "workflow_node_duration_seconds",
			Help:      "Duration of workflow node executions.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"node"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gruenerator",
			Name:      "interactive_sessions_total",
			Help:      "Interactive session calls by operation and resulting status.",
		}, []string{"operation", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gruenerator",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Classifications,
		m.DispatchedIntent,
		m.NodeExecutions,
		m.NodeDuration,
		m.Sessions,
		m.HTTPRequests,
	)
	return m
}

// NodeObserver records every node execution of a workflow.
func (m *Metrics) NodeObserver() workflow.Observer {
	return func(_ context.Context, ev workflow.NodeEvent) {
		outcome := "continue"
		switch {
		case ev.Panicked:
			outcome = "panic"
		case ev.Suspended:
			outcome = "suspend"
		case workflow.GetOr(ev.State, "conversationState", "") == "error":
			outcome = "error"
		}
		m.NodeExecutions.WithLabelValues(ev.Node, outcome).Inc()
		m.NodeDuration.WithLabelValues(ev.Node).Observe(ev.Duration.Seconds())
	}
}

func (m *Metrics) ObserveClassification(method string, multi bool) {
	m.Classifications.WithLabelValues(method, strconv.FormatBool(multi)).Inc()
}

func (m *Metrics) ObserveDispatch(agent string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.DispatchedIntent.WithLabelValues(agent, outcome).Inc()
}

func (m *Metrics) ObserveSession(operation, status string) {
	m.Sessions.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
