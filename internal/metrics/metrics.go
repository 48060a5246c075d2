// Package metrics holds the Prometheus collectors for the studio pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for pipeline runs and agent calls.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	RetriesUsed   prometheus.Histogram
	JudgeScores   prometheus.Histogram
	StageDuration *prometheus.HistogramVec

	AgentCallsTotal  *prometheus.CounterVec
	AgentCallSeconds *prometheus.HistogramVec

	BatchFilesTotal *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

// Get returns the process-wide collectors, registering them on first use.
//
// Metrics:
//   - studio_runs_total{outcome} - runs by terminal stage
//   - studio_run_retries - retries used per run
//   - studio_judge_score - judge scores
//   - studio_stage_duration_seconds{stage} - time spent per stage
//   - studio_agent_calls_total{agent,result} - agent invocations
//   - studio_agent_call_duration_seconds{agent} - agent latency
//   - studio_batch_files_total{status} - batch files by status
//   - studio_http_requests_total{route,code} - handled requests
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "studio",
					Name:      "runs_total",
					Help:      "Total number of workflow runs by outcome",
				},
				[]string{"outcome"},
			),
			RetriesUsed: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "studio",
					Name:      "run_retries",
					Help:      "Retries consumed per workflow run",
					Buckets:   []float64{0, 1, 2, 3, 5, 8},
				},
			),
			JudgeScores: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "studio",
					Name:      "judge_score",
					Help:      "Scores assigned by the judge",
					Buckets:   prometheus.LinearBuckets(0, 10, 11),
				},
			),
			StageDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "studio",
					Name:      "stage_duration_seconds",
					Help:      "Duration of each workflow stage in seconds",
					Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
				},
				[]string{"stage"},
			),
			AgentCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "studio",
					Name:      "agent_calls_total",
					Help:      "Total number of agent invocations",
				},
				[]string{"agent", "result"},
			),
			AgentCallSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "studio",
					Name:      "agent_call_duration_seconds",
					Help:      "Duration of agent invocations in seconds",
					Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
				},
				[]string{"agent"},
			),
			BatchFilesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "studio",
					Name:      "batch_files_total",
					Help:      "Total number of batch files by status",
				},
				[]string{"status"},
			),
			HTTPRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "studio",
					Name:      "http_requests_total",
					Help:      "Total number of HTTP requests by route and status code",
				},
				[]string{"route", "code"},
			),
		}
	})
	return globalMetrics
}

// ObserveAgentCall records one agent invocation.
func (m *Metrics) ObserveAgentCall(agent string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AgentCallsTotal.WithLabelValues(agent, result).Inc()
	m.AgentCallSeconds.WithLabelValues(agent).Observe(seconds)
}
