package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus
// metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	turnDuration    *prometheus.HistogramVec
	executionsTotal *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by model, interview, node, and status",
			},
			[]string{"model", "interview_id", "node", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "interview_id", "node", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "interview_id", "node"},
		),
		turnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interview_turn_duration_seconds",
				Help:    "Duration of interview turn steps in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		executionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_executions_total",
				Help: "Total number of sandbox code executions by language and status",
			},
			[]string{"language", "status"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, interviewID, node string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, interviewID, node, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, interviewID, node, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, interviewID, node, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, interviewID, node).Observe(duration.Seconds())
}

// ObserveTurn records the duration of one turn step.
func (p *PrometheusRecorder) ObserveTurn(node string, duration time.Duration) {
	p.turnDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// IncExecution increments the sandbox execution counter.
func (p *PrometheusRecorder) IncExecution(language, status string) {
	p.executionsTotal.WithLabelValues(language, status).Inc()
}
