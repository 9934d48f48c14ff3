// Package metrics provides Prometheus-based metrics recording and querying
// for interview LLM operations.
package metrics

import (
	"time"
)

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, interviewID, node string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveTurn records metrics for a completed interview turn.
	ObserveTurn(node string, duration time.Duration)

	// IncExecution increments the sandbox execution counter.
	IncExecution(language, status string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are
// disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(
	_, _, _ string,
	_, _ int,
	_ bool,
	_ string,
	_ time.Duration,
) {
	// No-op
}

// ObserveTurn does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveTurn(_ string, _ time.Duration) {
	// No-op
}

// IncExecution does nothing in the no-op recorder.
func (n *NoopRecorder) IncExecution(_, _ string) {
	// No-op
}
