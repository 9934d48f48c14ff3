package llm

import (
	"context"
	"errors"
	"time"

	"interviewer/pkg/utils"
)

// RequestObserver receives telemetry for completed provider requests.
// metrics.Recorder satisfies it.
type RequestObserver interface {
	ObserveRequest(
		model, interviewID, node string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

type requestLabelsKey struct{}

type requestLabels struct {
	interviewID string
	node        string
}

// WithRequestLabels tags ctx with the interview and pipeline node making
// provider calls, so metered clients can label their observations.
func WithRequestLabels(ctx context.Context, interviewID, node string) context.Context {
	return context.WithValue(ctx, requestLabelsKey{}, requestLabels{interviewID: interviewID, node: node})
}

func labelsFrom(ctx context.Context) requestLabels {
	if labels, ok := ctx.Value(requestLabelsKey{}).(requestLabels); ok {
		return labels
	}
	return requestLabels{}
}

// MeteredClient decorates a Client with per-request metrics. Providers do
// not all report usage, so token counts are estimated from the request and
// response text with the tokenizer.
type MeteredClient struct {
	inner    Client
	observer RequestObserver
	counter  *utils.TokenCounter
}

// NewMeteredClient wraps inner so every request is reported to observer.
// counter may be nil; estimation then degrades to character counting.
func NewMeteredClient(inner Client, observer RequestObserver, counter *utils.TokenCounter) *MeteredClient {
	return &MeteredClient{inner: inner, observer: observer, counter: counter}
}

// GetModelName returns the wrapped model identifier.
func (m *MeteredClient) GetModelName() string {
	return m.inner.GetModelName()
}

// Complete implements the Client interface.
func (m *MeteredClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	started := time.Now()
	resp, err := m.inner.Complete(ctx, in)
	m.observe(ctx, in, resp.Content, err, time.Since(started))
	return resp, err
}

// Stream implements the Client interface. The observation is recorded once
// the stream finishes, with completion tokens counted over all chunks.
func (m *MeteredClient) Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error) {
	started := time.Now()
	inner, err := m.inner.Stream(ctx, in)
	if err != nil {
		m.observe(ctx, in, "", err, time.Since(started))
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		var content []byte
		var streamErr error
		for chunk := range inner {
			if chunk.Error != nil {
				streamErr = chunk.Error
			}
			content = append(content, chunk.Content...)
			out <- chunk
		}
		m.observe(ctx, in, string(content), streamErr, time.Since(started))
	}()
	return out, nil
}

func (m *MeteredClient) observe(ctx context.Context, in CompletionRequest, content string, err error, duration time.Duration) {
	labels := labelsFrom(ctx)

	promptTokens := 0
	for i := range in.Messages {
		promptTokens += m.counter.CountTokens(in.Messages[i].Content)
	}
	completionTokens := m.counter.CountTokens(content)

	m.observer.ObserveRequest(
		m.inner.GetModelName(), labels.interviewID, labels.node,
		promptTokens, completionTokens,
		err == nil, errorType(err), duration,
	)
}

func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "provider_error"
	}
}
