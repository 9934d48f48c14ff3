package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

func TestDetectClassifies(t *testing.T) {
	client := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"type": "write_code", "confidence": 0.85, "reason": "asked for the sandbox"}`},
	}, nil)
	detector := NewDetector(client)

	s := state.New(1, 1, state.ResumeContext{}, "")
	s.TurnCount = 3
	s.LastResponse = "Can I try writing some code for this?"

	detected := detector.Detect(context.Background(), &s)
	assert.Equal(t, state.IntentWriteCode, detected.Type)
	assert.InDelta(t, 0.85, detected.Confidence, 1e-9)
	assert.Equal(t, 3, detected.Turn)
	require.NotNil(t, detected.Metadata)
	assert.Equal(t, "asked for the sandbox", detected.Metadata["reason"])
	assert.True(t, detected.Active())
}

func TestDetectNoResponseSkipsProvider(t *testing.T) {
	client := llm.NewMockClient(nil, []error{errors.New("must not be called")})
	detector := NewDetector(client)

	s := state.New(1, 1, state.ResumeContext{}, "")
	s.LastResponse = "   "

	detected := detector.Detect(context.Background(), &s)
	assert.Equal(t, state.IntentNone, detected.Type)
	assert.Empty(t, client.Requests())
}

func TestDetectDegradesOnProviderError(t *testing.T) {
	client := llm.NewMockClient(nil, []error{errors.New("provider down")})
	detector := NewDetector(client)

	s := state.New(1, 1, state.ResumeContext{}, "")
	s.LastResponse = "I'd like to stop now"

	detected := detector.Detect(context.Background(), &s)
	assert.Equal(t, state.IntentNone, detected.Type)
	assert.False(t, detected.Active())
}

func TestDetectRejectsUnknownIntentType(t *testing.T) {
	client := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"type": "made_up_intent", "confidence": 0.99}`},
	}, nil)
	detector := NewDetector(client)

	s := state.New(1, 1, state.ResumeContext{}, "")
	s.LastResponse = "hello"

	detected := detector.Detect(context.Background(), &s)
	assert.Equal(t, state.IntentNone, detected.Type)
}

func TestDetectClampsConfidence(t *testing.T) {
	client := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"type": "stop", "confidence": 3.7}`},
	}, nil)
	detector := NewDetector(client)

	s := state.New(1, 1, state.ResumeContext{}, "")
	s.LastResponse = "that's enough for today"

	detected := detector.Detect(context.Background(), &s)
	assert.Equal(t, state.IntentStop, detected.Type)
	assert.Equal(t, 1.0, detected.Confidence)
}

func TestDetectParsesFencedJSON(t *testing.T) {
	client := llm.NewMockClient([]llm.CompletionResponse{
		{Content: "```json\n{\"type\": \"clarify\", \"confidence\": 0.8}\n```"},
	}, nil)
	detector := NewDetector(client)

	s := state.New(1, 1, state.ResumeContext{}, "")
	s.LastResponse = "sorry, what do you mean?"

	detected := detector.Detect(context.Background(), &s)
	assert.Equal(t, state.IntentClarify, detected.Type)
}
