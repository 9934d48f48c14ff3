// Package intent classifies candidate utterances into a closed taxonomy of
// conversational intents.
package intent

import (
	"context"
	"fmt"
	"strings"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/logx"
	"interviewer/pkg/state"
)

// Detector classifies the candidate's latest utterance. Classification
// failure is never fatal: the detector degrades to no_intent so the turn
// proceeds on the default conversational path.
type Detector struct {
	client llm.Client
	logger *logx.Logger
}

// NewDetector creates an intent detector.
func NewDetector(client llm.Client) *Detector {
	return &Detector{
		client: client,
		logger: logx.NewLogger("intent"),
	}
}

const systemPrompt = `You classify the intent of a candidate's latest reply in a technical mock interview.
Choose exactly one intent type:
- write_code: candidate wants to write or try code
- review_code: candidate wants their code looked at
- change_topic: candidate wants to move to a different subject
- clarify: candidate did not understand and wants the question rephrased
- technical_assessment: candidate asks to be tested on a specific skill
- stop: candidate wants to end the interview
- continue: candidate signals to keep going with the current flow
- no_intent: nothing beyond answering the question

Respond with only a JSON object:
{"type": "<intent>", "confidence": <0.0-1.0>, "reason": "<short phrase>"}`

type classification struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Detect classifies the latest utterance against the conversation context.
// When last_response is absent it returns no_intent without calling the
// provider.
func (d *Detector) Detect(ctx context.Context, s *state.InterviewState) state.UserIntent {
	if strings.TrimSpace(s.LastResponse) == "" {
		return state.UserIntent{Type: state.IntentNone, Turn: s.TurnCount}
	}

	userPrompt := fmt.Sprintf("Conversation so far:\n%s\n\nCandidate's latest reply:\n%s",
		contextmgr.ConversationContext(s), s.LastResponse)

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(systemPrompt),
			llm.NewUserMessage(userPrompt),
		},
		MaxTokens:   128,
		Temperature: llm.TemperatureDeterministic,
	}

	var result classification
	if err := llm.CompleteJSON(ctx, d.client, req, &result); err != nil {
		d.logger.Warn("intent classification failed, defaulting to no_intent: %v", err)
		return state.UserIntent{Type: state.IntentNone, Turn: s.TurnCount}
	}

	intentType := state.IntentType(result.Type)
	if !state.IsValidIntentType(intentType) {
		d.logger.Warn("classifier returned unknown intent %q, defaulting to no_intent", result.Type)
		return state.UserIntent{Type: state.IntentNone, Turn: s.TurnCount}
	}

	confidence := result.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	detected := state.UserIntent{
		Type:       intentType,
		Confidence: confidence,
		Turn:       s.TurnCount,
	}
	if result.Reason != "" {
		detected.Metadata = map[string]string{"reason": result.Reason}
	}

	logx.Debug(ctx, "intent", "detected %s (%.2f) on turn %d", detected.Type, detected.Confidence, detected.Turn)
	return detected
}
