package interview

import (
	"context"
	"fmt"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

// answerQuality is the lightweight assessment of the candidate's latest
// answer, consumed only by the policy step.
type answerQuality struct {
	Score     float64 `json:"score"`
	Depth     string  `json:"depth"`
	Complete  bool    `json:"complete"`
	Rationale string  `json:"rationale"`
}

const answerQualityPrompt = `You assess how well a candidate answered an interview question.
Respond with JSON only: {"score": 0.0-1.0, "depth": "shallow"|"adequate"|"deep", "complete": true|false, "rationale": "one sentence"}.`

// assessAnswer scores the latest answer against the pending question. It is
// best-effort: any failure yields a neutral mid-range score so routing never
// depends on the assessment succeeding.
func (d *Driver) assessAnswer(ctx context.Context, s *state.InterviewState) answerQuality {
	neutral := answerQuality{Score: 0.5, Depth: "adequate", Complete: true}

	if s.CurrentQuestion == "" || s.LastResponse == "" {
		return neutral
	}

	prompt := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nRecent conversation:\n%s",
		contextmgr.Truncate(s.CurrentQuestion, 300),
		contextmgr.Truncate(s.LastResponse, 600),
		contextmgr.ConversationContext(s))

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(answerQualityPrompt),
			llm.NewUserMessage(prompt),
		},
		MaxTokens:   256,
		Temperature: llm.TemperatureDeterministic,
	}

	var q answerQuality
	if err := llm.CompleteJSON(ctx, d.analysisClient, req, &q); err != nil {
		d.logger.Debug("answer quality assessment failed, using neutral score: %v", err)
		return neutral
	}

	q.Score = clamp01(q.Score)
	return q
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
