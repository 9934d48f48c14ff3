package contextmgr

import (
	"context"
	"fmt"
	"strings"

	"interviewer/pkg/llm"
	"interviewer/pkg/state"
	"interviewer/pkg/utils"
)

// SummaryTokenBudget caps how much recent transcript feeds the rolling
// summary prompt.
const SummaryTokenBudget = 1500

// Summarizer regenerates the rolling conversation summary. Failure is
// non-fatal by contract: callers skip the update and keep the old summary.
type Summarizer struct {
	client  llm.Client
	counter *utils.TokenCounter
}

// NewSummarizer creates a summarizer. counter may be nil; token budgeting
// then falls back to character estimation inside TokenCounter.
func NewSummarizer(client llm.Client, counter *utils.TokenCounter) *Summarizer {
	return &Summarizer{client: client, counter: counter}
}

// ShouldRefresh reports whether the rolling summary is due: every
// interval-th turn, when history exceeds the threshold, or when no summary
// exists yet.
func ShouldRefresh(s *state.InterviewState, interval, historyThreshold int) bool {
	if s.ConversationSummary == "" {
		return true
	}
	if interval > 0 && s.TurnCount > 0 && s.TurnCount%interval == 0 {
		return true
	}
	return len(s.ConversationHistory) > historyThreshold
}

// Summarize produces a short rolling summary from the most recent messages.
func (sm *Summarizer) Summarize(ctx context.Context, s *state.InterviewState) (string, error) {
	transcript := sm.recentTranscript(s)
	if transcript == "" {
		return "", fmt.Errorf("no conversation to summarize")
	}

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage("You summarize interview conversations. Respond with 2-4 sentences capturing the topics discussed, the candidate's notable answers, and any pending question. No preamble."),
			llm.NewUserMessage(transcript),
		},
		MaxTokens:   256,
		Temperature: llm.TemperatureDeterministic,
	}

	resp, err := sm.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("summary generation returned empty text")
	}
	return summary, nil
}

// recentTranscript renders history from newest backwards until the token
// budget is spent, then restores chronological order.
func (sm *Summarizer) recentTranscript(s *state.InterviewState) string {
	var lines []string
	budget := SummaryTokenBudget

	for i := len(s.ConversationHistory) - 1; i >= 0; i-- {
		msg := &s.ConversationHistory[i]
		if msg.Role == state.RoleSystem || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		line := fmt.Sprintf("%s: %s", strings.ToUpper(string(msg.Role)), msg.Content)
		cost := sm.counter.CountTokens(line)
		if cost > budget {
			break
		}
		budget -= cost
		lines = append(lines, line)
	}

	// Reverse back to chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}
