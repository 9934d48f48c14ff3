package interview

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const clarifyPrompt = `The candidate asked for clarification of the last interview question.
Rephrase the question in simpler, more concrete terms without changing what it probes.
Respond with the rephrased question only, as plain spoken text.`

const probePrompt = `You are conducting a spoken mock interview. The candidate just answered a question.
Ask one follow-up that digs deeper into their answer: a specific detail, a trade-off they glossed over, or the reasoning behind a choice.
Respond with the follow-up question only, as plain spoken text.`

// FallbackFollowup is the canned probe used on generation failure.
const FallbackFollowup = "That's interesting. Could you go a bit deeper into how you approached that?"

// handleFollowup probes the previous answer, or rephrases the pending
// question when the active intent is a clarification request. Logs a
// followup QuestionRecord unless the text duplicates an earlier question.
func (d *Driver) handleFollowup(ctx context.Context, s *state.InterviewState) state.Patch {
	clarify := s.ActiveUserRequest != nil && s.ActiveUserRequest.Type == state.IntentClarify

	text, err := d.generateFollowup(ctx, s, clarify)
	if err != nil {
		d.logger.Warn("followup generation failed, using fallback: %v", err)
		text = FallbackFollowup
	}

	patch := state.Patch{
		LastNode:        state.NodePtr(state.NodeFollowup),
		NextMessage:     state.StrPtr(text),
		CurrentQuestion: state.StrPtr(text),
	}

	if !s.HasQuestion(text) {
		patch.AppendQuestions = []state.QuestionRecord{{
			ID:     uuid.NewString(),
			Text:   text,
			Source: state.QuestionSourceFollowup,
			Turn:   s.TurnCount,
		}}
	}
	return patch
}

func (d *Driver) generateFollowup(ctx context.Context, s *state.InterviewState, clarify bool) (string, error) {
	system := probePrompt
	if clarify {
		system = clarifyPrompt
	}

	user := fmt.Sprintf("Pending question: %s\n\nCandidate's latest reply: %s\n\nRecent conversation:\n%s",
		contextmgr.Truncate(s.CurrentQuestion, 300),
		contextmgr.Truncate(s.LastResponse, 600),
		contextmgr.ConversationContext(s))

	resp, err := d.conversationClient.Complete(ctx, llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(user),
	}))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
