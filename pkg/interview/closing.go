package interview

import (
	"context"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const closingPrompt = `You are wrapping up a spoken mock interview.
Produce a warm two- or three-sentence closing that references something from the conversation and thanks the candidate.
Respond with the closing text only, as plain spoken prose.`

// FallbackClosing is the fixed closing line used on generation failure.
const FallbackClosing = "Thank you so much for your time today. It was a pleasure talking with you, and I wish you the best of luck going forward."

// handleClosing delivers the closing message and moves the session into its
// final phase.
func (d *Driver) handleClosing(ctx context.Context, s *state.InterviewState) state.Patch {
	message := FallbackClosing

	user := "Conversation:\n" + contextmgr.ConversationContext(s)
	if s.ConversationSummary != "" {
		user += "\n\nEarlier summary: " + s.ConversationSummary
	}

	resp, err := d.conversationClient.Complete(ctx, llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(closingPrompt),
		llm.NewUserMessage(user),
	}))
	if err != nil {
		d.logger.Warn("closing generation failed, using canned closing: %v", err)
	} else if resp.Content != "" {
		message = resp.Content
	}

	return state.Patch{
		LastNode:    state.NodePtr(state.NodeClosing),
		Phase:       state.PhasePtr(state.PhaseClosing),
		NextMessage: state.StrPtr(message),
	}
}
