package interview

import (
	"context"
	"fmt"
	"strings"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const policySystemPrompt = `You are the routing policy of a voice mock interview.
Given a snapshot of the session, choose the next conversational action.

Actions:
- greeting: open the interview (only if no assistant message exists yet)
- question: ask a new resume- or job-grounded question
- followup: probe deeper into the previous answer, or rephrase if the candidate asked for clarification
- sandbox_guidance: direct the candidate to the code sandbox, optionally with an exercise
- code_review: review submitted code (only when code is pending)
- evaluation: produce the final skill feedback (only when the interview is wrapping up)
- closing: deliver a warm closing message

Guidance:
- Do not repeat the same action more than two or three times in a row.
- Explicit candidate requests (stop, write_code, review_code, change_topic) take priority over the default flow.
- Offer sandbox_guidance proactively when the role is technical and no exercise has been issued.
- Let the conversation's quality, not a fixed turn budget, drive when to move to evaluation and closing.

Respond with JSON only: {"action": "<name>", "reason": "one sentence"}.`

type policyDecision struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// decideNextAction picks the action node for this turn. Intent overrides
// run first, then the LLM policy, then the deterministic fallback. The
// returned node is always routable.
func (d *Driver) decideNextAction(ctx context.Context, s *state.InterviewState, detected *state.UserIntent) state.Node {
	if node, ok := intentOverride(s, detected); ok {
		d.logger.Debug("intent override routed to %s", node)
		return node
	}

	decision, err := d.llmPolicy(ctx, s)
	if err != nil {
		fallback := fallbackAction(s)
		d.logger.Warn("policy generation failed, falling back to %s: %v", fallback, err)
		return fallback
	}

	chosen := Route(state.Node(decision.Action))
	if string(chosen) != decision.Action {
		d.logger.Warn("policy produced unknown action %q, routed to %s", decision.Action, chosen)
	}
	return chosen
}

// intentOverride maps high-confidence explicit requests straight to a node,
// bypassing the LLM policy.
func intentOverride(s *state.InterviewState, detected *state.UserIntent) (state.Node, bool) {
	if detected == nil || !detected.Active() {
		return "", false
	}

	switch detected.Type {
	case state.IntentStop:
		return state.NodeClosing, true
	case state.IntentWriteCode:
		return state.NodeSandboxGuidance, true
	case state.IntentReviewCode:
		if s.CurrentCode != "" || s.Sandbox.LastCodeSnapshot != "" {
			return state.NodeCodeReview, true
		}
		return state.NodeSandboxGuidance, true
	case state.IntentClarify:
		return state.NodeFollowup, true
	default:
		return "", false
	}
}

func (d *Driver) llmPolicy(ctx context.Context, s *state.InterviewState) (policyDecision, error) {
	summary := contextmgr.DecisionContext(s)
	quality := d.assessAnswer(ctx, s)

	var b strings.Builder
	fmt.Fprintf(&b, "Turn: %d\nPhase: %s\nLast action: %s\nQuestions asked: %d\n",
		summary.Turn, summary.Phase, summary.LastNode, summary.QuestionCount)
	if summary.LastQuestion != "" {
		fmt.Fprintf(&b, "Pending question: %s\n", contextmgr.Truncate(summary.LastQuestion, 200))
	}
	fmt.Fprintf(&b, "Last answer quality: %.2f (%s, complete=%t)\n", quality.Score, quality.Depth, quality.Complete)
	if summary.ActiveIntent != nil {
		fmt.Fprintf(&b, "Active candidate request: %s (confidence %.2f)\n",
			summary.ActiveIntent.Type, summary.ActiveIntent.Confidence)
	}
	if len(summary.Topics) > 0 {
		fmt.Fprintf(&b, "Topics covered: %s\n", strings.Join(summary.Topics, ", "))
	}
	fmt.Fprintf(&b, "Sandbox active: %t, submissions: %d\n", summary.SandboxActive, summary.SubmissionCount)
	fmt.Fprintf(&b, "History length: %d, assistant has spoken: %t\n", summary.HistoryLength, summary.HasAssistantMsg)
	if summary.Summary != "" {
		fmt.Fprintf(&b, "Conversation so far: %s\n", contextmgr.Truncate(summary.Summary, 500))
	}
	if recent := contextmgr.ConversationContext(s); recent != "" {
		fmt.Fprintf(&b, "\nRecent exchange:\n%s\n", recent)
	}

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(policySystemPrompt),
			llm.NewUserMessage(b.String()),
		},
		MaxTokens:   256,
		Temperature: llm.TemperatureDeterministic,
	}

	var decision policyDecision
	if err := llm.CompleteJSON(ctx, d.analysisClient, req, &decision); err != nil {
		return policyDecision{}, err
	}
	return decision, nil
}

// fallbackAction is the deterministic route used when policy generation
// fails: greeting only if the assistant has never spoken, question
// otherwise.
func fallbackAction(s *state.InterviewState) state.Node {
	if !s.HasAssistantMessage() {
		return state.NodeGreeting
	}
	return state.NodeQuestion
}
