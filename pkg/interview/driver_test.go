package interview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

func newTestDriver(conversation, analysis llm.Client) *Driver {
	return NewDriver(DriverOptions{
		ConversationClient: conversation,
		AnalysisClient:     analysis,
	})
}

func sessionState(id int64) state.InterviewState {
	s := state.New(id, 1, state.ResumeContext{Skills: "Go, distributed systems"}, "")
	s.ConversationSummary = "Conversation under way."
	return s
}

// sessionAfterGreeting is a session whose opening turn already ran.
func sessionAfterGreeting(id int64) state.InterviewState {
	s := sessionState(id)
	s.ConversationHistory = append(s.ConversationHistory, state.Message{
		Role:      state.RoleAssistant,
		Content:   "Welcome! Tell me about yourself.",
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]any{"interview_id": id},
	})
	return s
}

// recordedRequest mirrors one ObserveRequest call.
type recordedRequest struct {
	Model        string
	InterviewID  string
	Node         string
	PromptTokens int
	Success      bool
}

type captureRecorder struct {
	requests []recordedRequest
	turns    []string
}

func (c *captureRecorder) ObserveRequest(
	model, interviewID, node string,
	promptTokens, _ int,
	success bool,
	_ string,
	_ time.Duration,
) {
	c.requests = append(c.requests, recordedRequest{
		Model: model, InterviewID: interviewID, Node: node,
		PromptTokens: promptTokens, Success: success,
	})
}

func (c *captureRecorder) ObserveTurn(node string, _ time.Duration) {
	c.turns = append(c.turns, node)
}

func (c *captureRecorder) IncExecution(_, _ string) {}

func TestTurnRecordsProviderUsage(t *testing.T) {
	recorder := &captureRecorder{}
	d := NewDriver(DriverOptions{
		ConversationClient: llm.ScriptedClient("Welcome! Tell me about yourself."),
		AnalysisClient:     llm.NewMockClient(nil, nil),
		Recorder:           recorder,
	})

	_, err := d.RunTurn(context.Background(), sessionState(11))
	require.NoError(t, err)

	require.Len(t, recorder.requests, 1)
	got := recorder.requests[0]
	assert.Equal(t, "11", got.InterviewID)
	assert.Equal(t, string(state.NodeGreeting), got.Node)
	assert.Equal(t, "static-model", got.Model)
	assert.True(t, got.Success)
	assert.Positive(t, got.PromptTokens)

	assert.Equal(t, []string{string(state.NodeGreeting)}, recorder.turns)
}

func TestRunTurnRequiresInterviewID(t *testing.T) {
	d := newTestDriver(llm.ScriptedClient("hi"), llm.ScriptedClient("{}"))

	_, err := d.RunTurn(context.Background(), state.InterviewState{})
	assert.Error(t, err)
}

func TestFreshSessionOpensWithGreeting(t *testing.T) {
	const greeting = "Hello, and welcome! I saw the distributed systems work on your resume. Could you introduce yourself?"
	conversation := llm.ScriptedClient(greeting)
	analysis := llm.NewMockClient(nil, nil)
	d := newTestDriver(conversation, analysis)

	result, err := d.RunTurn(context.Background(), sessionState(11))
	require.NoError(t, err)

	require.Len(t, result.ConversationHistory, 1)
	msg := result.ConversationHistory[0]
	assert.Equal(t, state.RoleAssistant, msg.Role)
	assert.Equal(t, greeting, msg.Content)
	assert.Equal(t, int64(11), msg.InterviewIDTag())

	assert.Equal(t, 0, result.TurnCount)
	assert.Equal(t, state.PhaseIntro, result.Phase)
	assert.Equal(t, state.NodeFinalizeTurn, result.LastNode)

	// The opening turn never consults intent detection or the policy.
	assert.Empty(t, analysis.Requests())
}

func TestRepeatedGreetingTurnDoesNotDuplicateTranscript(t *testing.T) {
	const greeting = "Hello, and welcome! Could you introduce yourself?"
	conversation := llm.ScriptedClient(greeting)
	analysis := llm.ScriptedClient(`{"action": "greeting", "reason": "candidate has not spoken yet"}`)
	d := newTestDriver(conversation, analysis)

	first, err := d.RunTurn(context.Background(), sessionState(11))
	require.NoError(t, err)
	require.Len(t, first.ConversationHistory, 1)

	// A reconnect replays the turn with no new user input.
	second, err := d.RunTurn(context.Background(), first)
	require.NoError(t, err)

	assert.Len(t, second.ConversationHistory, 1)
	assert.Equal(t, 0, second.TurnCount)
	assert.Equal(t, greeting, second.LastAssistantMessage())
}

func TestAnswerTurnAsksGroundedQuestion(t *testing.T) {
	conversation := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"question": "What was the hardest scaling problem you hit with Go services?", "anchor": "Go", "aspect": "depth of experience"}`},
	}, nil)
	analysis := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"type": "no_intent", "confidence": 0.2, "reason": "plain answer"}`},
		{Content: `{"action": "question", "reason": "move into resume exploration"}`},
	}, nil)
	d := newTestDriver(conversation, analysis)

	s := sessionAfterGreeting(11)
	s.LastResponse = "I'm a backend developer, mostly Go for the last five years."

	result, err := d.RunTurn(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TurnCount)
	assert.Equal(t, state.PhaseExploration, result.Phase)

	// greeting, then this turn's user answer, then the new question
	require.Len(t, result.ConversationHistory, 3)
	assert.Equal(t, state.RoleUser, result.ConversationHistory[1].Role)
	assert.Equal(t, "I'm a backend developer, mostly Go for the last five years.", result.ConversationHistory[1].Content)
	assert.Equal(t, state.RoleAssistant, result.ConversationHistory[2].Role)

	require.Len(t, result.QuestionsAsked, 1)
	assert.Equal(t, state.QuestionSourceGenerated, result.QuestionsAsked[0].Source)
	assert.Equal(t, result.ConversationHistory[2].Content, result.QuestionsAsked[0].Text)
	assert.Equal(t, result.CurrentQuestion, result.QuestionsAsked[0].Text)
	assert.True(t, result.TopicsCovered.Has("Go"))

	require.Len(t, result.DetectedIntents, 1)
	assert.Equal(t, state.IntentNone, result.DetectedIntents[0].Type)
	assert.Nil(t, result.ActiveUserRequest)

	assert.Empty(t, result.LastResponse)
	assert.Equal(t, result.CurrentQuestion, result.NextMessage)
}

func TestPendingCodeShortCircuitsToReview(t *testing.T) {
	conversation := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"feedback": "The loop logic reads cleanly and handles the happy path.", "followup": "What happens on an empty list?"}`},
	}, nil)
	analysis := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"correctness": 0.8, "efficiency": 0.7, "readability": 0.9, "best_practices": 0.6, "notes": "Reasonable first pass."}`},
	}, nil)
	d := newTestDriver(conversation, analysis)

	s := sessionAfterGreeting(11)
	s.LastResponse = "here is my attempt"
	s.CurrentCode = "def find_max(xs):\n    best = xs[0]\n    for x in xs:\n        if x > best:\n            best = x\n    return best"
	s.CurrentLanguage = "python"

	result, err := d.RunTurn(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, state.NodeFinalizeTurn, result.LastNode)
	require.Len(t, result.Sandbox.Submissions, 1)
	sub := result.Sandbox.Submissions[0]
	assert.Equal(t, "python", sub.Language)
	assert.InDelta(t, state.WeightedQualityScore(0.8, 0.7, 0.9, 0.6), sub.Quality.QualityScore, 1e-9)

	// no runner is configured, so the run reports an error signal
	assert.False(t, sub.Execution.Success)
	assert.True(t, result.Sandbox.Signals.Has("code_errored"))

	// code goes straight to review; intent detection is skipped, so the
	// only analysis request is the quality scoring one
	assert.Len(t, analysis.Requests(), 1)
	assert.Empty(t, result.DetectedIntents)

	assert.Contains(t, result.LastAssistantMessage(), "What happens on an empty list?")
	assert.Empty(t, result.CurrentCode)
	assert.Empty(t, result.CurrentLanguage)
}

func TestHighConfidenceIntentBecomesActiveRequest(t *testing.T) {
	conversation := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"description": "Reverse a linked list.", "starter_code": "def reverse(head):\n    pass\n", "language": "python", "difficulty": "easy", "hints": ["Track the previous node."]}`},
	}, nil)
	analysis := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"type": "write_code", "confidence": 0.92, "reason": "asked to code"}`},
	}, nil)
	d := newTestDriver(conversation, analysis)

	s := sessionAfterGreeting(11)
	s.JobDescription = "Backend software engineer, Go and Python."
	s.LastResponse = "Can I try writing some code for that?"

	result, err := d.RunTurn(context.Background(), s)
	require.NoError(t, err)

	require.NotNil(t, result.ActiveUserRequest)
	assert.Equal(t, state.IntentWriteCode, result.ActiveUserRequest.Type)
	require.Len(t, result.DetectedIntents, 1)

	// the write_code override routes straight to sandbox guidance,
	// so the policy prompt is never sent
	assert.Len(t, analysis.Requests(), 1)
	assert.True(t, result.Sandbox.IsActive)
	assert.Equal(t, "Reverse a linked list.", result.Sandbox.ExerciseDescription)
	assert.Contains(t, result.LastAssistantMessage(), "Reverse a linked list.")
}

func TestLowConfidenceIntentClearsActiveRequest(t *testing.T) {
	conversation := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"question": "Tell me about your testing approach.", "anchor": "testing", "aspect": "practices"}`},
	}, nil)
	analysis := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"type": "change_topic", "confidence": 0.4, "reason": "weak signal"}`},
		{Content: `{"action": "question", "reason": "keep exploring"}`},
	}, nil)
	d := newTestDriver(conversation, analysis)

	s := sessionAfterGreeting(11)
	s.ActiveUserRequest = &state.UserIntent{Type: state.IntentClarify, Confidence: 0.9, Turn: 2}
	s.LastResponse = "Hmm, maybe something else."

	result, err := d.RunTurn(context.Background(), s)
	require.NoError(t, err)

	// the stale active request is cleared when this turn's classification
	// does not cross the activation threshold
	assert.Nil(t, result.ActiveUserRequest)
	require.Len(t, result.DetectedIntents, 1)
	assert.Equal(t, state.IntentChangeTopic, result.DetectedIntents[0].Type)
}

func TestRunTurnDoesNotMutateInput(t *testing.T) {
	conversation := llm.ScriptedClient("Welcome!")
	d := newTestDriver(conversation, llm.NewMockClient(nil, nil))

	s := sessionState(11)
	_, err := d.RunTurn(context.Background(), s)
	require.NoError(t, err)

	assert.Empty(t, s.ConversationHistory)
	assert.Equal(t, state.Node(""), s.LastNode)
}

func TestFinalizeTurnReplayIsIdempotent(t *testing.T) {
	d := newTestDriver(llm.ScriptedClient(""), llm.NewMockClient(nil, nil))

	s := sessionAfterGreeting(11)
	s.LastResponse = "my answer"
	s.NextMessage = "my next question"

	once := state.Apply(s, d.finalizeTurn(context.Background(), &s))
	require.Len(t, once.ConversationHistory, 3)

	// replaying finalization against the already-updated transcript must
	// not append the same pair again
	replay := once
	replay.LastResponse = "my answer"
	replay.NextMessage = "my next question"
	twice := state.Apply(replay, d.finalizeTurn(context.Background(), &replay))
	assert.Len(t, twice.ConversationHistory, 3)
}

func TestTailContains(t *testing.T) {
	history := []state.Message{
		{Role: state.RoleAssistant, Content: "a"},
		{Role: state.RoleUser, Content: "b"},
	}
	pending := []state.Message{{Role: state.RoleUser, Content: "c"}}

	assert.True(t, tailContains(history, nil, state.Message{Role: state.RoleUser, Content: "b"}))
	assert.True(t, tailContains(history, pending, state.Message{Role: state.RoleUser, Content: "c"}))
	assert.False(t, tailContains(history, pending, state.Message{Role: state.RoleAssistant, Content: "b"}))
	assert.False(t, tailContains(nil, nil, state.Message{Role: state.RoleUser, Content: "b"}))
}
