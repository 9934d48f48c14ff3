package interview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const qualityJSON = `{"correctness": 0.8, "efficiency": 0.6, "readability": 0.9, "best_practices": 0.7, "notes": "Decent structure."}`

func TestCodeReviewWithoutCodePrompts(t *testing.T) {
	d := newTestDriver(llm.NewMockClient(nil, nil), llm.NewMockClient(nil, nil))

	s := sessionAfterGreeting(11)
	patch := d.handleCodeReview(context.Background(), &s)

	require.NotNil(t, patch.NextMessage)
	assert.Contains(t, *patch.NextMessage, "sandbox")
	assert.Nil(t, patch.Sandbox)
}

func TestCodeReviewRecordsSubmission(t *testing.T) {
	conversation := llm.ScriptedClient(`{"feedback": "Nice clean loop.", "followup": "Why linear scan over sorting?"}`)
	analysis := llm.ScriptedClient(qualityJSON)
	d := newTestDriver(conversation, analysis)

	s := sessionAfterGreeting(11)
	s.CurrentCode = "def f(xs): return xs[0]"
	s.CurrentLanguage = "python"

	patch := d.handleCodeReview(context.Background(), &s)

	require.NotNil(t, patch.Sandbox)
	require.Len(t, patch.Sandbox.AppendSubmissions, 1)
	sub := patch.Sandbox.AppendSubmissions[0]
	assert.Equal(t, s.CurrentCode, sub.Code)
	assert.Equal(t, "python", sub.Language)
	assert.InDelta(t, state.WeightedQualityScore(0.8, 0.6, 0.9, 0.7), sub.Quality.QualityScore, 1e-9)

	// nil runner reports the failure inside the result
	assert.False(t, sub.Execution.Success)
	assert.NotEmpty(t, sub.Execution.Error)
	assert.Equal(t, []string{"code_errored"}, patch.Sandbox.AddSignals)

	require.NotNil(t, patch.NextMessage)
	assert.Contains(t, *patch.NextMessage, "Nice clean loop.")
	assert.Contains(t, *patch.NextMessage, "Why linear scan over sorting?")
}

func TestCodeReviewAppendsDomainAdvisory(t *testing.T) {
	conversation := llm.ScriptedClient(`{"feedback": "The code itself is fine.", "followup": "How would you test it?"}`)
	analysis := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"matches": false, "note": "this sorts a list but the exercise asked for a search"}`},
		{Content: qualityJSON},
	}, nil)
	d := newTestDriver(conversation, analysis)

	s := sessionAfterGreeting(11)
	s.Sandbox.ExerciseDescription = "Implement binary search over a sorted list."
	s.CurrentCode = "xs.sort()"

	patch := d.handleCodeReview(context.Background(), &s)

	require.NotNil(t, patch.NextMessage)
	assert.Contains(t, *patch.NextMessage, "One note: this sorts a list but the exercise asked for a search.")

	// an off-domain submission is still reviewed and recorded
	require.NotNil(t, patch.Sandbox)
	assert.Len(t, patch.Sandbox.AppendSubmissions, 1)
}

func TestCodeReviewMatchingDomainHasNoAdvisory(t *testing.T) {
	conversation := llm.ScriptedClient(`{"feedback": "Looks right.", "followup": "What is the complexity?"}`)
	analysis := llm.NewMockClient([]llm.CompletionResponse{
		{Content: `{"matches": true, "note": ""}`},
		{Content: qualityJSON},
	}, nil)
	d := newTestDriver(conversation, analysis)

	s := sessionAfterGreeting(11)
	s.Sandbox.ExerciseDescription = "Implement binary search over a sorted list."
	s.CurrentCode = "def search(xs, t): ..."

	patch := d.handleCodeReview(context.Background(), &s)

	require.NotNil(t, patch.NextMessage)
	assert.NotContains(t, *patch.NextMessage, "One note:")
}

func TestCodeReviewFallbackMessageOnFailure(t *testing.T) {
	conversation := llm.NewMockClient(nil, []error{errors.New("provider down")})
	analysis := llm.ScriptedClient(qualityJSON)
	d := newTestDriver(conversation, analysis)

	s := sessionAfterGreeting(11)
	s.CurrentCode = "def f(): pass"

	patch := d.handleCodeReview(context.Background(), &s)

	require.NotNil(t, patch.NextMessage)
	assert.Equal(t, FallbackReviewMessage, *patch.NextMessage)

	// the submission is recorded even when the spoken review fails
	require.NotNil(t, patch.Sandbox)
	assert.Len(t, patch.Sandbox.AppendSubmissions, 1)
}

func TestExecutionSignals(t *testing.T) {
	assert.Equal(t, []string{"code_ran_clean"}, executionSignals(state.ExecutionResult{Success: true}))
	assert.Equal(t, []string{"code_errored"}, executionSignals(state.ExecutionResult{Stderr: "traceback"}))
	assert.Equal(t, []string{"code_errored"}, executionSignals(state.ExecutionResult{Error: "timeout"}))
	assert.Equal(t, []string{"code_failed"}, executionSignals(state.ExecutionResult{ExitCode: 1}))
}
