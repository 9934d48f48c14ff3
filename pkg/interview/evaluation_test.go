package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const feedbackJSON = `{
	"communication": {"score": 0.8, "strengths": ["clear"], "weaknesses": [], "recommendations": []},
	"technical": {"score": 0.7, "strengths": ["solid Go"], "weaknesses": ["shallow on databases"], "recommendations": ["study indexing"]},
	"problem_solving": {"score": 0.6, "strengths": [], "weaknesses": [], "recommendations": []},
	"code_quality": {"score": 0.9, "strengths": ["clean loops"], "weaknesses": [], "recommendations": []},
	"narrative": "A solid conversation with strong fundamentals."
}`

func TestEvaluationZeroesCodeQualityWithoutSubmissions(t *testing.T) {
	analysis := llm.ScriptedClient(feedbackJSON)
	d := newTestDriver(llm.ScriptedClient(""), analysis)

	s := sessionAfterGreeting(11)
	require.Empty(t, s.Sandbox.Submissions)

	patch := d.handleEvaluation(context.Background(), &s)
	require.NotNil(t, patch.Feedback)
	fb := patch.Feedback

	// no code was submitted, so the model's code score is discarded
	assert.Zero(t, fb.CodeQuality.Score)
	assert.Empty(t, fb.CodeQuality.Strengths)
	assert.NotNil(t, fb.CodeQuality.Strengths)

	want := state.WeightedOverallScore(0.8, 0.7, 0.6, 0)
	assert.InDelta(t, want, fb.OverallScore, 1e-9)

	require.NotNil(t, patch.Phase)
	assert.Equal(t, state.PhaseClosing, *patch.Phase)
	require.NotNil(t, patch.NextMessage)
	assert.Contains(t, *patch.NextMessage, "A solid conversation")
}

func TestEvaluationKeepsCodeQualityWithSubmissions(t *testing.T) {
	analysis := llm.ScriptedClient(feedbackJSON)
	d := newTestDriver(llm.ScriptedClient(""), analysis)

	s := sessionAfterGreeting(11)
	s.Sandbox.Submissions = []state.Submission{{
		Code: "def f(): pass", Language: "python", SubmittedAt: time.Now().UTC(),
	}}

	patch := d.handleEvaluation(context.Background(), &s)
	require.NotNil(t, patch.Feedback)

	assert.InDelta(t, 0.9, patch.Feedback.CodeQuality.Score, 1e-9)
	want := state.WeightedOverallScore(0.8, 0.7, 0.6, 0.9)
	assert.InDelta(t, want, patch.Feedback.OverallScore, 1e-9)
}

func TestEvaluationClampsOutOfRangeScores(t *testing.T) {
	analysis := llm.ScriptedClient(`{
		"communication": {"score": 1.7},
		"technical": {"score": -0.3},
		"problem_solving": {"score": 0.5},
		"code_quality": {"score": 0.5},
		"narrative": "noisy scores"
	}`)
	d := newTestDriver(llm.ScriptedClient(""), analysis)

	s := sessionAfterGreeting(11)
	s.Sandbox.Submissions = []state.Submission{{Code: "x = 1", Language: "python"}}

	patch := d.handleEvaluation(context.Background(), &s)
	require.NotNil(t, patch.Feedback)
	fb := patch.Feedback

	assert.InDelta(t, 1.0, fb.Communication.Score, 1e-9)
	assert.Zero(t, fb.Technical.Score)
	assert.GreaterOrEqual(t, fb.OverallScore, 0.0)
	assert.LessOrEqual(t, fb.OverallScore, 1.0)

	// missing list fields come back as empty slices, not nil
	assert.NotNil(t, fb.Communication.Strengths)
	assert.NotNil(t, fb.Technical.Recommendations)
}

func TestEvaluationPlaceholderOnFailure(t *testing.T) {
	analysis := llm.NewMockClient(nil, []error{errors.New("provider down")})
	d := newTestDriver(llm.ScriptedClient(""), analysis)

	s := sessionAfterGreeting(11)

	patch := d.handleEvaluation(context.Background(), &s)
	require.NotNil(t, patch.Feedback)
	fb := patch.Feedback

	assert.InDelta(t, 0.5, fb.Communication.Score, 1e-9)
	assert.Zero(t, fb.CodeQuality.Score)
	want := state.WeightedOverallScore(0.5, 0.5, 0.5, 0)
	assert.InDelta(t, want, fb.OverallScore, 1e-9)
	assert.NotEmpty(t, fb.Narrative)
}
