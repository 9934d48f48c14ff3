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

func TestSandboxGuidanceNeverRegeneratesExercise(t *testing.T) {
	conversation := llm.NewMockClient(nil, nil)
	d := newTestDriver(conversation, llm.NewMockClient(nil, nil))

	s := sessionAfterGreeting(11)
	s.Sandbox.ExerciseDescription = "Reverse a linked list."

	patch := d.handleSandboxGuidance(context.Background(), &s)

	require.NotNil(t, patch.NextMessage)
	assert.Contains(t, *patch.NextMessage, "current exercise")
	require.NotNil(t, patch.Sandbox)
	assert.Nil(t, patch.Sandbox.ExerciseDescription)
	assert.Empty(t, conversation.Requests())
}

func TestSandboxGuidanceAttachesExerciseForTechnicalRole(t *testing.T) {
	conversation := llm.ScriptedClient(`{"description": "Count word frequencies in a string.", "starter_code": "def count(text):\n    pass\n", "language": "python", "difficulty": "easy", "hints": ["Use a dictionary."]}`)
	d := newTestDriver(conversation, llm.NewMockClient(nil, nil))

	s := sessionAfterGreeting(11)
	s.JobDescription = "Senior software engineer, Python services."

	patch := d.handleSandboxGuidance(context.Background(), &s)

	require.NotNil(t, patch.Sandbox)
	require.NotNil(t, patch.Sandbox.ExerciseDescription)
	assert.Equal(t, "Count word frequencies in a string.", *patch.Sandbox.ExerciseDescription)
	require.NotNil(t, patch.Sandbox.InitialCode)
	assert.Contains(t, *patch.Sandbox.InitialCode, "def count")
	require.NotNil(t, patch.Sandbox.ExerciseHints)
	assert.Len(t, *patch.Sandbox.ExerciseHints, 1)
	require.NotNil(t, patch.NextMessage)
	assert.Contains(t, *patch.NextMessage, "Count word frequencies")
}

func TestSandboxGuidancePlainNudgeForNonTechnicalRole(t *testing.T) {
	conversation := llm.NewMockClient(nil, nil)
	d := newTestDriver(conversation, llm.NewMockClient(nil, nil))

	s := state.New(12, 1, state.ResumeContext{}, "Museum tour guide")
	s.ConversationSummary = "Pleasant chat about museums."

	patch := d.handleSandboxGuidance(context.Background(), &s)

	require.NotNil(t, patch.Sandbox)
	assert.Nil(t, patch.Sandbox.ExerciseDescription)
	require.NotNil(t, patch.NextMessage)
	assert.Contains(t, *patch.NextMessage, "sandbox")
	assert.Empty(t, conversation.Requests())
}

func TestSandboxGuidanceFallbackExercise(t *testing.T) {
	conversation := llm.NewMockClient(nil, []error{errors.New("provider down")})
	d := newTestDriver(conversation, llm.NewMockClient(nil, nil))

	s := sessionAfterGreeting(11)
	s.ActiveUserRequest = &state.UserIntent{Type: state.IntentWriteCode, Confidence: 0.9}

	patch := d.handleSandboxGuidance(context.Background(), &s)

	require.NotNil(t, patch.Sandbox)
	require.NotNil(t, patch.Sandbox.ExerciseDescription)
	assert.Contains(t, *patch.Sandbox.ExerciseDescription, "largest one")
	require.NotNil(t, patch.Sandbox.ExerciseHints)
	assert.Len(t, *patch.Sandbox.ExerciseHints, 2)
}

func TestContainsTechnicalKeyword(t *testing.T) {
	assert.True(t, containsTechnicalKeyword("Senior Backend Engineer"))
	assert.True(t, containsTechnicalKeyword("we discussed the API design"))
	assert.False(t, containsTechnicalKeyword("museum tour guide"))
	assert.False(t, containsTechnicalKeyword(""))
}
