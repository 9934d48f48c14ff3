package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"preamble", `Sure, here you go: {"a": 1} Hope that helps!`, `{"a": 1}`},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"braces inside strings", `{"a": "close } brace"}`, `{"a": "close } brace"}`},
		{"array", `[1, 2, 3]`, `[1, 2, 3]`},
		{"no json", "just prose, nothing else", ""},
		{"unbalanced", `{"a": 1`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestCompleteJSONParsesWrappedResponse(t *testing.T) {
	client := NewMockClient([]CompletionResponse{
		{Content: "Here is the result:\n```json\n{\"action\": \"question\"}\n```"},
	}, nil)

	var out struct {
		Action string `json:"action"`
	}
	err := CompleteJSON(context.Background(), client, NewCompletionRequest(nil), &out)
	require.NoError(t, err)
	assert.Equal(t, "question", out.Action)
	assert.Len(t, client.Requests(), 1)
}

func TestCompleteJSONRepairRetry(t *testing.T) {
	client := NewMockClient([]CompletionResponse{
		{Content: "I think the answer is question."},
		{Content: `{"action": "question"}`},
	}, nil)

	var out struct {
		Action string `json:"action"`
	}
	err := CompleteJSON(context.Background(), client, NewCompletionRequest(nil), &out)
	require.NoError(t, err)
	assert.Equal(t, "question", out.Action)

	// the repair request feeds the bad response back to the model
	reqs := client.Requests()
	require.Len(t, reqs, 2)
	repair := reqs[1]
	require.NotEmpty(t, repair.Messages)
	assert.Equal(t, "I think the answer is question.", repair.Messages[len(repair.Messages)-2].Content)
}

func TestCompleteJSONGivesUpAfterRepair(t *testing.T) {
	client := NewMockClient([]CompletionResponse{
		{Content: "not json"},
		{Content: "still not json"},
	}, nil)

	var out map[string]any
	err := CompleteJSON(context.Background(), client, NewCompletionRequest(nil), &out)
	assert.Error(t, err)
	assert.Len(t, client.Requests(), 2)
}

func TestCompleteJSONPropagatesProviderError(t *testing.T) {
	boom := errors.New("provider down")
	client := NewMockClient(nil, []error{boom})

	var out map[string]any
	err := CompleteJSON(context.Background(), client, NewCompletionRequest(nil), &out)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, client.Requests(), 1)
}
