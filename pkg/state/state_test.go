package state

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestStringSetRoundTrip(t *testing.T) {
	set := NewStringSet("graphs", "apis", "concurrency")

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("Failed to marshal set: %v", err)
	}
	// Sorted list form on the wire.
	if string(data) != `["apis","concurrency","graphs"]` {
		t.Errorf("Unexpected serialized form: %s", data)
	}

	var restored StringSet
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to unmarshal set: %v", err)
	}
	if len(restored) != 3 || !restored.Has("graphs") || !restored.Has("apis") || !restored.Has("concurrency") {
		t.Errorf("Round trip lost members: %v", restored.Values())
	}
}

func TestStringSetMalformedDegradesToEmpty(t *testing.T) {
	var set StringSet
	if err := json.Unmarshal([]byte(`{"not": "a list"}`), &set); err != nil {
		t.Fatalf("Malformed set should not error: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("Expected empty set, got %v", set.Values())
	}
}

func TestStringSetIgnoresEmptyAndDuplicates(t *testing.T) {
	set := make(StringSet)
	set.Add("topic")
	set.Add("topic")
	set.Add("")
	if len(set) != 1 {
		t.Errorf("Expected 1 member, got %d", len(set))
	}
}

func TestNormalizeQuestionText(t *testing.T) {
	a := NormalizeQuestionText("  Tell me   about YOUR project\t")
	b := NormalizeQuestionText("tell me about your project")
	if a != b {
		t.Errorf("Expected %q == %q", a, b)
	}
}

func TestHasQuestion(t *testing.T) {
	s := InterviewState{
		QuestionsAsked: []QuestionRecord{
			{Text: "Tell me about your project"},
		},
	}
	if !s.HasQuestion("  TELL me about your   project ") {
		t.Error("Expected case/whitespace-insensitive match")
	}
	if s.HasQuestion("Tell me about your team") {
		t.Error("Different question should not match")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := New(1, 2, ResumeContext{}, "")
	s.ConversationHistory = append(s.ConversationHistory, Message{Role: RoleUser, Content: "hi"})
	s.TopicsCovered.Add("graphs")
	s.Sandbox.Signals.Add("code_ran_clean")

	clone := s.Clone()
	clone.ConversationHistory[0].Content = "changed"
	clone.TopicsCovered.Add("trees")
	clone.Sandbox.Signals.Add("code_errored")

	if s.ConversationHistory[0].Content != "hi" {
		t.Error("Clone shares conversation history backing array")
	}
	if s.TopicsCovered.Has("trees") {
		t.Error("Clone shares topics set")
	}
	if s.Sandbox.Signals.Has("code_errored") {
		t.Error("Clone shares sandbox signals set")
	}
}

func TestSandboxStateMalformedResets(t *testing.T) {
	raw := []byte(`{"interview_id": 5, "user_id": 1, "sandbox": "not an object"}`)

	var s InterviewState
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("Malformed sandbox should not fail the whole state: %v", err)
	}
	if s.InterviewID != 5 {
		t.Errorf("Expected interview_id 5, got %d", s.InterviewID)
	}
	if s.Sandbox.IsActive || len(s.Sandbox.Submissions) != 0 {
		t.Errorf("Expected zero sandbox, got %+v", s.Sandbox)
	}
}

func TestInterviewIDTag(t *testing.T) {
	tagged := Message{Metadata: map[string]any{"interview_id": float64(7)}}
	if tagged.InterviewIDTag() != 7 {
		t.Errorf("Expected tag 7, got %d", tagged.InterviewIDTag())
	}

	untagged := Message{}
	if untagged.InterviewIDTag() != 0 {
		t.Errorf("Expected 0 for untagged message, got %d", untagged.InterviewIDTag())
	}
}

func TestWeightedQualityScore(t *testing.T) {
	got := WeightedQualityScore(1.0, 0.5, 0.5, 0.5)
	want := 0.4 + 0.2*0.5*3
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %f, got %f", want, got)
	}
}

func TestWeightedOverallScore(t *testing.T) {
	got := WeightedOverallScore(0.8, 0.6, 0.4, 0.2)
	want := 0.25*0.8 + 0.30*0.6 + 0.25*0.4 + 0.20*0.2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %f, got %f", want, got)
	}
}

func TestUserIntentActive(t *testing.T) {
	cases := []struct {
		intent UserIntent
		active bool
	}{
		{UserIntent{Type: IntentWriteCode, Confidence: 0.9}, true},
		{UserIntent{Type: IntentWriteCode, Confidence: 0.7}, false}, // threshold is strict
		{UserIntent{Type: IntentNone, Confidence: 0.99}, false},
	}
	for _, tc := range cases {
		if got := tc.intent.Active(); got != tc.active {
			t.Errorf("Active() for %+v: expected %t, got %t", tc.intent, tc.active, got)
		}
	}
}

func TestMessageTimestampSurvivesJSON(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	msg := Message{Role: RoleAssistant, Content: "hello", Timestamp: now}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Message
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.Timestamp.Equal(now) {
		t.Errorf("Timestamp changed: %v != %v", restored.Timestamp, now)
	}
}
