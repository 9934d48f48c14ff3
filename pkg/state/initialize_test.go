package state

import (
	"reflect"
	"testing"
)

func TestInitializeIdempotent(t *testing.T) {
	s := InterviewState{InterviewID: 1, UserID: 2, TurnCount: -3, Phase: "bogus"}

	Initialize(&s)
	first := s.Clone()
	Initialize(&s)

	if !reflect.DeepEqual(first, s.Clone()) {
		t.Errorf("Second Initialize changed state:\nfirst:  %+v\nsecond: %+v", first, s)
	}
}

func TestInitializeRepairsFields(t *testing.T) {
	s := InterviewState{InterviewID: 1, TurnCount: -1, Phase: "unknown"}
	Initialize(&s)

	if s.TurnCount != 0 {
		t.Errorf("Expected turn count reset to 0, got %d", s.TurnCount)
	}
	if s.Phase != PhaseIntro {
		t.Errorf("Expected phase repaired to intro, got %s", s.Phase)
	}
	if s.ConversationHistory == nil || s.QuestionsAsked == nil || s.TopicsCovered == nil ||
		s.DetectedIntents == nil || s.Checkpoints == nil {
		t.Error("Expected all collections initialized")
	}
	if s.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt defaulted")
	}
}

func TestInitializeClearsInvalidActiveIntent(t *testing.T) {
	s := InterviewState{
		InterviewID:       1,
		ActiveUserRequest: &UserIntent{Type: "not_in_taxonomy", Confidence: 0.9},
	}
	Initialize(&s)
	if s.ActiveUserRequest != nil {
		t.Errorf("Expected invalid active intent cleared, got %+v", s.ActiveUserRequest)
	}
}

func TestInitializeTruncatesExcessHints(t *testing.T) {
	s := InterviewState{InterviewID: 1}
	s.Sandbox.ExerciseHints = []string{"only one"}
	s.Sandbox.HintsProvided = []string{"one", "two", "three"}

	Initialize(&s)
	if len(s.Sandbox.HintsProvided) != 1 {
		t.Errorf("Expected hints truncated to 1, got %d", len(s.Sandbox.HintsProvided))
	}
}

func TestNewState(t *testing.T) {
	s := New(42, 7, ResumeContext{Skills: "Go, Python"}, "Backend engineer role")

	if s.InterviewID != 42 || s.UserID != 7 {
		t.Errorf("Identity not set: %d/%d", s.InterviewID, s.UserID)
	}
	if s.Phase != PhaseIntro {
		t.Errorf("Expected intro phase, got %s", s.Phase)
	}
	if s.TurnCount != 0 {
		t.Errorf("Expected zero turn count, got %d", s.TurnCount)
	}
	if s.Resume.Skills != "Go, Python" || s.JobDescription != "Backend engineer role" {
		t.Error("Resume or job description dropped")
	}
}
