package state

import "time"

// Initialize fills every required field of a (possibly partially restored)
// state with a type-correct default. It is idempotent: calling it twice
// produces no further change. Checkpoints written by older schema versions
// may be missing fields or carry a wrong-shaped sandbox sub-structure; this
// repair step is how those snapshots become usable again instead of being
// rejected.
func Initialize(s *InterviewState) {
	if s.TurnCount < 0 {
		s.TurnCount = 0
	}
	if !IsValidPhase(s.Phase) {
		s.Phase = PhaseIntro
	}

	if s.ConversationHistory == nil {
		s.ConversationHistory = make([]Message, 0)
	}
	if s.QuestionsAsked == nil {
		s.QuestionsAsked = make([]QuestionRecord, 0)
	}
	if s.TopicsCovered == nil {
		s.TopicsCovered = make(StringSet)
	}
	if s.DetectedIntents == nil {
		s.DetectedIntents = make([]UserIntent, 0)
	}
	if s.Checkpoints == nil {
		s.Checkpoints = make([]string, 0)
	}

	initializeSandbox(&s.Sandbox)

	if s.ActiveUserRequest != nil && !IsValidIntentType(s.ActiveUserRequest.Type) {
		s.ActiveUserRequest = nil
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
}

func initializeSandbox(sb *SandboxState) {
	if sb.Submissions == nil {
		sb.Submissions = make([]Submission, 0)
	}
	if sb.Signals == nil {
		sb.Signals = make(StringSet)
	}
	if sb.AspectsCovered == nil {
		sb.AspectsCovered = make(StringSet)
	}
	if sb.ExerciseHints == nil {
		sb.ExerciseHints = make([]string, 0)
	}
	if sb.HintsProvided == nil {
		sb.HintsProvided = make([]string, 0)
	}
	// Invariant: hints handed out never exceed the hints the exercise has.
	if len(sb.HintsProvided) > len(sb.ExerciseHints) {
		sb.HintsProvided = sb.HintsProvided[:len(sb.ExerciseHints)]
	}
}

// New creates a fresh state for an interview session from its durable
// record fields.
func New(interviewID, userID int64, resume ResumeContext, jobDescription string) InterviewState {
	s := InterviewState{
		InterviewID:    interviewID,
		UserID:         userID,
		Phase:          PhaseIntro,
		Resume:         resume,
		JobDescription: jobDescription,
		CreatedAt:      time.Now().UTC(),
	}
	Initialize(&s)
	return s
}
