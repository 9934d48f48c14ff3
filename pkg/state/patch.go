package state

import "time"

// Patch is the partial-update type returned by action handlers and internal
// turn nodes. A nil pointer field means "no change". Patches deliberately
// carry no InterviewID or UserID fields: identity is immutable and cannot
// be rewritten through the merge path.
type Patch struct {
	TurnCount *int
	Phase     *Phase
	LastNode  *Node
	NextNode  *Node // pointer to empty string clears the routing hint

	CurrentQuestion *string
	LastResponse    *string
	CurrentCode     *string
	CurrentLanguage *string
	NextMessage     *string

	ConversationSummary *string

	// AppendMessages is honored only when applied by the finalize node;
	// the driver rejects it from action handlers to keep the transcript
	// single-writer.
	AppendMessages []Message

	AppendQuestions []QuestionRecord
	AddTopics       []string
	AppendIntents   []UserIntent

	// SetActiveRequest distinguishes "leave unchanged" (false) from
	// "replace, possibly with nil" (true).
	SetActiveRequest bool
	ActiveRequest    *UserIntent

	Sandbox *SandboxPatch

	Feedback *Feedback

	AppendCheckpoints []string
}

// SandboxPatch is the partial update for the sandbox sub-structure.
type SandboxPatch struct {
	IsActive            *bool
	InitialCode         *string
	ExerciseDescription *string
	ExerciseDifficulty  *string
	ExerciseHints       *[]string
	LastCodeSnapshot    *string
	LastActivityTS      *time.Time
	LastPollTime        *time.Time

	AppendSubmissions []Submission
	AddSignals        []string
	AddAspects        []string
	AddHintsProvided  []string
}

// Apply merges a patch into a deep copy of s and returns the result. This
// is the single merge function of the system: handlers produce patches,
// only the turn engine calls Apply, and the input state is never modified.
func Apply(s InterviewState, p Patch) InterviewState {
	out := s.Clone()

	if p.TurnCount != nil {
		out.TurnCount = *p.TurnCount
	}
	if p.Phase != nil {
		out.Phase = *p.Phase
	}
	if p.LastNode != nil {
		out.LastNode = *p.LastNode
	}
	if p.NextNode != nil {
		out.NextNode = *p.NextNode
	}
	if p.CurrentQuestion != nil {
		out.CurrentQuestion = *p.CurrentQuestion
	}
	if p.LastResponse != nil {
		out.LastResponse = *p.LastResponse
	}
	if p.CurrentCode != nil {
		out.CurrentCode = *p.CurrentCode
	}
	if p.CurrentLanguage != nil {
		out.CurrentLanguage = *p.CurrentLanguage
	}
	if p.NextMessage != nil {
		out.NextMessage = *p.NextMessage
	}
	if p.ConversationSummary != nil {
		out.ConversationSummary = *p.ConversationSummary
	}

	out.ConversationHistory = append(out.ConversationHistory, p.AppendMessages...)

	out.QuestionsAsked = append(out.QuestionsAsked, p.AppendQuestions...)

	if out.TopicsCovered == nil {
		out.TopicsCovered = make(StringSet)
	}
	for _, topic := range p.AddTopics {
		out.TopicsCovered.Add(topic)
	}

	out.DetectedIntents = append(out.DetectedIntents, p.AppendIntents...)

	if p.SetActiveRequest {
		if p.ActiveRequest != nil {
			req := *p.ActiveRequest
			out.ActiveUserRequest = &req
		} else {
			out.ActiveUserRequest = nil
		}
	}

	if p.Sandbox != nil {
		applySandbox(&out.Sandbox, p.Sandbox)
	}

	if p.Feedback != nil {
		fb := *p.Feedback
		out.Feedback = &fb
	}

	out.Checkpoints = append(out.Checkpoints, p.AppendCheckpoints...)

	return out
}

func applySandbox(sb *SandboxState, p *SandboxPatch) {
	if p.IsActive != nil {
		sb.IsActive = *p.IsActive
	}
	if p.InitialCode != nil {
		sb.InitialCode = *p.InitialCode
	}
	if p.ExerciseDescription != nil {
		sb.ExerciseDescription = *p.ExerciseDescription
	}
	if p.ExerciseDifficulty != nil {
		sb.ExerciseDifficulty = *p.ExerciseDifficulty
	}
	if p.ExerciseHints != nil {
		sb.ExerciseHints = append([]string(nil), (*p.ExerciseHints)...)
	}
	if p.LastCodeSnapshot != nil {
		sb.LastCodeSnapshot = *p.LastCodeSnapshot
	}
	if p.LastActivityTS != nil {
		sb.LastActivityTS = *p.LastActivityTS
	}
	if p.LastPollTime != nil {
		sb.LastPollTime = *p.LastPollTime
	}

	// Submissions are append-only and deduplicated on exact code text.
	for i := range p.AppendSubmissions {
		sub := p.AppendSubmissions[i]
		duplicate := false
		for j := range sb.Submissions {
			if sb.Submissions[j].Code == sub.Code {
				duplicate = true
				break
			}
		}
		if !duplicate {
			sb.Submissions = append(sb.Submissions, sub)
		}
	}

	if sb.Signals == nil {
		sb.Signals = make(StringSet)
	}
	for _, sig := range p.AddSignals {
		sb.Signals.Add(sig)
	}

	if sb.AspectsCovered == nil {
		sb.AspectsCovered = make(StringSet)
	}
	for _, aspect := range p.AddAspects {
		sb.AspectsCovered.Add(aspect)
	}

	// hints_provided never grows past the exercise hint list.
	for _, hint := range p.AddHintsProvided {
		if len(sb.HintsProvided) >= len(sb.ExerciseHints) {
			break
		}
		sb.HintsProvided = append(sb.HintsProvided, hint)
	}
}

// Helper constructors keep handler code terse.

// StrPtr returns a pointer to v.
func StrPtr(v string) *string { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// NodePtr returns a pointer to n.
func NodePtr(n Node) *Node { return &n }

// PhasePtr returns a pointer to p.
func PhasePtr(p Phase) *Phase { return &p }

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }
