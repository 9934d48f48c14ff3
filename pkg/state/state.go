// Package state defines the canonical InterviewState record, its value
// sub-structures, and the typed patch mechanism used by the turn engine.
package state

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Phase represents the coarse stage of an interview session.
type Phase string

const (
	PhaseIntro       Phase = "intro"
	PhaseExploration Phase = "exploration"
	PhaseClosing     Phase = "closing"
)

// ValidPhases returns all valid interview phases.
func ValidPhases() []Phase {
	return []Phase{PhaseIntro, PhaseExploration, PhaseClosing}
}

// IsValidPhase checks whether a phase value is known.
func IsValidPhase(p Phase) bool {
	for _, valid := range ValidPhases() {
		if p == valid {
			return true
		}
	}
	return false
}

// Node identifies a turn-engine node. Routing is a total function over this
// closed set; unknown values fall back to NodeQuestion.
type Node string

const (
	NodeIngestInput      Node = "ingest_input"
	NodeDetectIntent     Node = "detect_intent"
	NodeDecideNextAction Node = "decide_next_action"
	NodeGreeting         Node = "greeting"
	NodeQuestion         Node = "question"
	NodeFollowup         Node = "followup"
	NodeSandboxGuidance  Node = "sandbox_guidance"
	NodeCodeReview       Node = "code_review"
	NodeEvaluation       Node = "evaluation"
	NodeClosing          Node = "closing"
	NodeFinalizeTurn     Node = "finalize_turn"
)

// ActionNodes returns the seven action-handler nodes the policy step may
// route to.
func ActionNodes() []Node {
	return []Node{
		NodeGreeting, NodeQuestion, NodeFollowup, NodeSandboxGuidance,
		NodeCodeReview, NodeEvaluation, NodeClosing,
	}
}

// IsActionNode reports whether n is one of the routable action nodes.
func IsActionNode(n Node) bool {
	for _, a := range ActionNodes() {
		if n == a {
			return true
		}
	}
	return false
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in the conversation transcript.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// InterviewIDTag extracts the interview id tagged in the message metadata,
// or 0 when untagged. Untagged messages are considered to belong to the
// session they are stored under.
func (m *Message) InterviewIDTag() int64 {
	if m.Metadata == nil {
		return 0
	}
	switch v := m.Metadata["interview_id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// QuestionSource identifies where a question came from.
const (
	QuestionSourceGenerated = "generated"
	QuestionSourceFollowup  = "followup"
	QuestionSourceFallback  = "fallback"
)

// QuestionRecord is one asked interview question.
type QuestionRecord struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Source       string `json:"source"`
	ResumeAnchor string `json:"resume_anchor,omitempty"`
	Aspect       string `json:"aspect,omitempty"`
	Turn         int    `json:"turn"`
}

// IntentType is the closed taxonomy of candidate intents.
type IntentType string

const (
	IntentWriteCode           IntentType = "write_code"
	IntentReviewCode          IntentType = "review_code"
	IntentChangeTopic         IntentType = "change_topic"
	IntentClarify             IntentType = "clarify"
	IntentTechnicalAssessment IntentType = "technical_assessment"
	IntentStop                IntentType = "stop"
	IntentContinue            IntentType = "continue"
	IntentNone                IntentType = "no_intent"
)

// ValidIntentTypes returns the closed intent taxonomy.
func ValidIntentTypes() []IntentType {
	return []IntentType{
		IntentWriteCode, IntentReviewCode, IntentChangeTopic, IntentClarify,
		IntentTechnicalAssessment, IntentStop, IntentContinue, IntentNone,
	}
}

// IsValidIntentType checks whether t is part of the taxonomy.
func IsValidIntentType(t IntentType) bool {
	for _, valid := range ValidIntentTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// ActivationThreshold is the confidence above which a detected intent
// becomes the active user request and may influence routing.
const ActivationThreshold = 0.7

// UserIntent is one intent classification of a candidate utterance.
type UserIntent struct {
	Type       IntentType        `json:"type"`
	Confidence float64           `json:"confidence"`
	Turn       int               `json:"turn"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Active reports whether the intent qualifies as an active user request.
func (u *UserIntent) Active() bool {
	return u.Type != IntentNone && u.Confidence > ActivationThreshold
}

// StringSet is an unordered, deduplicated string collection. It serializes
// as a sorted list so checkpoints are byte-stable; order never carries
// meaning in memory.
type StringSet map[string]struct{}

// NewStringSet builds a set from the given values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts a value, ignoring duplicates and empty strings.
func (s StringSet) Add(v string) {
	if v == "" {
		return
	}
	s[v] = struct{}{}
}

// Has reports membership.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Values returns the members in sorted order.
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s StringSet) Clone() StringSet {
	out := make(StringSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// MarshalJSON serializes the set as a sorted, deduplicated array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON accepts an array of strings. Any other shape yields an
// empty set rather than an error so old checkpoints stay loadable.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		*s = make(StringSet)
		return nil //nolint:nilerr // malformed set field degrades to empty
	}
	*s = NewStringSet(values...)
	return nil
}

// ExecutionResult captures one sandboxed code run.
type ExecutionResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// CodeQuality holds the five review sub-scores. All scores are in [0,1].
// QualityScore is the 40/20/20/20 weighted combination of the four
// component scores.
type CodeQuality struct {
	Correctness   float64 `json:"correctness"`
	Efficiency    float64 `json:"efficiency"`
	Readability   float64 `json:"readability"`
	BestPractices float64 `json:"best_practices"`
	QualityScore  float64 `json:"quality_score"`
	Notes         string  `json:"notes,omitempty"`
}

// WeightedQualityScore computes the documented 40/20/20/20 combination.
func WeightedQualityScore(correctness, efficiency, readability, bestPractices float64) float64 {
	return 0.4*correctness + 0.2*efficiency + 0.2*readability + 0.2*bestPractices
}

// Submission is one code submission with its execution and review results.
type Submission struct {
	Code        string          `json:"code"`
	Language    string          `json:"language"`
	Execution   ExecutionResult `json:"execution"`
	Quality     CodeQuality     `json:"quality"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// SandboxState tracks the code-sandbox side of a session.
type SandboxState struct {
	IsActive            bool         `json:"is_active"`
	LastActivityTS      time.Time    `json:"last_activity_ts"`
	Submissions         []Submission `json:"submissions"`
	Signals             StringSet    `json:"signals"`
	AspectsCovered      StringSet    `json:"aspects_covered"`
	InitialCode         string       `json:"initial_code,omitempty"`
	ExerciseDescription string       `json:"exercise_description,omitempty"`
	ExerciseDifficulty  string       `json:"exercise_difficulty,omitempty"`
	ExerciseHints       []string     `json:"exercise_hints,omitempty"`
	HintsProvided       []string     `json:"hints_provided,omitempty"`
	LastCodeSnapshot    string       `json:"last_code_snapshot,omitempty"`
	LastPollTime        time.Time    `json:"last_poll_time"`
}

// sandboxStateAlias avoids UnmarshalJSON recursion.
type sandboxStateAlias SandboxState

// UnmarshalJSON treats a present-but-malformed sandbox sub-structure as
// absent: partially restored checkpoints from older schema versions must
// never poison a session.
func (sb *SandboxState) UnmarshalJSON(data []byte) error {
	var alias sandboxStateAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		*sb = SandboxState{}
		return nil //nolint:nilerr // wrong-shaped sandbox resets to defaults
	}
	*sb = SandboxState(alias)
	return nil
}

// SkillAssessment is one skill sub-score with qualitative notes.
type SkillAssessment struct {
	Score           float64  `json:"score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// Feedback is the end-of-interview evaluation record. OverallScore is the
// 25/30/25/20 weighted combination of the four skill scores.
type Feedback struct {
	Communication  SkillAssessment `json:"communication"`
	Technical      SkillAssessment `json:"technical"`
	ProblemSolving SkillAssessment `json:"problem_solving"`
	CodeQuality    SkillAssessment `json:"code_quality"`
	OverallScore   float64         `json:"overall_score"`
	Narrative      string          `json:"narrative"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// WeightedOverallScore computes the documented 25/30/25/20 combination.
func WeightedOverallScore(communication, technical, problemSolving, codeQuality float64) float64 {
	return 0.25*communication + 0.30*technical + 0.25*problemSolving + 0.20*codeQuality
}

// ResumeContext holds the extracted resume sections used to ground
// questions. Extraction itself happens outside this core.
type ResumeContext struct {
	Profile    string `json:"profile,omitempty"`
	Experience string `json:"experience,omitempty"`
	Education  string `json:"education,omitempty"`
	Projects   string `json:"projects,omitempty"`
	Skills     string `json:"skills,omitempty"`
}

// InterviewState is the canonical per-session record. It is owned by the
// orchestrator facade for the duration of a turn and persisted between
// turns by the checkpoint store. Handlers never mutate it directly; all
// mutation flows through Apply.
type InterviewState struct {
	InterviewID int64 `json:"interview_id"`
	UserID      int64 `json:"user_id"`
	TurnCount   int   `json:"turn_count"`

	Phase    Phase `json:"phase"`
	LastNode Node  `json:"last_node,omitempty"`
	NextNode Node  `json:"next_node,omitempty"`

	ConversationHistory []Message        `json:"conversation_history"`
	QuestionsAsked      []QuestionRecord `json:"questions_asked"`
	TopicsCovered       StringSet        `json:"topics_covered"`
	DetectedIntents     []UserIntent     `json:"detected_intents"`
	ActiveUserRequest   *UserIntent      `json:"active_user_request,omitempty"`

	Sandbox SandboxState `json:"sandbox"`

	// Transient per-turn fields, cleared by finalization.
	CurrentCode     string `json:"current_code,omitempty"`
	CurrentLanguage string `json:"current_language,omitempty"`
	LastResponse    string `json:"last_response,omitempty"`
	NextMessage     string `json:"next_message,omitempty"`

	CurrentQuestion     string    `json:"current_question,omitempty"`
	ConversationSummary string    `json:"conversation_summary,omitempty"`
	Feedback            *Feedback `json:"feedback,omitempty"`
	Checkpoints         []string  `json:"checkpoints"`

	Resume         ResumeContext `json:"resume"`
	JobDescription string        `json:"job_description,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Clone returns a deep copy of the state. Patches are applied to clones so
// the input state of a turn step is never mutated in place.
func (s *InterviewState) Clone() InterviewState {
	out := *s

	out.ConversationHistory = append([]Message(nil), s.ConversationHistory...)
	out.QuestionsAsked = append([]QuestionRecord(nil), s.QuestionsAsked...)
	out.DetectedIntents = append([]UserIntent(nil), s.DetectedIntents...)
	out.Checkpoints = append([]string(nil), s.Checkpoints...)
	out.TopicsCovered = s.TopicsCovered.Clone()

	if s.ActiveUserRequest != nil {
		req := *s.ActiveUserRequest
		out.ActiveUserRequest = &req
	}
	if s.Feedback != nil {
		fb := *s.Feedback
		out.Feedback = &fb
	}

	out.Sandbox.Submissions = append([]Submission(nil), s.Sandbox.Submissions...)
	out.Sandbox.Signals = s.Sandbox.Signals.Clone()
	out.Sandbox.AspectsCovered = s.Sandbox.AspectsCovered.Clone()
	out.Sandbox.ExerciseHints = append([]string(nil), s.Sandbox.ExerciseHints...)
	out.Sandbox.HintsProvided = append([]string(nil), s.Sandbox.HintsProvided...)

	return out
}

// NormalizeQuestionText lowercases and collapses whitespace for the
// duplicate-question check. Exact match after normalization is the
// documented behavior; semantic near-duplicates are intentionally not
// caught.
func NormalizeQuestionText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// HasQuestion reports whether a case/whitespace-insensitive duplicate of
// text has already been asked.
func (s *InterviewState) HasQuestion(text string) bool {
	normalized := NormalizeQuestionText(text)
	for i := range s.QuestionsAsked {
		if NormalizeQuestionText(s.QuestionsAsked[i].Text) == normalized {
			return true
		}
	}
	return false
}

// HasAssistantMessage reports whether any assistant-role message exists in
// the conversation history. Used by the greeting guard and the policy
// fallback.
func (s *InterviewState) HasAssistantMessage() bool {
	for i := range s.ConversationHistory {
		if s.ConversationHistory[i].Role == RoleAssistant {
			return true
		}
	}
	return false
}

// LastAssistantMessage returns the most recent assistant message content,
// or empty when none exists.
func (s *InterviewState) LastAssistantMessage() string {
	for i := len(s.ConversationHistory) - 1; i >= 0; i-- {
		if s.ConversationHistory[i].Role == RoleAssistant {
			return s.ConversationHistory[i].Content
		}
	}
	return ""
}
