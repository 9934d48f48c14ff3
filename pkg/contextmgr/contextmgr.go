// Package contextmgr projects slices of interview state into prompt-ready
// text. All builders are pure: they never mutate state and are safe to call
// any number of times per turn.
package contextmgr

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"interviewer/pkg/state"
)

const (
	// ResumeSectionBudget caps each rendered resume section's characters
	// to bound prompt size.
	ResumeSectionBudget = 250

	// MessageCharBudget caps each rendered transcript line.
	MessageCharBudget = 200

	// MaxHistoryMessages is how many recent messages the transcript
	// builder renders.
	MaxHistoryMessages = 20
)

// Truncate cuts text to at most budget bytes, appending an ellipsis marker
// when cut. The cut always lands on a rune boundary so prompts never carry
// split multi-byte characters.
func Truncate(text string, budget int) string {
	if len(text) <= budget {
		return text
	}
	if budget <= 3 {
		return text[:runeBoundary(text, budget)]
	}
	return text[:runeBoundary(text, budget-3)] + "..."
}

func runeBoundary(text string, n int) int {
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return n
}

// ResumeContext concatenates the non-empty resume sections, each truncated
// to the section budget.
func ResumeContext(s *state.InterviewState) string {
	sections := []struct {
		label string
		text  string
	}{
		{"Profile", s.Resume.Profile},
		{"Experience", s.Resume.Experience},
		{"Education", s.Resume.Education},
		{"Projects", s.Resume.Projects},
		{"Skills", s.Resume.Skills},
	}

	var b strings.Builder
	for _, section := range sections {
		text := strings.TrimSpace(section.text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", section.label, Truncate(text, ResumeSectionBudget))
	}
	return strings.TrimRight(b.String(), "\n")
}

// JobContext returns an empty string when no job description exists,
// otherwise a fixed-prefix block with the full text.
func JobContext(s *state.InterviewState) string {
	jd := strings.TrimSpace(s.JobDescription)
	if jd == "" {
		return ""
	}
	return "Job description:\n" + jd
}

// ConversationContext renders the last MaxHistoryMessages non-system,
// non-empty messages as "ROLE: content" lines, each truncated to the
// message budget.
func ConversationContext(s *state.InterviewState) string {
	var lines []string
	for i := range s.ConversationHistory {
		msg := &s.ConversationHistory[i]
		if msg.Role == state.RoleSystem {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s",
			strings.ToUpper(string(msg.Role)), Truncate(content, MessageCharBudget)))
	}

	if len(lines) > MaxHistoryMessages {
		lines = lines[len(lines)-MaxHistoryMessages:]
	}
	return strings.Join(lines, "\n")
}

// DecisionSummary is the structured snapshot the policy step consumes. It
// is deliberately small: the policy prompt and fallback logic both read it.
type DecisionSummary struct {
	Turn            int
	Phase           state.Phase
	LastNode        state.Node
	LastQuestion    string
	QuestionCount   int
	ActiveIntent    *state.UserIntent
	Topics          []string
	SandboxActive   bool
	SandboxSignals  []string
	SubmissionCount int
	HistoryLength   int
	HasAssistantMsg bool
	Summary         string
}

// DecisionContext projects the state into the policy step's input.
func DecisionContext(s *state.InterviewState) DecisionSummary {
	var lastQuestion string
	if n := len(s.QuestionsAsked); n > 0 {
		lastQuestion = s.QuestionsAsked[n-1].Text
	}

	var active *state.UserIntent
	if s.ActiveUserRequest != nil {
		req := *s.ActiveUserRequest
		active = &req
	}

	return DecisionSummary{
		Turn:            s.TurnCount,
		Phase:           s.Phase,
		LastNode:        s.LastNode,
		LastQuestion:    lastQuestion,
		QuestionCount:   len(s.QuestionsAsked),
		ActiveIntent:    active,
		Topics:          s.TopicsCovered.Values(),
		SandboxActive:   s.Sandbox.IsActive,
		SandboxSignals:  s.Sandbox.Signals.Values(),
		SubmissionCount: len(s.Sandbox.Submissions),
		HistoryLength:   len(s.ConversationHistory),
		HasAssistantMsg: s.HasAssistantMessage(),
		Summary:         s.ConversationSummary,
	}
}

// PriorQuestionsContext renders already-asked questions so generation can
// steer away from repeats.
func PriorQuestionsContext(s *state.InterviewState) string {
	if len(s.QuestionsAsked) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Questions already asked:\n")
	for i := range s.QuestionsAsked {
		fmt.Fprintf(&b, "- %s\n", Truncate(s.QuestionsAsked[i].Text, MessageCharBudget))
	}
	return strings.TrimRight(b.String(), "\n")
}
