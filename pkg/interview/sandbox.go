package interview

import (
	"context"
	"strings"
	"time"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const exercisePrompt = `Generate a small coding exercise for a spoken mock interview, tailored to the role and conversation.
The candidate will solve it in a browser sandbox in roughly ten minutes.
Respond with JSON only: {"description": "...", "starter_code": "...", "language": "python"|"javascript", "difficulty": "easy"|"medium"|"hard", "hints": ["...", "..."]}.`

// technicalKeywords trigger proactive exercise generation when they appear
// in the job description or recent conversation.
//
//nolint:gochecknoglobals // Shared immutable keyword list
var technicalKeywords = []string{
	"algorithm", "python", "javascript", "coding", "programming",
	"software", "engineer", "developer", "backend", "frontend",
	"data structure", "api", "database",
}

type generatedExercise struct {
	Description string   `json:"description"`
	StarterCode string   `json:"starter_code"`
	Language    string   `json:"language"`
	Difficulty  string   `json:"difficulty"`
	Hints       []string `json:"hints"`
}

// fallbackExercise is the fixed generic exercise used when generation fails.
func fallbackExercise() generatedExercise {
	return generatedExercise{
		Description: "Write a function that takes a list of numbers and returns the largest one, without using the built-in max function.",
		StarterCode: "def find_max(numbers):\n    # your code here\n    pass\n",
		Language:    "python",
		Difficulty:  "easy",
		Hints: []string{
			"Track the best value seen so far while iterating.",
			"Think about what to return for an empty list.",
		},
	}
}

// handleSandboxGuidance directs the candidate to the code sandbox. An
// exercise is attached when explicitly requested or when the role looks
// technical; otherwise the handler sends a plain nudge. An exercise already
// issued for the session is never regenerated.
func (d *Driver) handleSandboxGuidance(ctx context.Context, s *state.InterviewState) state.Patch {
	now := time.Now().UTC()

	if s.Sandbox.ExerciseDescription != "" {
		return state.Patch{
			LastNode:    state.NodePtr(state.NodeSandboxGuidance),
			NextMessage: state.StrPtr("The sandbox is ready with your current exercise. Take your time, and talk me through your thinking as you go."),
			Sandbox: &state.SandboxPatch{
				IsActive:       state.BoolPtr(true),
				LastActivityTS: state.TimePtr(now),
			},
		}
	}

	if !d.shouldAttachExercise(s) {
		return state.Patch{
			LastNode:    state.NodePtr(state.NodeSandboxGuidance),
			NextMessage: state.StrPtr("Feel free to open the code sandbox whenever you'd like to sketch something out. I'm happy to look at whatever you write."),
			Sandbox: &state.SandboxPatch{
				IsActive:       state.BoolPtr(true),
				LastActivityTS: state.TimePtr(now),
			},
		}
	}

	exercise, err := d.generateExercise(ctx, s)
	if err != nil {
		d.logger.Warn("exercise generation failed, using fallback: %v", err)
		exercise = fallbackExercise()
	}

	message := "Let's try a short coding exercise. " + exercise.Description +
		" I've put some starter code in the sandbox; talk me through your approach as you work."

	hints := append([]string(nil), exercise.Hints...)

	return state.Patch{
		LastNode:    state.NodePtr(state.NodeSandboxGuidance),
		NextMessage: state.StrPtr(message),
		Sandbox: &state.SandboxPatch{
			IsActive:            state.BoolPtr(true),
			InitialCode:         state.StrPtr(exercise.StarterCode),
			ExerciseDescription: state.StrPtr(exercise.Description),
			ExerciseDifficulty:  state.StrPtr(exercise.Difficulty),
			ExerciseHints:       &hints,
			LastActivityTS:      state.TimePtr(now),
		},
	}
}

// shouldAttachExercise reports whether this session warrants a generated
// exercise: an explicit write_code request, a technical job description, or
// technical keywords in the recent conversation.
func (d *Driver) shouldAttachExercise(s *state.InterviewState) bool {
	if s.ActiveUserRequest != nil && s.ActiveUserRequest.Type == state.IntentWriteCode {
		return true
	}
	if containsTechnicalKeyword(s.JobDescription) {
		return true
	}
	return containsTechnicalKeyword(contextmgr.ConversationContext(s))
}

func containsTechnicalKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range technicalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (d *Driver) generateExercise(ctx context.Context, s *state.InterviewState) (generatedExercise, error) {
	var b strings.Builder
	if job := contextmgr.JobContext(s); job != "" {
		b.WriteString(job + "\n\n")
	}
	if resume := contextmgr.ResumeContext(s); resume != "" {
		b.WriteString("Candidate resume:\n" + resume + "\n\n")
	}
	if conv := contextmgr.ConversationContext(s); conv != "" {
		b.WriteString("Conversation so far:\n" + conv + "\n")
	}

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(exercisePrompt),
			llm.NewUserMessage(b.String()),
		},
		MaxTokens:   llm.DefaultMaxTokens,
		Temperature: llm.TemperatureDefault,
	}

	var exercise generatedExercise
	if err := llm.CompleteJSON(ctx, d.conversationClient, req, &exercise); err != nil {
		return generatedExercise{}, err
	}
	if strings.TrimSpace(exercise.Description) == "" {
		return generatedExercise{}, errEmptyExercise
	}
	if exercise.Language != "javascript" {
		exercise.Language = "python"
	}
	return exercise, nil
}
