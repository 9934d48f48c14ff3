package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const questionPrompt = `You are conducting a spoken mock interview.
Ask exactly one interview question grounded in the candidate's resume and the job description.
Pick a resume anchor (a specific project, skill, or experience entry) that has not been explored yet.
Respond with JSON only: {"question": "the question text", "anchor": "the resume anchor", "aspect": "what the question probes"}.`

// FallbackQuestion is the canned substitute used on generation failure or
// duplicate collision.
const FallbackQuestion = "Could you walk me through a project you're particularly proud of, and what your role in it was?"

// fallbackQuestionVariants are tried in order when the fallback itself has
// already been asked; questions_asked must stay duplicate-free.
var fallbackQuestionVariants = []string{
	FallbackQuestion,
	"Tell me about a technical challenge you faced recently and how you approached it.",
	"What is a piece of work you shipped that taught you the most, and why?",
	"Describe a time you had to track down a tricky bug. How did you narrow it in?",
}

// pickFallbackQuestion returns the first variant not yet in questions_asked.
// When every variant is exhausted it numbers the request so the text still
// differs from anything asked before.
func pickFallbackQuestion(s *state.InterviewState) string {
	for _, q := range fallbackQuestionVariants {
		if !s.HasQuestion(q) {
			return q
		}
	}
	for n := 2; ; n++ {
		q := fmt.Sprintf("Let's revisit this from another angle, take %d: %s", n, FallbackQuestion)
		if !s.HasQuestion(q) {
			return q
		}
	}
}

type generatedQuestion struct {
	Question string `json:"question"`
	Anchor   string `json:"anchor"`
	Aspect   string `json:"aspect"`
}

// handleQuestion asks a new resume-grounded question. Duplicates of anything
// in questions_asked are replaced by the fallback question; topics_covered
// grows only when the question introduces a new anchor.
func (d *Driver) handleQuestion(ctx context.Context, s *state.InterviewState) state.Patch {
	source := state.QuestionSourceGenerated
	gen, err := d.generateQuestion(ctx, s)
	if err != nil {
		d.logger.Warn("question generation failed, using fallback: %v", err)
		source = state.QuestionSourceFallback
	} else if s.HasQuestion(gen.Question) {
		d.logger.Info("duplicate question suppressed for interview %d", s.InterviewID)
		source = state.QuestionSourceFallback
	}
	if source == state.QuestionSourceFallback {
		gen = generatedQuestion{Question: pickFallbackQuestion(s)}
	}

	record := state.QuestionRecord{
		ID:           uuid.NewString(),
		Text:         gen.Question,
		Source:       source,
		ResumeAnchor: gen.Anchor,
		Aspect:       gen.Aspect,
		Turn:         s.TurnCount,
	}

	patch := state.Patch{
		LastNode:        state.NodePtr(state.NodeQuestion),
		NextMessage:     state.StrPtr(gen.Question),
		CurrentQuestion: state.StrPtr(gen.Question),
		AppendQuestions: []state.QuestionRecord{record},
	}
	if s.Phase == state.PhaseIntro {
		patch.Phase = state.PhasePtr(state.PhaseExploration)
	}
	if gen.Anchor != "" && !s.TopicsCovered.Has(gen.Anchor) {
		patch.AddTopics = []string{gen.Anchor}
	}
	return patch
}

func (d *Driver) generateQuestion(ctx context.Context, s *state.InterviewState) (generatedQuestion, error) {
	var b strings.Builder
	if resume := contextmgr.ResumeContext(s); resume != "" {
		b.WriteString("Candidate resume:\n" + resume + "\n\n")
	}
	if job := contextmgr.JobContext(s); job != "" {
		b.WriteString(job + "\n\n")
	}
	if conv := contextmgr.ConversationContext(s); conv != "" {
		b.WriteString("Conversation so far:\n" + conv + "\n\n")
	}
	if prior := contextmgr.PriorQuestionsContext(s); prior != "" {
		b.WriteString(prior + "\n")
	}

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(questionPrompt),
			llm.NewUserMessage(b.String()),
		},
		MaxTokens:   llm.DefaultMaxTokens,
		Temperature: llm.TemperatureDefault,
	}

	var gen generatedQuestion
	if err := llm.CompleteJSON(ctx, d.conversationClient, req, &gen); err != nil {
		return generatedQuestion{}, err
	}
	if strings.TrimSpace(gen.Question) == "" {
		gen.Question = FallbackQuestion
	}
	return gen, nil
}
