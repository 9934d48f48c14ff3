package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const evaluationPrompt = `You produce end-of-interview feedback for a mock technical interview.
Score each skill from 0.0 to 1.0 with strengths, weaknesses, and recommendations.
Respond with JSON only:
{"communication": {"score": 0.0-1.0, "strengths": [...], "weaknesses": [...], "recommendations": [...]},
 "technical": {...}, "problem_solving": {...}, "code_quality": {...},
 "narrative": "a short paragraph summarizing the interview"}`

type generatedFeedback struct {
	Communication  state.SkillAssessment `json:"communication"`
	Technical      state.SkillAssessment `json:"technical"`
	ProblemSolving state.SkillAssessment `json:"problem_solving"`
	CodeQuality    state.SkillAssessment `json:"code_quality"`
	Narrative      string                `json:"narrative"`
}

// handleEvaluation aggregates the whole session into the final feedback
// record. The code-quality sub-score is forced to zero with empty lists
// when no code was submitted, regardless of what the model produced.
func (d *Driver) handleEvaluation(ctx context.Context, s *state.InterviewState) state.Patch {
	gen, err := d.generateFeedback(ctx, s)
	if err != nil {
		d.logger.Warn("feedback generation failed, using placeholder: %v", err)
		gen = placeholderFeedback()
	}

	feedback := state.Feedback{
		Communication:  sanitizeSkill(gen.Communication),
		Technical:      sanitizeSkill(gen.Technical),
		ProblemSolving: sanitizeSkill(gen.ProblemSolving),
		CodeQuality:    sanitizeSkill(gen.CodeQuality),
		Narrative:      gen.Narrative,
		GeneratedAt:    time.Now().UTC(),
	}

	if len(s.Sandbox.Submissions) == 0 {
		feedback.CodeQuality = state.SkillAssessment{
			Score:           0,
			Strengths:       []string{},
			Weaknesses:      []string{},
			Recommendations: []string{},
		}
	}

	feedback.OverallScore = state.WeightedOverallScore(
		feedback.Communication.Score,
		feedback.Technical.Score,
		feedback.ProblemSolving.Score,
		feedback.CodeQuality.Score)

	message := "Thank you for the conversation. I've put together your feedback: " +
		contextmgr.Truncate(feedback.Narrative, 600)

	return state.Patch{
		LastNode:    state.NodePtr(state.NodeEvaluation),
		Phase:       state.PhasePtr(state.PhaseClosing),
		NextMessage: state.StrPtr(message),
		Feedback:    &feedback,
	}
}

func (d *Driver) generateFeedback(ctx context.Context, s *state.InterviewState) (generatedFeedback, error) {
	var b strings.Builder
	if resume := contextmgr.ResumeContext(s); resume != "" {
		b.WriteString("Candidate resume:\n" + resume + "\n\n")
	}
	if conv := contextmgr.ConversationContext(s); conv != "" {
		b.WriteString("Conversation:\n" + conv + "\n\n")
	}
	if s.ConversationSummary != "" {
		b.WriteString("Earlier conversation summary: " + s.ConversationSummary + "\n\n")
	}
	if topics := s.TopicsCovered.Values(); len(topics) > 0 {
		b.WriteString("Topics covered: " + strings.Join(topics, ", ") + "\n")
	}
	for i := range s.Sandbox.Submissions {
		sub := &s.Sandbox.Submissions[i]
		fmt.Fprintf(&b, "\nCode submission %d (%s, overall quality %.2f):\n%s\n",
			i+1, sub.Language, sub.Quality.QualityScore, contextmgr.Truncate(sub.Code, 1000))
	}
	if len(s.Sandbox.Submissions) == 0 {
		b.WriteString("\nNo code was submitted during this interview.\n")
	}

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(evaluationPrompt),
			llm.NewUserMessage(b.String()),
		},
		MaxTokens:   2048,
		Temperature: llm.TemperatureDeterministic,
	}

	var gen generatedFeedback
	if err := llm.CompleteJSON(ctx, d.analysisClient, req, &gen); err != nil {
		return generatedFeedback{}, err
	}
	return gen, nil
}

// placeholderFeedback is the deterministic low-confidence record used when
// generation fails.
func placeholderFeedback() generatedFeedback {
	neutral := state.SkillAssessment{
		Score:           0.5,
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{"Detailed feedback could not be generated for this session."},
	}
	return generatedFeedback{
		Communication:  neutral,
		Technical:      neutral,
		ProblemSolving: neutral,
		CodeQuality:    neutral,
		Narrative:      "Feedback generation was unavailable for this interview; the scores shown are neutral placeholders.",
	}
}

func sanitizeSkill(skill state.SkillAssessment) state.SkillAssessment {
	skill.Score = clamp01(skill.Score)
	if skill.Strengths == nil {
		skill.Strengths = []string{}
	}
	if skill.Weaknesses == nil {
		skill.Weaknesses = []string{}
	}
	if skill.Recommendations == nil {
		skill.Recommendations = []string{}
	}
	return skill
}
