package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"interviewer/pkg/contextmgr"
	"interviewer/pkg/exec"
	"interviewer/pkg/llm"
	"interviewer/pkg/state"
)

const domainCheckPrompt = `An interview candidate was given a coding exercise and submitted code.
Judge whether the code addresses the same problem domain and requirements as the exercise, not whether it is correct.
Respond with JSON only: {"matches": true|false, "note": "one sentence"}.`

const codeQualityPrompt = `You review code submitted during a mock interview.
Score each dimension from 0.0 to 1.0 given the code, its execution result, and the conversation.
Respond with JSON only: {"correctness": 0.0-1.0, "efficiency": 0.0-1.0, "readability": 0.0-1.0, "best_practices": 0.0-1.0, "notes": "two or three sentences"}.`

const reviewMessagePrompt = `You are a spoken-interview code reviewer. Given code, its execution result, and quality notes, produce:
1. A short spoken feedback message (three or four sentences, conversational, no markdown).
2. One adaptive follow-up question about the code.
Respond with JSON only: {"feedback": "...", "followup": "..."}.`

// FallbackReviewMessage is the canned spoken review used on generation
// failure.
const FallbackReviewMessage = "Thanks for the submission. I've run your code and noted the results. Could you walk me through your approach and any trade-offs you considered?"

type domainCheck struct {
	Matches bool   `json:"matches"`
	Note    string `json:"note"`
}

type qualityScores struct {
	Correctness   float64 `json:"correctness"`
	Efficiency    float64 `json:"efficiency"`
	Readability   float64 `json:"readability"`
	BestPractices float64 `json:"best_practices"`
	Notes         string  `json:"notes"`
}

type reviewMessage struct {
	Feedback string `json:"feedback"`
	Followup string `json:"followup"`
}

// handleCodeReview executes the submitted code, scores it, and produces a
// spoken review plus a follow-up question. All collaborator failures
// degrade to canned content; the submission itself is always recorded.
func (d *Driver) handleCodeReview(ctx context.Context, s *state.InterviewState) state.Patch {
	code := s.CurrentCode
	language := exec.ParseLanguage(s.CurrentLanguage)
	now := time.Now().UTC()

	if code == "" {
		return state.Patch{
			LastNode:    state.NodePtr(state.NodeCodeReview),
			NextMessage: state.StrPtr("I don't see any code in the sandbox yet. Go ahead and submit something when you're ready, and I'll take a look."),
		}
	}

	advisory := d.checkExerciseDomain(ctx, s, code)

	execution := d.executeCode(ctx, code, language)

	quality := d.scoreCode(ctx, s, code, execution)

	message, err := d.generateReview(ctx, s, code, execution, quality, advisory)
	if err != nil {
		d.logger.Warn("review generation failed, using fallback: %v", err)
		message = FallbackReviewMessage
	}

	submission := state.Submission{
		Code:        code,
		Language:    string(language),
		Execution:   execution,
		Quality:     quality,
		SubmittedAt: now,
	}

	return state.Patch{
		LastNode:    state.NodePtr(state.NodeCodeReview),
		NextMessage: state.StrPtr(message),
		Sandbox: &state.SandboxPatch{
			IsActive:          state.BoolPtr(true),
			LastCodeSnapshot:  state.StrPtr(code),
			LastActivityTS:    state.TimePtr(now),
			AppendSubmissions: []state.Submission{submission},
			AddSignals:        executionSignals(execution),
		},
	}
}

// checkExerciseDomain asks whether the submission addresses the issued
// exercise. Best-effort: absent exercise, provider failure, or a match all
// yield an empty advisory.
func (d *Driver) checkExerciseDomain(ctx context.Context, s *state.InterviewState, code string) string {
	if s.Sandbox.ExerciseDescription == "" {
		return ""
	}

	user := fmt.Sprintf("Exercise: %s\n\nSubmitted code:\n%s",
		contextmgr.Truncate(s.Sandbox.ExerciseDescription, 500),
		contextmgr.Truncate(code, 2000))

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(domainCheckPrompt),
			llm.NewUserMessage(user),
		},
		MaxTokens:   128,
		Temperature: llm.TemperatureDeterministic,
	}

	var check domainCheck
	if err := llm.CompleteJSON(ctx, d.analysisClient, req, &check); err != nil {
		d.logger.Debug("exercise domain check failed, skipping advisory: %v", err)
		return ""
	}
	if check.Matches {
		return ""
	}
	if check.Note == "" {
		check.Note = "the submission appears to address a different problem than the exercise"
	}
	return check.Note
}

// executeCode runs the submission through the sandbox runner. Runner
// failures are reported inside the result, never raised.
func (d *Driver) executeCode(ctx context.Context, code string, language exec.Language) state.ExecutionResult {
	if d.runner == nil {
		return state.ExecutionResult{
			Success: false,
			Error:   "no execution backend configured",
		}
	}

	result, err := d.runner.Execute(ctx, code, language)
	if err != nil {
		d.logger.Warn("code execution failed: %v", err)
		return state.ExecutionResult{
			Success: false,
			Error:   err.Error(),
		}
	}

	status := "success"
	if !result.Success {
		status = "failure"
	}
	d.recorder.IncExecution(string(language), status)
	return result
}

// scoreCode produces the five quality sub-scores. The weighted overall
// score is always recomputed here so it cannot drift from its components.
func (d *Driver) scoreCode(ctx context.Context, s *state.InterviewState, code string, execution state.ExecutionResult) state.CodeQuality {
	user := fmt.Sprintf("Code:\n%s\n\nExecution: exit_code=%d success=%t\nstdout: %s\nstderr: %s\n\nRecent conversation:\n%s",
		contextmgr.Truncate(code, 2000),
		execution.ExitCode, execution.Success,
		contextmgr.Truncate(execution.Stdout, 500),
		contextmgr.Truncate(execution.Stderr, 500),
		contextmgr.ConversationContext(s))

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(codeQualityPrompt),
			llm.NewUserMessage(user),
		},
		MaxTokens:   512,
		Temperature: llm.TemperatureDeterministic,
	}

	var scores qualityScores
	if err := llm.CompleteJSON(ctx, d.analysisClient, req, &scores); err != nil {
		d.logger.Warn("quality scoring failed, using neutral scores: %v", err)
		scores = qualityScores{Correctness: 0.5, Efficiency: 0.5, Readability: 0.5, BestPractices: 0.5,
			Notes: "Automated scoring was unavailable for this submission."}
	}

	quality := state.CodeQuality{
		Correctness:   clamp01(scores.Correctness),
		Efficiency:    clamp01(scores.Efficiency),
		Readability:   clamp01(scores.Readability),
		BestPractices: clamp01(scores.BestPractices),
		Notes:         scores.Notes,
	}
	quality.QualityScore = state.WeightedQualityScore(
		quality.Correctness, quality.Efficiency, quality.Readability, quality.BestPractices)
	return quality
}

func (d *Driver) generateReview(ctx context.Context, s *state.InterviewState, code string,
	execution state.ExecutionResult, quality state.CodeQuality, advisory string) (string, error) {

	var b strings.Builder
	fmt.Fprintf(&b, "Code:\n%s\n\n", contextmgr.Truncate(code, 2000))
	fmt.Fprintf(&b, "Execution: exit_code=%d success=%t duration_ms=%d\n", execution.ExitCode, execution.Success, execution.DurationMS)
	if execution.Stdout != "" {
		fmt.Fprintf(&b, "stdout: %s\n", contextmgr.Truncate(execution.Stdout, 300))
	}
	if execution.Stderr != "" {
		fmt.Fprintf(&b, "stderr: %s\n", contextmgr.Truncate(execution.Stderr, 300))
	}
	fmt.Fprintf(&b, "\nQuality: correctness=%.2f efficiency=%.2f readability=%.2f best_practices=%.2f overall=%.2f\nNotes: %s\n",
		quality.Correctness, quality.Efficiency, quality.Readability, quality.BestPractices, quality.QualityScore, quality.Notes)
	if conv := contextmgr.ConversationContext(s); conv != "" {
		fmt.Fprintf(&b, "\nRecent conversation:\n%s\n", conv)
	}

	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(reviewMessagePrompt),
			llm.NewUserMessage(b.String()),
		},
		MaxTokens:   llm.DefaultMaxTokens,
		Temperature: llm.TemperatureDefault,
	}

	var msg reviewMessage
	if err := llm.CompleteJSON(ctx, d.conversationClient, req, &msg); err != nil {
		return "", err
	}

	spoken := strings.TrimSpace(msg.Feedback)
	if spoken == "" {
		return "", errEmptyReview
	}
	if advisory != "" {
		spoken += " One note: " + advisory + "."
	}
	if followup := strings.TrimSpace(msg.Followup); followup != "" {
		spoken += " " + followup
	}
	return spoken, nil
}

// executionSignals derives coarse sandbox signals from one run.
func executionSignals(result state.ExecutionResult) []string {
	if result.Success {
		return []string{"code_ran_clean"}
	}
	if result.Stderr != "" || result.Error != "" {
		return []string{"code_errored"}
	}
	return []string{"code_failed"}
}
