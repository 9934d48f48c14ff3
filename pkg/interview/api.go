package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"interviewer/pkg/logx"
	"interviewer/pkg/persistence"
	"interviewer/pkg/state"
)

// ErrIntegrity marks cross-session corruption: a missing or mismatched
// interview identity. It is the only error class that crosses the facade
// boundary; everything else degrades inside the turn.
var ErrIntegrity = errors.New("interview state integrity violation")

// StepInput carries the optional per-turn inputs from the voice layer.
type StepInput struct {
	UserResponse string
	Code         string
	Language     string
}

// Orchestrator is the externally visible entry point. It ties the turn
// engine, the checkpoint store, and per-session identity together. Callers
// must not invoke ExecuteStep concurrently for the same interview id;
// different interviews may run fully in parallel.
type Orchestrator struct {
	driver *Driver
	db     *sql.DB
	logger *logx.Logger
}

// NewOrchestrator creates the facade. db may be nil for transient sessions
// with no durability.
func NewOrchestrator(driver *Driver, db *sql.DB) *Orchestrator {
	return &Orchestrator{
		driver: driver,
		db:     db,
		logger: logx.NewLogger("orchestrator"),
	}
}

// ExecuteStep runs one full turn: injects the caller's inputs, executes the
// node pipeline, checkpoints the result, and returns the new state. Only
// integrity violations are returned as errors; checkpoint failures are
// logged and swallowed so a turn's conversational progress is never lost to
// a storage hiccup.
func (o *Orchestrator) ExecuteStep(ctx context.Context, s state.InterviewState, in StepInput) (state.InterviewState, error) {
	if s.InterviewID == 0 {
		return s, fmt.Errorf("%w: state has no interview_id", ErrIntegrity)
	}

	s.LastResponse = in.UserResponse
	if in.Code != "" {
		s.CurrentCode = in.Code
		s.CurrentLanguage = in.Language
	}

	result, err := o.driver.RunTurn(ctx, s)
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	if result.InterviewID != s.InterviewID {
		return s, fmt.Errorf("%w: turn returned interview %d for interview %d",
			ErrIntegrity, result.InterviewID, s.InterviewID)
	}

	if result.LastNode == state.NodeFinalizeTurn {
		result = o.checkpoint(result)
	}

	o.persistProgress(&result)

	return result, nil
}

// Restore loads the most recent valid checkpoint for an interview, or
// persistence.ErrCheckpointNotFound when none is usable.
func (o *Orchestrator) Restore(interviewID int64) (state.InterviewState, error) {
	if o.db == nil {
		return state.InterviewState{}, persistence.ErrCheckpointNotFound
	}
	restored, err := persistence.RestoreCheckpoint(o.db, interviewID)
	if err != nil {
		return state.InterviewState{}, err
	}
	return *restored, nil
}

// checkpoint persists a full-state snapshot and records its id in the
// returned state. Failure is logged, never raised.
func (o *Orchestrator) checkpoint(s state.InterviewState) state.InterviewState {
	if o.db == nil {
		return s
	}

	checkpointID, err := persistence.SaveCheckpoint(o.db, &s)
	if err != nil {
		o.logger.Error("checkpoint failed for interview %d, continuing without durability: %v", s.InterviewID, err)
		return s
	}

	s.Checkpoints = append(s.Checkpoints, checkpointID)
	return s
}

// persistProgress mirrors turn count, feedback, and new code submissions
// into the durable interview record. Best-effort: failures are logged.
func (o *Orchestrator) persistProgress(s *state.InterviewState) {
	if o.db == nil {
		return
	}

	var feedback *state.Feedback
	if s.Feedback != nil {
		fb := *s.Feedback
		feedback = &fb
	}
	if err := persistence.UpdateInterviewProgress(o.db, s.InterviewID, s.TurnCount, feedback); err != nil {
		o.logger.Warn("failed to persist progress for interview %d: %v", s.InterviewID, err)
	}

	for i := range s.Sandbox.Submissions {
		if _, err := persistence.SaveSubmission(o.db, s.InterviewID, &s.Sandbox.Submissions[i]); err != nil {
			o.logger.Warn("failed to persist submission for interview %d: %v", s.InterviewID, err)
		}
	}

	if s.Feedback != nil {
		if err := persistence.UpdateInterviewStatus(o.db, s.InterviewID, persistence.StatusCompleted); err != nil {
			o.logger.Warn("failed to mark interview %d completed: %v", s.InterviewID, err)
		}
	}
}
