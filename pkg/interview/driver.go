package interview

import (
	"context"
	"errors"
	"strconv"
	"time"

	"interviewer/pkg/config"
	"interviewer/pkg/contextmgr"
	"interviewer/pkg/exec"
	"interviewer/pkg/intent"
	"interviewer/pkg/llm"
	"interviewer/pkg/logx"
	"interviewer/pkg/metrics"
	"interviewer/pkg/state"
	"interviewer/pkg/utils"
)

var (
	errEmptyExercise = errors.New("generated exercise has no description")
	errEmptyReview   = errors.New("generated review has no feedback text")
)

// Driver executes one interview turn at a time. It owns no cross-session
// state: every RunTurn call threads its InterviewState value through the
// node pipeline and returns the merged result, so concurrent sessions never
// share mutable data.
type Driver struct {
	conversationClient llm.Client
	analysisClient     llm.Client
	detector           *intent.Detector
	runner             *exec.Runner
	summarizer         *contextmgr.Summarizer
	recorder           metrics.Recorder
	logger             *logx.Logger
	pacing             config.InterviewConfig
	personas           []config.Persona
	table              TransitionTable
}

// DriverOptions configures a Driver. ConversationClient is required;
// AnalysisClient defaults to it. Runner and Recorder are optional.
type DriverOptions struct {
	ConversationClient llm.Client
	AnalysisClient     llm.Client
	Runner             *exec.Runner
	Recorder           metrics.Recorder
	Pacing             config.InterviewConfig
	Personas           []config.Persona
}

// NewDriver creates a turn engine driver.
func NewDriver(opts DriverOptions) *Driver {
	logger := logx.NewLogger("turn-engine")

	analysis := opts.AnalysisClient
	if analysis == nil {
		analysis = opts.ConversationClient
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.Nop()
	}
	pacing := opts.Pacing
	if pacing.SummaryInterval <= 0 {
		pacing.SummaryInterval = 5
	}
	if pacing.SummaryHistoryThreshold <= 0 {
		pacing.SummaryHistoryThreshold = 30
	}

	counter, err := utils.NewTokenCounter(opts.ConversationClient.GetModelName())
	if err != nil {
		logger.Warn("tokenizer unavailable, using character estimation: %v", err)
		counter = nil
	}
	conversation := llm.NewMeteredClient(opts.ConversationClient, recorder, counter)
	metered := llm.NewMeteredClient(analysis, recorder, counter)

	return &Driver{
		conversationClient: conversation,
		analysisClient:     metered,
		detector:           intent.NewDetector(metered),
		runner:             opts.Runner,
		summarizer:         contextmgr.NewSummarizer(metered, counter),
		recorder:           recorder,
		logger:             logger,
		pacing:             pacing,
		personas:           opts.Personas,
		table:              ValidTransitions,
	}
}

// RunTurn executes one full pass of the node pipeline and returns the
// merged final state. The input state is never mutated. Only integrity
// violations produce errors; collaborator failures degrade inside the
// handlers.
func (d *Driver) RunTurn(ctx context.Context, s state.InterviewState) (state.InterviewState, error) {
	if s.InterviewID == 0 {
		return s, errors.New("interview state has no interview_id")
	}

	state.Initialize(&s)

	current := state.Apply(s, d.ingestInput(&s))

	var detected *state.UserIntent
	next := d.routeFromIngest(&current)

	if next == state.NodeDetectIntent {
		current, detected = d.detectIntent(ctx, current)
		next = d.decideNextAction(labelCtx(ctx, &current, state.NodeDecideNextAction), &current, detected)
	}

	if !d.table.IsValidTransition(nodeBefore(&current), next) && !state.IsActionNode(next) {
		d.logger.Warn("invalid route to %s, defaulting to question", next)
		next = state.NodeQuestion
	}

	current = d.runAction(ctx, current, next)

	current = state.Apply(current, d.finalizeTurn(ctx, &current))

	if current.InterviewID != s.InterviewID {
		return s, errors.New("turn produced state for a different interview")
	}
	return current, nil
}

// labelCtx tags ctx so metered provider clients can attribute requests to
// this interview and pipeline node.
func labelCtx(ctx context.Context, s *state.InterviewState, node state.Node) context.Context {
	return llm.WithRequestLabels(ctx, strconv.FormatInt(s.InterviewID, 10), string(node))
}

// ingestInput starts the turn: increments turn_count only when the turn
// carries a real user utterance, and clears any stale outgoing message left
// from the previous turn.
func (d *Driver) ingestInput(s *state.InterviewState) state.Patch {
	patch := state.Patch{
		LastNode:    state.NodePtr(state.NodeIngestInput),
		NextMessage: state.StrPtr(""),
	}
	if s.LastResponse != "" {
		patch.TurnCount = state.IntPtr(s.TurnCount + 1)
	}
	return patch
}

// routeFromIngest applies the fixed short-circuit rules: first-contact
// greeting, pending code straight to review, everything else through
// intent detection.
func (d *Driver) routeFromIngest(s *state.InterviewState) state.Node {
	if s.TurnCount == 0 && !s.HasAssistantMessage() {
		return state.NodeGreeting
	}
	if s.CurrentCode != "" {
		return state.NodeCodeReview
	}
	return state.NodeDetectIntent
}

// detectIntent classifies the latest utterance. Every classification is
// logged to detected_intents; only high-confidence ones become the active
// request, and the active request is cleared otherwise.
func (d *Driver) detectIntent(ctx context.Context, s state.InterviewState) (state.InterviewState, *state.UserIntent) {
	detected := d.detector.Detect(labelCtx(ctx, &s, state.NodeDetectIntent), &s)
	detected.Turn = s.TurnCount

	patch := state.Patch{
		LastNode:         state.NodePtr(state.NodeDetectIntent),
		AppendIntents:    []state.UserIntent{detected},
		SetActiveRequest: true,
	}
	if detected.Active() {
		patch.ActiveRequest = &detected
	}

	return state.Apply(s, patch), &detected
}

// runAction dispatches to the chosen handler and applies its patch. The
// transcript stays single-writer: any AppendMessages a handler smuggles
// into its patch is stripped before application.
func (d *Driver) runAction(ctx context.Context, s state.InterviewState, node state.Node) state.InterviewState {
	started := time.Now()
	ctx = labelCtx(ctx, &s, node)

	var patch state.Patch
	switch node {
	case state.NodeGreeting:
		patch = d.handleGreeting(ctx, &s)
	case state.NodeQuestion:
		patch = d.handleQuestion(ctx, &s)
	case state.NodeFollowup:
		patch = d.handleFollowup(ctx, &s)
	case state.NodeSandboxGuidance:
		patch = d.handleSandboxGuidance(ctx, &s)
	case state.NodeCodeReview:
		patch = d.handleCodeReview(ctx, &s)
	case state.NodeEvaluation:
		patch = d.handleEvaluation(ctx, &s)
	case state.NodeClosing:
		patch = d.handleClosing(ctx, &s)
	default:
		d.logger.Warn("unroutable node %s reached dispatch, using question handler", node)
		patch = d.handleQuestion(ctx, &s)
	}

	if len(patch.AppendMessages) > 0 {
		d.logger.Error("handler %s attempted to append to conversation history, stripped", node)
		patch.AppendMessages = nil
	}

	d.recorder.ObserveTurn(string(node), time.Since(started))
	return state.Apply(s, patch)
}

// finalizeTurn is the single writer of conversation_history. It appends the
// turn's user and assistant messages exactly once, guarded by a tail
// duplicate check so a replayed checkpoint cannot double-apply them, then
// clears the turn's transient fields and refreshes the rolling summary when
// due.
func (d *Driver) finalizeTurn(ctx context.Context, s *state.InterviewState) state.Patch {
	now := time.Now().UTC()
	patch := state.Patch{
		LastNode:        state.NodePtr(state.NodeFinalizeTurn),
		LastResponse:    state.StrPtr(""),
		NextNode:        state.NodePtr(""),
		CurrentCode:     state.StrPtr(""),
		CurrentLanguage: state.StrPtr(""),
	}

	var appended []state.Message
	if s.LastResponse != "" {
		msg := state.Message{
			Role:      state.RoleUser,
			Content:   s.LastResponse,
			Timestamp: now,
			Metadata:  map[string]any{"interview_id": s.InterviewID},
		}
		if !tailContains(s.ConversationHistory, appended, msg) {
			appended = append(appended, msg)
		}
	}
	if s.NextMessage != "" {
		msg := state.Message{
			Role:      state.RoleAssistant,
			Content:   s.NextMessage,
			Timestamp: now,
			Metadata:  map[string]any{"interview_id": s.InterviewID},
		}
		if !tailContains(s.ConversationHistory, appended, msg) {
			appended = append(appended, msg)
		}
	}
	patch.AppendMessages = appended

	if summary := d.maybeSummarize(labelCtx(ctx, s, state.NodeFinalizeTurn), s); summary != "" {
		patch.ConversationSummary = state.StrPtr(summary)
	}

	return patch
}

// tailContains checks the last few transcript entries, plus anything queued
// this turn, for a same-role same-content duplicate.
func tailContains(history, pending []state.Message, msg state.Message) bool {
	const window = 4

	for i := range pending {
		if pending[i].Role == msg.Role && pending[i].Content == msg.Content {
			return true
		}
	}

	start := len(history) - window
	if start < 0 {
		start = 0
	}
	for i := start; i < len(history); i++ {
		if history[i].Role == msg.Role && history[i].Content == msg.Content {
			return true
		}
	}
	return false
}

// maybeSummarize refreshes the rolling conversation summary when due.
// Failure skips the update; it never fails the turn.
func (d *Driver) maybeSummarize(ctx context.Context, s *state.InterviewState) string {
	if !contextmgr.ShouldRefresh(s, d.pacing.SummaryInterval, d.pacing.SummaryHistoryThreshold) {
		return ""
	}
	summary, err := d.summarizer.Summarize(ctx, s)
	if err != nil {
		d.logger.Debug("summary refresh failed, keeping previous summary: %v", err)
		return ""
	}
	return summary
}

// nodeBefore reports the node the pipeline is transitioning from: the
// decision step when intent detection ran, ingestion otherwise.
func nodeBefore(s *state.InterviewState) state.Node {
	if s.LastNode == state.NodeDetectIntent {
		return state.NodeDecideNextAction
	}
	return state.NodeIngestInput
}
