// Package interview contains the turn engine: the per-turn state machine
// that wires input ingestion, intent detection, policy routing, the action
// handlers, and finalization into one deterministic pass.
package interview

import (
	"interviewer/pkg/state"
)

// TransitionTable represents valid node transitions within one turn.
type TransitionTable map[state.Node][]state.Node

// ValidTransitions is the fixed turn topology. Every action node funnels
// into finalize_turn; finalize_turn is terminal.
//
//nolint:gochecknoglobals // Shared immutable transition table
var ValidTransitions = TransitionTable{
	state.NodeIngestInput: {
		state.NodeGreeting,
		state.NodeCodeReview,
		state.NodeDetectIntent,
	},
	state.NodeDetectIntent: {
		state.NodeDecideNextAction,
	},
	state.NodeDecideNextAction: state.ActionNodes(),

	state.NodeGreeting:        {state.NodeFinalizeTurn},
	state.NodeQuestion:        {state.NodeFinalizeTurn},
	state.NodeFollowup:        {state.NodeFinalizeTurn},
	state.NodeSandboxGuidance: {state.NodeFinalizeTurn},
	state.NodeCodeReview:      {state.NodeFinalizeTurn},
	state.NodeEvaluation:      {state.NodeFinalizeTurn},
	state.NodeClosing:         {state.NodeFinalizeTurn},

	state.NodeFinalizeTurn: {},
}

// IsValidTransition checks whether moving from one node to another is
// permitted by the turn topology.
func (t TransitionTable) IsValidTransition(from, to state.Node) bool {
	allowed, exists := t[from]
	if !exists {
		return false
	}
	for _, node := range allowed {
		if node == to {
			return true
		}
	}
	return false
}

// Route resolves the policy's chosen node into a routable action node. It
// is a total function: unknown, missing, or non-action values resolve to
// question rather than failing the turn.
func Route(chosen state.Node) state.Node {
	if state.IsActionNode(chosen) {
		return chosen
	}
	return state.NodeQuestion
}
