package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"interviewer/pkg/state"
)

func TestTransitionTable(t *testing.T) {
	// every action node funnels into finalize_turn
	for _, node := range state.ActionNodes() {
		assert.True(t, ValidTransitions.IsValidTransition(node, state.NodeFinalizeTurn), "%s -> finalize_turn", node)
		assert.True(t, ValidTransitions.IsValidTransition(state.NodeDecideNextAction, node), "decide_next_action -> %s", node)
	}

	assert.True(t, ValidTransitions.IsValidTransition(state.NodeIngestInput, state.NodeGreeting))
	assert.True(t, ValidTransitions.IsValidTransition(state.NodeIngestInput, state.NodeCodeReview))
	assert.True(t, ValidTransitions.IsValidTransition(state.NodeIngestInput, state.NodeDetectIntent))
	assert.True(t, ValidTransitions.IsValidTransition(state.NodeDetectIntent, state.NodeDecideNextAction))

	// finalize_turn is terminal
	assert.False(t, ValidTransitions.IsValidTransition(state.NodeFinalizeTurn, state.NodeIngestInput))
	assert.False(t, ValidTransitions.IsValidTransition(state.NodeIngestInput, state.NodeEvaluation))
	assert.False(t, ValidTransitions.IsValidTransition(state.NodeQuestion, state.NodeFollowup))
	assert.False(t, ValidTransitions.IsValidTransition(state.Node("bogus"), state.NodeQuestion))
}

func TestRouteIsTotal(t *testing.T) {
	for _, node := range state.ActionNodes() {
		assert.Equal(t, node, Route(node))
	}

	assert.Equal(t, state.NodeQuestion, Route(""))
	assert.Equal(t, state.NodeQuestion, Route("wrap_up"))
	assert.Equal(t, state.NodeQuestion, Route(state.NodeDetectIntent))
	assert.Equal(t, state.NodeQuestion, Route(state.NodeFinalizeTurn))
}
