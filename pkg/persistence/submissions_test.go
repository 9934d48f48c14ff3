package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/pkg/state"
)

func TestSaveSubmissionDedup(t *testing.T) {
	db := testDB(t)
	interviewID := createTestInterview(t, db, 1)

	sub := &state.Submission{
		Code:        "def find_max(xs):\n    return max(xs)",
		Language:    "python",
		Execution:   state.ExecutionResult{Success: true, ExitCode: 0, Stdout: "9"},
		Quality:     state.CodeQuality{Correctness: 0.9, QualityScore: 0.8},
		SubmittedAt: time.Now().UTC(),
	}

	first, err := SaveSubmission(db, interviewID, sub)
	require.NoError(t, err)

	// Same code again returns the existing row instead of inserting.
	second, err := SaveSubmission(db, interviewID, sub)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	records, err := ListSubmissions(db, interviewID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "python", records[0].Language)
	assert.Contains(t, records[0].ExecutionJSON, `"success":true`)
	assert.Contains(t, records[0].QualityJSON, `"correctness":0.9`)
}

func TestSubmissionsScopedByInterview(t *testing.T) {
	db := testDB(t)
	interviewA := createTestInterview(t, db, 1)
	interviewB := createTestInterview(t, db, 2)

	sub := &state.Submission{Code: "print('hi')", Language: "python", SubmittedAt: time.Now().UTC()}
	_, err := SaveSubmission(db, interviewA, sub)
	require.NoError(t, err)

	// Identical code under a different interview is a separate row.
	_, err = SaveSubmission(db, interviewB, sub)
	require.NoError(t, err)

	forA, err := ListSubmissions(db, interviewA)
	require.NoError(t, err)
	assert.Len(t, forA, 1)

	forB, err := ListSubmissions(db, interviewB)
	require.NoError(t, err)
	assert.Len(t, forB, 1)
}
