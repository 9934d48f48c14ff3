package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/pkg/state"
)

func TestCreateAndGetInterview(t *testing.T) {
	db := testDB(t)

	resume := &state.ResumeContext{Skills: "Go, Postgres", Experience: "5 years backend"}
	id, err := CreateInterview(db, 42, resume, "Senior backend engineer")
	require.NoError(t, err)
	require.NotZero(t, id)

	interview, err := GetInterview(db, id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), interview.UserID)
	assert.Equal(t, StatusPending, interview.Status)
	assert.Equal(t, "Senior backend engineer", interview.JobDescription)
	assert.Contains(t, interview.ResumeJSON, "Postgres")
	assert.Nil(t, interview.FeedbackJSON)
}

func TestGetInterviewNotFound(t *testing.T) {
	db := testDB(t)

	_, err := GetInterview(db, 12345)
	assert.ErrorIs(t, err, ErrInterviewNotFound)
}

func TestUpdateInterviewStatus(t *testing.T) {
	db := testDB(t)
	id := createTestInterview(t, db, 1)

	require.NoError(t, UpdateInterviewStatus(db, id, StatusInProgress))

	interview, err := GetInterview(db, id)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, interview.Status)

	err = UpdateInterviewStatus(db, id, "nonsense")
	assert.Error(t, err)

	err = UpdateInterviewStatus(db, 99999, StatusCompleted)
	assert.ErrorIs(t, err, ErrInterviewNotFound)
}

func TestUpdateInterviewProgress(t *testing.T) {
	db := testDB(t)
	id := createTestInterview(t, db, 1)

	// Progress without feedback leaves feedback_json untouched.
	require.NoError(t, UpdateInterviewProgress(db, id, 3, nil))
	interview, err := GetInterview(db, id)
	require.NoError(t, err)
	assert.Equal(t, 3, interview.TurnCount)
	assert.Nil(t, interview.FeedbackJSON)

	fb := &state.Feedback{OverallScore: 0.72, Narrative: "solid fundamentals"}
	require.NoError(t, UpdateInterviewProgress(db, id, 9, fb))

	interview, err = GetInterview(db, id)
	require.NoError(t, err)
	assert.Equal(t, 9, interview.TurnCount)
	require.NotNil(t, interview.FeedbackJSON)
	assert.Contains(t, *interview.FeedbackJSON, "solid fundamentals")
}

func TestListInterviewsByUser(t *testing.T) {
	db := testDB(t)
	createTestInterview(t, db, 7)
	createTestInterview(t, db, 7)
	createTestInterview(t, db, 8)

	mine, err := ListInterviewsByUser(db, 7)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	other, err := ListInterviewsByUser(db, 9)
	require.NoError(t, err)
	assert.Empty(t, other)
}
