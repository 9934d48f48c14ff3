package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"interviewer/pkg/state"
)

// CreateInterview inserts a new interview row and returns its ID.
func CreateInterview(db *sql.DB, userID int64, resume *state.ResumeContext, jobDescription string) (int64, error) {
	resumeJSON := "{}"
	if resume != nil {
		data, err := json.Marshal(resume)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize resume: %w", err)
		}
		resumeJSON = string(data)
	}

	result, err := db.Exec(`
		INSERT INTO interviews (user_id, status, resume_json, job_description)
		VALUES (?, ?, ?, ?)
	`, userID, StatusPending, resumeJSON, jobDescription)
	if err != nil {
		return 0, fmt.Errorf("failed to create interview: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get interview id: %w", err)
	}
	return id, nil
}

// GetInterview loads a single interview row.
func GetInterview(db *sql.DB, interviewID int64) (*Interview, error) {
	row := db.QueryRow(`
		SELECT id, user_id, status, resume_json, job_description,
		       turn_count, feedback_json, created_at, updated_at
		FROM interviews WHERE id = ?
	`, interviewID)

	var iv Interview
	err := row.Scan(&iv.ID, &iv.UserID, &iv.Status, &iv.ResumeJSON,
		&iv.JobDescription, &iv.TurnCount, &iv.FeedbackJSON,
		&iv.CreatedAt, &iv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInterviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load interview %d: %w", interviewID, err)
	}
	return &iv, nil
}

// UpdateInterviewStatus transitions an interview to a new status.
func UpdateInterviewStatus(db *sql.DB, interviewID int64, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid interview status %q", status)
	}
	result, err := db.Exec(`
		UPDATE interviews SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), interviewID)
	if err != nil {
		return fmt.Errorf("failed to update interview status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update: %w", err)
	}
	if rows == 0 {
		return ErrInterviewNotFound
	}
	return nil
}

// UpdateInterviewProgress records the current turn count and, once the
// evaluation node has produced it, the final feedback.
func UpdateInterviewProgress(db *sql.DB, interviewID int64, turnCount int, feedback *state.Feedback) error {
	var feedbackJSON *string
	if feedback != nil {
		data, err := json.Marshal(feedback)
		if err != nil {
			return fmt.Errorf("failed to serialize feedback: %w", err)
		}
		s := string(data)
		feedbackJSON = &s
	}

	result, err := db.Exec(`
		UPDATE interviews
		SET turn_count = ?, feedback_json = COALESCE(?, feedback_json), updated_at = ?
		WHERE id = ?
	`, turnCount, feedbackJSON, time.Now().UTC(), interviewID)
	if err != nil {
		return fmt.Errorf("failed to update interview progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check progress update: %w", err)
	}
	if rows == 0 {
		return ErrInterviewNotFound
	}
	return nil
}

// ListInterviewsByUser returns all interviews for a user, newest first.
func ListInterviewsByUser(db *sql.DB, userID int64) ([]*Interview, error) {
	rows, err := db.Query(`
		SELECT id, user_id, status, resume_json, job_description,
		       turn_count, feedback_json, created_at, updated_at
		FROM interviews WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews for user %d: %w", userID, err)
	}
	defer rows.Close()

	var interviews []*Interview
	for rows.Next() {
		var iv Interview
		err := rows.Scan(&iv.ID, &iv.UserID, &iv.Status, &iv.ResumeJSON,
			&iv.JobDescription, &iv.TurnCount, &iv.FeedbackJSON,
			&iv.CreatedAt, &iv.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview row: %w", err)
		}
		interviews = append(interviews, &iv)
	}
	return interviews, rows.Err()
}
