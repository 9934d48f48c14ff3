package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"interviewer/pkg/state"
)

// SaveSubmission records a code submission with its execution and review
// results. Duplicate code text for the same interview is skipped; the id of
// the existing row is returned instead.
func SaveSubmission(db *sql.DB, interviewID int64, sub *state.Submission) (int64, error) {
	var existingID int64
	err := db.QueryRow(`
		SELECT id FROM code_submissions WHERE interview_id = ? AND code = ?
	`, interviewID, sub.Code).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to check for duplicate submission: %w", err)
	}

	execJSON, err := json.Marshal(sub.Execution)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize execution result: %w", err)
	}
	qualityJSON, err := json.Marshal(sub.Quality)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize quality scores: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO code_submissions (interview_id, code, language, execution_json, quality_json, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, interviewID, sub.Code, sub.Language, string(execJSON), string(qualityJSON), sub.SubmittedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to save submission for interview %d: %w", interviewID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get submission id: %w", err)
	}
	return id, nil
}

// ListSubmissions returns all submissions for an interview in submission
// order.
func ListSubmissions(db *sql.DB, interviewID int64) ([]*SubmissionRecord, error) {
	rows, err := db.Query(`
		SELECT id, interview_id, code, language, execution_json, quality_json, submitted_at
		FROM code_submissions
		WHERE interview_id = ?
		ORDER BY submitted_at ASC, id ASC
	`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for interview %d: %w", interviewID, err)
	}
	defer rows.Close()

	var records []*SubmissionRecord
	for rows.Next() {
		var rec SubmissionRecord
		err := rows.Scan(&rec.ID, &rec.InterviewID, &rec.Code, &rec.Language,
			&rec.ExecutionJSON, &rec.QualityJSON, &rec.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
