package persistence

import (
	"errors"
	"time"
)

// Interview statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// Sentinel errors for record lookups.
var (
	ErrInterviewNotFound  = errors.New("interview not found")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// Interview is a row in the interviews table.
type Interview struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Status         string    `json:"status"`
	ResumeJSON     string    `json:"resume_json"`
	JobDescription string    `json:"job_description"`
	TurnCount      int       `json:"turn_count"`
	FeedbackJSON   *string   `json:"feedback_json,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CheckpointRecord is a row in the checkpoints table. StateSnapshot holds
// the serialized interview state.
type CheckpointRecord struct {
	CheckpointID  string    `json:"checkpoint_id"`
	InterviewID   int64     `json:"interview_id"`
	LastNode      string    `json:"last_node"`
	Phase         string    `json:"phase"`
	StateSnapshot string    `json:"state_snapshot"`
	CreatedAt     time.Time `json:"created_at"`
}

// SubmissionRecord is a row in the code_submissions table.
type SubmissionRecord struct {
	ID            int64     `json:"id"`
	InterviewID   int64     `json:"interview_id"`
	Code          string    `json:"code"`
	Language      string    `json:"language"`
	ExecutionJSON string    `json:"execution_json"`
	QualityJSON   string    `json:"quality_json"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}
