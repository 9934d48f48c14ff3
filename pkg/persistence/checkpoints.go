package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"interviewer/pkg/state"
)

// newCheckpointID builds a time-ordered checkpoint id. The uuid suffix keeps
// ids unique when two checkpoints land in the same second.
func newCheckpointID(interviewID int64) string {
	return fmt.Sprintf("ckpt-%d-%s-%s",
		interviewID,
		time.Now().UTC().Format("20060102T150405"),
		uuid.NewString()[:8])
}

// SaveCheckpoint serializes the full interview state into the checkpoints
// table and returns the new checkpoint id. The snapshot is written with the
// id already appended to Checkpoints so a restore sees its own lineage.
func SaveCheckpoint(db *sql.DB, s *state.InterviewState) (string, error) {
	if s == nil {
		return "", fmt.Errorf("cannot checkpoint nil state")
	}

	checkpointID := newCheckpointID(s.InterviewID)

	snapshot := s.Clone()
	snapshot.Checkpoints = append(snapshot.Checkpoints, checkpointID)

	data, err := json.Marshal(&snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to serialize checkpoint for interview %d: %w", s.InterviewID, err)
	}

	_, err = db.Exec(`
		INSERT INTO checkpoints (checkpoint_id, interview_id, last_node, phase, state_snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, checkpointID, s.InterviewID, string(s.LastNode), string(s.Phase), string(data), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to save checkpoint for interview %d: %w", s.InterviewID, err)
	}

	return checkpointID, nil
}

// RestoreCheckpoint loads the most recent valid checkpoint for an interview.
// Returns ErrCheckpointNotFound when no checkpoint exists or the latest
// snapshot is unusable. Snapshots whose embedded interview id disagrees with
// the row they were stored under are treated as absent, not repaired.
func RestoreCheckpoint(db *sql.DB, interviewID int64) (*state.InterviewState, error) {
	row := db.QueryRow(`
		SELECT checkpoint_id, state_snapshot
		FROM checkpoints
		WHERE interview_id = ?
		ORDER BY created_at DESC, checkpoint_id DESC
		LIMIT 1
	`, interviewID)

	var checkpointID, snapshot string
	err := row.Scan(&checkpointID, &snapshot)
	if err == sql.ErrNoRows {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for interview %d: %w", interviewID, err)
	}

	var restored state.InterviewState
	if err := json.Unmarshal([]byte(snapshot), &restored); err != nil {
		return nil, fmt.Errorf("checkpoint %s is corrupt: %w: %w", checkpointID, err, ErrCheckpointNotFound)
	}

	if restored.InterviewID != interviewID {
		return nil, fmt.Errorf("checkpoint %s belongs to interview %d, not %d: %w",
			checkpointID, restored.InterviewID, interviewID, ErrCheckpointNotFound)
	}

	sanitizeHistory(&restored)
	state.Initialize(&restored)

	return &restored, nil
}

// ListCheckpoints returns checkpoint metadata for an interview, newest first.
// Snapshots are omitted; use RestoreCheckpoint to rehydrate state.
func ListCheckpoints(db *sql.DB, interviewID int64) ([]*CheckpointRecord, error) {
	rows, err := db.Query(`
		SELECT checkpoint_id, interview_id, last_node, phase, created_at
		FROM checkpoints
		WHERE interview_id = ?
		ORDER BY created_at DESC, checkpoint_id DESC
	`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for interview %d: %w", interviewID, err)
	}
	defer rows.Close()

	var records []*CheckpointRecord
	for rows.Next() {
		var rec CheckpointRecord
		err := rows.Scan(&rec.CheckpointID, &rec.InterviewID, &rec.LastNode, &rec.Phase, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// PruneCheckpoints deletes all but the newest keep checkpoints for an
// interview. Called after finalization to bound storage growth.
func PruneCheckpoints(db *sql.DB, interviewID int64, keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := db.Exec(`
		DELETE FROM checkpoints
		WHERE interview_id = ?
		  AND checkpoint_id NOT IN (
			SELECT checkpoint_id FROM checkpoints
			WHERE interview_id = ?
			ORDER BY created_at DESC, checkpoint_id DESC
			LIMIT ?
		  )
	`, interviewID, interviewID, keep)
	if err != nil {
		return fmt.Errorf("failed to prune checkpoints for interview %d: %w", interviewID, err)
	}
	return nil
}

// sanitizeHistory drops messages that cannot belong to this session: entries
// tagged with a foreign interview id and entries timestamped before the
// session was created. Messages without a tag or timestamp are kept.
func sanitizeHistory(s *state.InterviewState) {
	filtered := s.ConversationHistory[:0]
	for i := range s.ConversationHistory {
		msg := s.ConversationHistory[i]
		if tag := msg.InterviewIDTag(); tag != 0 && tag != s.InterviewID {
			continue
		}
		if !msg.Timestamp.IsZero() && !s.CreatedAt.IsZero() && msg.Timestamp.Before(s.CreatedAt) {
			continue
		}
		filtered = append(filtered, msg)
	}
	s.ConversationHistory = filtered
}
