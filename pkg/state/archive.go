package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Archive writes finished interview snapshots to a directory as formatted
// JSON, one file per interview. It backs analytics and offline review; live
// durability belongs to the checkpoint store.
type Archive struct {
	baseDir string
}

// NewArchive creates an archive rooted at baseDir, creating it if needed.
func NewArchive(baseDir string) (*Archive, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", baseDir, err)
	}
	return &Archive{baseDir: baseDir}, nil
}

type archivedInterview struct {
	ArchivedAt time.Time      `json:"archived_at"`
	State      InterviewState `json:"state"`
}

// Save writes the final snapshot for an interview. An existing archive file
// for the same interview is replaced; the write is atomic.
func (a *Archive) Save(s *InterviewState) error {
	if s == nil || s.InterviewID == 0 {
		return fmt.Errorf("cannot archive a state without an interview id")
	}

	record := archivedInterview{
		ArchivedAt: time.Now().UTC(),
		State:      s.Clone(),
	}
	data, err := json.MarshalIndent(&record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize interview %d for archive: %w", s.InterviewID, err)
	}

	path := a.path(s.InterviewID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize archive file: %w", err)
	}
	return nil
}

// Load reads an archived interview snapshot. The stored interview id must
// match the requested one; a mismatch is reported as corruption.
func (a *Archive) Load(interviewID int64) (*InterviewState, error) {
	data, err := os.ReadFile(a.path(interviewID))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive for interview %d: %w", interviewID, err)
	}

	var record archivedInterview
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse archive for interview %d: %w", interviewID, err)
	}
	if record.State.InterviewID != interviewID {
		return nil, fmt.Errorf("archive for interview %d contains interview %d", interviewID, record.State.InterviewID)
	}

	Initialize(&record.State)
	return &record.State, nil
}

// List returns the interview ids present in the archive, ascending.
func (a *Archive) List() ([]int64, error) {
	entries, err := os.ReadDir(a.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var ids []int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(name, "interview-%d.json", &id); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (a *Archive) path(interviewID int64) string {
	return filepath.Join(a.baseDir, fmt.Sprintf("interview-%d.json", interviewID))
}
