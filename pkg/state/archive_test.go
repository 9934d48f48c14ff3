package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveSaveAndLoad(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}

	s := New(9, 3, ResumeContext{Profile: "test"}, "")
	s.TopicsCovered.Add("graphs")
	s.ConversationHistory = append(s.ConversationHistory, Message{Role: RoleAssistant, Content: "hello"})

	if err := archive.Save(&s); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := archive.Load(9)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.InterviewID != 9 || loaded.UserID != 3 {
		t.Errorf("Identity lost: %d/%d", loaded.InterviewID, loaded.UserID)
	}
	if !loaded.TopicsCovered.Has("graphs") {
		t.Error("Topics set lost through archive round trip")
	}
	if len(loaded.ConversationHistory) != 1 {
		t.Errorf("History lost: %d entries", len(loaded.ConversationHistory))
	}
}

func TestArchiveRejectsMismatchedID(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewArchive(dir)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}

	s := New(5, 1, ResumeContext{}, "")
	if err := archive.Save(&s); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	// Rename the file so the requested id disagrees with the content.
	if err := os.Rename(filepath.Join(dir, "interview-5.json"), filepath.Join(dir, "interview-7.json")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if _, err := archive.Load(7); err == nil {
		t.Error("Expected mismatch error, got nil")
	}
}

func TestArchiveList(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}

	for _, id := range []int64{3, 1, 2} {
		s := New(id, 1, ResumeContext{}, "")
		if err := archive.Save(&s); err != nil {
			t.Fatalf("Failed to save %d: %v", id, err)
		}
	}

	ids, err := archive.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("Expected sorted ids [1 2 3], got %v", ids)
	}
}

func TestArchiveRejectsZeroID(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	s := InterviewState{}
	if err := archive.Save(&s); err == nil {
		t.Error("Expected error archiving state without id")
	}
}
