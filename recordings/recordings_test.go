package recordings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTempPathUnique(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	a, b := s.TempPath(), s.TempPath()
	if a == b {
		t.Errorf("TempPath returned the same path twice: %s", a)
	}
	if !strings.HasPrefix(filepath.Base(a), tempPrefix) {
		t.Errorf("temp path %s missing prefix", a)
	}
}

func TestPromoteAndList(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	temp := s.TempPath()
	if err := os.WriteFile(temp, []byte("stub"), 0600); err != nil {
		t.Fatal(err)
	}
	final, err := s.Promote(temp)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Error("temp file still present after promote")
	}
	if !strings.HasPrefix(filepath.Base(final), "recording_") {
		t.Errorf("final name %s not timestamped", final)
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("List returned %d items, want 1", len(items))
	}
	if items[0].Path != final {
		t.Errorf("listed path %s, want %s", items[0].Path, final)
	}
}

func TestPromoteCollision(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var finals []string
	for i := 0; i < 2; i++ {
		temp := s.TempPath()
		if err := os.WriteFile(temp, []byte("stub"), 0600); err != nil {
			t.Fatal(err)
		}
		final, err := s.Promote(temp)
		if err != nil {
			t.Fatalf("Promote: %v", err)
		}
		finals = append(finals, final)
	}
	if finals[0] == finals[1] {
		t.Errorf("same-second promotes collided: %s", finals[0])
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(s.TempPath(), []byte("stub"), 0600); err != nil {
		t.Fatal(err)
	}
	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("List returned %d items, want 0", len(items))
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	old := filepath.Join(dir, "recording_20200101_120000.wav")
	if err := os.WriteFile(old, []byte("stub"), 0600); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	fresh := filepath.Join(dir, "recording_20990101_120000.wav")
	if err := os.WriteFile(fresh, []byte("stub"), 0600); err != nil {
		t.Fatal(err)
	}

	removed, err := s.CleanupOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupOlderThan: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d files, want 1", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh recording was removed")
	}
}

func TestCleanupTemp(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(s.TempPath(), []byte("stub"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := s.CleanupTemp()
	if err != nil {
		t.Fatalf("CleanupTemp: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d temp files, want 3", removed)
	}
}
