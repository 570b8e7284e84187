// Package recordings manages the on-disk home of finalized WAV
// artifacts: naming, listing, and explicit cleanup. The recording
// pipeline itself never deletes files.
package recordings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

const (
	tempPrefix = "RecordTemp_"
	nameFormat = "recording_20060102_150405"
)

// Metadata describes one stored recording.
type Metadata struct {
	Name     string
	Path     string
	Size     int64
	Duration time.Duration
	ModTime  time.Time
}

// Store is a recordings directory. Files are written user-only: the
// directory is 0700 and artifacts 0600.
type Store struct {
	dir string
}

// Open ensures the directory exists and returns the store. An empty
// dir defaults to ~/Recordings.
func Open(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home dir: %w", err)
		}
		dir = filepath.Join(home, "Recordings")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating recordings dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// TempPath returns a fresh path for an in-progress artifact. The
// uuid suffix keeps concurrent or crashed runs from colliding.
func (s *Store) TempPath() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	return filepath.Join(s.dir, tempPrefix+id+".wav")
}

// Promote renames a finalized temp artifact to its permanent
// timestamped name and returns the new path.
func (s *Store) Promote(tempPath string) (string, error) {
	base := time.Now().Format(nameFormat)
	final := filepath.Join(s.dir, base+".wav")
	// Two recordings within one second get a disambiguating suffix.
	if _, err := os.Stat(final); err == nil {
		final = filepath.Join(s.dir, base+"_"+uuid.New().String()[:8]+".wav")
	}
	if err := os.Rename(tempPath, final); err != nil {
		return "", fmt.Errorf("promoting artifact: %w", err)
	}
	return final, nil
}

// List returns stored recordings, newest first. Temp files are
// excluded.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading recordings dir: %w", err)
	}

	var out []Metadata
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".wav") || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(s.dir, name)
		out = append(out, Metadata{
			Name:     name,
			Path:     path,
			Size:     info.Size(),
			Duration: wavDuration(path),
			ModTime:  info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.After(out[j].ModTime) })
	return out, nil
}

// CleanupOlderThan removes recordings whose modification time is
// older than age and reports how many were deleted. This is the only
// way recordings are ever removed.
func (s *Store) CleanupOlderThan(age time.Duration) (int, error) {
	items, err := s.List()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-age)
	removed := 0
	for _, m := range items {
		if m.ModTime.Before(cutoff) {
			if err := os.Remove(m.Path); err != nil {
				return removed, fmt.Errorf("removing %s: %w", m.Name, err)
			}
			removed++
		}
	}
	return removed, nil
}

// CleanupTemp removes leftover temp files from crashed runs.
func (s *Store) CleanupTemp() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, tempPrefix+"*"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func wavDuration(path string) time.Duration {
	file, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer file.Close()
	d, err := wav.NewDecoder(file).Duration()
	if err != nil {
		return 0
	}
	return d
}
