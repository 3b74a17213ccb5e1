// Package state remembers the last page shown for each layout between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const fileVersion = "1.0"

// Session is what is remembered about one layout.
type Session struct {
	Page      string    `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}

type storeFile struct {
	Version  string             `json:"version"`
	Sessions map[string]Session `json:"sessions"`
}

// Store persists sessions to a JSON file keyed by layout path.
type Store struct {
	path     string
	saveMu   sync.Mutex
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// DefaultPath returns the store location under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "deckr", "state.json"), nil
}

// Open loads the store at path, starting empty when the file does not exist.
func Open(path string) (*Store, error) {
	s := &Store{
		path:     path,
		sessions: make(map[string]Session),
		now:      time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse state: %w", err)
	}
	if file.Sessions != nil {
		s.sessions = file.Sessions
	}
	return nil
}

// Page returns the remembered page for layout.
func (s *Store) Page(layout string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key(layout)]
	if !ok || sess.Page == "" {
		return "", false
	}
	return sess.Page, true
}

// SetPage remembers page for layout and writes the store to disk.
func (s *Store) SetPage(layout, page string) error {
	s.mu.Lock()
	s.sessions[key(layout)] = Session{Page: page, UpdatedAt: s.now().UTC()}
	s.mu.Unlock()
	return s.save()
}

// Forget drops the session for layout.
func (s *Store) Forget(layout string) error {
	s.mu.Lock()
	delete(s.sessions, key(layout))
	s.mu.Unlock()
	return s.save()
}

// save writes the store atomically. Each save uses its own temporary file in
// the target directory, so concurrent writers never share one.
func (s *Store) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	file := storeFile{Version: fileVersion, Sessions: s.sessions}
	data, err := json.MarshalIndent(file, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set state permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func key(layout string) string {
	if abs, err := filepath.Abs(layout); err == nil {
		return abs
	}
	return layout
}
