// Package prefs persists small per-user viewer preferences.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Prefs are the persisted preferences.
type Prefs struct {
	SkipOnboarding bool `yaml:"skip_onboarding"`
}

// Store reads and writes Prefs in a YAML file. A Store with an empty path keeps
// preferences in memory only.
type Store struct {
	path string

	mu  sync.Mutex
	cur Prefs
}

// Open loads path if it exists. A missing file yields zero Prefs.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prefs: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &s.cur); err != nil {
		return nil, fmt.Errorf("prefs: parse %s: %w", path, err)
	}
	return s, nil
}

// Get returns a copy of the current preferences.
func (s *Store) Get() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// SkipOnboarding reports the onboarding preference.
func (s *Store) SkipOnboarding() bool { return s.Get().SkipOnboarding }

// SetSkipOnboarding records the onboarding preference and saves it.
func (s *Store) SetSkipOnboarding(skip bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.SkipOnboarding = skip
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	b, err := yaml.Marshal(s.cur)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("prefs: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}
