// Package file persists the incident log as a JSON document on local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hamed0406/cloudpulse/internal/domain"
	"github.com/hamed0406/cloudpulse/internal/repo"
)

// Store keeps the full incident sequence in memory and rewrites the file on
// every append. The in-memory sequence is authoritative: if a write fails the
// append still takes effect in memory and the error is returned to the caller.
type Store struct {
	mu        sync.RWMutex
	path      string
	max       int
	incidents []domain.Incident
}

// Open loads path if it exists. A missing or empty file is an empty log; an
// unreadable or malformed file fails with repo.ErrPersistence.
func Open(path string, max int) (*Store, error) {
	if max <= 0 {
		max = repo.DefaultCap
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: ensure incident directory: %w", repo.ErrPersistence, err)
	}
	s := &Store{path: path, max: max}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Append(ctx context.Context, inc domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.incidents = repo.Prepend(s.incidents, inc, s.max)
	if err := s.persist(); err != nil {
		return fmt.Errorf("%w: %w", repo.ErrPersistence, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, limit int) ([]domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repo.Head(s.incidents, limit), nil
}

func (s *Store) Latest(ctx context.Context) (domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.incidents) == 0 {
		return domain.OKIncident(), nil
	}
	return s.incidents[0], nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.incidents = []domain.Incident{}
			return nil
		}
		return fmt.Errorf("%w: read incidents: %w", repo.ErrPersistence, err)
	}
	if len(data) == 0 {
		s.incidents = []domain.Incident{}
		return nil
	}

	var entries []domain.Incident
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: parse incidents: %w", repo.ErrPersistence, err)
	}
	s.incidents = repo.Head(entries, s.max)
	return nil
}

// persist writes to a temp file in the same directory and renames it over the
// target so a crash never leaves a half-written log.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.incidents, "", "  ")
	if err != nil {
		return fmt.Errorf("encode incidents: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp incidents: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp incidents: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp incidents: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace incidents file: %w", err)
	}
	return nil
}
