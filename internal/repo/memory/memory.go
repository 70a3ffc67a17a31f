package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/cloudpulse/internal/domain"
	"github.com/hamed0406/cloudpulse/internal/repo"
)

// Store keeps incidents in process memory only.
type Store struct {
	mu        sync.RWMutex
	max       int
	incidents []domain.Incident
}

// New returns an empty store bounded to max entries (repo.DefaultCap when max <= 0).
func New(max int) *Store {
	if max <= 0 {
		max = repo.DefaultCap
	}
	return &Store{max: max, incidents: make([]domain.Incident, 0, 16)}
}

// Seed returns a store preloaded with incidents, assumed newest-first.
func Seed(max int, incidents []domain.Incident) *Store {
	s := New(max)
	s.incidents = repo.Head(incidents, s.max)
	return s
}

func (m *Store) Append(ctx context.Context, inc domain.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents = repo.Prepend(m.incidents, inc, m.max)
	return nil
}

func (m *Store) List(ctx context.Context, limit int) ([]domain.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return repo.Head(m.incidents, limit), nil
}

func (m *Store) Latest(ctx context.Context) (domain.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.incidents) == 0 {
		return domain.OKIncident(), nil
	}
	return m.incidents[0], nil
}
