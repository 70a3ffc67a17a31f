// Package status owns the state shared between the monitor loop and the HTTP
// query surface.
package status

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/hamed0406/cloudpulse/internal/domain"
	"github.com/hamed0406/cloudpulse/internal/repo"
)

// View is a consistent read of the monitor state and recent incidents.
type View struct {
	State     domain.MonitorState
	Latest    domain.Incident
	Incidents []domain.Incident
}

// Tracker guards the MonitorState and the incident store behind one lock so a
// reader sees either everything from a cycle or nothing from it.
type Tracker struct {
	mu    sync.RWMutex
	state domain.MonitorState
	store repo.IncidentStore

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

func NewTracker(url string, store repo.IncidentStore) *Tracker {
	return &Tracker{
		state: domain.InitialState(url),
		store: store,
		subs:  make(map[chan struct{}]struct{}),
	}
}

// Commit appends incidents in order and then publishes state. The state is
// published even when the store fails; store errors are returned combined.
func (t *Tracker) Commit(ctx context.Context, state domain.MonitorState, incidents ...domain.Incident) error {
	var errs error

	t.mu.Lock()
	for _, inc := range incidents {
		errs = multierr.Append(errs, t.store.Append(ctx, inc))
	}
	t.state = cloneState(state)
	t.mu.Unlock()

	t.broadcast()
	return errs
}

// State returns a copy of the current state.
func (t *Tracker) State() domain.MonitorState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneState(t.state)
}

// View reads state and up to limit incidents (all when limit <= 0) under one
// read lock. On a store error the state is still returned with the sentinel
// latest incident.
func (t *Tracker) View(ctx context.Context, limit int) (View, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v := View{
		State:     cloneState(t.state),
		Latest:    domain.OKIncident(),
		Incidents: []domain.Incident{},
	}
	list, err := t.store.List(ctx, limit)
	if err != nil {
		return v, err
	}
	v.Incidents = list
	if len(list) > 0 {
		v.Latest = list[0]
	}
	return v, nil
}

// Subscribe returns a channel that receives a signal after each commit. Only
// the newest signal is kept; slow readers never block the committer.
func (t *Tracker) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	t.subMu.Lock()
	t.subs[ch] = struct{}{}
	t.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.subMu.Lock()
			delete(t.subs, ch)
			t.subMu.Unlock()
		})
	}
}

func (t *Tracker) broadcast() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func cloneState(s domain.MonitorState) domain.MonitorState {
	if s.LastStatusCode != nil {
		v := *s.LastStatusCode
		s.LastStatusCode = &v
	}
	if s.LastSnapshot != nil {
		snap := *s.LastSnapshot
		if snap.StatusCode != nil {
			v := *snap.StatusCode
			snap.StatusCode = &v
		}
		s.LastSnapshot = &snap
	}
	if s.LastChecked != nil {
		v := *s.LastChecked
		s.LastChecked = &v
	}
	return s
}
