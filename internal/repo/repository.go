package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/cloudpulse/internal/domain"
)

// DefaultCap bounds the number of incidents any store retains.
const DefaultCap = 200

// ErrPersistence marks failures to read or write durable incident storage.
var ErrPersistence = errors.New("incident persistence failure")

// IncidentStore is a bounded newest-first incident log.
//
// Append inserts at the head and drops entries beyond the cap.
// List returns up to limit newest entries (limit <= 0 means all).
// Latest returns domain.OKIncident() when the store is empty.
type IncidentStore interface {
	Append(ctx context.Context, inc domain.Incident) error
	List(ctx context.Context, limit int) ([]domain.Incident, error)
	Latest(ctx context.Context) (domain.Incident, error)
}

// Prepend returns a new slice with inc at the head, truncated to max entries.
// The input slice is not modified.
func Prepend(list []domain.Incident, inc domain.Incident, max int) []domain.Incident {
	if max <= 0 {
		max = DefaultCap
	}
	n := len(list) + 1
	if n > max {
		n = max
	}
	out := make([]domain.Incident, n)
	out[0] = inc
	copy(out[1:], list)
	return out
}

// Head copies at most limit entries from the front of list.
func Head(list []domain.Incident, limit int) []domain.Incident {
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]domain.Incident, limit)
	copy(out, list[:limit])
	return out
}
