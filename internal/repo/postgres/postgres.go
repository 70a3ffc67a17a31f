package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/cloudpulse/internal/domain"
	"github.com/hamed0406/cloudpulse/internal/repo"
)

var _ repo.IncidentStore = (*Store)(nil)

// Schema is applied by EnsureSchema. ts is kept for ad-hoc queries; ts_ns
// holds the exact timestamp (TIMESTAMPTZ stops at microseconds) and drives
// ordering. seq breaks ties so newest-first matches insertion order.
const Schema = `
CREATE TABLE IF NOT EXISTS incidents (
  seq     BIGSERIAL PRIMARY KEY,
  id      TEXT NOT NULL UNIQUE,
  ts      TIMESTAMPTZ NULL,
  kind    TEXT NOT NULL,
  details JSONB NOT NULL
);

ALTER TABLE incidents ADD COLUMN IF NOT EXISTS ts_ns BIGINT NULL;
DROP INDEX IF EXISTS idx_incidents_ts;
CREATE INDEX IF NOT EXISTS idx_incidents_ts_ns ON incidents (ts_ns DESC, seq DESC);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	max  int
	mu   sync.RWMutex
}

func New(ctx context.Context, dsn string, max int, log *zap.Logger) (*Store, error) {
	if max <= 0 {
		max = repo.DefaultCap
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: pgxpool.New: %w", repo.ErrPersistence, err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", repo.ErrPersistence, err)
	}
	return &Store{pool: pool, log: log, max: max}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: apply schema: %w", repo.ErrPersistence, err)
	}
	return nil
}

// Append inserts inc and trims the table to the cap in one transaction, so
// concurrent readers see either the old or the new sequence.
func (s *Store) Append(ctx context.Context, inc domain.Incident) error {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	details, err := json.Marshal(inc.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO incidents (id, ts, ts_ns, kind, details)
			 VALUES ($1, $2, $3, $4, $5)`,
			inc.ID, nullTime(inc.Timestamp), unixNano(inc.Timestamp), string(inc.Kind), details,
		); err != nil {
			return fmt.Errorf("insert incident: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM incidents
			  WHERE seq NOT IN (
			    SELECT seq FROM incidents ORDER BY ts_ns DESC NULLS LAST, seq DESC LIMIT $1
			  )`, s.max,
		); err != nil {
			return fmt.Errorf("trim incidents: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", repo.ErrPersistence, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, limit int) ([]domain.Incident, error) {
	if limit <= 0 || limit > s.max {
		limit = s.max
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.pool.Query(ctx,
		`SELECT id, ts, ts_ns, kind, details
		   FROM incidents
		  ORDER BY ts_ns DESC NULLS LAST, seq DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list incidents: %w", repo.ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]domain.Incident, 0, limit)
	for rows.Next() {
		var (
			id      string
			ts      *time.Time
			tsNS    *int64
			kind    string
			details []byte
		)
		if err := rows.Scan(&id, &ts, &tsNS, &kind, &details); err != nil {
			return nil, fmt.Errorf("%w: scan incident: %w", repo.ErrPersistence, err)
		}
		inc := domain.Incident{ID: id, Kind: domain.Kind(kind), Timestamp: fromStored(tsNS, ts)}
		if err := json.Unmarshal(details, &inc.Details); err != nil {
			return nil, fmt.Errorf("%w: decode details %s: %w", repo.ErrPersistence, id, err)
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", repo.ErrPersistence, err)
	}
	return out, nil
}

func (s *Store) Latest(ctx context.Context) (domain.Incident, error) {
	list, err := s.List(ctx, 1)
	if err != nil {
		return domain.Incident{}, err
	}
	if len(list) == 0 {
		return domain.OKIncident(), nil
	}
	return list[0], nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func unixNano(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ns := t.UnixNano()
	return &ns
}

// fromStored prefers the exact ts_ns value. Rows written before the column
// existed only have the microsecond ts.
func fromStored(ns *int64, ts *time.Time) time.Time {
	switch {
	case ns != nil:
		return time.Unix(0, *ns).UTC()
	case ts != nil:
		return ts.UTC()
	default:
		return time.Time{}
	}
}
