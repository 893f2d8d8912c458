// Package store keeps finished optimisation runs in memory so the API can
// serve their results after the request that produced them has returned.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"battery-arbitrage/internal/optimizer"

	"github.com/google/uuid"
)

const (
	DefaultTTL             = time.Hour
	defaultCleanupInterval = 5 * time.Minute
)

type entry struct {
	run       *optimizer.Run
	expiresAt time.Time
}

// RunStore is an in-memory, TTL-bounded map of runs keyed by run ID.
// A nil *RunStore is valid and stores nothing.
type RunStore struct {
	mu    sync.RWMutex
	runs  map[uuid.UUID]*entry
	ttl   time.Duration
	now   func() time.Time
	limit int
}

// New creates a store. ttl <= 0 uses DefaultTTL. maxRuns <= 0 means no cap;
// otherwise the entries closest to expiry are evicted first.
func New(ttl time.Duration, maxRuns int) *RunStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RunStore{
		runs:  make(map[uuid.UUID]*entry),
		ttl:   ttl,
		now:   time.Now,
		limit: maxRuns,
	}
}

// Put stores run under run.ID, replacing any previous entry.
func (s *RunStore) Put(run *optimizer.Run) {
	if s == nil || run == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = &entry{run: run, expiresAt: s.now().Add(s.ttl)}
	if s.limit > 0 && len(s.runs) > s.limit {
		s.evictLocked(len(s.runs) - s.limit)
	}
}

// Get returns a stored run if present and not expired.
func (s *RunStore) Get(id uuid.UUID) (*optimizer.Run, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.runs[id]
	if !ok || s.now().After(e.expiresAt) {
		return nil, false
	}
	return e.run, true
}

func (s *RunStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Purge removes expired entries and returns how many were removed.
func (s *RunStore) Purge() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.runs {
		if now.After(e.expiresAt) {
			delete(s.runs, id)
			n++
		}
	}
	return n
}

// Run purges expired entries every interval until ctx is done.
func (s *RunStore) Run(ctx context.Context, interval time.Duration) {
	if s == nil {
		return
	}
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge()
		}
	}
}

func (s *RunStore) evictLocked(n int) {
	type kv struct {
		id  uuid.UUID
		exp time.Time
	}
	all := make([]kv, 0, len(s.runs))
	for id, e := range s.runs {
		all = append(all, kv{id, e.expiresAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].exp.Before(all[j].exp) })
	for _, e := range all[:n] {
		delete(s.runs, e.id)
	}
}
