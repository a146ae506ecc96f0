package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
)

// Entry is the latest state of one source. Entries are immutable once stored:
// every update replaces the entry, so callers may keep and read them freely.
type Entry struct {
	SourceID string

	// Dataset is the last successfully fetched dataset, nil if none yet.
	Dataset   *types.Dataset
	UpdatedAt time.Time

	// LastError is the message of the most recent failed fetch, cleared by the
	// next successful one.
	LastError string
	FailedAt  time.Time
	Failures  int
}

// touched returns the most recent activity time of e.
func (e *Entry) touched() time.Time {
	if e.FailedAt.After(e.UpdatedAt) {
		return e.FailedAt
	}
	return e.UpdatedAt
}

// Store is a thread-safe in-memory cache of the latest dataset per source.
// A background goroutine (Run) periodically evicts entries that have not been
// touched within the configured TTL. A zero TTL disables expiry.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the configured retention.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores ds as the latest dataset of ds.SourceID and clears any recorded
// failure. Callers must not modify ds after calling Put.
func (s *Store) Put(ds *types.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ds.SourceID] = &Entry{
		SourceID:  ds.SourceID,
		Dataset:   ds,
		UpdatedAt: s.now(),
	}
}

// Fail records a failed fetch for sourceID. The previous dataset, if any,
// stays servable until it expires.
func (s *Store) Fail(sourceID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := &Entry{SourceID: sourceID}
	if prev, ok := s.data[sourceID]; ok {
		*next = *prev
	}
	next.LastError = err.Error()
	next.FailedAt = s.now()
	next.Failures++
	s.data[sourceID] = next
}

// Get returns the entry for sourceID, stale or not.
func (s *Store) Get(sourceID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[sourceID]
	return e, ok
}

// Live returns the entry for sourceID when it holds a dataset updated within
// the TTL.
func (s *Store) Live(sourceID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[sourceID]
	if !ok || !s.fresh(e) {
		return nil, false
	}
	return e, true
}

// List returns every live entry holding a dataset, sorted by source ID.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.fresh(e) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

// All returns every entry, including failure-only and stale ones, sorted by
// source ID.
func (s *Store) All() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries not touched since now minus TTL and returns how many
// were removed.
func (s *Store) Evict(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.touched().After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled. With a zero TTL it
// only waits for ctx.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale datasets", "count", n)
			}
		}
	}
}

// fresh reports whether e holds a dataset within the TTL. Callers hold s.mu.
func (s *Store) fresh(e *Entry) bool {
	if e.Dataset == nil {
		return false
	}
	if s.ttl <= 0 {
		return true
	}
	return e.UpdatedAt.After(s.now().Add(-s.ttl))
}

func sortEntries(es []*Entry) {
	sort.Slice(es, func(i, j int) bool { return es[i].SourceID < es[j].SourceID })
}
