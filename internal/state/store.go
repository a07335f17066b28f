package state

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/logsift/internal/logentry"
)

// Snapshot is the latest fetched record set and its facets.
type Snapshot struct {
	Records             []logentry.Record
	Categories          []string
	Levels              []logentry.Level
	FetchedAt           time.Time
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed fetches
}

// IsStale reports whether the source has failed on several fetches in a row,
// so the records shown may be out of date.
func (s Snapshot) IsStale() bool {
	return s.ConsecutiveFailures >= 2
}

// HasData reports whether any fetch has succeeded.
func (s Snapshot) HasData() bool {
	return !s.FetchedAt.IsZero()
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored record set. When err is non-nil the previous
// records are kept and the error is recorded for display.
func (s *Store) Update(records []logentry.Record, categories []string, levels []logentry.Level, fetchedAt time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Records = slices.Clone(records)
	s.snapshot.Categories = slices.Clone(categories)
	s.snapshot.Levels = slices.Clone(levels)
	s.snapshot.FetchedAt = fetchedAt
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Records returns the stored records without copying. Callers must not
// modify the returned slice.
func (s *Store) Records() []logentry.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Records
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Records = slices.Clone(s.snapshot.Records)
	snap.Categories = slices.Clone(s.snapshot.Categories)
	snap.Levels = slices.Clone(s.snapshot.Levels)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// HasData reports whether any fetch has succeeded.
func (s *Store) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.HasData()
}

// Status returns the snapshot metadata without the record or facet slices.
func (s *Store) Status() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Records = nil
	snap.Categories = nil
	snap.Levels = nil
	return snap
}
