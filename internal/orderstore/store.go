// Package orderstore remembers which order ids have already been seen for every account.
//
// The record only ever grows: an id that has been recorded for an account is never
// reported as new again for that account, across process restarts included.
package orderstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"tarjomic-watch/internal/components/telemetry"
)

const (
	report_store_load = "store.load"
	report_store_save = "store.save"
)

// ErrCorrupt is returned by backends when the persisted state cannot be read back.
var ErrCorrupt = errors.New("order state is corrupt")

// ErrNotLoaded is returned by Save when the record was never loaded successfully, saving
// it would replace history that was only unavailable.
var ErrNotLoaded = errors.New("order state was not loaded")

// Backend is durable storage for the full account -> seen ids mapping.
type Backend interface {
	// Load returns an empty mapping when nothing was saved yet. Unreadable state must be
	// reported by wrapping ErrCorrupt.
	Load(ctx context.Context) (map[string][]OrderID, error)
	// Save replaces the persisted mapping, readers never observe a partial write.
	Save(ctx context.Context, seen map[string][]OrderID) error
}

// Store is the in-memory record of seen order ids, loaded from and saved to a Backend.
type Store struct {
	backend Backend
	tel     telemetry.API

	mu     sync.Mutex
	loaded bool
	seen   map[string][]OrderID
	index  map[string]map[OrderID]struct{}
}

func NewStore(backend Backend, tel telemetry.API) *Store {
	return &Store{
		backend: backend,
		tel:     telemetry.NewScopedAPI("order_store", tel),
		seen:    map[string][]OrderID{},
		index:   map[string]map[OrderID]struct{}{},
	}
}

// Load replaces the in-memory record with the persisted one. Missing state is an empty
// record, and so is corrupt state: it is reported and then discarded.
//
// Any other failure (cancellation, a busy database) is returned and leaves the store
// unable to Save until a later Load succeeds.
func (s *Store) Load(ctx context.Context) error {
	seen, err := s.backend.Load(ctx)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		s.mu.Lock()
		s.loaded = false
		s.mu.Unlock()
		return fmt.Errorf("load order state: %w", err)
	}
	if err != nil {
		s.tel.ReportWarning(
			report_store_load,
			fmt.Errorf("starting with no history: %w", err),
		)
		seen = map[string][]OrderID{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true

	s.seen = map[string][]OrderID{}
	s.index = map[string]map[OrderID]struct{}{}
	for account, ids := range seen {
		s.seen[account] = []OrderID{}
		s.index[account] = map[OrderID]struct{}{}
		for _, id := range ids {
			s.recordLocked(account, id)
		}
	}

	total := 0
	for _, ids := range s.seen {
		total += len(ids)
	}
	s.tel.ReportDebug("loaded", len(s.seen), total)
	return nil
}

// Loaded reports whether the last Load succeeded.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Store) recordLocked(account string, id OrderID) bool {
	if id.IsZero() {
		return false
	}
	if _, ok := s.index[account][id]; ok {
		return false
	}
	s.index[account][id] = struct{}{}
	s.seen[account] = append(s.seen[account], id)
	return true
}

// DiffAndRecord records `fetched` for `account` and returns the ids that were not seen
// before, in the order they were fetched. Zero ids and repeats are skipped.
func (s *Store) DiffAndRecord(account string, fetched []OrderID) []OrderID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[account]; !ok {
		s.seen[account] = []OrderID{}
		s.index[account] = map[OrderID]struct{}{}
	}

	fresh := []OrderID{}
	for _, id := range fetched {
		if s.recordLocked(account, id) {
			fresh = append(fresh, id)
		}
	}
	return fresh
}

// Seen returns a copy of the ids recorded for `account`, in the order they were recorded.
func (s *Store) Seen(account string) []OrderID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OrderID(nil), s.seen[account]...)
}

// Snapshot returns a deep copy of the whole record.
func (s *Store) Snapshot() map[string][]OrderID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]OrderID, len(s.seen))
	for account, ids := range s.seen {
		out[account] = append([]OrderID{}, ids...)
	}
	return out
}

// Save writes the whole record to the backend.
func (s *Store) Save(ctx context.Context) error {
	if !s.Loaded() {
		s.tel.ReportBroken(report_store_save, ErrNotLoaded)
		return ErrNotLoaded
	}

	snapshot := s.Snapshot()
	err := s.backend.Save(ctx, snapshot)
	if err != nil {
		s.tel.ReportBroken(report_store_save, err)
		return fmt.Errorf("save order state: %w", err)
	}
	s.tel.ReportDebug("saved", len(snapshot))
	return nil
}
