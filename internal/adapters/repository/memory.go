package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

// MemoryStore keeps snapshots in a map. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.SnapshotRecord
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.SnapshotRecord)}
}

// SaveIfNewer implements Store.
func (s *MemoryStore) SaveIfNewer(_ context.Context, rec model.SnapshotRecord) (bool, error) { //nolint:gocritic // hugeParam
	if err := validateRecord(rec); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if cur, ok := s.records[rec.Event.ID]; ok && !isNewer(rec, cur) {
		return false, nil
	}
	s.records[rec.Event.ID] = rec
	return true, nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, eventID string) (model.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[eventID]
	if !ok {
		return model.SnapshotRecord{}, ErrNotFound
	}
	return rec, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]model.EventInfo, error) {
	s.mu.RLock()
	out := make([]model.EventInfo, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Event)
	}
	s.mu.RUnlock()
	sortEvents(out)
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, eventID string) error {
	s.mu.Lock()
	delete(s.records, eventID)
	s.mu.Unlock()
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func sortEvents(events []model.EventInfo) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
}
