package ledger

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in process memory.
// This is suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, identity string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Identity] = *rec
	return nil
}

func (s *MemoryStore) Update(_ context.Context, identity string, fn UpdateFunc) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *Record
	if rec, ok := s.records[identity]; ok {
		current = &rec
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	s.records[identity] = *next
	out := *next
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sortRecords(records)
	return records, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// sortRecords orders records most recently used first.
func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].LastUsed.Equal(records[j].LastUsed) {
			return records[i].Identity < records[j].Identity
		}
		return records[i].LastUsed.After(records[j].LastUsed)
	})
}
