package attendance

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. The mutex makes Apply atomic.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Apply(_ context.Context, key string, fn MutateFunc) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.records[key]
	patch, err := fn(cur, exists)
	if err != nil {
		return Record{}, err
	}
	cur.Apply(key, patch, exists)
	cur.Version++
	cur.UpdatedAt = s.now().UTC()
	s.records[key] = cur
	return cur, nil
}

func (s *MemoryStore) ListByDate(_ context.Context, date, class string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []Record{}
	for _, rec := range s.records {
		if rec.Date != date || (class != "" && rec.Class != class) {
			continue
		}
		res = append(res, rec)
	}
	sortRecords(res)
	return res, nil
}
