package buildstub

import (
	"sort"
	"sync"
	"time"
)

// MemStore keeps build records in memory.
type MemStore struct {
	mu    sync.RWMutex
	items map[string]*Record
}

func NewMemStore() *MemStore {
	return &MemStore{items: make(map[string]*Record)}
}

func (s *MemStore) Create(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.ProjectID == rec.ProjectID && existing.Build.BuildName == rec.Build.BuildName {
			return Record{}, ErrBuildExists
		}
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	stored := rec
	s.items[rec.Build.GUID] = &stored
	return stored, nil
}

func (s *MemStore) List(projectID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Record, 0, len(s.items))
	for _, rec := range s.items {
		if rec.ProjectID == projectID {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemStore) Get(projectID, guid string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[guid]
	if !ok || rec.ProjectID != projectID {
		return Record{}, ErrBuildNotFound
	}
	return *rec, nil
}

func (s *MemStore) Update(projectID, guid string, fn func(rec *Record) error) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[guid]
	if !ok || rec.ProjectID != projectID {
		return Record{}, ErrBuildNotFound
	}
	updated := *rec
	if err := fn(&updated); err != nil {
		return Record{}, err
	}
	updated.UpdatedAt = time.Now().UTC()
	*rec = updated
	return updated, nil
}
