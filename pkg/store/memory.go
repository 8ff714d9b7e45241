package store

import (
	"fmt"
	"sync"

	"interview-engine/pkg/models"
)

// RecordingStore is an ordered collection of committed recordings.
type RecordingStore interface {
	Add(rec *models.Recording) error
	Get(id string) (*models.Recording, error)
	Remove(id string) error
	List() []*models.Recording
	Clear()
}

type memoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*models.Recording
	order []string
}

func NewMemoryStore() RecordingStore {
	return &memoryStore{byID: make(map[string]*models.Recording)}
}

func (s *memoryStore) Add(rec *models.Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[rec.ID]; exists {
		return fmt.Errorf("duplicate recording id %s", rec.ID)
	}
	s.byID[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *memoryStore) Get(id string) (*models.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.byID[id]
	if !exists {
		return nil, models.ErrRecordingNotFound
	}
	return rec, nil
}

// Remove drops a recording from the store. The struct itself is left
// untouched: other holders (archive jobs, in-flight responses) may
// still be reading it, so the media is reclaimed by dropping the
// reference, not by nilling shared fields.
func (s *memoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		return models.ErrRecordingNotFound
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns recordings in insertion order.
func (s *memoryStore) List() []*models.Recording {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Recording, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Clear drops every recording. As with Remove, shared structs are not
// mutated.
func (s *memoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*models.Recording)
	s.order = nil
}
