package teststore

import (
	"context"
	"sync"

	"github.com/terrane/terrane/resource"
	"github.com/terrane/terrane/storage"
)

// Store is a resource store that's intended to be used in tests. All records
// are stored in memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]map[string]*resource.Record
}

var _ storage.ResourceStore = (*Store)(nil)

// Seed seeds the store with records for a given project. If the project
// already has records, the records are added to it.
//
// The method may be called multiple times to add records in parts, or add
// records to different projects.
func (s *Store) Seed(project string, records []*resource.Record) {
	if len(records) == 0 {
		return
	}
	if s.records == nil {
		s.records = make(map[string]map[string]*resource.Record)
	}
	if s.records[project] == nil {
		s.records[project] = make(map[string]*resource.Record)
	}
	for _, rec := range records {
		s.records[project][rec.Addr()] = rec
	}
}

// Put creates or updates a record.
func (s *Store) Put(ctx context.Context, project string, record *resource.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[string]map[string]*resource.Record)
	}
	if s.records[project] == nil {
		s.records[project] = make(map[string]*resource.Record)
	}
	s.records[project][record.Addr()] = record
	return nil
}

// Delete deletes a record. Returns ErrNotFound if the record does not exist.
func (s *Store) Delete(ctx context.Context, project, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[project][addr]; !ok {
		return storage.ErrNotFound
	}
	delete(s.records[project], addr)
	return nil
}

// List returns all records in a project, keyed by address.
func (s *Store) List(ctx context.Context, project string) (map[string]*resource.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rr := s.records[project]
	m := make(map[string]*resource.Record, len(rr))
	for addr, rec := range rr {
		m[addr] = rec
	}
	return m, nil
}
