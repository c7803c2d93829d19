package store

import (
	"context"
	"sync"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]businesscase.ReportData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]businesscase.ReportData)}
}

func (s *MemoryStore) Save(_ context.Context, r businesscase.ReportData) error {
	if err := checkID(r.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (businesscase.ReportData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return businesscase.ReportData{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	list := make([]Summary, 0, len(s.reports))
	for _, r := range s.reports {
		list = append(list, Summarize(r))
	}
	s.mu.RUnlock()
	return newestFirst(list, limit), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
