package store

import (
	"context"
	"fmt"
	"sync"

	"snapscreen/internal/types"
)

// MemoryStore keeps scans in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	scans map[string]types.ScanDetail
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scans: make(map[string]types.ScanDetail)}
}

// NewSeededMemoryStore creates a store preloaded with the sample scans.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	for _, d := range SampleScans() {
		d := d
		if err := s.Save(context.Background(), &d); err != nil {
			panic(fmt.Sprintf("store: invalid sample scan %s: %v", d.ID, err))
		}
	}
	return s
}

func (s *MemoryStore) List(_ context.Context, filter string) ([]types.ScanSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.ScanSummary, 0, len(s.order))
	for _, id := range s.order {
		d := s.scans[id]
		if MatchesTitle(d.Title, filter) {
			out = append(out, d.Summary())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.ScanDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.scans[id]
	if !ok {
		return nil, notFound(id)
	}
	return clone(d), nil
}

func (s *MemoryStore) Save(_ context.Context, detail *types.ScanDetail) error {
	if err := prepare(detail); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.scans[detail.ID]; !exists {
		s.order = append(s.order, detail.ID)
	}
	s.scans[detail.ID] = *clone(*detail)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scans[id]; !ok {
		return notFound(id)
	}
	delete(s.scans, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
