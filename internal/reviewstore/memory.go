package reviewstore

import (
	"context"
	"strings"
	"sync"

	"document-reconciliation-service/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps review states in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]models.ReviewState
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(initial ...models.ReviewState) *MemoryStore {
	s := &MemoryStore{states: make(map[string]models.ReviewState, len(initial))}
	for _, st := range initial {
		if p, err := prepare(st); err == nil {
			s.states[p.DocNo] = p
		}
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, docNo string) (models.ReviewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[strings.TrimSpace(docNo)]
	if !ok {
		return models.ReviewState{}, ErrNotFound
	}
	return st, nil
}

func (s *MemoryStore) GetMany(_ context.Context, docNos []string) (map[string]models.ReviewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.ReviewState)
	for _, d := range uniqueDocNos(docNos) {
		if st, ok := s.states[d]; ok {
			out[d] = st
		}
	}
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, state models.ReviewState) error {
	state, err := prepare(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.states[state.DocNo] = state
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, docNo string) error {
	s.mu.Lock()
	delete(s.states, strings.TrimSpace(docNo))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.ReviewState, error) {
	s.mu.RLock()
	out := make([]models.ReviewState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	s.mu.RUnlock()

	sortStates(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
