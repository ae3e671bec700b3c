// Package session holds uploaded genotypes for the lifetime of a browsing
// session. A session's map is replaced wholesale on upload and removed on
// explicit clear or expiry; it is never partially mutated.
package session

import (
	"context"
	"sync"

	"github.com/gwas-risk-engine/internal/domain"
)

// MemoryStore is the single-instance GenotypeStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.GenotypeMap
}

// NewMemoryStore creates an in-memory genotype store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]domain.GenotypeMap),
	}
}

// Put replaces the session's genotype wholesale
func (s *MemoryStore) Put(_ context.Context, sessionID string, genotype domain.GenotypeMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = genotype
	return nil
}

// Get returns the session's genotype, or ErrNotFound
func (s *MemoryStore) Get(_ context.Context, sessionID string) (domain.GenotypeMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	genotype, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return genotype, nil
}

// Delete removes the session's genotype
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
