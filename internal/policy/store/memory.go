// Package store keeps issued policies.
package store

import (
	"context"
	"sync"

	"policydesk/internal/policy/models"
	"policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	policies  map[domain.PolicyID]*models.Policy
	bySession map[domain.SessionID]domain.PolicyID
}

func New() *InMemory {
	return &InMemory{
		policies:  make(map[domain.PolicyID]*models.Policy),
		bySession: make(map[domain.SessionID]domain.PolicyID),
	}
}

// Create stores p. A second policy for the same session is a conflict.
func (s *InMemory) Create(_ context.Context, p *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySession[p.SessionID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	s.policies[p.ID] = &cp
	s.bySession[p.SessionID] = p.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.PolicyID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) FindBySession(_ context.Context, sessionID domain.SessionID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.policies[id]
	return &cp, nil
}
