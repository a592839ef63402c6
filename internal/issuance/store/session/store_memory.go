// Package session persists issuance sessions. Every read returns a copy and every
// write stores a copy, so callers never share mutable state with the store.
package session

import (
	"context"
	"fmt"
	"sync"

	"policydesk/internal/issuance/models"
	"policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

// InMemory keeps sessions for the lifetime of the process.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*models.Session
	// active indexes the IN_PROGRESS session of each quote.
	active map[domain.QuoteID]domain.SessionID
}

func New() *InMemory {
	return &InMemory{
		sessions: make(map[domain.SessionID]*models.Session),
		active:   make(map[domain.QuoteID]domain.SessionID),
	}
}

// CreateIfNoneInProgress stores sess unless its quote already has an IN_PROGRESS
// session, in which case that one is returned untouched and created is false.
func (s *InMemory) CreateIfNoneInProgress(_ context.Context, sess *models.Session) (*models.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.active[sess.QuoteID]; ok {
		if existing, ok := s.sessions[existingID]; ok && existing.IsInProgress() {
			return existing.Clone(), false, nil
		}
	}
	if _, ok := s.sessions[sess.ID]; ok {
		return nil, false, fmt.Errorf("session %s: %w", sess.ID, sentinel.ErrConflict)
	}
	s.sessions[sess.ID] = sess.Clone()
	if sess.IsInProgress() {
		s.active[sess.QuoteID] = sess.ID
	}
	return sess.Clone(), true, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// FindInProgressByQuote returns the quote's open session or sentinel.ErrNotFound.
func (s *InMemory) FindInProgressByQuote(_ context.Context, quoteID domain.QuoteID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[quoteID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	sess, ok := s.sessions[id]
	if !ok || !sess.IsInProgress() {
		return nil, sentinel.ErrNotFound
	}
	return sess.Clone(), nil
}

// Execute runs validate then mutate against one session under the write lock.
// A validate error aborts without changes and is returned as-is.
func (s *InMemory) Execute(_ context.Context, id domain.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	s.sessions[id] = working
	if !working.IsInProgress() && s.active[working.QuoteID] == id {
		delete(s.active, working.QuoteID)
	}
	return working.Clone(), nil
}
