package wizard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"policydesk/internal/issuance/models"
	quoteModels "policydesk/internal/quote/models"
	"policydesk/pkg/domain"
)

// Backend is everything a registry needs to open controllers.
type Backend interface {
	Sessions
	StartIssuance(ctx context.Context, quoteID domain.QuoteID) (*models.Session, error)
	GetSession(ctx context.Context, id domain.SessionID) (*models.Session, error)
}

// Quotes resolves the quote behind a session.
type Quotes interface {
	GetQuote(ctx context.Context, id domain.QuoteID) (*quoteModels.Details, error)
}

// Registry keeps one live controller per session so consecutive requests share the
// working copy and the captured photos. Controllers of issued sessions are evicted.
type Registry struct {
	mu          sync.Mutex
	controllers map[domain.SessionID]*Controller
	touched     map[domain.SessionID]time.Time
	now         func() time.Time
	backend     Backend
	quotes      Quotes
	opts        []Option
	logger      *slog.Logger
}

func NewRegistry(backend Backend, quotes Quotes, logger *slog.Logger, opts ...Option) *Registry {
	return &Registry{
		controllers: make(map[domain.SessionID]*Controller),
		touched:     make(map[domain.SessionID]time.Time),
		now:         time.Now,
		backend:     backend,
		quotes:      quotes,
		opts:        opts,
		logger:      logger,
	}
}

// Start opens or resumes the wizard for a quote.
func (r *Registry) Start(ctx context.Context, quoteID domain.QuoteID) (*Controller, Intent, error) {
	q, err := r.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, None(), err
	}
	sess, err := r.backend.StartIssuance(ctx, quoteID)
	if err != nil {
		return nil, None(), err
	}
	c, err := r.open(q.Quote, sess)
	if err != nil {
		return nil, None(), err
	}
	return c, EnterWizard(quoteID, sess.ID), nil
}

// Controller returns the live controller for a session, rebuilding it from the
// store when this process has none.
func (r *Registry) Controller(ctx context.Context, id domain.SessionID) (*Controller, error) {
	r.mu.Lock()
	c, ok := r.controllers[id]
	if ok {
		r.touched[id] = r.now()
	}
	r.mu.Unlock()
	if ok {
		return c, nil
	}

	sess, err := r.backend.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	q, err := r.quotes.GetQuote(ctx, sess.QuoteID)
	if err != nil {
		return nil, err
	}
	return r.open(q.Quote, sess)
}

func (r *Registry) open(q *quoteModels.Quote, sess *models.Session) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[sess.ID]; ok {
		r.touched[sess.ID] = r.now()
		return c, nil
	}
	c, err := New(q, sess, r.backend, r.opts...)
	if err != nil {
		return nil, err
	}
	if sess.IsInProgress() {
		r.controllers[sess.ID] = c
		r.touched[sess.ID] = r.now()
	}
	return c, nil
}

// Evict closes and forgets a session's controller.
func (r *Registry) Evict(id domain.SessionID) {
	r.mu.Lock()
	c, ok := r.controllers[id]
	delete(r.controllers, id)
	delete(r.touched, id)
	r.mu.Unlock()
	if ok {
		c.Close()
		r.logger.Debug("wizard evicted", "session_id", id)
	}
}

// EvictIdle closes controllers unused for at least maxIdle and returns how many
// went. Busy controllers are kept. Their sessions stay in the store and reopen on
// the next request, without unsaved edits or photos not yet uploaded.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	var idle []*Controller

	r.mu.Lock()
	for id, c := range r.controllers {
		if c.running.Load() || r.touched[id].After(cutoff) {
			continue
		}
		idle = append(idle, c)
		delete(r.controllers, id)
		delete(r.touched, id)
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
		r.logger.Debug("idle wizard evicted", "session_id", c.SessionID())
	}
	return len(idle)
}

// RunJanitor evicts idle controllers every interval until ctx ends.
func (r *Registry) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(maxIdle); n > 0 {
				r.logger.Info("evicted idle wizards", "count", n)
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Close releases every live controller.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.controllers
	r.controllers = make(map[domain.SessionID]*Controller)
	r.touched = make(map[domain.SessionID]time.Time)
	r.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
}
