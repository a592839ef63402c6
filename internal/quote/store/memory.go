// Package store serves the quote catalogue from memory.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"policydesk/internal/quote/models"
	"policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

type InMemory struct {
	mu     sync.RWMutex
	quotes map[domain.QuoteID]*models.Quote
}

func New() *InMemory {
	return &InMemory{quotes: make(map[domain.QuoteID]*models.Quote)}
}

// NewSeeded returns a store holding the demo catalogue.
func NewSeeded() *InMemory {
	s := New()
	for _, q := range SeedQuotes() {
		s.quotes[q.ID] = q
	}
	return s
}

// Put adds or replaces a quote.
func (s *InMemory) Put(_ context.Context, q *models.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	s.quotes[q.ID] = &cp
}

// Remove deletes a quote; upstream catalogues withdraw quotes at any time.
func (s *InMemory) Remove(_ context.Context, id domain.QuoteID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, id)
}

func (s *InMemory) FindByID(_ context.Context, id domain.QuoteID) (*models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

// List returns every quote, newest first.
func (s *InMemory) List(_ context.Context) ([]*models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		cp := *q
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Quote) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out, nil
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// SeedQuotes is the demo catalogue.
func SeedQuotes() []*models.Quote {
	return []*models.Quote{
		{
			ID: "q-001", Number: "123-BOAT-001", ProductType: domain.ProductBoats,
			ProductName: "Botes Recreativos", CreatedAt: at("2026-01-15T09:00:00Z"),
			Premium: 18500, Currency: "MXN", Status: models.StatusApproved,
			CustomerName: "Marina del Pacífico S.A. de C.V.", RiskObjectName: `Velero "Amanecer" 32 pies`,
		},
		{
			ID: "q-002", Number: "124-BOAT-002", ProductType: domain.ProductBoats,
			ProductName: "Botes Comerciales", CreatedAt: at("2026-01-20T11:30:00Z"),
			Premium: 24800, Currency: "MXN", Status: models.StatusApproved,
			CustomerName: "Tours Bahía Azul", RiskObjectName: `Lancha "Bahía Azul" 28 pies`,
		},
		{
			ID: "q-003", Number: "220-PATR-010", ProductType: domain.ProductProperty,
			ProductName: "Patrimoniales – Local Comercial", CreatedAt: at("2026-01-18T15:45:00Z"),
			Premium: 9200, Currency: "MXN", Status: models.StatusDraft,
			CustomerName: "Cafetería La Esquina", RiskObjectName: "Local Av. Reforma 120",
		},
		{
			ID: "q-004", Number: "221-PATR-011", ProductType: domain.ProductProperty,
			ProductName: "Patrimoniales – Oficina", CreatedAt: at("2026-01-12T10:10:00Z"),
			Premium: 13800, Currency: "MXN", Status: models.StatusApproved,
			CustomerName: "Consultores del Centro", RiskObjectName: "Oficina Piso 7 Torre Centro",
		},
		{
			ID: "q-005", Number: "300-AV-005", ProductType: domain.ProductAviation,
			ProductName: "Aviación General", CreatedAt: at("2026-01-05T08:00:00Z"),
			Premium: 89000, Currency: "MXN", Status: models.StatusApproved,
			CustomerName: "AeroServicios del Norte", RiskObjectName: "Avión Cessna 208B",
		},
		{
			ID: "q-006", Number: "301-AV-006", ProductType: domain.ProductAviation,
			ProductName: "Aviación Ejecutiva", CreatedAt: at("2025-12-28T17:20:00Z"),
			Premium: 152000, Currency: "MXN", Status: models.StatusExpired,
			CustomerName: "Grupo Empresarial del Sur", RiskObjectName: "Jet ejecutivo Gulfstream",
		},
		{
			ID: "q-007", Number: "222-PATR-012", ProductType: domain.ProductProperty,
			ProductName: "Patrimoniales – Local Comercial", CreatedAt: at("2026-01-22T13:05:00Z"),
			Premium: 7400, Currency: "MXN", Status: models.StatusApproved,
			CustomerName: "Farmacia del Valle", RiskObjectName: "Local Plaza del Valle",
		},
	}
}
