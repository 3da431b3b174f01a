package store

import (
	"context"
	"sort"
	"sync"

	"github.com/opencivic/civictriage/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]models.Ticket
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tickets: make(map[string]models.Ticket),
	}
}

// UpsertTickets stores tickets in memory
func (s *InMemoryStore) UpsertTickets(ctx context.Context, tickets []models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ticket := range tickets {
		s.tickets[ticket.ID] = ticket
	}

	return nil
}

// QueryTickets retrieves tickets from memory based on query parameters
func (s *InMemoryStore) QueryTickets(ctx context.Context, q models.TicketQuery) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Ticket
	for _, ticket := range s.tickets {
		if q.Matches(ticket) {
			result = append(result, ticket)
		}
	}

	// Sort by CreatedAt descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	// Apply limit and offset
	if q.Offset > 0 && q.Offset < len(result) {
		result = result[q.Offset:]
	} else if q.Offset > 0 && q.Offset >= len(result) {
		result = []models.Ticket{}
	}

	if q.Limit > 0 && q.Limit < len(result) {
		result = result[:q.Limit]
	}

	return result, nil
}

// GetTicket retrieves a single ticket by ID
func (s *InMemoryStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ticket, exists := s.tickets[id]; exists {
		return &ticket, nil
	}

	return nil, nil
}

// OpenTickets returns a snapshot of every unresolved ticket, newest first
func (s *InMemoryStore) OpenTickets(ctx context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.Status != models.StatusResolved {
			result = append(result, ticket)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
