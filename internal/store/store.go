package store

import (
	"context"

	"github.com/opencivic/civictriage/internal/models"
)

// Store defines the interface for ticket storage
type Store interface {
	UpsertTickets(ctx context.Context, tickets []models.Ticket) error
	QueryTickets(ctx context.Context, q models.TicketQuery) ([]models.Ticket, error)
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	OpenTickets(ctx context.Context) ([]models.Ticket, error)
	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (interface{}, error)
	QueryRow(ctx context.Context, sql string, args ...any) interface{}
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a new store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}
