package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/opencivic/civictriage/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertTickets inserts or updates tickets in the database
func (s *PostgresStore) UpsertTickets(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	// Use UPSERT (INSERT ... ON CONFLICT DO UPDATE)
	query := `
		INSERT INTO tickets (
			id, reporter_id, title, description, category, severity, status,
			department, eta, latitude, longitude, media, duplicate_of, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			severity = EXCLUDED.severity,
			status = EXCLUDED.status,
			department = EXCLUDED.department,
			eta = EXCLUDED.eta,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			media = EXCLUDED.media,
			duplicate_of = EXCLUDED.duplicate_of,
			updated_at = NOW()
	`

	for _, ticket := range tickets {
		var lat, lng *float64
		if ticket.Geo != nil {
			lat, lng = &ticket.Geo.Lat, &ticket.Geo.Lng
		}

		media, err := json.Marshal(ticket.Media)
		if err != nil {
			return fmt.Errorf("marshal media for ticket %s: %w", ticket.ID, err)
		}

		err = s.db.Exec(ctx, query,
			ticket.ID, ticket.ReporterID, ticket.Title, ticket.Description,
			ticket.Category, ticket.Severity, ticket.Status, ticket.Department,
			ticket.ETA, lat, lng, media, ticket.DuplicateOf, ticket.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert ticket %s: %w", ticket.ID, err)
		}
	}

	return nil
}

const ticketColumns = `id, reporter_id, title, description, category, severity, status,
			   department, eta, latitude, longitude, media, duplicate_of,
			   created_at, updated_at`

// QueryTickets retrieves tickets based on query parameters
func (s *PostgresStore) QueryTickets(ctx context.Context, q models.TicketQuery) ([]models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE 1=1
	`

	var args []interface{}
	argIndex := 1

	// Build WHERE conditions
	if len(q.IDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", argIndex)
		args = append(args, q.IDs)
		argIndex++
	}

	if len(q.Categories) > 0 {
		query += fmt.Sprintf(" AND category = ANY($%d)", argIndex)
		args = append(args, q.Categories)
		argIndex++
	}

	if len(q.Statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", argIndex)
		args = append(args, q.Statuses)
		argIndex++
	}

	if q.ReporterID != "" {
		query += fmt.Sprintf(" AND reporter_id = $%d", argIndex)
		args = append(args, q.ReporterID)
		argIndex++
	}

	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, q.Since)
		argIndex++
	}

	if !q.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, q.Until)
		argIndex++
	}

	// Add ordering
	query += " ORDER BY created_at DESC"

	// Add limit and offset
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
	}

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, q.Offset)
	}

	return s.queryTickets(ctx, query, args...)
}

// OpenTickets returns every unresolved ticket, newest first
func (s *PostgresStore) OpenTickets(ctx context.Context) ([]models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE status != $1
		ORDER BY created_at DESC
	`
	return s.queryTickets(ctx, query, models.StatusResolved)
}

func (s *PostgresStore) queryTickets(ctx context.Context, query string, args ...any) ([]models.Ticket, error) {
	rowsInterface, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}

	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	return tickets, nil
}

// GetTicket retrieves a single ticket by ID
func (s *PostgresStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE id = $1
	`

	rowInterface := s.db.QueryRow(ctx, query, id)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return nil, fmt.Errorf("invalid row type")
	}

	ticket, err := scanTicket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &ticket, nil
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var lat, lng *float64
	var media []byte

	err := row.Scan(
		&ticket.ID, &ticket.ReporterID, &ticket.Title, &ticket.Description,
		&ticket.Category, &ticket.Severity, &ticket.Status, &ticket.Department,
		&ticket.ETA, &lat, &lng, &media, &ticket.DuplicateOf,
		&ticket.CreatedAt, &ticket.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ticket, err
		}
		return ticket, fmt.Errorf("scan ticket: %w", err)
	}

	if lat != nil && lng != nil {
		ticket.Geo = &models.GeoLocation{Lat: *lat, Lng: *lng}
	}

	if len(media) > 0 {
		if err := json.Unmarshal(media, &ticket.Media); err != nil {
			return ticket, fmt.Errorf("unmarshal media for ticket %s: %w", ticket.ID, err)
		}
	}

	return ticket, nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
