package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	errorskg "github.com/sweetpotato0/deskflow/errors"
	"github.com/sweetpotato0/deskflow/ticket"
)

// PostgresStore implements ticket.Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL configuration
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "deskflow",
		SSLMode:  "disable",
	}
}

// NewPostgresStore creates a new PostgreSQL-based ticket store
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	if config == nil {
		config = DefaultPostgresConfig()
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createTable(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := `
	CREATE SEQUENCE IF NOT EXISTS tickets_seq;
	CREATE TABLE IF NOT EXISTS tickets (
		id VARCHAR(16) PRIMARY KEY,
		session_id VARCHAR(255) NOT NULL,
		issue_summary TEXT NOT NULL,
		category VARCHAR(64) NOT NULL,
		status VARCHAR(32) NOT NULL,
		refined_query TEXT,
		answer TEXT,
		feedback_rationale TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets(created_at);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Create assigns the next sequence ID and inserts the ticket
func (s *PostgresStore) Create(ctx context.Context, t *ticket.Ticket) error {
	if err := t.Validate(); err != nil {
		return err
	}

	var seq int
	if err := s.db.QueryRowContext(ctx, "SELECT nextval('tickets_seq')").Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate ticket id: %w", err)
	}

	t.ID = ticket.FormatID(seq)
	t.Status = ticket.StatusOpen
	t.CreatedAt = time.Now()

	query := `
	INSERT INTO tickets (id, session_id, issue_summary, category, status, refined_query, answer, feedback_rationale, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.SessionID, t.IssueSummary, string(t.Category), t.Status,
		t.RefinedQuery, t.Answer, t.FeedbackRationale, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// Get retrieves a ticket by ID
func (s *PostgresStore) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	t := &ticket.Ticket{}
	var category string

	query := `SELECT id, session_id, issue_summary, category, status, refined_query, answer, feedback_rationale, created_at
		FROM tickets WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.SessionID, &t.IssueSummary, &category, &t.Status,
		&t.RefinedQuery, &t.Answer, &t.FeedbackRationale, &t.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("ticket %s: %w", id, errorskg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	t.Category = ticket.Category(category)
	return t, nil
}

// List returns all tickets ordered by creation time
func (s *PostgresStore) List(ctx context.Context) ([]*ticket.Ticket, error) {
	query := `SELECT id, session_id, issue_summary, category, status, refined_query, answer, feedback_rationale, created_at
		FROM tickets ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*ticket.Ticket, 0)
	for rows.Next() {
		t := &ticket.Ticket{}
		var category string
		if err := rows.Scan(
			&t.ID, &t.SessionID, &t.IssueSummary, &category, &t.Status,
			&t.RefinedQuery, &t.Answer, &t.FeedbackRationale, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		t.Category = ticket.Category(category)
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return tickets, nil
}

// Close closes the PostgreSQL connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks if PostgreSQL connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
