// Package store provides session persistence backends for the campaign bot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/lukia-marketing/campaignbot/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists session records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore migrations applied")

	return &PostgresStore{db: db}, nil
}

// SaveRecord upserts the session record.
func (s *PostgresStore) SaveRecord(record models.ConversationRecord) error {
	args, err := recordArgs(record)
	if err != nil {
		slog.Error("PostgresStore.SaveRecord marshal failed", "error", err, "sessionID", record.SessionID)
		return err
	}
	query := `INSERT INTO sessions (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (session_id) DO UPDATE SET
			current_step = EXCLUDED.current_step,
			processing_status = EXCLUDED.processing_status,
			campaign_name = EXCLUDED.campaign_name,
			event_name = EXCLUDED.event_name,
			event_date = EXCLUDED.event_date,
			timezone = EXCLUDED.timezone,
			administrators = EXCLUDED.administrators,
			context = EXCLUDED.context,
			campaign_id = EXCLUDED.campaign_id,
			event_id = EXCLUDED.event_id,
			pending_event_id = EXCLUDED.pending_event_id,
			group_url = EXCLUDED.group_url,
			last_user_message = EXCLUDED.last_user_message,
			bot_response = EXCLUDED.bot_response,
			message_log = EXCLUDED.message_log,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.db.Exec(query, args...); err != nil {
		slog.Error("PostgresStore.SaveRecord failed", "error", err, "sessionID", record.SessionID)
		return fmt.Errorf("failed to save session %s: %w", record.SessionID, err)
	}
	slog.Debug("PostgresStore.SaveRecord succeeded", "sessionID", record.SessionID, "step", record.CurrentStep, "status", record.ProcessingStatus)
	return nil
}

// LoadRecord retrieves the record for a session, or nil when absent.
func (s *PostgresStore) LoadRecord(sessionID string) (*models.ConversationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM sessions WHERE session_id = $1`
	rec, err := scanRecordRow(s.db.QueryRow(query, sessionID))
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore.LoadRecord not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.LoadRecord failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return rec, nil
}

// DeleteRecord removes the record for a session.
func (s *PostgresStore) DeleteRecord(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = $1`, sessionID); err != nil {
		slog.Error("PostgresStore.DeleteRecord failed", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Debug("PostgresStore.DeleteRecord succeeded", "sessionID", sessionID)
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
