// Package store provides session persistence backends for the campaign bot.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/lukia-marketing/campaignbot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists session records in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; the parent directory
// is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore migrations applied")

	return &SQLiteStore{db: db}, nil
}

// SaveRecord upserts the session record.
func (s *SQLiteStore) SaveRecord(record models.ConversationRecord) error {
	args, err := recordArgs(record)
	if err != nil {
		slog.Error("SQLiteStore.SaveRecord marshal failed", "error", err, "sessionID", record.SessionID)
		return err
	}
	query := `INSERT OR REPLACE INTO sessions (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, args...); err != nil {
		slog.Error("SQLiteStore.SaveRecord failed", "error", err, "sessionID", record.SessionID)
		return fmt.Errorf("failed to save session %s: %w", record.SessionID, err)
	}
	slog.Debug("SQLiteStore.SaveRecord succeeded", "sessionID", record.SessionID, "step", record.CurrentStep, "status", record.ProcessingStatus)
	return nil
}

// LoadRecord retrieves the record for a session, or nil when absent.
func (s *SQLiteStore) LoadRecord(sessionID string) (*models.ConversationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM sessions WHERE session_id = ?`
	rec, err := scanRecordRow(s.db.QueryRow(query, sessionID))
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore.LoadRecord not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.LoadRecord failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return rec, nil
}

// DeleteRecord removes the record for a session.
func (s *SQLiteStore) DeleteRecord(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		slog.Error("SQLiteStore.DeleteRecord failed", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Debug("SQLiteStore.DeleteRecord succeeded", "sessionID", sessionID)
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
