// Package store provides session persistence backends for the campaign bot.
//
// A Store keeps one ConversationRecord per session, keyed by session id.
// Backends: in-memory (tests and development), SQLite, and PostgreSQL.
package store

import (
	"log/slog"
	"sync"

	"github.com/lukia-marketing/campaignbot/internal/models"
)

// Store is the persistence interface for conversation records.
type Store interface {
	// LoadRecord returns the record for a session, or nil when the session
	// has never been seen.
	LoadRecord(sessionID string) (*models.ConversationRecord, error)

	// SaveRecord upserts the record keyed by its SessionID.
	SaveRecord(record models.ConversationRecord) error

	// DeleteRecord removes the record for a session. Deleting an unknown
	// session is not an error.
	DeleteRecord(sessionID string) error

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithDSN sets the database DSN (a file path for SQLite, a connection
// string for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a mutex-guarded map of session records.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.ConversationRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.ConversationRecord)}
}

// LoadRecord returns a copy of the stored record, or nil when absent.
func (s *InMemoryStore) LoadRecord(sessionID string) (*models.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	// Copy so callers cannot mutate the stored value in place.
	cp := rec
	cp.Administrators = append([]string(nil), rec.Administrators...)
	cp.MessageLog = append([]models.MessageEntry(nil), rec.MessageLog...)
	return &cp, nil
}

// SaveRecord stores the record keyed by its SessionID.
func (s *InMemoryStore) SaveRecord(record models.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SessionID] = record
	slog.Debug("InMemoryStore.SaveRecord succeeded", "sessionID", record.SessionID, "step", record.CurrentStep)
	return nil
}

// DeleteRecord removes the record for a session.
func (s *InMemoryStore) DeleteRecord(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
