package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lukia-marketing/campaignbot/internal/models"
	"github.com/lukia-marketing/campaignbot/internal/store"
)

// SessionManager mediates between the engine and the store: it owns the
// create-on-first-message rule and hides the store's nil-when-absent
// convention from the engine.
type SessionManager struct {
	store store.Store
}

// NewSessionManager creates a session manager over st.
func NewSessionManager(st store.Store) *SessionManager {
	return &SessionManager{store: st}
}

// Load returns the record for sessionID, creating a fresh greeting-step
// record when none is stored yet.
func (m *SessionManager) Load(ctx context.Context, sessionID string) (*models.ConversationRecord, error) {
	rec, err := m.store.LoadRecord(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	if rec == nil {
		rec = models.NewConversationRecord(sessionID)
		slog.Info("SessionManager.Load: new session", "sessionID", sessionID)
	}
	return rec, nil
}

// Peek returns the stored record or nil when the session does not exist.
// It never creates a record.
func (m *SessionManager) Peek(ctx context.Context, sessionID string) (*models.ConversationRecord, error) {
	rec, err := m.store.LoadRecord(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return rec, nil
}

// Save persists the record.
func (m *SessionManager) Save(ctx context.Context, rec *models.ConversationRecord) error {
	if err := m.store.SaveRecord(*rec); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Reset deletes the stored record for sessionID. Deleting a session that
// does not exist is not an error.
func (m *SessionManager) Reset(ctx context.Context, sessionID string) error {
	if err := m.store.DeleteRecord(sessionID); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	slog.Info("SessionManager.Reset: session cleared", "sessionID", sessionID)
	return nil
}
