package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lukia-marketing/campaignbot/internal/genai"
	"github.com/lukia-marketing/campaignbot/internal/models"
	"github.com/lukia-marketing/campaignbot/internal/store"
)

const (
	// maxTransitions bounds one turn's walk through the graph. The longest
	// legitimate chain is router -> campaign -> event -> activator, so
	// anything longer indicates a decision bug.
	maxTransitions = 8

	// DefaultOracleTimeout bounds each individual oracle call.
	DefaultOracleTimeout = 30 * time.Second

	msgTurnFallback = "Disculpa, ocurrió un problema procesando tu mensaje. Intenta de nuevo, por favor."
)

// Opts configures the Engine.
type Opts struct {
	OracleTimeout time.Duration
	Now           func() time.Time
}

// Option configures an Engine at construction.
type Option func(*Opts)

// WithOracleTimeout overrides the per-oracle-call timeout.
func WithOracleTimeout(d time.Duration) Option {
	return func(o *Opts) { o.OracleTimeout = d }
}

// WithNow overrides the clock used for event date validation. Tests use
// this to pin "now".
func WithNow(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// Engine walks the conversation graph for one user turn at a time. Turns
// for the same session are serialized with a per-session lock; distinct
// sessions run concurrently.
type Engine struct {
	sessions  *SessionManager
	nodes     map[string]Node
	decisions map[string]decisionFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine wires the six graph nodes over the given oracle, backend and
// store.
func NewEngine(oracle genai.ClientInterface, backend CampaignBackend, st store.Store, options ...Option) *Engine {
	opts := Opts{OracleTimeout: DefaultOracleTimeout, Now: time.Now}
	for _, opt := range options {
		opt(&opts)
	}

	nodes := []Node{
		NewRouter(oracle, opts.OracleTimeout),
		NewCampaignCreator(oracle, backend, opts.OracleTimeout),
		NewEventCreator(backend, opts.Now),
		NewGroupActivator(oracle, backend, opts.OracleTimeout),
		NewStatusChecker(oracle, backend, opts.OracleTimeout),
		NewCompletion(oracle, opts.OracleTimeout),
	}
	byName := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byName[n.Name()] = n
	}

	return &Engine{
		sessions:  NewSessionManager(st),
		nodes:     byName,
		decisions: defaultDecisions(),
		locks:     make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing turns for sessionID, creating
// it on first use. Locks are never removed; the per-session footprint is
// one mutex.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[sessionID] = l
	}
	return l
}

// HandleTurn processes one user message for a session: load or create the
// record, walk the graph from the router, persist, and return the updated
// record. The returned record always carries a non-empty BotResponse.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, message string) (*models.ConversationRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	rec.LastUserMessage = message
	rec.BotResponse = ""
	rec.AppendMessage("user", message)

	e.walk(ctx, rec)

	if rec.BotResponse == "" {
		slog.Error("Engine.HandleTurn: turn produced no response", "sessionID", sessionID, "step", rec.CurrentStep)
		rec.BotResponse = msgTurnFallback
	}
	rec.AppendMessage("assistant", rec.BotResponse)
	rec.UpdatedAt = time.Now().UTC()

	if err := e.sessions.Save(ctx, rec); err != nil {
		// The user still gets the response; the next turn reloads stale
		// state, which the router tolerates.
		slog.Error("Engine.HandleTurn: failed to persist session", "error", err, "sessionID", sessionID)
	}

	slog.Info("Engine.HandleTurn: turn complete", "sessionID", sessionID, "step", rec.CurrentStep, "status", rec.ProcessingStatus)
	return rec, nil
}

// walk runs the graph from the router until a decision ends the turn or the
// hop bound trips.
func (e *Engine) walk(ctx context.Context, rec *models.ConversationRecord) {
	current := nodeRouter
	for hops := 0; hops < maxTransitions; hops++ {
		node, ok := e.nodes[current]
		if !ok {
			slog.Error("Engine.walk: decision named an unknown node", "node", current, "sessionID", rec.SessionID)
			return
		}
		node.Run(ctx, rec)

		decide, ok := e.decisions[current]
		if !ok {
			return
		}
		next := decide(rec)
		logDecision(current, next, rec)
		if next == endSignal {
			return
		}
		current = next
	}
	slog.Error("Engine.walk: transition bound exceeded", "sessionID", rec.SessionID, "step", rec.CurrentStep)
}

// Snapshot returns the stored record for a session without running a turn,
// or nil when the session does not exist.
func (e *Engine) Snapshot(ctx context.Context, sessionID string) (*models.ConversationRecord, error) {
	return e.sessions.Peek(ctx, sessionID)
}

// Reset deletes a session's stored record so its next message starts a
// fresh conversation.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return e.sessions.Reset(ctx, sessionID)
}
