// Package api provides HTTP handlers for the campaign bot endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lukia-marketing/campaignbot/internal/models"
)

// messageRequest is the payload for running one conversation turn.
type messageRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// turnResult is the turn outcome returned to HTTP clients. The full record
// stays server-side; only the reply and the coarse state are exposed.
type turnResult struct {
	SessionID        string `json:"session_id"`
	BotResponse      string `json:"bot_response"`
	CurrentStep      string `json:"current_step"`
	ProcessingStatus string `json:"processing_status"`
	GroupURL         string `json:"group_url,omitempty"`
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.messageHandler: processing message request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.messageHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		slog.Warn("Server.messageHandler: missing user_id")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("user_id is required"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		slog.Warn("Server.messageHandler: missing message", "userID", req.UserID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("message is required"))
		return
	}

	rec, err := s.engine.HandleTurn(r.Context(), req.UserID, req.Message)
	if err != nil {
		slog.Error("Server.messageHandler: turn failed", "error", err, "userID", req.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	slog.Info("Server.messageHandler: turn processed", "userID", req.UserID, "step", rec.CurrentStep)
	writeJSONResponse(w, http.StatusOK, models.Success(turnResult{
		SessionID:        rec.SessionID,
		BotResponse:      rec.BotResponse,
		CurrentStep:      string(rec.CurrentStep),
		ProcessingStatus: string(rec.ProcessingStatus),
		GroupURL:         rec.GroupURL,
	}))
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sessionHandler: processing session request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.sessionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("user_id is required"))
		return
	}

	rec, err := s.engine.Snapshot(r.Context(), userID)
	if err != nil {
		slog.Error("Server.sessionHandler: failed to load session", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	if rec == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.resetHandler: processing reset request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.resetHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.resetHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("user_id is required"))
		return
	}

	if err := s.engine.Reset(r.Context(), req.UserID); err != nil {
		slog.Error("Server.resetHandler: failed to reset session", "error", err, "userID", req.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset session"))
		return
	}
	slog.Info("Server.resetHandler: session reset", "userID", req.UserID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset", nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
