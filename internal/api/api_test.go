package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lukia-marketing/campaignbot/internal/models"
)

// fakeEngine implements BotEngine with canned records and call tracking.
type fakeEngine struct {
	record     *models.ConversationRecord
	turnErr    error
	resetCalls int

	lastSessionID string
	lastMessage   string
}

func (f *fakeEngine) HandleTurn(ctx context.Context, sessionID, message string) (*models.ConversationRecord, error) {
	f.lastSessionID = sessionID
	f.lastMessage = message
	if f.turnErr != nil {
		return nil, f.turnErr
	}
	return f.record, nil
}

func (f *fakeEngine) Snapshot(ctx context.Context, sessionID string) (*models.ConversationRecord, error) {
	f.lastSessionID = sessionID
	return f.record, nil
}

func (f *fakeEngine) Reset(ctx context.Context, sessionID string) error {
	f.lastSessionID = sessionID
	f.resetCalls++
	return nil
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMessageHandler(t *testing.T) {
	record := models.NewConversationRecord("u1")
	record.CurrentStep = models.StepEventName
	record.BotResponse = "¿Cómo se llamará el evento?"
	engine := &fakeEngine{record: record}
	handler := NewServer(engine).Handler()

	rec := postJSON(t, handler, "/bot/message", map[string]string{
		"user_id": "u1",
		"message": "Campaña Verano",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if engine.lastSessionID != "u1" || engine.lastMessage != "Campaña Verano" {
		t.Errorf("engine called with (%q, %q)", engine.lastSessionID, engine.lastMessage)
	}

	var response models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != string(models.APIStatusOK) {
		t.Errorf("Expected status=%s, got status=%s, message=%s", models.APIStatusOK, response.Status, response.Message)
	}
	result, ok := response.Result.(map[string]any)
	if !ok {
		t.Fatalf("Result has unexpected shape: %T", response.Result)
	}
	if result["bot_response"] != record.BotResponse {
		t.Errorf("bot_response = %v, want %q", result["bot_response"], record.BotResponse)
	}
	if result["current_step"] != "event_name" {
		t.Errorf("current_step = %v, want event_name", result["current_step"])
	}
}

func TestMessageHandlerValidation(t *testing.T) {
	engine := &fakeEngine{record: models.NewConversationRecord("u1")}
	handler := NewServer(engine).Handler()

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{name: "missing user_id", payload: map[string]string{"message": "hola"}},
		{name: "missing message", payload: map[string]string{"user_id": "u1"}},
		{name: "blank message", payload: map[string]string{"user_id": "u1", "message": "   "}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, handler, "/bot/message", tc.payload)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestMessageHandlerEngineFailure(t *testing.T) {
	engine := &fakeEngine{turnErr: fmt.Errorf("store unavailable")}
	handler := NewServer(engine).Handler()

	rec := postJSON(t, handler, "/bot/message", map[string]string{"user_id": "u1", "message": "hola"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	var response models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != string(models.APIStatusError) {
		t.Errorf("Expected error envelope, got %+v", response)
	}
}

func TestMessageHandlerMethodNotAllowed(t *testing.T) {
	handler := NewServer(&fakeEngine{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/bot/message", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow header = %q, want POST", allow)
	}
}

func TestSessionHandler(t *testing.T) {
	record := models.NewConversationRecord("u1")
	record.CampaignName = "Verano"
	engine := &fakeEngine{record: record}
	handler := NewServer(engine).Handler()

	req := httptest.NewRequest(http.MethodGet, "/bot/session?user_id=u1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if engine.lastSessionID != "u1" {
		t.Errorf("engine called with session %q", engine.lastSessionID)
	}
}

func TestSessionHandlerNotFound(t *testing.T) {
	handler := NewServer(&fakeEngine{record: nil}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/bot/session?user_id=nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestResetHandler(t *testing.T) {
	engine := &fakeEngine{}
	handler := NewServer(engine).Handler()

	rec := postJSON(t, handler, "/bot/reset", map[string]string{"user_id": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if engine.resetCalls != 1 {
		t.Errorf("reset calls = %d, want 1", engine.resetCalls)
	}
}

func TestWriteJSONResponseFallsBack(t *testing.T) {
	rec := httptest.NewRecorder()
	// Functions are not JSON-marshalable, forcing the fallback path.
	writeJSONResponse(rec, http.StatusOK, map[string]any{"bad": func() {}})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	var response models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("fallback body is not valid JSON: %v (%q)", err, rec.Body.String())
	}
	if response.Status != string(models.APIStatusError) {
		t.Errorf("Expected error envelope, got %+v", response)
	}
}

func TestHealthHandler(t *testing.T) {
	handler := NewServer(&fakeEngine{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
