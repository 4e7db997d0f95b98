// Package api provides HTTP response helpers shared by the bot handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// fallbackBody is served when a response value cannot be marshaled. Kept as
// literal JSON, matching the models.APIResponse error envelope, so the
// fallback itself can never fail to encode.
const fallbackBody = `{"status":"error","message":"Internal server error"}`

// writeJSONResponse marshals response and writes it with the given status
// code. Marshal failures downgrade to a 500 with the fixed error body.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response any) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		body = []byte(fallbackBody)
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", err)
	}
}
