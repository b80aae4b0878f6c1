package http

import (
	"encoding/json"
	"net/http"

	"github.com/playnatela/volante-express/internal/application"
)

type successEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// The scheduling platform reads flat bodies, so webhook replies skip the
// envelope used by the rest of the API.
type webhookAck struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Status  string `json:"status"`
	Region  string `json:"region"`
}

type webhookError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, successEnvelope{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func writeWebhookAck(w http.ResponseWriter, result application.WebhookResult) {
	writeJSON(w, http.StatusOK, webhookAck{
		Message: result.Message,
		ID:      result.ID,
		Status:  result.Status,
		Region:  result.Region,
	})
}

func writeWebhookError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, webhookError{Error: message})
}
